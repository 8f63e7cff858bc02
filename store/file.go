package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/soleshop/solerec/core"
)

// FileStore 把每个 key 存为目录下的一个文件，是快照持久化的默认后端
// （对应单进程部署："一个模型文件"）。
//
// 写入走临时文件 + rename，文件要么是完整的旧值要么是完整的新值，
// 不会出现写了一半的快照。
type FileStore struct {
	mu  sync.RWMutex
	dir string
}

// NewFileStore 创建文件后端；目录不存在时自动创建。
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

var _ core.Store = (*FileStore)(nil)

func (f *FileStore) Name() string { return "file" }

func (f *FileStore) path(key string) string {
	// key 作为文件名使用；调用方约定 key 不含路径分隔符
	return filepath.Join(f.dir, key)
}

func (f *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

func (f *FileStore) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(f.dir, key+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, f.path(key))
}

func (f *FileStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (f *FileStore) Close() error { return nil }
