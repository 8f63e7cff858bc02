package store

import (
	"context"
	"testing"

	"github.com/soleshop/solerec/core"
)

func TestStoreRoundTrip(t *testing.T) {
	stores := map[string]core.Store{
		"memory": NewMemoryStore(),
	}
	if fs, err := NewFileStore(t.TempDir()); err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	} else {
		stores["file"] = fs
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := s.Get(ctx, "model"); !core.IsStoreNotFound(err) {
				t.Errorf("Get(missing) error = %v, want NOT_FOUND", err)
			}

			if err := s.Set(ctx, "model", []byte("v1")); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			got, err := s.Get(ctx, "model")
			if err != nil || string(got) != "v1" {
				t.Fatalf("Get() = %q, %v, want v1", got, err)
			}

			// 整体覆盖
			if err := s.Set(ctx, "model", []byte("v2")); err != nil {
				t.Fatalf("Set() overwrite error = %v", err)
			}
			got, _ = s.Get(ctx, "model")
			if string(got) != "v2" {
				t.Errorf("Get() after overwrite = %q, want v2", got)
			}

			if err := s.Delete(ctx, "model"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, err := s.Get(ctx, "model"); !core.IsStoreNotFound(err) {
				t.Errorf("Get() after delete error = %v, want NOT_FOUND", err)
			}
			// 删除不存在的 key 不报错
			if err := s.Delete(ctx, "model"); err != nil {
				t.Errorf("Delete(missing) error = %v", err)
			}
		})
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if err := first.Set(ctx, "model", []byte("snapshot")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	first.Close()

	second, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() reopen error = %v", err)
	}
	got, err := second.Get(ctx, "model")
	if err != nil || string(got) != "snapshot" {
		t.Fatalf("Get() after reopen = %q, %v, want snapshot", got, err)
	}
}
