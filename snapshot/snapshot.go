// Package snapshot 定义训练产物的聚合快照及其持久化。
//
// 快照是唯一的共享可变资源的"值"：训练期整体新建，服务期只读，
// 下一次训练成功后整体取代（绝不原地修改）。持久化为单个带显式
// 版本号的 JSON blob，加载时未知字段/缺失字段/版本不符一律视为
// 损坏并回退到同步重训。
package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/soleshop/solerec/core"
	"github.com/soleshop/solerec/dataset"
	"github.com/soleshop/solerec/model"
)

// SchemaVersion 是当前快照格式版本。每次写都是全量重建，
// 版本号只用于拒绝旧格式，不做增量迁移。
const SchemaVersion = 1

// DefaultKey 是快照在 Store 中的默认 key。
const DefaultKey = "solerec-model.json"

// 快照错误定义（使用统一的 DomainError）
var (
	// ErrMissing 表示持久化快照不存在
	ErrMissing = core.NewDomainError(core.ModuleSnapshot, core.ErrorCodeNotFound, "snapshot: not found")
)

func corrupt(format string, args ...any) error {
	return core.NewDomainError(core.ModuleSnapshot, core.ErrorCodeCorrupt, fmt.Sprintf("snapshot: "+format, args...))
}

// Model 是一个训练周期的全部产物：
//
//   - Catalog：训练时刻的在售目录（打分期的闭集）
//   - Interactions：用户×商品交互矩阵与索引（决定谁是"已知用户"）
//   - Factorization：截断 SVD 分解；数据不足时为 nil（纯内容打分）
//   - Content：TF-IDF 内容相似度索引（覆盖全目录）
//
// 不变式（Validate 校验）：
//   - 交互矩阵的商品列集合 ⊆ 内容索引商品集合 = 目录集合
//   - 分解产物的形状与交互矩阵一致
type Model struct {
	SchemaVersion int       `json:"schema_version"`
	TrainedAt     time.Time `json:"trained_at"`

	Catalog       map[string]core.Product    `json:"catalog"`
	Interactions  *dataset.InteractionMatrix `json:"interactions"`
	Factorization *model.Factorization       `json:"factorization,omitempty"`
	Content       *model.ContentIndex        `json:"content"`
}

// HasFactorization 返回本快照是否带有可用的 CF 模型。
func (m *Model) HasFactorization() bool { return m.Factorization != nil }

// Validate 校验快照的完整性与跨组件不变式。
// 任何不一致都按损坏处理（调用方触发重训），绝不带病服务。
func (m *Model) Validate() error {
	if m.SchemaVersion != SchemaVersion {
		return corrupt("schema version %d, want %d", m.SchemaVersion, SchemaVersion)
	}
	if m.Catalog == nil || m.Interactions == nil || m.Content == nil {
		return corrupt("missing required sections")
	}
	if err := m.Interactions.Validate(); err != nil {
		return corrupt("interactions: %v", err)
	}
	if err := m.Content.Validate(); err != nil {
		return corrupt("content index: %v", err)
	}

	// 内容索引必须恰好覆盖目录
	if m.Content.NumProducts() != len(m.Catalog) {
		return corrupt("content index covers %d products, catalog has %d", m.Content.NumProducts(), len(m.Catalog))
	}
	for _, id := range m.Content.ProductIDs {
		if _, ok := m.Catalog[id]; !ok {
			return corrupt("content index product %q not in catalog", id)
		}
	}

	// 交互矩阵的商品列 ⊆ 目录；(目录缩减后旧交互可能指向下架商品，
	// 但矩阵是训练时从当期记录构建的，列集合仍需落在当期目录内)
	for _, id := range m.Interactions.Products {
		if _, ok := m.Catalog[id]; !ok {
			return corrupt("interaction product %q not in catalog", id)
		}
	}

	if m.Factorization != nil {
		if err := m.Factorization.Validate(); err != nil {
			return corrupt("factorization: %v", err)
		}
		if m.Factorization.NumProducts() != m.Interactions.NumProducts() {
			return corrupt("factorization covers %d products, interaction matrix has %d",
				m.Factorization.NumProducts(), m.Interactions.NumProducts())
		}
		if len(m.Factorization.UserFactors) != m.Interactions.NumUsers() {
			return corrupt("factorization covers %d users, interaction matrix has %d",
				len(m.Factorization.UserFactors), m.Interactions.NumUsers())
		}
	}
	return nil
}

// Encode 把快照序列化为单个 JSON blob。
func (m *Model) Encode() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// Decode 反序列化并校验快照。未知字段与校验失败都映射为 CORRUPT。
func Decode(data []byte) (*Model, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var m Model
	if err := dec.Decode(&m); err != nil {
		return nil, corrupt("decode: %v", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Persister 负责快照与 Store 之间的整体读写。
type Persister struct {
	store core.Store
	key   string
}

// NewPersister 创建持久化器；key 为空时使用 DefaultKey。
func NewPersister(s core.Store, key string) *Persister {
	if key == "" {
		key = DefaultKey
	}
	return &Persister{store: s, key: key}
}

// Save 整体写入快照，覆盖任何旧快照。
func (p *Persister) Save(ctx context.Context, m *Model) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	return p.store.Set(ctx, p.key, data)
}

// Load 读取并校验持久化快照。
// 不存在返回 ErrMissing；损坏返回 CORRUPT 错误，调用方回退到重训。
func (p *Persister) Load(ctx context.Context) (*Model, error) {
	data, err := p.store.Get(ctx, p.key)
	if core.IsStoreNotFound(err) {
		return nil, ErrMissing
	}
	if err != nil {
		return nil, err
	}
	return Decode(data)
}
