// Package engine 是混合推荐引擎：训练管线、快照的原子发布、
// 训练即缺省的启动策略、服务期的打分链路编排。
//
// 并发模型：
//   - 唯一的共享可变资源是内存中的当前快照指针（atomic.Pointer）
//   - 训练在旁路完整构建新快照，成功后一次指针交换发布；请求开始时
//     取一次本地引用并全程使用，交换发生在请求中途也不会读到新旧混合
//   - 训练与服务可并发：重训期间照常用旧快照服务，trainMu 只约束
//     训练彼此串行
package engine

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/soleshop/solerec/core"
	"github.com/soleshop/solerec/dataset"
	"github.com/soleshop/solerec/filter"
	"github.com/soleshop/solerec/model"
	"github.com/soleshop/solerec/pipeline"
	"github.com/soleshop/solerec/pkg/dsl"
	"github.com/soleshop/solerec/rank"
	"github.com/soleshop/solerec/recall"
	"github.com/soleshop/solerec/rerank"
	"github.com/soleshop/solerec/snapshot"
)

// DefaultN 是未指定返回条数时的默认值。
const DefaultN = 5

// Options 是引擎的可选配置。
type Options struct {
	// SnapshotKey 为快照在 Store 中的 key；空则用 snapshot.DefaultKey
	SnapshotKey string

	// ExcludeRule 为可配置的 CEL 候选排除规则；空则不启用
	ExcludeRule string

	// MaxFeatures 为 TF-IDF 词表上限；<=0 用 model.DefaultMaxFeatures
	MaxFeatures int

	// CFWeight / ContentWeight 融合权重；<=0 用 rank 包默认值
	CFWeight      float64
	ContentWeight float64

	// Logger 为结构化日志；零值时静默
	Logger zerolog.Logger
}

// Engine 是单实例共享的推荐引擎，可被任意并发请求与重训触发共用。
type Engine struct {
	source    core.DataSource
	persister *snapshot.Persister
	rule      *dsl.Rule
	opts      Options
	log       zerolog.Logger

	current atomic.Pointer[snapshot.Model]
	trainMu sync.Mutex // 训练串行化
	loadMu  sync.Mutex // 首次加载串行化
}

// New 创建引擎。此时不加载模型：第一次 Recommend（或显式 Warmup）
// 按"有快照就加载、没有就同步训练"的启动策略补齐。
func New(source core.DataSource, st core.Store, opts Options) (*Engine, error) {
	rule, err := dsl.Compile(opts.ExcludeRule)
	if err != nil {
		return nil, err
	}
	return &Engine{
		source:    source,
		persister: snapshot.NewPersister(st, opts.SnapshotKey),
		rule:      rule,
		opts:      opts,
		log:       opts.Logger,
	}, nil
}

// Train 全量重训：拉取目录与全量购买记录，重建交互矩阵、SVD 分解
// 与内容索引，整体组装为新快照，先原子发布再持久化。
//
// 错误策略：
//   - 数据源失败向上传播，旧快照保持原样（宁可没有新模型，不要错的模型）
//   - 参训商品不足时跳过分解，快照照常发布（纯内容打分）
//   - 持久化失败时新快照仍保留在内存中服务，错误返回给调用方
func (e *Engine) Train(ctx context.Context) error {
	e.trainMu.Lock()
	defer e.trainMu.Unlock()

	started := time.Now()

	products, err := e.source.FetchActiveCatalog(ctx)
	if err != nil {
		e.log.Error().Err(err).Msg("train: catalog fetch failed")
		return err
	}
	records, err := e.source.FetchAllInteractions(ctx)
	if err != nil {
		e.log.Error().Err(err).Msg("train: interaction fetch failed")
		return err
	}

	catalog := make(map[string]core.Product, len(products))
	for _, p := range products {
		catalog[p.ID] = p
	}

	// 历史订单可能指向已下架商品；候选集只含在售商品，下架列不产生
	// 任何可用的打分信号，在进矩阵前剔除以维持 列集合 ⊆ 目录 的不变式
	active := make([]core.InteractionRecord, 0, len(records))
	for _, r := range records {
		if _, ok := catalog[r.ProductID]; ok {
			active = append(active, r)
		}
	}
	interactions := dataset.Build(active)

	var (
		fact    *model.Factorization
		content *model.ContentIndex
	)
	eg, _ := errgroup.WithContext(ctx)
	eg.Go(func() error {
		f, err := model.FitSVD(interactions)
		if core.IsInsufficientData(err) {
			e.log.Info().Int("products", interactions.NumProducts()).
				Msg("train: too few interacting products, skipping factorization")
			return nil
		}
		if err != nil {
			return err
		}
		fact = f
		return nil
	})
	eg.Go(func() error {
		content = model.BuildContentIndex(catalog, e.opts.MaxFeatures)
		return nil
	})
	if err := eg.Wait(); err != nil {
		e.log.Error().Err(err).Msg("train: model build failed")
		return err
	}

	snap := &snapshot.Model{
		SchemaVersion: snapshot.SchemaVersion,
		TrainedAt:     time.Now().UTC(),
		Catalog:       catalog,
		Interactions:  interactions,
		Factorization: fact,
		Content:       content,
	}
	if err := snap.Validate(); err != nil {
		e.log.Error().Err(err).Msg("train: assembled snapshot failed validation")
		return err
	}

	// 新快照旁路构建完成，单点指针交换发布
	e.current.Store(snap)

	e.log.Info().
		Int("catalog", len(catalog)).
		Int("known_users", interactions.NumUsers()).
		Int("interacting_products", interactions.NumProducts()).
		Bool("factorized", fact != nil).
		Dur("took", time.Since(started)).
		Msg("train: snapshot published")

	if err := e.persister.Save(ctx, snap); err != nil {
		e.log.Error().Err(err).Msg("train: snapshot persist failed, serving from memory only")
		return err
	}
	return nil
}

// Recommend 为用户返回最多 n 条推荐，按分数降序。
// n <= 0 时按 0 处理返回空列表。已购集合拉取失败降级为空集合继续。
func (e *Engine) Recommend(ctx context.Context, userID string, n int) ([]core.Recommendation, error) {
	snap, err := e.ensure(ctx)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return []core.Recommendation{}, nil
	}

	purchased, err := e.source.FetchUserPurchases(ctx, userID)
	if err != nil {
		// 可用性优先：查不到已购历史时退化为空集合继续推荐，
		// 代价是已购商品可能重新出现
		e.log.Warn().Err(err).Str("user_id", userID).
			Msg("recommend: purchase lookup failed, degrading to empty exclusion set")
		purchased = map[string]struct{}{}
	}

	rctx := &core.RecommendContext{UserID: userID, Purchased: purchased}
	pl := &pipeline.Pipeline{
		Nodes: []pipeline.Node{
			&recall.CatalogRecall{Snapshot: snap},
			&filter.FilterNode{Filters: []filter.Filter{
				&filter.PurchasedFilter{},
				&filter.RuleFilter{Rule: e.rule, Catalog: snap.Catalog},
			}},
			&rank.HybridNode{
				Snapshot:      snap,
				CFWeight:      e.opts.CFWeight,
				ContentWeight: e.opts.ContentWeight,
			},
			&rerank.TopNNode{N: n},
		},
	}

	items, err := pl.Run(ctx, rctx, nil)
	if err != nil {
		return nil, err
	}

	out := make([]core.Recommendation, 0, len(items))
	for _, it := range items {
		p, ok := snap.Catalog[it.ID]
		if !ok {
			continue
		}
		out = append(out, core.Recommendation{
			ID:    p.ID,
			Name:  p.Name,
			Price: p.Price,
			Brand: p.Brand,
			Score: round4(it.Score),
		})
	}
	return out, nil
}

// Warmup 执行启动策略：确保内存中已有可用快照。
// 持久化快照缺失或损坏时同步触发全量训练。
func (e *Engine) Warmup(ctx context.Context) error {
	_, err := e.ensure(ctx)
	return err
}

// Snapshot 返回当前内存快照；尚未加载时为 nil。
func (e *Engine) Snapshot() *snapshot.Model {
	return e.current.Load()
}

func (e *Engine) ensure(ctx context.Context) (*snapshot.Model, error) {
	if snap := e.current.Load(); snap != nil {
		return snap, nil
	}

	e.loadMu.Lock()
	defer e.loadMu.Unlock()
	if snap := e.current.Load(); snap != nil {
		return snap, nil
	}

	snap, err := e.persister.Load(ctx)
	switch {
	case err == nil:
		e.current.Store(snap)
		e.log.Info().Time("trained_at", snap.TrainedAt).Msg("snapshot loaded from store")
		return snap, nil
	case core.IsNotFound(err):
		e.log.Info().Msg("no persisted snapshot, training synchronously")
	case core.IsCorrupt(err):
		e.log.Warn().Err(err).Msg("persisted snapshot corrupt, retraining")
	default:
		return nil, err
	}

	if err := e.Train(ctx); err != nil {
		if e.current.Load() == nil {
			return nil, err
		}
		// 训练发布成功但持久化失败：内存快照可用，继续服务
	}
	return e.current.Load(), nil
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
