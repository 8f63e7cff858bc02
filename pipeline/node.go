package pipeline

import (
	"context"

	"github.com/soleshop/solerec/core"
)

// Kind 用于标记 Node 类型，方便观测/治理/编排（例如按阶段打点）。
type Kind string

const (
	KindRecall Kind = "recall" // 召回阶段：生成候选集（本系统为全量在售目录）
	KindFilter Kind = "filter" // 过滤阶段：剔除已购/命中规则的候选
	KindRank   Kind = "rank"   // 排序阶段：混合打分并排序
	KindReRank Kind = "rerank" // 重排阶段：Top-N 截断
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用"输入 items -> 输出 items"的形态，方便召回生成、过滤截断、排序重排等操作。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.Item,
	) ([]*core.Item, error)
}
