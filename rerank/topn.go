// Package rerank 提供排序结果上的重排节点。
package rerank

import (
	"context"

	"github.com/soleshop/solerec/core"
	"github.com/soleshop/solerec/pipeline"
)

// TopNNode 在排序之后截取前 N 个候选，保证返回长度 ≤ N。
// N <= 0 时返回空结果（请求 0 条就给 0 条，不做"默认全量"兜底）。
type TopNNode struct {
	N int
}

func (n *TopNNode) Name() string        { return "rerank.topn" }
func (n *TopNNode) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *TopNNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.N <= 0 {
		return nil, nil
	}
	if len(items) <= n.N {
		return items, nil
	}
	return items[:n.N], nil
}
