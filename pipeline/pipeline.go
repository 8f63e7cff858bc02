// Package pipeline 把推荐逻辑拆成可组合的 Node 链：
// 召回（目录候选）→ 过滤（已购/规则）→ 排序（混合打分）→ 重排（Top-N）。
package pipeline

import (
	"context"

	"github.com/soleshop/solerec/core"
)

// Pipeline 顺序执行 Node 链；任一 Node 出错即中断返回。
type Pipeline struct {
	Nodes []Node
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
