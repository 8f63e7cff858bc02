package filter

import (
	"context"

	"github.com/soleshop/solerec/core"
	"github.com/soleshop/solerec/pkg/dsl"
)

// RuleFilter 按 CEL 表达式剔除候选商品（表达式为 true → 过滤）。
// 规则在引擎启动时编译一次；商品属性取自当期快照目录。
//
// 表达式求值失败时保留该候选（FilterNode 跳过出错的过滤器），
// 规则问题不应让推荐整体失败。
type RuleFilter struct {
	// Rule 为编译后的规则；nil 表示不启用
	Rule *dsl.Rule

	// Catalog 为当期快照的商品目录，供表达式取商品属性
	Catalog map[string]core.Product
}

func (f *RuleFilter) Name() string { return "filter.rule" }

func (f *RuleFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if f.Rule == nil || item == nil {
		return false, nil
	}
	p, ok := f.Catalog[item.ID]
	if !ok {
		return false, nil
	}

	userID := ""
	if rctx != nil {
		userID = rctx.UserID
	}
	return f.Rule.Evaluate(map[string]any{
		"id":       p.ID,
		"name":     p.Name,
		"price":    p.Price,
		"brand":    p.Brand,
		"category": p.Category,
	}, userID)
}
