package filter

import (
	"context"

	"github.com/soleshop/solerec/core"
)

// PurchasedFilter 剔除用户当前已购的商品：即使上次训练之后才买的，
// 也因为已购集合是逐请求实时拉取的而被排除。
//
// 已购集合由引擎在请求开始时写入 RecommendContext；拉取失败时引擎
// 降级为空集合（推荐照常返回，代价是已购商品可能重新出现），
// 这里只读集合本身，不关心它是怎么来的。
type PurchasedFilter struct{}

func (f *PurchasedFilter) Name() string { return "filter.purchased" }

func (f *PurchasedFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || rctx == nil {
		return false, nil
	}
	return rctx.HasPurchased(item.ID), nil
}
