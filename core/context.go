package core

// RecommendContext 承载单次推荐请求的用户侧信息，贯穿整个 Pipeline 透传。
//
// Purchased 是请求开始时从数据源实时拉取的已购商品 ID 集合：
//   - 排除候选（买过的不再推荐）
//   - 内容分计算的参照集合（与已购商品的相似度取均值）
//
// 实时查询失败时按可用性优先降级为空集合（见 filter.PurchasedFilter），
// 此时已购商品可能重新出现在结果中，这是刻意的取舍。
type RecommendContext struct {
	UserID string

	// Purchased 为本次请求的实时已购集合；nil 与空集合等价。
	Purchased map[string]struct{}
}

// HasPurchased 判断商品是否在实时已购集合中。
func (rctx *RecommendContext) HasPurchased(productID string) bool {
	if rctx == nil || rctx.Purchased == nil {
		return false
	}
	_, ok := rctx.Purchased[productID]
	return ok
}
