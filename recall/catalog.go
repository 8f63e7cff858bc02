// Package recall 提供候选集生成节点。
// 本系统的候选集是训练快照内的全量在售目录（闭集），不做截断式召回。
package recall

import (
	"context"

	"github.com/soleshop/solerec/core"
	"github.com/soleshop/solerec/pipeline"
	"github.com/soleshop/solerec/pkg/utils"
	"github.com/soleshop/solerec/snapshot"
)

// CatalogRecall 以内容索引的升序商品编号遍历快照目录，产出全部候选。
//
// 候选顺序即后续并列分的 tie-break 顺序：排序阶段使用稳定排序，
// 分数相同的候选保持这里的升序 ID 先后关系（确定且有文档约定，
// 不依赖 map 的偶然遍历顺序）。
type CatalogRecall struct {
	Snapshot *snapshot.Model
}

func (r *CatalogRecall) Name() string        { return "recall.catalog" }
func (r *CatalogRecall) Kind() pipeline.Kind { return pipeline.KindRecall }

func (r *CatalogRecall) Process(
	_ context.Context,
	_ *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if r.Snapshot == nil {
		return nil, nil
	}

	out := make([]*core.Item, 0, r.Snapshot.Content.NumProducts())
	for _, pid := range r.Snapshot.Content.ProductIDs {
		it := core.NewItem(pid)
		it.PutLabel("recall_source", utils.Label{Value: "catalog", Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}
