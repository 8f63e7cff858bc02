// Package rank 实现混合打分：行为信号（SVD 重建亲和）与内容信号
// （与已购商品的 TF-IDF 余弦相似度均值）的加权融合。
package rank

import (
	"context"
	"fmt"
	"sort"

	"github.com/soleshop/solerec/core"
	"github.com/soleshop/solerec/pipeline"
	"github.com/soleshop/solerec/pkg/utils"
	"github.com/soleshop/solerec/snapshot"
)

// 默认融合权重。注意这是沿用线上行为的固定配比，不是标定过的校准：
// CF 分是无界的重建亲和值，内容分落在 [0,1]，两者并不在同一量纲上。
// 已知的 calibration gap，保持原样，不做归一化"修正"。
const (
	DefaultCFWeight      = 0.6
	DefaultContentWeight = 0.4
)

// HybridNode 对候选集计算最终分并按分数降序稳定排序。
//
// 打分规则：
//   - 已知用户（在交互矩阵行索引中）：score = 0.6*cf + 0.4*content，
//     cf 对训练时不在矩阵列中的商品取 0
//   - 冷启动用户：score = content（CF 项按定义为 0）
//   - 本快照没有分解产物（参训商品不足 2 个）时，所有用户都走纯内容分
//   - content = 与实时已购集合中每个在索引内商品相似度的均值；
//     已购为空或与索引无交集时为 0
//
// 并列分的先后关系由候选输入顺序决定（recall.catalog 的升序商品 ID），
// 稳定排序保证该顺序确定可复现。
type HybridNode struct {
	Snapshot *snapshot.Model

	// CFWeight / ContentWeight 融合权重；<=0 时取默认值
	CFWeight      float64
	ContentWeight float64
}

func (n *HybridNode) Name() string        { return "rank.hybrid" }
func (n *HybridNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *HybridNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.Snapshot == nil || len(items) == 0 {
		return items, nil
	}

	cfWeight := n.CFWeight
	if cfWeight <= 0 {
		cfWeight = DefaultCFWeight
	}
	contentWeight := n.ContentWeight
	if contentWeight <= 0 {
		contentWeight = DefaultContentWeight
	}

	snap := n.Snapshot
	known := false
	var cfScores map[string]float64
	if rctx != nil {
		if row, ok := snap.Interactions.UserRow(rctx.UserID); ok {
			known = true
			if snap.HasFactorization() {
				cfScores = n.reconstruct(row)
			}
		}
	}

	// 实时已购集合中落在内容索引内的行号（用作内容分的参照集合）
	var boughtRows []int
	if rctx != nil {
		for pid := range rctx.Purchased {
			if i, ok := snap.Content.Index[pid]; ok {
				boughtRows = append(boughtRows, i)
			}
		}
	}

	mode := "hybrid"
	if !snap.HasFactorization() || !known {
		mode = "content_only"
	}

	for _, item := range items {
		if item == nil {
			continue
		}

		cf := 0.0
		if cfScores != nil {
			cf = cfScores[item.ID] // 列缺失取 0
		}

		content := 0.0
		if candRow, ok := snap.Content.Index[item.ID]; ok && len(boughtRows) > 0 {
			sum := 0.0
			for _, b := range boughtRows {
				sum += snap.Content.Similarity[candRow][b]
			}
			content = sum / float64(len(boughtRows))
		}

		switch mode {
		case "hybrid":
			item.Score = cfWeight*cf + contentWeight*content
		default:
			item.Score = content
		}
		item.PutLabel("rank_mode", utils.Label{Value: mode, Source: "rank"})
		item.PutLabel("rank_breakdown", utils.Label{
			Value:  fmt.Sprintf("cf=%.4f content=%.4f", cf, content),
			Source: "rank",
		})
	}

	// 稳定排序：并列分保持候选输入顺序（升序商品 ID）
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
	return items, nil
}

// reconstruct 重建用户行并映射为 {product_id: score}。
func (n *HybridNode) reconstruct(row int) map[string]float64 {
	pred, ok := n.Snapshot.Factorization.Predict(row)
	if !ok {
		return nil
	}
	out := make(map[string]float64, len(pred))
	for j, s := range pred {
		if pid, ok := n.Snapshot.Interactions.ProductAt(j); ok {
			out[pid] = s
		}
	}
	return out
}
