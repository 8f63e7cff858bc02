// Package solerec 是鞋类商城的混合推荐引擎。
//
// 设计要点：
//   - 混合打分：SVD 协同过滤 + TF-IDF 内容相似度加权融合，冷启动
//     用户自动退化为纯内容打分
//   - Pipeline-first：打分链路由 Node 串联（Recall → Filter → Rank → ReRank），
//     labels 全链路透传，每条结果可解释
//   - 快照式发布：训练在旁路构建完整模型快照，原子交换上线，
//     重训期间服务不中断
package solerec

import "github.com/soleshop/solerec/pipeline"

// 轻量 facade：便于直接 import 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall = pipeline.KindRecall
	KindFilter = pipeline.KindFilter
	KindRank   = pipeline.KindRank
	KindReRank = pipeline.KindReRank
)
