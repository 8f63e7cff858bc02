package model

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"gonum.org/v1/gonum/mat"

	"github.com/soleshop/solerec/core"
)

// DefaultMaxFeatures 是 TF-IDF 词表上限。超出上限后低频词被截断，
// 因此描述几乎相同的两个商品也可能只得到部分相似而非满分相似。
const DefaultMaxFeatures = 1000

// ContentIndex 是全量在售目录的内容相似度索引：每个商品由
// {name, brand, category, description} 拼接文本向量化而来，
// Similarity 为稠密对称的余弦相似度矩阵。
//
// 语义约定：
//   - 商品按 ID 升序编号，每个训练周期从零重建；该顺序同时是
//     打分阶段的候选遍历顺序（并列分时的确定性 tie-break 依据）
//   - 词权非负且行向量做了 l2 归一化，相似度落在 [0,1]，对角线为 1
//     （无有效词项的空文本行除外，其相似度恒为 0）
//   - 两个 ID 只要有一个不在索引中即"无信号"，不是错误
type ContentIndex struct {
	// ProductIDs 行号 → 商品 ID，升序
	ProductIDs []string `json:"product_ids"`

	// Index 商品 ID → 行号（ProductIDs 的逆映射）
	Index map[string]int `json:"index"`

	// Similarity 稠密对称相似度矩阵，Similarity[i][j] ∈ [0,1]
	Similarity [][]float64 `json:"similarity"`
}

// BuildContentIndex 对目录全量重建 TF-IDF 向量与两两相似度矩阵。
//
// 向量化方案（与离线管线保持一致）：
//   - 小写化，词项为 ≥2 个字符的字母/数字连续段，剔除英文停用词
//   - 词表按语料总频次降序截断到 maxFeatures（并列按字典序）
//   - tf 为原始词频，idf = ln((1+n)/(1+df)) + 1（平滑），行向量 l2 归一化
//   - 余弦相似度 = 归一化矩阵与自身转置的乘积
func BuildContentIndex(catalog map[string]core.Product, maxFeatures int) *ContentIndex {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}

	ids := make([]string, 0, len(catalog))
	for id := range catalog {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	idx := &ContentIndex{
		ProductIDs: ids,
		Index:      make(map[string]int, len(ids)),
		Similarity: make([][]float64, len(ids)),
	}
	for i, id := range ids {
		idx.Index[id] = i
	}
	if len(ids) == 0 {
		return idx
	}

	// 分词并统计语料总频次 / 文档频次
	docs := make([]map[string]int, len(ids))
	corpusFreq := make(map[string]int)
	docFreq := make(map[string]int)
	for i, id := range ids {
		counts := make(map[string]int)
		for _, term := range tokenize(catalog[id].Document()) {
			counts[term]++
		}
		docs[i] = counts
		for term, c := range counts {
			corpusFreq[term] += c
			docFreq[term]++
		}
	}

	// 词表截断：总频次降序，并列按字典序
	terms := make([]string, 0, len(corpusFreq))
	for term := range corpusFreq {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(a, b int) bool {
		if corpusFreq[terms[a]] != corpusFreq[terms[b]] {
			return corpusFreq[terms[a]] > corpusFreq[terms[b]]
		}
		return terms[a] < terms[b]
	})
	if len(terms) > maxFeatures {
		terms = terms[:maxFeatures]
	}
	vocab := make(map[string]int, len(terms))
	for j, term := range terms {
		vocab[term] = j
	}

	n := len(ids)
	if len(vocab) == 0 {
		for i := range idx.Similarity {
			idx.Similarity[i] = make([]float64, n)
		}
		return idx
	}

	// idf 平滑 + tf-idf + l2 归一化
	idf := make([]float64, len(terms))
	for j, term := range terms {
		idf[j] = math.Log(float64(1+n)/float64(1+docFreq[term])) + 1
	}

	weights := mat.NewDense(n, len(terms), nil)
	for i, counts := range docs {
		var norm float64
		row := make([]float64, len(terms))
		for term, c := range counts {
			j, ok := vocab[term]
			if !ok {
				continue
			}
			w := float64(c) * idf[j]
			row[j] = w
			norm += w * w
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for j := range row {
				row[j] /= norm
			}
		}
		weights.SetRow(i, row)
	}

	// 归一化后的余弦相似度即矩阵乘积 W·Wᵀ
	var sim mat.Dense
	sim.Mul(weights, weights.T())
	for i := 0; i < n; i++ {
		row := make([]float64, n)
		for j := 0; j < n; j++ {
			v := sim.At(i, j)
			// 浮点噪声钳回 [0,1]
			if v < 0 {
				v = 0
			} else if v > 1 {
				v = 1
			}
			row[j] = v
		}
		idx.Similarity[i] = row
	}

	return idx
}

// Similar 返回两个商品的余弦相似度。
// 任一 ID 不在索引中（训练时不在售）返回 (0, false)，调用方视为无信号。
func (c *ContentIndex) Similar(a, b string) (float64, bool) {
	i, ok := c.Index[a]
	if !ok {
		return 0, false
	}
	j, ok := c.Index[b]
	if !ok {
		return 0, false
	}
	return c.Similarity[i][j], true
}

// Contains 判断商品是否进入了本周期的内容索引。
func (c *ContentIndex) Contains(productID string) bool {
	_, ok := c.Index[productID]
	return ok
}

// NumProducts 返回索引覆盖的商品数。
func (c *ContentIndex) NumProducts() int { return len(c.ProductIDs) }

// Validate 校验索引映射与矩阵形状，供快照加载时使用。
func (c *ContentIndex) Validate() error {
	if len(c.Index) != len(c.ProductIDs) {
		return fmt.Errorf("index size %d != product list size %d", len(c.Index), len(c.ProductIDs))
	}
	for i, id := range c.ProductIDs {
		if got, ok := c.Index[id]; !ok || got != i {
			return fmt.Errorf("product %q index mismatch: %d vs %d", id, got, i)
		}
	}
	if len(c.Similarity) != len(c.ProductIDs) {
		return fmt.Errorf("similarity rows %d != product count %d", len(c.Similarity), len(c.ProductIDs))
	}
	for i, row := range c.Similarity {
		if len(row) != len(c.ProductIDs) {
			return fmt.Errorf("similarity row %d has %d columns, want %d", i, len(row), len(c.ProductIDs))
		}
	}
	return nil
}

// tokenize 小写化后提取 ≥2 字符的字母/数字词项并剔除停用词。
func tokenize(text string) []string {
	text = strings.ToLower(text)
	out := make([]string, 0, 16)
	var b strings.Builder
	runes := 0
	flush := func() {
		if runes >= 2 {
			term := b.String()
			if !IsStopWord(term) {
				out = append(out, term)
			}
		}
		b.Reset()
		runes = 0
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			runes++
			continue
		}
		flush()
	}
	flush()
	return out
}
