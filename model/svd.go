// Package model 实现两类离线模型：交互矩阵的截断 SVD 分解（行为信号）
// 与 TF-IDF 内容相似度索引（文本信号）。两者都在训练周期内全量重建。
package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/soleshop/solerec/core"
	"github.com/soleshop/solerec/dataset"
)

// ErrInsufficientData 表示有交互的商品不足 2 个，矩阵分解被整体跳过。
// 这不是致命错误：该快照内所有用户走纯内容打分。
var ErrInsufficientData = core.NewDomainError(core.ModuleModel, core.ErrorCodeInsufficientData, "model: fewer than 2 interacting products")

// Factorization 是交互矩阵的低秩分解产物。
//
// 核心思想：把用户×商品矩阵近似为 UserFactors(users×k) · Components(k×products)，
// 重建出的行向量即该用户对全部参训商品的预测亲和分。
//
// 语义约定：
//   - UserFactors 已吸收奇异值（U_k·Σ_k），Components 为 V_kᵀ
//   - 预测值是排序信号，不是概率，允许为负
//   - 列集合与训练时的交互矩阵完全一致；训练后新增的商品没有 CF 分
type Factorization struct {
	// Rank 为实际使用的隐因子数 k
	Rank int `json:"rank"`

	// UserFactors 每个已知用户一行隐向量（users×k）
	UserFactors [][]float64 `json:"user_factors"`

	// Components 共享的商品成分矩阵（k×products）
	Components [][]float64 `json:"components"`
}

// MaxRank 是隐因子数上限；实际 k = min(MaxRank, products−1, min(users, products))。
const MaxRank = 20

// FitSVD 对交互矩阵做截断奇异值分解。
// 参训商品不足 2 个（k 会被钳到 0）时返回 ErrInsufficientData。
func FitSVD(m *dataset.InteractionMatrix) (*Factorization, error) {
	users := m.NumUsers()
	products := m.NumProducts()
	if products < 2 || users < 1 {
		return nil, ErrInsufficientData
	}

	k := MaxRank
	if k > products-1 {
		k = products - 1
	}
	if k > users {
		k = users
	}
	if k < 1 {
		return nil, ErrInsufficientData
	}

	flat := make([]float64, 0, users*products)
	for _, row := range m.Values {
		flat = append(flat, row...)
	}
	dense := mat.NewDense(users, products, flat)

	var svd mat.SVD
	if ok := svd.Factorize(dense, mat.SVDThin); !ok {
		return nil, fmt.Errorf("svd factorization did not converge")
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	sigma := svd.Values(nil)

	f := &Factorization{
		Rank:        k,
		UserFactors: make([][]float64, users),
		Components:  make([][]float64, k),
	}
	for i := 0; i < users; i++ {
		vec := make([]float64, k)
		for c := 0; c < k; c++ {
			vec[c] = u.At(i, c) * sigma[c]
		}
		f.UserFactors[i] = vec
	}
	for c := 0; c < k; c++ {
		comp := make([]float64, products)
		for j := 0; j < products; j++ {
			comp[j] = v.At(j, c)
		}
		f.Components[c] = comp
	}

	return f, nil
}

// NumProducts 返回成分矩阵覆盖的商品列数。
func (f *Factorization) NumProducts() int {
	if len(f.Components) == 0 {
		return 0
	}
	return len(f.Components[0])
}

// Predict 重建指定行的预测亲和向量：UserFactors[row] · Components。
// 返回向量长度等于训练时的商品列数；row 越界返回 false。
func (f *Factorization) Predict(row int) ([]float64, bool) {
	if row < 0 || row >= len(f.UserFactors) {
		return nil, false
	}
	products := f.NumProducts()
	out := make([]float64, products)
	vec := f.UserFactors[row]
	for c := 0; c < f.Rank && c < len(vec); c++ {
		w := vec[c]
		if w == 0 {
			continue
		}
		comp := f.Components[c]
		for j := 0; j < products; j++ {
			out[j] += w * comp[j]
		}
	}
	return out, true
}

// Validate 校验分解产物的形状一致性，供快照加载时使用。
func (f *Factorization) Validate() error {
	if f.Rank < 1 {
		return fmt.Errorf("rank %d < 1", f.Rank)
	}
	if len(f.Components) != f.Rank {
		return fmt.Errorf("components rows %d != rank %d", len(f.Components), f.Rank)
	}
	products := f.NumProducts()
	for c, comp := range f.Components {
		if len(comp) != products {
			return fmt.Errorf("component %d has %d columns, want %d", c, len(comp), products)
		}
	}
	for i, vec := range f.UserFactors {
		if len(vec) != f.Rank {
			return fmt.Errorf("user factor %d has %d dims, want %d", i, len(vec), f.Rank)
		}
	}
	return nil
}
