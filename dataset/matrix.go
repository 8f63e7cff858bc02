// Package dataset 负责把购买记录整理成训练用的用户×商品交互矩阵。
package dataset

import (
	"fmt"
	"sort"

	"github.com/soleshop/solerec/core"
)

// InteractionMatrix 是稠密的用户×商品隐式亲和矩阵及其索引映射。
//
// 构建策略：
//   - 只有出现过购买行为的用户/商品才会被编入行/列（决定了谁是"已知用户"）
//   - 每个去重后的 (user, product) 对写入固定亲和值 core.ImplicitAffinity，
//     重复购买不加权
//   - 行/列顺序按 ID 升序，单次训练内确定；跨训练周期不保证稳定
//
// 索引映射是显式的双射结构：UserIndex（用户→行）、ProductIndex（商品→列）、
// Products（列→商品），构建后通过 Validate 校验双射性。
type InteractionMatrix struct {
	// Values 按行存储，Values[i][j] 为第 i 个用户对第 j 个商品的亲和值
	Values [][]float64 `json:"values"`

	// UserIndex 用户 ID → 行号
	UserIndex map[string]int `json:"user_index"`

	// ProductIndex 商品 ID → 列号
	ProductIndex map[string]int `json:"product_index"`

	// Products 列号 → 商品 ID（ProductIndex 的逆映射）
	Products []string `json:"products"`
}

// Build 根据购买记录构建交互矩阵。
// records 为空时返回空矩阵（零行零列），调用方据此跳过矩阵分解。
func Build(records []core.InteractionRecord) *InteractionMatrix {
	userSet := make(map[string]struct{})
	productSet := make(map[string]struct{})
	pairs := make(map[[2]string]struct{}, len(records))

	for _, r := range records {
		if r.UserID == "" || r.ProductID == "" {
			continue
		}
		userSet[r.UserID] = struct{}{}
		productSet[r.ProductID] = struct{}{}
		pairs[[2]string{r.UserID, r.ProductID}] = struct{}{}
	}

	users := make([]string, 0, len(userSet))
	for u := range userSet {
		users = append(users, u)
	}
	sort.Strings(users)

	products := make([]string, 0, len(productSet))
	for p := range productSet {
		products = append(products, p)
	}
	sort.Strings(products)

	m := &InteractionMatrix{
		Values:       make([][]float64, len(users)),
		UserIndex:    make(map[string]int, len(users)),
		ProductIndex: make(map[string]int, len(products)),
		Products:     products,
	}
	for i, u := range users {
		m.UserIndex[u] = i
		m.Values[i] = make([]float64, len(products))
	}
	for j, p := range products {
		m.ProductIndex[p] = j
	}

	for pair := range pairs {
		i := m.UserIndex[pair[0]]
		j := m.ProductIndex[pair[1]]
		m.Values[i][j] = core.ImplicitAffinity
	}

	return m
}

// NumUsers 返回有购买历史的用户数（矩阵行数）。
func (m *InteractionMatrix) NumUsers() int { return len(m.Values) }

// NumProducts 返回有购买历史的商品数（矩阵列数）。
func (m *InteractionMatrix) NumProducts() int { return len(m.Products) }

// UserRow 返回用户对应的行号；不在索引中的用户返回 false（冷启动用户，
// 调用方视为"无 CF 信号"而非错误）。
func (m *InteractionMatrix) UserRow(userID string) (int, bool) {
	i, ok := m.UserIndex[userID]
	return i, ok
}

// ProductAt 返回列号对应的商品 ID。
func (m *InteractionMatrix) ProductAt(col int) (string, bool) {
	if col < 0 || col >= len(m.Products) {
		return "", false
	}
	return m.Products[col], true
}

// Validate 校验索引映射的双射性与矩阵形状的一致性。
// 持久化快照反序列化后也会走这里，不一致视为快照损坏。
func (m *InteractionMatrix) Validate() error {
	if len(m.UserIndex) != len(m.Values) {
		return fmt.Errorf("user index size %d != row count %d", len(m.UserIndex), len(m.Values))
	}
	if len(m.ProductIndex) != len(m.Products) {
		return fmt.Errorf("product index size %d != column list size %d", len(m.ProductIndex), len(m.Products))
	}

	seenRows := make(map[int]string, len(m.UserIndex))
	for u, i := range m.UserIndex {
		if i < 0 || i >= len(m.Values) {
			return fmt.Errorf("user %q maps to out-of-range row %d", u, i)
		}
		if prev, dup := seenRows[i]; dup {
			return fmt.Errorf("users %q and %q map to the same row %d", prev, u, i)
		}
		seenRows[i] = u
	}

	for p, j := range m.ProductIndex {
		if j < 0 || j >= len(m.Products) {
			return fmt.Errorf("product %q maps to out-of-range column %d", p, j)
		}
		if m.Products[j] != p {
			return fmt.Errorf("product index %q/%d disagrees with column list %q", p, j, m.Products[j])
		}
	}

	cols := len(m.Products)
	for i, row := range m.Values {
		if len(row) != cols {
			return fmt.Errorf("row %d has %d columns, want %d", i, len(row), cols)
		}
	}
	return nil
}
