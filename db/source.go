// Package db 是 core.DataSource 的 MySQL 实现。
//
// 三条只读查询对应引擎的三个读操作：
//   - 在售目录：products ⋈ brands ⋈ categories，WHERE is_active = 1
//   - 全量购买记录：users ⋈ customers ⋈ orders ⋈ order_items
//   - 单用户实时已购：同上，按 user id 过滤
//
// 品牌/类目用 LEFT JOIN：缺失归属的商品照常参训，对应字段为空串。
package db

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/soleshop/solerec/core"
)

// productRow 是目录查询的扫描目标。
type productRow struct {
	ProductID    int64   `gorm:"column:product_id"`
	ProductName  string  `gorm:"column:product_name"`
	BasePrice    float64 `gorm:"column:base_price"`
	Description  string  `gorm:"column:description"`
	BrandName    string  `gorm:"column:brand_name"`
	CategoryName string  `gorm:"column:category_name"`
}

// orderRow 是购买记录查询的扫描目标。
type orderRow struct {
	UserID    int64 `gorm:"column:user_id"`
	ProductID int64 `gorm:"column:product_id"`
}

const (
	catalogQuery = `
		SELECT p.product_id, p.product_name, p.base_price, p.description,
		       COALESCE(b.brand_name, '') AS brand_name,
		       COALESCE(c.category_name, '') AS category_name
		FROM products p
		LEFT JOIN brands b ON p.brand_id = b.brand_id
		LEFT JOIN categories c ON p.category_id = c.category_id
		WHERE p.is_active = 1`

	interactionQuery = `
		SELECT u.id AS user_id, oi.product_id
		FROM users u
		JOIN customers c ON u.id = c.user_id
		JOIN orders o ON c.customer_id = o.customer_id
		JOIN order_items oi ON o.order_id = oi.order_id`

	purchasedQuery = interactionQuery + `
		WHERE u.id = ?`
)

// Source 基于 GORM 实现 core.DataSource。
type Source struct {
	db *gorm.DB
}

var _ core.DataSource = (*Source)(nil)

// Open 建立 MySQL 连接并返回数据源。连接按 1 小时回收，避免被
// 服务端的 wait_timeout 掐断长连接。
func Open(dsn string) (*Source, error) {
	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)
	return &Source{db: gdb}, nil
}

// NewSource 包装一个已建立的 GORM 连接（测试时可注入 sqlmock）。
func NewSource(gdb *gorm.DB) *Source {
	return &Source{db: gdb}
}

// FetchActiveCatalog 返回全部在售商品。
func (s *Source) FetchActiveCatalog(ctx context.Context) ([]core.Product, error) {
	var rows []productRow
	if err := s.db.WithContext(ctx).Raw(catalogQuery).Scan(&rows).Error; err != nil {
		return nil, unavailable("catalog", err)
	}
	products := make([]core.Product, 0, len(rows))
	for _, r := range rows {
		products = append(products, core.Product{
			ID:          fmt.Sprintf("%d", r.ProductID),
			Name:        r.ProductName,
			Price:       r.BasePrice,
			Description: r.Description,
			Brand:       r.BrandName,
			Category:    r.CategoryName,
		})
	}
	return products, nil
}

// FetchAllInteractions 返回全量历史购买订单行。
func (s *Source) FetchAllInteractions(ctx context.Context) ([]core.InteractionRecord, error) {
	var rows []orderRow
	if err := s.db.WithContext(ctx).Raw(interactionQuery).Scan(&rows).Error; err != nil {
		return nil, unavailable("interactions", err)
	}
	records := make([]core.InteractionRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, core.InteractionRecord{
			UserID:    fmt.Sprintf("%d", r.UserID),
			ProductID: fmt.Sprintf("%d", r.ProductID),
		})
	}
	return records, nil
}

// FetchUserPurchases 返回某用户当前已购商品 ID 集合。
func (s *Source) FetchUserPurchases(ctx context.Context, userID string) (map[string]struct{}, error) {
	var rows []orderRow
	if err := s.db.WithContext(ctx).Raw(purchasedQuery, userID).Scan(&rows).Error; err != nil {
		return nil, unavailable("purchases", err)
	}
	purchased := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		purchased[fmt.Sprintf("%d", r.ProductID)] = struct{}{}
	}
	return purchased, nil
}

// Close 关闭底层连接池。
func (s *Source) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func unavailable(op string, err error) error {
	return core.NewDomainError(core.ModuleDataSource, core.ErrorCodeUnavailable,
		fmt.Sprintf("datasource: %s query failed: %v", op, err))
}
