package core

import "context"

// DataSource 是引擎对关系型数据层的两类只读契约：
//
//   - 训练期：FetchActiveCatalog + FetchAllInteractions（全量拉取，失败则训练失败）
//   - 服务期：FetchUserPurchases（逐请求实时拉取，失败降级为空集合）
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（db）实现
//   - 领域层不感知 SQL/表结构，只消费这三个读操作
type DataSource interface {
	// FetchActiveCatalog 返回当前全部 is_active 商品。
	FetchActiveCatalog(ctx context.Context) ([]Product, error)

	// FetchAllInteractions 返回全量历史购买订单行（仅训练期使用）。
	FetchAllInteractions(ctx context.Context) ([]InteractionRecord, error)

	// FetchUserPurchases 返回某用户当前已购商品 ID 集合（仅服务期使用）。
	FetchUserPurchases(ctx context.Context, userID string) (map[string]struct{}, error)
}

// DataSource 错误定义（使用统一的 DomainError）
var (
	// ErrDataSourceUnavailable 表示目录/订单查询失败
	ErrDataSourceUnavailable = NewDomainError(ModuleDataSource, ErrorCodeUnavailable, "datasource: query failed")
)
