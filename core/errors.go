package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX），调用方据此做可用性/一致性取舍
//
// 错误策略（按模块）：
//   - datasource/UNAVAILABLE：训练期向上传播（宁可没有模型，不要错的模型）；
//     服务期的已购集合查询降级为空集合继续推荐
//   - snapshot/NOT_FOUND、snapshot/CORRUPT：透明回退到同步全量训练
//   - model/INSUFFICIENT_DATA：跳过矩阵分解，走纯内容打分，不算失败
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "CORRUPT"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "snapshot", "datasource"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*DomainError); ok {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound         = "NOT_FOUND"          // 资源不存在
	ErrorCodeUnavailable      = "UNAVAILABLE"        // 数据源/服务不可用
	ErrorCodeCorrupt          = "CORRUPT"            // 持久化快照损坏或版本不符
	ErrorCodeInsufficientData = "INSUFFICIENT_DATA"  // 数据量不足以训练
	ErrorCodeInvalidInput     = "INVALID_INPUT"      // 输入无效
	ErrorCodeNotSupported     = "NOT_SUPPORTED"      // 操作不支持
)

// 模块名称常量
const (
	ModuleStore      = "store"      // 底层 KV 存储
	ModuleSnapshot   = "snapshot"   // 模型快照
	ModuleDataSource = "datasource" // 目录/订单数据源
	ModuleModel      = "model"      // 分解/内容模型
)

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeUnavailable
	}
	return false
}

// IsCorrupt 检查错误是否为 CORRUPT
func IsCorrupt(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeCorrupt
	}
	return false
}

// IsInsufficientData 检查错误是否为 INSUFFICIENT_DATA
func IsInsufficientData(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeInsufficientData
	}
	return false
}
