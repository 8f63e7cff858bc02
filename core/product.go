package core

// Product 是推荐链路中的商品主数据：训练与打分只面对 is_active 的闭集，
// 每个训练周期内目录不可变（快照化），避免线上打分时目录漂移。
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"` // 非负，单位由业务定义
	Description string  `json:"description,omitempty"`
	Brand       string  `json:"brand"`
	Category    string  `json:"category"`
}

// Document 返回用于内容向量化的拼接文本：name + brand + category + description。
// 顺序固定，保证同一商品在不同训练周期得到相同的语料。
func (p Product) Document() string {
	return p.Name + " " + p.Brand + " " + p.Category + " " + p.Description
}

// InteractionRecord 是一条隐式反馈：某用户的一次购买行为（订单行）。
// 允许重复出现；重复不改变权重（固定隐式信号，不做频次加权）。
type InteractionRecord struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
}

// ImplicitAffinity 是购买行为在交互矩阵中的固定亲和值。
// 隐式反馈只有"买过/没买过"两种状态，不做显式评分。
const ImplicitAffinity = 5.0

// Recommendation 是对外返回的单条推荐结果。
// Score 已按约定四舍五入到 4 位小数；仅用于展示与解释，排序发生在内部。
type Recommendation struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Brand string  `json:"brand"`
	Score float64 `json:"score"`
}
