// Package dsl 基于 CEL (Common Expression Language) 提供商品规则表达式。
// 用于把"价格超过预算的不推"这类运营约束做成配置而不是代码。
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
	celEnvErr  error
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("product", cel.DynType),
			cel.Variable("user_id", cel.StringType),
		)
	})
	return celEnv, celEnvErr
}

// Rule 是一条编译后的商品规则，可被多个请求并发复用。
//
// 表达式语法（CEL 标准语法），可用变量：
//   - product: {id, name, price, brand, category}
//   - user_id: 当前请求用户
//
// 示例：
//   - `product.price > 5000.0` → 过滤高价商品
//   - `product.brand == "Acme" && product.price < 100.0`
type Rule struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式。空表达式返回 nil 规则（表示不启用）。
func Compile(expr string) (*Rule, error) {
	if expr == "" {
		return nil, nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", expr, err)
	}
	return &Rule{expr: expr, prg: prg}, nil
}

// Expr 返回规则的原始表达式（用于日志）。
func (r *Rule) Expr() string { return r.expr }

// Evaluate 对单个商品求值，返回布尔结果。
// 表达式结果不是布尔时视为错误。
func (r *Rule) Evaluate(product map[string]any, userID string) (bool, error) {
	out, _, err := r.prg.Eval(map[string]any{
		"product": product,
		"user_id": userID,
	})
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", r.expr, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression %q must return boolean, got %T", r.expr, out.Value())
	}
	return result, nil
}
