package filter

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
)

// ExprFilter 是基于 CEL (Common Expression Language) 的规则过滤器。
// CEL 是 Google 开发的表达式语言，具有类型安全、高性能、线程安全等特性。
//
// 表达式对候选物品求值，结果为 true 时保留候选、false 时剔除。
//
// 表达式语法（CEL 标准语法）：
//   - 基础：item.id != "sku-1"
//   - 属性：item.attrs.category == "book"
//   - 逻辑：item.attrs.category == "book" && item.attrs.in_stock == true
//   - 存在性：item.attrs.category != null
//   - 包含：item.id.contains("promo")
//
// 注意：CEL 访问不存在的 key 会报错，用户应该使用 item.attrs.key != null
// 来检查存在性，而不是直接访问。
type ExprFilter struct {
	expr string
	prg  cel.Program
}

// NewExprFilter 编译表达式并创建过滤器。
// 表达式只编译一次，Program 线程安全，可被并发的排序请求复用。
func NewExprFilter(expr string) (*ExprFilter, error) {
	env, err := cel.NewEnv(
		cel.Variable("item", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %v", issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}

	return &ExprFilter{expr: expr, prg: prg}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

func (f *ExprFilter) ShouldFilter(_ context.Context, c Candidate) (bool, error) {
	attrs := c.Attrs
	if attrs == nil {
		attrs = map[string]any{}
	}

	out, _, err := f.prg.Eval(map[string]interface{}{
		"item": map[string]interface{}{
			"id":    c.ID,
			"attrs": attrs,
		},
	})
	if err != nil {
		return false, fmt.Errorf("eval error: %v", err)
	}

	keep, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}

	// 表达式为 true 表示保留，取反即为"是否过滤"
	return !keep, nil
}
