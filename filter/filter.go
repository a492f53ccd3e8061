// Package filter 提供排序前的候选过滤：在打分之前剔除不符合约束的候选物品。
package filter

import "context"

// Candidate 是过滤阶段看到的候选物品：ID 加上目录中的不透明属性。
// 属性不参与打分，只供过滤规则读取。
type Candidate struct {
	ID    string
	Attrs map[string]any
}

// Filter 是过滤器的抽象接口，用于判断一个候选是否应该被过滤掉。
// 返回 true 表示应该过滤（移除），false 表示保留。
// 返回 error 时由调用方决定放行策略（排序引擎采用 fail-open：保留并记录日志）。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断候选是否应该被过滤
	ShouldFilter(ctx context.Context, c Candidate) (bool, error)
}
