// Package rank 实现在线排序引擎：用训练好的隐因子模型为查询中的候选物品打分排序。
package rank

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/rushteam/rankit/core"
	"github.com/rushteam/rankit/filter"
)

// AttrFunc 提供候选物品的目录属性（供过滤器读取），找不到时返回 nil。
type AttrFunc func(itemID string) map[string]any

// Engine 是排序引擎。
//
// 核心思想：预测分数 = 用户隐向量 · 物品隐向量（离线训练，在线查表点积）。
//
// 引擎对 Model 和 Query 只读不写；Model 是不可变快照，
// 多个查询可以并发复用同一个 Engine 实例，无需加锁。
//
// 回退路径（均为正常契约而非异常）：
//   - 用户未知或没有隐向量：按输入原始顺序、全 0 分返回，IsOriginal=true
//   - 候选物品全部无法打分：同上
type Engine struct {
	// TopN 截断真实排序结果的长度（<= 0 表示不截断）；回退输出从不截断
	TopN int

	// Filters 打分前依次应用的候选过滤器（可选）
	Filters []filter.Filter

	// Logger 为空时不输出日志
	Logger *zap.Logger
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return zap.NewNop()
}

// Score 为查询中的候选物品打分并排序。
//
// 打分规则：
//   - 候选经组合查找（ID → 下标 → 隐向量）解析；任一级缺失即视为"无分"
//   - 有分候选：score = max(0, u·v)，负亲和度不与零亲和度区分
//   - 无分候选：输出分数记 0，但不参与"全部无分"的回退判定，
//     除非候选集整体都无分
//   - 按分数稳定降序排列，同分保持输入相对顺序（保证确定性）
func (e *Engine) Score(
	ctx context.Context,
	model *core.Model,
	query *core.Query,
	attrs AttrFunc,
) (*core.PredictedResult, error) {
	if model == nil {
		return nil, core.NewDomainError(core.ModuleRank, core.ErrorCodeInvalidInput, "rank: nil model")
	}
	if query == nil {
		return nil, core.NewDomainError(core.ModuleRank, core.ErrorCodeInvalidInput, "rank: nil query")
	}

	candidates := query.Items
	if len(e.Filters) > 0 {
		candidates = e.applyFilters(ctx, candidates, attrs)
	}
	if len(candidates) == 0 {
		// 候选被过滤殆尽：这是过滤的真实结果，不是打分回退
		return &core.PredictedResult{ItemScores: []core.ItemScore{}, IsOriginal: false}, nil
	}

	userVector, ok := model.UserVector(query.User)
	if !ok {
		e.logger().Info("rank fallback: unknown or cold-start user, echo original order",
			zap.String("user", query.User),
			zap.Int("candidates", len(candidates)))
		return originalOrder(candidates), nil
	}

	scores := make([]float64, len(candidates))
	anyKnown := false
	for i, id := range candidates {
		itemVector, ok := model.ItemVector(id)
		if !ok {
			// 无分：输出记 0，与"打分恰好为 0"语义不同
			continue
		}
		anyKnown = true
		if s := dotProduct(userVector, itemVector); s > 0 {
			scores[i] = s
		}
	}

	if !anyKnown {
		e.logger().Info("rank fallback: no scorable candidate items, echo original order",
			zap.String("user", query.User),
			zap.Int("candidates", len(candidates)))
		return originalOrder(candidates), nil
	}

	ranked := make([]core.ItemScore, len(candidates))
	for i, id := range candidates {
		ranked[i] = core.ItemScore{Item: id, Score: scores[i]}
	}
	// 稳定排序：同分保持输入相对顺序
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if e.TopN > 0 && len(ranked) > e.TopN {
		ranked = ranked[:e.TopN]
	}

	return &core.PredictedResult{ItemScores: ranked, IsOriginal: false}, nil
}

// applyFilters 依次应用过滤器。过滤器出错时 fail-open：保留候选并记录日志。
func (e *Engine) applyFilters(ctx context.Context, items []string, attrs AttrFunc) []string {
	out := make([]string, 0, len(items))
	for _, id := range items {
		c := filter.Candidate{ID: id}
		if attrs != nil {
			c.Attrs = attrs(id)
		}
		keep := true
		for _, f := range e.Filters {
			drop, err := f.ShouldFilter(ctx, c)
			if err != nil {
				e.logger().Warn("candidate filter failed, keeping candidate",
					zap.String("filter", f.Name()),
					zap.String("item", id),
					zap.Error(err))
				continue
			}
			if drop {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, id)
		}
	}
	return out
}

// originalOrder 构造回退输出：按输入顺序、全 0 分。
func originalOrder(items []string) *core.PredictedResult {
	scores := make([]core.ItemScore, len(items))
	for i, id := range items {
		scores[i] = core.ItemScore{Item: id, Score: 0}
	}
	return &core.PredictedResult{ItemScores: scores, IsOriginal: true}
}

// dotProduct 计算两个向量的点积
func dotProduct(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
