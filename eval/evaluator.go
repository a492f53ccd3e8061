// Package eval 实现离线排序质量评估：precision@k、NDCG@k、MAP。
// 评估只是诊断输出，不在在线服务路径上，也绝不允许让训练失败。
package eval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/rankit/core"
	"github.com/rushteam/rankit/dataset"
)

// topK 是评估所用的预测列表长度（取模型预测的前 10 个物品）。
const topK = 10

// Report 是一次评估的汇总结果（所有指标按评估用户平均）。
type Report struct {
	UsersEvaluated int

	Precision1  float64
	Precision5  float64
	Precision10 float64

	NDCG1  float64
	NDCG5  float64
	NDCG10 float64

	MAP float64
}

// String 把报告格式化为单行，便于日志输出。
func (r *Report) String() string {
	return fmt.Sprintf(
		"users=%d p@1=%.4f p@5=%.4f p@10=%.4f ndcg@1=%.4f ndcg@5=%.4f ndcg@10=%.4f map=%.4f",
		r.UsersEvaluated, r.Precision1, r.Precision5, r.Precision10,
		r.NDCG1, r.NDCG5, r.NDCG10, r.MAP)
}

// Evaluator 用训练数据本身对隐因子模型做离线质量检查。
//
// 对每个有交互且有隐向量的用户：
//  1. 二值化相关性：交互权重严格大于 Threshold 的物品视为相关
//  2. 用排序引擎同款打分路径（点积 + 零下限）取模型预测的 Top-10 物品
//  3. 对比预测排序与相关物品集合，计算各项指标
type Evaluator struct {
	// Threshold 相关性阈值；权重严格大于该值才算相关（默认 0：有浏览即相关）
	Threshold int

	// MaxConcurrent 并发评估的最大用户数（0 或负值表示无限制）
	MaxConcurrent int

	// Logger 为空时不输出日志
	Logger *zap.Logger
}

func (e *Evaluator) logger() *zap.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return zap.NewNop()
}

// Evaluate 计算评估报告。指标计算的任何问题只记日志、不上抛：
// 评估失败不能波及训练结果。
func (e *Evaluator) Evaluate(ctx context.Context, model *core.Model, inters *dataset.Interactions) *Report {
	report := &Report{}
	if model == nil || model.Rank <= 0 || inters == nil || inters.Len() == 0 {
		e.logger().Warn("evaluation skipped: nil model or empty interactions")
		return report
	}

	// 预测候选集：所有有隐向量的物品，下标升序保证确定性
	itemIdx := make([]int, 0, len(model.ItemFactors))
	for i := range model.ItemFactors {
		itemIdx = append(itemIdx, i)
	}
	sort.Ints(itemIdx)

	userIdx := make([]int, 0, len(inters.ByUser()))
	for u := range inters.ByUser() {
		userIdx = append(userIdx, u)
	}
	sort.Ints(userIdx)

	// 评估从不失败：非法的并发上限按"无限制"处理，而不是 panic 或报错
	maxConcurrent := e.MaxConcurrent
	if maxConcurrent < 0 {
		maxConcurrent = 0
	}

	var mu sync.Mutex
	eg, _ := errgroup.WithContext(ctx)
	sem := make(chan struct{}, maxConcurrent)

	for _, u := range userIdx {
		user := u
		eg.Go(func() error {
			if maxConcurrent > 0 {
				sem <- struct{}{}
				defer func() { <-sem }()
			}

			m, ok := e.evaluateUser(model, inters.ByUser()[user], user, itemIdx)
			if !ok {
				return nil
			}

			mu.Lock()
			report.UsersEvaluated++
			report.Precision1 += m.precision[0]
			report.Precision5 += m.precision[1]
			report.Precision10 += m.precision[2]
			report.NDCG1 += m.ndcg[0]
			report.NDCG5 += m.ndcg[1]
			report.NDCG10 += m.ndcg[2]
			report.MAP += m.ap
			mu.Unlock()
			return nil
		})
	}
	// evaluateUser 从不返回错误，Wait 只用于 fan-in
	_ = eg.Wait()

	if report.UsersEvaluated > 0 {
		n := float64(report.UsersEvaluated)
		report.Precision1 /= n
		report.Precision5 /= n
		report.Precision10 /= n
		report.NDCG1 /= n
		report.NDCG5 /= n
		report.NDCG10 /= n
		report.MAP /= n
	}

	e.logger().Info("model evaluation finished", zap.String("report", report.String()))
	return report
}

type userMetrics struct {
	precision [3]float64 // @1, @5, @10
	ndcg      [3]float64 // @1, @5, @10
	ap        float64
}

// evaluateUser 计算单个用户的指标。用户无隐向量或无相关物品时返回 ok=false。
func (e *Evaluator) evaluateUser(
	model *core.Model,
	rated []dataset.Rated,
	user int,
	itemIdx []int,
) (userMetrics, bool) {
	userVector, ok := model.UserFactors[user]
	if !ok {
		return userMetrics{}, false
	}

	relevant := make(map[int]struct{})
	for _, r := range rated {
		if r.Weight > e.Threshold {
			relevant[r.Index] = struct{}{}
		}
	}
	if len(relevant) == 0 {
		return userMetrics{}, false
	}

	// 排序引擎同款打分路径：点积 + 零下限；
	// 稳定排序下同分按物品下标升序，保证评估可复现
	type scored struct {
		item  int
		score float64
	}
	preds := make([]scored, 0, len(itemIdx))
	for _, i := range itemIdx {
		s := dot(userVector, model.ItemFactors[i])
		if s < 0 {
			s = 0
		}
		preds = append(preds, scored{item: i, score: s})
	}
	sort.SliceStable(preds, func(a, b int) bool {
		return preds[a].score > preds[b].score
	})
	if len(preds) > topK {
		preds = preds[:topK]
	}

	hits := make([]bool, len(preds))
	for i, p := range preds {
		_, hits[i] = relevant[p.item]
	}

	var m userMetrics
	for pos, k := range [3]int{1, 5, 10} {
		m.precision[pos] = precisionAt(hits, k)
		m.ndcg[pos] = ndcgAt(hits, len(relevant), k)
	}
	m.ap = averagePrecision(hits, len(relevant))
	return m, true
}

// precisionAt 计算 precision@k：前 k 个预测中相关物品的占比。
func precisionAt(hits []bool, k int) float64 {
	if k <= 0 {
		return 0
	}
	count := 0
	for i := 0; i < k && i < len(hits); i++ {
		if hits[i] {
			count++
		}
	}
	return float64(count) / float64(k)
}

// ndcgAt 计算二值相关性下的 NDCG@k。
func ndcgAt(hits []bool, numRelevant, k int) float64 {
	var dcg float64
	for i := 0; i < k && i < len(hits); i++ {
		if hits[i] {
			dcg += 1 / math.Log2(float64(i)+2)
		}
	}

	ideal := numRelevant
	if ideal > k {
		ideal = k
	}
	var idcg float64
	for i := 0; i < ideal; i++ {
		idcg += 1 / math.Log2(float64(i)+2)
	}
	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

// averagePrecision 计算截断到预测列表长度的平均精度（MAP 的单用户项）。
func averagePrecision(hits []bool, numRelevant int) float64 {
	var sum float64
	count := 0
	for i, hit := range hits {
		if hit {
			count++
			sum += float64(count) / float64(i+1)
		}
	}
	denom := numRelevant
	if denom > len(hits) {
		denom = len(hits)
	}
	if denom == 0 {
		return 0
	}
	return sum / float64(denom)
}

func dot(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
