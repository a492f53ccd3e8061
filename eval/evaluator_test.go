package eval

import (
	"context"
	"math"
	"testing"

	"github.com/rushteam/rankit/core"
	"github.com/rushteam/rankit/dataset"
)

func evalData(t *testing.T) (*core.Model, *dataset.Interactions) {
	t.Helper()
	agg := &dataset.Aggregator{}
	users, items, inters, err := agg.Aggregate(&core.PreparedData{
		Users: []core.User{{ID: "u1"}},
		Items: []core.Item{{ID: "i1"}, {ID: "i2"}, {ID: "i3"}},
		ViewEvents: []core.ViewEvent{
			{UserID: "u1", ItemID: "i1"},
			{UserID: "u1", ItemID: "i1"},
		},
	})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	// 手工因子：u1 与 i1 完全对齐，其余物品正交
	model := &core.Model{
		Rank: 2,
		UserFactors: map[int][]float64{
			0: {1, 0},
		},
		ItemFactors: map[int][]float64{
			0: {1, 0},
			1: {0, 1},
			2: {0, 0.5},
		},
		Users: users,
		Items: items,
	}
	return model, inters
}

func approx(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

func TestEvaluator_PerfectModel(t *testing.T) {
	model, inters := evalData(t)
	report := (&Evaluator{}).Evaluate(context.Background(), model, inters)

	if report.UsersEvaluated != 1 {
		t.Fatalf("UsersEvaluated = %d, want 1", report.UsersEvaluated)
	}
	// 唯一的相关物品 i1 排在第 1 位
	if !approx(report.Precision1, 1) {
		t.Errorf("Precision1 = %v, want 1", report.Precision1)
	}
	if !approx(report.Precision5, 0.2) {
		t.Errorf("Precision5 = %v, want 0.2", report.Precision5)
	}
	if !approx(report.Precision10, 0.1) {
		t.Errorf("Precision10 = %v, want 0.1", report.Precision10)
	}
	if !approx(report.NDCG1, 1) || !approx(report.NDCG5, 1) || !approx(report.NDCG10, 1) {
		t.Errorf("NDCG = %v/%v/%v, want 1/1/1", report.NDCG1, report.NDCG5, report.NDCG10)
	}
	if !approx(report.MAP, 1) {
		t.Errorf("MAP = %v, want 1", report.MAP)
	}
}

func TestEvaluator_ThresholdExcludesWeakInteractions(t *testing.T) {
	model, inters := evalData(t)
	// 权重 2 不严格大于阈值 2：没有相关物品，用户被跳过
	report := (&Evaluator{Threshold: 2}).Evaluate(context.Background(), model, inters)
	if report.UsersEvaluated != 0 {
		t.Errorf("UsersEvaluated = %d, want 0", report.UsersEvaluated)
	}
}

func TestEvaluator_NeverFails(t *testing.T) {
	tests := []struct {
		name   string
		model  *core.Model
		inters *dataset.Interactions
	}{
		{name: "nil model", model: nil, inters: nil},
		{name: "empty model", model: &core.Model{}, inters: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := (&Evaluator{}).Evaluate(context.Background(), tt.model, tt.inters)
			if report == nil {
				t.Fatal("Evaluate() must always return a report")
			}
			if report.UsersEvaluated != 0 {
				t.Errorf("UsersEvaluated = %d, want 0", report.UsersEvaluated)
			}
		})
	}
}

func TestEvaluator_NegativeMaxConcurrentTreatedAsUnlimited(t *testing.T) {
	model, inters := evalData(t)
	report := (&Evaluator{MaxConcurrent: -1}).Evaluate(context.Background(), model, inters)
	if report.UsersEvaluated != 1 {
		t.Fatalf("UsersEvaluated = %d, want 1", report.UsersEvaluated)
	}
	if !approx(report.Precision1, 1) {
		t.Errorf("Precision1 = %v, want 1", report.Precision1)
	}
}

func TestEvaluator_Deterministic(t *testing.T) {
	model, inters := evalData(t)
	e := &Evaluator{MaxConcurrent: 2}

	first := e.Evaluate(context.Background(), model, inters)
	for i := 0; i < 5; i++ {
		again := e.Evaluate(context.Background(), model, inters)
		if *again != *first {
			t.Fatalf("run %d differs: %+v vs %+v", i, again, first)
		}
	}
}
