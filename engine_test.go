package rankit

import (
	"context"
	"testing"

	"github.com/rushteam/rankit/config"
	"github.com/rushteam/rankit/core"
	"github.com/rushteam/rankit/store"
)

func testConfig() *config.Config {
	seed := int64(42)
	cfg := config.Default()
	cfg.Train.Rank = 2
	cfg.Train.NumIterations = 10
	cfg.Train.Lambda = 0.1
	cfg.Train.Seed = &seed
	return cfg
}

func testData() *core.PreparedData {
	return &core.PreparedData{
		Users: []core.User{{ID: "u1"}, {ID: "u2"}, {ID: "u3"}},
		Items: []core.Item{
			{ID: "i1", Attrs: map[string]any{"category": "book"}},
			{ID: "i2", Attrs: map[string]any{"category": "book"}},
			{ID: "i3", Attrs: map[string]any{"category": "toy"}},
		},
		ViewEvents: []core.ViewEvent{
			{UserID: "u1", ItemID: "i1"},
			{UserID: "u1", ItemID: "i1"},
			{UserID: "u1", ItemID: "i2"},
			{UserID: "u2", ItemID: "i1"},
			{UserID: "u2", ItemID: "i2"},
			{UserID: "u3", ItemID: "i3"},
		},
	}
}

func TestEngine_TrainAndPredict(t *testing.T) {
	e, err := New(testConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := e.Predict(context.Background(), &core.Query{User: "u1", Items: []string{"i1"}}); err == nil {
		t.Fatal("Predict() before training should fail")
	}

	if err := e.Train(context.Background(), testData()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	got, err := e.Predict(context.Background(), &core.Query{
		User:  "u1",
		Items: []string{"i3", "i2", "i1"},
	})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if got.IsOriginal {
		t.Error("IsOriginal = true, want genuine ranking for a trained user")
	}
	if len(got.ItemScores) != 3 {
		t.Fatalf("ItemScores length = %d, want 3", len(got.ItemScores))
	}

	// 未知用户走回退：原始顺序 + 全 0 分
	got, err = e.Predict(context.Background(), &core.Query{
		User:  "stranger",
		Items: []string{"i2", "i1"},
	})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if !got.IsOriginal {
		t.Error("IsOriginal = false, want fallback for unknown user")
	}
	if got.ItemScores[0].Item != "i2" || got.ItemScores[1].Item != "i1" {
		t.Errorf("fallback order = %v, want input order", got.ItemScores)
	}
}

func TestEngine_TrainRejectsFatalInput(t *testing.T) {
	e, err := New(testConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = e.Train(context.Background(), &core.PreparedData{})
	if err == nil {
		t.Fatal("Train() should fail on empty data")
	}
	if !core.IsInvalidInput(err) {
		t.Errorf("error = %v, want INVALID_INPUT domain error", err)
	}
	if e.Model() != nil {
		t.Error("failed training must not publish a model")
	}
}

func TestEngine_RetrainSwapsModelAtomically(t *testing.T) {
	e, err := New(testConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := e.Train(context.Background(), testData()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	first := e.Model()

	if err := e.Train(context.Background(), testData()); err != nil {
		t.Fatalf("retrain error = %v", err)
	}
	second := e.Model()

	if first == second {
		t.Error("retraining should publish a fresh model snapshot")
	}
	if second == nil || second.Rank != 2 {
		t.Errorf("published model = %+v, want rank 2", second)
	}
}

func TestEngine_ExprFilterFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Serve.ItemExpr = `item.attrs.category == "book"`

	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := e.Train(context.Background(), testData()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	got, err := e.Predict(context.Background(), &core.Query{
		User:  "u1",
		Items: []string{"i1", "i3", "i2"},
	})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	for _, s := range got.ItemScores {
		if s.Item == "i3" {
			t.Error("i3 (category toy) should have been filtered out")
		}
	}
	if len(got.ItemScores) != 2 {
		t.Errorf("ItemScores length = %d, want 2", len(got.ItemScores))
	}
}

func TestEngine_InvalidExprRejectedAtConstruction(t *testing.T) {
	cfg := testConfig()
	cfg.Serve.ItemExpr = "item.id =="

	if _, err := New(cfg); err == nil {
		t.Fatal("New() should reject an invalid filter expression")
	}
}

func TestEngine_ModelPersistence(t *testing.T) {
	ms := store.NewMemoryStore()
	defer ms.Close()
	models := store.NewModelStore(ms, "rankit-test")

	e, err := New(testConfig(), WithModelStore(models))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := e.Train(context.Background(), testData()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	// 新实例从存储加载模型后即可服务
	fresh, err := New(testConfig(), WithModelStore(models))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := fresh.LoadModel(context.Background()); err != nil {
		t.Fatalf("LoadModel() error = %v", err)
	}

	got, err := fresh.Predict(context.Background(), &core.Query{User: "u1", Items: []string{"i2", "i1"}})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if got.IsOriginal {
		t.Error("IsOriginal = true, want genuine ranking from the loaded model")
	}
}
