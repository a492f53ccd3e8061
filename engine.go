package rankit

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/rushteam/rankit/als"
	"github.com/rushteam/rankit/config"
	"github.com/rushteam/rankit/core"
	"github.com/rushteam/rankit/dataset"
	"github.com/rushteam/rankit/eval"
	"github.com/rushteam/rankit/filter"
	"github.com/rushteam/rankit/rank"
	"github.com/rushteam/rankit/store"
)

// snapshot 是一次训练的完整产物：模型加上候选过滤所需的物品属性目录。
// 整体原子替换，读方不会看到"半个模型"。
type snapshot struct {
	model *core.Model
	attrs map[string]map[string]any
}

// Engine 把训练与在线排序组装成一个可直接使用的服务对象。
//
// 数据流：PreparedData → 聚合 → ALS 训练 → 离线评估（仅日志）→ 原子发布。
// Predict 读取当前快照并委托排序引擎，多个查询可并发执行。
type Engine struct {
	cfg    *config.Config
	logger *zap.Logger
	models *store.ModelStore
	ranker *rank.Engine

	snap atomic.Pointer[snapshot]
}

// Option 配置 Engine 的可选项。
type Option func(*Engine)

// WithLogger 注入日志器（缺省为 zap.NewNop()）。
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithModelStore 注入模型持久化适配器；训练成功后模型会写入该存储。
func WithModelStore(ms *store.ModelStore) Option {
	return func(e *Engine) { e.models = ms }
}

// New 创建 Engine。配置非法（致命配置错误）时立即失败。
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	var filters []filter.Filter
	if len(cfg.Serve.Blacklist) > 0 {
		filters = append(filters, filter.NewBlacklistFilter(cfg.Serve.Blacklist, nil, ""))
	}
	if cfg.Serve.ItemExpr != "" {
		f, err := filter.NewExprFilter(cfg.Serve.ItemExpr)
		if err != nil {
			return nil, core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput,
				"config: invalid serve.item_expr: "+err.Error())
		}
		filters = append(filters, f)
	}

	e.ranker = &rank.Engine{
		TopN:    cfg.Serve.TopN,
		Filters: filters,
		Logger:  e.logger,
	}
	return e, nil
}

// Train 执行一次完整训练并原子发布新模型。
// 任何致命错误都在发布前返回：失败的训练不会产生"半个模型"，
// 旧快照（如果有）继续服务。
func (e *Engine) Train(ctx context.Context, data *core.PreparedData) error {
	agg := &dataset.Aggregator{Logger: e.logger}
	users, items, inters, err := agg.Aggregate(data)
	if err != nil {
		return err
	}

	trainer := &als.Trainer{
		Params: als.Params{
			Rank:          e.cfg.Train.Rank,
			NumIterations: e.cfg.Train.NumIterations,
			Lambda:        e.cfg.Train.Lambda,
			Alpha:         e.cfg.Train.Alpha,
			Seed:          e.cfg.Train.Seed,
			MaxConcurrent: e.cfg.Train.MaxConcurrent,
		},
		Logger: e.logger,
	}
	model, err := trainer.Train(ctx, users, items, inters)
	if err != nil {
		return err
	}

	// 离线评估：只产出诊断日志，失败不影响训练结果
	evaluator := &eval.Evaluator{
		Threshold:     e.cfg.Train.EvalThreshold,
		MaxConcurrent: e.cfg.Train.MaxConcurrent,
		Logger:        e.logger,
	}
	evaluator.Evaluate(ctx, model, inters)

	attrs := make(map[string]map[string]any, len(data.Items))
	for _, it := range data.Items {
		if it.Attrs != nil {
			attrs[it.ID] = it.Attrs
		}
	}

	e.snap.Store(&snapshot{model: model, attrs: attrs})
	e.logger.Info("model published",
		zap.Int("rank", model.Rank),
		zap.Int("user_factors", len(model.UserFactors)),
		zap.Int("item_factors", len(model.ItemFactors)))

	if e.models != nil {
		if err := e.models.Save(ctx, "current", model); err != nil {
			// 新模型已在本实例生效，持久化失败由调用方决定是否重试
			e.logger.Error("model persistence failed", zap.Error(err))
			return err
		}
	}
	return nil
}

// Predict 用当前模型为查询打分排序。尚未训练（或加载）过模型时返回错误。
func (e *Engine) Predict(ctx context.Context, query *core.Query) (*core.PredictedResult, error) {
	snap := e.snap.Load()
	if snap == nil {
		return nil, core.NewDomainError(core.ModuleRank, core.ErrorCodeNotFound, "rank: no trained model")
	}
	return e.ranker.Score(ctx, snap.model, query, func(itemID string) map[string]any {
		return snap.attrs[itemID]
	})
}

// Model 返回当前发布的模型快照（未训练时为 nil）。只读。
func (e *Engine) Model() *core.Model {
	snap := e.snap.Load()
	if snap == nil {
		return nil
	}
	return snap.model
}

// LoadModel 从持久化存储加载模型并原子发布（用于服务实例冷启动）。
// 注意：持久化的模型不含物品属性目录，基于属性的过滤规则在
// 下一次 Train 之前对加载的模型不生效。
func (e *Engine) LoadModel(ctx context.Context) error {
	if e.models == nil {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeNotSupported, "store: no model store configured")
	}
	model, err := e.models.Load(ctx, "current")
	if err != nil {
		return err
	}
	e.snap.Store(&snapshot{model: model, attrs: map[string]map[string]any{}})
	e.logger.Info("model loaded from store", zap.Int("rank", model.Rank))
	return nil
}
