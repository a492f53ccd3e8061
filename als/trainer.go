// Package als 实现隐式反馈矩阵分解的交替最小二乘训练器
// （Hu-Koren-Volinsky implicit-feedback ALS）。
package als

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/rankit/core"
	"github.com/rushteam/rankit/dataset"
)

// Params 是 ALS 训练参数。
//
// 损失函数（隐式反馈形式）：
//
//	Σ c_ui·(p_ui − u_u·v_i)² + λ·(Σ‖u_u‖² + Σ‖v_i‖²)
//
// 其中置信度 c_ui = 1 + α·r_ui，偏好指示 p_ui = 1 当且仅当 r_ui > 0。
type Params struct {
	// Rank 隐向量维度，必须为正
	Rank int

	// NumIterations 迭代轮数，必须为正；固定轮数终止，不做收敛性早退
	NumIterations int

	// Lambda 正则化权重，非负；取 0 时正规方程可能奇异（见 solveSPD）
	Lambda float64

	// Alpha 置信度缩放系数；0 值时取默认 1.0
	Alpha float64

	// Seed 随机种子；为 nil 时取时钟种子，此时两次训练结果不可复现
	Seed *int64

	// MaxConcurrent 单个阶段内并发求解的最大行数，非负（0 表示无限制）
	MaxConcurrent int
}

// Validate 校验训练参数，非法参数是致命配置错误。
func (p Params) Validate() error {
	if p.Rank <= 0 {
		return core.NewDomainError(core.ModuleTrain, core.ErrorCodeInvalidInput,
			fmt.Sprintf("als: rank must be positive, got %d", p.Rank))
	}
	if p.NumIterations <= 0 {
		return core.NewDomainError(core.ModuleTrain, core.ErrorCodeInvalidInput,
			fmt.Sprintf("als: numIterations must be positive, got %d", p.NumIterations))
	}
	if p.Lambda < 0 {
		return core.NewDomainError(core.ModuleTrain, core.ErrorCodeInvalidInput,
			fmt.Sprintf("als: lambda must be non-negative, got %v", p.Lambda))
	}
	if p.MaxConcurrent < 0 {
		return core.NewDomainError(core.ModuleTrain, core.ErrorCodeInvalidInput,
			fmt.Sprintf("als: maxConcurrent must be non-negative, got %d", p.MaxConcurrent))
	}
	return nil
}

func (p Params) alpha() float64 {
	if p.Alpha == 0 {
		return 1.0
	}
	return p.Alpha
}

func (p Params) seed() int64 {
	if p.Seed != nil {
		return *p.Seed
	}
	return time.Now().UnixNano()
}

// Trainer 从稀疏交互集合训练隐因子模型。
type Trainer struct {
	Params Params

	// Logger 为空时不输出日志
	Logger *zap.Logger
}

func (t *Trainer) logger() *zap.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return zap.NewNop()
}

// Train 执行固定轮数的交替最小二乘：
// 每轮先固定物品矩阵逐行重解所有用户向量，再固定用户矩阵逐行重解所有物品向量。
// 同一阶段内的行更新相互独立、并发求解；两个阶段之间严格串行，
// 轮与轮之间不重叠。只有出现过交互的用户/物品才会获得因子向量。
func (t *Trainer) Train(
	ctx context.Context,
	users, items *core.Index,
	inters *dataset.Interactions,
) (*core.Model, error) {
	if err := t.Params.Validate(); err != nil {
		return nil, err
	}
	if inters == nil || inters.Len() == 0 {
		return nil, core.NewDomainError(core.ModuleTrain, core.ErrorCodeInvalidInput,
			"als: empty interaction list")
	}

	rank := t.Params.Rank
	seed := t.Params.seed()
	rng := rand.New(rand.NewSource(seed))

	byUser := inters.ByUser()
	byItem := inters.ByItem()
	userIdx := sortedKeys(byUser)
	itemIdx := sortedKeys(byItem)

	// 初始化：小随机值。初始化顺序固定（按下标升序），保证同种子可复现。
	userFactors := make(map[int][]float64, len(userIdx))
	for _, u := range userIdx {
		userFactors[u] = randomVector(rng, rank)
	}
	itemFactors := make(map[int][]float64, len(itemIdx))
	for _, i := range itemIdx {
		itemFactors[i] = randomVector(rng, rank)
	}

	t.logger().Info("als training started",
		zap.Int("rank", rank),
		zap.Int("iterations", t.Params.NumIterations),
		zap.Float64("lambda", t.Params.Lambda),
		zap.Float64("alpha", t.Params.alpha()),
		zap.Int64("seed", seed),
		zap.Int("users", len(userIdx)),
		zap.Int("items", len(itemIdx)),
		zap.Int("interactions", inters.Len()))

	start := time.Now()
	for it := 0; it < t.Params.NumIterations; it++ {
		// 用户阶段：固定 V，逐行重解 U
		next, err := t.solvePhase(ctx, userIdx, byUser, itemFactors, itemIdx)
		if err != nil {
			return nil, err
		}
		userFactors = next

		// 物品阶段：必须看到完整更新后的用户矩阵
		next, err = t.solvePhase(ctx, itemIdx, byItem, userFactors, userIdx)
		if err != nil {
			return nil, err
		}
		itemFactors = next

		t.logger().Info("als iteration finished",
			zap.Int("iteration", it+1),
			zap.Duration("elapsed", time.Since(start)))
	}

	return &core.Model{
		Rank:        rank,
		UserFactors: userFactors,
		ItemFactors: itemFactors,
		Users:       users,
		Items:       items,
	}, nil
}

// solvePhase 固定一侧因子矩阵，并发重解另一侧的全部行。
// 行与行之间相互独立，fan-out/fan-in 聚合结果；
// fixedIdx 给出固定侧的遍历顺序，保证 YᵗY 的浮点累加顺序确定。
func (t *Trainer) solvePhase(
	ctx context.Context,
	rows []int,
	interactions map[int][]dataset.Rated,
	fixed map[int][]float64,
	fixedIdx []int,
) (map[int][]float64, error) {
	rank := t.Params.Rank
	lambda := t.Params.Lambda
	alpha := t.Params.alpha()

	// 预计算 YᵗY + λI，所有行共享
	gram := make([][]float64, rank)
	for i := range gram {
		gram[i] = make([]float64, rank)
		gram[i][i] = lambda
	}
	for _, idx := range fixedIdx {
		y := fixed[idx]
		for i := 0; i < rank; i++ {
			for j := 0; j < rank; j++ {
				gram[i][j] += y[i] * y[j]
			}
		}
	}

	var mu sync.Mutex
	out := make(map[int][]float64, len(rows))
	eg, _ := errgroup.WithContext(ctx)

	// 限流：使用 semaphore 控制并发数
	sem := make(chan struct{}, t.Params.MaxConcurrent)

	for _, row := range rows {
		r := row
		eg.Go(func() error {
			if t.Params.MaxConcurrent > 0 {
				sem <- struct{}{}
				defer func() { <-sem }()
			}

			// A = YᵗY + λI + Σ (c−1)·y·yᵗ，b = Σ c·y
			a := make([][]float64, rank)
			for i := range a {
				a[i] = make([]float64, rank)
				copy(a[i], gram[i])
			}
			b := make([]float64, rank)

			for _, rated := range interactions[r] {
				y, ok := fixed[rated.Index]
				if !ok {
					continue
				}
				c := 1 + alpha*float64(rated.Weight)
				for i := 0; i < rank; i++ {
					for j := 0; j < rank; j++ {
						a[i][j] += (c - 1) * y[i] * y[j]
					}
					b[i] += c * y[i]
				}
			}

			x, err := solveSPD(a, b)
			if err != nil {
				return err
			}

			mu.Lock()
			out[r] = x
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func randomVector(rng *rand.Rand, rank int) []float64 {
	v := make([]float64, rank)
	for i := range v {
		v[i] = (rng.Float64() - 0.5) * 0.01
	}
	return v
}

func sortedKeys(m map[int][]dataset.Rated) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
