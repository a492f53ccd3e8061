// Package dataset 将原始浏览事件聚合为可供 ALS 训练使用的稀疏交互集合。
package dataset

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/rushteam/rankit/core"
)

// Interaction 是聚合后的一条用户-物品交互记录。
// Weight 是该 (user, item) 对去重累加后的浏览次数，恒为正整数。
type Interaction struct {
	UserIndex int `json:"user_index"`
	ItemIndex int `json:"item_index"`
	Weight    int `json:"weight"`
}

// Rated 是分组视图中的一条记录：对侧实体的下标及其权重。
// 按用户分组时 Index 是物品下标；按物品分组时 Index 是用户下标。
type Rated struct {
	Index  int
	Weight int
}

// Interactions 是稀疏交互集合，同时维护按用户/按物品的分组视图，
// 供 ALS 按行求解时直接取用（相当于按行/按列的压缩稀疏存储）。
// 构建完成后不可变。
type Interactions struct {
	list   []Interaction
	byUser map[int][]Rated
	byItem map[int][]Rated
}

// List 返回聚合后的交互列表（按事件首次出现顺序）。
func (s *Interactions) List() []Interaction { return s.list }

// Len 返回聚合后的交互条数。
func (s *Interactions) Len() int { return len(s.list) }

// ByUser 返回按用户下标分组的交互视图。
func (s *Interactions) ByUser() map[int][]Rated { return s.byUser }

// ByItem 返回按物品下标分组的交互视图。
func (s *Interactions) ByItem() map[int][]Rated { return s.byItem }

// Aggregator 把原始浏览事件转换为稀疏交互集合。
//
// 处理规则：
//   - 事件中的 ID 经 Index 解析；任一侧解析失败则丢弃该事件
//     （记录日志但不中断——脏事件流是常态，单条坏事件不能让训练失败）
//   - 存活事件按 (userIndex, itemIndex) 分组，权重累加
//     （重复浏览是信号强化：同一对出现两次权重为 2）
//   - 聚合结果为空是致命配置错误，与逐条丢弃的可恢复情况严格区分
type Aggregator struct {
	// Logger 为空时不输出日志
	Logger *zap.Logger
}

func (a *Aggregator) logger() *zap.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return zap.NewNop()
}

// Aggregate 校验输入、构建用户/物品双向映射并聚合事件。
// 返回的两个 Index 与交互集合一起构成训练的全部输入。
func (a *Aggregator) Aggregate(data *core.PreparedData) (*core.Index, *core.Index, *Interactions, error) {
	if err := data.Validate(); err != nil {
		return nil, nil, nil, err
	}

	userIDs := make([]string, 0, len(data.Users))
	for _, u := range data.Users {
		userIDs = append(userIDs, u.ID)
	}
	itemIDs := make([]string, 0, len(data.Items))
	for _, it := range data.Items {
		itemIDs = append(itemIDs, it.ID)
	}
	users := core.BuildIndex(userIDs)
	items := core.BuildIndex(itemIDs)

	type pair struct{ u, i int }
	weights := make(map[pair]int)
	order := make([]pair, 0, len(data.ViewEvents))
	dropped := 0

	for _, ev := range data.ViewEvents {
		uIdx, ok := users.Lookup(ev.UserID)
		if !ok {
			dropped++
			a.logger().Debug("drop view event: unknown user",
				zap.String("user_id", ev.UserID),
				zap.String("item_id", ev.ItemID))
			continue
		}
		iIdx, ok := items.Lookup(ev.ItemID)
		if !ok {
			dropped++
			a.logger().Debug("drop view event: unknown item",
				zap.String("user_id", ev.UserID),
				zap.String("item_id", ev.ItemID))
			continue
		}
		p := pair{u: uIdx, i: iIdx}
		if _, ok := weights[p]; !ok {
			order = append(order, p)
		}
		weights[p]++
	}

	if dropped > 0 {
		a.logger().Info("dropped view events with unresolved ids",
			zap.Int("dropped", dropped),
			zap.Int("total", len(data.ViewEvents)))
	}

	if len(order) == 0 {
		return nil, nil, nil, core.NewDomainError(core.ModuleData, core.ErrorCodeInvalidInput,
			fmt.Sprintf("data: no resolvable view events (%d events, all dropped)", len(data.ViewEvents)))
	}

	inters := &Interactions{
		list:   make([]Interaction, 0, len(order)),
		byUser: make(map[int][]Rated),
		byItem: make(map[int][]Rated),
	}
	for _, p := range order {
		w := weights[p]
		inters.list = append(inters.list, Interaction{UserIndex: p.u, ItemIndex: p.i, Weight: w})
		inters.byUser[p.u] = append(inters.byUser[p.u], Rated{Index: p.i, Weight: w})
		inters.byItem[p.i] = append(inters.byItem[p.i], Rated{Index: p.u, Weight: w})
	}

	a.logger().Info("aggregated view events",
		zap.Int("interactions", len(inters.list)),
		zap.Int("users", len(inters.byUser)),
		zap.Int("items", len(inters.byItem)))

	return users, items, inters, nil
}
