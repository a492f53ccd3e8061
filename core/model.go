package core

// Model 是一次训练产出的隐因子模型快照。
//
// 设计要点：
//   - 训练完成后不可变；排序与评估并发读取同一快照，无需加锁
//   - UserFactors/ItemFactors 以稠密下标为键；零交互的冷启动用户/物品
//     没有因子向量（键缺失），这是正常情况而非错误
//   - 所有因子向量长度恰好等于 Rank
//   - 可 JSON 序列化；具体的持久化机制是外部协作方的职责（见 store 包）
type Model struct {
	Rank        int               `json:"rank"`
	UserFactors map[int][]float64 `json:"user_factors"`
	ItemFactors map[int][]float64 `json:"item_factors"`
	Users       *Index            `json:"users"`
	Items       *Index            `json:"items"`
}

// UserVector 是组合查找：ID → 下标 → 用户隐向量。
// 两级缺失（未知 ID / 无因子向量）折叠为同一个 ok=false 结果，
// 避免调用方处理嵌套的"可能缺失"。
func (m *Model) UserVector(id string) ([]float64, bool) {
	if m == nil {
		return nil, false
	}
	idx, ok := m.Users.Lookup(id)
	if !ok {
		return nil, false
	}
	vec, ok := m.UserFactors[idx]
	return vec, ok
}

// ItemVector 是组合查找：ID → 下标 → 物品隐向量。
func (m *Model) ItemVector(id string) ([]float64, bool) {
	if m == nil {
		return nil, false
	}
	idx, ok := m.Items.Lookup(id)
	if !ok {
		return nil, false
	}
	vec, ok := m.ItemFactors[idx]
	return vec, ok
}
