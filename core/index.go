package core

import "encoding/json"

// Index 是字符串 ID 与稠密整型下标之间的双向映射。
//
// 设计要点：
//   - 下标从 0 开始、连续、稠密，在训练期一次性构建，构建后不可变
//   - 编号顺序不是契约的一部分，唯一的不变量是双向查找可往返：
//     ReverseLookup(Lookup(id)) == id
//   - 查找失败返回 ok=false，从不报错；是否把"缺失"当作错误由调用方决定
//   - Index 是 Model 的一部分，随模型一起序列化
type Index struct {
	toIndex map[string]int
	toID    []string
}

// BuildIndex 从 ID 列表构建双向映射。
// 重复 ID 只分配一次下标（按首次出现顺序编号）。
func BuildIndex(ids []string) *Index {
	x := &Index{
		toIndex: make(map[string]int, len(ids)),
		toID:    make([]string, 0, len(ids)),
	}
	for _, id := range ids {
		if _, ok := x.toIndex[id]; ok {
			continue
		}
		x.toIndex[id] = len(x.toID)
		x.toID = append(x.toID, id)
	}
	return x
}

// Lookup 由 ID 查下标。未知 ID 返回 (0, false)。
func (x *Index) Lookup(id string) (int, bool) {
	if x == nil {
		return 0, false
	}
	i, ok := x.toIndex[id]
	return i, ok
}

// ReverseLookup 由下标查 ID。越界返回 ("", false)。
func (x *Index) ReverseLookup(i int) (string, bool) {
	if x == nil || i < 0 || i >= len(x.toID) {
		return "", false
	}
	return x.toID[i], true
}

// Len 返回映射中的 ID 数量。
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.toID)
}

// MarshalJSON 将 Index 序列化为按下标排列的 ID 数组。
func (x *Index) MarshalJSON() ([]byte, error) {
	if x == nil {
		return []byte("null"), nil
	}
	return json.Marshal(x.toID)
}

// UnmarshalJSON 从 ID 数组重建双向映射。
func (x *Index) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	rebuilt := BuildIndex(ids)
	x.toIndex = rebuilt.toIndex
	x.toID = rebuilt.toID
	return nil
}
