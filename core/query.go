package core

// Query 是一次在线排序请求：为指定用户对候选物品列表打分排序。
// Items 是有序候选集，可以包含模型不认识的 ID。
type Query struct {
	User  string   `json:"user"`
	Items []string `json:"items"`
}

// ItemScore 是单个候选物品的打分结果。
type ItemScore struct {
	Item  string  `json:"item"`
	Score float64 `json:"score"`
}

// PredictedResult 是排序引擎的输出。
//
// IsOriginal 用于区分两种结果：
//   - false：真实排序（按预测分数降序）
//   - true：回退输出（按输入的原始顺序、全 0 分返回，
//     出现在未知用户/冷启动用户/候选全部未知等退化场景）
//
// 调用方依据该标志决定是否套用自己的默认排序逻辑。
type PredictedResult struct {
	ItemScores []ItemScore `json:"itemScores"`
	IsOriginal bool        `json:"isOriginal"`
}
