// Package rankit 是一个隐式反馈商品排序引擎（Ranking Kit）。
//
// 设计要点：
// - 离线训练、在线查表：ALS 矩阵分解产出隐因子模型，排序只做点积
// - 模型即快照：训练完成后整体原子发布，读方永远看到完整模型
// - 回退即契约：未知用户/候选全未知时按原始顺序回显，IsOriginal 标记可判别
package rankit

import "github.com/rushteam/rankit/core"

// 轻量 facade：便于用户直接 import "rankit" 使用核心抽象。
type PreparedData = core.PreparedData
type Query = core.Query
type PredictedResult = core.PredictedResult
type ItemScore = core.ItemScore
type Model = core.Model
