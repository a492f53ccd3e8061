package core

// User 是训练输入中的用户实体。
// Attrs 对核心算法完全不透明：排序只依赖交互行为，不依赖用户画像。
type User struct {
	ID    string         `json:"id"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Item 是训练输入中的物品实体。
// Attrs 对打分不透明，但可被候选过滤器（filter 包）读取。
type Item struct {
	ID    string         `json:"id"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// ViewEvent 是一条原始浏览事件（隐式反馈信号）。
// 同一 (user, item) 的重复浏览会在聚合阶段累加为权重。
type ViewEvent struct {
	UserID string `json:"user_id"`
	ItemID string `json:"item_id"`
}

// PreparedData 是外部数据准备阶段提供给核心的训练输入。
// 事件采集、存储、导入工具均为外部协作方，核心只消费这一结构。
type PreparedData struct {
	Users      []User      `json:"users"`
	Items      []Item      `json:"items"`
	ViewEvents []ViewEvent `json:"view_events"`
}

// Validate 校验训练输入的前置条件。
// 空的用户集、物品集或事件流都是致命配置错误：模型无从学习。
// 注意与"单条事件引用了未知 ID"区分——后者是可恢复的逐条丢弃。
func (d *PreparedData) Validate() error {
	if d == nil {
		return NewDomainError(ModuleData, ErrorCodeInvalidInput, "data: prepared data is nil")
	}
	if len(d.Users) == 0 {
		return NewDomainError(ModuleData, ErrorCodeInvalidInput, "data: empty user set")
	}
	if len(d.Items) == 0 {
		return NewDomainError(ModuleData, ErrorCodeInvalidInput, "data: empty item set")
	}
	if len(d.ViewEvents) == 0 {
		return NewDomainError(ModuleData, ErrorCodeInvalidInput, "data: empty view event stream")
	}
	return nil
}
