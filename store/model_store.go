package store

import (
	"context"
	"encoding/json"

	"github.com/rushteam/rankit/core"
)

// ModelStore 是基于 core.Store 接口的模型持久化适配器。
// Model（rank、双侧因子矩阵、双向 ID 映射）编码为 JSON 存入单个 key；
// 具体后端（内存/Redis/其他）由注入的 Store 决定。
type ModelStore struct {
	store core.Store

	// KeyPrefix 是存储 key 的前缀，模型存放在 {KeyPrefix}:model:{name}
	KeyPrefix string
}

// NewModelStore 创建一个基于 core.Store 的模型持久化适配器。
func NewModelStore(s core.Store, keyPrefix string) *ModelStore {
	if keyPrefix == "" {
		keyPrefix = "rankit"
	}
	return &ModelStore{
		store:     s,
		KeyPrefix: keyPrefix,
	}
}

func (a *ModelStore) key(name string) string {
	return a.KeyPrefix + ":model:" + name
}

// Save 序列化并写入模型。
func (a *ModelStore) Save(ctx context.Context, name string, m *core.Model) error {
	if m == nil {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "store: nil model")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, a.key(name), data)
}

// Load 读取并反序列化模型。模型不存在时返回 core.ErrStoreNotFound。
func (a *ModelStore) Load(ctx context.Context, name string) (*core.Model, error) {
	data, err := a.store.Get(ctx, a.key(name))
	if err != nil {
		return nil, err
	}

	var m core.Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Delete 删除已持久化的模型。
func (a *ModelStore) Delete(ctx context.Context, name string) error {
	return a.store.Delete(ctx, a.key(name))
}
