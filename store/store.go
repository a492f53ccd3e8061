package store

import "github.com/rushteam/rankit/core"

// 接口定义在 core 包（core.Store）；此包只包含实现。

// ErrNotFound 是 core.ErrStoreNotFound 的包内别名。
var ErrNotFound = core.ErrStoreNotFound

var (
	_ core.Store = (*MemoryStore)(nil)
	_ core.Store = (*RedisStore)(nil)
)
