package store

import (
	"context"
	"fmt"
	"time"

	"floor-data/internal/apperr"
	"floor-data/internal/domain"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ScopeLocker 跨进程串行化同一作用域的布局激活
// 正确性仍由存储事务保证，这里只是多实例部署时的额外保护
type ScopeLocker interface {
	Lock(ctx context.Context, scope domain.LayoutScope) (unlock func(), err error)
}

// NopScopeLocker Redis 未启用时使用
type NopScopeLocker struct{}

func (NopScopeLocker) Lock(ctx context.Context, scope domain.LayoutScope) (func(), error) {
	return func() {}, nil
}

const (
	scopeLockPrefix   = "floor:layout-activation:"
	scopeLockInterval = 25 * time.Millisecond
)

// 只删除自己持有的锁
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisScopeLocker SET NX PX + 比较删除
type RedisScopeLocker struct {
	c   *redis.Client
	ttl time.Duration
}

func NewRedisScopeLocker(c *redis.Client, ttl time.Duration) *RedisScopeLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &RedisScopeLocker{c: c, ttl: ttl}
}

// ScopeLockKey floor:layout-activation:<room_id|global>
func ScopeLockKey(scope domain.LayoutScope) string {
	if scope.IsGlobal() {
		return scopeLockPrefix + domain.GlobalScope
	}
	return scopeLockPrefix + scope.RoomID.String
}

// Lock 轮询直到获取锁或 ctx 结束
func (l *RedisScopeLocker) Lock(ctx context.Context, scope domain.LayoutScope) (func(), error) {
	key := ScopeLockKey(scope)
	token := uuid.NewString()

	ticker := time.NewTicker(scopeLockInterval)
	defer ticker.Stop()
	for {
		ok, err := l.c.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, l.busy(scope, ctx.Err())
			}
			return nil, apperr.Persistence(fmt.Sprintf("failed to acquire scope lock %s", key), err)
		}
		if ok {
			return func() {
				// 使用独立 context：调用方 ctx 可能已取消
				unlockCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				unlockScript.Run(unlockCtx, l.c, []string{key}, token)
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, l.busy(scope, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *RedisScopeLocker) busy(scope domain.LayoutScope, cause error) error {
	return &apperr.Error{
		Type:    apperr.TypeConflict,
		Message: fmt.Sprintf("layout scope %s is locked by another activation", scope.Key()),
		Cause:   cause,
	}
}
