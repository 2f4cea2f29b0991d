package auth

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	radix "github.com/mediocregopher/radix/v3"
)

// TokenCache 缓存 JWT 的解析结果，省掉商城接口逐请求的签名校验开销。
// redis 不可用时一律走慢路径重新解析，只影响性能不影响正确性
type TokenCache struct {
	redis radix.Client
	ring  *ShardRing
	ttl   time.Duration
}

// NewTokenCache 构建缓存器
func NewTokenCache(redis radix.Client, ring *ShardRing, ttl time.Duration) *TokenCache {
	if ring == nil {
		ring = NewShardRing(nil, 0)
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &TokenCache{
		redis: redis,
		ring:  ring,
		ttl:   ttl,
	}
}

// 键里只放令牌摘要，原始令牌不进 redis
func (c *TokenCache) cacheKey(token string) string {
	sum := sha1.Sum([]byte(token))
	return fmt.Sprintf("lifestore:auth:jwt:%s:%s", c.ring.Pick(token), hex.EncodeToString(sum[:]))
}

// Get 尝试命中缓存的 claims，未命中返回 (nil, false, nil)
func (c *TokenCache) Get(ctx context.Context, token string) (*Claims, bool, error) {
	if c.redis == nil {
		return nil, false, nil
	}
	key := c.cacheKey(token)
	var raw string
	if err := c.redis.Do(radix.Cmd(&raw, "GET", key)); err != nil {
		return nil, false, err
	}
	if raw == "" {
		return nil, false, nil
	}
	var claims Claims
	if err := json.Unmarshal([]byte(raw), &claims); err != nil {
		// 数据损坏就清掉，让调用方重新解析回填
		_ = c.redis.Do(radix.Cmd(nil, "DEL", key))
		return nil, false, nil
	}
	return &claims, true, nil
}

// Set 回填解析结果，带 TTL 防止被吊销的令牌长期有效
func (c *TokenCache) Set(ctx context.Context, token string, claims *Claims) error {
	if c.redis == nil || claims == nil {
		return nil
	}
	body, err := json.Marshal(claims)
	if err != nil {
		return err
	}
	return c.redis.Do(radix.FlatCmd(nil, "SETEX", c.cacheKey(token), int64(c.ttl/time.Second), body))
}
