package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheItem[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache LRU 本地缓存，条目带过期时间。
type TTLCache[K comparable, V any] struct {
	lru *lru.Cache[K, cacheItem[V]]
	ttl time.Duration
	now func() time.Time
}

// NewTTLCache creates a cache holding at most size entries for ttl each.
func NewTTLCache[K comparable, V any](size int, ttl time.Duration) (*TTLCache[K, V], error) {
	l, err := lru.New[K, cacheItem[V]](size)
	if err != nil {
		return nil, err
	}
	return &TTLCache[K, V]{lru: l, ttl: ttl, now: time.Now}, nil
}

// Set 写入缓存
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.lru.Add(key, cacheItem[V]{value: value, expiresAt: c.now().Add(c.ttl)})
}

// Get 获取缓存，不存在或已过期时 ok 为 false
func (c *TTLCache[K, V]) Get(key K) (value V, ok bool) {
	item, found := c.lru.Get(key)
	if !found {
		return value, false
	}
	if c.now().After(item.expiresAt) {
		c.lru.Remove(key)
		return value, false
	}
	return item.value, true
}

// Delete 删除指定缓存
func (c *TTLCache[K, V]) Delete(key K) {
	c.lru.Remove(key)
}

// Len returns the number of entries, expired ones included.
func (c *TTLCache[K, V]) Len() int {
	return c.lru.Len()
}
