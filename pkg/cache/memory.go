package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memoryEntry struct {
	data     []byte
	expireAt time.Time
}

// MemoryCache 进程内 TTL 缓存，未配置 Redis 时使用
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory 创建进程内缓存
func NewMemory() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// GetJSON 实现 Cache，过期条目在读取时清除
func (m *MemoryCache) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if !e.expireAt.IsZero() && !m.now().Before(e.expireAt) {
		m.mu.Lock()
		if cur, ok := m.entries[key]; ok && cur.expireAt.Equal(e.expireAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return false, nil
	}
	return true, json.Unmarshal(e.data, dest)
}

// SetJSON 实现 Cache
func (m *MemoryCache) SetJSON(_ context.Context, key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	e := memoryEntry{data: data}
	if expiration > 0 {
		e.expireAt = m.now().Add(expiration)
	}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

// Delete 实现 Cache
func (m *MemoryCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	m.mu.Unlock()
	return nil
}

// Len 当前条目数（包含尚未清除的过期条目）
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close 实现 Cache
func (m *MemoryCache) Close() error {
	return nil
}
