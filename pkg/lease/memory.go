package lease

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker 单进程实现，测试与单实例部署使用
type MemoryLocker struct {
	mu     sync.Mutex
	held   map[string]memoryHold
	nextID uint64
}

type memoryHold struct {
	id      uint64
	expires time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]memoryHold)}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (func(), error) {
	var id uint64
	err := acquireLoop(ctx, wait, func() (bool, error) {
		l.mu.Lock()
		defer l.mu.Unlock()
		now := time.Now()
		if h, ok := l.held[key]; ok && now.Before(h.expires) {
			return false, nil
		}
		l.nextID++
		id = l.nextID
		l.held[key] = memoryHold{id: id, expires: now.Add(ttl)}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if h, ok := l.held[key]; ok && h.id == id {
				delete(l.held, key)
			}
		})
	}, nil
}
