// Package lease 提供按键互斥的短期租约，用于串行化同一学生计划的变更。
package lease

import (
	"context"
	"errors"
	"time"
)

// ErrHeld 租约已被其他持有者占用且在等待时间内未释放
var ErrHeld = errors.New("lease held by another holder")

// Locker 获取键上的独占租约，返回的 release 可重复调用
type Locker interface {
	Acquire(ctx context.Context, key string, ttl, wait time.Duration) (release func(), err error)
}

const pollInterval = 25 * time.Millisecond

// acquireLoop 在 wait 时间内反复尝试 try，超时返回 ErrHeld
func acquireLoop(ctx context.Context, wait time.Duration, try func() (bool, error)) error {
	deadline := time.Now().Add(wait)
	for {
		ok, err := try()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return ErrHeld
		}
		timer := time.NewTimer(pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
