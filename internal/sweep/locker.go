package sweep

import (
	"context"
	"errors"
	"time"
)

// ErrLockHeld is returned by Locker.TryLock when another holder owns the lease.
var ErrLockHeld = errors.New("sweep lock is held by another instance")

// UnlockFunc releases a lease.
type UnlockFunc func(ctx context.Context) error

// Locker grants a time-bounded exclusive lease on key.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}

// LocalLocker always grants the lease. It is used when only one instance runs.
type LocalLocker struct{}

// TryLock implements Locker.
func (LocalLocker) TryLock(context.Context, string, time.Duration) (UnlockFunc, error) {
	return func(context.Context) error { return nil }, nil
}
