// Package lock provides the single-flight restore lock. Acquisition is
// test-and-set: a second caller is rejected immediately, never queued.
package lock

import (
	"context"
	"sync/atomic"
)

// Locker guards restores. TryAcquire is not re-entrant: a holder calling it
// again gets false.
type Locker interface {
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
	Held(ctx context.Context) (bool, error)
}

// Memory is a process-local Locker. It only serializes restores within one
// process; replicas need PostgresLease.
type Memory struct {
	held atomic.Bool
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) TryAcquire(context.Context) (bool, error) {
	return m.held.CompareAndSwap(false, true), nil
}

func (m *Memory) Release(context.Context) error {
	m.held.Store(false)
	return nil
}

func (m *Memory) Held(context.Context) (bool, error) {
	return m.held.Load(), nil
}
