package recovery

import (
	"context"
	"fmt"
)

// HookPoint identifies when a hook fires during recovery.
type HookPoint string

const (
	PreRecovery     HookPoint = "pre_recovery"
	PostRecovery    HookPoint = "post_recovery"
	RecoverySuccess HookPoint = "recovery_success"
	RecoveryFailure HookPoint = "recovery_failure"
)

// HookEvent is passed to hooks. Outcome is nil for PreRecovery.
type HookEvent struct {
	Point          HookPoint
	Err            error
	Classification Classification
	Context        Context
	Outcome        *Outcome
}

// Hook observes recovery. Returned errors and panics are logged and ignored.
type Hook func(ctx context.Context, ev HookEvent) error

// AddHook registers a hook for a point.
func (m *Manager) AddHook(point HookPoint, h Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks[point] = append(m.hooks[point], h)
}

func (m *Manager) fire(ctx context.Context, ev HookEvent) {
	m.mu.Lock()
	hooks := append([]Hook(nil), m.hooks[ev.Point]...)
	m.mu.Unlock()

	for i, h := range hooks {
		if err := m.safeCall(ctx, h, ev); err != nil {
			m.log.Warn("Recovery hook failed", "point", ev.Point, "hook", i, "error", err)
		}
	}
}

func (m *Manager) safeCall(ctx context.Context, h Hook, ev HookEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook panicked: %v", r)
		}
	}()
	return h(ctx, ev)
}
