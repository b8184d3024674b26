package stratum

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Disposable is implemented by services that hold resources. A cached
// instance implementing it is closed when the scope that owns it ends:
// the provider for singletons, the goroutine scope for thread-scoped
// services and the task scope for task-scoped services.
//
// Example:
//
//	type DatabaseConnection struct {
//	    conn *sql.DB
//	}
//
//	func (dc *DatabaseConnection) Close() error {
//	    return dc.conn.Close()
//	}
type Disposable interface {
	Close() error
}

// DisposableWithContext allows disposal with context for graceful shutdown.
type DisposableWithContext interface {
	Close(ctx context.Context) error
}

// lifecycleManager tracks the disposable instances of one scope instance.
// Once disposed it is closed for good: instances that finish building
// afterwards are refused.
type lifecycleManager struct {
	mu          sync.Mutex
	enabled     bool
	closed      bool
	closedErr   func(Key) error
	disposables []trackedInstance
}

type trackedInstance struct {
	key      Key
	instance any
}

// newLifecycleManager creates a lifecycle manager. A disabled manager tracks
// nothing. closedErr builds the error for instances refused after disposal;
// nil means ErrProviderClosed.
func newLifecycleManager(enabled bool, closedErr func(Key) error) *lifecycleManager {
	if closedErr == nil {
		closedErr = func(Key) error { return ErrProviderClosed }
	}

	return &lifecycleManager{enabled: enabled, closedErr: closedErr}
}

// track records instance if it can be disposed. After dispose has run the
// instance is refused: it is closed right away and track returns the
// manager's closed error, so the caller must not cache it.
func (m *lifecycleManager) track(ctx context.Context, key Key, instance any) error {
	m.mu.Lock()
	if !m.closed {
		if m.enabled && isDisposable(instance) {
			m.disposables = append(m.disposables, trackedInstance{key: key, instance: instance})
		}
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	err := m.closedErr(key)
	if !m.enabled {
		return err
	}

	if closeErr := closeInstance(ctx, instance); closeErr != nil {
		return errors.Join(err, fmt.Errorf("%s: %w", key.Name(), closeErr))
	}

	return err
}

func isDisposable(instance any) bool {
	switch instance.(type) {
	case DisposableWithContext, Disposable:
		return true
	default:
		return false
	}
}

func closeInstance(ctx context.Context, instance any) error {
	switch d := instance.(type) {
	case DisposableWithContext:
		return d.Close(ctx)
	case Disposable:
		return d.Close()
	default:
		return nil
	}
}

// dispose closes the manager and all tracked instances, in reverse
// creation order.
func (m *lifecycleManager) dispose(ctx context.Context, owner string) error {
	m.mu.Lock()
	m.closed = true
	disposables := m.disposables
	m.disposables = nil
	m.mu.Unlock()

	var errs []error

	for i := len(disposables) - 1; i >= 0; i-- {
		tracked := disposables[i]

		if err := closeInstance(ctx, tracked.instance); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", tracked.key.Name(), err))
		}
	}

	if len(errs) > 0 {
		return &DisposalError{Context: owner, Errors: errs}
	}

	return nil
}

// len returns the number of tracked instances.
func (m *lifecycleManager) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.disposables)
}
