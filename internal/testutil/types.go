package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Common test errors
var (
	ErrTest        = errors.New("test error")
	ErrConstructor = errors.New("constructor error")
	ErrDisposal    = errors.New("disposal error")
)

// TestService is a basic test service with a unique id.
type TestService struct {
	ID   string
	Data string
}

// NewTestService creates a new test service.
func NewTestService() *TestService {
	return &TestService{ID: uuid.NewString(), Data: "test"}
}

// TestLogger is a test logger interface
type TestLogger interface {
	Log(msg string)
	Logs() []string
}

// TestLoggerImpl implements TestLogger.
type TestLoggerImpl struct {
	mu   sync.Mutex
	logs []string
}

func NewTestLogger() *TestLoggerImpl {
	return &TestLoggerImpl{}
}

func (l *TestLoggerImpl) Log(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, msg)
}

func (l *TestLoggerImpl) Logs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.logs...)
}

// Counter counts invocations. It is safe for concurrent use.
type Counter struct {
	n atomic.Int64
}

// Inc increments the counter and returns the new value.
func (c *Counter) Inc() int64 {
	return c.n.Add(1)
}

// Value returns the current count.
func (c *Counter) Value() int64 {
	return c.n.Load()
}

// TestDisposable records whether it was closed.
type TestDisposable struct {
	Name     string
	CloseErr error

	closed atomic.Bool
	order  *DisposalOrder
}

// NewTestDisposable creates a disposable that appends its name to order
// when closed. order may be nil.
func NewTestDisposable(name string, order *DisposalOrder) *TestDisposable {
	return &TestDisposable{Name: name, order: order}
}

func (d *TestDisposable) Close() error {
	d.closed.Store(true)
	if d.order != nil {
		d.order.Add(d.Name)
	}
	return d.CloseErr
}

// IsClosed reports whether Close was called.
func (d *TestDisposable) IsClosed() bool {
	return d.closed.Load()
}

// TestContextDisposable implements the context-aware close.
type TestContextDisposable struct {
	closed atomic.Bool
}

func (d *TestContextDisposable) Close(ctx context.Context) error {
	d.closed.Store(true)
	return ctx.Err()
}

// IsClosed reports whether Close was called.
func (d *TestContextDisposable) IsClosed() bool {
	return d.closed.Load()
}

// DisposalOrder records the names of closed disposables.
type DisposalOrder struct {
	mu    sync.Mutex
	names []string
}

func (o *DisposalOrder) Add(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.names = append(o.names, name)
}

func (o *DisposalOrder) Names() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.names...)
}
