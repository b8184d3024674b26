package stratum

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// taskScopeKey is the context key under which the active task scope lives.
type taskScopeKey struct{}

// taskScope holds the task-scoped instances of one logical task. Every
// goroutine resolving with a context derived from the one returned by
// EnterTaskScope shares it.
type taskScope struct {
	id        uuid.UUID
	lifecycle *lifecycleManager

	mu        sync.Mutex
	closed    bool
	producers map[*scopeEntry]*producer
}

func newTaskScope(disposal bool) *taskScope {
	return &taskScope{
		id:        uuid.New(),
		lifecycle: newLifecycleManager(disposal, func(key Key) error {
			return &ScopeContextMissingError{Key: key, Cause: ErrTaskScopeClosed}
		}),
		producers: make(map[*scopeEntry]*producer),
	}
}

// producer returns the producer for entry in this task. It fails once the
// task scope has exited.
func (t *taskScope) producer(entry *scopeEntry) (*producer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, &ScopeContextMissingError{Key: entry.key, Cause: ErrTaskScopeClosed}
	}

	p, ok := t.producers[entry]
	if !ok {
		p = &producer{}
		t.producers[entry] = p
	}

	return p, nil
}

// exit closes the task scope and disposes its instances. Only the first
// call does anything.
func (t *taskScope) exit(ctx context.Context) (bool, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return false, nil
	}
	t.closed = true
	t.producers = nil
	t.mu.Unlock()

	return true, t.lifecycle.dispose(ctx, "task scope")
}

func (t *taskScope) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// taskScopeFrom returns the innermost task scope carried by ctx.
func taskScopeFrom(ctx context.Context) (*taskScope, bool) {
	if ctx == nil {
		return nil, false
	}

	ts, ok := ctx.Value(taskScopeKey{}).(*taskScope)
	return ts, ok && ts != nil
}

// activeTaskScope returns the task scope for resolving key under ctx.
func activeTaskScope(ctx context.Context, key Key) (*taskScope, error) {
	ts, ok := taskScopeFrom(ctx)
	if !ok {
		return nil, &ScopeContextMissingError{Key: key}
	}

	if ts.isClosed() {
		return nil, &ScopeContextMissingError{Key: key, Cause: ErrTaskScopeClosed}
	}

	return ts, nil
}

// TaskScopeID returns the id of the innermost task scope carried by ctx.
func TaskScopeID(ctx context.Context) (uuid.UUID, bool) {
	ts, ok := taskScopeFrom(ctx)
	if !ok {
		return uuid.Nil, false
	}

	return ts.id, true
}

// EnterTaskScope starts a task scope. Task-scoped services resolved with the
// returned context, or any context derived from it, share one instance per
// type until exit is called or ctx is done, whichever happens first.
//
// A task scope entered inside another one shadows it; the outer scope's
// instances are not visible until the inner one is left.
//
// exit disposes the task's instances and returns the aggregated disposal
// error. Calling it more than once is harmless.
//
// On a closed provider no task scope is entered: ctx is returned as is and
// exit does nothing.
//
// Example:
//
//	ctx, exit := provider.EnterTaskScope(ctx)
//	defer exit()
//
//	tx, err := stratum.Resolve[*Transaction](provider.Context(ctx))
func (p *Provider) EnterTaskScope(ctx context.Context) (context.Context, func() error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if p.closed.Load() {
		return ctx, func() error { return nil }
	}

	ts := newTaskScope(p.opts.disposal)

	p.tasks.Store(ts.id, ts)
	p.logger.Debug("task scope entered", zap.Stringer("task", ts.id))

	exit := func() error {
		return p.exitTaskScope(context.WithoutCancel(ctx), ts)
	}

	stop := context.AfterFunc(ctx, func() {
		if err := exit(); err != nil {
			p.logger.Warn("task scope disposal failed",
				zap.Stringer("task", ts.id),
				zap.Error(err))
		}
	})

	// Close may have run between the check above and Store; it would have
	// missed this task.
	if p.closed.Load() {
		stop()
		_ = exit()
		return ctx, func() error { return nil }
	}

	return context.WithValue(ctx, taskScopeKey{}, ts), func() error {
		stop()
		return exit()
	}
}

// RunTaskScope runs body inside a fresh task scope and exits the scope when
// body returns. The body's error and the disposal error are joined.
func (p *Provider) RunTaskScope(ctx context.Context, body func(ctx context.Context) error) error {
	ctx, exit := p.EnterTaskScope(ctx)

	err := body(ctx)
	if exitErr := exit(); exitErr != nil {
		return errors.Join(err, exitErr)
	}

	return err
}

func (p *Provider) exitTaskScope(ctx context.Context, ts *taskScope) error {
	exited, err := ts.exit(ctx)
	if !exited {
		return nil
	}

	p.tasks.Delete(ts.id)
	p.logger.Debug("task scope exited", zap.Stringer("task", ts.id))

	return err
}
