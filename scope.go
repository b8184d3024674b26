package stratum

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/junioryono/stratum/internal/goid"
)

// scopeEntry binds a key to its lifetime. Singleton entries own their
// producer; thread- and task-scoped entries find theirs in the registry of
// the current goroutine or task.
type scopeEntry struct {
	key       Key
	lifetime  Lifetime
	split     Splitter
	singleton *producer
}

func newScopeEntry(key Key, lifetime Lifetime, split Splitter) *scopeEntry {
	if split == nil {
		split = CopySplitter(key)
	}

	entry := &scopeEntry{
		key:      key,
		lifetime: lifetime,
		split:    split,
	}

	if lifetime == Singleton {
		entry.singleton = &producer{}
	}

	return entry
}

// scopeLayer applies lifetimes on top of the construction layer.
type scopeLayer struct {
	construction *constructionLayer
	entries      map[Key]*scopeEntry

	// singletons tracks disposable singleton instances.
	singletons *lifecycleManager

	// threads maps goroutine ids to their registries.
	threads sync.Map // map[int64]*threadScope

	disposal bool
	logger   *zap.Logger
}

func newScopeLayer(construction *constructionLayer, entries map[Key]*scopeEntry, opts *options) *scopeLayer {
	return &scopeLayer{
		construction: construction,
		entries:      entries,
		singletons:   newLifecycleManager(opts.disposal, nil),
		disposal:     opts.disposal,
		logger:       opts.logger,
	}
}

// get obtains the service registered under key, cached or freshly built
// according to its lifetime.
func (l *scopeLayer) get(c Context, key Key) (Value, error) {
	entry, ok := l.entries[key]
	if !ok {
		if _, err := l.construction.get(key); err != nil {
			return Value{}, err
		}

		return Value{}, &NotFoundError{Key: key, Layer: LayerScope}
	}

	ctor, err := l.construction.get(key)
	if err != nil {
		return Value{}, err
	}

	if entry.key != key || ctor.key != key {
		invariantf("scope entry %s and constructor %s registered under %s", entry.key, ctor.key, key)
	}

	build := func(c Context) (Value, error) {
		return l.construction.build(c, ctor, entry.lifetime)
	}

	switch entry.lifetime {
	case Transient:
		return build(c)

	case Singleton:
		return entry.singleton.produce(c, entry, build, l.singletons)

	case ThreadScoped:
		ts := l.thread()
		return ts.producers.get(entry).produce(c, entry, build, ts.lifecycle)

	case TaskScoped:
		ts, err := activeTaskScope(c.Context(), key)
		if err != nil {
			return Value{}, err
		}

		p, err := ts.producer(entry)
		if err != nil {
			return Value{}, err
		}

		return p.produce(c, entry, build, ts.lifecycle)

	default:
		invariantf("scope entry %s has lifetime %s", key, entry.lifetime)
		return Value{}, nil
	}
}

// thread returns the registry of the calling goroutine, creating it on
// first use.
func (l *scopeLayer) thread() *threadScope {
	id := goid.Get()

	if ts, ok := l.threads.Load(id); ok {
		return ts.(*threadScope)
	}

	ts, loaded := l.threads.LoadOrStore(id, newThreadScope(id, l.disposal))
	if !loaded {
		l.logger.Debug("thread scope created", zap.Int64("goroutine", id))
	}

	return ts.(*threadScope)
}

// releaseThread drops the registry of the calling goroutine and disposes
// its instances.
func (l *scopeLayer) releaseThread(ctx context.Context) error {
	id := goid.Get()

	ts, ok := l.threads.LoadAndDelete(id)
	if !ok {
		return nil
	}

	l.logger.Debug("thread scope released", zap.Int64("goroutine", id))
	return ts.(*threadScope).lifecycle.dispose(ctx, "thread scope")
}

// close disposes every thread registry and every singleton.
func (l *scopeLayer) close(ctx context.Context) []error {
	var errs []error

	l.threads.Range(func(id, ts any) bool {
		l.threads.Delete(id)
		if err := ts.(*threadScope).lifecycle.dispose(ctx, "thread scope"); err != nil {
			errs = append(errs, err)
		}
		return true
	})

	if err := l.singletons.dispose(ctx, "singleton"); err != nil {
		errs = append(errs, err)
	}

	return errs
}
