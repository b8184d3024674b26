package stratum

import (
	"maps"
	"runtime/debug"
	"slices"

	"go.uber.org/zap"
)

// Factory builds a service. It may resolve other services through c; that
// recursion is how nested dependency graphs assemble. The registry does not
// detect cycles: a factory that (indirectly) resolves its own key recurses
// until the goroutine stack is exhausted.
type Factory func(c Context) (Value, error)

// constructorEntry binds a key to its factory.
type constructorEntry struct {
	key     Key
	factory Factory
}

// constructionLayer is the bottom layer of the registry: key to factory.
// It is immutable once built.
type constructionLayer struct {
	entries   map[Key]*constructorEntry
	observers []Observer
	recover   bool
	logger    *zap.Logger
}

func newConstructionLayer(entries map[Key]*constructorEntry, opts *options) *constructionLayer {
	return &constructionLayer{
		entries:   entries,
		observers: opts.observers,
		recover:   opts.recoverPanics,
		logger:    opts.logger,
	}
}

// get returns the constructor registered for key.
func (l *constructionLayer) get(key Key) (*constructorEntry, error) {
	entry, ok := l.entries[key]
	if !ok {
		return nil, &NotFoundError{Key: key, Layer: LayerConstruction, Available: l.keys()}
	}

	return entry, nil
}

// build runs the entry's factory, notifying observers around it.
func (l *constructionLayer) build(c Context, entry *constructorEntry, lifetime Lifetime) (Value, error) {
	var dones []func(error)
	if len(l.observers) > 0 {
		ctx := c.Context()
		dones = make([]func(error), 0, len(l.observers))
		for _, o := range l.observers {
			next, done := o.ObserveBuild(ctx, entry.key, lifetime)
			if next != nil {
				ctx = next
			}
			if done != nil {
				dones = append(dones, done)
			}
		}
		c = c.WithContext(ctx)
	}

	v, panicked, err := l.invoke(entry.key, func() (Value, error) {
		return entry.factory(c)
	})
	if err != nil {
		if !panicked {
			err = &FactoryError{Key: entry.key, Operation: "construct", Cause: err}
		}
		l.logger.Debug("factory failed",
			zap.Stringer("key", entry.key),
			zap.Stringer("lifetime", lifetime),
			zap.Error(err))
	}

	for i := len(dones) - 1; i >= 0; i-- {
		dones[i](err)
	}

	if err != nil {
		return Value{}, err
	}

	if lifetime.cached() {
		l.logger.Debug("service constructed",
			zap.Stringer("key", entry.key),
			zap.Stringer("lifetime", lifetime))
	}

	return v, nil
}

// invoke calls fn, turning a panic into *FactoryPanicError when recovery is
// enabled. Internal invariant violations are never recovered.
func (l *constructionLayer) invoke(key Key, fn func() (Value, error)) (v Value, panicked bool, err error) {
	if l.recover {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			if _, ok := r.(InvariantError); ok {
				panic(r)
			}

			v = Value{}
			err = &FactoryPanicError{Key: key, Panic: r, Stack: debug.Stack()}
			panicked = true
		}()
	}

	v, err = fn()
	return v, false, err
}

// keys lists the registered constructor keys.
func (l *constructionLayer) keys() []Key {
	return sortKeys(slices.Collect(maps.Keys(l.entries)))
}
