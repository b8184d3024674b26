package stratum

import (
	"maps"
	"slices"

	"go.uber.org/zap"
)

// Converter turns a service resolved under a mapping's source key into the
// value exposed under its destination key. It receives the resolution
// Context and may resolve further services through it.
type Converter func(c Context, v Value) (Value, error)

// mappingEntry exposes the service of src under dst.
type mappingEntry struct {
	src      Key
	dst      Key
	convert  Converter
	identity bool
}

// identityMapping exposes a constructed service under its own key.
func identityMapping(key Key) *mappingEntry {
	return &mappingEntry{
		src:      key,
		dst:      key,
		convert:  func(_ Context, v Value) (Value, error) { return v, nil },
		identity: true,
	}
}

// mappingLayer is the top layer of the registry: destination key to an
// ordered list of mappings. It is immutable once built.
type mappingLayer struct {
	scope        *scopeLayer
	construction *constructionLayer
	entries      map[Key][]*mappingEntry
	logger       *zap.Logger
}

func newMappingLayer(scope *scopeLayer, entries map[Key][]*mappingEntry, opts *options) *mappingLayer {
	return &mappingLayer{
		scope:        scope,
		construction: scope.construction,
		entries:      entries,
		logger:       opts.logger,
	}
}

// resolve returns the value produced by the first mapping registered under
// key.
func (l *mappingLayer) resolve(c Context, key Key) (Value, error) {
	entries := l.entries[key]
	if len(entries) == 0 {
		return Value{}, &NotFoundError{Key: key, Layer: LayerMapping, Available: l.keys()}
	}

	return l.apply(c, key, entries[0])
}

// resolveAll returns one value per mapping registered under key, in
// registration order. It stops at the first failure. A key without mappings
// yields an empty, non-nil slice.
func (l *mappingLayer) resolveAll(c Context, key Key) ([]Value, error) {
	entries := l.entries[key]

	values := make([]Value, 0, len(entries))
	for _, entry := range entries {
		v, err := l.apply(c, key, entry)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	return values, nil
}

// apply resolves the mapping's source through the scope layer and converts
// it.
func (l *mappingLayer) apply(c Context, key Key, entry *mappingEntry) (Value, error) {
	if entry.dst != key {
		invariantf("mapping %s -> %s registered under %s", entry.src, entry.dst, key)
	}

	src, err := l.scope.get(c, entry.src)
	if err != nil {
		return Value{}, err
	}

	if src.key != entry.src {
		return Value{}, &TypeMismatchError{Expected: entry.src, Actual: src.key, Context: "mapping input"}
	}

	if entry.identity {
		return src, nil
	}

	out, panicked, err := l.construction.invoke(entry.dst, func() (Value, error) {
		return entry.convert(c, src)
	})
	if err != nil {
		if !panicked {
			err = &FactoryError{Key: entry.dst, Operation: "convert", Cause: err}
		}
		l.logger.Debug("converter failed",
			zap.Stringer("source", entry.src),
			zap.Stringer("destination", entry.dst),
			zap.Error(err))
		return Value{}, err
	}

	if out.key != entry.dst {
		return Value{}, &TypeMismatchError{Expected: entry.dst, Actual: out.key, Context: "mapping output"}
	}

	return out, nil
}

// has reports whether any mapping is registered under key.
func (l *mappingLayer) has(key Key) bool {
	return len(l.entries[key]) > 0
}

// keys lists the destination keys, sorted by name.
func (l *mappingLayer) keys() []Key {
	return sortKeys(slices.Collect(maps.Keys(l.entries)))
}
