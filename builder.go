package stratum

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Builder collects constructor and mapping registrations and turns them into
// an immutable Provider.
//
// Registering a constructor for a key also gives it a lifetime and exposes
// it under its own key through an identity mapping. Mappings add further
// keys under which a constructed service can be resolved, typically an
// interface it implements.
//
// Builder is safe for concurrent use. It can be built only once.
//
// Example:
//
//	b := stratum.NewBuilder()
//	stratum.AddSingleton(b, NewLogger)
//	stratum.AddTaskScoped(b, NewRequestState)
//	stratum.As[*ConsoleLogger, Logger](b)
//
//	provider, err := b.Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
type Builder struct {
	mu sync.Mutex

	constructors map[Key]*constructorEntry
	scopes       map[Key]*scopeEntry
	mappings     map[Key][]*mappingEntry

	// identities marks keys whose identity mapping is already registered.
	identities map[Key]bool

	built bool
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		constructors: make(map[Key]*constructorEntry),
		scopes:       make(map[Key]*scopeEntry),
		mappings:     make(map[Key][]*mappingEntry),
		identities:   make(map[Key]bool),
	}
}

// RegisterConstructor registers factory as the constructor of key with the
// given lifetime. A later registration for the same key replaces the
// factory and the lifetime; the key keeps a single identity mapping.
//
// Values produced by the factory must be stored under key exactly. Cached
// lifetimes hand out copies made by the entry's Splitter, CopySplitter by
// default; use WithSplitter to change it.
func (b *Builder) RegisterConstructor(key Key, lifetime Lifetime, factory Factory, opts ...ConstructorOption) error {
	if key.IsZero() {
		return &RegistrationError{Key: key, Operation: "register constructor", Cause: ErrKeyZero}
	}

	if !lifetime.IsValid() {
		return &RegistrationError{Key: key, Operation: "register constructor", Cause: &LifetimeError{Value: int(lifetime)}}
	}

	if factory == nil {
		return &RegistrationError{Key: key, Operation: "register constructor", Cause: ErrFactoryNil}
	}

	var co constructorOptions
	for _, opt := range opts {
		if opt != nil {
			opt.applyConstructor(&co)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.built {
		return &RegistrationError{Key: key, Operation: "register constructor", Cause: ErrBuilderFinalized}
	}

	b.constructors[key] = &constructorEntry{key: key, factory: factory}
	b.scopes[key] = newScopeEntry(key, lifetime, co.splitter)

	if !b.identities[key] {
		b.identities[key] = true
		b.mappings[key] = append(b.mappings[key], identityMapping(key))
	}

	return nil
}

// RegisterMapping exposes the service constructed under src as dst, through
// convert. Mappings for the same destination accumulate in registration
// order: Resolve uses the first, ResolveAll all of them.
//
// The source constructor need not be registered yet. Build reports missing
// sources only with WithMappingValidation.
func (b *Builder) RegisterMapping(dst, src Key, convert Converter) error {
	if dst.IsZero() || src.IsZero() {
		return &RegistrationError{Key: dst, Operation: "register mapping", Cause: ErrKeyZero}
	}

	if convert == nil {
		return &RegistrationError{Key: dst, Operation: "register mapping", Cause: ErrConverterNil}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.built {
		return &RegistrationError{Key: dst, Operation: "register mapping", Cause: ErrBuilderFinalized}
	}

	b.mappings[dst] = append(b.mappings[dst], &mappingEntry{src: src, dst: dst, convert: convert})

	return nil
}

// AddModules applies modules in order and stops at the first failure.
func (b *Builder) AddModules(modules ...ModuleOption) error {
	for _, module := range modules {
		if module == nil {
			continue
		}

		if err := module(b); err != nil {
			return err
		}
	}

	return nil
}

// Contains reports whether key can be resolved: it has a constructor or at
// least one mapping.
func (b *Builder) Contains(key Key) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok := b.constructors[key]
	return ok || len(b.mappings[key]) > 0
}

// Count returns the number of registered constructors.
func (b *Builder) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.constructors)
}

// Build finalizes the registrations into a Provider. The builder rejects
// every later registration and further Build calls.
func (b *Builder) Build(opts ...Option) (*Provider, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt.apply(o)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.built {
		return nil, ErrBuilderFinalized
	}

	if o.validateMappings {
		if err := b.validateMappings(); err != nil {
			return nil, err
		}
	}

	b.built = true

	constructors := maps.Clone(b.constructors)
	scopes := maps.Clone(b.scopes)
	mappings := make(map[Key][]*mappingEntry, len(b.mappings))
	var mappingCount int
	for k, entries := range b.mappings {
		mappings[k] = append([]*mappingEntry(nil), entries...)
		mappingCount += len(entries)
	}

	construction := newConstructionLayer(constructors, o)
	scope := newScopeLayer(construction, scopes, o)

	p := &Provider{
		id:       uuid.New(),
		opts:     o,
		logger:   o.logger,
		mappings: newMappingLayer(scope, mappings, o),
		scope:    scope,
	}

	p.logger.Info("provider built",
		zap.Stringer("provider", p.id),
		zap.Int("constructors", len(constructors)),
		zap.Int("mappings", mappingCount))

	return p, nil
}

// validateMappings checks that every mapping source has a constructor.
func (b *Builder) validateMappings() error {
	var errs []error
	for _, dst := range sortKeys(slices.Collect(maps.Keys(b.mappings))) {
		for _, entry := range b.mappings[dst] {
			if _, ok := b.constructors[entry.src]; !ok {
				errs = append(errs, fmt.Errorf("%s -> %s: %w", entry.src.Name(), dst.Name(),
					&NotFoundError{Key: entry.src, Layer: LayerConstruction}))
			}
		}
	}

	if len(errs) > 0 {
		return &BuildError{Phase: "validation", Details: "mapping source has no constructor", Cause: errors.Join(errs...)}
	}

	return nil
}
