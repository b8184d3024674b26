package stratum

import (
	"sync"
)

// producerState is the state of one cache cell.
type producerState int

const (
	statePending producerState = iota
	stateCreated
)

func (s producerState) String() string {
	switch s {
	case statePending:
		return "Pending"
	case stateCreated:
		return "Created"
	default:
		return "Unknown"
	}
}

// producer caches one logical instance for one (policy, scope instance)
// pair. Its mutex is the only lock a cached lifetime takes, and it is held
// for build-or-split only, never while the caller uses its copy.
//
// A factory failure leaves the producer Pending, so a later resolution
// retries the construction.
type producer struct {
	mu       sync.Mutex
	state    producerState
	instance SyncValue
}

// produce returns a copy of the cached instance, building it first when the
// producer is still pending. lifecycle receives the retained instance once,
// when it is created. If lifecycle was disposed while the factory ran, the
// instance is closed instead of cached and the producer stays pending.
func (p *producer) produce(
	c Context,
	entry *scopeEntry,
	build func(Context) (Value, error),
	lifecycle *lifecycleManager,
) (Value, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case statePending:
		v, err := build(c)
		if err != nil {
			return Value{}, err
		}

		shared, err := v.Sync(entry.key)
		if err != nil {
			return Value{}, err
		}

		retained, out, err := entry.split(shared)
		if err != nil {
			return Value{}, err
		}

		copied, err := out.Unsync(entry.key)
		if err != nil {
			return Value{}, err
		}

		if err := lifecycle.track(c.Context(), entry.key, retained.v); err != nil {
			return Value{}, err
		}

		p.instance = retained
		p.state = stateCreated

		return copied, nil

	case stateCreated:
		retained, out, err := entry.split(p.instance)
		if err != nil {
			return Value{}, err
		}

		copied, err := out.Unsync(entry.key)
		if err != nil {
			return Value{}, err
		}

		p.instance = retained

		return copied, nil

	default:
		invariantf("producer for %s in state %s", entry.key, p.state)
		return Value{}, nil
	}
}

// created reports whether the producer holds an instance.
func (p *producer) created() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == stateCreated
}

// producerSet maps scope entries to their producers inside one scope
// instance (a goroutine or a task).
type producerSet struct {
	mu        sync.Mutex
	producers map[*scopeEntry]*producer
}

func newProducerSet() *producerSet {
	return &producerSet{producers: make(map[*scopeEntry]*producer)}
}

// get returns the producer for entry, creating it on first use. The set's
// lock only guards the map; producers of unrelated types never contend.
func (s *producerSet) get(entry *scopeEntry) *producer {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.producers[entry]
	if !ok {
		p = &producer{}
		s.producers[entry] = p
	}

	return p
}

// len returns the number of producers in the set.
func (s *producerSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.producers)
}
