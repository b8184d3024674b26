package stratum

import (
	"encoding/json"
	"fmt"
)

// Lifetime specifies how the registry caches and shares a constructed service.
type Lifetime int

const (
	// Transient rebuilds the service on every resolution. Nothing is cached.
	Transient Lifetime = iota

	// Singleton builds the service once per provider, on first resolution,
	// and hands out duplicates of that instance for the provider's lifetime.
	Singleton

	// ThreadScoped builds the service once per resolving goroutine. Each
	// goroutine gets its own instance; resolutions on the same goroutine
	// share it until the goroutine's scope is released.
	//
	// A goroutine's registry lives until it calls Provider.ExitThreadScope or
	// the provider is closed. Goroutines that never call it keep their
	// registries, so long-running servers spawning goroutines per request
	// grow the registry map without bound; use TaskScoped there.
	ThreadScoped

	// TaskScoped builds the service once per task scope entered with
	// Provider.EnterTaskScope. Every goroutine resolving with the task's
	// context shares the instance. Resolving without an active task scope
	// fails with ErrScopeContextMissing.
	TaskScoped
)

// String returns the string representation of the Lifetime.
func (l Lifetime) String() string {
	switch l {
	case Transient:
		return "Transient"
	case Singleton:
		return "Singleton"
	case ThreadScoped:
		return "ThreadScoped"
	case TaskScoped:
		return "TaskScoped"
	default:
		return fmt.Sprintf("Unknown(%d)", int(l))
	}
}

// IsValid checks if the lifetime is one of the defined values.
func (l Lifetime) IsValid() bool {
	return l >= Transient && l <= TaskScoped
}

// cached reports whether instances of this lifetime are retained by a scope.
func (l Lifetime) cached() bool {
	return l == Singleton || l == ThreadScoped || l == TaskScoped
}

// MarshalText implements encoding.TextMarshaler.
func (l Lifetime) MarshalText() ([]byte, error) {
	if !l.IsValid() {
		return nil, &LifetimeError{Value: int(l)}
	}

	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Lifetime) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Transient", "transient":
		*l = Transient
	case "Singleton", "singleton":
		*l = Singleton
	case "ThreadScoped", "thread_scoped", "thread":
		*l = ThreadScoped
	case "TaskScoped", "task_scoped", "task":
		*l = TaskScoped
	default:
		return &LifetimeError{Value: string(text)}
	}

	return nil
}

// MarshalJSON implements json.Marshaler.
func (l Lifetime) MarshalJSON() ([]byte, error) {
	if !l.IsValid() {
		return nil, &LifetimeError{Value: int(l)}
	}

	return json.Marshal(l.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Lifetime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	return l.UnmarshalText([]byte(s))
}
