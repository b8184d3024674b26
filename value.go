package stratum

import (
	"reflect"
)

// Value holds a service of statically unknown type together with the Key it
// was stored under. Values travel through every layer of the registry; callers
// recover the concrete service with Unwrap.
//
// A failed Unwrap leaves the Value untouched, so another handler may try a
// different type.
type Value struct {
	key Key
	v   any
}

// Wrap stores v under the key of its static type T.
//
//	v := stratum.Wrap[io.Reader](file) // keyed as io.Reader, not *os.File
func Wrap[T any](v T) Value {
	return Value{key: KeyOf[T](), v: v}
}

// WrapAs stores v under an explicit key. It is the erased counterpart of Wrap
// for callers that only hold a reflect.Type. v must be exactly of the key's
// type, or implement it when the key is an interface. A nil v is accepted for
// keys whose zero value is nil.
func WrapAs(key Key, v any) (Value, error) {
	if key.IsZero() {
		return Value{}, ErrKeyZero
	}

	if v == nil {
		if !nilable(key.t) {
			return Value{}, &TypeMismatchError{Expected: key, Actual: Key{}, Context: "wrap"}
		}

		if key.t.Kind() != reflect.Interface {
			v = reflect.Zero(key.t).Interface()
		}

		return Value{key: key, v: v}, nil
	}

	actual := reflect.TypeOf(v)
	if key.t.Kind() == reflect.Interface {
		if !actual.Implements(key.t) {
			return Value{}, &TypeMismatchError{Expected: key, Actual: KeyFor(actual), Context: "wrap"}
		}
	} else if actual != key.t {
		return Value{}, &TypeMismatchError{Expected: key, Actual: KeyFor(actual), Context: "wrap"}
	}

	return Value{key: key, v: v}, nil
}

// Unwrap recovers the service stored in v as T. It fails with a
// *TypeMismatchError when v was stored under a different key; v itself is
// not modified and stays unwrappable under its real type.
func Unwrap[T any](v Value) (T, error) {
	var zero T

	want := KeyOf[T]()
	if v.key != want {
		return zero, &TypeMismatchError{Expected: want, Actual: v.key, Context: "unwrap"}
	}

	if v.v == nil {
		return zero, nil
	}

	t, ok := v.v.(T)
	if !ok {
		invariantf("value keyed %s holds %T", v.key, v.v)
	}

	return t, nil
}

// Key returns the key the value was stored under.
func (v Value) Key() Key {
	return v.key
}

// Interface returns the stored service as an untyped interface.
func (v Value) Interface() any {
	return v.v
}

// IsZero reports whether v holds nothing at all (not even a nil service).
func (v Value) IsZero() bool {
	return v.key.IsZero()
}

// Sync converts v into its shareable form after checking it was stored under
// expected. Cached scopes only ever retain SyncValues.
func (v Value) Sync(expected Key) (SyncValue, error) {
	if v.key != expected {
		return SyncValue{}, &TypeMismatchError{Expected: expected, Actual: v.key, Context: "sync conversion"}
	}

	return SyncValue{key: v.key, v: v.v}, nil
}

// SyncValue is a Value that may be retained by a scope and handed to callers
// on other goroutines while the scope lock is held.
type SyncValue struct {
	key Key
	v   any
}

// Key returns the key the value was stored under.
func (s SyncValue) Key() Key {
	return s.key
}

// Unsync converts s back into a plain Value after checking it was stored
// under expected.
func (s SyncValue) Unsync(expected Key) (Value, error) {
	if s.key != expected {
		return Value{}, &TypeMismatchError{Expected: expected, Actual: s.key, Context: "unsync conversion"}
	}

	return Value{key: s.key, v: s.v}, nil
}

// Splitter produces two independent handles to the current state of a cached
// value: one retained by the scope, one handed out. Whether the two share
// mutable state is decided by the service type, not by the registry.
type Splitter func(s SyncValue) (retained SyncValue, copy SyncValue, err error)

// Cloner is implemented by services that control their own duplication.
// Typed registrations split cached values of such types through Clone.
type Cloner[T any] interface {
	Clone() T
}

// CopySplitter returns the default Splitter for key: the stored value is
// duplicated by plain assignment, so pointers, maps, slices and channels
// share state while struct fields do not.
func CopySplitter(key Key) Splitter {
	return func(s SyncValue) (SyncValue, SyncValue, error) {
		if s.key != key {
			return SyncValue{}, SyncValue{}, &TypeMismatchError{Expected: key, Actual: s.key, Context: "split"}
		}

		return s, SyncValue{key: s.key, v: s.v}, nil
	}
}

// CloneSplitter returns a Splitter for T that duplicates values through
// Cloner[T] when T implements it, and by assignment otherwise.
func CloneSplitter[T any]() Splitter {
	key := KeyOf[T]()

	return func(s SyncValue) (SyncValue, SyncValue, error) {
		if s.key != key {
			return SyncValue{}, SyncValue{}, &TypeMismatchError{Expected: key, Actual: s.key, Context: "split"}
		}

		if c, ok := s.v.(Cloner[T]); ok {
			return s, SyncValue{key: key, v: c.Clone()}, nil
		}

		return s, SyncValue{key: key, v: s.v}, nil
	}
}

// nilable reports whether the zero value of t is nil.
func nilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	default:
		return false
	}
}
