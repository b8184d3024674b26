package stratum

import (
	"reflect"
	"slices"
	"strings"
)

// Key identifies a type inside the registry. Two keys are equal exactly when
// they describe the same Go type, so an interface type and a concrete type
// implementing it are different keys, as are T and *T.
//
// The zero Key identifies nothing and is rejected by every registration.
type Key struct {
	t reflect.Type
}

// KeyOf returns the key for the static type T. Interface types are kept as
// interfaces.
//
// Example:
//
//	stratum.KeyOf[*Database]()
//	stratum.KeyOf[io.Reader]()
func KeyOf[T any]() Key {
	return Key{t: reflect.TypeOf((*T)(nil)).Elem()}
}

// KeyFor returns the key for an already reflected type.
// A nil type yields the zero Key.
func KeyFor(t reflect.Type) Key {
	return Key{t: t}
}

// Type returns the reflected type behind the key.
func (k Key) Type() reflect.Type {
	return k.t
}

// IsZero reports whether the key identifies no type.
func (k Key) IsZero() bool {
	return k.t == nil
}

// Name returns a short diagnostic name, e.g. "*Database".
func (k Key) Name() string {
	return formatType(k.t)
}

// String returns the fully qualified type name, e.g. "*app.Database".
func (k Key) String() string {
	if k.t == nil {
		return "<nil>"
	}

	return k.t.String()
}

// implements reports whether values stored under k can be asserted to the
// interface type behind iface.
func (k Key) implements(iface Key) bool {
	if k.t == nil || iface.t == nil || iface.t.Kind() != reflect.Interface {
		return false
	}

	return k.t.Implements(iface.t)
}

// sortKeys sorts keys by their qualified name, in place, and returns them.
func sortKeys(keys []Key) []Key {
	slices.SortFunc(keys, func(a, b Key) int {
		return strings.Compare(a.String(), b.String())
	})

	return keys
}
