package stratum

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// Typed errors below report their sentinel through Is, so callers can match
// with errors.Is without unpacking the details.

var (
	// Resolution errors.
	ErrNotFound            = errors.New("service not found")
	ErrTypeMismatch        = errors.New("type mismatch")
	ErrScopeContextMissing = errors.New("scope context missing")
	ErrTaskScopeClosed     = errors.New("task scope has been closed")

	// Lifecycle errors.
	ErrProviderNil      = errors.New("provider cannot be nil")
	ErrBuilderNil       = errors.New("builder cannot be nil")
	ErrProviderClosed   = errors.New("provider has been closed")
	ErrNoProvider       = errors.New("no provider attached to context")
	ErrBuilderFinalized = errors.New("builder has already been built")
	ErrDefaultInstalled = errors.New("default provider already installed")

	// Registration errors.
	ErrKeyZero       = errors.New("type key cannot be zero")
	ErrFactoryNil    = errors.New("factory cannot be nil")
	ErrConverterNil  = errors.New("converter cannot be nil")
	ErrNotAssignable = errors.New("source type does not implement destination interface")
)

var (
	_ error = LifetimeError{}
	_ error = NotFoundError{}
	_ error = TypeMismatchError{}
	_ error = ScopeContextMissingError{}
	_ error = FactoryError{}
	_ error = FactoryPanicError{}
	_ error = RegistrationError{}
	_ error = ModuleError{}
	_ error = BuildError{}
	_ error = DisposalError{}
	_ error = InvariantError{}
)

// Layer names reported by NotFoundError.
const (
	LayerConstruction = "construction"
	LayerScope        = "scope"
	LayerMapping      = "mapping"
)

// ========================================
// Typed Errors for Rich Context
// ========================================

// LifetimeError indicates an invalid lifetime value.
type LifetimeError struct {
	Value any
}

func (e LifetimeError) Error() string {
	return fmt.Sprintf("invalid lifetime: %v", e.Value)
}

// NotFoundError reports a key that one of the registry layers does not know.
// Layer is LayerMapping when nothing can be resolved under the key,
// LayerScope when a constructor has no lifetime entry, and
// LayerConstruction when a mapping points at a key without a constructor.
type NotFoundError struct {
	Key       Key
	Layer     string
	Available []Key // registered keys, used for suggestions
}

func (e NotFoundError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("service not found: %s", e.Key.Name()))
	if e.Layer != "" && e.Layer != LayerMapping {
		b.WriteString(fmt.Sprintf(" (no %s entry)", e.Layer))
	}

	if similar := findSimilarKeys(e.Key, e.Available); len(similar) > 0 {
		b.WriteString("\n\nDid you mean one of these?\n")
		for _, k := range similar {
			b.WriteString(fmt.Sprintf("  • %s\n", k.String()))
		}
	}

	return b.String()
}

func (e NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// findSimilarKeys finds keys with similar names using a simple substring match.
func findSimilarKeys(target Key, available []Key) []Key {
	if target.IsZero() || len(available) == 0 {
		return nil
	}

	targetName := target.String()
	targetShortName := target.t.Name()
	if targetShortName == "" {
		targetShortName = targetName
	}

	var similar []Key
	for _, k := range available {
		if k.IsZero() || k == target {
			continue
		}

		name := k.String()
		shortName := k.t.Name()
		if shortName == "" {
			shortName = name
		}

		if targetShortName == shortName ||
			strings.Contains(strings.ToLower(name), strings.ToLower(targetShortName)) ||
			strings.Contains(strings.ToLower(targetName), strings.ToLower(shortName)) {
			similar = append(similar, k)
		}

		if len(similar) >= 5 {
			break
		}
	}

	return similar
}

// TypeMismatchError indicates a value was stored under a different key than
// the one a layer expected. Context names the boundary that caught it:
// "unwrap", "wrap", "sync conversion", "split", "unsync conversion",
// "mapping input", "mapping output".
type TypeMismatchError struct {
	Expected Key
	Actual   Key
	Context  string
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Context, e.Expected.Name(), e.Actual.Name())
}

func (e TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// ScopeContextMissingError indicates a task-scoped service was resolved
// without an active task scope, or after the task scope was closed.
type ScopeContextMissingError struct {
	Key   Key
	Cause error
}

func (e ScopeContextMissingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("no task scope for %s: %v", e.Key.Name(), e.Cause)
	}

	return fmt.Sprintf("no task scope for %s: call Provider.EnterTaskScope first", e.Key.Name())
}

func (e ScopeContextMissingError) Is(target error) bool {
	return target == ErrScopeContextMissing
}

func (e ScopeContextMissingError) Unwrap() error {
	return e.Cause
}

// FactoryError carries an error returned by a registered factory or
// converter. Operation is "construct" or "convert".
type FactoryError struct {
	Key       Key
	Operation string
	Cause     error
}

func (e FactoryError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Operation, e.Key.Name(), e.Cause)
}

func (e FactoryError) Unwrap() error {
	return e.Cause
}

// FactoryPanicError indicates a factory or converter panicked.
// It captures the panic value and stack trace for debugging.
type FactoryPanicError struct {
	Key   Key
	Panic any
	Stack []byte
}

func (e FactoryPanicError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("factory for %s panicked: %v\n", e.Key.Name(), e.Panic))

	if len(e.Stack) > 0 {
		b.WriteString("\nStack trace:\n")
		b.Write(e.Stack)
	}

	return b.String()
}

// Unwrap exposes the panic value when it is an error.
func (e FactoryPanicError) Unwrap() error {
	if err, ok := e.Panic.(error); ok {
		return err
	}

	return nil
}

// RegistrationError wraps errors during registration.
type RegistrationError struct {
	Key       Key
	Operation string // "register constructor", "register mapping", ...
	Cause     error
}

func (e RegistrationError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Key.Name(), e.Cause)
}

func (e RegistrationError) Unwrap() error {
	return e.Cause
}

// ModuleError wraps errors from module registration.
type ModuleError struct {
	Module string
	Cause  error
}

func (e ModuleError) Error() string {
	return fmt.Sprintf("module %q: %v", e.Module, e.Cause)
}

func (e ModuleError) Unwrap() error {
	return e.Cause
}

// BuildError wraps errors that occur while finalizing a Builder.
type BuildError struct {
	Phase   string
	Details string
	Cause   error
}

func (e BuildError) Error() string {
	return fmt.Sprintf("build failed during %s phase: %s: %v", e.Phase, e.Details, e.Cause)
}

func (e BuildError) Unwrap() error {
	return e.Cause
}

// DisposalError aggregates disposal errors.
type DisposalError struct {
	Context string // "provider", "task scope", "thread scope"
	Errors  []error
}

func (e DisposalError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("%s disposal failed: %v", e.Context, e.Errors[0])
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s disposal failed with %d errors:", e.Context, len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
	}
	return sb.String()
}

func (e DisposalError) Unwrap() []error {
	return e.Errors
}

// InvariantError is the panic value used when the registry finds its own
// bookkeeping inconsistent. It is never returned as an error.
type InvariantError struct {
	Message string
}

func (e InvariantError) Error() string {
	return "stratum: internal invariant violated: " + e.Message
}

func invariantf(format string, args ...any) {
	panic(InvariantError{Message: fmt.Sprintf(format, args...)})
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTypeMismatch reports whether err is or wraps ErrTypeMismatch.
func IsTypeMismatch(err error) bool {
	return errors.Is(err, ErrTypeMismatch)
}

// IsScopeContextMissing reports whether err is or wraps ErrScopeContextMissing.
func IsScopeContextMissing(err error) bool {
	return errors.Is(err, ErrScopeContextMissing)
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + elem.Name()
		}
		return t.String()
	case reflect.Slice:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "[]" + elem.Name()
		}
		return t.String()
	case reflect.Map:
		key := t.Key()
		elem := t.Elem()
		keyStr := key.Name()
		if keyStr == "" {
			keyStr = key.String()
		}
		elemStr := elem.Name()
		if elemStr == "" {
			elemStr = elem.String()
		}
		return "map[" + keyStr + "]" + elemStr
	case reflect.Func:
		return t.String()
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}
