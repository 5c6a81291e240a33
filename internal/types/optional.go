package types

import "fmt"

// Opt is a three-valued optional: unset, or set to a value that may itself be
// the zero value. An explicit false or 0 is Some, never None.
type Opt[T any] struct {
	v     T
	valid bool
}

// Some returns a set optional holding v.
func Some[T any](v T) Opt[T] { return Opt[T]{v: v, valid: true} }

// None returns an unset optional.
func None[T any]() Opt[T] { return Opt[T]{} }

// Get returns the value and whether it is set.
func (o Opt[T]) Get() (T, bool) { return o.v, o.valid }

// IsSet reports whether the optional holds a value.
func (o Opt[T]) IsSet() bool { return o.valid }

// Or returns the held value, or def when unset.
func (o Opt[T]) Or(def T) T {
	if o.valid {
		return o.v
	}
	return def
}

// Else returns o when set, otherwise other.
func (o Opt[T]) Else(other Opt[T]) Opt[T] {
	if o.valid {
		return o
	}
	return other
}

func (o Opt[T]) String() string {
	if !o.valid {
		return "<unset>"
	}
	return fmt.Sprint(o.v)
}
