// world.go implements the typed resource container and its change ticks.

package app

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"slices"
)

// Tick is a point in a World's change history. Ticks increase monotonically;
// zero means "never".
type Tick uint64

type resourceEntry struct {
	value   any
	added   Tick
	changed Tick
}

// World stores at most one resource per Go type.
// World is not safe for concurrent use; the App serializes access.
type World struct {
	resources map[reflect.Type]*resourceEntry
	order     []reflect.Type
	tick      Tick
}

// NewWorld creates an empty World.
func NewWorld() *World {
	return &World{
		resources: make(map[reflect.Type]*resourceEntry),
	}
}

// Tick returns the most recent change tick.
func (w *World) Tick() Tick {
	return w.tick
}

// Len returns the number of stored resources.
func (w *World) Len() int {
	return len(w.resources)
}

func (w *World) advance() Tick {
	w.tick++
	return w.tick
}

func typeKey[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// Insert stores value as the resource of type T, replacing any existing one.
// Both a fresh insert and a replacement mark the resource changed.
func Insert[T any](w *World, value T) {
	key := typeKey[T]()
	tick := w.advance()

	if entry, ok := w.resources[key]; ok {
		entry.value = value
		entry.changed = tick
		return
	}

	w.resources[key] = &resourceEntry{value: value, added: tick, changed: tick}
	w.order = append(w.order, key)
}

// Get returns a copy of the resource of type T.
// Returns the zero value and false if no such resource exists.
func Get[T any](w *World) (T, bool) {
	entry, ok := w.resources[typeKey[T]()]
	if !ok {
		var zero T
		return zero, false
	}
	return entry.value.(T), true
}

// Has reports whether a resource of type T exists.
func Has[T any](w *World) bool {
	_, ok := w.resources[typeKey[T]()]
	return ok
}

// Remove deletes the resource of type T and returns it.
// Returns the zero value and false if no such resource exists.
func Remove[T any](w *World) (T, bool) {
	key := typeKey[T]()
	entry, ok := w.resources[key]
	if !ok {
		var zero T
		return zero, false
	}

	delete(w.resources, key)
	w.order = slices.DeleteFunc(w.order, func(k reflect.Type) bool { return k == key })
	return entry.value.(T), true
}

// Mutate applies fn to the resource of type T and marks it changed.
// Returns false without calling fn if no such resource exists.
func Mutate[T any](w *World, fn func(*T)) bool {
	entry, ok := w.resources[typeKey[T]()]
	if !ok {
		return false
	}

	value := entry.value.(T)
	fn(&value)
	entry.value = value
	entry.changed = w.advance()
	return true
}

// drain removes every resource in reverse insertion order and closes those
// that implement io.Closer. Close errors are aggregated.
func (w *World) drain() error {
	var errs []error
	for i := len(w.order) - 1; i >= 0; i-- {
		key := w.order[i]
		entry := w.resources[key]
		delete(w.resources, key)

		if closer, ok := entry.value.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", key, err))
			}
		}
	}
	w.order = nil
	return errors.Join(errs...)
}
