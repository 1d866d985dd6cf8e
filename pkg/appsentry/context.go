// context.go provides typed sentry contexts kept as app resources.

package appsentry

import (
	"maps"
	"slices"

	"github.com/getsentry/sentry-go"
)

// Context is a named key-value mapping attached to every reported event.
//
// The marker type T only distinguishes otherwise identical contexts in the
// app's resource container: Context[Character] and Context[Session] are
// separate resources, each synced under its own key. Nothing reads T at
// runtime.
//
// See https://docs.sentry.io/product/sentry-basics/enrich-data/#types-of-data
type Context[T any] struct {
	key    string
	values map[string]any
}

// NewContext creates a context reported under key. values is copied.
func NewContext[T any](key string, values map[string]any) Context[T] {
	return Context[T]{key: key, values: maps.Clone(values)}
}

// Key returns the name the context is reported under.
func (c Context[T]) Key() string {
	return c.key
}

// Values returns a copy of the mapping, in the form sentry expects.
func (c Context[T]) Values() sentry.Context {
	values := make(sentry.Context, len(c.values))
	maps.Copy(values, c.values)
	return values
}

// Get returns the value stored under name.
func (c Context[T]) Get(name string) (any, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Keys returns the mapping's keys in sorted order.
func (c Context[T]) Keys() []string {
	return slices.Sorted(maps.Keys(c.values))
}

// Len returns the number of entries.
func (c Context[T]) Len() int {
	return len(c.values)
}

// Set stores value under name. The mapping is copied first, so copies of c
// obtained earlier are unaffected.
//
// Call Set through app.Mutate so the change is detected:
//
//	app.Mutate(w, func(c *appsentry.Context[Character]) { c.Set("age", "39") })
func (c *Context[T]) Set(name string, value any) {
	values := make(map[string]any, len(c.values)+1)
	maps.Copy(values, c.values)
	values[name] = value
	c.values = values
}

// Delete removes name from the mapping, copying it first like Set.
func (c *Context[T]) Delete(name string) {
	if _, ok := c.values[name]; !ok {
		return
	}
	values := maps.Clone(c.values)
	delete(values, name)
	c.values = values
}

// Replace swaps the whole mapping for a copy of values.
func (c *Context[T]) Replace(values map[string]any) {
	c.values = maps.Clone(values)
}

// pendingContext is a type-erased initial context value.
type pendingContext interface {
	Key() string
	Values() sentry.Context
}
