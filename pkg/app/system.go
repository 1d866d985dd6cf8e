// system.go defines systems and the read view they get of the World.

package app

// System is run once per cycle by the App.
type System func(c *SystemContext)

// SystemContext is handed to a System for the duration of one run.
type SystemContext struct {
	app     *App
	name    string
	lastRun Tick
}

// World returns the App's resource container.
func (c *SystemContext) World() *World {
	return c.app.world
}

// Name returns the name the system was registered under.
func (c *SystemContext) Name() string {
	return c.name
}

// LastRun returns the World tick observed at the end of this system's
// previous run, or zero on the first run.
func (c *SystemContext) LastRun() Tick {
	return c.lastRun
}

// Cycle returns the number of the cycle being run, starting at 1.
func (c *SystemContext) Cycle() uint64 {
	return c.app.cycles
}

// Exit asks the App to stop after the current cycle.
func (c *SystemContext) Exit() {
	c.app.Exit()
}

// Ref is a read-only view of a resource together with its change state
// relative to the system that obtained it.
type Ref[T any] struct {
	Value T

	added   Tick
	changed Tick
	lastRun Tick
}

// IsChanged reports whether the resource was inserted or mutated since the
// system's previous run.
func (r Ref[T]) IsChanged() bool {
	return r.changed > r.lastRun
}

// IsAdded reports whether the resource was first inserted since the system's
// previous run.
func (r Ref[T]) IsAdded() bool {
	return r.added > r.lastRun
}

// Resource returns the resource of type T as seen by the running system.
// Returns false if no such resource exists.
func Resource[T any](c *SystemContext) (Ref[T], bool) {
	entry, ok := c.app.world.resources[typeKey[T]()]
	if !ok {
		return Ref[T]{}, false
	}
	return Ref[T]{
		Value:   entry.value.(T),
		added:   entry.added,
		changed: entry.changed,
		lastRun: c.lastRun,
	}, true
}

type scheduledSystem struct {
	name    string
	run     System
	lastRun Tick
}
