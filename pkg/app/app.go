// app.go provides the App: plugin setup, the cycle loop and teardown.

package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Plugin configures an App. Build is called once, when the plugin is added.
type Plugin interface {
	Build(a *App)
}

// PluginFunc adapts a plain function to the Plugin interface.
type PluginFunc func(a *App)

// Build calls f(a).
func (f PluginFunc) Build(a *App) {
	f(a)
}

// Runner replaces the default cycle loop used by Run.
type Runner func(ctx context.Context, a *App) error

// Option configures an App.
type Option func(*appConfig)

type appConfig struct {
	logger        log.FieldLogger
	cycleInterval time.Duration
}

// WithLogger sets the logger used for diagnostics (default: the logrus
// standard logger).
func WithLogger(logger log.FieldLogger) Option {
	return func(c *appConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCycleInterval paces the default run loop to at most one cycle per d.
// Zero (the default) runs cycles back to back.
func WithCycleInterval(d time.Duration) Option {
	return func(c *appConfig) {
		if d > 0 {
			c.cycleInterval = d
		}
	}
}

// App owns a World and an ordered schedule of systems.
// An App is driven from a single goroutine.
type App struct {
	world      *World
	systems    []*scheduledSystem
	panicHooks []func(recovered any)
	runner     Runner

	logger        log.FieldLogger
	cycleInterval time.Duration

	cycles        uint64
	exitRequested bool

	closeOnce sync.Once
	closeErr  error
}

// New creates an App with an empty World and schedule.
func New(opts ...Option) *App {
	cfg := &appConfig{
		logger: log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &App{
		world:         NewWorld(),
		logger:        cfg.logger,
		cycleInterval: cfg.cycleInterval,
	}
}

// World returns the App's resource container.
func (a *App) World() *World {
	return a.world
}

// Logger returns the App's diagnostic logger.
func (a *App) Logger() log.FieldLogger {
	return a.logger
}

// Cycles returns the number of cycles started so far.
func (a *App) Cycles() uint64 {
	return a.cycles
}

// AddPlugins builds each plugin against the App, in order.
func (a *App) AddPlugins(plugins ...Plugin) *App {
	for _, p := range plugins {
		a.logger.WithField("plugin", fmt.Sprintf("%T", p)).Debug("Building plugin")
		p.Build(a)
	}
	return a
}

// AddSystem appends a system to the schedule. Systems run in the order they
// were added.
func (a *App) AddSystem(name string, system System) *App {
	a.systems = append(a.systems, &scheduledSystem{name: name, run: system})
	return a
}

// OnPanic registers a hook called with the recovered value when a system
// panics. Hooks run in registration order, then the panic is re-raised.
func (a *App) OnPanic(hook func(recovered any)) *App {
	a.panicHooks = append(a.panicHooks, hook)
	return a
}

// SetRunner replaces the default cycle loop used by Run.
func (a *App) SetRunner(runner Runner) *App {
	a.runner = runner
	return a
}

// Exit asks Run to stop after the current cycle.
func (a *App) Exit() {
	a.exitRequested = true
}

// ExitRequested reports whether Exit has been called.
func (a *App) ExitRequested() bool {
	return a.exitRequested
}

// Update runs one cycle: every scheduled system, in order.
func (a *App) Update() {
	a.cycles++
	for _, s := range a.systems {
		a.runSystem(s)
	}
}

func (a *App) runSystem(s *scheduledSystem) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		a.logger.WithFields(log.Fields{
			"system": s.name,
			"cycle":  a.cycles,
			"panic":  r,
		}).Error("System panicked")
		for _, hook := range a.panicHooks {
			hook(r)
		}
		panic(r)
	}()

	s.run(&SystemContext{app: a, name: s.name, lastRun: s.lastRun})
	s.lastRun = a.world.tick
}

// Run drives the App until ctx is cancelled or Exit is called, then closes
// it. Cancellation is a normal shutdown and is not reported as an error.
// If a system panics, the App is closed before the panic propagates.
func (a *App) Run(ctx context.Context) (err error) {
	defer func() {
		if closeErr := a.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if a.runner != nil {
		return a.runner(ctx, a)
	}
	return a.loop(ctx)
}

func (a *App) loop(ctx context.Context) error {
	var pace <-chan time.Time
	if a.cycleInterval > 0 {
		ticker := time.NewTicker(a.cycleInterval)
		defer ticker.Stop()
		pace = ticker.C
	}

	for !a.exitRequested {
		if ctx.Err() != nil {
			return nil
		}
		if pace != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-pace:
			}
		}
		a.Update()
	}

	a.logger.WithField("cycles", a.cycles).Debug("App exit requested")
	return nil
}

// Close removes every resource in reverse insertion order, closing those
// that implement io.Closer. Only the first call does any work; later calls
// return the first call's result.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		a.closeErr = a.world.drain()
		if a.closeErr != nil {
			a.logger.WithError(a.closeErr).Warn("Errors closing resources")
		}
	})
	return a.closeErr
}
