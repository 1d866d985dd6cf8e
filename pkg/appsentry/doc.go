// Package appsentry reports errors and crashes of an app.App to Sentry.
//
// The integration is added to an app as a plugin. It reads its client
// configuration from a Config resource, initializes the Sentry SDK once, and
// keeps Sentry's scope in sync with typed context resources so that every
// event carries the latest application state.
//
// # Core Components
//
//   - Config: Sentry client options supplied by the host as a resource
//   - Integration: the plugin; initializes the SDK and schedules context sync
//   - Context[T]: a named key/value context; T is a marker type that keeps
//     several contexts apart as distinct resources
//   - Handle: the live SDK guard; flushes and shuts the client down exactly
//     once when the app tears down its resources
//   - Scrubber: redacts secrets and PII from events with fail-closed behavior
//
// # Quick Start
//
//	a := app.New()
//	app.Insert(a.World(), appsentry.NewConfig(dsn, sentry.ClientOptions{
//	    Release: appsentry.ReleaseName(),
//	}))
//
//	character := appsentry.NewContext[Character]("Character", map[string]any{
//	    "name": "Nikl",
//	})
//	integration := appsentry.New(appsentry.WithDefaultScrubbing())
//	appsentry.RegisterContext(integration, &character)
//	a.AddPlugins(integration)
//
//	err := a.Run(ctx)
//
// Systems update a context by inserting or mutating its resource; the new
// values are pushed to the scope the next time its sync system runs:
//
//	app.Mutate(w, func(c *appsentry.Context[Character]) { c.Set("age", 39) })
//
// # Failure Behavior
//
//   - A missing Config or a client that fails to initialize is logged once;
//     the app keeps running without error reporting
//   - A panicking system is reported and flushed before the panic continues
//   - Goroutines outside the schedule report panics with defer Handle.Recover()
package appsentry
