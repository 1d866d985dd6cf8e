// Package app provides a minimal single-goroutine application host: a typed
// resource container, plugins, and an ordered per-cycle system schedule.
//
// # Core Components
//
//   - World: stores at most one resource per Go type and tracks a change tick
//     for every insert and mutation
//   - System: a function run once per cycle; it sees resources through a
//     SystemContext that remembers the tick of its previous run
//   - Plugin: configures an App when added
//   - App: owns the World and the schedule, runs cycles, and tears down
//     resources on Close
//
// # Quick Start
//
//	a := app.New()
//	app.Insert(a.World(), Score(0))
//	a.AddSystem("report_score", func(c *app.SystemContext) {
//	    if score, ok := app.Resource[Score](c); ok && score.IsChanged() {
//	        fmt.Println(score.Value)
//	    }
//	})
//	err := a.Run(ctx)
//
// # Change Detection
//
// Every Insert and Mutate advances the World tick and stamps the resource
// with it. A resource is changed for a system when its stamp is newer than
// the tick recorded at the end of that system's previous run. On its first
// run a system sees every existing resource as changed.
package app
