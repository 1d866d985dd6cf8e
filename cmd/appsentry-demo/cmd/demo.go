package cmd

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"

	"github.com/strongdm/appsentry/pkg/app"
	"github.com/strongdm/appsentry/pkg/appsentry"
	"github.com/strongdm/appsentry/pkg/appsentry/transports/async"
	"github.com/strongdm/appsentry/pkg/appsentry/transports/multi"
	"github.com/strongdm/appsentry/pkg/appsentry/transports/stderr"
)

// CharacterContext marks the "Character" sentry context.
type CharacterContext struct{}

// NotAResource is never inserted; asking for it panics.
type NotAResource struct{}

type demoConfig struct {
	cycles          uint64
	panicAfter      uint64
	cycleInterval   time.Duration
	stderrTransport bool
}

// withTransport points the client at stderr when requested. With a DSN set,
// events go to both Sentry and stderr. Printing happens off the game loop.
func withTransport(cfg appsentry.Config, toStderr bool) appsentry.Config {
	if !toStderr {
		return cfg
	}
	options := cfg.Options()
	var transport sentry.Transport = async.NewTransport(stderr.NewTransport(stderr.WithVerbose()))
	if options.Dsn != "" {
		transport = multi.NewTransport(sentry.NewHTTPTransport(), transport)
	}
	options.Transport = transport
	return appsentry.ConfigFromOptions(options)
}

// newDemoApp builds the demo: a character context that records the cycle and
// a system that panics once panicAfter cycles have run.
func newDemoApp(cfg appsentry.Config, demo demoConfig, logger log.FieldLogger, opts ...appsentry.Option) *app.App {
	a := app.New(app.WithLogger(logger), app.WithCycleInterval(demo.cycleInterval))
	app.Insert(a.World(), cfg)

	character := appsentry.NewContext[CharacterContext]("Character", map[string]any{
		"name": "Nikl",
		"age":  "38",
	})
	integration := appsentry.New(opts...)
	appsentry.RegisterContext(integration, &character)
	a.AddPlugins(integration)

	app.Insert(a.World(), character)

	a.AddSystem("track_cycle", trackCycle)
	a.AddSystem("cause_panic", causePanic(demo.panicAfter))
	a.AddSystem("stop_after", stopAfter(demo.cycles))
	return a
}

func trackCycle(c *app.SystemContext) {
	app.Mutate(c.World(), func(ctx *appsentry.Context[CharacterContext]) {
		ctx.Set("cycle", c.Cycle())
	})
}

func causePanic(after uint64) app.System {
	return func(c *app.SystemContext) {
		if after == 0 || c.Cycle() < after {
			return
		}
		if _, ok := app.Resource[NotAResource](c); !ok {
			panic(fmt.Sprintf("resource does not exist: %T", NotAResource{}))
		}
	}
}

func stopAfter(cycles uint64) app.System {
	return func(c *app.SystemContext) {
		if cycles > 0 && c.Cycle() >= cycles {
			c.Exit()
		}
	}
}
