// integration.go wires sentry into the app lifecycle.

package appsentry

import (
	"fmt"
	"reflect"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/strongdm/appsentry/pkg/app"
)

// InstanceIDTag is the scope tag carrying the Handle's instance ID.
const InstanceIDTag = "instance_id"

// DefaultFlushTimeout bounds how long Close and panic reporting wait for
// pending events.
const DefaultFlushTimeout = 2 * time.Second

// Option configures an Integration.
type Option func(*integrationConfig)

type integrationConfig struct {
	sdk          SDK
	logger       log.FieldLogger
	flushTimeout time.Duration
	instanceID   string
	scrubber     *Scrubber
	fingerprint  bool
	processState bool
}

// WithSDK sets the SDK the integration starts and configures
// (default: NewHubSDK(nil)).
func WithSDK(sdk SDK) Option {
	return func(c *integrationConfig) {
		c.sdk = sdk
	}
}

// WithLogger sets the logger for setup diagnostics (default: the app's
// logger).
func WithLogger(logger log.FieldLogger) Option {
	return func(c *integrationConfig) {
		c.logger = logger
	}
}

// WithFlushTimeout sets how long to wait for pending events on teardown and
// after a panic (default: DefaultFlushTimeout).
func WithFlushTimeout(d time.Duration) Option {
	return func(c *integrationConfig) {
		if d > 0 {
			c.flushTimeout = d
		}
	}
}

// WithInstanceID sets the value of the instance_id tag (default: a random
// UUID generated at Build).
func WithInstanceID(id string) Option {
	return func(c *integrationConfig) {
		c.instanceID = id
	}
}

// WithScrubber redacts sensitive data from events before they are sent.
func WithScrubber(cfg ScrubberConfig) Option {
	return func(c *integrationConfig) {
		c.scrubber = NewScrubber(cfg)
	}
}

// WithDefaultScrubbing enables scrubbing with production-safe defaults.
func WithDefaultScrubbing() Option {
	return WithScrubber(DefaultScrubberConfig())
}

// WithFingerprinting groups exception events by type and innermost in-app
// frames instead of sentry's default grouping.
func WithFingerprinting() Option {
	return func(c *integrationConfig) {
		c.fingerprint = true
	}
}

// WithProcessState attaches a process_state context captured when each event
// is sent.
func WithProcessState() Option {
	return func(c *integrationConfig) {
		c.processState = true
	}
}

type contextSystem struct {
	name string
	run  app.System
}

// Integration connects an app.App to sentry. Configure it with
// RegisterContext, then add it to the app as a plugin:
//
//	app.Insert(a.World(), appsentry.NewConfig(dsn, sentry.ClientOptions{
//	    Release: appsentry.ReleaseName(),
//	}))
//	integration := appsentry.New()
//	appsentry.RegisterContext(integration, &character)
//	a.AddPlugins(integration)
type Integration struct {
	cfg     *integrationConfig
	systems []contextSystem
	initial []pendingContext
	built   bool
	startAt time.Time
	handle  *Handle
	logger  log.FieldLogger
}

// New creates an Integration with no registered contexts.
func New(opts ...Option) *Integration {
	cfg := &integrationConfig{
		flushTimeout: DefaultFlushTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.sdk == nil {
		cfg.sdk = NewHubSDK(nil)
	}

	return &Integration{cfg: cfg}
}

// RegisterContext registers Context[T] with the integration.
//
// Once the integration is built, a system runs every cycle and, whenever the
// Context[T] resource was inserted or changed since its last run, replaces
// the scope's context under the resource's key. If initial is non-nil it is
// pushed to the scope once, during Build, whether or not a Context[T]
// resource is ever inserted.
//
// Contexts must be registered before the integration is added to the app.
// Later calls log a warning and register nothing.
func RegisterContext[T any](i *Integration, initial *Context[T]) *Integration {
	if i.built {
		i.log().WithField("context", reflect.TypeFor[T]().String()).
			Warn("appsentry integration already built, context not registered")
		return i
	}
	i.systems = append(i.systems, contextSystem{
		name: fmt.Sprintf("appsentry.sync_context[%s]", reflect.TypeFor[T]()),
		run:  syncContext[T](i.cfg.sdk),
	})
	if initial != nil {
		i.initial = append(i.initial, NewContext[T](initial.Key(), initial.values))
	}
	return i
}

// Handle returns the live handle, or nil if the integration was not built
// or could not start the client.
func (i *Integration) Handle() *Handle {
	return i.handle
}

// Build consumes the Config resource, starts the client, and stores the
// resulting *Handle in the app. Without a Config it logs an error and leaves
// the app untouched, so the app runs without error reporting.
//
// Build runs at most once per Integration.
func (i *Integration) Build(a *app.App) {
	if i.logger == nil {
		i.logger = i.cfg.logger
	}
	if i.logger == nil {
		i.logger = a.Logger()
	}
	logger := i.logger

	if i.built {
		logger.Warn("appsentry integration already built, ignoring")
		return
	}
	i.built = true
	i.startAt = time.Now()

	cfg, ok := app.Remove[Config](a.World())
	if !ok {
		logger.Error("Please supply an appsentry.Config as resource")
		return
	}

	guard, err := i.cfg.sdk.Init(i.clientOptions(cfg.Options()))
	if err != nil {
		logger.WithError(err).Error("Could not initialize sentry, error reporting disabled")
		return
	}

	instanceID := i.cfg.instanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}

	i.handle = newHandle(guard, i.cfg.sdk, i.cfg.flushTimeout, instanceID)
	app.Insert(a.World(), i.handle)

	i.cfg.sdk.ConfigureScope(func(scope Scope) {
		scope.SetTag(InstanceIDTag, instanceID)
		for _, c := range i.initial {
			scope.SetContext(c.Key(), c.Values())
		}
	})

	for _, s := range i.systems {
		a.AddSystem(s.name, s.run)
	}
	a.OnPanic(i.handle.reportPanic)

	logger.WithFields(log.Fields{
		"instance_id": instanceID,
		"contexts":    len(i.systems),
		"initial":     len(i.initial),
	}).Debug("Sentry initialized")
}

// log returns the logger resolved at Build, falling back to the configured
// or standard logger before that.
func (i *Integration) log() log.FieldLogger {
	switch {
	case i.logger != nil:
		return i.logger
	case i.cfg.logger != nil:
		return i.cfg.logger
	default:
		return log.StandardLogger()
	}
}

// clientOptions chains the enabled event processors after any BeforeSend
// already present in options.
func (i *Integration) clientOptions(options sentry.ClientOptions) sentry.ClientOptions {
	var processors []sentry.EventProcessor
	if i.cfg.processState {
		processors = append(processors, processStateProcessor(i.startAt))
	}
	if i.cfg.fingerprint {
		processors = append(processors, fingerprintProcessor)
	}
	if i.cfg.scrubber != nil {
		processors = append(processors, i.cfg.scrubber.ScrubEvent)
	}
	if len(processors) == 0 {
		return options
	}

	userBeforeSend := options.BeforeSend
	options.BeforeSend = func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
		if userBeforeSend != nil {
			event = userBeforeSend(event, hint)
		}
		for _, process := range processors {
			if event == nil {
				return nil
			}
			event = process(event, hint)
		}
		return event
	}
	return options
}

// syncContext returns the per-cycle system for Context[T].
func syncContext[T any](sdk SDK) app.System {
	return func(c *app.SystemContext) {
		ref, ok := app.Resource[Context[T]](c)
		if !ok || !ref.IsChanged() {
			return
		}
		sdk.ConfigureScope(func(scope Scope) {
			scope.SetContext(ref.Value.Key(), ref.Value.Values())
		})
	}
}
