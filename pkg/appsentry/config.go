// config.go provides the Config resource consumed by Integration.Build.

package appsentry

import (
	"fmt"
	"runtime/debug"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/viper"
)

// Config carries sentry client options into an app.App.
//
// Insert it as a resource before adding the Integration. It is removed from
// the app during Build.
type Config struct {
	options sentry.ClientOptions
}

// ConfigFromOptions wraps options verbatim. No validation happens here;
// sentry-go validates options when the client is created.
func ConfigFromOptions(options sentry.ClientOptions) Config {
	return Config{options: options}
}

// NewConfig wraps options with dsn as the client DSN.
func NewConfig(dsn string, options sentry.ClientOptions) Config {
	options.Dsn = dsn
	return Config{options: options}
}

// Options returns the wrapped client options.
func (c Config) Options() sentry.ClientOptions {
	return c.options
}

// Viper keys read by ConfigFromViper.
const (
	KeyDSN              = "sentry-dsn"
	KeyRelease          = "sentry-release"
	KeyEnvironment      = "sentry-environment"
	KeyServerName       = "sentry-server-name"
	KeySampleRate       = "sentry-sample-rate"
	KeyTracesSampleRate = "sentry-traces-sample-rate"
	KeyDebug            = "sentry-debug"
	KeyAttachStacktrace = "sentry-attach-stacktrace"
)

// ConfigFromViper builds a Config from the sentry-* keys of v.
//
// An unset release falls back to ReleaseName(). An unset sample rate leaves
// sentry-go's default in place. Sample rates outside [0, 1] are rejected.
func ConfigFromViper(v *viper.Viper) (Config, error) {
	options := sentry.ClientOptions{
		Dsn:              v.GetString(KeyDSN),
		Release:          v.GetString(KeyRelease),
		Environment:      v.GetString(KeyEnvironment),
		ServerName:       v.GetString(KeyServerName),
		Debug:            v.GetBool(KeyDebug),
		AttachStacktrace: v.GetBool(KeyAttachStacktrace),
	}

	if options.Release == "" {
		options.Release = ReleaseName()
	}

	if v.IsSet(KeySampleRate) {
		rate, err := sampleRate(v, KeySampleRate)
		if err != nil {
			return Config{}, err
		}
		options.SampleRate = rate
	}

	if v.IsSet(KeyTracesSampleRate) {
		rate, err := sampleRate(v, KeyTracesSampleRate)
		if err != nil {
			return Config{}, err
		}
		options.TracesSampleRate = rate
	}

	return ConfigFromOptions(options), nil
}

func sampleRate(v *viper.Viper, key string) (float64, error) {
	rate := v.GetFloat64(key)
	if rate < 0 || rate > 1 {
		return 0, fmt.Errorf("%s must be between 0 and 1, got %v", key, rate)
	}
	return rate, nil
}

// ReleaseName returns "<main module path>@<version>" for the running binary,
// suitable for ClientOptions.Release. Returns an empty string if build
// information is unavailable.
func ReleaseName() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	return releaseName(info)
}

func releaseName(info *debug.BuildInfo) string {
	path := info.Main.Path
	if path == "" {
		path = info.Path
	}
	if path == "" {
		return ""
	}

	version := info.Main.Version
	if version == "" || version == "(devel)" {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && setting.Value != "" {
				version = setting.Value
				break
			}
		}
	}
	if version == "" {
		version = "(devel)"
	}
	return path + "@" + version
}
