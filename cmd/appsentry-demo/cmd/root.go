package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/strongdm/appsentry/pkg/appsentry"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "appsentry-demo",
	Short: "Runs a small app that reports a panicking system to Sentry",
	Long: `Runs an app with the appsentry integration and a "Character" context,
then panics in a system so the crash, together with the context, is
reported to Sentry.

Without --sentry-dsn (or SENTRY_DSN) nothing is sent; use
--stderr-transport to print events locally instead.
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := appsentry.ConfigFromViper(viper.GetViper())
		if err != nil {
			return fmt.Errorf("sentry config: %w", err)
		}
		cfg = withTransport(cfg, viper.GetBool("stderr-transport"))

		demo := demoConfig{
			cycles:          viper.GetUint64("cycles"),
			panicAfter:      viper.GetUint64("panic-after"),
			cycleInterval:   viper.GetDuration("cycle-interval"),
			stderrTransport: viper.GetBool("stderr-transport"),
		}

		log.WithFields(log.Fields{
			"release":          cfg.Options().Release,
			"environment":      cfg.Options().Environment,
			"cycles":           demo.cycles,
			"panic-after":      demo.panicAfter,
			"stderr-transport": demo.stderrTransport,
		}).Info("Got config")

		a := newDemoApp(cfg, demo, log.StandardLogger(),
			appsentry.WithDefaultScrubbing(),
			appsentry.WithFingerprinting(),
			appsentry.WithProcessState(),
		)

		if err := a.Run(ctx); err != nil {
			return fmt.Errorf("run app: %w", err)
		}

		log.WithField("cycles", a.Cycles()).Info("Stopped")
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	var logLevel string
	var envFile string

	// General config options
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Set the log level. Valid values: panic, fatal, error, warn, info, debug, trace")
	cobra.CheckErr(viper.BindEnv("log", "APPSENTRY_LOG", "LOG")) // fallback to global config
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Load environment variables from this file if it exists")

	// sentry
	rootCmd.PersistentFlags().String(appsentry.KeyDSN, "", "If specified, configures sentry libraries to capture errors")
	cobra.CheckErr(viper.BindEnv(appsentry.KeyDSN, "APPSENTRY_SENTRY_DSN", "SENTRY_DSN")) // fallback to global config
	rootCmd.PersistentFlags().String(appsentry.KeyRelease, "", "Release reported to Sentry. Defaults to the module path and version of this binary")
	rootCmd.PersistentFlags().String(appsentry.KeyEnvironment, "", "Environment reported to Sentry")
	cobra.CheckErr(viper.BindEnv(appsentry.KeyEnvironment, "APPSENTRY_SENTRY_ENVIRONMENT", "SENTRY_ENVIRONMENT"))
	rootCmd.PersistentFlags().Bool("stderr-transport", false, "Print events to stderr. With a DSN, events are sent to both")

	// demo
	rootCmd.PersistentFlags().Uint64("cycles", 0, "Stop after this many cycles. 0 runs until interrupted")
	rootCmd.PersistentFlags().Uint64("panic-after", 3, "Panic in a system on this cycle. 0 never panics")
	rootCmd.PersistentFlags().Duration("cycle-interval", 0, "Minimum time between cycles")

	// Bind these to viper
	err := viper.BindPFlags(rootCmd.PersistentFlags())
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Fatal("Could not bind flags to viper")
	}

	// Run this before we do anything to set up the loglevel
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := loadDotEnv(envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}

		level := viper.GetString("log")
		if level == "" {
			level = logLevel
		}
		if lvl, err := log.ParseLevel(level); err == nil {
			log.SetLevel(lvl)
		} else {
			log.SetLevel(log.InfoLevel)
			log.WithFields(log.Fields{
				"error": err,
			}).Error("Could not parse log level")
		}

		// Bind flags that haven't been set to the values from viper of we have them
		cmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
			if f.DefValue != "" || f.Changed {
				if err := viper.BindPFlag(f.Name, f); err != nil {
					log.WithFields(log.Fields{
						"error": err,
					}).Fatal("Could not bind flag to viper")
				}
			}
		})
		return nil
	}
}

// initConfig reads in ENV variables if set.
func initConfig() {
	replacer := strings.NewReplacer("-", "_")

	viper.SetEnvKeyReplacer(replacer)
	viper.SetEnvPrefix("APPSENTRY")
	viper.AutomaticEnv() // read in environment variables that match
}

// loadDotEnv loads environment variables from path. If the file does not exist
// it is silently ignored so that .env files remain optional.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
