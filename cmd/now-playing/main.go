package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rhysemmas/now-playing/pkg/app"
	"github.com/rhysemmas/now-playing/pkg/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags config.Config

	cmd := &cobra.Command{
		Use:           "now-playing",
		Short:         "Serve an SVG badge of what is playing on Spotify",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cfg = overlayFlags(cmd, cfg, flags)
			if err := cfg.Validate(); err != nil {
				return err
			}

			return exec(cmd, cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.Address, "address", config.DefaultAddress, "Address to serve badges on, defaults to value of ADDRESS env var")
	f.StringVar(&flags.MetricsAddress, "metrics-address", "", "Address to serve /metrics and /status on, disabled when empty, defaults to value of METRICS_ADDRESS env var")
	f.StringVar(&flags.IdlePolicy, "idle-policy", config.IdlePolicySchedule, "Idle image policy, schedule or static, defaults to value of IDLE_POLICY env var")
	f.IntVar(&flags.IdleOffsetHours, "idle-utc-offset", config.DefaultIdleOffsetHours, "UTC offset in hours used to pick the idle image, defaults to value of IDLE_UTC_OFFSET_HOURS env var")
	f.DurationVar(&flags.UpstreamTimeout, "upstream-timeout", config.DefaultUpstreamTimeout, "Timeout for each call to Spotify, defaults to value of UPSTREAM_TIMEOUT env var")
	f.IntVar(&flags.RateLimitRetries, "rate-limit-retries", config.DefaultRateLimitRetries, "Retries when Spotify rate limits a call, defaults to value of RATE_LIMIT_RETRIES env var")
	f.StringVar(&flags.LogLevel, "log-level", config.DefaultLogLevel, "Log level, defaults to value of LOG_LEVEL env var")

	return cmd
}

// overlayFlags applies flags the user set explicitly on top of the environment config
func overlayFlags(cmd *cobra.Command, cfg, flags config.Config) config.Config {
	f := cmd.Flags()
	if f.Changed("address") {
		cfg.Address = flags.Address
	}
	if f.Changed("metrics-address") {
		cfg.MetricsAddress = flags.MetricsAddress
	}
	if f.Changed("idle-policy") {
		cfg.IdlePolicy = flags.IdlePolicy
	}
	if f.Changed("idle-utc-offset") {
		cfg.IdleOffsetHours = flags.IdleOffsetHours
	}
	if f.Changed("upstream-timeout") {
		cfg.UpstreamTimeout = flags.UpstreamTimeout
	}
	if f.Changed("rate-limit-retries") {
		cfg.RateLimitRetries = flags.RateLimitRetries
	}
	if f.Changed("log-level") {
		cfg.LogLevel = flags.LogLevel
	}
	return cfg
}

func exec(cmd *cobra.Command, cfg config.Config) error {
	logger, err := initialiseLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("unable to initialise logger, %w", err)
	}
	defer logger.Sync()

	return app.Run(cmd.Context(), logger, cfg)
}

func initialiseLogger(level string) (*zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)

	l, err := zc.Build()
	if err != nil {
		return nil, err
	}

	return l.Sugar(), nil
}
