package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Idle image policies
const (
	IdlePolicySchedule = "schedule"
	IdlePolicyStatic   = "static"
)

const (
	DefaultAddress          = ":8080"
	DefaultAccountsURL      = "https://accounts.spotify.com"
	DefaultAPIURL           = "https://api.spotify.com/v1"
	DefaultIdleOffsetHours  = -3
	DefaultUpstreamTimeout  = 10 * time.Second
	DefaultRateLimitRetries = 2
	DefaultLogLevel         = "info"
)

// Credentials are the Spotify app and user credentials used to mint access tokens
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Config is built once at startup and passed by value to the components that need it
type Config struct {
	Credentials Credentials

	Address        string
	MetricsAddress string
	AccountsURL    string
	APIURL         string

	IdlePolicy      string
	IdleOffsetHours int

	UpstreamTimeout  time.Duration
	RateLimitRetries int
	LogLevel         string
}

// LookupFunc matches os.LookupEnv
type LookupFunc func(key string) (string, bool)

// Load builds a Config from the environment, reading a .env file first if one exists.
// Missing credentials are not an error here, they surface as auth failures later on.
// Nothing is validated either, so flags can still replace a bad value before Validate is called.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("error loading .env file: %w", err)
	}

	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config using lookup for every variable. Only values that fail to parse are errors.
func FromLookup(lookup LookupFunc) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return def
	}

	c := Config{
		Credentials: Credentials{
			ClientID:     get("SPOTIFY_CLIENT_ID", ""),
			ClientSecret: get("SPOTIFY_SECRET_ID", ""),
			RefreshToken: get("SPOTIFY_REFRESH_TOKEN", ""),
		},
		Address:        get("ADDRESS", DefaultAddress),
		MetricsAddress: get("METRICS_ADDRESS", ""),
		AccountsURL:    get("SPOTIFY_ACCOUNTS_URL", DefaultAccountsURL),
		APIURL:         get("SPOTIFY_API_URL", DefaultAPIURL),
		IdlePolicy:     get("IDLE_POLICY", IdlePolicySchedule),
		LogLevel:       get("LOG_LEVEL", DefaultLogLevel),
	}

	var err error
	if c.IdleOffsetHours, err = strconv.Atoi(get("IDLE_UTC_OFFSET_HOURS", strconv.Itoa(DefaultIdleOffsetHours))); err != nil {
		return Config{}, fmt.Errorf("invalid IDLE_UTC_OFFSET_HOURS: %w", err)
	}
	if c.UpstreamTimeout, err = time.ParseDuration(get("UPSTREAM_TIMEOUT", DefaultUpstreamTimeout.String())); err != nil {
		return Config{}, fmt.Errorf("invalid UPSTREAM_TIMEOUT: %w", err)
	}
	if c.RateLimitRetries, err = strconv.Atoi(get("RATE_LIMIT_RETRIES", strconv.Itoa(DefaultRateLimitRetries))); err != nil {
		return Config{}, fmt.Errorf("invalid RATE_LIMIT_RETRIES: %w", err)
	}

	return c, nil
}

// Validate checks values that would otherwise fail in confusing ways at request time
func (c Config) Validate() error {
	switch c.IdlePolicy {
	case IdlePolicySchedule, IdlePolicyStatic:
	default:
		return fmt.Errorf("unknown idle policy %q, want %q or %q", c.IdlePolicy, IdlePolicySchedule, IdlePolicyStatic)
	}

	if c.IdleOffsetHours < -12 || c.IdleOffsetHours > 14 {
		return fmt.Errorf("idle utc offset %d out of range", c.IdleOffsetHours)
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive, got %v", c.UpstreamTimeout)
	}
	if c.RateLimitRetries < 0 {
		return fmt.Errorf("rate limit retries must not be negative, got %d", c.RateLimitRetries)
	}
	if c.Address == "" {
		return fmt.Errorf("address must not be empty")
	}

	return nil
}
