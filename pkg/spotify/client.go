package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/rhysemmas/now-playing/pkg/config"
	"github.com/rhysemmas/now-playing/pkg/metrics"
)

const maxImageBytes = 5 << 20

// RateLimitError is an error used when spotify rate limits requests
type RateLimitError struct {
	RetryAfter time.Duration
}

// Error returns the error string for RateLimitError
func (r *RateLimitError) Error() string {
	return fmt.Sprintf("hit rate limit, retry after %v", r.RetryAfter)
}

// StatusError is returned when spotify answers with an unexpected status code
type StatusError struct {
	Code int
	Body string
}

func (s *StatusError) Error() string {
	if s.Body == "" {
		return fmt.Sprintf("got http error code: %d", s.Code)
	}
	return fmt.Sprintf("got http error code: %d, body: %s", s.Code, s.Body)
}

// Client talks to the spotify accounts and web APIs on behalf of a single user.
// It holds no per-request state and is safe for concurrent use.
type Client struct {
	accountsURL string
	apiURL      string
	credentials config.Credentials
	retries     int
	// maxWait bounds both a single rate limit sleep and the total time spent retrying
	maxWait time.Duration

	httpClient *http.Client
	newBackOff func() backoff.BackOff
	logger     *zap.SugaredLogger
	metrics    *metrics.Metrics
}

// NewClient creates a new spotify client from cfg. m may be nil.
func NewClient(cfg config.Config, logger *zap.SugaredLogger, m *metrics.Metrics) *Client {
	maxWait := cfg.UpstreamTimeout
	if maxWait <= 0 {
		maxWait = config.DefaultUpstreamTimeout
	}

	return &Client{
		accountsURL: strings.TrimRight(cfg.AccountsURL, "/"),
		apiURL:      strings.TrimRight(cfg.APIURL, "/"),
		credentials: cfg.Credentials,
		retries:     cfg.RateLimitRetries,
		maxWait:     maxWait,
		httpClient:  &http.Client{Timeout: maxWait},
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxInterval = maxWait
			b.MaxElapsedTime = maxWait
			return b
		},
		logger:  logger,
		metrics: m,
	}
}

// CurrentlyPlaying refreshes an access token and gets what the user is playing.
// A 204 from spotify gives back the empty Snapshot. A body that is not a currently
// playing object is not an error, it comes back as a Snapshot with Err set.
func (c *Client) CurrentlyPlaying(ctx context.Context) (Snapshot, error) {
	token, err := c.RefreshToken(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	q := url.Values{"additional_types": {"track,episode"}}
	endpoint := c.apiURL + "/me/player/currently-playing?" + q.Encode()

	var body []byte
	err = c.retryAPICall(ctx, "getting currently playing", func() (err error) {
		body, err = c.get(ctx, "currently_playing", endpoint, token)
		return err
	})
	if err != nil {
		return Snapshot{}, err
	}

	return ParseSnapshot(body), nil
}

// RecentlyPlayed refreshes an access token and gets the user's last 10 played tracks.
// A 204 from spotify gives back an empty RecentlyPlayed.
func (c *Client) RecentlyPlayed(ctx context.Context) (RecentlyPlayed, error) {
	var r RecentlyPlayed

	token, err := c.RefreshToken(ctx)
	if err != nil {
		return r, err
	}

	q := url.Values{"limit": {"10"}}
	endpoint := c.apiURL + "/me/player/recently-played?" + q.Encode()

	err = c.retryAPICall(ctx, "getting recently played", func() error {
		return c.getJSON(ctx, "recently_played", endpoint, token, &r)
	})

	return r, err
}

// FetchImage downloads artwork, returning the bytes and the content type spotify's CDN reported
func (c *Client) FetchImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	var (
		data        []byte
		contentType string
	)

	err := c.retryAPICall(ctx, "fetching image", func() (err error) {
		start := time.Now()
		defer func() { c.metrics.ObserveUpstream("image", start, err) }()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
		if err != nil {
			return fmt.Errorf("error creating http request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("error making image request: %w", err)
		}
		defer resp.Body.Close()

		if err := checkStatus(resp); err != nil {
			return err
		}

		data, err = io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
		if err != nil {
			return fmt.Errorf("error reading image body: %w", err)
		}
		contentType = resp.Header.Get("Content-Type")

		return nil
	})

	return data, contentType, err
}

// getJSON makes an authorised GET and decodes the body into v, leaving v untouched on a 204
func (c *Client) getJSON(ctx context.Context, name, endpoint, token string, v interface{}) error {
	body, err := c.get(ctx, name, endpoint, token)
	if err != nil || body == nil {
		return err
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("error occured trying to read response body: %w", err)
	}

	return nil
}

// get makes an authorised GET and returns the body, which is nil on a 204
func (c *Client) get(ctx context.Context, name, endpoint, token string) (body []byte, err error) {
	start := time.Now()
	defer func() { c.metrics.ObserveUpstream(name, start, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating http request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	c.logger.Debugw("making spotify request", "endpoint", name)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making %s request: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		c.logger.Debugw("spotify returned no content", "endpoint", name)
		return nil, nil
	}

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading %s response body: %w", name, err)
	}

	return body, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return nil
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(v); err == nil {
		if until := time.Until(when); until > 0 {
			return until
		}
	}
	return 0
}

// rateLimitBackOff waits at least as long as spotify last asked us to, but never longer than max
type rateLimitBackOff struct {
	backoff.BackOff
	wait time.Duration
	max  time.Duration
}

func (b *rateLimitBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return backoff.Stop
	}
	if b.wait > next {
		next = b.wait
	}
	if next > b.max {
		next = b.max
	}
	return next
}

// retryAPICall retries operation while spotify rate limits us, up to the configured number of retries.
// Any other error, or a rate limit asking us to wait longer than maxWait, is returned straight away.
func (c *Client) retryAPICall(ctx context.Context, action string, operation func() error) error {
	rl := &rateLimitBackOff{BackOff: c.newBackOff(), max: c.maxWait}
	policy := backoff.WithContext(backoff.WithMaxRetries(rl, uint64(c.retries)), ctx)

	err := backoff.RetryNotify(func() error {
		err := operation()
		var rateLimited *RateLimitError
		if errors.As(err, &rateLimited) {
			if rateLimited.RetryAfter > c.maxWait {
				c.logger.Warnw("rate limited for longer than we are willing to wait, giving up", "action", action, "retry_after", rateLimited.RetryAfter)
				return backoff.Permanent(err)
			}
			rl.wait = rateLimited.RetryAfter
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, policy, func(err error, wait time.Duration) {
		c.logger.Warnw("got rate limit error, sleeping before trying again", "action", action, "wait", wait)
	})
	if err != nil {
		return fmt.Errorf("error %s: %w", action, err)
	}

	return nil
}
