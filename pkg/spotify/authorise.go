package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// RefreshToken exchanges the configured refresh token for a new access token.
// Tokens are never cached, every call goes to the accounts service.
func (c *Client) RefreshToken(ctx context.Context) (string, error) {
	conf := &oauth2.Config{
		ClientID:     c.credentials.ClientID,
		ClientSecret: c.credentials.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.accountsURL + "/api/token",
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	var token *oauth2.Token
	err := c.retryAPICall(ctx, "refreshing token", func() (err error) {
		start := time.Now()
		defer func() { c.metrics.ObserveUpstream("token", start, err) }()

		c.logger.Debugw("refreshing token")
		token, err = conf.TokenSource(ctx, &oauth2.Token{RefreshToken: c.credentials.RefreshToken}).Token()

		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil && retrieveErr.Response.StatusCode == http.StatusTooManyRequests {
			return &RateLimitError{RetryAfter: parseRetryAfter(retrieveErr.Response.Header.Get("Retry-After"))}
		}
		return err
	})
	if err != nil {
		return "", err
	}

	if token.AccessToken == "" {
		return "", fmt.Errorf("error refreshing token: response had no access token")
	}

	return token.AccessToken, nil
}
