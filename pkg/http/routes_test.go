package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/rhysemmas/now-playing/pkg/badge"
	"github.com/rhysemmas/now-playing/pkg/config"
	"github.com/rhysemmas/now-playing/pkg/spotify"
)

// newSpotifyMock serves the token, currently playing and artwork endpoints.
// playing is called with the mock's base URL and returns the status and body for currently playing.
func newSpotifyMock(t *testing.T, playing func(base string) (int, string)) *httptest.Server {
	t.Helper()

	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "T", "token_type": "Bearer", "expires_in": 3600}`))
	})
	mux.HandleFunc("/v1/me/player/currently-playing", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer T" {
			t.Errorf("got Authorization %q, want Bearer T", got)
		}
		status, body := playing(srv.URL)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	})
	mux.HandleFunc("/img1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("album-art"))
	})
	srv = httptest.NewServer(mux)

	return srv
}

func newBadgeServer(t *testing.T, upstream *httptest.Server) *httptest.Server {
	t.Helper()

	logger := zaptest.NewLogger(t).Sugar()
	client := spotify.NewClient(config.Config{
		Credentials:     config.Credentials{ClientID: "id", ClientSecret: "secret", RefreshToken: "refresh"},
		AccountsURL:     upstream.URL,
		APIURL:          upstream.URL + "/v1",
		UpstreamTimeout: 5 * time.Second,
	}, logger, nil)
	renderer := badge.NewRenderer(client, badge.StaticIdle{}, logger, nil)

	return httptest.NewServer(NewRoutes(logger, client, renderer))
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(body)
}

func TestBadgeEndToEnd(t *testing.T) {
	upstream := newSpotifyMock(t, func(base string) (int, string) {
		return http.StatusOK, fmt.Sprintf(`{
			"currently_playing_type": "track",
			"item": {
				"type": "track",
				"name": "Song A",
				"artists": [{"name": "Artist A"}],
				"album": {"images": [{"url": "%[1]s/img0"}, {"url": "%[1]s/img1"}]}
			}
		}`, base)
	})
	defer upstream.Close()
	srv := newBadgeServer(t, upstream)
	defer srv.Close()

	resp, body := get(t, srv.URL+"/")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.StatusCode, body)
	}
	if got := resp.Header.Get("Content-Type"); got != "image/svg+xml" {
		t.Errorf("got Content-Type %q", got)
	}
	if got := resp.Header.Get("Cache-Control"); got != "s-maxage=1" {
		t.Errorf("got Cache-Control %q", got)
	}
	if resp.Header.Get(requestIDHeader) == "" {
		t.Error("expected a request id header")
	}
	for _, want := range []string{"Song A", "Artist A", badge.StatusPlaying, "<div class='bar'></div>", "data:image/jpeg;base64,YWxidW0tYXJ0"} {
		if !strings.Contains(body, want) {
			t.Errorf("badge missing %q", want)
		}
	}
}

func TestBadgeAnyPath(t *testing.T) {
	upstream := newSpotifyMock(t, func(string) (int, string) { return http.StatusNoContent, "" })
	defer upstream.Close()
	srv := newBadgeServer(t, upstream)
	defer srv.Close()

	for _, path := range []string{"/", "/badge.svg", "/some/deep/path?ignored=1"} {
		resp, body := get(t, srv.URL+path)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: expected 200 got %d", path, resp.StatusCode)
		}
		if !strings.Contains(body, badge.NothingPlaying) || !strings.Contains(body, badge.StatusIdle) {
			t.Errorf("%s: expected idle badge", path)
		}
		if strings.Contains(body, "<div class='bar'>") {
			t.Errorf("%s: idle badge should not show the equalizer", path)
		}
	}
}

func TestBadgeOnlyGet(t *testing.T) {
	upstream := newSpotifyMock(t, func(string) (int, string) { return http.StatusNoContent, "" })
	defer upstream.Close()
	srv := newBadgeServer(t, upstream)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/", "text/plain", strings.NewReader("hi"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 got %d", resp.StatusCode)
	}
}

func TestBadgeUpstreamFailure(t *testing.T) {
	upstream := newSpotifyMock(t, func(string) (int, string) {
		return http.StatusUnauthorized, `{"error": {"status": 401, "message": "The access token expired"}}`
	})
	defer upstream.Close()
	srv := newBadgeServer(t, upstream)
	defer srv.Close()

	resp, _ := get(t, srv.URL+"/")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500 got %d", resp.StatusCode)
	}
}

func TestBadgeMalformedSnapshotRendersIdle(t *testing.T) {
	for _, body := range []string{`[]`, `{"is_playing": "yes", "item": null}`, `{"progress_ms": "x"}`} {
		t.Run(body, func(t *testing.T) {
			upstream := newSpotifyMock(t, func(string) (int, string) {
				return http.StatusOK, body
			})
			defer upstream.Close()
			srv := newBadgeServer(t, upstream)
			defer srv.Close()

			resp, got := get(t, srv.URL+"/")
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected 200 got %d", resp.StatusCode)
			}
			if !strings.Contains(got, `<div class="song">Nothing Playing</div>`) {
				t.Errorf("expected the idle badge, got %s", got)
			}
		})
	}
}

type fakeFetcher struct{}

func (fakeFetcher) CurrentlyPlaying(context.Context) (spotify.Snapshot, error) {
	return spotify.Snapshot{}, nil
}

type failingRenderer struct{}

func (failingRenderer) Render(context.Context, spotify.Snapshot) ([]byte, error) {
	return nil, errors.New("no template")
}

func TestBadgeRenderFailure(t *testing.T) {
	routes := NewRoutes(zaptest.NewLogger(t).Sugar(), fakeFetcher{}, failingRenderer{})

	rr := httptest.NewRecorder()
	routes.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 got %d", rr.Code)
	}
	if rr.Header().Get("Content-Type") == "image/svg+xml" {
		t.Error("a failed render should not claim to be an svg")
	}
}
