package http

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/rhysemmas/now-playing/pkg/spotify"
)

// PlaybackFetcher gets the user's current playback
type PlaybackFetcher interface {
	CurrentlyPlaying(ctx context.Context) (spotify.Snapshot, error)
}

// BadgeRenderer turns a snapshot into an SVG document
type BadgeRenderer interface {
	Render(ctx context.Context, snapshot spotify.Snapshot) ([]byte, error)
}

// Routes is a struct containing an http router and logger
type Routes struct {
	*mux.Router
	logger   *zap.SugaredLogger
	fetcher  PlaybackFetcher
	renderer BadgeRenderer
}

// NewRoutes returns an http handler that serves the badge on every path
func NewRoutes(logger *zap.SugaredLogger, fetcher PlaybackFetcher, renderer BadgeRenderer) http.Handler {
	router := mux.NewRouter()
	routes := Routes{
		Router:   router,
		logger:   logger,
		fetcher:  fetcher,
		renderer: renderer,
	}
	routes.setup()

	return routes
}

func (r *Routes) setup() {
	r.Use(r.requestLogger)
	r.PathPrefix("/").HandlerFunc(r.badgeHandler).Methods("GET")
}

// badgeHandler fetches what is playing and renders it, the request path is ignored
func (r *Routes) badgeHandler(w http.ResponseWriter, req *http.Request) {
	logger := r.logger.With("request_id", w.Header().Get(requestIDHeader))

	snapshot, err := r.fetcher.CurrentlyPlaying(req.Context())
	if err != nil {
		logger.Warnw("error occured trying to get currently playing", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	svg, err := r.renderer.Render(req.Context(), snapshot)
	if err != nil {
		logger.Warnw("error occured trying to render badge", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "s-maxage=1")
	w.WriteHeader(http.StatusOK)
	w.Write(svg)
}

const requestIDHeader = "X-Request-Id"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// requestLogger tags each response with a request id and logs it once served
func (r *Routes) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		id := uuid.NewString()
		w.Header().Set(requestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)

		r.logger.Infow("served request",
			"request_id", id,
			"method", req.Method,
			"path", req.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
