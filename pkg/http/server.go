package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Server is a struct which contains an http server and logger
type Server struct {
	*http.Server
	logger *zap.SugaredLogger
}

// NewServer returns a server which can be started to run an http server.
// The write timeout leaves room for the three sequential calls to spotify a badge needs.
func NewServer(address string, routes http.Handler, logger *zap.SugaredLogger) *Server {
	srv := &http.Server{
		Addr:              address,
		Handler:           routes,
		WriteTimeout:      time.Second * 45,
		ReadTimeout:       time.Second * 15,
		ReadHeaderTimeout: time.Second * 15,
		IdleTimeout:       time.Second * 60,
	}

	return &Server{
		Server: srv,
		logger: logger,
	}
}

// Start will start the http server
func (s *Server) Start(errorCh chan error) func(context.Context) {
	go func() {
		s.logger.Infow("ready to serve", "address", s.Addr)
		err := s.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			errorCh <- err
		}
	}()

	return func(ctx context.Context) {
		if err := s.Shutdown(ctx); err != nil {
			s.logger.Warnw("error shutting down server", "address", s.Addr, "error", err)
		}
	}
}

// NewAdminRoutes returns a handler serving a readiness check and, when given, metrics
func NewAdminRoutes(metrics http.Handler) http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/status", readinessHandler).Methods("GET")
	if metrics != nil {
		router.Handle("/metrics", metrics).Methods("GET")
	}
	return router
}

func readinessHandler(w http.ResponseWriter, req *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
