package http

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestAdminRoutes(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("metrics"))
	})
	routes := NewAdminRoutes(metrics)

	for path, want := range map[string]string{"/status": "ok", "/metrics": "metrics"} {
		rr := httptest.NewRecorder()
		routes.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK || rr.Body.String() != want {
			t.Errorf("%s: got %d %q", path, rr.Code, rr.Body.String())
		}
	}
}

func TestAdminRoutesWithoutMetrics(t *testing.T) {
	rr := httptest.NewRecorder()
	NewAdminRoutes(nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 got %d", rr.Code)
	}
}

func TestServerStartAndShutdown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()

	errorCh := make(chan error, 1)
	shutdown := NewServer(addr, NewAdminRoutes(nil), zaptest.NewLogger(t).Sugar()).Start(errorCh)

	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://" + addr + "/status")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never came up: %v", err)
	}
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	shutdown(ctx)

	select {
	case err := <-errorCh:
		t.Errorf("unexpected server error: %v", err)
	default:
	}
}
