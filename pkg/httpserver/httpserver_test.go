package httpserver_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dealersync/integrations/pkg/httpserver"
)

func TestHealthcheckLiveness(t *testing.T) {
	t.Parallel()

	handler := httpserver.Healthcheck(nil)
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ALIVE", rec.Body.String())
}

func TestHealthcheckReadiness(t *testing.T) {
	t.Parallel()

	ok := func(context.Context) error { return nil }
	failing := func(context.Context) error { return errors.New("pool exhausted") }

	log := discardLogger()

	rec := httptest.NewRecorder()
	httpserver.Healthcheck(log, ok, ok)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "READY", rec.Body.String())

	rec = httptest.NewRecorder()
	httpserver.Healthcheck(log, ok, failing)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "NOT_READY", rec.Body.String())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	cfg := httpserver.Config{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- httpserver.Run(ctx, cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}), discardLogger())
	}()

	cancel()
	require.NoError(t, <-done)
}

func TestRunRejectsBusyAddr(t *testing.T) {
	t.Parallel()

	// Occupy a port, then ask the server to bind the same one.
	probe := httptest.NewServer(http.NotFoundHandler())
	defer probe.Close()

	cfg := httpserver.Config{Addr: probe.Listener.Addr().String(), ShutdownTimeout: time.Second}
	err := httpserver.Run(context.Background(), cfg, nil, discardLogger())
	require.ErrorIs(t, err, httpserver.ErrStart)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
