// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability_test

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/realmgate/internal/observability"
	"github.com/holomush/realmgate/internal/tables"
)

type staticSource struct{}

func (staticSource) Name() string { return "static" }

func (staticSource) Load(context.Context) (tables.Tables, error) {
	return tables.Tables{Credentials: map[string]string{"bob": "dylan"}}, nil
}

func startServer(t *testing.T, ready observability.ReadinessChecker) *observability.Server {
	t.Helper()
	s := observability.NewServer("127.0.0.1:0", ready)
	_, err := s.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s
}

func get(t *testing.T, s *observability.Server, path string) (int, string) {
	t.Helper()
	resp, err := http.Get("http://" + s.Addr() + path)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_ReadinessTracksTablesFreshness(t *testing.T) {
	cache := tables.NewCache(staticSource{}, tables.WithStalenessThreshold(100*time.Millisecond))
	s := startServer(t, func() bool { return cache.Loaded() && !cache.IsStale() })

	status, _ := get(t, s, "/healthz/readiness")
	assert.Equal(t, http.StatusServiceUnavailable, status, "not ready before the first load")

	require.NoError(t, cache.Reload(context.Background()))
	status, body := get(t, s, "/healthz/readiness")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok\n", body)

	assert.Eventually(t, func() bool {
		status, _ := get(t, s, "/healthz/readiness")
		return status == http.StatusServiceUnavailable
	}, 2*time.Second, 20*time.Millisecond, "stale tables must fail readiness")

	status, _ = get(t, s, "/healthz/liveness")
	assert.Equal(t, http.StatusOK, status, "liveness ignores staleness")

	require.NoError(t, cache.Reload(context.Background()))
	status, _ = get(t, s, "/healthz/readiness")
	assert.Equal(t, http.StatusOK, status)
}

func TestServer_MetricsEndpointServesComponentMetrics(t *testing.T) {
	s := startServer(t, nil)
	tables.RegisterMetrics(s.Registry())

	m := s.Metrics()
	m.ObserveRequest("/v1/authenticate", http.StatusOK, time.Millisecond)
	m.ObserveRequest("/v1/authenticate", http.StatusOK, time.Millisecond)
	m.ObserveRequest("/v1/authorize", http.StatusBadRequest, time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/v1/authenticate", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/v1/authorize", "400")), 0)

	status, body := get(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `realmgate_http_requests_total{route="/v1/authenticate",status="200"} 2`)
	assert.Contains(t, body, "realmgate_http_request_duration_seconds")
	assert.Contains(t, body, "realmgate_tables_reload_failures_total")
}

func TestServer_StartStop(t *testing.T) {
	s := observability.NewServer("127.0.0.1:0", nil)
	errCh, err := s.Start()
	require.NoError(t, err)

	_, err = s.Start()
	require.Error(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx), "stop is idempotent")

	select {
	case err, ok := <-errCh:
		if ok {
			assert.NoError(t, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("error channel not closed after stop")
	}
}

func TestMetrics_ObserveRequestNilSafe(t *testing.T) {
	var m *observability.Metrics
	assert.NotPanics(t, func() { m.ObserveRequest("/v1/authorize", http.StatusOK, time.Millisecond) })
}
