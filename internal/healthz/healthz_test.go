package healthz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeRegistry struct{ n int }

func (f fakeRegistry) Len() int { return f.n }

func TestLivenessAlwaysOK(t *testing.T) {
	c := NewChecker(nil)
	rr := httptest.NewRecorder()
	c.LivenessHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestReadinessRequiresBothTickAndNonEmptyRegistry(t *testing.T) {
	c := NewChecker(fakeRegistry{n: 0})
	require.False(t, c.IsReady(), "tick hasn't completed yet")

	c.SetReady(true)
	require.False(t, c.IsReady(), "tick completed but registry is still empty")

	c.registry = fakeRegistry{n: 2}
	require.True(t, c.IsReady())

	rr := httptest.NewRecorder()
	c.ReadinessHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "2 services")
}

func TestReadinessNilRegistryDependsOnlyOnTick(t *testing.T) {
	c := NewChecker(nil)
	rr := httptest.NewRecorder()
	c.ReadinessHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	c.SetReady(true)
	rr = httptest.NewRecorder()
	c.ReadinessHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestAttachEndpointsRegistersBothRoutes(t *testing.T) {
	c := NewChecker(nil)
	mux := http.NewServeMux()
	AttachEndpoints(mux, c)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}
