// Package healthz exposes liveness/readiness HTTP endpoints for the
// controller process, adapted from the teacher's pkg/health package.
// Liveness only proves the process is scheduled and answering HTTP.
// Readiness is domain-specific: it is true only once the refresh loop
// has completed its first tick AND the registry it populated actually
// holds at least one tracked service, mirroring how
// k3s's server/handlers.Readyz refuses ready until control.Runtime.Core
// is actually non-nil rather than trusting a bare external flag.
package healthz

import (
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
)

// Registry is the subset of *registry.Registry this package depends on.
// Declared locally (rather than importing internal/registry) to keep the
// dependency one-directional and this package testable against a fake.
type Registry interface {
	Len() int
}

// Checker tracks controller readiness.
type Checker struct {
	tickDone atomic.Bool
	registry Registry
}

// NewChecker returns a Checker that starts not-ready. reg may be nil, in
// which case readiness depends only on the first tick completing.
func NewChecker(reg Registry) *Checker {
	return &Checker{registry: reg}
}

// SetReady records that the refresh loop's first tick has completed.
// The name is kept from the teacher's flag-flip API, but it no longer
// fully determines readiness: IsReady additionally requires the
// registry to actually hold a tracked service.
func (c *Checker) SetReady(ready bool) {
	c.tickDone.Store(ready)
}

// IsReady reports whether the controller is ready to be counted on by a
// load balancer: the first refresh tick must have completed, and the
// registry it populated must actually have at least one tracked
// service. A tick that completed against an empty working set (nothing
// matched --allow/--block) is not "ready" in any useful sense, since
// there is nothing for the probe loop to be protecting yet.
func (c *Checker) IsReady() bool {
	if !c.tickDone.Load() {
		return false
	}
	if c.registry == nil {
		return true
	}
	return c.registry.Len() > 0
}

// LivenessHandler always reports ok: it only proves the process is
// scheduled and responding to HTTP.
func (c *Checker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := []byte("ok")
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	})
}

// ReadinessHandler reports ok, plus the number of services the registry
// currently tracks, once IsReady. It reports service unavailable
// otherwise.
func (c *Checker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var data []byte
		status := http.StatusServiceUnavailable
		if c.IsReady() {
			data = []byte(fmt.Sprintf("ok (%d services)", c.registryLen()))
			status = http.StatusOK
		} else {
			data = []byte("not ready")
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(status)
		w.Write(data)
	})
}

func (c *Checker) registryLen() int {
	if c.registry == nil {
		return 0
	}
	return c.registry.Len()
}

// AttachEndpoints registers /healthz and /readyz on mux.
func AttachEndpoints(mux *http.ServeMux, checker *Checker) {
	mux.Handle("/healthz", checker.LivenessHandler())
	mux.Handle("/readyz", checker.ReadinessHandler())
}
