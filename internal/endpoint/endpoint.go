// Package endpoint implements the per-address hysteretic state machine:
// Protocol, EndpointStatus, Counter, Threshold and Endpoint, plus the
// RecordUp/RecordDown transitions that drive promotion and demotion.
package endpoint

import (
	"fmt"
	"net/netip"
)

// Protocol is the transport of a backing address. Only Stream endpoints are
// probed; Datagram ones are skipped at ingest.
type Protocol int

const (
	Stream Protocol = iota
	Datagram
)

func (p Protocol) String() string {
	if p == Datagram {
		return "UDP"
	}
	return "TCP"
}

// ParseProtocol maps a document's port protocol string ("TCP"/"UDP") to a
// Protocol. Anything else is an error: the document is malformed.
func ParseProtocol(s string) (Protocol, error) {
	switch s {
	case "TCP":
		return Stream, nil
	case "UDP":
		return Datagram, nil
	default:
		return 0, fmt.Errorf("unknown port protocol %q", s)
	}
}

// Status is the coarse health of an Endpoint.
type Status int

const (
	Healthy Status = iota
	Removed
)

func (s Status) String() string {
	if s == Removed {
		return "Removed"
	}
	return "Healthy"
}

// Counter tallies consecutive same-direction probe outcomes. At most one of
// Up/Down is nonzero at any time, except momentarily after ResetCounters.
type Counter struct {
	Up   uint32
	Down uint32
}

// Threshold is the number of consecutive outcomes required to promote
// (Restore) or demote (Remove) an endpoint. Both must be >= 1.
type Threshold struct {
	Restore uint32
	Remove  uint32
}

// Addr is the host:port backing an Endpoint, kept as a typed IP + port pair
// rather than a bare string so IP comparisons (used throughout Service
// Aggregate mutation) don't need repeated parsing.
type Addr struct {
	IP   netip.Addr
	Port uint16
}

func (a Addr) String() string {
	return fmt.Sprintf("%s:%d", a.IP, a.Port)
}

// Endpoint is one (ip, port, protocol) backing a service, together with its
// health state. Two endpoints are equal iff Addr and Protocol match.
type Endpoint struct {
	Addr      Addr
	Protocol  Protocol
	Status    Status
	Counter   Counter
	Threshold Threshold
}

// New constructs a freshly-ingested Endpoint: Healthy, zeroed counters.
func New(addr Addr, proto Protocol, t Threshold) *Endpoint {
	return &Endpoint{
		Addr:      addr,
		Protocol:  proto,
		Status:    Healthy,
		Threshold: t,
	}
}

// Equal reports whether two endpoints back the same address and protocol.
func (e *Endpoint) Equal(other *Endpoint) bool {
	return e.Addr == other.Addr && e.Protocol == other.Protocol
}

// RecordUp records a successful probe outcome. It returns true iff this
// outcome warrants a transition to Healthy; the caller is responsible for
// applying that transition (SetStatus) and resetting counters at the
// boundary.
func (e *Endpoint) RecordUp() bool {
	if e.Status == Removed {
		e.Counter.Up++
		return e.Counter.Up >= e.Threshold.Restore
	}
	// Already healthy: a success inside a healthy run erases prior flakes.
	e.Counter.Down = 0
	return false
}

// RecordDown records a failed or timed-out probe outcome. It returns true
// iff this outcome warrants a transition to Removed.
func (e *Endpoint) RecordDown() bool {
	if e.Status == Healthy {
		e.Counter.Down++
		return e.Counter.Down >= e.Threshold.Remove
	}
	// Already removed: a failure inside an unhealthy run erases prior
	// half-recoveries.
	e.Counter.Up = 0
	return false
}

// ResetCounters zeroes both tallies, used at a transition boundary.
func (e *Endpoint) ResetCounters() {
	e.Counter.Up = 0
	e.Counter.Down = 0
}

// SetStatus writes status without touching counters.
func (e *Endpoint) SetStatus(s Status) {
	e.Status = s
}
