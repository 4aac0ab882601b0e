package endpoint

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestEndpoint() *Endpoint {
	return New(Addr{IP: netip.MustParseAddr("10.0.0.1"), Port: 80}, Stream, Threshold{Restore: 3, Remove: 3})
}

func TestNewIsHealthyWithZeroedCounters(t *testing.T) {
	e := newTestEndpoint()
	require.Equal(t, Healthy, e.Status)
	require.Equal(t, Counter{}, e.Counter)
}

func TestRecordDownDemotesAtThreshold(t *testing.T) {
	e := newTestEndpoint()
	require.False(t, e.RecordDown())
	require.False(t, e.RecordDown())
	require.True(t, e.RecordDown())
	require.Equal(t, uint32(3), e.Counter.Down)
}

func TestRecordUpOnHealthyClearsDownCounter(t *testing.T) {
	e := newTestEndpoint()
	e.RecordDown()
	require.Equal(t, uint32(1), e.Counter.Down)
	require.False(t, e.RecordUp())
	require.Equal(t, uint32(0), e.Counter.Down)
}

func TestRecordUpPromotesAtThresholdOnlyWhenRemoved(t *testing.T) {
	e := newTestEndpoint()
	e.SetStatus(Removed)
	require.False(t, e.RecordUp())
	require.False(t, e.RecordUp())
	require.True(t, e.RecordUp())
	require.Equal(t, uint32(3), e.Counter.Up)
}

func TestRecordDownOnRemovedClearsUpCounter(t *testing.T) {
	e := newTestEndpoint()
	e.SetStatus(Removed)
	e.RecordUp()
	require.Equal(t, uint32(1), e.Counter.Up)
	require.False(t, e.RecordDown())
	require.Equal(t, uint32(0), e.Counter.Up)
}

func TestResetCountersZeroesBoth(t *testing.T) {
	e := newTestEndpoint()
	e.RecordDown()
	e.ResetCounters()
	require.Equal(t, Counter{}, e.Counter)
}

func TestEqualComparesAddrAndProtocol(t *testing.T) {
	a := newTestEndpoint()
	b := New(a.Addr, Stream, Threshold{Restore: 1, Remove: 1})
	require.True(t, a.Equal(b))

	c := New(a.Addr, Datagram, Threshold{Restore: 1, Remove: 1})
	require.False(t, a.Equal(c))
}

func TestParseProtocol(t *testing.T) {
	p, err := ParseProtocol("TCP")
	require.NoError(t, err)
	require.Equal(t, Stream, p)

	p, err = ParseProtocol("UDP")
	require.NoError(t, err)
	require.Equal(t, Datagram, p)

	_, err = ParseProtocol("SCTP")
	require.Error(t, err)
}

func TestAddrString(t *testing.T) {
	a := Addr{IP: netip.MustParseAddr("10.0.0.1"), Port: 8080}
	require.Equal(t, "10.0.0.1:8080", a.String())
}
