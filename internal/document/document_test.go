package document

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pan1c/ephc/internal/endpoint"
)

const sample = `
apiVersion: v1
kind: Endpoints
metadata:
  name: account
  resourceVersion: "42"
subsets:
- addresses:
  - ip: 10.0.0.1
  - ip: 10.0.0.2
  ports:
  - port: 80
    protocol: TCP
  - port: 53
    protocol: UDP
`

func TestDecodeRoundTripsUnknownFieldsViaOriginalBlob(t *testing.T) {
	doc, err := Decode([]byte(sample))
	require.NoError(t, err)
	require.Equal(t, "account", doc.Name())
	require.Equal(t, "42", doc.ResourceVersion())
	require.Equal(t, []byte(sample), doc.OriginalBlob)
}

func TestEncodeStripsResourceVersion(t *testing.T) {
	doc, err := Decode([]byte(sample))
	require.NoError(t, err)
	blob, err := Encode(doc)
	require.NoError(t, err)
	require.NotContains(t, string(blob), "resourceVersion")
}

func TestFlattenEndpointsSkipsDatagramPorts(t *testing.T) {
	doc, err := Decode([]byte(sample))
	require.NoError(t, err)
	eps, err := FlattenEndpoints(doc, endpoint.Threshold{Restore: 1, Remove: 1})
	require.NoError(t, err)
	require.Len(t, eps, 2, "only the TCP port x 2 addresses should survive")
	for _, e := range eps {
		require.Equal(t, endpoint.Stream, e.Protocol)
		require.EqualValues(t, 80, e.Addr.Port)
	}
}

func TestFlattenEndpointsRejectsMalformedAddress(t *testing.T) {
	const bad = `
apiVersion: v1
kind: Endpoints
metadata:
  name: account
subsets:
- addresses:
  - ip: not-an-ip
  ports:
  - port: 80
    protocol: TCP
`
	doc, err := Decode([]byte(bad))
	require.NoError(t, err)
	_, err = FlattenEndpoints(doc, endpoint.Threshold{Restore: 1, Remove: 1})
	require.Error(t, err)
}

func TestCompareVersionNumeric(t *testing.T) {
	cmp, numeric := CompareVersion("5", "10")
	require.True(t, numeric)
	require.Less(t, cmp, 0)

	cmp, numeric = CompareVersion("10", "5")
	require.True(t, numeric)
	require.Greater(t, cmp, 0)

	cmp, numeric = CompareVersion("7", "7")
	require.True(t, numeric)
	require.Equal(t, 0, cmp)
}

func TestCompareVersionNonNumericFallsBackToEquality(t *testing.T) {
	cmp, numeric := CompareVersion("abc", "abc")
	require.False(t, numeric)
	require.Equal(t, 0, cmp)

	_, numeric = CompareVersion("abc", "def")
	require.False(t, numeric)
}

func TestRemoveIPFiltersMatchingAddress(t *testing.T) {
	doc, err := Decode([]byte(sample))
	require.NoError(t, err)
	RemoveIP(doc, netip.MustParseAddr("10.0.0.1"))
	require.Equal(t, 1, FirstSubsetAddressCount(doc))
	require.False(t, FirstSubsetHasIP(doc, netip.MustParseAddr("10.0.0.1")))
	require.True(t, FirstSubsetHasIP(doc, netip.MustParseAddr("10.0.0.2")))
}

func TestAppendIPToFirstSubset(t *testing.T) {
	doc, err := Decode([]byte(sample))
	require.NoError(t, err)
	ip := netip.MustParseAddr("10.0.0.9")
	require.False(t, FirstSubsetHasIP(doc, ip))
	AppendIPToFirstSubset(doc, ip)
	require.True(t, FirstSubsetHasIP(doc, ip))
	require.Equal(t, 3, FirstSubsetAddressCount(doc))
}
