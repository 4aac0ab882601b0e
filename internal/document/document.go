// Package document implements the endpoint document codec. A
// ServiceDocument wraps the full upstream corev1.Endpoints type (so
// fields the controller doesn't know about round-trip verbatim) together
// with the resource-version token and the original serialized blob
// preserved from first ingest, which the all-down rescue path needs.
package document

import (
	"net/netip"
	"strconv"

	"github.com/pan1c/ephc/internal/apperrors"
	"github.com/pan1c/ephc/internal/endpoint"

	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/yaml"
)

// ServiceDocument is the authoritative representation of a Service's
// endpoints, as fetched from and written to the cluster.
type ServiceDocument struct {
	// Endpoints is the decoded document. Any field kubectl/the apiserver
	// sets that this controller doesn't touch (annotations, labels,
	// creation timestamp, ...) lives here and round-trips on re-encode.
	Endpoints *corev1.Endpoints
	// OriginalBlob is the byte-for-byte document as first ingested, kept
	// for the all-down rescue path (§4.2).
	OriginalBlob []byte
}

// Decode parses blob (YAML or JSON; sigs.k8s.io/yaml accepts both) into a
// ServiceDocument. The returned document's OriginalBlob is blob itself.
func Decode(blob []byte) (*ServiceDocument, error) {
	var ep corev1.Endpoints
	if err := yaml.Unmarshal(blob, &ep); err != nil {
		return nil, apperrors.Codecf("decode endpoint document", err)
	}
	return &ServiceDocument{Endpoints: &ep, OriginalBlob: blob}, nil
}

// Encode serializes the document back to YAML for Apply. Per spec, the
// resourceVersion is never re-emitted on write: the cluster assigns it.
func Encode(doc *ServiceDocument) ([]byte, error) {
	out := doc.Endpoints.DeepCopy()
	out.ResourceVersion = ""
	blob, err := yaml.Marshal(out)
	if err != nil {
		return nil, apperrors.Codecf("encode endpoint document", err)
	}
	return blob, nil
}

// Name returns the document's metadata name.
func (d *ServiceDocument) Name() string { return d.Endpoints.Name }

// ResourceVersion returns the document's opaque version token.
func (d *ServiceDocument) ResourceVersion() string { return d.Endpoints.ResourceVersion }

// CompareVersion compares two opaque resource-version tokens. When both
// parse as unsigned integers they are compared numerically and numeric is
// true: negative means a < b, positive means a > b, zero means equal,
// mirroring strings.Compare/bytes.Compare. Otherwise numeric is false and
// the tokens are compared for equality only: cmp is 0 if they are equal
// and 1 (which must not be treated as ordering) if they are not.
func CompareVersion(a, b string) (cmp int, numeric bool) {
	an, aErr := strconv.ParseUint(a, 10, 64)
	bn, bErr := strconv.ParseUint(b, 10, 64)
	if aErr == nil && bErr == nil {
		switch {
		case an < bn:
			return -1, true
		case an > bn:
			return 1, true
		default:
			return 0, true
		}
	}
	if a == b {
		return 0, false
	}
	// Incomparable and unequal: report as "not equal" without implying an
	// order. Callers that only check cmp == 0 are unaffected.
	return 1, false
}

// FlattenEndpoints flattens a document's subsets x ports x addresses into
// Endpoints, in subset-then-port-then-address order, skipping Datagram
// ports. threshold is applied to every endpoint created.
func FlattenEndpoints(doc *ServiceDocument, threshold endpoint.Threshold) ([]*endpoint.Endpoint, error) {
	var out []*endpoint.Endpoint
	for _, subset := range doc.Endpoints.Subsets {
		for _, port := range subset.Ports {
			proto, err := endpoint.ParseProtocol(string(port.Protocol))
			if err != nil {
				return nil, apperrors.Codecf("unsupported port protocol", err)
			}
			if proto == endpoint.Datagram {
				continue
			}
			for _, addr := range subset.Addresses {
				ip, err := netip.ParseAddr(addr.IP)
				if err != nil {
					return nil, apperrors.Addressf("parse endpoint address "+addr.IP, err)
				}
				out = append(out, endpoint.New(endpoint.Addr{IP: ip, Port: uint16(port.Port)}, proto, threshold))
			}
		}
	}
	return out, nil
}

// RemoveIP removes every address whose IP matches ip from every subset of
// doc, in place.
func RemoveIP(doc *ServiceDocument, ip netip.Addr) {
	for si := range doc.Endpoints.Subsets {
		subset := &doc.Endpoints.Subsets[si]
		kept := subset.Addresses[:0]
		for _, addr := range subset.Addresses {
			parsed, err := netip.ParseAddr(addr.IP)
			if err != nil || parsed != ip {
				kept = append(kept, addr)
			}
		}
		subset.Addresses = kept
	}
}

// FirstSubsetHasIP reports whether the document's first subset already
// lists ip among its addresses.
func FirstSubsetHasIP(doc *ServiceDocument, ip netip.Addr) bool {
	if len(doc.Endpoints.Subsets) == 0 {
		return false
	}
	for _, addr := range doc.Endpoints.Subsets[0].Addresses {
		if parsed, err := netip.ParseAddr(addr.IP); err == nil && parsed == ip {
			return true
		}
	}
	return false
}

// AppendIPToFirstSubset appends ip to the document's first subset address
// list. Callers must have already checked FirstSubsetHasIP is false.
func AppendIPToFirstSubset(doc *ServiceDocument, ip netip.Addr) {
	doc.Endpoints.Subsets[0].Addresses = append(doc.Endpoints.Subsets[0].Addresses, corev1.EndpointAddress{IP: ip.String()})
}

// FirstSubsetAddressCount returns len(doc.Endpoints.Subsets[0].Addresses),
// or 0 if there are no subsets.
func FirstSubsetAddressCount(doc *ServiceDocument) int {
	if len(doc.Endpoints.Subsets) == 0 {
		return 0
	}
	return len(doc.Endpoints.Subsets[0].Addresses)
}
