// Package service implements the Service Aggregate: the set of endpoints
// backing one Service, its last-known authoritative document, and the
// remove_ep/restore_ep mutations spec §4.2 describes (including the
// sole-endpoint short-circuit, the all-down rescue, and the partial-IP
// healthy-hold rule).
package service

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/pan1c/ephc/internal/alert"
	"github.com/pan1c/ephc/internal/cluster"
	"github.com/pan1c/ephc/internal/document"
	"github.com/pan1c/ephc/internal/endpoint"
)

// Aggregate owns one Service's endpoints plus its authoritative document.
// It embeds a sync.RWMutex: callers mutating endpoints or applying
// documents take the write lock and hold it across the cluster Apply
// call, per spec §5's ordering guarantee; the refresh loop takes the read
// lock only to read Name/OurVersion when diffing.
type Aggregate struct {
	sync.RWMutex

	Name       string
	Endpoints  []*endpoint.Endpoint
	OurVersion string
	Document   *document.ServiceDocument

	cluster     cluster.Cluster
	alert       alert.Sink
	clusterName string
	log         *logrus.Entry
}

// Ingest parses blob into a ServiceDocument, flattens its subsets x ports
// x addresses into Endpoints (skipping Datagram ports with a warning),
// and returns the resulting Aggregate. It returns (nil, nil) when the
// flattened endpoint list is empty, matching spec §4.2's Ingest contract.
// clusterName is the configured --cluster label (spec §3), included in
// every alert this Aggregate sends.
func Ingest(blob []byte, threshold endpoint.Threshold, cl cluster.Cluster, sink alert.Sink, clusterName string, log *logrus.Entry) (*Aggregate, error) {
	doc, err := document.Decode(blob)
	if err != nil {
		return nil, err
	}
	eps, err := document.FlattenEndpoints(doc, threshold)
	if err != nil {
		return nil, err
	}
	for _, subset := range doc.Endpoints.Subsets {
		for _, port := range subset.Ports {
			if p, perr := endpoint.ParseProtocol(string(port.Protocol)); perr == nil && p == endpoint.Datagram {
				log.WithField("service", doc.Name()).WithField("port", port.Port).Warn("skipping datagram port")
			}
		}
	}
	if len(eps) == 0 {
		return nil, nil
	}
	return &Aggregate{
		Name:        doc.Name(),
		Endpoints:   eps,
		OurVersion:  doc.ResourceVersion(),
		Document:    doc,
		cluster:     cl,
		alert:       sink,
		clusterName: clusterName,
		log:         log.WithField("service", doc.Name()),
	}, nil
}

// RemoveEndpoint is called when Endpoints[i] just transitioned to
// Removed. Callers must hold the write lock. It implements spec §4.2's
// remove_ep: alert, then the sole-endpoint short-circuit, then the
// all-down rescue, then the general remove-this-IP path.
func (a *Aggregate) RemoveEndpoint(ctx context.Context, i int) error {
	ep := a.Endpoints[i]
	a.sendAlert(ctx, alert.Message{Kind: alert.EndpointDown, Service: a.Name, Addr: ep.Addr.String()})

	if len(a.Endpoints) <= 1 {
		a.log.WithField("addr", ep.Addr).Info("sole endpoint down, marking unhealthy without cluster mutation")
		ep.ResetCounters()
		ep.SetStatus(endpoint.Removed)
		return nil
	}

	if document.FirstSubsetAddressCount(a.Document) == 1 {
		return a.rescueAllDown(ctx, i)
	}

	return a.removeIP(ctx, i)
}

// rescueAllDown implements the all-down short-circuit: re-apply the
// original document so recovery is instantly observable, while leaving
// every endpoint sharing this IP Removed. A later successful probe's
// RestoreEndpoint call is what flips them back to Healthy, via the
// "document's first subset already contains this IP" short-circuit.
//
// Open question (spec §9) resolved in favor of the reference
// implementation (original_source/src/kube/service.rs) and spec.md's own
// worked scenario S3: every endpoint on the triggering IP is set Removed
// here, not Healthy.
func (a *Aggregate) rescueAllDown(ctx context.Context, i int) error {
	ep := a.Endpoints[i]
	a.sendAlert(ctx, alert.Message{Kind: alert.AllEndpointsDown, Service: a.Name})

	originalDoc, err := document.Decode(a.Document.OriginalBlob)
	if err != nil {
		return err
	}
	blob, err := document.Encode(originalDoc)
	if err != nil {
		return err
	}
	version, err := a.cluster.ApplyEndpoints(ctx, a.Name, blob)
	if err != nil {
		a.log.WithError(err).Error("failed to apply rescue document, will retry next tick")
		return err
	}
	a.Document = originalDoc
	a.OurVersion = version

	for _, other := range a.Endpoints {
		if other.Addr.IP == ep.Addr.IP {
			other.ResetCounters()
			other.SetStatus(endpoint.Removed)
		}
	}
	a.log.Info("all endpoints down, restored original document")
	return nil
}

func (a *Aggregate) removeIP(ctx context.Context, i int) error {
	ep := a.Endpoints[i]
	document.RemoveIP(a.Document, ep.Addr.IP)

	blob, err := document.Encode(a.Document)
	if err != nil {
		return err
	}
	version, err := a.cluster.ApplyEndpoints(ctx, a.Name, blob)
	if err != nil {
		a.log.WithError(err).Error("failed to apply endpoint removal, will retry next tick")
		return err
	}
	a.OurVersion = version

	for _, other := range a.Endpoints {
		if other.Addr.IP == ep.Addr.IP {
			other.ResetCounters()
			other.SetStatus(endpoint.Removed)
		}
	}
	a.log.WithField("addr", ep.Addr).WithField("version", version).Info("endpoint removed")
	return nil
}

// RestoreEndpoint is called when Endpoints[i] just transitioned to
// Healthy. Callers must hold the write lock. It implements spec §4.2's
// restore_ep: alert, the partial-IP healthy-hold, the already-present
// short-circuit, and the append-and-apply path.
func (a *Aggregate) RestoreEndpoint(ctx context.Context, i int) error {
	ep := a.Endpoints[i]
	a.sendAlert(ctx, alert.Message{Kind: alert.EndpointUp, Service: a.Name, Addr: ep.Addr.String()})

	total, healthy := 0, 0
	for _, other := range a.Endpoints {
		if other.Addr.IP != ep.Addr.IP {
			continue
		}
		total++
		if other == ep || other.Status == endpoint.Healthy {
			healthy++
		}
	}
	if healthy < total {
		a.log.WithField("addr", ep.Addr).Debug("one port recovered but siblings on this IP have not, holding")
		ep.ResetCounters()
		ep.SetStatus(endpoint.Healthy)
		return nil
	}

	if document.FirstSubsetHasIP(a.Document, ep.Addr.IP) {
		for _, other := range a.Endpoints {
			if other.Addr.IP == ep.Addr.IP {
				other.ResetCounters()
				other.SetStatus(endpoint.Healthy)
			}
		}
		a.log.WithField("addr", ep.Addr).Info("endpoint restored without changing cluster document")
		return nil
	}

	document.AppendIPToFirstSubset(a.Document, ep.Addr.IP)
	blob, err := document.Encode(a.Document)
	if err != nil {
		return err
	}
	version, err := a.cluster.ApplyEndpoints(ctx, a.Name, blob)
	if err != nil {
		a.log.WithError(err).Error("failed to apply endpoint restoration, will retry next tick")
		return err
	}
	a.OurVersion = version
	ep.ResetCounters()
	ep.SetStatus(endpoint.Healthy)
	a.log.WithField("addr", ep.Addr).WithField("version", version).Info("endpoint restored")
	return nil
}

func (a *Aggregate) sendAlert(ctx context.Context, msg alert.Message) {
	if a.alert == nil {
		return
	}
	msg.Cluster = a.clusterName
	if err := a.alert.Send(ctx, msg); err != nil {
		a.log.WithError(err).Warn("alert send failed")
	}
}
