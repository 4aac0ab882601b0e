// Package probe implements the probe loop: on each tick, snapshot the
// registry, fan out across services and their endpoints, dial each
// address bounded by connection_timeout, and feed the outcome into the
// endpoint state machine and Service Aggregate mutations, exactly as
// spec §4.4 describes.
package probe

import (
	"context"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"github.com/pan1c/ephc/internal/config"
	"github.com/pan1c/ephc/internal/endpoint"
	"github.com/pan1c/ephc/internal/registry"
	"github.com/pan1c/ephc/internal/service"
)

// Dialer is the subset of net.Dialer this package needs, so tests can
// substitute a fake without opening real sockets.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Loop owns the periodic probe cycle against one registry.
type Loop struct {
	Registry *registry.Registry
	Config   *config.Config
	Dialer   Dialer
	Clock    clock.Clock
	Log      *logrus.Entry
}

// New builds a Loop with a real TCP dialer and clock.
func New(reg *registry.Registry, cfg *config.Config, log *logrus.Entry) *Loop {
	return &Loop{
		Registry: reg,
		Config:   cfg,
		Dialer:   &net.Dialer{},
		Clock:    clock.RealClock{},
		Log:      log.WithField("loop", "probe"),
	}
}

// Run ticks every Config.ProbeInterval until ctx is canceled.
func (l *Loop) Run(ctx context.Context) {
	ticker := l.Clock.NewTicker(l.Config.ProbeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			l.Tick(ctx)
		}
	}
}

// Tick probes every aggregate currently in the registry. Each service is
// probed in its own goroutine; a slow or wedged service does not block
// others. Tick returns once every service's probes have finished.
func (l *Loop) Tick(ctx context.Context) {
	var wg sync.WaitGroup
	for _, agg := range l.Registry.Snapshot() {
		wg.Add(1)
		go func(agg *service.Aggregate) {
			defer wg.Done()
			l.probeService(ctx, agg)
		}(agg)
	}
	wg.Wait()
}

// probeService implements spec §4.4's probe_service. If the aggregate's
// lock is held by another goroutine when its turn comes, this tick skips
// the service entirely rather than queuing behind it. Ticks themselves do
// not overlap: Run calls Tick synchronously and Tick waits for every
// probe, so the lock is never held by the previous tick's probes.
func (l *Loop) probeService(ctx context.Context, agg *service.Aggregate) {
	if !agg.TryLock() {
		l.Log.WithField("service", agg.Name).Debug("previous tick still in flight, skipping")
		return
	}
	agg.Unlock()

	agg.RLock()
	n := len(agg.Endpoints)
	agg.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			l.probeOne(gctx, agg, i)
			return nil
		})
	}
	_ = g.Wait()
}

func (l *Loop) probeOne(ctx context.Context, agg *service.Aggregate, i int) {
	agg.Lock()
	defer agg.Unlock()

	ep := agg.Endpoints[i]
	addr := ep.Addr

	dialCtx, cancel := context.WithTimeout(ctx, l.Config.ConnectionTimeout)
	defer cancel()

	conn, err := l.Dialer.DialContext(dialCtx, networkFor(ep.Protocol), addr.String())
	if err == nil {
		conn.Close()
	}

	log := l.Log.WithField("service", agg.Name).WithField("addr", addr.String())
	if err == nil {
		if ep.RecordUp() {
			if rerr := agg.RestoreEndpoint(ctx, i); rerr != nil {
				log.WithError(rerr).Error("restore failed, will retry next tick")
			}
		}
		return
	}

	log.WithError(err).Debug("probe failed")
	if ep.RecordDown() {
		if rerr := agg.RemoveEndpoint(ctx, i); rerr != nil {
			log.WithError(rerr).Error("remove failed, will retry next tick")
		}
	}
}

func networkFor(p endpoint.Protocol) string {
	if p == endpoint.Datagram {
		return "udp"
	}
	return "tcp"
}
