// Package refresh implements the refresh loop: periodically list and
// fetch services from the cluster, ingest each into a Service Aggregate,
// and reconcile the result into the registry by resource-version
// comparison, exactly as spec §4.3 describes.
package refresh

import (
	"context"

	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/pan1c/ephc/internal/alert"
	"github.com/pan1c/ephc/internal/cluster"
	"github.com/pan1c/ephc/internal/config"
	"github.com/pan1c/ephc/internal/document"
	"github.com/pan1c/ephc/internal/healthz"
	"github.com/pan1c/ephc/internal/registry"
	"github.com/pan1c/ephc/internal/service"
)

// Loop owns the periodic list/fetch/reconcile cycle against one cluster
// and registry. Clock is injectable (k8s.io/utils/clock) so tests can
// drive ticks without sleeping.
type Loop struct {
	Cluster  cluster.Cluster
	Registry *registry.Registry
	Config   *config.Config
	Alert    alert.Sink
	Clock    clock.Clock
	Log      *logrus.Entry

	// Ready, if set, is marked ready after the first tick that resolves
	// the working set, regardless of whether every service in it
	// refreshed successfully: the registry has been given its first
	// chance to populate. Ready.IsReady additionally requires the
	// registry to hold at least one service.
	Ready *healthz.Checker
}

// New builds a Loop with a real clock.
func New(cl cluster.Cluster, reg *registry.Registry, cfg *config.Config, sink alert.Sink, log *logrus.Entry) *Loop {
	return &Loop{
		Cluster:  cl,
		Registry: reg,
		Config:   cfg,
		Alert:    sink,
		Clock:    clock.RealClock{},
		Log:      log.WithField("loop", "refresh"),
	}
}

// Run ticks every Config.RefreshInterval until ctx is canceled. It never
// exits on a tick error; per-tick failures are logged and the loop
// continues at the next period.
func (l *Loop) Run(ctx context.Context) {
	ticker := l.Clock.NewTicker(l.Config.RefreshInterval)
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

// Tick runs a single refresh cycle: resolve the working set, fetch and
// ingest each member, and reconcile into the registry.
func (l *Loop) Tick(ctx context.Context) {
	names, err := l.workingSet(ctx)
	if err != nil {
		l.Log.WithError(err).Error("failed to resolve working set, skipping this tick")
		return
	}
	for _, name := range names {
		l.refreshOne(ctx, name)
	}
	if l.Ready != nil {
		l.Ready.SetReady(true)
	}
}

func (l *Loop) workingSet(ctx context.Context) ([]string, error) {
	if len(l.Config.AllowList) > 0 {
		return l.Config.WorkingSet(nil), nil
	}
	clusterNames, err := l.Cluster.ListServiceNames(ctx)
	if err != nil {
		return nil, err
	}
	return l.Config.WorkingSet(clusterNames), nil
}

func (l *Loop) refreshOne(ctx context.Context, name string) {
	log := l.Log.WithField("service", name)

	blob, err := l.Cluster.GetEndpoints(ctx, name)
	if err != nil {
		log.WithError(err).Warn("fetch failed, skipping this tick")
		return
	}

	next, err := service.Ingest(blob, l.Config.Threshold, l.Cluster, l.Alert, l.Config.ClusterName, l.Log)
	if err != nil {
		log.WithError(err).Warn("ingest failed, skipping this tick")
		return
	}
	if next == nil {
		log.Debug("no endpoints after flattening, skipping")
		return
	}

	existing := l.Registry.Get(name)
	if existing == nil {
		l.Registry.Put(name, next)
		log.Info("new service registered")
		return
	}

	existing.RLock()
	oldVersion := existing.OurVersion
	existing.RUnlock()

	cmp, numeric := document.CompareVersion(next.OurVersion, oldVersion)
	switch {
	case numeric && cmp == 0:
		log.Debug("version unchanged")
	case numeric && cmp < 0:
		log.WithField("ours", oldVersion).WithField("cluster", next.OurVersion).
			Error("cluster version regressed, skipping until next tick")
	case numeric && cmp > 0:
		l.Registry.Put(name, next)
		log.WithField("version", next.OurVersion).Info("replaced aggregate, external edit detected")
	default:
		if next.OurVersion != oldVersion {
			l.Registry.Put(name, next)
			log.WithField("version", next.OurVersion).Info("replaced aggregate, version token changed")
		}
	}
}
