// Package config holds the frozen configuration record assembled once at
// startup from CLI flags and environment overrides, plus the validation
// that makes bad configuration a fatal startup error rather than a
// runtime surprise (spec §7).
package config

import (
	"fmt"
	"time"

	"github.com/pan1c/ephc/internal/endpoint"
)

// ClusterBackend selects which cluster.Cluster implementation to build.
type ClusterBackend string

const (
	KubectlBackend  ClusterBackend = "kubectl"
	ClientGoBackend ClusterBackend = "client-go"
)

// Defaults, per spec §6: refresh=1s, probe=1000ms, timeout=100ms,
// restore=3, remove=3.
const (
	DefaultRefreshInterval   = time.Second
	DefaultProbeInterval     = time.Second
	DefaultConnectionTimeout = 100 * time.Millisecond
	DefaultRestoreThreshold  = 3
	DefaultRemoveThreshold   = 3
)

// DefaultBlockList is the working-set block list applied when no allow
// list is given and the operator hasn't overridden it: the controller's
// own backing "kubernetes" service should never be health-checked.
var DefaultBlockList = []string{"kubernetes"}

// Config is the immutable configuration record the loops run against,
// the Go analogue of the Rust original's AppOpt.
type Config struct {
	AllowList []string
	BlockList []string

	RefreshInterval   time.Duration
	ProbeInterval     time.Duration
	ConnectionTimeout time.Duration

	Threshold endpoint.Threshold

	ClusterName string
	AlertURL    string

	ClusterBackend ClusterBackend
	Kubeconfig     string
	Context        string

	LogLevel string
}

// New returns a Config seeded with spec defaults; callers override fields
// from flags before calling Validate.
func New() *Config {
	return &Config{
		BlockList:         append([]string(nil), DefaultBlockList...),
		RefreshInterval:   DefaultRefreshInterval,
		ProbeInterval:     DefaultProbeInterval,
		ConnectionTimeout: DefaultConnectionTimeout,
		Threshold: endpoint.Threshold{
			Restore: DefaultRestoreThreshold,
			Remove:  DefaultRemoveThreshold,
		},
		ClusterBackend: KubectlBackend,
		LogLevel:       "info",
	}
}

// Validate rejects configuration that spec §7 says must be a fatal
// startup error: zero thresholds, or both allow_list and block_list set
// explicitly (ambiguous working-set intent).
func (c *Config) Validate() error {
	if c.Threshold.Restore == 0 {
		return fmt.Errorf("config: restore threshold must be >= 1")
	}
	if c.Threshold.Remove == 0 {
		return fmt.Errorf("config: remove threshold must be >= 1")
	}
	if len(c.AllowList) > 0 && !blockListIsDefault(c.BlockList) {
		return fmt.Errorf("config: allow_list and an explicit block_list are mutually exclusive")
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("config: refresh_interval must be > 0")
	}
	if c.ProbeInterval <= 0 {
		return fmt.Errorf("config: probe_interval must be > 0")
	}
	if c.ConnectionTimeout <= 0 {
		return fmt.Errorf("config: connection_timeout must be > 0")
	}
	switch c.ClusterBackend {
	case KubectlBackend, ClientGoBackend:
	default:
		return fmt.Errorf("config: unknown cluster backend %q", c.ClusterBackend)
	}
	return nil
}

func blockListIsDefault(list []string) bool {
	if len(list) != len(DefaultBlockList) {
		return false
	}
	for i, v := range list {
		if v != DefaultBlockList[i] {
			return false
		}
	}
	return true
}

// WorkingSet computes the set of service names the refresh loop should
// track, given the full list of cluster service names.
func (c *Config) WorkingSet(clusterNames []string) []string {
	if len(c.AllowList) > 0 {
		return append([]string(nil), c.AllowList...)
	}
	blocked := make(map[string]bool, len(c.BlockList))
	for _, name := range c.BlockList {
		blocked[name] = true
	}
	var out []string
	for _, name := range clusterNames {
		if !blocked[name] {
			out = append(out, name)
		}
	}
	return out
}
