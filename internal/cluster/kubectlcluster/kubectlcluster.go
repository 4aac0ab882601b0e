// Package kubectlcluster implements cluster.Cluster by shelling out to the
// kubectl binary, exactly as the reference implementation
// (original_source/src/kube/mod.rs: exec/apply_svc/get_svc_repr) does.
// Kubeconfig/context resolution follows the teacher's
// pkg/kubernetes/configuration.go pattern (in-cluster config first,
// kubeconfig fallback via client-go's clientcmd).
package kubectlcluster

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/spf13/afero"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/pan1c/ephc/internal/apperrors"
)

// Cluster shells out to kubectl for every operation.
type Cluster struct {
	// Fs is the filesystem used for the temp file kubectl apply -f reads
	// from. Defaults to the OS filesystem; tests inject a
	// afero.NewMemMapFs() so Apply never touches disk for real.
	Fs afero.Fs
	// Kubeconfig and Context are passed through to kubectl as
	// --kubeconfig/--context when non-empty. Empty means "let kubectl
	// resolve its own default", mirroring in-cluster config when running
	// as a Pod.
	Kubeconfig string
	Context    string
	// Binary overrides the kubectl executable name, for tests.
	Binary string

	runCommand func(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

// New builds a Cluster. kubeconfig/context override the resolved defaults
// when non-empty; pass "" for both to let ResolveKubeconfig pick them.
func New(kubeconfig, context string) *Cluster {
	return &Cluster{
		Fs:         afero.NewOsFs(),
		Kubeconfig: kubeconfig,
		Context:    context,
		Binary:     "kubectl",
	}
}

// ResolveKubeconfig mirrors the teacher's InClusterConfig()/resolveConfig()
// pair: prefer in-cluster config (the controller runs as a Pod with a
// service account), and fall back to the kubeconfig file client-go's
// standard loading rules would pick otherwise. It returns the kubeconfig
// path and context name to pass to kubectl, or ("", "") when in-cluster
// config applies (kubectl auto-detects that on its own, same as any
// client-go program running in a Pod).
func ResolveKubeconfig(overrideKubeconfig, overrideContext string) (kubeconfig, context string) {
	if overrideKubeconfig != "" || overrideContext != "" {
		return overrideKubeconfig, overrideContext
	}
	if _, err := rest.InClusterConfig(); err == nil {
		return "", ""
	}
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	cfg := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{})
	raw, err := cfg.RawConfig()
	if err != nil {
		return "", ""
	}
	return rules.GetDefaultFilename(), raw.CurrentContext
}

func (c *Cluster) args(extra ...string) []string {
	args := []string{}
	if c.Kubeconfig != "" {
		args = append(args, "--kubeconfig", c.Kubeconfig)
	}
	if c.Context != "" {
		args = append(args, "--context", c.Context)
	}
	return append(args, extra...)
}

func (c *Cluster) run(ctx context.Context, args ...string) (string, string, error) {
	if c.runCommand != nil {
		return c.runCommand(ctx, c.Binary, args...)
	}
	cmd := exec.CommandContext(ctx, c.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// ListServiceNames runs "kubectl get svc" and keeps ClusterIP services,
// matching original_source's get_svc_names grep/gawk pipeline.
func (c *Cluster) ListServiceNames(ctx context.Context) ([]string, error) {
	stdout, stderr, err := c.run(ctx, c.args("get", "svc", "-o", "custom-columns=NAME:.metadata.name,TYPE:.spec.type", "--no-headers")...)
	if err != nil {
		return nil, apperrors.IOf("list service names: "+strings.TrimSpace(stderr), err)
	}
	var names []string
	for _, line := range strings.Split(stdout, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 || fields[1] != "ClusterIP" {
			continue
		}
		names = append(names, fields[0])
	}
	return names, nil
}

// GetEndpoints runs "kubectl get ep NAME -o yaml".
func (c *Cluster) GetEndpoints(ctx context.Context, name string) ([]byte, error) {
	stdout, stderr, err := c.run(ctx, c.args("get", "endpoints", name, "-o", "yaml")...)
	if err != nil {
		return nil, apperrors.IOf(fmt.Sprintf("get endpoints %s: %s", name, strings.TrimSpace(stderr)), err)
	}
	return []byte(stdout), nil
}

// ApplyEndpoints writes blob to a temp file via c.Fs and runs
// "kubectl apply -f <file>", then re-fetches the document to read back
// the resource version the apiserver assigned (kubectl apply itself
// doesn't print it in a form worth scraping).
func (c *Cluster) ApplyEndpoints(ctx context.Context, name string, blob []byte) (string, error) {
	path := fmt.Sprintf("/tmp/ephc_%s.yaml", name)
	if err := afero.WriteFile(c.Fs, path, blob, 0o600); err != nil {
		return "", apperrors.IOf("write temp endpoint document", err)
	}
	defer c.Fs.Remove(path)

	_, stderr, err := c.run(ctx, c.args("apply", "-f", path)...)
	if err != nil {
		return "", apperrors.IOf(fmt.Sprintf("apply endpoints %s: %s", name, strings.TrimSpace(stderr)), err)
	}

	applied, err := c.GetEndpoints(ctx, name)
	if err != nil {
		return "", err
	}
	version, err := extractResourceVersion(applied)
	if err != nil {
		return "", err
	}
	return version, nil
}
