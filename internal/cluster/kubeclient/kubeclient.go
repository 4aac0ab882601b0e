// Package kubeclient implements cluster.Cluster against the apiserver
// in-process, for controllers that run as an in-cluster Deployment rather
// than shelling to a kubectl binary. It resolves a *rest.Config the same
// way the teacher's pkg/kubernetes/configuration.go does (in-cluster
// config first, kubeconfig fallback) and drives a typed
// sigs.k8s.io/controller-runtime client.Client against corev1.Service and
// corev1.Endpoints.
package kubeclient

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/pan1c/ephc/internal/apperrors"
)

// Cluster implements cluster.Cluster using a controller-runtime client.
type Cluster struct {
	Client    client.Client
	Namespace string
}

// ResolveConfig returns a *rest.Config: in-cluster config when running as
// a Pod, otherwise the kubeconfig the standard client-go loading rules
// would pick (optionally overridden by kubeconfigPath/contextName).
func ResolveConfig(kubeconfigPath, contextName string) (*rest.Config, error) {
	if cfg, err := rest.InClusterConfig(); err == nil {
		return cfg, nil
	}
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfigPath != "" {
		rules.ExplicitPath = kubeconfigPath
	}
	overrides := &clientcmd.ConfigOverrides{}
	if contextName != "" {
		overrides.CurrentContext = contextName
	}
	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	if err != nil {
		return nil, apperrors.IOf("resolve kubeconfig", err)
	}
	return cfg, nil
}

// New builds a Cluster from a resolved *rest.Config, scoped to namespace
// (empty means the default client-go "default" namespace, matching the
// teacher's namespaceOrDefault helper).
func New(cfg *rest.Config, namespace string) (*Cluster, error) {
	scheme := runtime.NewScheme()
	if err := corev1.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("register corev1 scheme: %w", err)
	}
	c, err := client.New(cfg, client.Options{Scheme: scheme})
	if err != nil {
		return nil, apperrors.IOf("build controller-runtime client", err)
	}
	if namespace == "" {
		namespace = "default"
	}
	return &Cluster{Client: c, Namespace: namespace}, nil
}

// ListServiceNames lists ClusterIP services in the configured namespace.
func (c *Cluster) ListServiceNames(ctx context.Context) ([]string, error) {
	var svcs corev1.ServiceList
	if err := c.Client.List(ctx, &svcs, client.InNamespace(c.Namespace)); err != nil {
		return nil, apperrors.IOf("list services", err)
	}
	var names []string
	for _, svc := range svcs.Items {
		if svc.Spec.Type == corev1.ServiceTypeClusterIP {
			names = append(names, svc.Name)
		}
	}
	return names, nil
}

// GetEndpoints fetches the Endpoints object for name and serializes it to
// YAML, the common wire form the rest of this module exchanges.
func (c *Cluster) GetEndpoints(ctx context.Context, name string) ([]byte, error) {
	var ep corev1.Endpoints
	if err := c.Client.Get(ctx, types.NamespacedName{Namespace: c.Namespace, Name: name}, &ep); err != nil {
		return nil, apperrors.IOf("get endpoints "+name, err)
	}
	return marshalYAML(&ep)
}

// ApplyEndpoints decodes blob and updates the cluster's Endpoints object,
// returning the resource version the apiserver assigned.
func (c *Cluster) ApplyEndpoints(ctx context.Context, name string, blob []byte) (string, error) {
	var desired corev1.Endpoints
	if err := unmarshalYAML(blob, &desired); err != nil {
		return "", err
	}
	desired.Namespace = c.Namespace
	desired.Name = name

	var current corev1.Endpoints
	err := c.Client.Get(ctx, types.NamespacedName{Namespace: c.Namespace, Name: name}, &current)
	switch {
	case err == nil:
		current.Subsets = desired.Subsets
		if err := c.Client.Update(ctx, &current); err != nil {
			return "", apperrors.IOf("update endpoints "+name, err)
		}
		return current.ResourceVersion, nil
	default:
		desired.ResourceVersion = ""
		if err := c.Client.Create(ctx, &desired); err != nil {
			return "", apperrors.IOf("create endpoints "+name, err)
		}
		return desired.ResourceVersion, nil
	}
}
