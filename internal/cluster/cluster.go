// Package cluster defines the Cluster interface the refresh loop and
// Service Aggregate mutations use to talk to the authoritative cluster
// store: list service names, fetch an endpoint document, and apply one
// back. Two implementations live in the kubectlcluster and kubeclient
// subpackages; any transport can satisfy this interface.
package cluster

import "context"

// Cluster is the abstract collaborator spec.md §6 describes.
type Cluster interface {
	// ListServiceNames returns every ClusterIP service name in the
	// namespace the implementation is scoped to (headless/ExternalName
	// services have no Endpoints object for this controller to manage).
	ListServiceNames(ctx context.Context) ([]string, error)
	// GetEndpoints fetches the serialized endpoint document for name.
	GetEndpoints(ctx context.Context, name string) ([]byte, error)
	// ApplyEndpoints writes blob as the new endpoint document for name
	// and returns the resource-version token the cluster assigned.
	ApplyEndpoints(ctx context.Context, name string, blob []byte) (string, error)
}
