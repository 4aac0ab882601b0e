package kubectlcluster

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func fakeCluster(t *testing.T, responses map[string]string) *Cluster {
	t.Helper()
	c := &Cluster{Fs: afero.NewMemMapFs(), Binary: "kubectl"}
	c.runCommand = func(_ context.Context, _ string, args ...string) (string, string, error) {
		for key, out := range responses {
			if key == args[0] {
				return out, "", nil
			}
		}
		return "", "unexpected args", nil
	}
	return c
}

func TestListServiceNamesFiltersClusterIP(t *testing.T) {
	c := fakeCluster(t, map[string]string{
		"get": "account      ClusterIP\nkubernetes   ClusterIP\nlb-svc       LoadBalancer\n",
	})
	names, err := c.ListServiceNames(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"account", "kubernetes"}, names)
}

func TestApplyEndpointsWritesTempFileAndReadsBackVersion(t *testing.T) {
	c := fakeCluster(t, map[string]string{
		"apply": "endpoints/account configured\n",
		"get":   "apiVersion: v1\nkind: Endpoints\nmetadata:\n  name: account\n  resourceVersion: \"777\"\n",
	})
	version, err := c.ApplyEndpoints(context.Background(), "account", []byte("apiVersion: v1\nkind: Endpoints\n"))
	require.NoError(t, err)
	require.Equal(t, "777", version)

	exists, err := afero.Exists(c.Fs, "/tmp/ephc_account.yaml")
	require.NoError(t, err)
	require.False(t, exists, "temp file should be removed after apply")
}
