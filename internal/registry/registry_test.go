package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pan1c/ephc/internal/service"
)

func TestPutGetDelete(t *testing.T) {
	r := New()
	require.Nil(t, r.Get("account"))

	agg := &service.Aggregate{Name: "account"}
	r.Put("account", agg)
	require.Same(t, agg, r.Get("account"))
	require.Equal(t, 1, r.Len())
	require.Equal(t, []string{"account"}, r.Names())

	r.Delete("account")
	require.Nil(t, r.Get("account"))
	require.Equal(t, 0, r.Len())
}

func TestSnapshotIsACopyOfCurrentValues(t *testing.T) {
	r := New()
	r.Put("a", &service.Aggregate{Name: "a"})
	r.Put("b", &service.Aggregate{Name: "b"})

	snap := r.Snapshot()
	require.Len(t, snap, 2)

	r.Put("c", &service.Aggregate{Name: "c"})
	require.Len(t, snap, 2, "snapshot must not observe later mutations")
}
