package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	c := New()
	require.NoError(t, c.Validate())
}

func TestValidateRejectsZeroThresholds(t *testing.T) {
	c := New()
	c.Threshold.Restore = 0
	require.Error(t, c.Validate())
}

func TestValidateRejectsAllowAndExplicitBlock(t *testing.T) {
	c := New()
	c.AllowList = []string{"account"}
	c.BlockList = []string{"kubernetes", "db"}
	require.Error(t, c.Validate())
}

func TestValidateAllowsAllowListWithDefaultBlockList(t *testing.T) {
	c := New()
	c.AllowList = []string{"account"}
	require.NoError(t, c.Validate())
}

func TestWorkingSetAllowList(t *testing.T) {
	c := New()
	c.AllowList = []string{"account", "billing"}
	require.Equal(t, []string{"account", "billing"}, c.WorkingSet([]string{"account", "billing", "kubernetes"}))
}

func TestWorkingSetBlockListDefault(t *testing.T) {
	c := New()
	require.Equal(t, []string{"account", "billing"}, c.WorkingSet([]string{"account", "billing", "kubernetes"}))
}
