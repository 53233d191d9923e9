package netconfig

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWithNoFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)

	cfg, err := Load(flags)
	require.NoError(t, err)
	require.Equal(t, Defaults(), cfg)
}

func TestLoadHonorsExplicitFlagOverride(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	require.NoError(t, flags.Set("max-connections", "8"))
	require.NoError(t, flags.Set("server-name", "arena-1"))

	cfg, err := Load(flags)
	require.NoError(t, err)
	require.Equal(t, 8, cfg.MaxConnections)
	require.Equal(t, "arena-1", cfg.ServerName)
}

func TestLoadHonorsEnvironmentOverride(t *testing.T) {
	t.Setenv("NETSIM_PORT", "9001")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)

	cfg, err := Load(flags)
	require.NoError(t, err)
	require.Equal(t, 9001, cfg.Port)
}
