package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()

	names := make([]string, 0, len(cmd.Commands()))
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "migrate", "seed"})

	migrate, _, err := cmd.Find([]string{"migrate", "status"})
	require.NoError(t, err)
	assert.Equal(t, "status", migrate.Name())
}

func TestSeedCmd_Flags(t *testing.T) {
	cmd := newRootCmd()
	seedCmd, _, err := cmd.Find([]string{"seed"})
	require.NoError(t, err)

	count, err := seedCmd.Flags().GetInt("count")
	require.NoError(t, err)
	assert.Equal(t, 100, count)

	force, err := seedCmd.Flags().GetBool("force")
	require.NoError(t, err)
	assert.False(t, force)

	rngSeed, err := seedCmd.Flags().GetUint64("seed")
	require.NoError(t, err)
	assert.Zero(t, rngSeed)
}

func TestSeedCmd_RejectsNonPositiveCount(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"seed", "--count", "0"})

	err := cmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--count must be at least 1")
}

func TestServeCmd_RejectsArgs(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"serve", "extra"})

	assert.Error(t, cmd.Execute())
}
