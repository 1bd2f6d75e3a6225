package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"score", "whatif", "batch", "serve", "runs"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "maskrisk", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestScoringCommands_SharedFlags(t *testing.T) {
	for _, cmd := range []string{"score", "whatif", "batch"} {
		c, _, err := rootCmd.Find([]string{cmd})
		require.NoError(t, err)
		for _, name := range []string{"face-width", "threshold", "share-endpoints", "output"} {
			assert.NotNil(t, c.Flags().Lookup(name), "%s should have --%s", cmd, name)
		}
	}
}

func TestScoreCommand_Flags(t *testing.T) {
	for _, name := range []string{"format", "overlay", "save"} {
		assert.NotNil(t, scoreCmd.Flags().Lookup(name), "score should have --%s", name)
	}
	assert.Equal(t, "table", scoreCmd.Flags().Lookup("format").DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["show"])

	for _, name := range []string{"tier", "source", "limit", "offset"} {
		assert.NotNil(t, runsListCmd.Flags().Lookup(name), "runs list should have --%s", name)
	}
}
