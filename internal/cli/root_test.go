package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/waterfall/pkg/buildinfo"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()

	want := []string{"pack", "simulate", "preview", "serve", "chart", "cache", "completion", "version"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if assert.NoError(t, err, name) {
			assert.Equal(t, name, cmd.Name())
		}
	}
}

func TestLayoutFlagsRegistered(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()

	for _, name := range []string{"pack", "simulate", "preview", "serve", "chart"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		for _, flag := range []string{"config", "columns", "spacing", "axis", "cross-extent", "no-cache", "redis"} {
			assert.NotNil(t, cmd.Flags().Lookup(flag), "%s --%s", name, flag)
		}
	}

	sim, _, _ := root.Find([]string{"simulate"})
	assert.NotNil(t, sim.Flags().Lookup("debounce"))
	pack, _, _ := root.Find([]string{"pack"})
	assert.Nil(t, pack.Flags().Lookup("debounce"), "one-shot packing has no debounce")
}

func TestVersionCommand(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version", "--json"})
	require.NoError(t, root.Execute())

	var info buildinfo.Info
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Equal(t, buildinfo.Version, info.Version)
}

func TestCompletionCommand(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"completion", "bash"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "waterfall")

	root.SetArgs([]string{"completion", "tcsh"})
	assert.Error(t, root.Execute())
}
