package ops_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdelaire/openbot/core/ops"
)

type namedOp struct {
	name string
	desc string
}

func (n *namedOp) Name() string                                    { return n.name }
func (n *namedOp) Description() string                             { return n.desc }
func (n *namedOp) Execute(context.Context, string) (string, error) { return "ok", nil }

func opNames(list []ops.Op) []string {
	names := make([]string, len(list))
	for i, op := range list {
		names[i] = op.Name()
	}
	return names
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	reg := ops.NewRegistry()
	require.NoError(t, reg.Register(&namedOp{name: "status"}))

	err := reg.Register(&namedOp{name: "status", desc: "shadow"})
	assert.ErrorIs(t, err, ops.ErrDuplicateOp)
	assert.Contains(t, err.Error(), "status")
	assert.Empty(t, reg.Get("status").Description())
	assert.Nil(t, reg.Get("missing"))
}

func TestRegistryListIsSorted(t *testing.T) {
	reg := ops.NewRegistry()
	assert.Empty(t, reg.List())
	for _, name := range []string{"uptime", "deploy", "help"} {
		require.NoError(t, reg.Register(&namedOp{name: name}))
	}
	assert.Equal(t, []string{"deploy", "help", "uptime"}, opNames(reg.List()))
}

func TestRegistryRemoveOnlyOwnInstance(t *testing.T) {
	reg := ops.NewRegistry()
	first := &namedOp{name: "deploy", desc: "first"}
	require.NoError(t, reg.Register(first))

	assert.False(t, reg.Remove(&namedOp{name: "deploy"}), "different instance with the same name")
	assert.Same(t, first, reg.Get("deploy"))

	assert.True(t, reg.Remove(first))
	assert.False(t, reg.Remove(first))
	assert.Nil(t, reg.Get("deploy"))
}

func TestReloaderLeavesReplacedOpsAlone(t *testing.T) {
	reg := ops.NewRegistry()
	r := ops.NewReloader(reg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r.Apply([]ops.ShellOp{{CmdName: "deploy", Command: "make deploy"}})
	shell := reg.Get("deploy")
	require.IsType(t, &ops.ShellOp{}, shell)

	// Another component takes the name over between reloads.
	require.True(t, reg.Remove(shell))
	builtin := &namedOp{name: "deploy", desc: "built in"}
	require.NoError(t, reg.Register(builtin))

	names := r.Apply([]ops.ShellOp{{CmdName: "deploy", Command: "make deploy2"}})
	assert.Empty(t, names)
	assert.Same(t, builtin, reg.Get("deploy"))

	names = r.Apply(nil)
	assert.Empty(t, names)
	assert.Same(t, builtin, reg.Get("deploy"))
}
