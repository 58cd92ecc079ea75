package ops_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/jdelaire/openbot/core/ops"
)

func TestReloaderApply(t *testing.T) {
	reg := ops.NewRegistry()
	reg.Register(&ops.HelpOp{Registry: reg})
	r := ops.NewReloader(reg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r.Apply([]ops.ShellOp{
		{CmdName: "cmd1", Desc: "first", Command: "echo 1"},
		{CmdName: "cmd2", Desc: "second", Command: "echo 2"},
	})
	if reg.Get("cmd1") == nil || reg.Get("cmd2") == nil {
		t.Fatal("expected cmd1 and cmd2 to be registered")
	}

	names := r.Apply([]ops.ShellOp{
		{CmdName: "cmd1", Desc: "first-updated", Command: "echo 1"},
		{CmdName: "cmd3", Desc: "third", Command: "echo 3"},
	})
	if len(names) != 2 {
		t.Errorf("names = %v", names)
	}
	if op := reg.Get("cmd1"); op == nil || op.Description() != "first-updated" {
		t.Error("expected updated cmd1 after reload")
	}
	if reg.Get("cmd2") != nil {
		t.Error("expected cmd2 to be removed after reload")
	}
	if reg.Get("cmd3") == nil {
		t.Error("expected cmd3 after reload")
	}
}

func TestReloaderKeepsBuiltins(t *testing.T) {
	reg := ops.NewRegistry()
	reg.Register(&ops.HelpOp{Registry: reg})
	r := ops.NewReloader(reg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	names := r.Apply([]ops.ShellOp{{CmdName: "help", Command: "echo shadow"}})
	if len(names) != 0 {
		t.Errorf("names = %v, want none", names)
	}
	r.Apply(nil)
	if _, ok := reg.Get("help").(*ops.HelpOp); !ok {
		t.Error("built-in help was replaced or removed")
	}
}
