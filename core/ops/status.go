package ops

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/jdelaire/openbot/core/dispatch"
	"github.com/jdelaire/openbot/core/types"
)

var startTime = time.Now()

// Stats counts update outcomes. Its Observe method is a dispatch.ResultHook.
type Stats struct {
	handled   atomic.Int64
	rejected  atomic.Int64
	unhandled atomic.Int64
	failed    atomic.Int64
}

// Observe records one processed update.
func (s *Stats) Observe(_ context.Context, _ *types.Update, res dispatch.PropagateResult, err error) {
	switch {
	case err != nil || res.Err() != nil:
		s.failed.Add(1)
	case res.Kind == dispatch.Handled:
		s.handled.Add(1)
	case res.Kind == dispatch.Rejected:
		s.rejected.Add(1)
	default:
		s.unhandled.Add(1)
	}
}

func (s *Stats) String() string {
	return fmt.Sprintf("handled %d, rejected %d, unhandled %d, failed %d",
		s.handled.Load(), s.rejected.Load(), s.unhandled.Load(), s.failed.Load())
}

// StatusOp returns bot uptime, Go version, goroutine count and, when Stats
// is set, update counters.
type StatusOp struct {
	Stats *Stats
}

func (s *StatusOp) Name() string        { return "status" }
func (s *StatusOp) Description() string { return "Show bot status" }

func (s *StatusOp) Execute(_ context.Context, _ string) (string, error) {
	uptime := time.Since(startTime).Truncate(time.Second)
	out := fmt.Sprintf("Status: OK\nUptime: %s\nGo: %s\nGoroutines: %d",
		uptime, runtime.Version(), runtime.NumGoroutine())
	if s.Stats != nil {
		out += "\nUpdates: " + s.Stats.String()
	}
	return out, nil
}
