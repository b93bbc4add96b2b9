package loadgen

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ultrabalancer/lbcheck/stats"
)

// Reporter prints a live throughput line for a running session and a
// final summary block when the session ends.
type Reporter struct {
	recorder *stats.Recorder
	out      io.Writer
	interval time.Duration
}

// NewReporter creates a Reporter for the given recorder, printing to
// out once per interval. An interval of zero means one second.
func NewReporter(recorder *stats.Recorder, out io.Writer, interval time.Duration) *Reporter {
	if interval <= 0 {
		interval = time.Second
	}

	return &Reporter{
		recorder: recorder,
		out:      out,
		interval: interval,
	}
}

// Run prints the live line until the context is cancelled. It prints
// over the same terminal line, ending it only when done.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return
		case <-ticker.C:
			c := r.recorder.Snapshot()
			fmt.Fprintf(r.out, "\rTime: %ds | Total: %d | Success: %d | Failed: %d | Rate: ~%.0f req/s   ",
				int(c.Elapsed.Seconds()), c.Total, c.Succeeded, c.Failed, c.Rate())
		}
	}
}

// Summary writes the final report of a session.
func (r *Reporter) Summary(c stats.Counts) {
	p50, p95, p99 := r.recorder.LatencyPercentiles()

	fmt.Fprintf(r.out, "\nTotal Requests: %d\n", c.Total)
	fmt.Fprintf(r.out, "Successful: %d\n", c.Succeeded)
	fmt.Fprintf(r.out, "Failed: %d\n", c.Failed)
	fmt.Fprintf(r.out, "Average: %.0f req/s\n", c.Rate())
	fmt.Fprintf(r.out, "Latency: p50 %v, p95 %v, p99 %v\n", p50, p95, p99)
	fmt.Fprintf(r.out, "Duration: %ds\n", int(c.Elapsed.Seconds()))

	if len(c.Backends) > 0 {
		fmt.Fprintf(r.out, "Backends:\n")
		for id, n := range c.Backends {
			fmt.Fprintf(r.out, "  %s: %d\n", id, n)
		}
	}
}
