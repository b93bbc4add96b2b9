package verify

import (
	"fmt"
	"io"
)

// WriteReport writes a numbered, human readable report of the suite
// results, followed by a verdict summary line.
func WriteReport(w io.Writer, results []Result) {
	fmt.Fprintln(w, "Load Balancer Verification")
	fmt.Fprintln(w, "========================================")

	var passed, failed, inconclusive int
	for i, res := range results {
		fmt.Fprintf(w, "\n%d. %s\n", i+1, res.Name)

		switch res.Verdict {
		case Pass:
			passed++
			fmt.Fprintf(w, "   ✓ %s\n", res.Detail)
		case Fail:
			failed++
			fmt.Fprintf(w, "   ✗ %s\n", res.Detail)
		default:
			inconclusive++
			fmt.Fprintf(w, "   ? %s\n", res.Detail)
		}

		if res.Counts != nil && len(res.Counts.Backends) > 0 {
			fmt.Fprintf(w, "   backends: %s\n", formatBackends(res.Counts.Backends))
		}
	}

	fmt.Fprintln(w, "\n========================================")
	fmt.Fprintf(w, "%d passed, %d failed, %d inconclusive\n", passed, failed, inconclusive)
}
