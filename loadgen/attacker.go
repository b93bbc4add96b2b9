package loadgen

import (
	"io"
	"strconv"
	"time"

	vegeta "github.com/tsenart/vegeta/lib"
)

// Attacker is a vegeta backed constant rate engine with the same
// reporting surface as the dispatcher. It trades the bounded queue
// semantics of the dispatcher for vegeta's attack loop and histogram
// reporting, which makes it useful for calibration runs against the
// same targets.
type Attacker struct {
	attacker *vegeta.Attacker
	metrics  *vegeta.Metrics
	rate     *vegeta.Rate
	targeter vegeta.Targeter
}

// NewAttacker creates an attacker issuing GET requests round robin over
// the endpoints of the base URL at the given frequency per second.
func NewAttacker(baseURL string, endpoints []string, freq int, timeout time.Duration) *Attacker {
	atk := vegeta.NewAttacker(
		vegeta.Connections(10),
		vegeta.KeepAlive(true),
		vegeta.MaxWorkers(10),
		vegeta.Redirects(0),
		vegeta.Timeout(timeout),
		vegeta.Workers(5),
	)

	targets := make([]vegeta.Target, 0, len(endpoints))
	for _, e := range endpoints {
		targets = append(targets, vegeta.Target{
			Method: "GET",
			URL:    joinURL(baseURL, e),
		})
	}

	rate := vegeta.Rate{Freq: freq, Per: time.Second}

	m := vegeta.Metrics{
		Histogram: &vegeta.Histogram{
			Buckets: []time.Duration{
				0,
				500 * time.Microsecond,
				1 * time.Millisecond,
				5 * time.Millisecond,
				10 * time.Millisecond,
				25 * time.Millisecond,
				50 * time.Millisecond,
				100 * time.Millisecond,
				1000 * time.Millisecond,
			},
		},
	}

	return &Attacker{
		attacker: atk,
		metrics:  &m,
		rate:     &rate,
		targeter: vegeta.NewStaticTargeter(targets...),
	}
}

// Attack runs the attack for the given duration and writes a text
// report to w.
func (atk *Attacker) Attack(w io.Writer, d time.Duration, name string) {
	for res := range atk.attacker.Attack(atk.targeter, atk.rate, d, name) {
		if res == nil {
			continue
		}

		atk.metrics.Add(res)
	}

	atk.metrics.Close()
	reporter := vegeta.NewTextReporter(atk.metrics)
	reporter.Report(w)
}

// TotalRequests returns the number of issued requests.
func (atk *Attacker) TotalRequests() uint64 {
	return atk.metrics.Requests
}

// Success returns the success ratio in the range [0,1].
func (atk *Attacker) Success() float64 {
	return atk.metrics.Success
}

// CountStatus returns how often the given status code was observed.
func (atk *Attacker) CountStatus(code int) (int, bool) {
	cnt, ok := atk.metrics.StatusCodes[strconv.Itoa(code)]
	return cnt, ok
}
