// Package verify implements the verification suite run against a load
// balancer: connectivity, single request, distribution across backends,
// concurrent load and the well known health and stats endpoints.
//
// Each check is independent and produces a verdict with human readable
// diagnostics. Only a failing connectivity check is fatal for the
// suite, every other failure is reported and the remaining checks still
// run.
package verify

import (
	"context"
	"errors"
	"time"

	"github.com/ultrabalancer/lbcheck/net"
	"github.com/ultrabalancer/lbcheck/stats"
)

// Verdict classifies the result of one check.
type Verdict int

const (
	// Pass: the checked behavior was observed.
	Pass Verdict = iota

	// Fail: the checked behavior was observed to be broken.
	Fail

	// Inconclusive: the check could not decide, e.g. an optional
	// endpoint was unreachable.
	Inconclusive
)

func (v Verdict) String() string {
	switch v {
	case Pass:
		return "PASS"
	case Fail:
		return "FAIL"
	case Inconclusive:
		return "INCONCLUSIVE"
	default:
		return "UNKNOWN"
	}
}

// Result of a single check.
type Result struct {
	Name    string
	Verdict Verdict
	Detail  string

	// Counts is attached by the checks that aggregate outcomes.
	Counts *stats.Counts
}

// UnknownPolicy decides how the distribution check treats successful
// responses without backend attribution.
type UnknownPolicy int

const (
	// UnknownBucket collapses all unattributed responses into a
	// single "unknown" bucket.
	UnknownBucket UnknownPolicy = iota

	// UnknownInconclusive makes the whole check inconclusive as
	// soon as an unattributed response is observed, because
	// multiple unidentified backends cannot be told apart.
	UnknownInconclusive
)

// ParseUnknownPolicy maps the config names to an UnknownPolicy.
func ParseUnknownPolicy(s string) (UnknownPolicy, error) {
	switch s {
	case "", "bucket":
		return UnknownBucket, nil
	case "inconclusive":
		return UnknownInconclusive, nil
	default:
		return UnknownBucket, errors.New("unknown policy, expected bucket or inconclusive")
	}
}

// Options configure the suite.
type Options struct {

	// BaseURL of the balancer under test. Required.
	BaseURL string

	// Timeout bounds every network operation of the suite.
	// Defaults to 5s.
	Timeout time.Duration

	// DistributionRequests is the request count of the distribution
	// check. Defaults to 30.
	DistributionRequests int

	// ConcurrentWorkers is the worker count of the concurrent load
	// check. Defaults to 5.
	ConcurrentWorkers int

	// RequestsPerWorker is how many sequential requests each worker
	// of the concurrent load check issues. Defaults to 10.
	RequestsPerWorker int

	// UnknownPolicy of the distribution check.
	UnknownPolicy UnknownPolicy

	// Client used for the checks. When nil, a client with the suite
	// timeout is created and closed with the run.
	Client *net.Client
}

// ErrConnectivity is returned by Run when the connectivity check fails
// and the remaining checks are aborted.
var ErrConnectivity = errors.New("connectivity check failed")

// Runner executes the suite.
type Runner struct {
	options   Options
	client    *net.Client
	ownClient bool
}

// NewRunner creates a Runner, applying the option defaults.
func NewRunner(o Options) *Runner {
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}

	if o.DistributionRequests <= 0 {
		o.DistributionRequests = 30
	}

	if o.ConcurrentWorkers <= 0 {
		o.ConcurrentWorkers = 5
	}

	if o.RequestsPerWorker <= 0 {
		o.RequestsPerWorker = 10
	}

	r := &Runner{options: o, client: o.Client}
	if r.client == nil {
		r.client = net.NewClient(net.Options{Timeout: o.Timeout})
		r.ownClient = true
	}

	return r
}

// Run executes the checks in order and returns their results. It
// returns ErrConnectivity when the connectivity check fails; the
// remaining checks are skipped in that case.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	if r.ownClient {
		defer r.client.Close()
	}

	connectivity := r.checkConnectivity(ctx)
	if connectivity.Verdict != Pass {
		return []Result{connectivity}, ErrConnectivity
	}

	return []Result{
		connectivity,
		r.checkSingleRequest(ctx),
		r.checkDistribution(ctx),
		r.checkConcurrentLoad(ctx),
		r.checkHealthEndpoint(ctx),
		r.checkStatsEndpoint(ctx),
	}, nil
}
