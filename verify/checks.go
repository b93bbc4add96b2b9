package verify

import (
	"context"
	"fmt"
	gonet "net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ultrabalancer/lbcheck/net"
	"github.com/ultrabalancer/lbcheck/stats"
)

// checkConnectivity opens a raw TCP connection to the target host. The
// dial is retried with exponential backoff within the suite timeout, so
// a balancer that is still coming up does not fail the whole suite.
func (r *Runner) checkConnectivity(ctx context.Context) Result {
	result := Result{Name: "TCP Connectivity"}

	u, err := url.Parse(r.options.BaseURL)
	if err != nil || u.Host == "" {
		result.Verdict = Fail
		result.Detail = fmt.Sprintf("invalid target url %q", r.options.BaseURL)
		return result
	}

	addr := u.Host
	if u.Port() == "" {
		if u.Scheme == "https" {
			addr = gonet.JoinHostPort(u.Hostname(), "443")
		} else {
			addr = gonet.JoinHostPort(u.Hostname(), "80")
		}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = r.options.Timeout

	var lastErr error
	err = backoff.Retry(func() error {
		conn, err := gonet.DialTimeout("tcp", addr, r.options.Timeout)
		if err != nil {
			lastErr = err
			log.Debugf("connectivity probe to %s failed: %v", addr, err)
			return err
		}

		conn.Close()
		return nil
	}, backoff.WithContext(b, ctx))

	if err != nil {
		result.Verdict = Fail
		result.Detail = fmt.Sprintf("connection to %s failed: %v (%s)",
			addr, lastErr, net.ClassifyError(lastErr))
		return result
	}

	result.Verdict = Pass
	result.Detail = fmt.Sprintf("connection to %s established", addr)
	return result
}

// checkSingleRequest issues one GET to the base URL and expects status
// 200.
func (r *Runner) checkSingleRequest(ctx context.Context) Result {
	result := Result{Name: "HTTP Request"}

	rsp, err := r.client.Get(ctx, r.options.BaseURL)
	if err != nil {
		result.Verdict = Fail
		result.Detail = fmt.Sprintf("request failed: %v (%s)", err, net.ClassifyError(err))
		return result
	}
	defer rsp.Body.Close()

	net.BackendID(rsp)
	if rsp.StatusCode != http.StatusOK {
		result.Verdict = Fail
		result.Detail = fmt.Sprintf("unexpected status %d", rsp.StatusCode)
		return result
	}

	result.Verdict = Pass
	result.Detail = "status 200"
	return result
}

// checkDistribution issues N requests and groups the successful
// responses by backend identity. More than one distinct backend means
// the load is distributed.
func (r *Runner) checkDistribution(ctx context.Context) Result {
	result := Result{Name: "Load Distribution"}

	backends := make(map[string]uint64)
	var succeeded int
	sawUnknown := false

	start := time.Now()
	for i := 0; i < r.options.DistributionRequests; i++ {
		rsp, err := r.client.Get(ctx, r.options.BaseURL)
		if err != nil {
			continue
		}

		id := net.BackendID(rsp)
		code := rsp.StatusCode
		rsp.Body.Close()

		if net.ClassifyStatus(code) != net.KindNone {
			continue
		}

		succeeded++
		if id == "" {
			sawUnknown = true
			id = "unknown"
		}

		backends[id]++
	}

	result.Counts = &stats.Counts{
		Total:     uint64(r.options.DistributionRequests),
		Succeeded: uint64(succeeded),
		Failed:    uint64(r.options.DistributionRequests - succeeded),
		Backends:  backends,
		Elapsed:   time.Since(start),
	}

	if succeeded == 0 {
		result.Verdict = Inconclusive
		result.Detail = "no successful response to attribute"
		return result
	}

	if sawUnknown && r.options.UnknownPolicy == UnknownInconclusive {
		result.Verdict = Inconclusive
		result.Detail = fmt.Sprintf("%d responses without backend attribution", backends["unknown"])
		return result
	}

	result.Detail = fmt.Sprintf("distribution: %s", formatBackends(backends))
	if len(backends) > 1 {
		result.Verdict = Pass
	} else {
		result.Verdict = Fail
		result.Detail = "load not distributed: " + result.Detail
	}

	return result
}

// checkConcurrentLoad spawns T workers issuing M sequential requests
// each, aggregated through a shared recorder under real contention.
func (r *Runner) checkConcurrentLoad(ctx context.Context) Result {
	result := Result{Name: "Concurrent Connections"}

	recorder := stats.NewRecorder()
	start := time.Now()

	var g errgroup.Group
	for w := 0; w < r.options.ConcurrentWorkers; w++ {
		g.Go(func() error {
			for i := 0; i < r.options.RequestsPerWorker; i++ {
				recorder.Record(r.attempt(ctx))
			}
			return nil
		})
	}

	g.Wait()
	duration := time.Since(start)

	c := recorder.Snapshot()
	c.Elapsed = duration
	result.Counts = &c
	result.Detail = fmt.Sprintf("total %d, success %d, failed %d in %.2fs (%.1f req/s)",
		c.Total, c.Succeeded, c.Failed, duration.Seconds(), c.Rate())

	if c.Succeeded > c.Failed {
		result.Verdict = Pass
	} else {
		result.Verdict = Fail
	}

	return result
}

func (r *Runner) attempt(ctx context.Context) stats.Outcome {
	o := stats.Outcome{Endpoint: "/"}

	start := time.Now()
	rsp, err := r.client.Get(ctx, r.options.BaseURL)
	o.Latency = time.Since(start)

	if err != nil {
		o.ErrorKind = net.ClassifyError(err)
		return o
	}

	o.StatusCode = rsp.StatusCode
	o.BackendID = net.BackendID(rsp)
	rsp.Body.Close()

	if kind := net.ClassifyStatus(rsp.StatusCode); kind != net.KindNone {
		o.ErrorKind = kind
		return o
	}

	o.Succeeded = true
	return o
}

// checkHealthEndpoint probes the well known health path. An erroring
// request is inconclusive, not a failure: the endpoint's absence is not
// necessarily a defect of the balancer under test.
func (r *Runner) checkHealthEndpoint(ctx context.Context) Result {
	return r.checkEndpoint(ctx, "Health Endpoint", "/health", func(rsp *http.Response) (Verdict, string) {
		if rsp.StatusCode == http.StatusOK || rsp.StatusCode == http.StatusNoContent {
			return Pass, fmt.Sprintf("status %d", rsp.StatusCode)
		}

		return Fail, fmt.Sprintf("unexpected status %d", rsp.StatusCode)
	})
}

// checkStatsEndpoint probes the well known stats path, expecting a 200
// with a non-empty body.
func (r *Runner) checkStatsEndpoint(ctx context.Context) Result {
	return r.checkEndpoint(ctx, "Statistics Endpoint", "/stats", func(rsp *http.Response) (Verdict, string) {
		if rsp.StatusCode != http.StatusOK {
			return Fail, fmt.Sprintf("unexpected status %d", rsp.StatusCode)
		}

		var probe [1]byte
		if n, _ := rsp.Body.Read(probe[:]); n == 0 {
			return Fail, "status 200 with empty body"
		}

		return Pass, "status 200 with stats payload"
	})
}

func (r *Runner) checkEndpoint(ctx context.Context, name, path string, judge func(*http.Response) (Verdict, string)) Result {
	result := Result{Name: name}

	rsp, err := r.client.Get(ctx, strings.TrimSuffix(r.options.BaseURL, "/")+path)
	if err != nil {
		result.Verdict = Inconclusive
		result.Detail = fmt.Sprintf("endpoint not available: %v (%s)", err, net.ClassifyError(err))
		return result
	}
	defer rsp.Body.Close()

	result.Verdict, result.Detail = judge(rsp)
	return result
}

func formatBackends(backends map[string]uint64) string {
	ids := make([]string, 0, len(backends))
	for id := range backends {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s=%d", id, backends[id]))
	}

	return strings.Join(parts, ", ")
}
