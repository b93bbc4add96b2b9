// Package loadgen implements a rate governed HTTP request dispatcher
// with a bounded worker queue, and a vegeta based alternative engine.
//
// The dispatcher operates in fixed duration ticks. Each tick it submits
// a batch of request tasks sized to the target rate, independent of how
// long the individual requests take. Slow requests therefore never
// throttle subsequent batches, they only occupy worker slots, and when
// all slots and the queue are taken, further tasks are rejected and
// accounted as failures instead of growing the concurrency without
// bound.
package loadgen

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ultrabalancer/lbcheck/net"
	"github.com/ultrabalancer/lbcheck/stats"
)

const (
	defaultTick           = 100 * time.Millisecond
	defaultRequestTimeout = 2 * time.Second
	defaultGracePeriod    = 3 * time.Second
)

// Options configure a Dispatcher.
type Options struct {

	// BaseURL of the balancer under test. Required, must be an
	// absolute http or https URL.
	BaseURL string

	// Endpoints are the candidate request paths. A task picks one
	// uniformly at random. Required, must not be empty.
	Endpoints []string

	// Rate is the target aggregate request rate per second.
	// Required, must be positive.
	Rate int

	// Workers is the maximum number of concurrent requests.
	// Required, must be positive.
	Workers int

	// MaxQueueSize limits how many tasks may wait for a worker
	// slot. Defaults to twice the rate.
	MaxQueueSize int

	// Tick is the submission interval. Defaults to 100ms.
	Tick time.Duration

	// RequestTimeout bounds each individual request. Defaults to
	// 2s.
	RequestTimeout time.Duration

	// GracePeriod bounds the drain of in-flight requests on stop.
	// Defaults to 3s.
	GracePeriod time.Duration

	// Recorder receives one outcome per task. When nil, a new one
	// is created.
	Recorder *stats.Recorder

	// Client used for the requests. When nil, a client with the
	// request timeout is created and closed with the run.
	Client *net.Client
}

// Dispatcher sustains a target request rate against a set of endpoints
// until stopped.
type Dispatcher struct {
	options   Options
	recorder  *stats.Recorder
	client    *net.Client
	ownClient bool
	queue     *queue
	rnd       *rand.Rand
	rndMu     sync.Mutex
}

// New validates the options and creates a Dispatcher. Invalid target
// URL, rate, worker count or an empty endpoint set are configuration
// errors and fatal at start.
func New(o Options) (*Dispatcher, error) {
	u, err := url.Parse(o.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid target url %q: %w", o.BaseURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("invalid target url %q: absolute http(s) url required", o.BaseURL)
	}

	if o.Rate <= 0 {
		return nil, fmt.Errorf("invalid rate %d: positive rate required", o.Rate)
	}

	if o.Workers <= 0 {
		return nil, fmt.Errorf("invalid worker count %d: positive count required", o.Workers)
	}

	if len(o.Endpoints) == 0 {
		return nil, fmt.Errorf("empty endpoint set")
	}

	if o.MaxQueueSize <= 0 {
		o.MaxQueueSize = 2 * o.Rate
	}

	if o.Tick <= 0 {
		o.Tick = defaultTick
	}

	if o.RequestTimeout <= 0 {
		o.RequestTimeout = defaultRequestTimeout
	}

	if o.GracePeriod <= 0 {
		o.GracePeriod = defaultGracePeriod
	}

	d := &Dispatcher{
		options:  o,
		recorder: o.Recorder,
		client:   o.Client,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if d.recorder == nil {
		d.recorder = stats.NewRecorder()
	}

	if d.client == nil {
		d.client = net.NewClient(net.Options{
			Timeout:             o.RequestTimeout,
			MaxIdleConnsPerHost: o.Workers,
		})
		d.ownClient = true
	}

	d.queue = newQueue(QueueConfig{
		MaxConcurrency: o.Workers,
		MaxQueueSize:   o.MaxQueueSize,
		Timeout:        o.RequestTimeout,
	})

	return d, nil
}

// Recorder returns the recorder the dispatcher reports to.
func (d *Dispatcher) Recorder() *stats.Recorder {
	return d.recorder
}

// QueueStatus returns the current worker queue state.
func (d *Dispatcher) QueueStatus() QueueStatus {
	return d.queue.status()
}

// Run submits request batches at the configured rate until the context
// is cancelled, then drains the in-flight requests up to the grace
// period and returns the final snapshot. Individual request failures
// are recorded, never returned.
func (d *Dispatcher) Run(ctx context.Context) stats.Counts {
	d.recorder.Reset()

	// requests survive submission cancel until the grace period ends
	inflight, stopInflight := context.WithCancel(context.Background())
	defer stopInflight()

	perTick := float64(d.options.Rate) * d.options.Tick.Seconds()
	log.WithFields(log.Fields{
		"url":     d.options.BaseURL,
		"rate":    d.options.Rate,
		"workers": d.options.Workers,
	}).Info("starting dispatch")

	ticker := time.NewTicker(d.options.Tick)
	defer ticker.Stop()

	var (
		wg    sync.WaitGroup
		carry float64
	)

	for {
		batch := int(perTick + carry)
		carry += perTick - float64(batch)

		for i := 0; i < batch; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				d.attempt(inflight)
			}()
		}

		select {
		case <-ctx.Done():
			d.drain(&wg, stopInflight)
			return d.recorder.Snapshot()
		case <-ticker.C:
		}
	}
}

// attempt runs one request task: acquire a worker slot, pick an
// endpoint, issue the request, account the outcome.
func (d *Dispatcher) attempt(ctx context.Context) {
	done, err := d.queue.wait()
	if err != nil {
		// rejected by backpressure, accounted as a timed out task
		d.recorder.Record(stats.Outcome{
			Endpoint:  "",
			Succeeded: false,
			ErrorKind: net.KindTimeout,
		})
		return
	}
	defer done()

	endpoint := d.pickEndpoint()
	reqCtx, cancel := context.WithTimeout(ctx, d.options.RequestTimeout)
	defer cancel()

	d.recorder.Record(d.request(reqCtx, endpoint))
}

func (d *Dispatcher) pickEndpoint() string {
	d.rndMu.Lock()
	defer d.rndMu.Unlock()

	return d.options.Endpoints[d.rnd.Intn(len(d.options.Endpoints))]
}

func (d *Dispatcher) request(ctx context.Context, endpoint string) stats.Outcome {
	o := stats.Outcome{Endpoint: endpoint}

	start := time.Now()
	rsp, err := d.client.Get(ctx, joinURL(d.options.BaseURL, endpoint))
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

func (d *Dispatcher) drain(wg *sync.WaitGroup, stopInflight func()) {
	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(d.options.GracePeriod):
		log.Warn("grace period expired, cancelling in-flight requests")
		stopInflight()
		<-finished
	}

	d.queue.close()
	if d.ownClient {
		d.client.Close()
	}

	log.Info("dispatch stopped")
}

func joinURL(base, endpoint string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(endpoint, "/")
}
