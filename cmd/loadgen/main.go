/*
This command sends a continuous stream of GET requests to a load
balancer at a target rate, reporting the live throughput and a final
summary. It stops after -duration, or on an interrupt signal when no
duration is set.

For the list of command line options, run:

	loadgen -help
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ultrabalancer/lbcheck/loadgen"
	"github.com/ultrabalancer/lbcheck/logging"
	"github.com/ultrabalancer/lbcheck/stats"
)

const (
	defaultURL      = "http://127.0.0.1:8080"
	defaultRate     = 100
	defaultWorkers  = 20
	defaultTimeout  = 2 * time.Second
	defaultLogLevel = "INFO"

	urlUsage      = "base url of the load balancer under test"
	endpointUsage = "comma separated request paths, one picked at random per request"
	rateUsage     = "target request rate per second"
	workersUsage  = "maximum number of concurrent requests"
	durationUsage = "how long to run; 0 means until interrupted"
	timeoutUsage  = "timeout per individual request"
	engineUsage   = "load engine: pool or vegeta"
	logLevelUsage = "log level: debug, info, warn, error"
)

func main() {
	var (
		baseURL   string
		rate      int
		workers   int
		duration  time.Duration
		timeout   time.Duration
		engine    string
		logLevel  string
		endpoints = commaListFlag("/api/users", "/api/products", "/api/status", "/")
	)

	flag.StringVar(&baseURL, "url", defaultURL, urlUsage)
	flag.Var(endpoints, "endpoints", endpointUsage)
	flag.IntVar(&rate, "rate", defaultRate, rateUsage)
	flag.IntVar(&workers, "workers", defaultWorkers, workersUsage)
	flag.DurationVar(&duration, "duration", 0, durationUsage)
	flag.DurationVar(&timeout, "timeout", defaultTimeout, timeoutUsage)
	flag.StringVar(&engine, "engine", "pool", engineUsage)
	flag.StringVar(&logLevel, "application-log-level", defaultLogLevel, logLevelUsage)
	flag.Parse()

	if err := logging.Init(logging.Options{ApplicationLogLevel: logLevel}); err != nil {
		log.Fatalf("error initializing logging: %s", err)
	}

	fmt.Printf("\nSending load to %s\n", baseURL)
	fmt.Printf("Rate: %d req/s\n", rate)
	fmt.Printf("Endpoints: %s\n", endpoints.String())
	if duration == 0 {
		fmt.Printf("\nPress Ctrl+C to stop\n\n")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	switch engine {
	case "pool":
		runDispatcher(ctx, baseURL, endpoints.values, rate, workers, timeout)
	case "vegeta":
		if duration == 0 {
			duration = 10 * time.Second
		}

		atk := loadgen.NewAttacker(baseURL, endpoints.values, rate, timeout)
		atk.Attack(os.Stdout, duration, "loadgen")
	default:
		log.Fatalf("unknown engine %q, expected pool or vegeta", engine)
	}
}

func runDispatcher(ctx context.Context, baseURL string, endpoints []string, rate, workers int, timeout time.Duration) {
	recorder := stats.NewRecorder()
	d, err := loadgen.New(loadgen.Options{
		BaseURL:        baseURL,
		Endpoints:      endpoints,
		Rate:           rate,
		Workers:        workers,
		RequestTimeout: timeout,
		Recorder:       recorder,
	})
	if err != nil {
		log.Fatalf("error processing config: %s", err)
	}

	reporter := loadgen.NewReporter(recorder, os.Stdout, time.Second)
	go reporter.Run(ctx)

	counts := d.Run(ctx)
	reporter.Summary(counts)
}
