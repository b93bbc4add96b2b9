/*
This command runs the verification suite against a load balancer and
prints a numbered pass/fail report.

For the list of command line options, run:

	lbcheck -help

The process exits with a non-zero status only when the balancer is not
reachable at all; failing checks beyond connectivity are reported in
the summary and do not change the exit status.
*/
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/ultrabalancer/lbcheck"
	"github.com/ultrabalancer/lbcheck/config"
)

func main() {
	cfg := config.NewConfig()
	if err := cfg.Parse(); err != nil {
		log.Fatalf("error processing config: %s", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := lbcheck.Run(ctx, lbcheck.Options{
		Suite:               cfg.VerifyOptions(),
		ApplicationLogLevel: cfg.ApplicationLogLevelString,
	})
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
