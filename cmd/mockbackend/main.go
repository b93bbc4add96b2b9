/*
This command runs one reference backend instance to put behind the load
balancer under test. It answers a small set of API style routes with
deterministic JSON payloads, identifies itself in every response and
counts the requests it served.

For the list of command line options, run:

	mockbackend -help
*/
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ultrabalancer/lbcheck/backend"
	"github.com/ultrabalancer/lbcheck/logging"
)

func main() {
	var (
		address  string
		name     string
		logLevel string
	)

	flag.StringVar(&address, "address", ":8081", "network address the backend should listen on")
	flag.StringVar(&name, "name", "", "backend identifier; derived from the bound port when empty")
	flag.StringVar(&logLevel, "application-log-level", "INFO", "log level: debug, info, warn, error")
	flag.Parse()

	if err := logging.Init(logging.Options{ApplicationLogLevel: logLevel}); err != nil {
		log.Fatalf("error initializing logging: %s", err)
	}

	s := backend.New(backend.Options{Address: address, Name: name})
	if err := s.Start(); err != nil {
		log.Fatalf("error starting backend: %s", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Infof("shutting down backend %s, served %d requests", s.Name(), s.ServedCount())

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		log.Errorf("error shutting down backend: %s", err)
	}
}
