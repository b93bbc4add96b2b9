/*
Package lbcheck provides a verification and load generation harness for
an HTTP load balancer under test.

The harness is not the balancer itself. It acts as an HTTP client of
the balancer's public address, drives synthetic concurrent traffic at a
configurable rate, attributes every response to the backend instance
that served it via the X-Server-Id header or the backend field of the
JSON body, and aggregates pass/fail and timing statistics to validate
distribution, availability and health check behavior.

The repository contains three binaries:

  - cmd/lbcheck runs the verification suite and prints a numbered
    report. It exits with a non-zero status when the balancer is not
    reachable at all.
  - cmd/loadgen sustains a target request rate with a bounded worker
    pool, printing a live throughput line and a final summary.
  - cmd/mockbackend runs the reference backend instance to put behind
    the balancer.

The packages verify, loadgen, stats, backend, net, config and logging
implement the harness; this root package ties the suite together for
the lbcheck binary.
*/
package lbcheck
