package lbcheck

import (
	"context"
	"io"
	"os"

	"github.com/ultrabalancer/lbcheck/logging"
	"github.com/ultrabalancer/lbcheck/verify"
)

// Options to start the verification suite.
type Options struct {

	// Suite options of the verification run.
	Suite verify.Options

	// ApplicationLogPrefix, when set, is prepended to every
	// application log entry.
	ApplicationLogPrefix string

	// ApplicationLogOutput, when set, overrides the log output.
	ApplicationLogOutput io.Writer

	// ApplicationLogLevel, one of the logrus level names.
	ApplicationLogLevel string

	// ReportOutput receives the suite report, os.Stdout when nil.
	ReportOutput io.Writer
}

// Run initializes logging, executes the verification suite against the
// configured balancer and writes the report. It returns
// verify.ErrConnectivity when the balancer was not reachable, which the
// lbcheck command maps to a non-zero exit status. Failures of the other
// checks are part of the report, not errors.
func Run(ctx context.Context, o Options) error {
	if err := logging.Init(logging.Options{
		ApplicationLogPrefix: o.ApplicationLogPrefix,
		ApplicationLogOutput: o.ApplicationLogOutput,
		ApplicationLogLevel:  o.ApplicationLogLevel,
	}); err != nil {
		return err
	}

	if o.ReportOutput == nil {
		o.ReportOutput = os.Stdout
	}

	results, err := verify.NewRunner(o.Suite).Run(ctx)
	verify.WriteReport(o.ReportOutput, results)
	return err
}
