// Package config binds the command line flags and the optional YAML
// configuration file of the verification suite binary.
package config

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/ultrabalancer/lbcheck/verify"
)

const (
	defaultBaseURL = "http://localhost:8080"
	defaultTimeout = 5 * time.Second

	baseURLUsage              = "base url of the load balancer under test"
	timeoutUsage              = "timeout for every network operation of the suite"
	distributionRequestsUsage = "number of requests issued by the distribution check"
	concurrentWorkersUsage    = "number of workers of the concurrent load check"
	requestsPerWorkerUsage    = "number of sequential requests per worker of the concurrent load check"
	unknownPolicyUsage        = "how unattributed responses are treated by the distribution check: bucket or inconclusive"
	applicationLogLevelUsage  = "log level: debug, info, warn, error"
	configFileUsage           = "yaml file with the config keys of the listed flags"
)

type Config struct {
	ConfigFile string
	Flags      *flag.FlagSet

	BaseURL                   string        `yaml:"base-url"`
	Timeout                   time.Duration `yaml:"timeout"`
	DistributionRequests      int           `yaml:"distribution-requests"`
	ConcurrentWorkers         int           `yaml:"concurrent-workers"`
	RequestsPerWorker         int           `yaml:"requests-per-worker"`
	UnknownPolicyString       string        `yaml:"unknown-policy"`
	ApplicationLogLevelString string        `yaml:"application-log-level"`

	UnknownPolicy       verify.UnknownPolicy `yaml:"-"`
	ApplicationLogLevel log.Level            `yaml:"-"`
}

// NewConfig binds a fresh flag set. Use Parse or ParseArgs afterwards.
func NewConfig() *Config {
	cfg := new(Config)
	flags := flag.NewFlagSet("", flag.ExitOnError)

	flags.StringVar(&cfg.ConfigFile, "config-file", "", configFileUsage)
	flags.StringVar(&cfg.BaseURL, "url", defaultBaseURL, baseURLUsage)
	flags.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, timeoutUsage)
	flags.IntVar(&cfg.DistributionRequests, "requests", 30, distributionRequestsUsage)
	flags.IntVar(&cfg.ConcurrentWorkers, "workers", 5, concurrentWorkersUsage)
	flags.IntVar(&cfg.RequestsPerWorker, "per-worker", 10, requestsPerWorkerUsage)
	flags.StringVar(&cfg.UnknownPolicyString, "unknown-policy", "bucket", unknownPolicyUsage)
	flags.StringVar(&cfg.ApplicationLogLevelString, "application-log-level", "INFO", applicationLogLevelUsage)

	cfg.Flags = flags
	return cfg
}

func (c *Config) Parse() error {
	return c.ParseArgs(os.Args[0], os.Args[1:])
}

func (c *Config) ParseArgs(progname string, args []string) error {
	c.Flags.Init(progname, flag.ExitOnError)
	if err := c.Flags.Parse(args); err != nil {
		return err
	}

	if len(c.Flags.Args()) != 0 {
		return fmt.Errorf("invalid arguments: %s", c.Flags.Args())
	}

	if c.ConfigFile != "" {
		yamlFile, err := os.ReadFile(c.ConfigFile)
		if err != nil {
			return fmt.Errorf("invalid config file: %w", err)
		}

		if err := yaml.Unmarshal(yamlFile, c); err != nil {
			return fmt.Errorf("unmarshalling config file error: %w", err)
		}

		// explicit flags win over the file
		if err := c.Flags.Parse(args); err != nil {
			return err
		}
	}

	return c.validate()
}

func (c *Config) validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", c.BaseURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("invalid url %q: absolute http(s) url required", c.BaseURL)
	}

	if c.DistributionRequests <= 0 || c.ConcurrentWorkers <= 0 || c.RequestsPerWorker <= 0 {
		return fmt.Errorf("request and worker counts must be positive")
	}

	c.UnknownPolicy, err = verify.ParseUnknownPolicy(c.UnknownPolicyString)
	if err != nil {
		return fmt.Errorf("invalid unknown-policy %q: %w", c.UnknownPolicyString, err)
	}

	c.ApplicationLogLevel, err = log.ParseLevel(c.ApplicationLogLevelString)
	if err != nil {
		return fmt.Errorf("invalid application-log-level %q: %w", c.ApplicationLogLevelString, err)
	}

	return nil
}

// VerifyOptions maps the config to the options of the suite runner.
func (c *Config) VerifyOptions() verify.Options {
	return verify.Options{
		BaseURL:              c.BaseURL,
		Timeout:              c.Timeout,
		DistributionRequests: c.DistributionRequests,
		ConcurrentWorkers:    c.ConcurrentWorkers,
		RequestsPerWorker:    c.RequestsPerWorker,
		UnknownPolicy:        c.UnknownPolicy,
	}
}
