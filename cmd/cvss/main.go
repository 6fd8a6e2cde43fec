// cvss scores CVSS v3.1 base metrics and assesses vulnerability files.
//
// Usage:
//
//	cvss score --vector CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H
//	cvss score --av N --ac L --pr N --ui N --s U --c H --i H --a H --format json
//	cvss vector --av L --ac L --pr L --ui N --s U --c H --i H --a H
//	cvss parse CVSS:3.1/AV:N/AC:L/PR:N/UI:R/S:C/C:L/I:L/A:N
//	cvss severity 7.5
//	cvss assess findings.yaml --out report.json.zst --fail-on high
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/exploopio/cvss/pkg/core"
	sdkerrors "github.com/exploopio/cvss/pkg/errors"
	"github.com/exploopio/cvss/pkg/metrics"
)

var version = "0.1.0"

// Exit codes.
const (
	exitOK        = 0
	exitFailure   = 1
	exitThreshold = 2
	exitInvalid   = 3
)

// app holds state shared by every subcommand.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath  string
	logLevel    string
	verbose     bool
	metricsFile string

	cfg       Config
	logger    core.Logger
	collector *metrics.PrometheusCollector
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr, cfg: defaultConfig()}

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if werr := a.flushMetrics(); werr != nil {
		fmt.Fprintf(stderr, "write metrics: %v\n", werr)
		if err == nil {
			return exitFailure
		}
	}
	if err == nil {
		return exitOK
	}

	var ee *exitErr
	if errors.As(err, &ee) {
		fmt.Fprintln(stderr, ee.msg)
		return ee.code
	}
	fmt.Fprintln(stderr, err)
	if sdkerrors.IsInvalidInput(err) {
		return exitInvalid
	}
	return exitFailure
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "cvss",
		Short:         "Score CVSS v3.1 vectors and assess vulnerability reports",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file path (default: $"+configEnv+")")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error or silent")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&a.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")

	root.AddCommand(
		newScoreCmd(a),
		newVectorCmd(a),
		newParseCmd(a),
		newSeverityCmd(a),
		newAssessCmd(a),
	)

	return root
}

// setup loads the config file and builds the logger and metrics collector.
// Flags override config values.
func (a *app) setup() error {
	path := a.configPath
	if path == "" {
		path = os.Getenv(configEnv)
	}
	if path != "" {
		if err := loadConfig(path, &a.cfg); err != nil {
			return exitError(exitInvalid, "config %s: %v", path, err)
		}
	}

	levelName := a.cfg.LogLevel
	if a.logLevel != "" {
		levelName = a.logLevel
	}
	level, err := core.ParseLogLevel(levelName)
	if err != nil {
		return exitError(exitInvalid, "%v", err)
	}
	if a.verbose {
		level = core.LogLevelDebug
	}

	logger := core.NewDefaultLogger("cvss", level)
	logger.SetOutput(a.stderr)
	a.logger = logger
	core.SetDefaultLogger(logger)

	if a.metricsFile == "" {
		a.metricsFile = a.cfg.Metrics.File
	}
	collector, err := metrics.NewPrometheusCollector(metrics.PrometheusConfig{
		Namespace: a.cfg.Metrics.Namespace,
		Runtime:   a.cfg.Metrics.Runtime,
	})
	if err != nil {
		return exitError(exitInvalid, "metrics: %v", err)
	}
	a.collector = collector
	metrics.SetDefaultCollector(collector)

	if path != "" {
		a.logger.Debug("loaded config %s", path)
	}
	return nil
}

// flushMetrics writes the registry to the metrics file, if one is configured.
func (a *app) flushMetrics() error {
	if a.collector == nil || a.metricsFile == "" {
		return nil
	}
	if err := a.collector.WriteTextfile(a.metricsFile); err != nil {
		return err
	}
	a.logger.Debug("metrics written to %s", a.metricsFile)
	return nil
}

type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

func exitError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}
