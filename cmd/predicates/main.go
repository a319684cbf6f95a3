// Command predicates evaluates named predicates against values
// from the command line and serves a live evaluation monitor.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"digital.vasic.predicates/pkg/bank"
	"digital.vasic.predicates/pkg/env"
	"digital.vasic.predicates/pkg/logging"
	"digital.vasic.predicates/pkg/predicate"
)

// Process exit codes.
const (
	exitOK               = 0
	exitUnknownPredicate = 1
	exitError            = 2
)

// exitCodeError carries a specific process exit code.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

// app holds flag values and the state built by the root
// command's pre-run hook.
type app struct {
	stdout io.Writer
	stderr io.Writer

	bankDir   string
	envFile   string
	logFormat string
	logDir    string
	verbose   bool

	cfg    *env.Config
	logger logging.Logger
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "predicates",
		Short: "Evaluate named predicates against values",
		Long: `predicates classifies values with named predicates such as
is-string, is-number or has-length.

Built-in predicates are always available. Additional predicates
can be composed from existing ones in YAML or JSON bank files
loaded with --bank-dir.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.bankDir, "bank-dir", "", "directory of predicate bank files (env "+env.KeyBankDir+")")
	flags.StringVar(&a.envFile, "env-file", "", "load configuration from a .env file")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: console or json (env "+env.KeyLogFormat+")")
	flags.StringVar(&a.logDir, "log-dir", "", "write JSON logs to this directory (env "+env.KeyLogDir+")")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newEvaluateCmd(a),
		newListCmd(a),
		newValidateCmd(a),
		newSchemaCmd(a),
		newServeCmd(a),
	)
	return root
}

// setup resolves configuration and builds the logger. Flags
// override environment values.
func (a *app) setup(cmd *cobra.Command) error {
	loader := env.NewLoader()
	if a.envFile != "" {
		if err := loader.Load(a.envFile); err != nil {
			return err
		}
	}

	cfg, err := env.LoadConfig(loader)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("bank-dir") {
		cfg.BankDir = a.bankDir
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = a.logFormat
	}
	if flags.Changed("log-dir") {
		cfg.LogDir = a.logDir
	}
	if a.verbose {
		cfg.LogLevel = logging.LevelDebug
	}
	a.cfg = cfg

	logger, err := a.newLogger()
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

func (a *app) newLogger() (logging.Logger, error) {
	var base logging.Logger
	switch a.cfg.LogFormat {
	case env.FormatJSON:
		zl, err := logging.NewZapLogger(logging.LoggerConfig{
			Output: a.stderr,
			Level:  a.cfg.LogLevel,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		base = zl
	case env.FormatConsole:
		base = logging.NewLeveledConsoleLogger(a.stderr, a.cfg.LogLevel)
	default:
		return nil, fmt.Errorf("unsupported log format: %q", a.cfg.LogFormat)
	}

	if a.cfg.LogDir == "" {
		return base, nil
	}
	files, err := logging.Setup(a.cfg.LogDir, a.cfg.LogLevel)
	if err != nil {
		_ = base.Close()
		return nil, fmt.Errorf("failed to initialize log files: %w", err)
	}
	return logging.NewMultiLogger(base, files), nil
}

// registry returns the built-in predicates plus everything
// defined in the configured bank directory.
func (a *app) registry() (*predicate.DefaultRegistry, error) {
	reg := predicate.NewBuiltinRegistry()
	if a.cfg.BankDir == "" {
		return reg, nil
	}

	b := bank.New(bank.WithLogger(a.logger))
	if err := b.LoadDir(a.cfg.BankDir, a.cfg.BankPattern); err != nil {
		return nil, fmt.Errorf("load bank: %w", err)
	}
	if err := b.Install(reg); err != nil {
		return nil, fmt.Errorf("install bank: %w", err)
	}
	return reg, nil
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if a.logger != nil {
		_ = a.logger.Close()
	}
	if err == nil {
		return exitOK
	}
	fmt.Fprintln(stderr, "Error:", err)

	var ec *exitCodeError
	if errors.As(err, &ec) {
		return ec.code
	}
	return exitError
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
