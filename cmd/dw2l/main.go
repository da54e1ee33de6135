// The dw2l command inspects and rewrites DW2L level files.
package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dw2tools/dw2file/internal/config"
	"github.com/dw2tools/dw2file/internal/logger"
	"github.com/dw2tools/dw2file/internal/metrics"
)

const (
	cliName        = "dw2l"
	cliDescription = "inspect and rewrite DW2L level files"
)

const long = `Reads and writes DW2L level files.

Wherever a command takes an INPUT or OUTPUT path, "-" means stdin or stdout.
Warnings are logged to stderr at the "warn" level.`

// app holds the state shared by the commands of one run.
type app struct {
	flags   *config.Flags
	format  string
	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Metrics
}

func (a *app) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           cliName,
		Short:         cliDescription,
		Long:          long,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	a.flags = config.BindFlags(cmd.PersistentFlags())
	cmd.PersistentFlags().StringVar(&a.format, "format", "table", "output format (table, json)")

	cmd.AddCommand(
		a.statCommand(),
		a.dumpCommand(),
		a.rewriteCommand(),
		a.compressCommand(),
		a.decompressCommand(),
		a.stringsCommand(),
		a.planCommand(),
		a.floorsCommand(),
	)
	return cmd
}

// setup loads the configuration, then builds the logger and metrics from it.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.flags)
	if err != nil {
		return err
	}
	a.cfg = cfg

	fileCfg := logger.FileConfig{
		Path:       cfg.Logging.LogFile,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	}
	if a.log, err = logger.New(cfg.Logging.Level, fileCfg, cmd.ErrOrStderr()); err != nil {
		return err
	}
	a.log = a.log.With(zap.String("cmd", cmd.Name()))
	a.metrics = metrics.New()
	return nil
}

// close flushes the logger and writes the metrics file, if configured.
func (a *app) close() error {
	if a.log != nil {
		_ = a.log.Sync()
	}
	if a.cfg == nil || a.cfg.Metrics.File == "" {
		return nil
	}
	return a.metrics.WriteFile(a.cfg.Metrics.File)
}

// run executes the command line args and returns the exit status.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if cerr := a.close(); err == nil {
		err = cerr
	}
	if err != nil {
		a.failed(stderr, err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
