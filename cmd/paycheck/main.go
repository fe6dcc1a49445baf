package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/paycheck/internal/config"
	"github.com/dusk-indust/paycheck/internal/logging"
)

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	if err := logging.Configure(logging.LevelWarn, logging.FormatText); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// globals holds the persistent flags and the configuration they resolve to.
type globals struct {
	configPath string
	logLevel   string
	debug      bool

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "paycheck",
		Short:         "Payroll compliance checks for a worker's pay period",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.load()
		},
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "Config file (default: paycheck.yml in the working directory)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	root.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging")

	root.AddCommand(runCmd(g))
	root.AddCommand(batchCmd(g))
	root.AddCommand(stagesCmd(g))
	root.AddCommand(serveMCPCmd(g))
	root.AddCommand(workerCmd(g))
	return root
}

// load reads the configuration and reconfigures logging from it. Flags win
// over the file.
func (g *globals) load() error {
	var (
		cfg *config.Config
		err error
	)
	if g.configPath != "" {
		cfg, err = config.LoadFile(g.configPath)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if level == "" {
		level = logging.LevelWarn
	}
	if g.logLevel != "" {
		level = g.logLevel
	}
	if g.debug {
		level = logging.LevelDebug
	}
	if err := logging.Configure(level, cfg.LogFormat); err != nil {
		return err
	}
	g.cfg = cfg
	return nil
}
