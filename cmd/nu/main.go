package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sousajf1/nushell/internal/config"
	"github.com/sousajf1/nushell/internal/host"
	"github.com/sousajf1/nushell/internal/logging"
	"github.com/sousajf1/nushell/internal/session"
)

var (
	// Global flags
	verbose     bool
	configPath  string
	commandText string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "nu [script]",
	Short: "A shell whose pipelines carry structured values",
	Long: `nu runs pipelines of commands that pass rows, tables and scalars
between stages instead of text.

Run without arguments to start an interactive session.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", configPath, err)
		}
		logger, err = logging.New(cfg.Logging, verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runShell,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "configuration file")
	rootCmd.Flags().StringVarP(&commandText, "commands", "c", "", "run the given commands and exit")

	rootCmd.AddCommand(lexCmd, astCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	term := host.NewTerminal(os.Stdout, os.Stderr)
	s, err := session.New(ctx, session.Options{
		Config:  cfg,
		Host:    term,
		Logger:  logger,
		Environ: os.Environ(),
	})
	if err != nil {
		return err
	}
	interruptOnSignal(s)

	switch {
	case commandText != "":
		_ = s.Run(ctx, commandText, "<commands>")
	case len(args) == 1:
		_ = s.RunFile(ctx, args[0])
	default:
		return s.Loop(ctx, os.Stdin, os.Stdout)
	}

	if code := s.ExitCode(); code != 0 && !s.Context().Terminated() {
		os.Exit(code)
	}
	return nil
}

// interruptOnSignal makes Ctrl-C stop the running pipeline instead of the
// process.
func interruptOnSignal(s *session.Session) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt)
	go func() {
		for range signals {
			s.Context().CtrlC.Store(true)
		}
	}()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
