package main

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/ceros-embed/ceros-embed/internal/logging"
	"github.com/spf13/cobra"
)

// annotationStructuredLog marks commands whose output is structured logs rather than text for a
// person at a terminal.
const annotationStructuredLog = "ceros-embed/structured-log"

var structuredLog = map[string]string{annotationStructuredLog: "true"}

var rootCmd = &cobra.Command{
	Use:               "ceros-embed",
	Short:             "Link Ceros experiences to content entries.",
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: prepareCommand,
}

// Execute runs the command named by the process arguments. Commands observe ctx through
// cmd.Context().
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd, configureCmd, contentTypesCmd, linkCmd, unlinkCmd, refreshCmd, fetchCmd, versionCmd)
}

type commandExecutionContext struct {
	CommandPath       string
	UsesStructuredLog bool
}

var (
	executionMu  sync.RWMutex
	executionCtx commandExecutionContext
)

func setCommandExecutionContext(ctx commandExecutionContext) {
	executionMu.Lock()
	defer executionMu.Unlock()
	executionCtx = ctx
}

func resetCommandExecutionContext() {
	setCommandExecutionContext(commandExecutionContext{})
}

func currentCommandExecutionContext() commandExecutionContext {
	executionMu.RLock()
	defer executionMu.RUnlock()
	return executionCtx
}

func commandUsesStructuredLogging(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationStructuredLog] == "true" {
			return true
		}
	}
	return false
}

func prepareCommand(cmd *cobra.Command, _ []string) error {
	structured := commandUsesStructuredLogging(cmd)
	setCommandExecutionContext(commandExecutionContext{
		CommandPath:       cmd.CommandPath(),
		UsesStructuredLog: structured,
	})
	if !structured {
		return nil
	}
	if _, err := logging.BootstrapFromEnv(logging.BootstrapOptions{
		Command: cmd.CommandPath(),
		Writer:  cmd.ErrOrStderr(),
	}); err != nil {
		return usageError(err)
	}
	return nil
}

// commandLogger returns the bootstrapped logger for structured commands and a quiet text logger
// on stderr for interactive ones.
func commandLogger(cmd *cobra.Command) *slog.Logger {
	if commandUsesStructuredLogging(cmd) {
		return slog.Default()
	}
	return interactiveLogger(cmd.ErrOrStderr(), cmd.CommandPath())
}

func interactiveLogger(w io.Writer, command string) *slog.Logger {
	cfg, err := logging.LoadConfigFromEnv()
	if err != nil {
		cfg = logging.DefaultConfig()
	}
	cfg.Format = "text"
	if cfg.Level < slog.LevelWarn {
		cfg.Level = slog.LevelWarn
	}
	return logging.NewLogger(cfg, w, command)
}
