// Gray Logic Conductor - goal-driven home automation.
//
// The conductor turns a free-text goal ("movie time", "goodnight") into a
// plan of specialist steps and executes it against the home's devices,
// retrying transient failures and reporting progress as it goes.
//
// Commands:
//
//	conductor serve            run the HTTP/WebSocket service
//	conductor plan "<goal>"    build and execute one plan from the command line
//	conductor version          print build information
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-conductor/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-conductor/internal/infrastructure/logging"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on Ctrl+C or SIGTERM so every command shuts down cleanly.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd(out io.Writer) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "conductor",
		Short: "Goal-driven home automation conductor",
		Long: `Conductor classifies a natural-language goal, builds a plan of
specialist steps (ambiance, security, energy, wellness) and executes it
against the home's devices with retries, fallbacks and progress events.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Config file path (YAML); defaults to $CONDUCTOR_CONFIG or "+defaultConfigPath)

	cmd.AddCommand(serveCmd(&configPath))
	cmd.AddCommand(planCmd(&configPath))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "conductor %s (commit %s, built %s)\n", version, commit, date)
		},
	})

	return cmd
}

// resolveConfigPath picks the config file: the --config flag, then
// CONDUCTOR_CONFIG, then the default path if it exists. An empty result
// means built-in defaults plus environment overrides.
func resolveConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if path := os.Getenv("CONDUCTOR_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

// loadConfig loads configuration and builds the logger it describes.
func loadConfig(flag string) (*config.Config, *logging.Logger, error) {
	path := resolveConfigPath(flag)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	log := logging.New(cfg.Logging, version)
	if path != "" {
		log.Debug("configuration loaded", "path", path)
	}
	return cfg, log, nil
}

// errInterrupted is returned when a command is stopped by a signal before
// it could finish its work.
var errInterrupted = errors.New("interrupted")
