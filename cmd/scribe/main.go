// Command scribe runs the RAG blog pipeline and manages its knowledge base,
// sources, personas and credentials.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/app"
	"github.com/ternarybob/scribe/internal/common"
)

var (
	// Command-line flags
	configFiles []string // Multiple --config flags supported
	logLevel    string

	// Global state
	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:   "scribe",
	Short: "Retrieval-augmented blog writer",
	Long: `scribe turns a knowledge base and configured content sources into published
blog posts. Each run collects candidate items, retrieves supporting KB context,
asks a language model for an angle and an article, and publishes the result.`,
	Version:           common.GetVersion(),
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil, "Configuration file path (repeatable, later files override earlier ones)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
}

func main() {
	defer common.RecoverWithCrashFile()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig runs before every command.
// Order: defaults -> config files -> env -> flags, then the logger.
func loadConfig(cmd *cobra.Command, args []string) error {
	if len(configFiles) == 0 {
		if _, err := os.Stat("scribe.toml"); err == nil {
			configFiles = append(configFiles, "scribe.toml")
		} else if _, err := os.Stat("deployments/local/scribe.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/scribe.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if logLevel != "" {
		config.Logging.Level = logLevel
	}
	logger = common.InitLogger(config)
	common.InstallCrashHandler(config.Logging.Dir)

	logger.Debug().
		Strs("config_files", configFiles).
		Str("environment", config.Environment).
		Str("mode", config.Pipeline.Mode).
		Str("storage_path", config.Storage.Badger.Path).
		Str("log_level", config.Logging.Level).
		Msg("Configuration loaded")

	return nil
}

// withApp initializes the application, runs fn and closes it. SIGINT and
// SIGTERM cancel the context passed to fn.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	application, err := app.New(config, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close application")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return fn(ctx, application)
}
