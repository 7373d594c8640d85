// Command fms runs the FMS tool order tracker: the HTTP API and browser
// client, the terminal dashboard and the maintenance commands.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nhle/fms-tracker/internal/model"
)

var (
	// Global flags
	configPath string
	dbPath     string
	verbose    bool

	cfg    *model.AppConfig
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "fms",
	Short: "Track tool orders through the fixed manufacturing workflow",
	Long: `fms tracks tool orders through eight workflow steps, records the delay
of every completed step and alerts managers about overdue steps.

Configuration is read from ~/.config/fms/config.yaml and FMS_* environment
variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = model.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if dbPath != "" {
			cfg.Database.Path = dbPath
		}

		// The dashboard owns the terminal; it builds its own logger.
		if cmd.Name() == dashboardCmd.Name() {
			logger = zap.NewNop()
			return nil
		}

		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", model.DefaultConfigPath(), "config file path")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides database.path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		serveCmd,
		checkDelaysCmd,
		reportCmd,
		resetCmd,
		dashboardCmd,
		credentialCmd,
		configCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
