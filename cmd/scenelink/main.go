// Command scenelink instruments scene sources and serves the runtime side of
// the editor link.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    *Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "scenelink",
	Short: "Live link between a scene editor and a running 3D scene",
	Long: `scenelink tags every element of a JSX scene with its source position,
renders the tagged scene, and keeps it in sync with an editor over a
request/response bridge.

Use "instrument" to inspect what the tagging produces, "serve" to expose the
bridge over WebSocket, and "preview" to open a local window.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		level, err := cfg.level(verbose)
		if err != nil {
			return err
		}
		logger, err = newLogger(level)
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
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "scenelink.yaml", "Config file (ignored when missing)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(instrumentCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(previewCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
