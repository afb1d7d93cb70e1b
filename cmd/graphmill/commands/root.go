package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// CurrentVersion is stamped into --version output and telemetry.
const CurrentVersion = "0.4.0"

var (
	cfgFile  string
	verbose  bool
	jsonLogs bool
)

var rootCmd = &cobra.Command{
	Use:   "graphmill",
	Short: "Stepwise graph construction and analysis",
	Long: `graphmill - build, select, traverse, analyze

Executes HCL operation scripts against an immutable graph value:
add nodes and edges, scope later mutations with selections and
traversals, register deferred graph actions, and compute metrics.`,
	Version: CurrentVersion,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initLogging)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.graphmill.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Emit logs as JSON")

	rootCmd.AddCommand(RunCmd)
	rootCmd.AddCommand(InspectCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.SetConfigFile(filepath.Join(home, ".graphmill.yaml"))
			viper.SetConfigType("yaml")
		}
	}
	viper.SetEnvPrefix("GRAPHMILL")
	viper.AutomaticEnv()
	viper.ReadInConfig()
}

func initLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if jsonLogs {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
