// Thermostatui shows a Better Thermostat climate entity from Home Assistant
// as an interactive card: in the terminal, over a small HTTP API, or as a
// one-shot render.
//
// Usage:
//
//	thermostatui [command] [flags]
//
// Connection settings come from the environment (HA_URL, HA_TOKEN,
// READ_ONLY, CARD_CONFIG, API_PORT, LOG_LEVEL); a .env file is loaded first
// when present.
package main

import (
	"fmt"
	"os"

	"thermostatui/internal/config"
	"thermostatui/internal/ha"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Set with -ldflags at build time
var (
	version = "dev"
	commit  = "none"
)

var (
	runtimeCfg config.Runtime
	cardPath   string
	readOnly   bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "thermostatui",
	Short: "Better Thermostat climate card",
	Long: `An interactive card for a Home Assistant climate entity managed by
Better Thermostat.

Drag or step the target temperature, switch between heat, eco and off,
and watch window, summer, battery and error alerts. Without a command the
terminal card is started.`,
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is fine; the environment may already be set
		_ = godotenv.Load()
		runtimeCfg = config.FromEnv()
		if !cmd.Flags().Changed("config") {
			cardPath = runtimeCfg.CardConfig
		}
		if !cmd.Flags().Changed("read-only") {
			readOnly = runtimeCfg.ReadOnly
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, args)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&cardPath, "config", "c", "card.yaml", "Card configuration file (overrides CARD_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&readOnly, "read-only", false, "Log service calls instead of sending them (overrides READ_ONLY)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("thermostatui %s (commit: %s)\n", version, commit)
	},
}

// newLogger builds a console logger at LOG_LEVEL (info by default) writing
// to the given paths, stdout when none are given
func newLogger(level string, paths ...string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
		}
		lvl = parsed
	}
	if len(paths) == 0 {
		paths = []string{"stdout"}
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(lvl),
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      paths,
		ErrorOutputPaths: []string{"stderr"},
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// connect dials Home Assistant with the runtime settings
func connect(logger *zap.Logger) (*ha.Client, error) {
	if err := runtimeCfg.RequireConnection(); err != nil {
		return nil, err
	}

	logger.Info("Connecting to Home Assistant",
		zap.String("url", runtimeCfg.HAURL),
		zap.Bool("read_only", readOnly))

	client := ha.NewClient(runtimeCfg.HAURL, runtimeCfg.HAToken, logger)
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to Home Assistant: %w", err)
	}
	return client, nil
}
