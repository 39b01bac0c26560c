package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"thermostatui/internal/api"
	"thermostatui/internal/card"
	"thermostatui/internal/config"
	"thermostatui/internal/ha"
	"thermostatui/internal/haptic"
	"thermostatui/internal/tui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Command flags
var (
	apiPort        int
	reloadInterval time.Duration
	logFile        string
	renderWait     time.Duration
	initForce      bool
)

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(initCmd)

	runCmd.Flags().IntVar(&apiPort, "port", 0, "HTTP API port (overrides API_PORT)")
	runCmd.Flags().DurationVar(&reloadInterval, "reload-interval", 5*time.Second, "How often the card config file is checked for changes")

	tuiCmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file while the terminal card is shown (silent when empty)")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file while the terminal card is shown (silent when empty)")

	renderCmd.Flags().DurationVar(&renderWait, "wait", 5*time.Second, "How long to wait for the entity state")

	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing card config")
}

// runCmd serves the card over HTTP until interrupted
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Serve the card over the HTTP API",
	Long: `Connect to Home Assistant and serve the card state and actions over HTTP.

The card config file is reloaded when it changes on disk or when the
process receives SIGHUP.`,
	Example: `  # Serve on API_PORT (8080 by default)
  thermostatui run

  # Try gestures without touching the thermostat
  thermostatui run --read-only --port 9090`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(runtimeCfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	loader := config.NewLoader(cardPath, logger)
	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	client, err := connect(logger)
	if err != nil {
		return err
	}
	defer client.Disconnect()

	c := card.New(client, cfg, logger, readOnly)
	if err := c.Start(); err != nil {
		return err
	}
	defer c.Stop()
	client.SetReconnectHandler(c.Resync)

	port := runtimeCfg.APIPort
	if apiPort > 0 {
		port = apiPort
	}
	server := api.NewServer(c, logger, port)
	c.OnMoreInfo(server.RecordMoreInfo)
	if err := server.Start(); err != nil {
		return err
	}
	defer server.Stop()

	reconfigure := func(next *config.Card) {
		if err := c.Reconfigure(next); err != nil {
			logger.Error("Failed to apply card config", zap.Error(err))
		}
	}
	loader.StartAutoReload(reloadInterval, reconfigure)
	defer loader.Stop()

	if readOnly {
		logger.Info("Running in READ-ONLY mode - no changes will be made to Home Assistant")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	for sig := range sigChan {
		if sig != syscall.SIGHUP {
			break
		}
		logger.Info("SIGHUP received, reloading card config")
		next, err := loader.Load()
		if err != nil {
			logger.Error("Failed to reload card config", zap.Error(err))
			continue
		}
		reconfigure(next)
	}

	logger.Info("Shutting down gracefully...")
	return nil
}

// tuiCmd shows the interactive card in the terminal
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Show the card in the terminal",
	RunE:  runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	// The terminal belongs to the card, so logs only go to a file
	logger := zap.NewNop()
	if logFile != "" {
		var err error
		if logger, err = newLogger(runtimeCfg.LogLevel, logFile); err != nil {
			return err
		}
		defer logger.Sync()
	}

	cfg, err := config.NewLoader(cardPath, logger).Load()
	if err != nil {
		return err
	}

	client, err := connect(logger)
	if err != nil {
		return err
	}
	defer client.Disconnect()

	c := card.New(client, cfg, logger, readOnly)
	c.SetHaptic(haptic.NewBell(os.Stderr))
	if err := c.Start(); err != nil {
		return err
	}
	defer c.Stop()
	client.SetReconnectHandler(c.Resync)

	return tui.Run(c, os.Stdin, os.Stdout)
}

// renderCmd prints the card once and exits
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Print the card once",
	Long: `Connect, wait for the entity state and print the card as the terminal
view would show it. Useful for status bars and quick checks.`,
	RunE: runRender,
}

func runRender(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(runtimeCfg.LogLevel, "stderr")
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := config.NewLoader(cardPath, logger).Load()
	if err != nil {
		return err
	}

	client, err := connect(logger)
	if err != nil {
		return err
	}
	defer client.Disconnect()

	c := card.New(client, cfg, logger, true)
	ready := make(chan struct{})
	c.OnChange(func(v card.View) {
		if v.Snapshot != nil {
			select {
			case <-ready:
			default:
				close(ready)
			}
		}
	})
	if err := c.Start(); err != nil {
		return err
	}
	defer c.Stop()

	select {
	case <-ready:
	case <-time.After(renderWait):
		return fmt.Errorf("no state received for %s within %s", cfg.Entity, renderWait)
	}

	fmt.Fprintln(cmd.OutOrStdout(), tui.RenderOnce(c))
	return nil
}

// initCmd writes a starter card config for the first Better Thermostat found
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter card config",
	Long: `Look up the climate entities in Home Assistant and write a card config
for the first Better Thermostat (or any climate entity if none is found).`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(runtimeCfg.LogLevel, "stderr")
	if err != nil {
		return err
	}
	defer logger.Sync()

	if _, err := os.Stat(cardPath); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cardPath)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	client, err := connect(logger)
	if err != nil {
		return err
	}
	defer client.Disconnect()

	states, err := client.GetAllStates()
	if err != nil {
		return fmt.Errorf("failed to list entities: %w", err)
	}
	return writeStub(states, cardPath)
}

func writeStub(states []*ha.State, path string) error {
	stub, err := config.StubCard(states)
	if err != nil {
		return err
	}
	data, err := stub.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Printf("Wrote %s for %s\n", path, stub.Entity)
	return nil
}
