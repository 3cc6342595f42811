// Command storyteller runs a narrated demo colony and inspects saved sessions.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/talgya/storyteller/internal/config"
)

var (
	configPath string
	dbPath     string
)

func main() {
	root := &cobra.Command{
		Use:           "storyteller",
		Short:         "Narrated colony storyteller",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "storyteller.yaml", "Path to the config file")
	root.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")

	root.AddCommand(runCmd())
	root.AddCommand(journalCmd())
	root.AddCommand(nemesesCmd())
	root.AddCommand(eventsCmd())

	if err := root.Execute(); err != nil {
		slog.Error("storyteller failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads the config and installs the default logger at its level.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if dbPath != "" {
		cfg.Storage.DB = dbPath
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
	return cfg, nil
}
