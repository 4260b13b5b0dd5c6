package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/chirp/internal/config"
	"github.com/R3E-Network/chirp/internal/logging"
)

// Set with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "chirp",
		Short: "chirp - emoji microblog API server",
		Long: `chirp serves the emoji-only microblog API: a global feed, per-user
feeds, comments and profiles, backed by PostgreSQL, Redis and the identity
provider's backend API.

Settings come from built-in defaults, an optional YAML file (--config), a
.env file and the environment, in that order.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CHIRP_CONFIG"), "path to a YAML config file")

	root.AddCommand(newServeCmd(), newMigrateCmd(), newVersionCmd())
	return root
}

func loadConfig() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logging.New("chirp", cfg.Logging.Level, cfg.Logging.Format), nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
