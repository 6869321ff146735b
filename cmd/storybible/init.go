package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"storybible/internal/config"
)

func initCmd() *cobra.Command {
	var backend string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default storybible.yaml in the current directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(backend)
		},
	}
	cmd.Flags().StringVar(&backend, "backend", "file", "Storage backend (file, sqlite, postgres, badger, memory)")
	return cmd
}

func runInit(backend string) error {
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("%s already exists", configFile)
	}

	cfg := config.Default()
	cfg.Storage.Backend = backend
	switch backend {
	case "file", "badger":
		cfg.Storage.Path = ".storybible"
		cfg.Storage.DSN = ""
	case "sqlite":
		cfg.Storage.Path = ""
		cfg.Storage.DSN = "sqlite://storybible.db"
	case "postgres":
		cfg.Storage.Path = ""
		cfg.Storage.DSN = "postgres://localhost:5432/storybible"
	case "memory":
		cfg.Storage.Path = ""
		cfg.Storage.DSN = ""
	default:
		return fmt.Errorf("unknown storage backend %q", backend)
	}

	contents, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(configFile, contents, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", configFile, err)
	}
	return nil
}
