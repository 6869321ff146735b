package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var debug bool

func main() {
	root := &cobra.Command{
		Use:   "storybible",
		Short: "Local-first story bible store for writing projects",
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	root.AddCommand(initCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(entityCmd())
	root.AddCommand(threadCmd())
	root.AddCommand(searchCmd())
	root.AddCommand(snapshotCmd())
	root.AddCommand(exportCmd())
	root.AddCommand(importCmd())
	root.AddCommand(projectsCmd())
	root.AddCommand(clearCmd())
	root.AddCommand(versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger builds a stderr logger so stdout stays free for command output
// and the MCP transport.
func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}
