package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <project>",
		Short: "Print the full bible as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(args[0])
		},
	}
	return cmd
}

func runExport(projectID string) error {
	ctx := context.Background()

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	svc, adapter, err := openService(ctx, logger)
	if err != nil {
		return err
	}
	defer adapter.Close(ctx)

	b, err := svc.ExportBible(ctx, projectID)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding bible: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}
