package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"storybible/internal/bible"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <project> <payload.json>",
		Short: "Merge a partial bible through the normal upsert paths",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(args[0], args[1])
		},
	}
	return cmd
}

func runImport(projectID, payloadPath string) error {
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

	payload, err := readPayload(payloadPath)
	if err != nil {
		return err
	}

	var partial bible.Bible
	if err := json.Unmarshal(payload, &partial); err != nil {
		return fmt.Errorf("decoding bible payload: %w", err)
	}
	return svc.ImportBible(ctx, projectID, &partial)
}
