package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"storybible/internal/bible"
)

func snapshotCmd() *cobra.Command {
	var maxEntities int
	var maxAttrs int
	cmd := &cobra.Command{
		Use:   "snapshot <project>",
		Short: "Print the bounded bible projection used for model grounding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(args[0], maxEntities, maxAttrs)
		},
	}
	cmd.Flags().IntVar(&maxEntities, "max-entities", bible.DefaultSnapshotEntities, "Entity bound")
	cmd.Flags().IntVar(&maxAttrs, "max-attrs", bible.DefaultSnapshotAttrs, "Attribute keys per entity")
	return cmd
}

func runSnapshot(projectID string, maxEntities, maxAttrs int) error {
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

	snap, err := svc.GetSnapshot(ctx, projectID, bible.SnapshotOptions{
		MaxEntities:       maxEntities,
		MaxAttrsPerEntity: maxAttrs,
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}
