package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func clearCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "clear <project>",
		Short: "Delete a project's bible entirely",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("refusing to delete %q without --force", strings.TrimSpace(args[0]))
			}
			return runClear(args[0])
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Skip the confirmation guard")
	return cmd
}

func runClear(projectID string) error {
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

	return svc.ClearBible(ctx, projectID)
}
