package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"storybible/internal/bible"
)

func threadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "thread",
		Short: "Manage narrative threads in a project bible",
	}
	cmd.AddCommand(threadUpsertCmd())
	cmd.AddCommand(threadCloseCmd())
	cmd.AddCommand(threadRemoveCmd())
	return cmd
}

func threadUpsertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upsert <project> <payload.json>",
		Short: "Merge a thread by name, creating it if new",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runThreadUpsert(args[0], args[1])
		},
	}
	return cmd
}

func runThreadUpsert(projectID, payloadPath string) error {
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

	var delta bible.Thread
	if err := json.Unmarshal(payload, &delta); err != nil {
		return fmt.Errorf("decoding thread payload: %w", err)
	}
	return svc.UpsertThread(ctx, projectID, delta)
}

func threadCloseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "close <project> <name>",
		Short: "Mark a thread closed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runThreadAction(args[0], args[1], false)
		},
	}
	return cmd
}

func threadRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <project> <name>",
		Short: "Delete a thread by exact name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runThreadAction(args[0], args[1], true)
		},
	}
	return cmd
}

func runThreadAction(projectID, name string, remove bool) error {
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

	if remove {
		return svc.RemoveThread(ctx, projectID, name)
	}
	return svc.CloseThread(ctx, projectID, name)
}
