package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"storybible/internal/bible"
)

func entityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entity",
		Short: "Manage entities in a project bible",
	}
	cmd.AddCommand(entityUpsertCmd())
	cmd.AddCommand(entityRemoveCmd())
	return cmd
}

func entityUpsertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upsert <project> <payload.json>",
		Short: "Merge one entity, or a JSON array of entities, into the bible",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEntityUpsert(args[0], args[1])
		},
	}
	return cmd
}

func runEntityUpsert(projectID, payloadPath string) error {
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

	deltas, err := decodeEntityPayload(payload)
	if err != nil {
		return err
	}
	return svc.UpsertEntities(ctx, projectID, deltas)
}

// decodeEntityPayload accepts either a single entity object or an array.
func decodeEntityPayload(payload []byte) ([]bible.Entity, error) {
	var deltas []bible.Entity
	if err := json.Unmarshal(payload, &deltas); err == nil {
		return deltas, nil
	}
	var single bible.Entity
	if err := json.Unmarshal(payload, &single); err != nil {
		return nil, fmt.Errorf("decoding entity payload: %w", err)
	}
	return []bible.Entity{single}, nil
}

func entityRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <project> <id>",
		Short: "Delete an entity by exact id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEntityRemove(args[0], args[1])
		},
	}
	return cmd
}

func runEntityRemove(projectID, id string) error {
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

	return svc.RemoveEntity(ctx, projectID, id)
}
