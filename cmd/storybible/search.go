package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <project> [query]",
		Short: "Search entities and threads by substring",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) > 1 {
				query = args[1]
			}
			return runSearch(args[0], query)
		},
	}
	return cmd
}

func runSearch(projectID, query string) error {
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

	result, err := svc.SearchBible(ctx, projectID, query)
	if err != nil {
		return err
	}

	if len(result.Entities) == 0 && len(result.Threads) == 0 {
		fmt.Fprintln(os.Stdout, "No matches found.")
		return nil
	}
	for _, e := range result.Entities {
		fmt.Fprintf(os.Stdout, "%s (%d attrs, %d evidence)\n", e.ID, len(e.Attrs), len(e.Evidence))
	}
	for _, t := range result.Threads {
		fmt.Fprintf(os.Stdout, "thread %q [%s] (%d todos)\n", t.Name, t.Status, len(t.Todos))
	}
	return nil
}
