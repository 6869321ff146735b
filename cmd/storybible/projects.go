package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func projectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List every known project key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjects()
		},
	}
	return cmd
}

func runProjects() error {
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

	projects, err := svc.ListProjects(ctx)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Fprintln(os.Stdout, "No projects found.")
		return nil
	}
	for _, p := range projects {
		fmt.Fprintln(os.Stdout, p)
	}
	return nil
}
