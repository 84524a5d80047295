package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// BuildCommand creates the build command
func BuildCommand() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Build or refresh the search index",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "if-stale",
				Usage: "Only rebuild when the index is missing or out of date",
				Value: false,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return buildIndex(c.String("config"), c.Bool("if-stale"))
		},
	}
}

// buildIndex rebuilds the search index from the RDE dumps
func buildIndex(configPath string, ifStale bool) error {
	svc, cfg, err := loadService(configPath)
	if err != nil {
		return err
	}

	payload, err := svc.EnsureIndex(!ifStale)
	if err != nil {
		return fmt.Errorf("building index: %w", err)
	}

	fmt.Printf("Index ready: %d datasets (generated %s)\n",
		payload.Meta.DatasetCount, payload.Meta.GeneratedAt)
	fmt.Printf("Index file: %s\n", svc.Store().IndexPath())
	fmt.Printf("Source directory: %s\n", cfg.DataDir)
	return nil
}
