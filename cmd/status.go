package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/arim-dx/rdex/pkg/index"
	"github.com/urfave/cli/v3"
)

// StatusCommand creates the status command
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show search index status",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "refresh",
				Usage: "Rebuild the index first if it is missing or stale",
				Value: false,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return showStatus(c.String("config"), c.Bool("refresh"))
		},
	}
}

// showStatus displays the index overview
func showStatus(configPath string, refresh bool) error {
	svc, cfg, err := loadService(configPath)
	if err != nil {
		return err
	}

	store := svc.Store()
	var payload *index.Payload

	if refresh {
		payload, err = svc.EnsureIndex(false)
		if err != nil {
			return fmt.Errorf("refreshing index: %w", err)
		}
	} else {
		payload, err = store.Load()
		if err != nil {
			return fmt.Errorf("loading index: %w", err)
		}
		if payload == nil {
			fmt.Println(noDataStyle.Render("No index built yet, run: rdex build"))
			return nil
		}
	}

	ov := svc.Overview(payload)

	fmt.Println(titleStyle.Render("RDE search index"))
	fmt.Printf("Index file:    %s\n", store.IndexPath())
	fmt.Printf("Source dir:    %s\n", cfg.DataDir)
	fmt.Printf("Generated at:  %s\n", ov.GeneratedAt)
	fmt.Printf("Format:        v%d\n", ov.Version)
	if store.Stale(payload) {
		fmt.Println(metaStyle.Render("Index is stale: source dumps changed since last build"))
	}

	fmt.Println(headerStyle.Render("Indexed values per field"))
	fields := make([]string, 0, len(ov.ReverseCounts))
	for field := range ov.ReverseCounts {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		fmt.Printf("  %-20s %d\n", field, ov.ReverseCounts[field])
	}

	fmt.Println(summaryStyle.Render(fmt.Sprintf("%d datasets indexed", ov.DatasetCount)))
	return nil
}
