package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/urfave/cli/v3"
)

// ExportCommand creates the export command
func ExportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export a compressed snapshot of the search index",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "output",
				Usage: "Snapshot path (defaults to <index file>.gz)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return exportIndex(c.String("config"), c.String("output"))
		},
	}
}

// exportIndex gzips the current index file for sharing or backup
func exportIndex(configPath, outputPath string) error {
	svc, _, err := loadService(configPath)
	if err != nil {
		return err
	}

	payload, err := svc.EnsureIndex(false)
	if err != nil {
		return fmt.Errorf("ensuring index: %w", err)
	}

	indexPath := svc.Store().IndexPath()
	if outputPath == "" {
		outputPath = indexPath + ".gz"
	}

	in, err := os.Open(indexPath)
	if err != nil {
		return fmt.Errorf("opening index file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating snapshot file: %w", err)
	}

	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		out.Close()
		return fmt.Errorf("compressing index: %w", err)
	}
	if err := gz.Close(); err != nil {
		out.Close()
		return fmt.Errorf("finishing snapshot: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing snapshot file: %w", err)
	}

	fmt.Printf("Exported %d datasets to %s (build %s)\n",
		payload.Meta.DatasetCount, outputPath, payload.Meta.BuildID)
	return nil
}
