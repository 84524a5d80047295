package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/arim-dx/rdex/pkg/index"
	"github.com/urfave/cli/v3"
)

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search indexed datasets",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "field",
				Usage: "Criterion as field=value (repeatable). Fields: " + strings.Join(index.Fields, ", "),
			},
			&cli.BoolFlag{
				Name:  "rebuild",
				Usage: "Force an index rebuild before searching",
				Value: false,
			},
			&cli.BoolFlag{
				Name:  "ids-only",
				Usage: "Print matching dataset ids only",
				Value: false,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return searchDatasets(c.String("config"), c.StringSlice("field"), c.Bool("rebuild"), c.Bool("ids-only"))
		},
	}
}

// parseCriteria turns repeated field=value arguments into a criteria map.
func parseCriteria(pairs []string) (map[string]string, error) {
	criteria := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		field, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid criterion %q, expected field=value", pair)
		}
		criteria[strings.TrimSpace(field)] = value
	}
	return criteria, nil
}

// searchDatasets runs a multi-field search against the index
func searchDatasets(configPath string, fieldPairs []string, rebuild, idsOnly bool) error {
	criteria, err := parseCriteria(fieldPairs)
	if err != nil {
		return err
	}

	svc, _, err := loadService(configPath)
	if err != nil {
		return err
	}

	payload, err := svc.EnsureIndex(rebuild)
	if err != nil {
		return fmt.Errorf("ensuring index: %w", err)
	}

	ids, err := svc.SearchDatasetIDs(payload, criteria)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}
	if ids == nil {
		return fmt.Errorf("no search criteria given, use --field field=value")
	}

	if idsOnly {
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	}

	if len(ids) == 0 {
		fmt.Println(noDataStyle.Render("No datasets matched"))
		return nil
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("%d matching datasets", len(ids))))
	for i, id := range ids {
		rec := payload.Datasets[id]
		fmt.Printf("%d. %s\n", i+1, renderDataset(rec))
	}
	return nil
}

func renderDataset(rec index.DatasetRecord) string {
	line := fmt.Sprintf("%s  %s", rec.DatasetID, rec.DatasetName)
	var details []string
	if rec.GrantNumber != "" {
		details = append(details, "grant "+rec.GrantNumber)
	}
	if rec.SubgroupName != "" {
		details = append(details, rec.SubgroupName)
	}
	if len(rec.EquipmentNames) > 0 {
		details = append(details, strings.Join(rec.EquipmentNames, ", "))
	}
	if len(details) > 0 {
		line += "\n   " + metaStyle.Render(strings.Join(details, " · "))
	}
	return line
}
