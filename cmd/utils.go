package cmd

import (
	"fmt"

	"github.com/arim-dx/rdex/pkg/config"
	"github.com/arim-dx/rdex/pkg/search"
)

// loadService loads the config and builds the search service on top of it.
func loadService(configPath string) (*search.Service, *config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	return search.NewService(cfg), cfg, nil
}
