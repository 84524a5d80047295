// Package search exposes the high-level surface the CLI consumes: keeping
// the index current and answering dataset queries through the query cache.
package search

import (
	"path/filepath"

	"github.com/arim-dx/rdex/pkg/config"
	"github.com/arim-dx/rdex/pkg/index"
	"github.com/arim-dx/rdex/pkg/log"
	"github.com/arim-dx/rdex/pkg/query"
)

// Service owns the index store and the query cache. Construct one per
// process and pass it by reference; it is not safe for concurrent use
// (single-writer model).
type Service struct {
	store  *index.Store
	cache  *query.Cache
	logger *log.Logger
}

// NewService builds a service from config.
func NewService(cfg *config.Config) *Service {
	indexDir := cfg.ResolvedIndexDir()
	return &Service{
		store:  index.NewStore(cfg.DataDir, indexDir),
		cache:  query.NewCache(filepath.Join(indexDir, query.CacheFileName), cfg.QueryCacheMaxEntries),
		logger: log.For("search"),
	}
}

// Store exposes the underlying index store.
func (s *Service) Store() *index.Store {
	return s.store
}

// EnsureIndex returns a current index, rebuilding when forced, missing or
// stale. Any rebuild wipes the query cache and re-signs it for the new
// index.
func (s *Service) EnsureIndex(force bool) (*index.Payload, error) {
	payload, rebuilt, err := s.store.Ensure(force)
	if err != nil {
		return nil, err
	}
	if rebuilt {
		if err := s.cache.Reset(payload.Signature()); err != nil {
			return nil, err
		}
	}
	return payload, nil
}

// RebuildIndex unconditionally rebuilds the index.
func (s *Service) RebuildIndex() (*index.Payload, error) {
	return s.EnsureIndex(true)
}

// SearchDatasetIDs answers criteria against payload through the query
// cache. The returned slice is sorted; nil means the criteria contained
// nothing to search on. Empty results are cached like any other.
func (s *Service) SearchDatasetIDs(payload *index.Payload, criteria map[string]string) ([]string, error) {
	key := query.Key(criteria)
	if key == "" {
		return nil, nil
	}

	signature := payload.Signature()
	if ids, ok := s.cache.Lookup(signature, key); ok {
		s.logger.Debugf("cache hit: %s", key)
		return ids, nil
	}

	ids := query.Search(payload, criteria)
	if ids == nil {
		ids = []string{}
	}
	if err := s.cache.Store(signature, key, ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// Overview summarizes the given index payload.
func (s *Service) Overview(payload *index.Payload) index.Overview {
	return payload.Overview()
}
