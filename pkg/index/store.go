package index

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/arim-dx/rdex/pkg/log"
	"github.com/arim-dx/rdex/pkg/source"
)

// MtimeTolerance absorbs filesystem mtime resolution differences when
// comparing recorded and live modification times.
const MtimeTolerance = 1e-4

// Store persists the index and keeps an in-memory copy that is reused while
// the index file's mtime is unchanged.
//
// A Store is not safe for concurrent use; rdex assumes a single writer.
type Store struct {
	dataDir  string
	indexDir string
	logger   *log.Logger

	cachedMtime   float64
	cachedPayload *Payload
}

// NewStore creates a store reading source dumps from dataDir and keeping
// the index under indexDir.
func NewStore(dataDir, indexDir string) *Store {
	return &Store{
		dataDir:  dataDir,
		indexDir: indexDir,
		logger:   log.For("index"),
	}
}

// IndexPath returns the path of the persisted index file.
func (s *Store) IndexPath() string {
	return filepath.Join(s.indexDir, IndexFileName)
}

// DataDir returns the directory the source dumps are read from.
func (s *Store) DataDir() string {
	return s.dataDir
}

// Rebuild loads all sources, builds a fresh payload and persists it.
// Source problems never fail a rebuild; write errors do.
func (s *Store) Rebuild() (*Payload, error) {
	set := source.LoadSet(s.dataDir)
	payload := Build(set)
	if err := s.persist(payload); err != nil {
		return nil, err
	}
	s.logger.Infof("rebuilt index: %d datasets", payload.Meta.DatasetCount)
	return payload, nil
}

func (s *Store) persist(payload *Payload) error {
	if err := os.MkdirAll(s.indexDir, 0755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	path := s.IndexPath()
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating index file: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		f.Close()
		return fmt.Errorf("encoding index: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing index file: %w", err)
	}

	s.cachedPayload = payload
	s.cachedMtime = fileMtime(path)
	return nil
}

// Load returns the current index, reusing the in-memory copy while the file
// mtime matches. A missing or unparseable index file yields (nil, nil) so
// callers fall through to a rebuild.
func (s *Store) Load() (*Payload, error) {
	path := s.IndexPath()
	fi, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("statting index file: %w", err)
	}

	mtime := float64(fi.ModTime().UnixNano()) / 1e9
	if s.cachedPayload != nil && math.Abs(mtime-s.cachedMtime) <= MtimeTolerance {
		return s.cachedPayload, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading index file: %w", err)
	}

	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.logger.Warnf("index file unparseable, treating as absent: %v", err)
		return nil, nil
	}

	s.cachedPayload = &payload
	s.cachedMtime = mtime
	return &payload, nil
}

// Stale reports whether any source file's live mtime differs from the one
// recorded when the payload was built. Sources absent on both sides agree.
func (s *Store) Stale(payload *Payload) bool {
	live := source.Mtimes(s.dataDir)
	for _, name := range source.Names {
		if math.Abs(payload.Meta.SourceMtimes[name]-live[name]) > MtimeTolerance {
			return true
		}
	}
	return false
}

// Ensure returns a current index, rebuilding when forced, missing or stale.
// The second return reports whether a rebuild happened.
func (s *Store) Ensure(force bool) (*Payload, bool, error) {
	if !force {
		payload, err := s.Load()
		if err != nil {
			return nil, false, err
		}
		if payload != nil && !s.Stale(payload) {
			return payload, false, nil
		}
		if payload != nil {
			s.logger.Debugf("index stale, rebuilding")
		}
	}
	payload, err := s.Rebuild()
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func fileMtime(path string) float64 {
	fi, err := os.Stat(path)
	if err != nil {
		return -1
	}
	return float64(fi.ModTime().UnixNano()) / 1e9
}
