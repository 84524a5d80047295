package search

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/arim-dx/rdex/pkg/config"
	"github.com/arim-dx/rdex/pkg/query"
	"github.com/arim-dx/rdex/pkg/source"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dataDir := t.TempDir()
	writeDataset(t, dataDir, `{"data": [
		{"id": "D1", "type": "dataset", "attributes": {"name": "Sample A", "grantNumber": "G1"}}
	]}`)
	cfg := &config.Config{DataDir: dataDir, QueryCacheMaxEntries: 100}
	return NewService(cfg), dataDir
}

func writeDataset(t *testing.T, dataDir, content string) {
	t.Helper()
	path := source.FilePath(dataDir, source.NameDataset)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing dataset dump: %v", err)
	}
}

func TestEnsureAndSearchScenario(t *testing.T) {
	svc, _ := newTestService(t)

	payload, err := svc.EnsureIndex(false)
	if err != nil {
		t.Fatalf("ensuring index: %v", err)
	}

	ids, err := svc.SearchDatasetIDs(payload, map[string]string{"dataset_name": "sample"})
	if err != nil {
		t.Fatalf("searching: %v", err)
	}
	if want := []string{"D1"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("search by name: got %v want %v", ids, want)
	}

	ids, err = svc.SearchDatasetIDs(payload, map[string]string{"grant_number": "ZZZ"})
	if err != nil {
		t.Fatalf("searching: %v", err)
	}
	if ids == nil || len(ids) != 0 {
		t.Errorf("expected empty (non-nil) result, got %v", ids)
	}

	// The empty result is served from the cache on a repeat query.
	ids, err = svc.SearchDatasetIDs(payload, map[string]string{"grant_number": "ZZZ"})
	if err != nil {
		t.Fatalf("searching again: %v", err)
	}
	if ids == nil || len(ids) != 0 {
		t.Errorf("expected cached empty result, got %v", ids)
	}
}

func TestSearchByDatasetIDRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)

	payload, err := svc.EnsureIndex(false)
	if err != nil {
		t.Fatalf("ensuring index: %v", err)
	}
	ids, err := svc.SearchDatasetIDs(payload, map[string]string{"dataset_id": "D1"})
	if err != nil {
		t.Fatalf("searching: %v", err)
	}
	if want := []string{"D1"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("round trip by id: got %v want %v", ids, want)
	}
}

func TestSearchNilOnBlankCriteria(t *testing.T) {
	svc, _ := newTestService(t)

	payload, err := svc.EnsureIndex(false)
	if err != nil {
		t.Fatalf("ensuring index: %v", err)
	}
	ids, err := svc.SearchDatasetIDs(payload, map[string]string{"dataset_name": "  "})
	if err != nil {
		t.Fatalf("searching: %v", err)
	}
	if ids != nil {
		t.Errorf("blank criteria should return nil, got %v", ids)
	}
}

func TestRebuildInvalidatesCachedResults(t *testing.T) {
	svc, dataDir := newTestService(t)

	payload, err := svc.EnsureIndex(false)
	if err != nil {
		t.Fatalf("ensuring index: %v", err)
	}
	criteria := map[string]string{"dataset_name": "sample"}
	if _, err := svc.SearchDatasetIDs(payload, criteria); err != nil {
		t.Fatalf("priming cache: %v", err)
	}

	// Replace the dump: D1 drops out, D9 matches instead.
	writeDataset(t, dataDir, `{"data": [
		{"id": "D9", "type": "dataset", "attributes": {"name": "Sample Z", "grantNumber": "G9"}}
	]}`)
	future := time.Now().Add(5 * time.Second)
	if err := os.Chtimes(source.FilePath(dataDir, source.NameDataset), future, future); err != nil {
		t.Fatal(err)
	}

	payload, err = svc.EnsureIndex(false)
	if err != nil {
		t.Fatalf("re-ensuring index: %v", err)
	}
	ids, err := svc.SearchDatasetIDs(payload, criteria)
	if err != nil {
		t.Fatalf("searching after rebuild: %v", err)
	}
	if want := []string{"D9"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("stale cached result returned after rebuild: got %v want %v", ids, want)
	}
}

func TestCacheFileWritten(t *testing.T) {
	svc, dataDir := newTestService(t)

	payload, err := svc.EnsureIndex(false)
	if err != nil {
		t.Fatalf("ensuring index: %v", err)
	}
	if _, err := svc.SearchDatasetIDs(payload, map[string]string{"dataset_name": "sample"}); err != nil {
		t.Fatalf("searching: %v", err)
	}

	cachePath := filepath.Join(dataDir, "search_index", query.CacheFileName)
	if _, err := os.Stat(cachePath); err != nil {
		t.Errorf("query cache file not written: %v", err)
	}
}

func TestOverviewThroughService(t *testing.T) {
	svc, _ := newTestService(t)

	payload, err := svc.EnsureIndex(false)
	if err != nil {
		t.Fatalf("ensuring index: %v", err)
	}
	ov := svc.Overview(payload)
	if ov.DatasetCount != 1 {
		t.Errorf("unexpected overview: %+v", ov)
	}
	if ov.ReverseCounts["dataset_name"] != 1 {
		t.Errorf("unexpected reverse counts: %+v", ov.ReverseCounts)
	}
}
