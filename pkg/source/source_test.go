package source

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSource(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(FilePath(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestLoadEnvelope(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, NameDataset, `{
		"data": [
			{"id": "D1", "type": "dataset", "attributes": {"name": "Sample A", "grantNumber": "G1"}}
		],
		"included": [
			{"id": "X1", "type": "group"}
		]
	}`)

	doc := Load(dir, NameDataset)
	if len(doc.Data) != 1 || doc.Data[0].ID != "D1" {
		t.Fatalf("unexpected data records: %+v", doc.Data)
	}
	if len(doc.Included) != 1 || doc.Included[0].ID != "X1" {
		t.Fatalf("unexpected included records: %+v", doc.Included)
	}
	if got := doc.Data[0].StringAttr("name"); got != "Sample A" {
		t.Errorf("unexpected name attribute: %q", got)
	}
}

func TestLoadBareList(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, NameTemplate, `[
		{"id": "T1", "type": "template"},
		{"id": "T2", "type": "template"}
	]`)

	doc := Load(dir, NameTemplate)
	if len(doc.Data) != 2 {
		t.Fatalf("expected 2 records, got %d", len(doc.Data))
	}
}

func TestLoadMissingAndMalformed(t *testing.T) {
	dir := t.TempDir()

	if doc := Load(dir, NameInstrument); len(doc.Data) != 0 || len(doc.Included) != 0 {
		t.Errorf("missing file should load empty, got %+v", doc)
	}

	writeSource(t, dir, NameSubGroup, `{"data": [`)
	if doc := Load(dir, NameSubGroup); len(doc.Data) != 0 {
		t.Errorf("malformed file should load empty, got %+v", doc)
	}
}

func TestRelationshipSingleAndList(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, NameDataset, `{"data": [{
		"id": "D1",
		"type": "dataset",
		"relationships": {
			"group": {"data": {"id": "G1", "type": "group"}},
			"relatedDatasets": {"data": [{"id": "D2", "type": "dataset"}, {"id": "D3", "type": "dataset"}]},
			"template": {"data": null}
		}
	}]}`)

	doc := Load(dir, NameDataset)
	if len(doc.Data) != 1 {
		t.Fatalf("expected 1 record, got %d", len(doc.Data))
	}
	res := doc.Data[0]

	if got := res.FirstRelationshipID("group"); got != "G1" {
		t.Errorf("unexpected group id: %q", got)
	}
	refs := res.RelationshipRefs("relatedDatasets")
	if len(refs) != 2 || refs[0].ID != "D2" || refs[1].ID != "D3" {
		t.Errorf("unexpected related refs: %+v", refs)
	}
	if got := res.FirstRelationshipID("template"); got != "" {
		t.Errorf("null relationship should have no refs, got %q", got)
	}
	if got := res.FirstRelationshipID("nonexistent"); got != "" {
		t.Errorf("absent relationship should have no refs, got %q", got)
	}
}

func TestObjectListAttr(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, NameInstrument, `{"data": [{
		"id": "I1",
		"type": "instrument",
		"attributes": {
			"nameJa": "装置A",
			"programs": [{"localId": "L1"}, {"localId": "L2"}, "bogus"]
		}
	}]}`)

	doc := Load(dir, NameInstrument)
	programs := doc.Data[0].ObjectListAttr("programs")
	if len(programs) != 2 {
		t.Fatalf("expected 2 program objects, got %d", len(programs))
	}
	if programs[0]["localId"] != "L1" || programs[1]["localId"] != "L2" {
		t.Errorf("unexpected programs: %+v", programs)
	}
}

func TestMtimes(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, NameDataset, `[]`)

	mtimes := Mtimes(dir)
	if _, ok := mtimes[NameDataset]; !ok {
		t.Errorf("expected mtime entry for %s", NameDataset)
	}
	if _, ok := mtimes[NameTemplate]; ok {
		t.Errorf("absent source should have no mtime entry")
	}

	fi, err := os.Stat(filepath.Join(dir, "dataset.json"))
	if err != nil {
		t.Fatal(err)
	}
	want := float64(fi.ModTime().UnixNano()) / 1e9
	if got := mtimes[NameDataset]; got != want {
		t.Errorf("mtime mismatch: got %f want %f", got, want)
	}
}
