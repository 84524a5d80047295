// Package index builds and persists the denormalized dataset search index.
//
// The index joins the four RDE dumps into one record per dataset plus a
// reverse (field -> value -> dataset ids) map, and records the source file
// mtimes it was built from so staleness can be detected without re-reading
// the dumps.
package index

import (
	"encoding/json"
	"sort"
	"sync"
)

// FormatVersion is bumped whenever the payload layout changes in a way that
// should invalidate existing index files.
const FormatVersion = 1

// IndexFileName is the on-disk name of the persisted index.
const IndexFileName = "rde_search_index.json"

// Reverse-index field names. These are the only fields queries can match on.
const (
	FieldDatasetID        = "dataset_id"
	FieldDatasetName      = "dataset_name"
	FieldGrantNumber      = "grant_number"
	FieldSubgroupID       = "subgroup_id"
	FieldSubgroupName     = "subgroup_name"
	FieldTemplateID       = "template_id"
	FieldRelatedDatasetID = "related_dataset_id"
	FieldEquipmentName    = "equipment_name"
	FieldEquipmentLocalID = "equipment_local_id"
)

// Fields lists every reverse-index field in a fixed order.
var Fields = []string{
	FieldDatasetID,
	FieldDatasetName,
	FieldGrantNumber,
	FieldSubgroupID,
	FieldSubgroupName,
	FieldTemplateID,
	FieldRelatedDatasetID,
	FieldEquipmentName,
	FieldEquipmentLocalID,
}

// DatasetRecord is one denormalized dataset entry. Records are built fresh
// on every rebuild and never mutated afterwards.
type DatasetRecord struct {
	DatasetID         string   `json:"dataset_id"`
	DatasetName       string   `json:"dataset_name"`
	GrantNumber       string   `json:"grant_number"`
	SubgroupID        string   `json:"subgroup_id"`
	SubgroupName      string   `json:"subgroup_name"`
	TemplateID        string   `json:"template_id"`
	RelatedDatasetIDs []string `json:"related_dataset_ids"`
	InstrumentIDs     []string `json:"instrument_ids"`
	EquipmentNames    []string `json:"equipment_names"`
	EquipmentLocalIDs []string `json:"equipment_local_ids"`
}

// Meta describes one built index.
type Meta struct {
	Version      int                `json:"version"`
	BuildID      string             `json:"build_id"`
	GeneratedAt  string             `json:"generated_at"`
	SourceMtimes map[string]float64 `json:"source_mtimes"`
	DatasetCount int                `json:"dataset_count"`
}

// Signature returns a deterministic serialization of the meta fields that
// identify the index contents. BuildID and GeneratedAt are deliberately
// excluded so that two rebuilds from identical sources share a signature.
func (m Meta) Signature() string {
	sig := struct {
		Version      int                `json:"version"`
		DatasetCount int                `json:"dataset_count"`
		SourceMtimes map[string]float64 `json:"source_mtimes"`
	}{
		Version:      m.Version,
		DatasetCount: m.DatasetCount,
		SourceMtimes: m.SourceMtimes,
	}
	// encoding/json emits map keys sorted, so this is canonical.
	data, err := json.Marshal(sig)
	if err != nil {
		return ""
	}
	return string(data)
}

// Payload is a complete built index.
//
// Invariants: every id appearing in a Reverse bucket is a key of Datasets,
// and every bucket is a sorted, deduplicated id list. Reverse values are
// case-folded at build time.
type Payload struct {
	Meta     Meta                           `json:"meta"`
	Datasets map[string]DatasetRecord       `json:"datasets"`
	Reverse  map[string]map[string][]string `json:"reverse"`

	internOnce sync.Once
	idList     []string
	idPos      map[string]uint32
}

// Signature returns the payload's meta signature.
func (p *Payload) Signature() string {
	return p.Meta.Signature()
}

// IDPositions returns a stable ordering of all dataset ids and the position
// of each id in it. The query engine uses the positions as bitmap slots.
// Built lazily once per payload; payloads are immutable after build/load.
func (p *Payload) IDPositions() ([]string, map[string]uint32) {
	p.internOnce.Do(func() {
		p.idList = make([]string, 0, len(p.Datasets))
		for id := range p.Datasets {
			p.idList = append(p.idList, id)
		}
		sort.Strings(p.idList)
		p.idPos = make(map[string]uint32, len(p.idList))
		for i, id := range p.idList {
			p.idPos[id] = uint32(i)
		}
	})
	return p.idList, p.idPos
}

// Overview summarizes an index for display.
type Overview struct {
	Version       int            `json:"version"`
	GeneratedAt   string         `json:"generated_at"`
	DatasetCount  int            `json:"dataset_count"`
	ReverseCounts map[string]int `json:"reverse_counts"`
}

// Overview returns a summary of the payload: its meta identity plus the
// number of distinct indexed values per field.
func (p *Payload) Overview() Overview {
	counts := make(map[string]int, len(p.Reverse))
	for field, bucket := range p.Reverse {
		counts[field] = len(bucket)
	}
	return Overview{
		Version:       p.Meta.Version,
		GeneratedAt:   p.Meta.GeneratedAt,
		DatasetCount:  p.Meta.DatasetCount,
		ReverseCounts: counts,
	}
}
