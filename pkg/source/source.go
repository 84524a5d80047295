// Package source loads the RDE JSON dumps the search index is built from.
//
// Each dump is either a JSON:API-like envelope ({"data": [...], "included":
// [...]}) or a bare list of records. Loading is tolerant: a missing or
// malformed file yields an empty document rather than an error, so a partial
// dump directory still produces a usable (if thinner) index.
package source

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/arim-dx/rdex/pkg/log"
)

// Well-known source names. They key meta.source_mtimes in the index payload.
const (
	NameDataset    = "dataset"
	NameTemplate   = "template"
	NameInstrument = "instrument"
	NameSubGroup   = "subGroup"
)

// Names lists all source names in a fixed order.
var Names = []string{NameDataset, NameTemplate, NameInstrument, NameSubGroup}

var fileNames = map[string]string{
	NameDataset:    "dataset.json",
	NameTemplate:   "template.json",
	NameInstrument: "instruments.json",
	NameSubGroup:   "subGroup.json",
}

var logger = log.For("source")

// FilePath returns the on-disk path of a named source under dataDir.
func FilePath(dataDir, name string) string {
	return filepath.Join(dataDir, fileNames[name])
}

// Ref identifies another resource from a relationship.
type Ref struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Relationship holds the data side of a JSON:API relationship. The wire
// format is either a single ref object or a list of them; both parse into
// Refs.
type Relationship struct {
	Refs []Ref
}

func (r *Relationship) UnmarshalJSON(data []byte) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	if len(envelope.Data) == 0 {
		return nil
	}

	var many []Ref
	if err := json.Unmarshal(envelope.Data, &many); err == nil {
		r.Refs = many
		return nil
	}

	var one Ref
	if err := json.Unmarshal(envelope.Data, &one); err != nil {
		return err
	}
	if one.ID != "" {
		r.Refs = []Ref{one}
	}
	return nil
}

// Resource is a single record from a dump.
type Resource struct {
	ID            string                  `json:"id"`
	Type          string                  `json:"type"`
	Attributes    map[string]any          `json:"attributes"`
	Relationships map[string]Relationship `json:"relationships"`
}

// StringAttr returns the named attribute if it is a string, otherwise "".
func (r *Resource) StringAttr(key string) string {
	if s, ok := r.Attributes[key].(string); ok {
		return s
	}
	return ""
}

// ObjectListAttr returns the named attribute if it is a list of objects.
func (r *Resource) ObjectListAttr(key string) []map[string]any {
	raw, ok := r.Attributes[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

// RelationshipRefs returns the refs of the named relationship, nil if absent.
func (r *Resource) RelationshipRefs(name string) []Ref {
	rel, ok := r.Relationships[name]
	if !ok {
		return nil
	}
	return rel.Refs
}

// FirstRelationshipID returns the id of the first ref of the named
// relationship, or "".
func (r *Resource) FirstRelationshipID(name string) string {
	refs := r.RelationshipRefs(name)
	if len(refs) == 0 {
		return ""
	}
	return refs[0].ID
}

// Document is one parsed dump: the main records plus any included ones.
type Document struct {
	Data     []Resource `json:"data"`
	Included []Resource `json:"included"`
}

func (d *Document) UnmarshalJSON(data []byte) error {
	// Bare list of records
	var list []Resource
	if err := json.Unmarshal(data, &list); err == nil {
		d.Data = list
		return nil
	}

	type envelope Document
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	*d = Document(env)
	return nil
}

// Load reads one named source from dataDir. Missing or malformed files are
// treated as empty.
func Load(dataDir, name string) Document {
	path := FilePath(dataDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Debugf("source %s unreadable, treating as empty: %v", name, err)
		return Document{}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.Warnf("source %s is not valid JSON, treating as empty: %v", name, err)
		return Document{}
	}
	return doc
}

// Set holds all four parsed dumps plus the mtimes observed for the files
// that existed at load time.
type Set struct {
	Dataset    Document
	Template   Document
	Instrument Document
	SubGroup   Document

	// Mtimes maps source name to file mtime in fractional unix seconds.
	// Sources whose file is absent have no entry.
	Mtimes map[string]float64
}

// LoadSet loads every source under dataDir.
func LoadSet(dataDir string) *Set {
	return &Set{
		Dataset:    Load(dataDir, NameDataset),
		Template:   Load(dataDir, NameTemplate),
		Instrument: Load(dataDir, NameInstrument),
		SubGroup:   Load(dataDir, NameSubGroup),
		Mtimes:     Mtimes(dataDir),
	}
}

// Mtimes stats every source file under dataDir and returns the mtimes of
// the ones that exist, in fractional unix seconds.
func Mtimes(dataDir string) map[string]float64 {
	mtimes := make(map[string]float64, len(Names))
	for _, name := range Names {
		fi, err := os.Stat(FilePath(dataDir, name))
		if err != nil {
			continue
		}
		mtimes[name] = float64(fi.ModTime().UnixNano()) / 1e9
	}
	return mtimes
}
