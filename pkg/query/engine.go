// Package query answers multi-field dataset searches against a built index
// and caches results on disk, keyed by a canonical criteria signature.
package query

import (
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring"

	"github.com/arim-dx/rdex/pkg/index"
)

// Search matches criteria against the payload's reverse index.
//
// Each non-blank criterion is case-folded and substring-matched against the
// indexed values of its field; the ids of all matching values form that
// field's result, and fields intersect. Fields not present in the reverse
// index are skipped and do not narrow the result.
//
// Returns nil when the criteria contain no non-blank values, otherwise a
// sorted (possibly empty) id list. Results are deterministic for a given
// payload.
func Search(payload *index.Payload, criteria map[string]string) []string {
	type term struct {
		field  string
		folded string
	}
	var terms []term
	for field, value := range criteria {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		terms = append(terms, term{field: field, folded: index.Fold(value)})
	}
	if len(terms) == 0 {
		return nil
	}
	// Stable evaluation order; the result does not depend on it but the
	// short-circuit point should not vary between runs.
	sort.Slice(terms, func(i, j int) bool { return terms[i].field < terms[j].field })

	ids, positions := payload.IDPositions()

	var overall *roaring.Bitmap
	for _, t := range terms {
		bucket, ok := payload.Reverse[t.field]
		if !ok {
			continue
		}

		matched := roaring.New()
		for value, valueIDs := range bucket {
			if !strings.Contains(value, t.folded) {
				continue
			}
			for _, id := range valueIDs {
				if pos, ok := positions[id]; ok {
					matched.Add(pos)
				}
			}
		}

		if overall == nil {
			overall = matched
		} else {
			overall.And(matched)
		}
		if overall.IsEmpty() {
			return []string{}
		}
	}
	if overall == nil {
		// Every criterion named an unindexed field.
		return []string{}
	}

	result := make([]string, 0, overall.GetCardinality())
	it := overall.Iterator()
	for it.HasNext() {
		result = append(result, ids[it.Next()])
	}
	// Positions are assigned in sorted id order, so result is already sorted.
	return result
}
