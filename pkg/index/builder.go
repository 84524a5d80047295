package index

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/arim-dx/rdex/pkg/source"
)

// Fold case-folds a value the way the reverse index stores it. Queries fold
// their criteria through the same function so matching is case-insensitive.
func Fold(s string) string {
	// cases.Caser is stateful, so build one per call.
	return cases.Fold().String(s)
}

// Build joins the loaded sources into a fresh payload. It never fails: any
// record that cannot be resolved just contributes less denormalized data.
func Build(set *source.Set) *Payload {
	templateInstruments := make(map[string][]string)
	for _, tmpl := range set.Template.Data {
		if tmpl.ID == "" {
			continue
		}
		for _, ref := range tmpl.RelationshipRefs("instruments") {
			if ref.ID != "" {
				templateInstruments[tmpl.ID] = append(templateInstruments[tmpl.ID], ref.ID)
			}
		}
	}

	instrumentName := make(map[string]string)
	programName := make(map[string]string) // program localId -> instrument display name
	for _, ins := range set.Instrument.Data {
		name := ins.StringAttr("nameJa")
		if name == "" {
			name = ins.StringAttr("nameEn")
		}
		if name == "" {
			continue
		}
		if ins.ID != "" {
			instrumentName[ins.ID] = name
		}
		for _, prog := range ins.ObjectListAttr("programs") {
			if localID, ok := prog["localId"].(string); ok && localID != "" {
				programName[localID] = name
			}
		}
	}

	teamName := make(map[string]string)
	for _, group := range append(set.SubGroup.Included, set.SubGroup.Data...) {
		if group.ID == "" || group.StringAttr("groupType") != "TEAM" {
			continue
		}
		label := group.StringAttr("name")
		if desc := group.StringAttr("description"); desc != "" {
			label += " | " + desc
		}
		if label != "" {
			teamName[group.ID] = label
		}
	}

	mtimes := set.Mtimes
	if mtimes == nil {
		mtimes = map[string]float64{}
	}

	payload := &Payload{
		Meta: Meta{
			Version:      FormatVersion,
			BuildID:      uuid.NewString(),
			GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
			SourceMtimes: mtimes,
		},
		Datasets: make(map[string]DatasetRecord),
		Reverse:  make(map[string]map[string][]string),
	}

	for _, ds := range set.Dataset.Data {
		if ds.ID == "" {
			continue
		}

		subgroupID := ds.FirstRelationshipID("group")
		if subgroupID == "" {
			subgroupID = ds.StringAttr("groupId")
		}
		templateID := ds.FirstRelationshipID("template")
		if templateID == "" {
			templateID = ds.StringAttr("templateId")
		}

		var related []string
		for _, ref := range ds.RelationshipRefs("relatedDatasets") {
			if ref.ID != "" {
				related = append(related, ref.ID)
			}
		}

		instrumentIDs := uniqueSorted(templateInstruments[templateID])
		var names []string
		for _, insID := range instrumentIDs {
			if name, ok := instrumentName[insID]; ok {
				names = append(names, name)
			}
		}
		equipmentNames := uniqueSorted(names)

		nameSet := make(map[string]struct{}, len(equipmentNames))
		for _, name := range equipmentNames {
			nameSet[name] = struct{}{}
		}
		var localIDs []string
		for localID, name := range programName {
			if _, ok := nameSet[name]; ok {
				localIDs = append(localIDs, localID)
			}
		}
		equipmentLocalIDs := uniqueSorted(localIDs)

		rec := DatasetRecord{
			DatasetID:         ds.ID,
			DatasetName:       ds.StringAttr("name"),
			GrantNumber:       ds.StringAttr("grantNumber"),
			SubgroupID:        subgroupID,
			SubgroupName:      teamName[subgroupID],
			TemplateID:        templateID,
			RelatedDatasetIDs: uniqueSorted(related),
			InstrumentIDs:     instrumentIDs,
			EquipmentNames:    equipmentNames,
			EquipmentLocalIDs: equipmentLocalIDs,
		}
		payload.Datasets[rec.DatasetID] = rec

		payload.addReverse(FieldDatasetID, rec.DatasetID, rec.DatasetID)
		payload.addReverse(FieldDatasetName, rec.DatasetName, rec.DatasetID)
		payload.addReverse(FieldGrantNumber, rec.GrantNumber, rec.DatasetID)
		payload.addReverse(FieldSubgroupID, rec.SubgroupID, rec.DatasetID)
		payload.addReverse(FieldSubgroupName, rec.SubgroupName, rec.DatasetID)
		payload.addReverse(FieldTemplateID, rec.TemplateID, rec.DatasetID)
		for _, id := range rec.RelatedDatasetIDs {
			payload.addReverse(FieldRelatedDatasetID, id, rec.DatasetID)
		}
		for _, name := range rec.EquipmentNames {
			payload.addReverse(FieldEquipmentName, name, rec.DatasetID)
		}
		for _, id := range rec.EquipmentLocalIDs {
			payload.addReverse(FieldEquipmentLocalID, id, rec.DatasetID)
		}
	}

	payload.Meta.DatasetCount = len(payload.Datasets)

	for _, bucket := range payload.Reverse {
		for value, ids := range bucket {
			bucket[value] = uniqueSorted(ids)
		}
	}

	return payload
}

func (p *Payload) addReverse(field, value, datasetID string) {
	if value == "" {
		return
	}
	bucket, ok := p.Reverse[field]
	if !ok {
		bucket = make(map[string][]string)
		p.Reverse[field] = bucket
	}
	folded := Fold(value)
	bucket[folded] = append(bucket[folded], datasetID)
}

func uniqueSorted(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
