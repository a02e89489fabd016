package reconciliation

import (
	"sort"

	"github.com/savegress/traderecon/pkg/models"
)

// Align performs a full outer join of the two record sets on trade id.
// Every key present in either set yields exactly one row, ordered by trade
// id. Records are copied so callers may not observe later changes.
func Align(internal, bank *models.RecordSet) []models.AlignedRow {
	seen := make(map[string]struct{}, internal.Len()+bank.Len())
	for _, set := range []*models.RecordSet{internal, bank} {
		if set == nil {
			continue
		}
		for id := range set.Records {
			seen[id] = struct{}{}
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([]models.AlignedRow, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, models.AlignedRow{
			TradeID:  id,
			Internal: lookup(internal, id),
			Bank:     lookup(bank, id),
		})
	}
	return rows
}

func lookup(set *models.RecordSet, id string) *models.TradeRecord {
	if set == nil {
		return nil
	}
	rec, ok := set.Records[id]
	if !ok {
		return nil
	}
	cp := *rec
	return &cp
}
