package reconciliation

import (
	"github.com/savegress/traderecon/pkg/models"
)

// Difference represents a field that disagrees between the two sources
type Difference struct {
	Field    string `json:"field"`
	Internal string `json:"internal"`
	Bank     string `json:"bank"`
}

// FieldDifferences lists ticker, side and currency disagreements for a row
// present on both sides. These fields never influence the status; the
// report surfaces them for review.
func FieldDifferences(row models.AlignedRow) []Difference {
	if row.Presence() != models.PresenceBoth {
		return nil
	}

	var diffs []Difference
	if row.Internal.Ticker != row.Bank.Ticker {
		diffs = append(diffs, Difference{
			Field:    "ticker",
			Internal: row.Internal.Ticker,
			Bank:     row.Bank.Ticker,
		})
	}
	if row.Internal.Side != row.Bank.Side {
		diffs = append(diffs, Difference{
			Field:    "side",
			Internal: string(row.Internal.Side),
			Bank:     string(row.Bank.Side),
		})
	}
	if row.Internal.Currency != row.Bank.Currency {
		diffs = append(diffs, Difference{
			Field:    "currency",
			Internal: row.Internal.Currency,
			Bank:     row.Bank.Currency,
		})
	}
	return diffs
}
