package reconciliation

import (
	"github.com/savegress/traderecon/pkg/models"
	"github.com/shopspring/decimal"
)

// Classifier assigns a break category to aligned rows
type Classifier struct {
	tolerance decimal.Decimal
}

// NewClassifier creates a classifier. Price differences strictly greater
// than tolerance are breaks.
func NewClassifier(tolerance decimal.Decimal) *Classifier {
	return &Classifier{tolerance: tolerance}
}

// Tolerance returns the configured price tolerance
func (c *Classifier) Tolerance() decimal.Decimal {
	return c.tolerance
}

// Classify returns the status of one row. Rules are evaluated in order and
// the first match wins, so a quantity break hides any price break.
func (c *Classifier) Classify(row models.AlignedRow) models.ReconStatus {
	switch row.Presence() {
	case models.PresenceInternalOnly:
		return models.ReconStatusMissingInBank
	case models.PresenceBankOnly:
		return models.ReconStatusMissingInternal
	}

	if row.Internal.Quantity != row.Bank.Quantity {
		return models.ReconStatusQtyMismatch
	}
	if row.Internal.Price.Sub(row.Bank.Price).Abs().GreaterThan(c.tolerance) {
		return models.ReconStatusPriceMismatch
	}
	return models.ReconStatusMatch
}

// ClassifyAll classifies rows in order into a new slice
func (c *Classifier) ClassifyAll(rows []models.AlignedRow) []models.ClassifiedRow {
	out := make([]models.ClassifiedRow, len(rows))
	for i, row := range rows {
		out[i] = models.ClassifiedRow{
			AlignedRow: row,
			Status:     c.Classify(row),
		}
	}
	return out
}
