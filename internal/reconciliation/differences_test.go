package reconciliation

import (
	"testing"

	"github.com/savegress/traderecon/pkg/models"
)

func TestFieldDifferences(t *testing.T) {
	bank := trade("T1", 100, "500.00")
	bank.Ticker = "UNKNOWN"
	bank.Currency = "USD"

	diffs := FieldDifferences(models.AlignedRow{TradeID: "T1", Internal: trade("T1", 100, "500.00"), Bank: bank})

	if len(diffs) != 2 {
		t.Fatalf("expected 2 differences, got %d: %+v", len(diffs), diffs)
	}
	if diffs[0].Field != "ticker" || diffs[0].Internal != "RELIANCE" || diffs[0].Bank != "UNKNOWN" {
		t.Errorf("unexpected ticker difference %+v", diffs[0])
	}
	if diffs[1].Field != "currency" || diffs[1].Internal != "INR" || diffs[1].Bank != "USD" {
		t.Errorf("unexpected currency difference %+v", diffs[1])
	}
}

func TestFieldDifferences_Side(t *testing.T) {
	bank := trade("T1", 100, "500.00")
	bank.Side = models.SideSell

	diffs := FieldDifferences(models.AlignedRow{TradeID: "T1", Internal: trade("T1", 100, "500.00"), Bank: bank})
	if len(diffs) != 1 || diffs[0].Field != "side" {
		t.Errorf("expected one side difference, got %+v", diffs)
	}
}

func TestFieldDifferences_OneSided(t *testing.T) {
	if diffs := FieldDifferences(models.AlignedRow{TradeID: "T1", Internal: trade("T1", 1, "1")}); diffs != nil {
		t.Errorf("expected no differences for one-sided row, got %+v", diffs)
	}
	if diffs := FieldDifferences(models.AlignedRow{TradeID: "T1", Bank: trade("T1", 1, "1")}); diffs != nil {
		t.Errorf("expected no differences for one-sided row, got %+v", diffs)
	}
}
