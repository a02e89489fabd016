package reporting

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/savegress/traderecon/internal/config"
	"github.com/savegress/traderecon/internal/reconciliation"
	"github.com/savegress/traderecon/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var runDate = time.Date(2026, 3, 14, 17, 30, 0, 0, time.UTC)

func trade(id, ticker string, qty int64, price, currency string) *models.TradeRecord {
	return &models.TradeRecord{
		TradeID:  id,
		Ticker:   ticker,
		Side:     models.SideBuy,
		Quantity: qty,
		Price:    decimal.RequireFromString(price),
		Currency: currency,
	}
}

func sampleResult(t *testing.T) *models.ReconcileResult {
	t.Helper()

	internal := models.NewRecordSet(models.SourceInternal, "internal.csv")
	bank := models.NewRecordSet(models.SourceBank, "bank.csv")

	for _, tr := range []*models.TradeRecord{
		trade("TRD-1001", "RELIANCE", 100, "2500.50", "INR"),
		trade("TRD-1002", "TCS", 40, "3400.00", "INR"),
		trade("TRD-1003", "INFY", 10, "1500.00", "USD"),
		trade("TRD-1004", "SBIN", 200, "600.00", "INR"),
	} {
		internal.Records[tr.TradeID] = tr
	}
	for _, tr := range []*models.TradeRecord{
		trade("TRD-1001", "RELIANCE", 100, "2500.50", "INR"),
		trade("TRD-1002", "TCS", 30, "3400.00", "INR"),
		trade("TRD-1003", "INFY", 10, "1575.25", "INR"),
		trade("BANK-ONLY-0", "UNKNOWN", 100, "1000.00", "INR"),
	} {
		bank.Records[tr.TradeID] = tr
	}

	result := reconciliation.NewEngine(nil, nil).Reconcile(internal, bank, config.DefaultTolerance)
	result.RunDate = runDate
	return result
}

func openReport(t *testing.T, path string) *excelize.File {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestReportName(t *testing.T) {
	assert.Equal(t, "Recon_Report_20260314.xlsx", ReportName(runDate))
}

func TestReportPath(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.ReconciliationConfig
		expected string
	}{
		{"output dir", config.ReconciliationConfig{OutputDir: "/tmp/out"}, "/tmp/out/Recon_Report_20260314.xlsx"},
		{"empty dir", config.ReconciliationConfig{}, "Recon_Report_20260314.xlsx"},
		{"explicit file", config.ReconciliationConfig{OutputDir: "/tmp/out", OutputFile: "/data/eod.xlsx"}, "/data/eod.xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ReportPath(&tt.cfg, runDate))
		})
	}
}

func TestMarkerFor(t *testing.T) {
	assert.Equal(t, MarkerPositive, MarkerFor(models.ReconStatusMatch))
	assert.Equal(t, MarkerCritical, MarkerFor(models.ReconStatusMissingInBank))
	assert.Equal(t, MarkerCritical, MarkerFor(models.ReconStatusMissingInternal))
	assert.Equal(t, MarkerWarning, MarkerFor(models.ReconStatusQtyMismatch))
	assert.Equal(t, MarkerWarning, MarkerFor(models.ReconStatusPriceMismatch))
	assert.Equal(t, MarkerNone, MarkerFor(models.ReconStatus("PENDING")))
}

func TestGenerator_Write(t *testing.T) {
	dir := t.TempDir()
	gen := NewGenerator(&config.Default().Reporting, nil)

	path, err := gen.Write(sampleResult(t), &config.ReconciliationConfig{OutputDir: dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Recon_Report_20260314.xlsx"), path)

	f := openReport(t, path)
	assert.Equal(t, []string{SheetReconciliation, SheetSummary, SheetNotes}, f.GetSheetList())

	rows, err := f.GetRows(SheetReconciliation)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, Columns, rows[0])

	byID := make(map[string][]string)
	for _, row := range rows[1:] {
		byID[row[0]] = row
	}

	assert.Equal(t, "BANK-ONLY-0", rows[1][0], "rows are ordered by trade id")

	match := byID["TRD-1001"]
	require.Len(t, match, len(Columns))
	assert.Equal(t, "RELIANCE", match[1])
	assert.Equal(t, "100", match[3])
	assert.Equal(t, "2500.5", match[4])
	assert.Equal(t, "MATCH", match[11])

	assert.Equal(t, "QTY MISMATCH", byID["TRD-1002"][11])
	assert.Equal(t, "PRICE MISMATCH", byID["TRD-1003"][11])

	missingBank := byID["TRD-1004"]
	assert.Equal(t, "SBIN", missingBank[1])
	for c := 6; c <= 10 && c < len(missingBank); c++ {
		assert.Empty(t, missingBank[c], "bank side of %s should be empty", Columns[c])
	}

	zombie := byID["BANK-ONLY-0"]
	require.Len(t, zombie, len(Columns))
	for c := 1; c <= 5; c++ {
		assert.Empty(t, zombie[c], "internal side of %s should be empty", Columns[c])
	}
	assert.Equal(t, "UNKNOWN", zombie[6])
	assert.Equal(t, "MISSING INTERNAL", zombie[11])
}

func TestGenerator_ColumnWidths(t *testing.T) {
	dir := t.TempDir()
	gen := NewGenerator(&config.Default().Reporting, nil)

	path, err := gen.Write(sampleResult(t), &config.ReconciliationConfig{OutputDir: dir})
	require.NoError(t, err)
	f := openReport(t, path)

	// Trade_ID is widest at "BANK-ONLY-0" (11), Recon_Status at "MISSING INTERNAL" (16)
	width, err := f.GetColWidth(SheetReconciliation, "A")
	require.NoError(t, err)
	assert.Equal(t, float64(13), width)

	width, err = f.GetColWidth(SheetReconciliation, "L")
	require.NoError(t, err)
	assert.Equal(t, float64(18), width)

	// Header wins when values are shorter
	width, err = f.GetColWidth(SheetReconciliation, "D")
	require.NoError(t, err)
	assert.Equal(t, float64(len("Qty_Int")+2), width)
}

func TestGenerator_StatusFormats(t *testing.T) {
	dir := t.TempDir()
	gen := NewGenerator(&config.Default().Reporting, nil)

	path, err := gen.Write(sampleResult(t), &config.ReconciliationConfig{OutputDir: dir})
	require.NoError(t, err)
	f := openReport(t, path)

	formats, err := f.GetConditionalFormats(SheetReconciliation)
	require.NoError(t, err)
	require.Contains(t, formats, "L2:L6")
	assert.Len(t, formats["L2:L6"], 3)
}

func TestGenerator_SummarySheet(t *testing.T) {
	var buf bytes.Buffer
	gen := NewGenerator(&config.Default().Reporting, nil)
	result := sampleResult(t)

	require.NoError(t, gen.WriteTo(result, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetSummary)
	require.NoError(t, err)

	values := make(map[string]string)
	for _, row := range rows[1:] {
		if len(row) == 2 {
			values[row[0]] = row[1]
		}
	}
	assert.Equal(t, result.RunID, values["Run ID"])
	assert.Equal(t, "2026-03-14", values["Run Date"])
	assert.Equal(t, "0.01", values["Price Tolerance"])
	assert.Equal(t, "5", values["Reconciled Rows"])
	assert.Equal(t, "1", values["MATCH"])
	assert.Equal(t, "1", values["MISSING IN BANK"])
	assert.Equal(t, "1", values["MISSING INTERNAL"])
	assert.Equal(t, "20.00%", values["Match Rate"])
	assert.Equal(t, "1", values["Uncompared Field Differences"])
}

func TestGenerator_NotesSheet(t *testing.T) {
	var buf bytes.Buffer
	gen := NewGenerator(&config.Default().Reporting, nil)

	require.NoError(t, gen.WriteTo(sampleResult(t), &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetNotes)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Contains(t, rows[0][0], "not part of the")
	assert.Equal(t, []string{"TRD-1003", "currency", "USD", "INR", "PRICE MISMATCH"}, rows[3])
}

func TestGenerator_OptionalSheetsDisabled(t *testing.T) {
	var buf bytes.Buffer
	gen := NewGenerator(&config.ReportingConfig{}, nil)

	require.NoError(t, gen.WriteTo(sampleResult(t), &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetReconciliation}, f.GetSheetList())
}

func TestGenerator_EmptyResult(t *testing.T) {
	dir := t.TempDir()
	gen := NewGenerator(nil, nil)
	result := reconciliation.NewEngine(nil, nil).Reconcile(nil, nil, config.DefaultTolerance)
	result.RunDate = runDate

	path, err := gen.Write(result, &config.ReconciliationConfig{OutputDir: dir})
	require.NoError(t, err)

	rows, err := openReport(t, path).GetRows(SheetReconciliation)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, Columns, rows[0])
}

func TestGenerator_CreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports", "eod")
	gen := NewGenerator(nil, nil)

	path, err := gen.Write(sampleResult(t), &config.ReconciliationConfig{OutputDir: dir})
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestGenerator_DestinationUnwritable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	gen := NewGenerator(nil, nil)
	_, err := gen.Write(sampleResult(t), &config.ReconciliationConfig{OutputDir: filepath.Join(blocker, "sub")})

	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrDestinationUnwritable))
}

func TestGenerator_Overwrites(t *testing.T) {
	dir := t.TempDir()
	gen := NewGenerator(nil, nil)
	cfg := &config.ReconciliationConfig{OutputDir: dir}

	_, err := gen.Write(sampleResult(t), cfg)
	require.NoError(t, err)

	result := reconciliation.NewEngine(nil, nil).Reconcile(nil, nil, config.DefaultTolerance)
	result.RunDate = runDate
	path, err := gen.Write(result, cfg)
	require.NoError(t, err)

	rows, err := openReport(t, path).GetRows(SheetReconciliation)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
