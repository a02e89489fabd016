package reporting

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/savegress/traderecon/internal/config"
	"github.com/savegress/traderecon/internal/reconciliation"
	"github.com/savegress/traderecon/pkg/models"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Sheet names
const (
	SheetReconciliation = "Reconciliation"
	SheetSummary        = "Summary"
	SheetNotes          = "Notes"
)

// StatusColumn is the header of the classification column
const StatusColumn = "Recon_Status"

// Columns lists the reconciliation sheet header in order
var Columns = []string{
	"Trade_ID",
	"Ticker_Int", "Side_Int", "Qty_Int", "Price_Int", "Currency_Int",
	"Ticker_Bank", "Side_Bank", "Qty_Bank", "Price_Bank", "Currency_Bank",
	StatusColumn,
}

// Marker is the review highlight attached to a status
type Marker string

const (
	MarkerNone     Marker = ""
	MarkerPositive Marker = "positive"
	MarkerCritical Marker = "critical"
	MarkerWarning  Marker = "warning"
)

// MarkerFor maps a status to its highlight. Rules apply in order: exact
// MATCH, then anything containing MISSING, then anything containing MISMATCH.
func MarkerFor(status models.ReconStatus) Marker {
	switch s := string(status); {
	case s == string(models.ReconStatusMatch):
		return MarkerPositive
	case strings.Contains(s, "MISSING"):
		return MarkerCritical
	case strings.Contains(s, "MISMATCH"):
		return MarkerWarning
	default:
		return MarkerNone
	}
}

type markerStyle struct {
	fill string
	font string
}

var markerStyles = map[Marker]markerStyle{
	MarkerPositive: {fill: "C6EFCE", font: "006100"},
	MarkerCritical: {fill: "FFC7CE", font: "9C0006"},
	MarkerWarning:  {fill: "FFEB9C", font: "9C6500"},
}

const uncomparedNote = "Ticker, Side and Currency are loaded from both sources but are not part of the " +
	"Recon_Status decision. Rows below disagree on those fields and should be reviewed with the desk."

// Generator assembles reconciliation workbooks
type Generator struct {
	config *config.ReportingConfig
	logger *zap.Logger
}

// NewGenerator creates a new report generator
func NewGenerator(cfg *config.ReportingConfig, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		config: cfg,
		logger: logger,
	}
}

// ReportName returns the artifact name for a run date
func ReportName(runDate time.Time) string {
	return "Recon_Report_" + runDate.Format("20060102") + ".xlsx"
}

// ReportPath resolves where a run's report is written
func ReportPath(cfg *config.ReconciliationConfig, runDate time.Time) string {
	if cfg.OutputFile != "" {
		return cfg.OutputFile
	}
	dir := cfg.OutputDir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, ReportName(runDate))
}

// Write saves the workbook for result under the configured destination
func (g *Generator) Write(result *models.ReconcileResult, cfg *config.ReconciliationConfig) (string, error) {
	path := ReportPath(cfg, result.RunDate)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", models.NewDestinationUnwritable(path, err)
	}

	f, err := g.Build(result)
	if err != nil {
		return "", models.NewDestinationUnwritable(path, err)
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return "", models.NewDestinationUnwritable(path, err)
	}

	g.logger.Debug("workbook saved", zap.String("path", path), zap.Int("rows", len(result.Rows)))
	return path, nil
}

// WriteTo streams the workbook for result to w
func (g *Generator) WriteTo(result *models.ReconcileResult, w io.Writer) error {
	f, err := g.Build(result)
	if err != nil {
		return models.NewDestinationUnwritable("stream", err)
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return models.NewDestinationUnwritable("stream", err)
	}
	return nil
}

// Build assembles the workbook in memory
func (g *Generator) Build(result *models.ReconcileResult) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetReconciliation); err != nil {
		f.Close()
		return nil, err
	}
	if err := g.buildReconciliationSheet(f, result.Rows); err != nil {
		f.Close()
		return nil, fmt.Errorf("reconciliation sheet: %w", err)
	}
	if g.config == nil || g.config.SummarySheet {
		if err := g.buildSummarySheet(f, result); err != nil {
			f.Close()
			return nil, fmt.Errorf("summary sheet: %w", err)
		}
	}
	if g.config == nil || g.config.NotesSheet {
		if err := g.buildNotesSheet(f, result.Rows); err != nil {
			f.Close()
			return nil, fmt.Errorf("notes sheet: %w", err)
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

func (g *Generator) buildReconciliationSheet(f *excelize.File, rows []models.ClassifiedRow) error {
	widths := make([]int, len(Columns))
	for i, name := range Columns {
		widths[i] = utf8.RuneCountInString(name)
	}

	header := make([]interface{}, len(Columns))
	for i, name := range Columns {
		header[i] = name
	}
	if err := f.SetSheetRow(SheetReconciliation, "A1", &header); err != nil {
		return err
	}

	for i, row := range rows {
		values, texts := rowCells(row)
		for c, text := range texts {
			if n := utf8.RuneCountInString(text); n > widths[c] {
				widths[c] = n
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetReconciliation, cell, &values); err != nil {
			return err
		}
	}

	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetReconciliation, col, col, float64(width+2)); err != nil {
			return err
		}
	}

	if err := f.SetPanes(SheetReconciliation, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	if len(rows) == 0 {
		return nil
	}
	return applyStatusFormats(f, len(rows))
}

// rowCells returns typed cell values and their display text. Absent sides
// produce nil values so the cells stay empty.
func rowCells(row models.ClassifiedRow) ([]interface{}, []string) {
	values := make([]interface{}, 0, len(Columns))
	texts := make([]string, 0, len(Columns))

	add := func(v interface{}, text string) {
		values = append(values, v)
		texts = append(texts, text)
	}

	add(row.TradeID, row.TradeID)
	for _, rec := range []*models.TradeRecord{row.Internal, row.Bank} {
		if rec == nil {
			for i := 0; i < 5; i++ {
				add(nil, "")
			}
			continue
		}
		add(rec.Ticker, rec.Ticker)
		add(string(rec.Side), string(rec.Side))
		add(rec.Quantity, fmt.Sprintf("%d", rec.Quantity))
		add(rec.Price.InexactFloat64(), rec.Price.String())
		add(rec.Currency, rec.Currency)
	}
	add(string(row.Status), string(row.Status))

	return values, texts
}

func applyStatusFormats(f *excelize.File, rowCount int) error {
	col, err := excelize.ColumnNumberToName(len(Columns))
	if err != nil {
		return err
	}
	first := col + "2"
	rangeRef := fmt.Sprintf("%s:%s%d", first, col, rowCount+1)

	formats := make(map[Marker]int, len(markerStyles))
	for _, marker := range []Marker{MarkerPositive, MarkerCritical, MarkerWarning} {
		style := markerStyles[marker]
		id, err := f.NewConditionalStyle(&excelize.Style{
			Font: &excelize.Font{Color: style.font},
			Fill: excelize.Fill{Type: "pattern", Color: []string{style.fill}, Pattern: 1},
		})
		if err != nil {
			return err
		}
		formats[marker] = id
	}

	return f.SetConditionalFormat(SheetReconciliation, rangeRef, []excelize.ConditionalFormatOptions{
		{
			Type:     "cell",
			Criteria: "==",
			Value:    `"` + string(models.ReconStatusMatch) + `"`,
			Format:   formats[MarkerPositive],
		},
		{
			Type:     "formula",
			Criteria: fmt.Sprintf(`NOT(ISERROR(SEARCH("MISSING",%s)))`, first),
			Format:   formats[MarkerCritical],
		},
		{
			Type:     "formula",
			Criteria: fmt.Sprintf(`NOT(ISERROR(SEARCH("MISMATCH",%s)))`, first),
			Format:   formats[MarkerWarning],
		},
	})
}

func (g *Generator) buildSummarySheet(f *excelize.File, result *models.ReconcileResult) error {
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return err
	}

	s := result.Summary
	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Run ID", result.RunID},
		{"Run Date", result.RunDate.Format("2006-01-02")},
		{"Price Tolerance", result.Tolerance.String()},
		{"Internal Records", s.InternalRecords},
		{"Bank Records", s.BankRecords},
		{"Reconciled Rows", s.TotalRows},
	}
	for _, status := range models.AllReconStatuses() {
		rows = append(rows, []interface{}{string(status), s.ByStatus[status]})
	}
	rows = append(rows,
		[]interface{}{"Match Rate", fmt.Sprintf("%.2f%%", s.MatchRate*100)},
		[]interface{}{"Internal Notional", s.InternalNotional.StringFixed(2)},
		[]interface{}{"Bank Notional", s.BankNotional.StringFixed(2)},
		[]interface{}{"Uncompared Field Differences", s.UncomparedDiffs},
	)

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetSummary, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(SheetSummary, "A", "A", 32); err != nil {
		return err
	}
	return f.SetColWidth(SheetSummary, "B", "B", 40)
}

func (g *Generator) buildNotesSheet(f *excelize.File, rows []models.ClassifiedRow) error {
	if _, err := f.NewSheet(SheetNotes); err != nil {
		return err
	}
	if err := f.SetCellValue(SheetNotes, "A1", uncomparedNote); err != nil {
		return err
	}

	header := []interface{}{"Trade_ID", "Field", "Internal", "Bank", StatusColumn}
	if err := f.SetSheetRow(SheetNotes, "A3", &header); err != nil {
		return err
	}

	line := 4
	for _, row := range rows {
		for _, diff := range reconciliation.FieldDifferences(row.AlignedRow) {
			values := []interface{}{row.TradeID, diff.Field, diff.Internal, diff.Bank, string(row.Status)}
			cell, err := excelize.CoordinatesToCellName(1, line)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(SheetNotes, cell, &values); err != nil {
				return err
			}
			line++
		}
	}

	return f.SetColWidth(SheetNotes, "A", "E", 18)
}
