package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/savegress/traderecon/internal/config"
	"github.com/savegress/traderecon/internal/loader"
	"github.com/savegress/traderecon/pkg/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ReportWriter persists a classified result and returns where it went
type ReportWriter interface {
	Write(result *models.ReconcileResult, cfg *config.ReconciliationConfig) (string, error)
}

// Engine runs load, align, classify and report as one batch. It holds no
// per-run state, so one engine may serve concurrent runs with different
// configurations.
type Engine struct {
	loader *loader.Loader
	writer ReportWriter
	logger *zap.Logger
	now    func() time.Time
}

// NewEngine creates a new reconciliation engine
func NewEngine(writer ReportWriter, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		loader: loader.NewLoader(logger),
		writer: writer,
		logger: logger,
		now:    time.Now,
	}
}

// Run reconciles the sources named in cfg and writes the report. Any error
// is terminal: nothing is written when loading fails.
func (e *Engine) Run(ctx context.Context, cfg *config.ReconciliationConfig) (*models.ReconcileResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Both sources load concurrently. When both fail the internal error is
	// reported so diagnostics stay stable between runs.
	var (
		internal, bank       *models.RecordSet
		internalErr, bankErr error
		g                    errgroup.Group
	)
	g.Go(func() error {
		internal, internalErr = e.loader.Load(cfg.InternalPath, models.SourceInternal)
		return internalErr
	})
	g.Go(func() error {
		bank, bankErr = e.loader.Load(cfg.BankPath, models.SourceBank)
		return bankErr
	})
	if err := g.Wait(); err != nil {
		if internalErr != nil {
			return nil, internalErr
		}
		return nil, bankErr
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := e.Reconcile(internal, bank, cfg.Tolerance)

	if e.writer != nil {
		path, err := e.writer.Write(result, cfg)
		if err != nil {
			e.logger.Error("report write failed", zap.String("run_id", result.RunID), zap.Error(err))
			return nil, err
		}
		result.ReportPath = path
		e.logger.Info("report written", zap.String("run_id", result.RunID), zap.String("path", path))
	}

	return result, nil
}

// Reconcile aligns and classifies two loaded record sets
func (e *Engine) Reconcile(internal, bank *models.RecordSet, tolerance decimal.Decimal) *models.ReconcileResult {
	rows := NewClassifier(tolerance).ClassifyAll(Align(internal, bank))

	result := &models.ReconcileResult{
		RunID:     uuid.NewString(),
		RunDate:   e.now(),
		Tolerance: tolerance,
		Rows:      rows,
		Summary:   Summarize(internal, bank, rows),
	}

	fields := []zap.Field{
		zap.String("run_id", result.RunID),
		zap.Int("rows", result.Summary.TotalRows),
		zap.Float64("match_rate", result.Summary.MatchRate),
	}
	for _, status := range models.AllReconStatuses() {
		fields = append(fields, zap.Int(string(status), result.Summary.ByStatus[status]))
	}
	e.logger.Info("reconciliation complete", fields...)

	return result
}

// Summarize computes per-status counts and notional totals
func Summarize(internal, bank *models.RecordSet, rows []models.ClassifiedRow) *models.ReconcileSummary {
	summary := &models.ReconcileSummary{
		InternalRecords:  internal.Len(),
		BankRecords:      bank.Len(),
		TotalRows:        len(rows),
		ByStatus:         make(map[models.ReconStatus]int),
		InternalNotional: notional(internal),
		BankNotional:     notional(bank),
	}

	for _, status := range models.AllReconStatuses() {
		summary.ByStatus[status] = 0
	}
	for _, row := range rows {
		summary.ByStatus[row.Status]++
		if len(FieldDifferences(row.AlignedRow)) > 0 {
			summary.UncomparedDiffs++
		}
	}

	if summary.TotalRows > 0 {
		summary.MatchRate = float64(summary.ByStatus[models.ReconStatusMatch]) / float64(summary.TotalRows)
	}

	return summary
}

func notional(set *models.RecordSet) decimal.Decimal {
	total := decimal.Zero
	if set == nil {
		return total
	}
	for _, rec := range set.Records {
		total = total.Add(rec.Notional())
	}
	return total
}
