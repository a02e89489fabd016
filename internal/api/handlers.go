package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/savegress/traderecon/internal/config"
	"github.com/savegress/traderecon/internal/loader"
	"github.com/savegress/traderecon/internal/metrics"
	"github.com/savegress/traderecon/internal/reconciliation"
	"github.com/savegress/traderecon/internal/reporting"
	"github.com/savegress/traderecon/pkg/models"
	"github.com/savegress/traderecon/pkg/workerpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains all HTTP handlers
type Handlers struct {
	engine    *reconciliation.Engine
	loader    *loader.Loader
	reports   *reporting.Generator
	pool      *workerpool.Pool
	metrics   *metrics.Metrics
	logger    *zap.Logger
	tolerance decimal.Decimal
	maxUpload int64
}

// NewHandlers creates new handlers
func NewHandlers(cfg *config.Config, engine *reconciliation.Engine, reports *reporting.Generator, pool *workerpool.Pool, m *metrics.Metrics, logger *zap.Logger) *Handlers {
	return &Handlers{
		engine:    engine,
		loader:    loader.NewLoader(logger),
		reports:   reports,
		pool:      pool,
		metrics:   m,
		logger:    logger,
		tolerance: cfg.Reconciliation.Tolerance,
		maxUpload: cfg.Server.MaxUploadBytes,
	}
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "traderecon",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// CreateRun reconciles two uploaded ledgers. The result is returned as JSON,
// or as the workbook when format=xlsx.
func (h *Handlers) CreateRun(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format != "" && format != "json" && format != "xlsx" {
		respondError(w, http.StatusBadRequest, "Unsupported format "+format)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "Upload too large")
			return
		}
		respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	tolerance := h.tolerance
	if raw := r.FormValue("tolerance"); raw != "" {
		t, err := decimal.NewFromString(raw)
		if err != nil || t.IsNegative() {
			respondError(w, http.StatusBadRequest, "Invalid tolerance "+raw)
			return
		}
		tolerance = t
	}

	internalFile, internalName, err := formFile(r, "internal")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer internalFile.Close()

	bankFile, bankName, err := formFile(r, "bank")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer bankFile.Close()

	var result *models.ReconcileResult
	start := time.Now()

	err = h.pool.Do(r.Context(), func(ctx context.Context) error {
		h.metrics.RunsInFlight.Inc()
		defer h.metrics.RunsInFlight.Dec()

		internal, err := h.loader.Parse(internalFile, internalName, models.SourceInternal)
		if err != nil {
			return err
		}
		bank, err := h.loader.Parse(bankFile, bankName, models.SourceBank)
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		result = h.engine.Reconcile(internal, bank, tolerance)
		return nil
	})
	if err != nil {
		// result may still be written by an abandoned task
		h.metrics.ObserveRun(nil, err, time.Since(start))
		h.respondRunError(w, err)
		return
	}
	h.metrics.ObserveRun(result, nil, time.Since(start))

	h.logger.Info("run served",
		zap.String("run_id", result.RunID),
		zap.String("subject", Subject(r.Context())),
		zap.Int("rows", result.Summary.TotalRows),
		zap.Int("breaks", result.Summary.Breaks()),
	)

	if format != "xlsx" {
		w.Header().Set("X-Run-ID", result.RunID)
		respond(w, http.StatusOK, result)
		return
	}

	var buf bytes.Buffer
	if err := h.reports.WriteTo(result, &buf); err != nil {
		h.logger.Error("report build failed", zap.String("run_id", result.RunID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Report could not be built")
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", reporting.ReportName(result.RunDate)))
	w.Header().Set("X-Run-ID", result.RunID)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// GetRunStats reports run pool counters
func (h *Handlers) GetRunStats(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.pool.Stats())
}

func (h *Handlers) respondRunError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrMalformedRecord):
		respondErrors(w, http.StatusBadRequest, "Malformed record", errorDetails(err))
	case errors.Is(err, models.ErrSourceUnavailable):
		respondErrors(w, http.StatusUnprocessableEntity, "Source unavailable", errorDetails(err))
	case errors.Is(err, workerpool.ErrQueueFull), errors.Is(err, workerpool.ErrPoolClosed):
		w.Header().Set("Retry-After", "1")
		respondError(w, http.StatusServiceUnavailable, "Too many reconciliation runs in progress")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusServiceUnavailable, "Run cancelled")
	default:
		h.logger.Error("run failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Reconciliation failed")
	}
}

func formFile(r *http.Request, field string) (multipart.File, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", fmt.Errorf("missing %s file", field)
	}
	name := header.Filename
	if name == "" {
		name = field
	}
	return file, name, nil
}

// errorDetails flattens joined errors into one message each
func errorDetails(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		details := make([]string, 0, len(joined.Unwrap()))
		for _, e := range joined.Unwrap() {
			details = append(details, e.Error())
		}
		return details
	}
	return []string{err.Error()}
}

// Helper functions

func respond(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respond(w, status, map[string]string{"error": message})
}

func respondErrors(w http.ResponseWriter, status int, message string, details []string) {
	respond(w, status, map[string]interface{}{
		"error":   message,
		"details": details,
	})
}
