package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/savegress/traderecon/pkg/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Column names expected in every source header
const (
	ColumnTradeID  = "Trade_ID"
	ColumnTicker   = "Ticker"
	ColumnSide     = "Side"
	ColumnQty      = "Qty"
	ColumnPrice    = "Price"
	ColumnCurrency = "Currency"
)

// RequiredColumns lists the header names in their canonical order
var RequiredColumns = []string{
	ColumnTradeID,
	ColumnTicker,
	ColumnSide,
	ColumnQty,
	ColumnPrice,
	ColumnCurrency,
}

// Loader parses trade sources into keyed record sets
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a new loader
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

// Load reads the CSV file at path. A missing or unreadable file yields a
// source unavailable error; rejected rows yield malformed record errors.
func (l *Loader) Load(path string, source models.SourceKind) (*models.RecordSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, models.NewSourceUnavailable(path, err)
	}
	defer f.Close()

	set, err := l.Parse(f, path, source)
	if err != nil {
		return nil, err
	}

	l.logger.Info("source loaded",
		zap.String("source", string(source)),
		zap.String("path", path),
		zap.Int("records", set.Len()),
	)
	return set, nil
}

// Parse reads CSV rows from r. name identifies the source in diagnostics.
func (l *Loader) Parse(r io.Reader, name string, source models.SourceKind) (*models.RecordSet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, models.NewSourceUnavailable(name, errors.New("missing header row"))
		}
		return nil, models.NewSourceUnavailable(name, fmt.Errorf("failed to read CSV header: %w", err))
	}

	columns, err := indexColumns(header)
	if err != nil {
		return nil, models.NewSourceUnavailable(name, err)
	}

	set := models.NewRecordSet(source, name)
	var rowErrs []error

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, models.NewSourceUnavailable(name, fmt.Errorf("failed to read CSV record: %w", err))
		}

		line, _ := reader.FieldPos(0)
		trade, err := parseRecord(record, columns, line)
		if err == nil {
			if prev, dup := set.Records[trade.TradeID]; dup {
				err = fmt.Errorf("duplicate trade id, first seen on line %d", prev.Line)
			}
		}
		if err != nil {
			tradeID := ""
			if trade != nil {
				tradeID = trade.TradeID
			} else if i := columns[ColumnTradeID]; i < len(record) {
				tradeID = strings.TrimSpace(record[i])
			}
			rowErr := models.NewMalformedRecord(name, line, tradeID, err)
			l.logger.Warn("rejected row",
				zap.String("source", string(source)),
				zap.Int("line", line),
				zap.String("trade_id", tradeID),
				zap.Error(err),
			)
			rowErrs = append(rowErrs, rowErr)
			continue
		}

		set.Records[trade.TradeID] = trade
	}

	switch len(rowErrs) {
	case 0:
		return set, nil
	case 1:
		return nil, rowErrs[0]
	default:
		return nil, errors.Join(rowErrs...)
	}
}

func indexColumns(header []string) (map[string]int, error) {
	required := make(map[string]bool, len(RequiredColumns))
	for _, name := range RequiredColumns {
		required[name] = true
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		name = strings.TrimSpace(name)
		if _, ok := columns[name]; ok && required[name] {
			return nil, fmt.Errorf("duplicate column %q in header", name)
		}
		if _, ok := columns[name]; !ok {
			columns[name] = i
		}
	}

	var missing []string
	for _, name := range RequiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("header is missing columns: %s", strings.Join(missing, ", "))
	}
	return columns, nil
}

// parseRecord returns a partially filled trade alongside the error when the
// trade id was readable, so diagnostics can name it.
func parseRecord(record []string, columns map[string]int, line int) (*models.TradeRecord, error) {
	field := func(name string) (string, error) {
		i := columns[name]
		if i >= len(record) {
			return "", fmt.Errorf("missing %s", name)
		}
		v := strings.TrimSpace(record[i])
		if v == "" {
			return "", fmt.Errorf("missing %s", name)
		}
		return v, nil
	}

	tradeID, err := field(ColumnTradeID)
	if err != nil {
		return nil, err
	}
	trade := &models.TradeRecord{TradeID: tradeID, Line: line}

	if trade.Ticker, err = field(ColumnTicker); err != nil {
		return trade, err
	}

	side, err := field(ColumnSide)
	if err != nil {
		return trade, err
	}
	trade.Side = models.Side(strings.ToUpper(side))
	if !trade.Side.Valid() {
		return trade, fmt.Errorf("invalid side %q", side)
	}

	qty, err := field(ColumnQty)
	if err != nil {
		return trade, err
	}
	if trade.Quantity, err = strconv.ParseInt(qty, 10, 64); err != nil {
		return trade, fmt.Errorf("invalid quantity %q", qty)
	}
	if trade.Quantity < 0 {
		return trade, fmt.Errorf("negative quantity %d", trade.Quantity)
	}

	price, err := field(ColumnPrice)
	if err != nil {
		return trade, err
	}
	if trade.Price, err = decimal.NewFromString(price); err != nil {
		return trade, fmt.Errorf("invalid price %q", price)
	}
	if trade.Price.IsNegative() {
		return trade, fmt.Errorf("negative price %s", trade.Price)
	}

	if trade.Currency, err = field(ColumnCurrency); err != nil {
		return trade, err
	}

	return trade, nil
}
