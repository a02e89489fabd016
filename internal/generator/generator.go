// Package generator produces seeded synthetic ledgers for exercising the
// reconciliation engine. The bank copy carries a known mix of breaks.
package generator

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"github.com/savegress/traderecon/internal/config"
	"github.com/savegress/traderecon/internal/loader"
	"github.com/savegress/traderecon/pkg/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FirstTradeNumber numbers the first generated internal trade
const FirstTradeNumber = 1001

var (
	tickers    = []string{"RELIANCE", "TCS", "HDFCBANK", "INFY", "ICICIBANK", "SBIN", "BHARTIARTL"}
	sides      = []models.Side{models.SideBuy, models.SideSell}
	currencies = []string{"INR", "USD"}
)

// Break is the kind of discrepancy injected into the bank copy
type Break string

const (
	BreakDropped Break = "dropped"
	BreakPrice   Break = "price"
	BreakQty     Break = "qty"
	BreakZombie  Break = "zombie"
)

// Dataset is one generated pair of ledgers
type Dataset struct {
	Internal []*models.TradeRecord
	Bank     []*models.TradeRecord
	Breaks   map[string]Break
}

// Count returns how many trades carry the given break
func (d *Dataset) Count(kind Break) int {
	n := 0
	for _, b := range d.Breaks {
		if b == kind {
			n++
		}
	}
	return n
}

// Generator builds datasets from a seed
type Generator struct {
	config config.GeneratorConfig
	logger *zap.Logger
}

// NewGenerator creates a new synthetic data generator
func NewGenerator(cfg config.GeneratorConfig, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		config: cfg,
		logger: logger,
	}
}

// Generate builds a dataset. The same seed always yields the same dataset.
func (g *Generator) Generate() *Dataset {
	rng := rand.New(rand.NewSource(g.config.Seed))

	ds := &Dataset{
		Internal: make([]*models.TradeRecord, 0, g.config.Trades),
		Bank:     make([]*models.TradeRecord, 0, g.config.Trades+g.config.Zombies),
		Breaks:   make(map[string]Break),
	}

	for i := 0; i < g.config.Trades; i++ {
		ds.Internal = append(ds.Internal, &models.TradeRecord{
			TradeID:  fmt.Sprintf("TRD-%d", FirstTradeNumber+i),
			Ticker:   tickers[rng.Intn(len(tickers))],
			Side:     sides[rng.Intn(len(sides))],
			Quantity: int64(10 + 10*rng.Intn(99)),
			Price:    uniform(rng, 500, 3500).Round(2),
			Currency: currencies[rng.Intn(len(currencies))],
		})
	}

	for _, rec := range ds.Internal {
		copied := *rec
		chance := rng.Float64()
		switch {
		case chance < 0.05:
			ds.Breaks[rec.TradeID] = BreakDropped
			continue
		case chance < 0.10:
			copied.Price = rec.Price.Mul(uniform(rng, 0.95, 1.05)).Round(2)
			ds.Breaks[rec.TradeID] = BreakPrice
		case chance < 0.15:
			copied.Quantity = rec.Quantity - 10
			ds.Breaks[rec.TradeID] = BreakQty
		}
		ds.Bank = append(ds.Bank, &copied)
	}

	for i := 0; i < g.config.Zombies; i++ {
		id := fmt.Sprintf("BANK-ONLY-%d", i)
		ds.Bank = append(ds.Bank, &models.TradeRecord{
			TradeID:  id,
			Ticker:   "UNKNOWN",
			Side:     models.SideBuy,
			Quantity: 100,
			Price:    decimal.NewFromInt(1000),
			Currency: "INR",
		})
		ds.Breaks[id] = BreakZombie
	}

	g.logger.Info("dataset generated",
		zap.Int64("seed", g.config.Seed),
		zap.Int("internal", len(ds.Internal)),
		zap.Int("bank", len(ds.Bank)),
		zap.Int("dropped", ds.Count(BreakDropped)),
		zap.Int("price_breaks", ds.Count(BreakPrice)),
		zap.Int("qty_breaks", ds.Count(BreakQty)),
		zap.Int("zombies", ds.Count(BreakZombie)),
	)

	return ds
}

// WriteFiles generates a dataset and writes both ledgers
func (g *Generator) WriteFiles(internalPath, bankPath string) (*Dataset, error) {
	ds := g.Generate()
	if err := WriteCSV(internalPath, ds.Internal); err != nil {
		return nil, err
	}
	if err := WriteCSV(bankPath, ds.Bank); err != nil {
		return nil, err
	}
	return ds, nil
}

// WriteCSV writes records in the loader's header layout
func WriteCSV(path string, records []*models.TradeRecord) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return models.NewDestinationUnwritable(path, err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return models.NewDestinationUnwritable(path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(loader.RequiredColumns); err != nil {
		return models.NewDestinationUnwritable(path, err)
	}
	for _, rec := range records {
		row := []string{
			rec.TradeID,
			rec.Ticker,
			string(rec.Side),
			strconv.FormatInt(rec.Quantity, 10),
			rec.Price.StringFixed(2),
			rec.Currency,
		}
		if err := w.Write(row); err != nil {
			return models.NewDestinationUnwritable(path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return models.NewDestinationUnwritable(path, err)
	}

	return file.Close()
}

func uniform(rng *rand.Rand, lo, hi float64) decimal.Decimal {
	return decimal.NewFromFloat(lo + (hi-lo)*rng.Float64())
}
