package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Side represents the direction of a trade
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Valid reports whether the side is one of the known directions
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// SourceKind identifies which record set a trade came from
type SourceKind string

const (
	SourceInternal SourceKind = "internal"
	SourceBank     SourceKind = "bank"
)

// TradeRecord represents one trade line from a ledger or statement
type TradeRecord struct {
	TradeID  string          `json:"trade_id"`
	Ticker   string          `json:"ticker"`
	Side     Side            `json:"side"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	Line     int             `json:"-"` // 1-based line in the source file
}

// Notional returns quantity multiplied by price
func (t *TradeRecord) Notional() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}

// RecordSet is a loaded source keyed by trimmed trade id
type RecordSet struct {
	Source  SourceKind
	Path    string
	Records map[string]*TradeRecord
}

// NewRecordSet creates an empty record set
func NewRecordSet(source SourceKind, path string) *RecordSet {
	return &RecordSet{
		Source:  source,
		Path:    path,
		Records: make(map[string]*TradeRecord),
	}
}

// Len returns the number of records in the set
func (s *RecordSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}

// Keys returns the trade ids of the set in ascending order
func (s *RecordSet) Keys() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, len(s.Records))
	for k := range s.Records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Presence describes which sides of an aligned row hold a record
type Presence int

const (
	PresenceBoth Presence = iota
	PresenceInternalOnly
	PresenceBankOnly
)

func (p Presence) String() string {
	switch p {
	case PresenceBoth:
		return "both"
	case PresenceInternalOnly:
		return "internal_only"
	case PresenceBankOnly:
		return "bank_only"
	default:
		return "unknown"
	}
}

// AlignedRow pairs the internal and bank records sharing one trade id.
// A nil side means the record is absent from that source; at least one
// side is always set.
type AlignedRow struct {
	TradeID  string       `json:"trade_id"`
	Internal *TradeRecord `json:"internal,omitempty"`
	Bank     *TradeRecord `json:"bank,omitempty"`
}

// Presence returns the shape of the row
func (r AlignedRow) Presence() Presence {
	switch {
	case r.Internal != nil && r.Bank != nil:
		return PresenceBoth
	case r.Internal != nil:
		return PresenceInternalOnly
	default:
		return PresenceBankOnly
	}
}

// ReconStatus is the break category assigned to an aligned row
type ReconStatus string

const (
	ReconStatusMissingInBank   ReconStatus = "MISSING IN BANK"
	ReconStatusMissingInternal ReconStatus = "MISSING INTERNAL"
	ReconStatusQtyMismatch     ReconStatus = "QTY MISMATCH"
	ReconStatusPriceMismatch   ReconStatus = "PRICE MISMATCH"
	ReconStatusMatch           ReconStatus = "MATCH"
)

// AllReconStatuses lists every status in decision order
func AllReconStatuses() []ReconStatus {
	return []ReconStatus{
		ReconStatusMissingInBank,
		ReconStatusMissingInternal,
		ReconStatusQtyMismatch,
		ReconStatusPriceMismatch,
		ReconStatusMatch,
	}
}

// ClassifiedRow is an aligned row with its final status
type ClassifiedRow struct {
	AlignedRow
	Status ReconStatus `json:"recon_status"`
}

// ReconcileSummary contains per-run totals
type ReconcileSummary struct {
	InternalRecords  int                 `json:"internal_records"`
	BankRecords      int                 `json:"bank_records"`
	TotalRows        int                 `json:"total_rows"`
	ByStatus         map[ReconStatus]int `json:"by_status"`
	MatchRate        float64             `json:"match_rate"`
	InternalNotional decimal.Decimal     `json:"internal_notional"`
	BankNotional     decimal.Decimal     `json:"bank_notional"`
	UncomparedDiffs  int                 `json:"uncompared_field_diffs"`
}

// Breaks returns the number of rows that are not a match
func (s *ReconcileSummary) Breaks() int {
	return s.TotalRows - s.ByStatus[ReconStatusMatch]
}

// ReconcileResult is the output of one reconciliation run
type ReconcileResult struct {
	RunID      string            `json:"run_id"`
	RunDate    time.Time         `json:"run_date"`
	Tolerance  decimal.Decimal   `json:"tolerance"`
	Rows       []ClassifiedRow   `json:"rows"`
	Summary    *ReconcileSummary `json:"summary"`
	ReportPath string            `json:"report_path,omitempty"`
}
