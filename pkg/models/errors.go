package models

import (
	"fmt"
	"strings"
)

// Error codes
const (
	CodeSourceUnavailable     = "SOURCE_UNAVAILABLE"
	CodeMalformedRecord       = "MALFORMED_RECORD"
	CodeDestinationUnwritable = "DESTINATION_UNWRITABLE"
)

// Errors
var (
	ErrSourceUnavailable     = &Error{Code: CodeSourceUnavailable, Message: "Source unavailable"}
	ErrMalformedRecord       = &Error{Code: CodeMalformedRecord, Message: "Malformed record"}
	ErrDestinationUnwritable = &Error{Code: CodeDestinationUnwritable, Message: "Destination unwritable"}
)

// Error represents a terminal reconciliation error. Source, Line and
// TradeID locate the offending input when known.
type Error struct {
	Code    string
	Message string
	Source  string
	Line    int
	TradeID string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Source != "" {
		fmt.Fprintf(&b, " (%s", e.Source)
		if e.Line > 0 {
			fmt.Fprintf(&b, " line %d", e.Line)
		}
		if e.TradeID != "" {
			fmt.Fprintf(&b, " trade %s", e.TradeID)
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors by code so callers can test against the sentinels
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewSourceUnavailable wraps a failure to locate or read a source
func NewSourceUnavailable(source string, err error) *Error {
	return &Error{
		Code:    CodeSourceUnavailable,
		Message: "Source unavailable",
		Source:  source,
		Err:     err,
	}
}

// NewMalformedRecord describes a rejected row
func NewMalformedRecord(source string, line int, tradeID string, err error) *Error {
	return &Error{
		Code:    CodeMalformedRecord,
		Message: "Malformed record",
		Source:  source,
		Line:    line,
		TradeID: tradeID,
		Err:     err,
	}
}

// NewDestinationUnwritable wraps a failure to create or write the report
func NewDestinationUnwritable(dest string, err error) *Error {
	return &Error{
		Code:    CodeDestinationUnwritable,
		Message: "Destination unwritable",
		Source:  dest,
		Err:     err,
	}
}
