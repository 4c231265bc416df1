// Package provider defines the capability interface over the external market
// data provider and its tabular wire format.
//
// The engine never assumes a concrete provider implementation: everything
// above this package talks to the Client interface and classifies failures
// through the helpers here. The HTTP implementation for the Tushare-style
// protocol lives in tushare.go.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Client is the capability interface consumed by the sync engine.
//
// Authenticate validates the configured credential with a trivial probe call
// and must fail fast when the token is rejected. Call executes one endpoint
// with the given query parameters and returns the tabular result; an empty
// result is not an error at this layer, callers decide what emptiness means.
type Client interface {
	Authenticate(ctx context.Context) error
	Call(ctx context.Context, endpoint string, params map[string]string) (*ResultSet, error)
}

// ResultSet is one tabular provider response: column names plus row tuples.
type ResultSet struct {
	Fields []string
	Rows   [][]interface{}
}

// Len returns the number of rows
func (rs *ResultSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rows)
}

// Empty reports whether the result carries no rows
func (rs *ResultSet) Empty() bool {
	return rs.Len() == 0
}

// Maps converts the result into one map per row, keyed by column name.
// Rows shorter than the field list are padded with nils.
func (rs *ResultSet) Maps() []map[string]interface{} {
	if rs == nil {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		m := make(map[string]interface{}, len(rs.Fields))
		for i, f := range rs.Fields {
			if i < len(row) {
				m[f] = row[i]
			} else {
				m[f] = nil
			}
		}
		out = append(out, m)
	}
	return out
}

// Merge appends the rows of other into rs. The field sets must match; the
// first non-nil set defines the columns.
func (rs *ResultSet) Merge(other *ResultSet) *ResultSet {
	if other == nil || other.Empty() {
		return rs
	}
	if rs == nil || len(rs.Fields) == 0 {
		merged := &ResultSet{Fields: other.Fields}
		merged.Rows = append(merged.Rows, other.Rows...)
		return merged
	}
	rs.Rows = append(rs.Rows, other.Rows...)
	return rs
}

// ErrEmptyResult marks a call that succeeded at the transport level but
// produced no rows where rows were required.
var ErrEmptyResult = errors.New("provider returned no rows")

// CallError is a provider-level failure for one endpoint call
type CallError struct {
	Endpoint string
	Code     int
	Msg      string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("provider call %s failed (code %d): %s", e.Endpoint, e.Code, e.Msg)
}

// Provider error codes observed on the Tushare protocol. Anything else is
// treated as transient.
const (
	codePermissionDenied = 2002
	codeRateLimited      = 40203
)

// IsPermissionDenied reports whether err is an endpoint permission failure.
// Permission failures are never retried.
func IsPermissionDenied(err error) bool {
	var ce *CallError
	if !errors.As(err, &ce) {
		return false
	}
	if ce.Code == codePermissionDenied {
		return true
	}
	msg := strings.ToLower(ce.Msg)
	return strings.Contains(msg, "permission") || strings.Contains(ce.Msg, "权限")
}

// IsRateLimited reports whether err is a provider throttling failure
func IsRateLimited(err error) bool {
	var ce *CallError
	if !errors.As(err, &ce) {
		return false
	}
	if ce.Code == codeRateLimited {
		return true
	}
	msg := strings.ToLower(ce.Msg)
	return strings.Contains(msg, "rate") || strings.Contains(ce.Msg, "频率") || strings.Contains(ce.Msg, "每分钟")
}

// IsEmpty reports whether err marks a required-but-empty result
func IsEmpty(err error) bool {
	return errors.Is(err, ErrEmptyResult)
}
