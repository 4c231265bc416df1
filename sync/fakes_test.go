package sync

import (
	"context"
	"fmt"
	"sort"
	"time"

	"marketsync/database"
	"marketsync/provider"
)

// fakeStore is an in-memory Store. Time-series rows are keyed by
// (table, trade_date, ts_code); the stored map carries the raw column values
// so anomaly checks can inspect them.
type fakeStore struct {
	schemaErr    error
	activeByDate map[string][]string
	universe     []string
	tradingDates []string

	rows     map[string]map[string]map[string]interface{} // table -> date|code -> columns
	outcomes map[string]*database.IngestOutcome           // batch|dataset -> last record
	inserts  int
	deletes  int

	// Write failure injection: each counter fails that many calls before
	// letting writes through again
	failInsertRows int
	failReplaceAll int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		activeByDate: make(map[string][]string),
		rows:         make(map[string]map[string]map[string]interface{}),
		outcomes:     make(map[string]*database.IngestOutcome),
	}
}

func rowKey(date, code string) string { return date + "|" + code }

func (s *fakeStore) EnsureSchema() error { return s.schemaErr }

func (s *fakeStore) ActiveEntities(tradeDate string) ([]string, error) {
	return s.activeByDate[tradeDate], nil
}

func (s *fakeStore) EntityUniverse() ([]string, error) { return s.universe, nil }

func (s *fakeStore) TradingDates(start, end string) ([]string, error) {
	var out []string
	for _, d := range s.tradingDates {
		if d >= start && d <= end {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *fakeStore) PresentEntities(table, tradeDate string) ([]string, error) {
	var out []string
	for key, row := range s.rows[table] {
		if key[:8] == tradeDate {
			out = append(out, row["ts_code"].(string))
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *fakeStore) AnomalousEntities(table, tradeDate string) ([]string, error) {
	var out []string
	for key, row := range s.rows[table] {
		if key[:8] != tradeDate {
			continue
		}
		if c, ok := row["close"].(float64); !ok || c <= 0 {
			out = append(out, row["ts_code"].(string))
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *fakeStore) CountRows(table, tradeDate string) (int64, error) {
	var n int64
	for key := range s.rows[table] {
		if key[:8] == tradeDate {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) insert(table string, rs *provider.ResultSet, ignore bool) (int64, error) {
	s.inserts++
	if !ignore && s.failInsertRows > 0 {
		s.failInsertRows--
		return 0, fmt.Errorf("insert into %s failed", table)
	}
	if s.rows[table] == nil {
		s.rows[table] = make(map[string]map[string]interface{})
	}
	var n int64
	for _, row := range rs.Maps() {
		code, _ := row["ts_code"].(string)
		date, _ := row["trade_date"].(string)
		key := rowKey(date, code)
		if _, exists := s.rows[table][key]; exists && ignore {
			continue
		}
		s.rows[table][key] = row
		n++
	}
	return n, nil
}

func (s *fakeStore) InsertRows(table string, rs *provider.ResultSet) (int64, error) {
	return s.insert(table, rs, false)
}

func (s *fakeStore) InsertIgnore(table string, rs *provider.ResultSet) (int64, error) {
	return s.insert(table, rs, true)
}

func (s *fakeStore) ReplaceAll(table string, rs *provider.ResultSet) (int64, error) {
	if s.failReplaceAll > 0 {
		s.failReplaceAll--
		return 0, fmt.Errorf("replace of %s failed", table)
	}
	s.rows[table] = make(map[string]map[string]interface{})
	return s.insert(table, rs, false)
}

func (s *fakeStore) deleteMatching(table string, match func(key string, row map[string]interface{}) bool) (int64, error) {
	var n int64
	for key, row := range s.rows[table] {
		if match(key, row) {
			delete(s.rows[table], key)
			n++
		}
	}
	s.deletes++
	return n, nil
}

func (s *fakeStore) DeletePartition(table, tradeDate string) (int64, error) {
	return s.deleteMatching(table, func(key string, _ map[string]interface{}) bool {
		return key[:8] == tradeDate
	})
}

func (s *fakeStore) DeleteEntities(table, tradeDate string, codes []string) (int64, error) {
	want := make(map[string]bool, len(codes))
	for _, c := range codes {
		want[c] = true
	}
	return s.deleteMatching(table, func(key string, row map[string]interface{}) bool {
		return key[:8] == tradeDate && want[row["ts_code"].(string)]
	})
}

func (s *fakeStore) DeleteEntityRange(table, start, end string, codes []string) (int64, error) {
	want := make(map[string]bool, len(codes))
	for _, c := range codes {
		want[c] = true
	}
	return s.deleteMatching(table, func(key string, row map[string]interface{}) bool {
		date := key[:8]
		return date >= start && date <= end && want[row["ts_code"].(string)]
	})
}

func (s *fakeStore) DeleteRange(table, start, end string) (int64, error) {
	return s.deleteMatching(table, func(key string, _ map[string]interface{}) bool {
		date := key[:8]
		return date >= start && date <= end
	})
}

func (s *fakeStore) DeleteAll(table string) (int64, error) {
	n := int64(len(s.rows[table]))
	s.rows[table] = make(map[string]map[string]interface{})
	return n, nil
}

func (s *fakeStore) RecordOutcome(o *database.IngestOutcome) error {
	copied := *o
	s.outcomes[o.BatchName+"|"+o.Dataset] = &copied
	return nil
}

// Transaction snapshots the stored rows and restores them when fn fails, so
// rollback semantics hold in tests too.
func (s *fakeStore) Transaction(fn func(tx Store) error) error {
	snapshot := make(map[string]map[string]map[string]interface{}, len(s.rows))
	for table, byKey := range s.rows {
		copied := make(map[string]map[string]interface{}, len(byKey))
		for k, v := range byKey {
			copied[k] = v
		}
		snapshot[table] = copied
	}
	if err := fn(s); err != nil {
		s.rows = snapshot
		return err
	}
	return nil
}

func (s *fakeStore) presentCodes(table, date string) []string {
	codes, _ := s.PresentEntities(table, date)
	return codes
}

// fakeClient scripts provider responses per endpoint
type fakeClient struct {
	authErr error
	handler func(endpoint string, params map[string]string) (*provider.ResultSet, error)
	calls   []recordedCall
}

type recordedCall struct {
	endpoint string
	params   map[string]string
}

func (c *fakeClient) Authenticate(ctx context.Context) error { return c.authErr }

func (c *fakeClient) Call(ctx context.Context, endpoint string, params map[string]string) (*provider.ResultSet, error) {
	copied := make(map[string]string, len(params))
	for k, v := range params {
		copied[k] = v
	}
	c.calls = append(c.calls, recordedCall{endpoint: endpoint, params: copied})
	if c.handler == nil {
		return &provider.ResultSet{}, nil
	}
	return c.handler(endpoint, copied)
}

func (c *fakeClient) callCount(endpoint string) int {
	n := 0
	for _, call := range c.calls {
		if call.endpoint == endpoint {
			n++
		}
	}
	return n
}

// barSet builds a daily-bar result for the given codes on one trade date
func barSet(date string, closePrice float64, codes ...string) *provider.ResultSet {
	rs := &provider.ResultSet{Fields: []string{"ts_code", "trade_date", "close", "vol", "amount"}}
	for _, code := range codes {
		rs.Rows = append(rs.Rows, []interface{}{code, date, closePrice, 1000.0, 50000.0})
	}
	return rs
}

// seedBars inserts valid bars directly into the fake store
func seedBars(s *fakeStore, table, date string, codes ...string) {
	s.InsertRows(table, barSet(date, 10.0, codes...))
}

// seedAnomalousBar inserts one bar with a non-positive close
func seedAnomalousBar(s *fakeStore, table, date, code string) {
	s.InsertRows(table, barSet(date, -1.0, code))
}

// noSleep replaces the retry/throttle sleeps in tests
func noSleep(time.Duration) {}

// codeList produces n sequential instrument codes
func codeList(n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, fmt.Sprintf("%06d.SZ", i+1))
	}
	return out
}
