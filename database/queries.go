package database

import "fmt"

// anomalyPredicate returns the validity check for one time-series table.
// A row failing the predicate counts as anomalous during reconciliation.
func anomalyPredicate(table string) string {
	if table == "adj_factor" {
		return "(adj_factor IS NULL OR adj_factor <= 0)"
	}
	return "(close IS NULL OR close <= 0 OR vol < 0 OR amount < 0)"
}

// ActiveEntities returns the instruments whose listing window covers the
// trade date: listed on or before it and not yet delisted.
func (m *Manager) ActiveEntities(tradeDate string) ([]string, error) {
	return m.StringColumn(`
		SELECT ts_code FROM stock_basic
		WHERE list_date <> '' AND list_date <= ?
		AND (delist_date IS NULL OR delist_date = '' OR delist_date > ?)
		ORDER BY ts_code`, tradeDate, tradeDate)
}

// EntityUniverse returns every instrument code in the reference table
func (m *Manager) EntityUniverse() ([]string, error) {
	return m.StringColumn("SELECT ts_code FROM stock_basic ORDER BY ts_code")
}

// TradingDates returns the open trading days in [start, end] per the stored
// calendar. An empty result means the calendar is unpopulated; callers fall
// back to plain day iteration.
func (m *Manager) TradingDates(start, end string) ([]string, error) {
	return m.StringColumn(`
		SELECT cal_date FROM trade_calendar
		WHERE is_open = 1 AND cal_date >= ? AND cal_date <= ?
		ORDER BY cal_date`, start, end)
}

// PresentEntities returns the distinct instruments with a row in table for
// the trade date.
func (m *Manager) PresentEntities(table, tradeDate string) ([]string, error) {
	if err := m.requireTimeSeries(table); err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT DISTINCT ts_code FROM %s WHERE trade_date = ? ORDER BY ts_code", table)
	return m.StringColumn(q, tradeDate)
}

// AnomalousEntities returns the instruments whose row for the trade date
// fails the table's validity predicate.
func (m *Manager) AnomalousEntities(table, tradeDate string) ([]string, error) {
	if err := m.requireTimeSeries(table); err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT ts_code FROM %s WHERE trade_date = ? AND %s ORDER BY ts_code",
		table, anomalyPredicate(table))
	return m.StringColumn(q, tradeDate)
}

// CountRows counts the rows in table for one trade date
func (m *Manager) CountRows(table, tradeDate string) (int64, error) {
	if err := m.requireTimeSeries(table); err != nil {
		return 0, err
	}
	return m.CountWhere(table, "trade_date = ?", tradeDate)
}

// DeletePartition removes all rows of table for one trade date
func (m *Manager) DeletePartition(table, tradeDate string) (int64, error) {
	if err := m.requireTimeSeries(table); err != nil {
		return 0, err
	}
	return m.DeleteWhere(table, "trade_date = ?", tradeDate)
}

// DeleteEntities removes the rows of the given instruments for one trade date
func (m *Manager) DeleteEntities(table, tradeDate string, codes []string) (int64, error) {
	if err := m.requireTimeSeries(table); err != nil {
		return 0, err
	}
	if len(codes) == 0 {
		return 0, nil
	}
	return m.DeleteWhere(table, "trade_date = ? AND ts_code IN ?", tradeDate, codes)
}

// DeleteEntityRange removes the rows of the given instruments across a date
// range. Used by chunked fetches to make re-ingestion idempotent.
func (m *Manager) DeleteEntityRange(table, start, end string, codes []string) (int64, error) {
	if err := m.requireTimeSeries(table); err != nil {
		return 0, err
	}
	if len(codes) == 0 {
		return 0, nil
	}
	return m.DeleteWhere(table, "trade_date >= ? AND trade_date <= ? AND ts_code IN ?", start, end, codes)
}

// DeleteRange removes all rows of table with trade dates in [start, end]
func (m *Manager) DeleteRange(table, start, end string) (int64, error) {
	if err := m.requireTimeSeries(table); err != nil {
		return 0, err
	}
	return m.DeleteWhere(table, "trade_date >= ? AND trade_date <= ?", start, end)
}

// DeleteAll clears a reference table ahead of a replace-style reload
func (m *Manager) DeleteAll(table string) (int64, error) {
	if !KnownTable(table) {
		return 0, &TableError{Table: table, Reason: "not in table registry"}
	}
	if IsTimeSeries(table) {
		return 0, &TableError{Table: table, Reason: "full delete not allowed on time-series tables"}
	}
	return m.DeleteWhere(table, "1 = 1")
}

func (m *Manager) requireTimeSeries(table string) error {
	if !KnownTable(table) {
		return &TableError{Table: table, Reason: "not in table registry"}
	}
	if !IsTimeSeries(table) {
		return &TableError{Table: table, Reason: "not a time-series table"}
	}
	return nil
}
