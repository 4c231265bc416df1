package database

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketsync/provider"
)

// timestampLayout is the format of the update_time stamp on every ingested row
const timestampLayout = "2006-01-02 15:04:05"

// Manager exposes the schema lifecycle and the generic write primitives.
// Table names are validated against the registry on every call, so a bad
// catalog entry cannot write into an arbitrary table.
//
// All time-series writes go through DeleteWhere + InsertRows (or
// InsertIgnore); ReplaceAll refuses time-series tables outright.
type Manager struct {
	db  *gorm.DB
	now func() time.Time
}

// NewManager creates a Manager on top of an established connection
func NewManager(d *Database) *Manager {
	return &Manager{db: d.DB(), now: time.Now}
}

// EnsureSchema creates missing tables and indexes. It never drops or alters
// existing data; re-running it is a no-op on an up-to-date schema.
func (m *Manager) EnsureSchema() error {
	log.Println("Ensuring database schema...")

	for _, t := range Tables() {
		if err := m.db.AutoMigrate(t.Model); err != nil {
			return wrapDBError("migrate", t.Name, err)
		}
	}

	// Composite and partial indexes AutoMigrate does not cover
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_daily_basic_code_date ON daily_basic (ts_code, trade_date)",
		"CREATE INDEX IF NOT EXISTS idx_index_daily_code_date ON index_daily (ts_code, trade_date)",
		"CREATE INDEX IF NOT EXISTS idx_stock_basic_list_window ON stock_basic (list_date, delist_date)",
	}
	for _, stmt := range indexes {
		if err := m.db.Exec(stmt).Error; err != nil {
			return wrapDBError("create index", "", err)
		}
	}

	return nil
}

// StringColumn runs a single-column query and returns the values as strings
func (m *Manager) StringColumn(query string, args ...interface{}) ([]string, error) {
	var out []string
	if err := m.db.Raw(query, args...).Scan(&out).Error; err != nil {
		return nil, wrapDBError("query", "", err)
	}
	return out, nil
}

// CountWhere counts rows in table matching cond
func (m *Manager) CountWhere(table, cond string, args ...interface{}) (int64, error) {
	if !KnownTable(table) {
		return 0, &TableError{Table: table, Reason: "not in table registry"}
	}
	var n int64
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", table, cond)
	if err := m.db.Raw(q, args...).Scan(&n).Error; err != nil {
		return 0, wrapDBError("count", table, err)
	}
	return n, nil
}

// InsertRows appends the result set into table, stamping each row with the
// ingestion timestamp. Returns the number of rows written.
func (m *Manager) InsertRows(table string, rs *provider.ResultSet) (int64, error) {
	return m.insert(table, rs, false)
}

// InsertIgnore appends rows but skips any that collide with an existing
// primary key. Used by gap-fill repair, which must never overwrite.
func (m *Manager) InsertIgnore(table string, rs *provider.ResultSet) (int64, error) {
	return m.insert(table, rs, true)
}

func (m *Manager) insert(table string, rs *provider.ResultSet, ignoreConflicts bool) (int64, error) {
	if !KnownTable(table) {
		return 0, &TableError{Table: table, Reason: "not in table registry"}
	}
	if rs.Empty() {
		return 0, nil
	}

	rows := rs.Maps()
	stamp := m.now().Format(timestampLayout)
	for _, row := range rows {
		row["update_time"] = stamp
	}

	tx := m.db.Table(table)
	if ignoreConflicts {
		tx = tx.Clauses(clause.OnConflict{DoNothing: true})
	}
	res := tx.Create(rows)
	if res.Error != nil {
		return 0, wrapDBError("insert", table, res.Error)
	}
	return res.RowsAffected, nil
}

// ReplaceAll discards every row of a reference table and inserts the result
// set in one transaction. Time-series tables are refused: replacing them
// would destroy unrelated trade dates.
func (m *Manager) ReplaceAll(table string, rs *provider.ResultSet) (int64, error) {
	if !KnownTable(table) {
		return 0, &TableError{Table: table, Reason: "not in table registry"}
	}
	if IsTimeSeries(table) {
		return 0, &TableError{Table: table, Reason: "bulk replace not allowed on time-series tables"}
	}

	var written int64
	err := m.Transaction(func(tx *Manager) error {
		if _, err := tx.DeleteWhere(table, "1 = 1"); err != nil {
			return err
		}
		n, err := tx.InsertRows(table, rs)
		if err != nil {
			return err
		}
		written = n
		return nil
	})
	return written, err
}

// DeleteWhere removes rows matching cond and returns the count removed
func (m *Manager) DeleteWhere(table, cond string, args ...interface{}) (int64, error) {
	if !KnownTable(table) {
		return 0, &TableError{Table: table, Reason: "not in table registry"}
	}
	res := m.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s", table, cond), args...)
	if res.Error != nil {
		return 0, wrapDBError("delete", table, res.Error)
	}
	return res.RowsAffected, nil
}

// Transaction runs fn inside one database transaction. Any error from fn
// rolls the whole transaction back.
func (m *Manager) Transaction(fn func(tx *Manager) error) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Manager{db: tx, now: m.now})
	})
}

// RecordOutcome upserts one ledger row keyed by (batch, dataset)
func (m *Manager) RecordOutcome(o *IngestOutcome) error {
	err := m.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "batch_name"}, {Name: "dataset"}},
		UpdateAll: true,
	}).Create(o).Error
	return wrapDBError("record outcome", "ingest_outcomes", err)
}

// Outcomes returns the full outcome ledger ordered by batch and dataset
func (m *Manager) Outcomes() ([]IngestOutcome, error) {
	var out []IngestOutcome
	if err := m.db.Order("batch_name, dataset").Find(&out).Error; err != nil {
		return nil, wrapDBError("list outcomes", "ingest_outcomes", err)
	}
	return out, nil
}
