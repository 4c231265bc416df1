// Package sync implements the batch ingestion orchestrator and the
// reconciliation engine: the two paths that move provider data into the
// store and keep it convergent per (dataset, trade date) partition.
package sync

import (
	"marketsync/database"
	"marketsync/provider"
)

// Store is the slice of the schema manager the engine depends on. The
// concrete implementation is database.Manager; tests substitute an in-memory
// fake.
type Store interface {
	EnsureSchema() error

	// Reference and calendar lookups
	ActiveEntities(tradeDate string) ([]string, error)
	EntityUniverse() ([]string, error)
	TradingDates(start, end string) ([]string, error)

	// Partition inspection
	PresentEntities(table, tradeDate string) ([]string, error)
	AnomalousEntities(table, tradeDate string) ([]string, error)
	CountRows(table, tradeDate string) (int64, error)

	// Writes
	InsertRows(table string, rs *provider.ResultSet) (int64, error)
	InsertIgnore(table string, rs *provider.ResultSet) (int64, error)
	ReplaceAll(table string, rs *provider.ResultSet) (int64, error)
	DeletePartition(table, tradeDate string) (int64, error)
	DeleteEntities(table, tradeDate string, codes []string) (int64, error)
	DeleteEntityRange(table, start, end string, codes []string) (int64, error)
	DeleteRange(table, start, end string) (int64, error)
	DeleteAll(table string) (int64, error)

	// Ledger
	RecordOutcome(o *database.IngestOutcome) error

	// Transaction runs fn atomically; an error from fn rolls everything back
	Transaction(fn func(tx Store) error) error
}

// managerStore adapts *database.Manager to the Store interface. Everything
// except Transaction is a direct delegation; Transaction rewraps the
// transactional manager so fn keeps talking to the Store interface.
type managerStore struct {
	*database.Manager
}

// NewStore wraps a schema manager as the engine's Store
func NewStore(m *database.Manager) Store {
	return &managerStore{Manager: m}
}

func (s *managerStore) Transaction(fn func(tx Store) error) error {
	return s.Manager.Transaction(func(tx *database.Manager) error {
		return fn(&managerStore{Manager: tx})
	})
}
