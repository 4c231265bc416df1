// Package catalog is the static registry of ingestible datasets: which
// provider endpoint feeds which table, with what parameters, time window and
// fetch strategy, grouped into ordered batches.
//
// A Catalog is plain configuration. It is built once at process start and
// passed to the orchestrator; nothing mutates it afterwards.
package catalog

import (
	"fmt"
	"time"
)

// TimeRange names a relative fetch window ending today
type TimeRange string

// Relative time windows for historical fetches
const (
	RangeNone       TimeRange = ""
	RangeLast1Year  TimeRange = "last_1_year"
	RangeLast2Years TimeRange = "last_2_years"
	RangeLast5Years TimeRange = "last_5_years"
)

// Window resolves the range to (start, end) dates in YYYYMMDD form
func (r TimeRange) Window(now time.Time) (string, string) {
	days := 730
	switch r {
	case RangeLast1Year:
		days = 365
	case RangeLast2Years:
		days = 730
	case RangeLast5Years:
		days = 1825
	}
	start := now.AddDate(0, 0, -days)
	return start.Format("20060102"), now.Format("20060102")
}

// FetchStrategy selects how a dataset is pulled from the provider
type FetchStrategy string

// Fetch strategies
const (
	// StrategySingleCall fetches the whole dataset in one provider call
	StrategySingleCall FetchStrategy = "single_call"
	// StrategyByDate iterates trade dates, fetching all entities per date
	StrategyByDate FetchStrategy = "by_date"
	// StrategyByChunk iterates fixed-size entity chunks across the full range
	StrategyByChunk FetchStrategy = "by_chunk"
	// StrategyHybrid tries by-chunk first, falls back to by-date on zero rows
	StrategyHybrid FetchStrategy = "hybrid"
)

// Dataset describes one ingestible dataset
type Dataset struct {
	Key         string // ledger key, unique within the catalog
	Endpoint    string // provider endpoint name
	Table       string // target table, must exist in the schema registry
	Params      map[string]string
	TimeRange   TimeRange
	Strategy    FetchStrategy
	ChunkSize   int // entities per call for chunked strategies
	Required    bool
	Enabled     bool
	SkipReason  string // shown when Enabled is false
	Description string
}

// Batch is an ordered group of datasets ingested together
type Batch struct {
	Name     string
	Critical bool // failure aborts all subsequent batches
	Datasets []Dataset
}

// Catalog is the full ingestion plan: batches in execution order
type Catalog struct {
	batches []Batch
}

// New builds a catalog from explicit batches
func New(batches []Batch) *Catalog {
	return &Catalog{batches: batches}
}

// Batches returns all batches in declared order
func (c *Catalog) Batches() []Batch {
	out := make([]Batch, len(c.batches))
	copy(out, c.batches)
	return out
}

// Select returns the batches whose names appear in the selection, preserving
// declared order. An empty selection means every batch.
func (c *Catalog) Select(names []string) []Batch {
	if len(names) == 0 {
		return c.Batches()
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []Batch
	for _, b := range c.batches {
		if want[b.Name] {
			out = append(out, b)
		}
	}
	return out
}

// DatasetForTable finds the dataset that feeds table. Reconciliation uses it
// to map a partition back to its provider endpoint.
func (c *Catalog) DatasetForTable(table string) (Dataset, bool) {
	for _, b := range c.batches {
		for _, ds := range b.Datasets {
			if ds.Table == table {
				return ds, true
			}
		}
	}
	return Dataset{}, false
}

// Validate cross-checks every dataset against the schema table registry and
// the provider endpoint registry, so unknown names fail at startup instead of
// mid-run.
func (c *Catalog) Validate(knownTable func(string) bool, checkEndpoint func(string) error) error {
	seen := make(map[string]bool)
	for _, b := range c.batches {
		if len(b.Datasets) == 0 {
			return fmt.Errorf("batch %q has no datasets", b.Name)
		}
		for _, ds := range b.Datasets {
			if seen[ds.Key] {
				return fmt.Errorf("duplicate dataset key %q", ds.Key)
			}
			seen[ds.Key] = true

			if err := checkEndpoint(ds.Endpoint); err != nil {
				return fmt.Errorf("dataset %q: %w", ds.Key, err)
			}
			if !knownTable(ds.Table) {
				return fmt.Errorf("dataset %q: target table %q not in schema registry", ds.Key, ds.Table)
			}
			if (ds.Strategy == StrategyByChunk || ds.Strategy == StrategyHybrid) && ds.ChunkSize <= 0 {
				return fmt.Errorf("dataset %q: strategy %s requires a positive chunk size", ds.Key, ds.Strategy)
			}
		}
	}
	return nil
}
