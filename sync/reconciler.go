package sync

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"marketsync/cache"
	"marketsync/catalog"
	"marketsync/config"
	"marketsync/provider"
)

// Strategy is the repair action chosen for one (table, trade date) partition
type Strategy string

// Repair strategies, ordered from cheapest to most invasive
const (
	// StrategyNone means the partition is already convergent
	StrategyNone Strategy = "none"
	// StrategyGapFill appends only the missing entities, touching nothing
	// else. Never chosen automatically; callers opt in through GapFill.
	StrategyGapFill Strategy = "gap_fill"
	// StrategyPartial refetches only the missing and anomalous entities
	StrategyPartial Strategy = "partial"
	// StrategyFull refetches the whole partition
	StrategyFull Strategy = "full"
)

// Classification is the measured state of one partition: the expected entity
// universe against what is actually stored and valid.
type Classification struct {
	Table         string
	TradeDate     string
	Expected      []string
	Present       []string
	Missing       []string
	Anomalous     []string
	MissingRate   float64
	AnomalousRate float64
}

// Decision is the chosen repair for a classified partition
type Decision struct {
	Strategy Strategy
	Reason   string
	// Targets is the sorted union of missing and anomalous entities; empty
	// for full and none.
	Targets []string
}

// RepairResult reports one executed reconciliation
type RepairResult struct {
	Table     string   `json:"table"`
	TradeDate string   `json:"trade_date"`
	Strategy  Strategy `json:"strategy"`
	Reason    string   `json:"reason"`
	Rows      int64    `json:"rows"`
}

// Reconciler repairs individual (table, trade date) partitions: classify what
// is stored against the expected universe, decide the cheapest sufficient
// strategy, execute it atomically. Running it twice in a row is safe; the
// second pass classifies a convergent partition and does nothing.
type Reconciler struct {
	catalog *catalog.Catalog
	store   Store
	client  Client
	redis   *cache.RedisClient
	cfg     config.SyncConfig

	// Injected for tests
	sleep func(time.Duration)
}

// NewReconciler wires a reconciler; redis may be nil to disable universe
// caching.
func NewReconciler(cat *catalog.Catalog, store Store, client Client, redis *cache.RedisClient, cfg config.SyncConfig) *Reconciler {
	return &Reconciler{
		catalog: cat,
		store:   store,
		client:  client,
		redis:   redis,
		cfg:     cfg,
		sleep:   time.Sleep,
	}
}

// Classify measures one partition. The expected universe comes from the
// instrument listing windows and may be served from cache; present and
// anomalous sets are always read fresh from the store.
func (r *Reconciler) Classify(ctx context.Context, table, tradeDate string) (*Classification, error) {
	expected, err := r.expectedUniverse(ctx, tradeDate)
	if err != nil {
		return nil, fmt.Errorf("expected universe for %s: %w", tradeDate, err)
	}

	present, err := r.store.PresentEntities(table, tradeDate)
	if err != nil {
		return nil, fmt.Errorf("present entities of %s/%s: %w", table, tradeDate, err)
	}
	anomalous, err := r.store.AnomalousEntities(table, tradeDate)
	if err != nil {
		return nil, fmt.Errorf("anomalous entities of %s/%s: %w", table, tradeDate, err)
	}

	presentSet := make(map[string]bool, len(present))
	for _, code := range present {
		presentSet[code] = true
	}
	var missing []string
	for _, code := range expected {
		if !presentSet[code] {
			missing = append(missing, code)
		}
	}

	c := &Classification{
		Table:     table,
		TradeDate: tradeDate,
		Expected:  expected,
		Present:   present,
		Missing:   missing,
		Anomalous: anomalous,
	}
	if len(expected) > 0 {
		c.MissingRate = float64(len(missing)) / float64(len(expected))
		c.AnomalousRate = float64(len(anomalous)) / float64(len(expected))
	}
	return c, nil
}

// Decide picks the cheapest strategy that repairs the classified partition.
// It is a pure function of the classification and thresholds.
func Decide(c *Classification, missingThreshold, anomalousThreshold float64, forceOverride bool) Decision {
	if forceOverride {
		return Decision{Strategy: StrategyFull, Reason: "forced override"}
	}
	if len(c.Expected) == 0 {
		return Decision{Strategy: StrategyNone, Reason: "no entities expected on this date"}
	}
	if len(c.Missing) == 0 && len(c.Anomalous) == 0 {
		return Decision{Strategy: StrategyNone, Reason: "partition is complete and valid"}
	}
	if c.MissingRate > missingThreshold || c.AnomalousRate > anomalousThreshold {
		return Decision{
			Strategy: StrategyFull,
			Reason: fmt.Sprintf("missing rate %.2f / anomalous rate %.2f exceed thresholds",
				c.MissingRate, c.AnomalousRate),
		}
	}
	return Decision{
		Strategy: StrategyPartial,
		Reason:   fmt.Sprintf("%d missing, %d anomalous", len(c.Missing), len(c.Anomalous)),
		Targets:  sortedUnion(c.Missing, c.Anomalous),
	}
}

// Reconcile classifies, decides and executes the repair of one partition
func (r *Reconciler) Reconcile(ctx context.Context, table, tradeDate string, forceOverride bool) (*RepairResult, error) {
	c, err := r.Classify(ctx, table, tradeDate)
	if err != nil {
		return nil, err
	}

	d := Decide(c, r.cfg.MissingRateThreshold, r.cfg.AnomalousRateThreshold, forceOverride)
	result := &RepairResult{Table: table, TradeDate: tradeDate, Strategy: d.Strategy, Reason: d.Reason}

	log.Printf("Reconcile %s/%s: %s (%s)", table, tradeDate, d.Strategy, d.Reason)

	switch d.Strategy {
	case StrategyNone:
		return result, nil
	case StrategyFull:
		result.Rows, err = r.repairFull(ctx, table, tradeDate)
	case StrategyPartial:
		result.Rows, err = r.repairPartial(ctx, table, tradeDate, d.Targets)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GapFill appends rows for the partition's missing entities without touching
// anything already stored. It is an explicit caller opt-in, never chosen by
// Decide: unlike a partial repair, an empty fetch is a successful no-op,
// since the gaps may be genuine non-trading entities.
func (r *Reconciler) GapFill(ctx context.Context, table, tradeDate string) (*RepairResult, error) {
	c, err := r.Classify(ctx, table, tradeDate)
	if err != nil {
		return nil, err
	}
	if len(c.Missing) == 0 {
		return &RepairResult{
			Table:     table,
			TradeDate: tradeDate,
			Strategy:  StrategyNone,
			Reason:    "no entities missing",
		}, nil
	}

	result := &RepairResult{
		Table:     table,
		TradeDate: tradeDate,
		Strategy:  StrategyGapFill,
		Reason:    fmt.Sprintf("%d entities missing", len(c.Missing)),
	}

	log.Printf("Gap-fill %s/%s: %s", table, tradeDate, result.Reason)

	result.Rows, err = r.repairGapFill(ctx, table, tradeDate, sortedUnion(c.Missing, nil))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// repairFull refetches the whole partition and swaps it in atomically. The
// old rows are only discarded once the provider has returned a non-empty
// replacement, so a failed fetch never leaves the partition empty.
func (r *Reconciler) repairFull(ctx context.Context, table, tradeDate string) (int64, error) {
	ds, ep, err := r.endpointForTable(table)
	if err != nil {
		return 0, err
	}

	params := make(map[string]string, len(ds.Params)+1)
	for k, v := range ds.Params {
		params[k] = v
	}
	params[ep.DateParam] = tradeDate

	rs, err := r.call(ctx, ds.Endpoint, params)
	if err != nil {
		return 0, err
	}
	if rs.Empty() {
		return 0, fmt.Errorf("provider returned no rows for %s/%s, keeping existing partition", table, tradeDate)
	}

	var n int64
	err = r.store.Transaction(func(tx Store) error {
		if _, err := tx.DeletePartition(table, tradeDate); err != nil {
			return err
		}
		n, err = tx.InsertRows(table, rs)
		return err
	})
	return n, err
}

// repairPartial refetches only the target entities and replaces their rows.
// All fetches complete before anything is deleted; an empty combined result
// aborts without touching the partition.
func (r *Reconciler) repairPartial(ctx context.Context, table, tradeDate string, targets []string) (int64, error) {
	ds, ep, err := r.endpointForTable(table)
	if err != nil {
		return 0, err
	}
	if ep.CodeParam == "" {
		return r.repairFull(ctx, table, tradeDate)
	}

	merged, err := r.fetchEntities(ctx, ds, ep, tradeDate, targets)
	if err != nil {
		return 0, err
	}
	if merged == nil || merged.Empty() {
		return 0, fmt.Errorf("provider returned no rows for %d entities of %s/%s, keeping existing rows", len(targets), table, tradeDate)
	}

	var n int64
	err = r.store.Transaction(func(tx Store) error {
		if _, err := tx.DeleteEntities(table, tradeDate, targets); err != nil {
			return err
		}
		n, err = tx.InsertRows(table, merged)
		return err
	})
	return n, err
}

// repairGapFill fetches only the missing entities and appends them with
// insert-ignore semantics. Existing rows are never deleted; zero fetched rows
// is a successful no-op since the gaps may be genuine non-trading entities.
func (r *Reconciler) repairGapFill(ctx context.Context, table, tradeDate string, targets []string) (int64, error) {
	ds, ep, err := r.endpointForTable(table)
	if err != nil {
		return 0, err
	}
	if ep.CodeParam == "" {
		return r.repairFull(ctx, table, tradeDate)
	}

	merged, err := r.fetchEntities(ctx, ds, ep, tradeDate, targets)
	if err != nil {
		return 0, err
	}
	if merged == nil || merged.Empty() {
		return 0, nil
	}

	return r.store.InsertIgnore(table, merged)
}

// fetchEntities pulls the target entities for one trade date in chunks and
// merges the results. Per-chunk permission errors abort; other chunk errors
// are logged and skipped so one flaky chunk does not sink the repair.
func (r *Reconciler) fetchEntities(ctx context.Context, ds catalog.Dataset, ep provider.Endpoint, tradeDate string, targets []string) (*provider.ResultSet, error) {
	chunkSize := ds.ChunkSize
	if chunkSize <= 0 {
		chunkSize = r.cfg.ChunkSize
	}

	var merged *provider.ResultSet
	for i := 0; i < len(targets); i += chunkSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		chunk := targets[i:min(i+chunkSize, len(targets))]
		params := make(map[string]string, len(ds.Params)+2)
		for k, v := range ds.Params {
			params[k] = v
		}
		params[ep.CodeParam] = strings.Join(chunk, ",")
		params[ep.DateParam] = tradeDate

		rs, err := r.call(ctx, ds.Endpoint, params)
		if err != nil {
			if provider.IsPermissionDenied(err) {
				return nil, err
			}
			log.Printf("Fetch %s chunk of %d entities failed: %v", ds.Endpoint, len(chunk), err)
			continue
		}
		if rs.Empty() {
			continue
		}

		merged = merged.Merge(rs)

		if i+chunkSize < len(targets) {
			r.sleep(r.cfg.CallInterval)
		}
	}
	return merged, nil
}

// call runs one provider call with the configured retry schedule. Permission
// failures are never retried.
func (r *Reconciler) call(ctx context.Context, endpoint string, params map[string]string) (*provider.ResultSet, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		rs, err := r.client.Call(ctx, endpoint, params)
		if err == nil {
			return rs, nil
		}
		if provider.IsPermissionDenied(err) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		if attempt >= len(r.cfg.RetryDelays) {
			return nil, lastErr
		}
		log.Printf("Call %s failed (attempt %d): %v, retrying", endpoint, attempt+1, err)
		r.sleep(r.cfg.RetryDelays[attempt])
	}
}

// expectedUniverse resolves the entities whose listing window covers the
// trade date, caching the answer in Redis when available.
func (r *Reconciler) expectedUniverse(ctx context.Context, tradeDate string) ([]string, error) {
	key := cache.UniverseKey(tradeDate)
	if r.redis != nil {
		var cached []string
		if err := r.redis.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	expected, err := r.store.ActiveEntities(tradeDate)
	if err != nil {
		return nil, err
	}

	if r.redis != nil {
		if err := r.redis.Set(ctx, key, expected, r.cfg.UniverseCacheTTL); err != nil {
			log.Printf("Failed to cache universe for %s: %v", tradeDate, err)
		}
	}
	return expected, nil
}

func (r *Reconciler) endpointForTable(table string) (catalog.Dataset, provider.Endpoint, error) {
	ds, ok := r.catalog.DatasetForTable(table)
	if !ok {
		return catalog.Dataset{}, provider.Endpoint{}, fmt.Errorf("no dataset feeds table %s", table)
	}
	ep, ok := provider.LookupEndpoint(ds.Endpoint)
	if !ok {
		return catalog.Dataset{}, provider.Endpoint{}, fmt.Errorf("unknown endpoint %s for table %s", ds.Endpoint, table)
	}
	if ep.DateParam == "" {
		return catalog.Dataset{}, provider.Endpoint{}, fmt.Errorf("endpoint %s cannot fetch single dates", ds.Endpoint)
	}
	return ds, ep, nil
}

func sortedUnion(a, b []string) []string {
	set := make(map[string]bool, len(a)+len(b))
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		set[s] = true
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
