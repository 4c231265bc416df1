package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"marketsync/catalog"
	"marketsync/config"
	"marketsync/database"
	"marketsync/provider"
)

// Summary is the overall outcome of one orchestrated run
type Summary struct {
	RunID   string                  `json:"run_id"`
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	Batches map[string]*BatchResult `json:"batches"`
}

// Orchestrator drives the initial batched load: authenticate, ensure schema,
// then execute the catalog's batches in declared order, one dataset at a
// time. It is a single sequential worker; the only throttle is the
// configured inter-call delay, a deliberate guard against provider rate
// limits.
type Orchestrator struct {
	catalog  *catalog.Catalog
	store    Store
	client   Client
	reporter Reporter
	cfg      config.SyncConfig

	// Injected for tests
	sleep func(time.Duration)
	now   func() time.Time
}

// Client is the provider capability the engine needs
type Client interface {
	Authenticate(ctx context.Context) error
	Call(ctx context.Context, endpoint string, params map[string]string) (*provider.ResultSet, error)
}

// NewOrchestrator wires an orchestrator; reporter may be a LogReporter for
// CLI use or an EventReporter for background consumption.
func NewOrchestrator(cat *catalog.Catalog, store Store, client Client, reporter Reporter, cfg config.SyncConfig) *Orchestrator {
	if reporter == nil {
		reporter = LogReporter{}
	}
	return &Orchestrator{
		catalog:  cat,
		store:    store,
		client:   client,
		reporter: reporter,
		cfg:      cfg,
		sleep:    time.Sleep,
		now:      time.Now,
	}
}

// Run executes the selected batches (all of them when names is empty) and
// returns the run summary. The returned error is non-nil only for run-fatal
// conditions: failed authentication, schema failure, or a failed critical
// batch.
func (o *Orchestrator) Run(ctx context.Context, names []string) (*Summary, error) {
	summary := &Summary{
		RunID:   uuid.NewString(),
		Batches: make(map[string]*BatchResult),
	}

	o.reporter.Progress(0, "Authenticating to data provider...")
	if err := o.client.Authenticate(ctx); err != nil {
		summary.Message = fmt.Sprintf("authentication failed: %v", err)
		o.reporter.Finished(false, summary.Message, summary.Batches)
		return summary, fmt.Errorf("authentication failed: %w", err)
	}

	o.reporter.Progress(5, "Ensuring database schema...")
	if err := o.store.EnsureSchema(); err != nil {
		summary.Message = fmt.Sprintf("schema initialization failed: %v", err)
		o.reporter.Finished(false, summary.Message, summary.Batches)
		return summary, fmt.Errorf("schema initialization failed: %w", err)
	}

	batches := o.catalog.Select(names)
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			summary.Message = "run cancelled"
			o.reporter.Finished(false, summary.Message, summary.Batches)
			return summary, err
		}

		base := 10 + (85*i)/max(len(batches), 1)
		o.reporter.Progress(base, fmt.Sprintf("Starting batch %s...", batch.Name))

		result := o.executeBatch(ctx, summary.RunID, batch)
		summary.Batches[batch.Name] = result

		rate := 0.0
		if result.Total > 0 {
			rate = float64(result.Completed) / float64(result.Total)
		}
		success := rate >= o.cfg.BatchSuccessRate
		message := fmt.Sprintf("%d/%d datasets, %d rows", result.Completed, result.Total, result.Rows)
		o.reporter.BatchDone(batch.Name, success, message)

		if !success && batch.Critical {
			summary.Message = fmt.Sprintf("critical batch %s failed: %s", batch.Name, message)
			o.reporter.Finished(false, summary.Message, summary.Batches)
			return summary, fmt.Errorf("critical batch %s failed", batch.Name)
		}
	}

	summary.Success = true
	summary.Message = "initial load completed"
	o.reporter.Progress(100, summary.Message)
	o.reporter.Finished(true, summary.Message, summary.Batches)
	return summary, nil
}

// Start runs the batch load on a background worker. Progress flows through the
// reporter (typically an EventReporter); the final error is delivered on the
// returned channel.
func (o *Orchestrator) Start(ctx context.Context, names []string) <-chan error {
	done := make(chan error, 1)
	go func() {
		_, err := o.Run(ctx, names)
		done <- err
		close(done)
	}()
	return done
}

// executeBatch runs every dataset of one batch, recording each outcome in
// the ledger regardless of success.
func (o *Orchestrator) executeBatch(ctx context.Context, runID string, batch catalog.Batch) *BatchResult {
	result := &BatchResult{
		Total:    len(batch.Datasets),
		Datasets: make(map[string]DatasetResult),
	}

	for _, ds := range batch.Datasets {
		o.reporter.Progress(-1, fmt.Sprintf("Processing %s (%s)...", ds.Key, ds.Description))

		rows, err := o.executeDataset(ctx, runID, batch.Name, ds)
		if err != nil {
			result.Failed++
			result.Datasets[ds.Key] = DatasetResult{Message: err.Error()}
			log.Printf("Dataset %s failed: %v", ds.Key, err)
			continue
		}

		result.Completed++
		result.Rows += rows
		result.Datasets[ds.Key] = DatasetResult{
			Success: true,
			Rows:    rows,
			Message: fmt.Sprintf("ingested %d rows", rows),
		}
	}

	return result
}

// executeDataset runs one dataset end to end: ledger start record, fetch via
// the dataset's strategy, ledger completion record.
func (o *Orchestrator) executeDataset(ctx context.Context, runID, batchName string, ds catalog.Dataset) (int64, error) {
	outcome := &database.IngestOutcome{
		BatchName: batchName,
		Dataset:   ds.Key,
		RunID:     runID,
		Status:    database.StatusRunning,
		StartTime: o.now(),
	}
	if err := o.store.RecordOutcome(outcome); err != nil {
		log.Printf("Failed to record start of %s: %v", ds.Key, err)
	}

	finish := func(status string, rows int64, errMsg string) {
		end := o.now()
		outcome.Status = status
		outcome.EndTime = &end
		outcome.RowCount = rows
		outcome.ErrorMsg = errMsg
		if err := o.store.RecordOutcome(outcome); err != nil {
			log.Printf("Failed to record outcome of %s: %v", ds.Key, err)
		}
	}

	if !ds.Enabled {
		finish(database.StatusFailed, 0, ds.SkipReason)
		return 0, fmt.Errorf("skipped: %s", ds.SkipReason)
	}

	rows, err := o.fetchDataset(ctx, ds)
	if err != nil {
		finish(database.StatusFailed, 0, err.Error())
		return 0, err
	}

	if rows == 0 {
		if ds.Required {
			err := fmt.Errorf("dataset %s returned no rows", ds.Key)
			finish(database.StatusFailed, 0, err.Error())
			return 0, err
		}
		// Optional dataset with no data is a soft warning, not a failure
		log.Printf("Dataset %s returned no rows (optional, continuing)", ds.Key)
	}

	finish(database.StatusCompleted, rows, "")
	return rows, nil
}
