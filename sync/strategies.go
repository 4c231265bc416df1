package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"marketsync/catalog"
	"marketsync/database"
	"marketsync/provider"
)

// fetchDataset resolves and runs the dataset's fetch strategy, returning the
// total row count ingested.
func (o *Orchestrator) fetchDataset(ctx context.Context, ds catalog.Dataset) (int64, error) {
	switch ds.Strategy {
	case catalog.StrategyByDate:
		return o.fetchByDate(ctx, ds)
	case catalog.StrategyByChunk:
		return o.fetchByChunk(ctx, ds)
	case catalog.StrategyHybrid:
		return o.fetchHybrid(ctx, ds)
	default:
		return o.fetchSingleCall(ctx, ds)
	}
}

// fetchSingleCall pulls the whole dataset in one provider call and writes it
// with replace semantics.
func (o *Orchestrator) fetchSingleCall(ctx context.Context, ds catalog.Dataset) (int64, error) {
	params := o.datasetParams(ds, true)

	rs, err := o.callWithRetry(ctx, ds.Endpoint, params)
	if err != nil {
		return 0, err
	}
	if rs.Empty() {
		return 0, nil
	}

	return o.writeReplace(ds, rs)
}

// writeReplace overwrites the dataset's stored rows with the fetched result.
// Reference tables are replaced wholesale; time-series tables have only the
// fetched window cleared, never the whole table. One delete-then-append
// retry is attempted before the write is declared failed.
func (o *Orchestrator) writeReplace(ds catalog.Dataset, rs *provider.ResultSet) (int64, error) {
	if database.IsTimeSeries(ds.Table) {
		write := func() (int64, error) {
			var n int64
			err := o.store.Transaction(func(tx Store) error {
				if ds.TimeRange != catalog.RangeNone {
					start, end := ds.TimeRange.Window(o.now())
					if _, err := tx.DeleteRange(ds.Table, start, end); err != nil {
						return err
					}
				}
				var err error
				n, err = tx.InsertRows(ds.Table, rs)
				return err
			})
			return n, err
		}
		n, err := write()
		if err != nil {
			log.Printf("Write to %s failed (%v), retrying delete+append once", ds.Table, err)
			n, err = write()
		}
		return n, err
	}

	n, err := o.store.ReplaceAll(ds.Table, rs)
	if err != nil {
		log.Printf("Replace of %s failed (%v), falling back to delete+append", ds.Table, err)
		if _, derr := o.store.DeleteAll(ds.Table); derr != nil {
			return 0, derr
		}
		return o.store.InsertRows(ds.Table, rs)
	}
	return n, err
}

// fetchByDate iterates each date in the window, fetching all entities on that
// date per call (single-partition-wide-scope). Individual call failures are
// logged and skipped; the loop keeps going.
func (o *Orchestrator) fetchByDate(ctx context.Context, ds catalog.Dataset) (int64, error) {
	ep, _ := provider.LookupEndpoint(ds.Endpoint)
	if ep.DateParam == "" {
		return 0, fmt.Errorf("endpoint %s does not support by-date fetches", ds.Endpoint)
	}

	start, end := ds.TimeRange.Window(o.now())
	dates, err := o.store.TradingDates(start, end)
	if err != nil || len(dates) == 0 {
		// Calendar not loaded yet; walk every calendar day and let the
		// provider return empty sets for non-trading days
		dates = allDates(start, end)
	}

	var total int64
	for i, date := range dates {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		params := o.datasetParams(ds, false)
		params[ep.DateParam] = date

		rs, err := o.callWithRetry(ctx, ds.Endpoint, params)
		if err != nil {
			log.Printf("Fetch %s for %s failed: %v", ds.Key, date, err)
			o.sleep(o.cfg.CallInterval)
			continue
		}
		if rs.Empty() {
			o.sleep(o.cfg.CallInterval)
			continue
		}

		err = o.store.Transaction(func(tx Store) error {
			if _, err := tx.DeletePartition(ds.Table, date); err != nil {
				return err
			}
			n, err := tx.InsertRows(ds.Table, rs)
			if err != nil {
				return err
			}
			total += n
			return nil
		})
		if err != nil {
			log.Printf("Write %s for %s failed: %v", ds.Key, date, err)
		}

		if i%20 == 0 {
			o.reporter.Progress(-1, fmt.Sprintf("%s: %s (%d rows so far)", ds.Key, date, total))
		}
		o.sleep(o.cfg.CallInterval)
	}

	return total, nil
}

// fetchByChunk partitions the stored entity universe into fixed-size chunks
// and fetches each chunk across the whole window
// (wide-partition-narrow-scope).
func (o *Orchestrator) fetchByChunk(ctx context.Context, ds catalog.Dataset) (int64, error) {
	ep, _ := provider.LookupEndpoint(ds.Endpoint)
	if ep.CodeParam == "" || ep.StartParam == "" {
		return 0, fmt.Errorf("endpoint %s does not support chunked fetches", ds.Endpoint)
	}

	universe, err := o.store.EntityUniverse()
	if err != nil {
		return 0, err
	}
	if len(universe) == 0 {
		// Nothing to chunk over; hybrid callers fall back to by-date
		return 0, nil
	}

	start, end := ds.TimeRange.Window(o.now())
	chunkSize := ds.ChunkSize
	if chunkSize <= 0 {
		chunkSize = o.cfg.ChunkSize
	}

	var total int64
	chunks := (len(universe) + chunkSize - 1) / chunkSize
	for i := 0; i < len(universe); i += chunkSize {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		chunk := universe[i:min(i+chunkSize, len(universe))]
		params := o.datasetParams(ds, false)
		params[ep.CodeParam] = strings.Join(chunk, ",")
		params[ep.StartParam] = start
		params[ep.EndParam] = end

		rs, err := o.callWithRetry(ctx, ds.Endpoint, params)
		if err != nil {
			log.Printf("Fetch %s chunk %d/%d failed: %v", ds.Key, i/chunkSize+1, chunks, err)
			o.sleep(o.cfg.CallInterval)
			continue
		}
		if rs.Empty() {
			o.sleep(o.cfg.CallInterval)
			continue
		}

		err = o.store.Transaction(func(tx Store) error {
			if _, err := tx.DeleteEntityRange(ds.Table, start, end, chunk); err != nil {
				return err
			}
			n, err := tx.InsertRows(ds.Table, rs)
			if err != nil {
				return err
			}
			total += n
			return nil
		})
		if err != nil {
			log.Printf("Write %s chunk %d/%d failed: %v", ds.Key, i/chunkSize+1, chunks, err)
		}

		o.reporter.Progress(-1, fmt.Sprintf("%s: chunk %d/%d (%d rows so far)", ds.Key, i/chunkSize+1, chunks, total))
		o.sleep(o.cfg.CallInterval)
	}

	return total, nil
}

// fetchHybrid tries the chunked strategy first and falls back to by-date
// iteration when it yields nothing.
func (o *Orchestrator) fetchHybrid(ctx context.Context, ds catalog.Dataset) (int64, error) {
	total, err := o.fetchByChunk(ctx, ds)
	if err == nil && total > 0 {
		return total, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return total, err
		}
		log.Printf("Chunked fetch for %s failed (%v), falling back to by-date", ds.Key, err)
	} else {
		log.Printf("Chunked fetch for %s yielded no rows, falling back to by-date", ds.Key)
	}
	return o.fetchByDate(ctx, ds)
}

// callWithRetry executes one provider call, retrying transient failures with
// the configured backoff schedule. Permission failures are returned
// immediately and never retried.
func (o *Orchestrator) callWithRetry(ctx context.Context, endpoint string, params map[string]string) (*provider.ResultSet, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		rs, err := o.client.Call(ctx, endpoint, params)
		if err == nil {
			return rs, nil
		}
		if provider.IsPermissionDenied(err) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		if attempt >= len(o.cfg.RetryDelays) {
			return nil, lastErr
		}
		log.Printf("Call %s failed (attempt %d): %v, retrying", endpoint, attempt+1, err)
		o.sleep(o.cfg.RetryDelays[attempt])
	}
}

// datasetParams clones the dataset's parameter template, optionally resolving
// its relative time window into start/end parameters.
func (o *Orchestrator) datasetParams(ds catalog.Dataset, withWindow bool) map[string]string {
	params := make(map[string]string, len(ds.Params)+2)
	for k, v := range ds.Params {
		params[k] = v
	}
	if withWindow && ds.TimeRange != catalog.RangeNone {
		ep, _ := provider.LookupEndpoint(ds.Endpoint)
		startParam, endParam := ep.StartParam, ep.EndParam
		if startParam == "" {
			startParam, endParam = "start_date", "end_date"
		}
		start, end := ds.TimeRange.Window(o.now())
		params[startParam] = start
		params[endParam] = end
	}
	return params
}

// allDates expands [start, end] in YYYYMMDD form into one entry per day
func allDates(start, end string) []string {
	startT, err1 := time.Parse("20060102", start)
	endT, err2 := time.Parse("20060102", end)
	if err1 != nil || err2 != nil || endT.Before(startT) {
		return nil
	}
	var out []string
	for d := startT; !d.After(endT); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format("20060102"))
	}
	return out
}
