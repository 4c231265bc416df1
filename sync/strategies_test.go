package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketsync/catalog"
	"marketsync/database"
	"marketsync/provider"
)

func TestWriteReplaceReferenceFallsBackToDeleteAppend(t *testing.T) {
	store := newFakeStore()
	store.failReplaceAll = 1

	cat := catalog.New([]catalog.Batch{{Name: "only", Datasets: []catalog.Dataset{refDataset("a", true)}}})
	orch := newTestOrchestrator(cat, store, &fakeClient{})

	ds := refDataset("a", true)
	n, err := orch.writeReplace(ds, refSet("000001.SZ", "000002.SZ"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Len(t, store.rows["stock_basic"], 2)
}

func TestWriteReplaceFallbackFailureMarksDatasetFailed(t *testing.T) {
	store := newFakeStore()
	store.failReplaceAll = 1
	store.failInsertRows = 1 // the fallback insert fails too

	cat := catalog.New([]catalog.Batch{{Name: "only", Datasets: []catalog.Dataset{refDataset("a", true)}}})
	client := &fakeClient{handler: func(endpoint string, params map[string]string) (*provider.ResultSet, error) {
		return refSet("000001.SZ"), nil
	}}

	orch := newTestOrchestrator(cat, store, client)
	summary, err := orch.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Batches["only"].Failed)
	outcome := store.outcomes["only|a"]
	require.NotNil(t, outcome)
	assert.Equal(t, database.StatusFailed, outcome.Status)
	assert.NotEmpty(t, outcome.ErrorMsg)
}

func TestWriteReplaceTimeSeriesRetriesOnce(t *testing.T) {
	ds := catalog.Dataset{
		Key:       "index_daily",
		Endpoint:  "index_daily",
		Table:     "index_daily",
		TimeRange: catalog.RangeLast1Year,
		Strategy:  catalog.StrategySingleCall,
		Enabled:   true,
	}
	cat := catalog.New([]catalog.Batch{{Name: "only", Datasets: []catalog.Dataset{ds}}})

	fixed := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	_, end := ds.TimeRange.Window(fixed)

	store := newFakeStore()
	store.failInsertRows = 1

	orch := newTestOrchestrator(cat, store, &fakeClient{})
	orch.now = func() time.Time { return fixed }

	n, err := orch.writeReplace(ds, barSet(end, 10.0, "000001.SH"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	// First transaction rolled back, the single retry landed the row
	assert.Equal(t, 2, store.inserts)
	assert.Equal(t, []string{"000001.SH"}, store.presentCodes("index_daily", end))
}

func TestWriteReplaceTimeSeriesGivesUpAfterOneRetry(t *testing.T) {
	ds := catalog.Dataset{
		Key:       "index_daily",
		Endpoint:  "index_daily",
		Table:     "index_daily",
		TimeRange: catalog.RangeLast1Year,
		Strategy:  catalog.StrategySingleCall,
		Enabled:   true,
	}
	cat := catalog.New([]catalog.Batch{{Name: "only", Datasets: []catalog.Dataset{ds}}})

	fixed := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	_, end := ds.TimeRange.Window(fixed)

	store := newFakeStore()
	store.failInsertRows = 2

	orch := newTestOrchestrator(cat, store, &fakeClient{})
	orch.now = func() time.Time { return fixed }

	_, err := orch.writeReplace(ds, barSet(end, 10.0, "000001.SH"))
	require.Error(t, err)
	assert.Equal(t, 2, store.inserts)
	assert.Empty(t, store.presentCodes("index_daily", end))
}
