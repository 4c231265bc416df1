package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableRegistry(t *testing.T) {
	tables := Tables()
	require.NotEmpty(t, tables)

	names := make(map[string]bool)
	for _, ti := range tables {
		assert.False(t, names[ti.Name], "duplicate table %s", ti.Name)
		names[ti.Name] = true
		assert.NotNil(t, ti.Model)
		assert.True(t, KnownTable(ti.Name))
		assert.Equal(t, ti.TimeSeries, IsTimeSeries(ti.Name))
	}

	assert.False(t, KnownTable("no_such_table"))
	assert.False(t, IsTimeSeries("no_such_table"))
	assert.False(t, IsTimeSeries("stock_basic"))
	assert.True(t, IsTimeSeries("daily_basic"))
}

func TestAnomalyPredicatePerTable(t *testing.T) {
	assert.Contains(t, anomalyPredicate("adj_factor"), "adj_factor")
	assert.Contains(t, anomalyPredicate("daily_basic"), "close")
	assert.Contains(t, anomalyPredicate("weekly_basic"), "vol")
}

func TestDBErrorWrapping(t *testing.T) {
	assert.Nil(t, wrapDBError("insert", "daily_basic", nil))

	err := wrapDBError("insert", "daily_basic", assert.AnError)
	require.Error(t, err)

	var dbErr *DBError
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, "insert", dbErr.Operation)
	assert.Equal(t, "daily_basic", dbErr.Table)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestTableErrorMessage(t *testing.T) {
	err := &TableError{Table: "daily_basic", Reason: "not a time-series table"}
	assert.Contains(t, err.Error(), "daily_basic")
	assert.Contains(t, err.Error(), "not a time-series table")
}
