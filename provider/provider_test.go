package provider

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultSetMaps(t *testing.T) {
	rs := &ResultSet{
		Fields: []string{"ts_code", "close"},
		Rows: [][]interface{}{
			{"000001.SZ", 10.5},
			{"000002.SZ"}, // short row, padded with nil
		},
	}

	maps := rs.Maps()
	require.Len(t, maps, 2)
	assert.Equal(t, "000001.SZ", maps[0]["ts_code"])
	assert.Equal(t, 10.5, maps[0]["close"])
	assert.Nil(t, maps[1]["close"])
}

func TestResultSetMerge(t *testing.T) {
	a := &ResultSet{Fields: []string{"ts_code"}, Rows: [][]interface{}{{"A"}}}
	b := &ResultSet{Fields: []string{"ts_code"}, Rows: [][]interface{}{{"B"}, {"C"}}}

	merged := a.Merge(b)
	assert.Equal(t, 3, merged.Len())

	// Merging into nil adopts the other set's fields
	var empty *ResultSet
	merged = empty.Merge(b)
	require.NotNil(t, merged)
	assert.Equal(t, []string{"ts_code"}, merged.Fields)
	assert.Equal(t, 2, merged.Len())

	// Merging an empty set changes nothing
	assert.Equal(t, 3, a.Merge(&ResultSet{}).Len())
}

func TestEmptyAndLenOnNil(t *testing.T) {
	var rs *ResultSet
	assert.True(t, rs.Empty())
	assert.Zero(t, rs.Len())
	assert.Nil(t, rs.Maps())
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantPermission bool
		wantRateLimit  bool
	}{
		{
			name:           "permission code",
			err:            &CallError{Endpoint: "daily", Code: 2002, Msg: "no access"},
			wantPermission: true,
		},
		{
			name:           "permission message in chinese",
			err:            &CallError{Endpoint: "daily", Code: -1, Msg: "抱歉，您没有访问该接口的权限"},
			wantPermission: true,
		},
		{
			name:          "rate limit code",
			err:           &CallError{Endpoint: "daily", Code: 40203, Msg: "too many requests"},
			wantRateLimit: true,
		},
		{
			name:          "rate limit message",
			err:           &CallError{Endpoint: "daily", Code: -1, Msg: "抱歉，您每分钟最多访问该接口500次"},
			wantRateLimit: true,
		},
		{
			name: "plain transient error",
			err:  &CallError{Endpoint: "daily", Code: 500, Msg: "internal error"},
		},
		{
			name: "unrelated error",
			err:  fmt.Errorf("dial tcp: connection refused"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantPermission, IsPermissionDenied(tt.err))
			assert.Equal(t, tt.wantRateLimit, IsRateLimited(tt.err))
		})
	}
}

func TestErrorClassificationUnwraps(t *testing.T) {
	wrapped := fmt.Errorf("fetch failed: %w", &CallError{Endpoint: "daily", Code: 2002, Msg: "denied"})
	assert.True(t, IsPermissionDenied(wrapped))
}

func TestValidateEndpoint(t *testing.T) {
	assert.NoError(t, ValidateEndpoint("daily"))
	assert.Error(t, ValidateEndpoint("no_such_endpoint"))

	ep, ok := LookupEndpoint("daily")
	require.True(t, ok)
	assert.Equal(t, "trade_date", ep.DateParam)
	assert.Equal(t, "ts_code", ep.CodeParam)

	// Reference endpoints cannot be addressed by date
	ep, ok = LookupEndpoint("stock_basic")
	require.True(t, ok)
	assert.Empty(t, ep.DateParam)
}
