package provider

import "fmt"

// Endpoint describes one provider API surface: how it is addressed by date,
// by entity code, and by date range. Empty strings mean the endpoint does not
// support that addressing mode.
type Endpoint struct {
	Name       string
	DateParam  string // single trade-date queries
	CodeParam  string // entity-code queries (comma separated list accepted)
	StartParam string // date-range queries
	EndParam   string
}

// endpoints is the static registry of known provider APIs. Dataset catalogs
// are validated against it at startup so a misspelled endpoint name fails
// before the first fetch rather than mid-run.
var endpoints = map[string]Endpoint{
	"stock_basic":      {Name: "stock_basic", CodeParam: "ts_code"},
	"stock_company":    {Name: "stock_company", CodeParam: "ts_code"},
	"trade_cal":        {Name: "trade_cal", StartParam: "start_date", EndParam: "end_date"},
	"new_share":        {Name: "new_share", StartParam: "start_date", EndParam: "end_date"},
	"daily":            {Name: "daily", DateParam: "trade_date", CodeParam: "ts_code", StartParam: "start_date", EndParam: "end_date"},
	"weekly":           {Name: "weekly", DateParam: "trade_date", CodeParam: "ts_code", StartParam: "start_date", EndParam: "end_date"},
	"monthly":          {Name: "monthly", DateParam: "trade_date", CodeParam: "ts_code", StartParam: "start_date", EndParam: "end_date"},
	"adj_factor":       {Name: "adj_factor", DateParam: "trade_date", CodeParam: "ts_code", StartParam: "start_date", EndParam: "end_date"},
	"index_daily":      {Name: "index_daily", DateParam: "trade_date", CodeParam: "ts_code", StartParam: "start_date", EndParam: "end_date"},
	"index_dailybasic": {Name: "index_dailybasic", DateParam: "trade_date", CodeParam: "ts_code", StartParam: "start_date", EndParam: "end_date"},
	"stk_mins":         {Name: "stk_mins", CodeParam: "ts_code", StartParam: "start_date", EndParam: "end_date"},
}

// LookupEndpoint returns the registry entry for name
func LookupEndpoint(name string) (Endpoint, bool) {
	ep, ok := endpoints[name]
	return ep, ok
}

// ValidateEndpoint returns an error when name is not a registered endpoint
func ValidateEndpoint(name string) error {
	if _, ok := endpoints[name]; !ok {
		return fmt.Errorf("unknown provider endpoint %q", name)
	}
	return nil
}
