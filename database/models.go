package database

import "time"

// StockBasic is the instrument reference record. The listing window
// (ListDate, DelistDate) defines which instruments are expected to be active
// on a given trade date; reconciliation derives its expected set from it.
type StockBasic struct {
	TsCode     string `gorm:"primaryKey;size:16" json:"ts_code"`
	Symbol     string `gorm:"size:16" json:"symbol"`
	Name       string `gorm:"size:64" json:"name"`
	Area       string `gorm:"size:32" json:"area"`
	Industry   string `gorm:"size:32;index" json:"industry"`
	Market     string `gorm:"size:16;index" json:"market"`
	ListDate   string `gorm:"size:8" json:"list_date"`
	DelistDate string `gorm:"size:8" json:"delist_date"`
	IsHS       string `gorm:"size:4;column:is_hs" json:"is_hs"`
	UpdateTime string `gorm:"size:32" json:"update_time"`
}

// TableName specifies the table name for StockBasic
func (StockBasic) TableName() string { return "stock_basic" }

// StockCompany holds listed-company particulars
type StockCompany struct {
	TsCode       string   `gorm:"primaryKey;size:16" json:"ts_code"`
	ComName      string   `gorm:"size:128" json:"com_name"`
	Chairman     string   `gorm:"size:64" json:"chairman"`
	Manager      string   `gorm:"size:64" json:"manager"`
	Secretary    string   `gorm:"size:64" json:"secretary"`
	RegCapital   *float64 `json:"reg_capital"`
	SetupDate    string   `gorm:"size:8" json:"setup_date"`
	Province     string   `gorm:"size:32" json:"province"`
	City         string   `gorm:"size:32" json:"city"`
	Website      string   `gorm:"size:128" json:"website"`
	Email        string   `gorm:"size:128" json:"email"`
	Employees    *int64   `json:"employees"`
	MainBusiness string   `gorm:"type:text" json:"main_business"`
	UpdateTime   string   `gorm:"size:32" json:"update_time"`
}

// TableName specifies the table name for StockCompany
func (StockCompany) TableName() string { return "stock_company" }

// TradeCalendar marks which calendar dates are trading days
type TradeCalendar struct {
	CalDate      string `gorm:"primaryKey;size:8" json:"cal_date"`
	IsOpen       int    `json:"is_open"`
	PretradeDate string `gorm:"size:8" json:"pretrade_date"`
	UpdateTime   string `gorm:"size:32" json:"update_time"`
}

// TableName specifies the table name for TradeCalendar
func (TradeCalendar) TableName() string { return "trade_calendar" }

// NewShare is one IPO listing record
type NewShare struct {
	TsCode       string   `gorm:"primaryKey;size:16" json:"ts_code"`
	SubCode      string   `gorm:"size:16" json:"sub_code"`
	Name         string   `gorm:"size:64" json:"name"`
	IpoDate      string   `gorm:"size:8" json:"ipo_date"`
	IssueDate    string   `gorm:"size:8" json:"issue_date"`
	Amount       *float64 `json:"amount"`
	MarketAmount *float64 `json:"market_amount"`
	Price        *float64 `json:"price"`
	PE           *float64 `gorm:"column:pe" json:"pe"`
	LimitAmount  *float64 `json:"limit_amount"`
	Funds        *float64 `json:"funds"`
	Ballot       *float64 `json:"ballot"`
	UpdateTime   string   `gorm:"size:32" json:"update_time"`
}

// TableName specifies the table name for NewShare
func (NewShare) TableName() string { return "new_share" }

// Bar is one OHLCV row keyed by (ts_code, trade_date). Price and volume
// fields are nullable on purpose: a null close is one of the anomaly
// conditions reconciliation looks for.
type Bar struct {
	TsCode     string   `gorm:"primaryKey;size:16" json:"ts_code"`
	TradeDate  string   `gorm:"primaryKey;size:8;index" json:"trade_date"`
	Open       *float64 `json:"open"`
	High       *float64 `json:"high"`
	Low        *float64 `json:"low"`
	Close      *float64 `json:"close"`
	PreClose   *float64 `json:"pre_close"`
	Change     *float64 `json:"change"`
	PctChg     *float64 `json:"pct_chg"`
	Vol        *float64 `json:"vol"`
	Amount     *float64 `json:"amount"`
	UpdateTime string   `gorm:"size:32" json:"update_time"`
}

// DailyBar is the A-share daily bar table
type DailyBar struct{ Bar }

// TableName specifies the table name for DailyBar
func (DailyBar) TableName() string { return "daily_basic" }

// WeeklyBar is the weekly bar table
type WeeklyBar struct{ Bar }

// TableName specifies the table name for WeeklyBar
func (WeeklyBar) TableName() string { return "weekly_basic" }

// MonthlyBar is the monthly bar table
type MonthlyBar struct{ Bar }

// TableName specifies the table name for MonthlyBar
func (MonthlyBar) TableName() string { return "monthly_basic" }

// IndexDaily is the index daily bar table
type IndexDaily struct{ Bar }

// TableName specifies the table name for IndexDaily
func (IndexDaily) TableName() string { return "index_daily" }

// MinuteBar is one intraday bar keyed by (ts_code, trade_time). Minute data
// is entitlement-gated and loaded with replace semantics over its whole
// window, so the table is not part of the per-trade-date registry.
type MinuteBar struct {
	TsCode     string   `gorm:"primaryKey;size:16" json:"ts_code"`
	TradeTime  string   `gorm:"primaryKey;size:20;index" json:"trade_time"`
	Open       *float64 `json:"open"`
	High       *float64 `json:"high"`
	Low        *float64 `json:"low"`
	Close      *float64 `json:"close"`
	Vol        *float64 `json:"vol"`
	Amount     *float64 `json:"amount"`
	UpdateTime string   `gorm:"size:32" json:"update_time"`
}

// TableName specifies the table name for MinuteBar
func (MinuteBar) TableName() string { return "minute_bar" }

// AdjFactor is the price adjustment factor per (ts_code, trade_date)
type AdjFactor struct {
	TsCode     string   `gorm:"primaryKey;size:16" json:"ts_code"`
	TradeDate  string   `gorm:"primaryKey;size:8;index" json:"trade_date"`
	AdjFactor  *float64 `gorm:"column:adj_factor" json:"adj_factor"`
	UpdateTime string   `gorm:"size:32" json:"update_time"`
}

// TableName specifies the table name for AdjFactor
func (AdjFactor) TableName() string { return "adj_factor" }

// Outcome ledger status values
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// IngestOutcome is the per-(batch, dataset) status ledger row. It is
// overwritten on re-run: a status record, not a history log. Subsequent runs
// never read it for decisions; it exists for external status tooling.
type IngestOutcome struct {
	BatchName string     `gorm:"primaryKey;size:32" json:"batch_name"`
	Dataset   string     `gorm:"primaryKey;size:64" json:"dataset"`
	RunID     string     `gorm:"size:36" json:"run_id"`
	Status    string     `gorm:"size:16" json:"status"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	RowCount  int64      `json:"row_count"`
	ErrorMsg  string     `gorm:"type:text" json:"error_msg"`
}

// TableName specifies the table name for IngestOutcome
func (IngestOutcome) TableName() string { return "ingest_outcomes" }

// TableInfo is one table registry entry
type TableInfo struct {
	Name       string
	Model      interface{}
	TimeSeries bool // keyed by (ts_code, trade_date); never bulk-replaced
}

// registry lists every table the engine may touch, in migration order.
// Target table names in the dataset catalog are validated against it.
var registry = []TableInfo{
	{Name: "stock_basic", Model: &StockBasic{}},
	{Name: "stock_company", Model: &StockCompany{}},
	{Name: "trade_calendar", Model: &TradeCalendar{}},
	{Name: "new_share", Model: &NewShare{}},
	{Name: "daily_basic", Model: &DailyBar{}, TimeSeries: true},
	{Name: "weekly_basic", Model: &WeeklyBar{}, TimeSeries: true},
	{Name: "monthly_basic", Model: &MonthlyBar{}, TimeSeries: true},
	{Name: "index_daily", Model: &IndexDaily{}, TimeSeries: true},
	{Name: "adj_factor", Model: &AdjFactor{}, TimeSeries: true},
	{Name: "minute_bar", Model: &MinuteBar{}},
	{Name: "ingest_outcomes", Model: &IngestOutcome{}},
}

// Tables returns the table registry in migration order
func Tables() []TableInfo {
	out := make([]TableInfo, len(registry))
	copy(out, registry)
	return out
}

// KnownTable reports whether name is a registered table
func KnownTable(name string) bool {
	for _, t := range registry {
		if t.Name == name {
			return true
		}
	}
	return false
}

// IsTimeSeries reports whether name is a (ts_code, trade_date) keyed table
func IsTimeSeries(name string) bool {
	for _, t := range registry {
		if t.Name == name {
			return t.TimeSeries
		}
	}
	return false
}
