package catalog

// Default returns the standard ingestion plan: reference data first (the
// critical batch), then historical market data, then permission-gated extras.
func Default() *Catalog {
	return New([]Batch{
		{
			Name:     "reference",
			Critical: true,
			Datasets: []Dataset{
				{
					Key:      "stock_basic",
					Endpoint: "stock_basic",
					Table:    "stock_basic",
					Params: map[string]string{
						"exchange":    "",
						"list_status": "L",
						"fields":      "ts_code,symbol,name,area,industry,market,list_date,delist_date,is_hs",
					},
					Strategy:    StrategySingleCall,
					Required:    true,
					Enabled:     true,
					Description: "instrument master with listing windows",
				},
				{
					Key:      "stock_company",
					Endpoint: "stock_company",
					Table:    "stock_company",
					Params: map[string]string{
						"exchange": "SSE",
						"fields":   "ts_code,com_name,chairman,manager,secretary,reg_capital,setup_date,province,city,website,email,employees,main_business",
					},
					Strategy:    StrategySingleCall,
					Enabled:     true,
					Description: "listed company particulars",
				},
				{
					Key:      "trade_cal",
					Endpoint: "trade_cal",
					Table:    "trade_calendar",
					Params: map[string]string{
						"exchange": "SSE",
						"fields":   "cal_date,is_open,pretrade_date",
					},
					TimeRange:   RangeLast2Years,
					Strategy:    StrategySingleCall,
					Required:    true,
					Enabled:     true,
					Description: "trading calendar",
				},
				{
					Key:      "new_share",
					Endpoint: "new_share",
					Table:    "new_share",
					Params: map[string]string{
						"fields": "ts_code,sub_code,name,ipo_date,issue_date,amount,market_amount,price,pe,limit_amount,funds,ballot",
					},
					TimeRange:   RangeLast2Years,
					Strategy:    StrategySingleCall,
					Enabled:     true,
					Description: "IPO listings",
				},
			},
		},
		{
			Name: "history",
			Datasets: []Dataset{
				{
					Key:      "daily",
					Endpoint: "daily",
					Table:    "daily_basic",
					Params: map[string]string{
						"fields": "ts_code,trade_date,open,high,low,close,pre_close,change,pct_chg,vol,amount",
					},
					TimeRange:   RangeLast2Years,
					Strategy:    StrategyHybrid,
					ChunkSize:   50,
					Enabled:     true,
					Description: "daily bars, full market",
				},
				{
					Key:      "weekly",
					Endpoint: "weekly",
					Table:    "weekly_basic",
					Params: map[string]string{
						"fields": "ts_code,trade_date,open,high,low,close,pre_close,change,pct_chg,vol,amount",
					},
					TimeRange:   RangeLast2Years,
					Strategy:    StrategyByChunk,
					ChunkSize:   50,
					Enabled:     true,
					Description: "weekly bars",
				},
				{
					Key:      "monthly",
					Endpoint: "monthly",
					Table:    "monthly_basic",
					Params: map[string]string{
						"fields": "ts_code,trade_date,open,high,low,close,pre_close,change,pct_chg,vol,amount",
					},
					TimeRange:   RangeLast2Years,
					Strategy:    StrategyByChunk,
					ChunkSize:   50,
					Enabled:     true,
					Description: "monthly bars",
				},
				{
					Key:      "adj_factor",
					Endpoint: "adj_factor",
					Table:    "adj_factor",
					Params: map[string]string{
						"fields": "ts_code,trade_date,adj_factor",
					},
					TimeRange:   RangeLast2Years,
					Strategy:    StrategyByChunk,
					ChunkSize:   50,
					Enabled:     true,
					Description: "price adjustment factors",
				},
				{
					Key:      "index_daily",
					Endpoint: "index_daily",
					Table:    "index_daily",
					Params: map[string]string{
						"ts_code": "000001.SH,399001.SZ,000300.SH",
						"fields":  "ts_code,trade_date,open,high,low,close,pre_close,change,pct_chg,vol,amount",
					},
					TimeRange:   RangeLast2Years,
					Strategy:    StrategySingleCall,
					Enabled:     true,
					Description: "benchmark index daily bars",
				},
			},
		},
		{
			Name: "extended",
			Datasets: []Dataset{
				{
					Key:      "stk_mins",
					Endpoint: "stk_mins",
					Table:    "minute_bar",
					Params: map[string]string{
						"freq":   "60min",
						"fields": "ts_code,trade_time,open,close,high,low,vol,amount",
					},
					TimeRange:   RangeLast1Year,
					Strategy:    StrategySingleCall,
					Enabled:     false,
					SkipReason:  "minute bars need a separate provider entitlement",
					Description: "intraday minute bars",
				},
			},
		},
	})
}
