package contracts

import "time"

// Fundamentals is a point-in-time snapshot of company fundamentals.
// Any metric may be absent (nil); absent is never coerced to zero.
type Fundamentals struct {
	Ticker    string   `json:"ticker"`
	MarketCap *float64 `json:"market_cap"`
	Currency  string   `json:"currency,omitempty"`
	LastPrice *float64 `json:"last_price"`
	Sector    string   `json:"sector,omitempty"`
	Industry  string   `json:"industry,omitempty"`

	PE                      *float64 `json:"pe"`
	PB                      *float64 `json:"pb"`
	EPS                     *float64 `json:"eps"`
	ForwardEPS              *float64 `json:"forwardEps"`
	RevenueGrowth           *float64 `json:"revenueGrowth"`
	EarningsQuarterlyGrowth *float64 `json:"earningsQuarterlyGrowth"`
	ProfitMargins           *float64 `json:"profitMargins"`
	ReturnOnEquity          *float64 `json:"returnOnEquity"`
	ReturnOnAssets          *float64 `json:"returnOnAssets"`
	FreeCashFlow            *float64 `json:"freeCashFlow"`
}

// Momentum holds trailing fractional returns over ~21/63/126/252 trading days.
// A window is nil when the history is shorter than the window.
type Momentum struct {
	Mom1  *float64 `json:"mom1"`
	Mom3  *float64 `json:"mom3"`
	Mom6  *float64 `json:"mom6"`
	Mom12 *float64 `json:"mom12"`
}

// PricePoint is one daily close
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// Closes extracts the close series in order
func Closes(points []PricePoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Close
	}
	return out
}

// Filing is one regulatory filing record
type Filing struct {
	Ticker          string `json:"ticker"`
	CIK             string `json:"cik"`
	Form            string `json:"form"`
	FilingDate      string `json:"filingDate"`
	ReportDate      string `json:"reportDate"`
	AccessionNumber string `json:"accessionNumber"`
	PrimaryDocument string `json:"primaryDocument"`
	URL             string `json:"url"`
	Title           string `json:"title"`
}

// NewsHit is one news search result
type NewsHit struct {
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Source    string    `json:"source,omitempty"`
	Published time.Time `json:"published"`
	Snippet   string    `json:"snippet,omitempty"`
}

// Float returns a pointer to v, for building optional metrics
func Float(v float64) *float64 {
	return &v
}
