package contracts

// ScoreRecord is one ranked ticker from fundamentals mode.
// Factor scores, DipBonus and BaseScore are rounded to 4 decimals;
// Score is the rounded sum of the rounded BaseScore and DipBonus.
// ⭐ SSOT: 랭킹 결과 레코드
type ScoreRecord struct {
	Ticker string `json:"ticker"`
	Sector string `json:"sector,omitempty"`

	Valuation     float64 `json:"valuation"`
	Growth        float64 `json:"growth"`
	Profitability float64 `json:"profitability"`
	Quality       float64 `json:"quality"`

	DipBonus  float64 `json:"dip_bonus"`
	BaseScore float64 `json:"base_score"`
	Score     float64 `json:"score"`

	Evidence
}

// Evidence carries the raw inputs behind a ScoreRecord
type Evidence struct {
	PE             *float64 `json:"pe"`
	PB             *float64 `json:"pb"`
	EPS            *float64 `json:"eps"`
	RevenueGrowth  *float64 `json:"revenueGrowth"`
	ProfitMargins  *float64 `json:"profitMargins"`
	ReturnOnEquity *float64 `json:"returnOnEquity"`

	Mom1  *float64 `json:"mom1"`
	Mom3  *float64 `json:"mom3"`
	Mom6  *float64 `json:"mom6"`
	Mom12 *float64 `json:"mom12"`
	Mom   *float64 `json:"mom"` // (mom3+mom6+mom12)/3, absent months as 0

	EventScore float64 `json:"eventScore"`
}
