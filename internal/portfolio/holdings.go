package portfolio

import (
	"regexp"
	"strconv"
	"strings"
)

// Holding is one parsed position; entry fields are optional
type Holding struct {
	Ticker     string   `json:"ticker" validate:"required"`
	EntryDate  string   `json:"entry_date,omitempty"`
	EntryPrice *float64 `json:"entry_price,omitempty"`
}

var (
	tokenPattern = regexp.MustCompile(`^([A-Za-z.\-]+)(?:@(\d{4}-\d{2}-\d{2}))?(?::(\d+(?:\.\d+)?))?$`)
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	pricePattern = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
)

// ParseHoldingsText parses loosely formatted holdings. Entries are separated
// by newlines or commas; each entry is one of
//
//	AAPL LLY NVO            (several bare tickers)
//	AAPL@2024-10-01:185     (ticker@date:price, date and price optional)
//	AAPL 2024-10-01 185     (ticker date price)
//
// Tickers are upper-cased and duplicates dropped, first occurrence wins.
func ParseHoldingsText(text string) []Holding {
	out := []Holding{}
	seen := make(map[string]bool)
	add := func(h Holding) {
		if h.Ticker == "" || seen[h.Ticker] {
			return
		}
		seen[h.Ticker] = true
		out = append(out, h)
	}

	entries := strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == ',' })
	for _, entry := range entries {
		fields := strings.Fields(entry)
		switch {
		case len(fields) == 0:
			continue
		case len(fields) == 3 && datePattern.MatchString(fields[1]) && pricePattern.MatchString(fields[2]):
			add(Holding{
				Ticker:     strings.ToUpper(fields[0]),
				EntryDate:  fields[1],
				EntryPrice: parsePrice(fields[2]),
			})
		default:
			for _, f := range fields {
				add(parseToken(f))
			}
		}
	}
	return out
}

// Tickers returns the holding tickers in order
func Tickers(holdings []Holding) []string {
	out := make([]string, len(holdings))
	for i, h := range holdings {
		out[i] = h.Ticker
	}
	return out
}

func parseToken(token string) Holding {
	m := tokenPattern.FindStringSubmatch(token)
	if m == nil {
		// unrecognized tokens are kept as bare tickers
		return Holding{Ticker: strings.ToUpper(token)}
	}
	return Holding{
		Ticker:     strings.ToUpper(m[1]),
		EntryDate:  m[2],
		EntryPrice: parsePrice(m[3]),
	}
}

func parsePrice(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
