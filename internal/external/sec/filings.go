package sec

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/pkg/redis"
)

// DefaultForms is the form filter used when none is given
var DefaultForms = []string{"8-K", "10-Q", "10-K"}

// submissions is the part of data.sec.gov/submissions/CIK##########.json we read
type submissions struct {
	CIK     string `json:"cik"`
	Name    string `json:"name"`
	Filings struct {
		Recent recentFilings `json:"recent"`
	} `json:"filings"`
}

// recentFilings holds parallel arrays, one element per filing, newest first
type recentFilings struct {
	AccessionNumber       []string `json:"accessionNumber"`
	FilingDate            []string `json:"filingDate"`
	ReportDate            []string `json:"reportDate"`
	Form                  []string `json:"form"`
	PrimaryDocument       []string `json:"primaryDocument"`
	PrimaryDocDescription []string `json:"primaryDocDescription"`
}

// RecentFilings fetches the newest filings whose form is in forms (nil =
// DefaultForms), stopping after limit matches (limit <= 0 = no cap).
// An unknown ticker yields an empty list.
// ⭐ SSOT: SEC 공시 데이터 호출은 이 함수에서만
func (c *Client) RecentFilings(ctx context.Context, ticker string, forms []string, limit int) ([]contracts.Filing, error) {
	if len(forms) == 0 {
		forms = DefaultForms
	}

	cik, err := c.CIK(ctx, ticker)
	if errors.Is(err, ErrTickerNotFound) {
		c.logger.WithField("ticker", ticker).Debug("No CIK for ticker")
		return []contracts.Filing{}, nil
	}
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s:%s", redis.FilingsKey(ticker, limit), strings.Join(forms, ","))
	var out []contracts.Filing
	err = c.cache.GetOrSet(ctx, key, &out, redis.TTLMedium, func() (interface{}, error) {
		var sub submissions
		url := fmt.Sprintf(c.submissionsURL, zeroPad10(cik))
		if err := c.httpClient.GetJSON(ctx, url, &sub); err != nil {
			return nil, fmt.Errorf("fetch submissions for %s: %w", ticker, err)
		}
		return c.buildFilings(ticker, cik, sub.Filings.Recent, forms, limit), nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"cik":    cik,
		"count":  len(out),
	}).Debug("Fetched filings")

	if out == nil {
		out = []contracts.Filing{}
	}
	return out, nil
}

func (c *Client) buildFilings(ticker, cik string, recent recentFilings, forms []string, limit int) []contracts.Filing {
	allowed := make(map[string]bool, len(forms))
	for _, f := range forms {
		allowed[f] = true
	}

	cikNum := strings.TrimLeft(cik, "0")
	if n, err := strconv.ParseInt(cik, 10, 64); err == nil {
		cikNum = strconv.FormatInt(n, 10)
	}

	out := make([]contracts.Filing, 0)
	for i, form := range recent.Form {
		if !allowed[form] {
			continue
		}
		accession := at(recent.AccessionNumber, i)
		doc := at(recent.PrimaryDocument, i)
		out = append(out, contracts.Filing{
			Ticker:          ticker,
			CIK:             cik,
			Form:            form,
			FilingDate:      at(recent.FilingDate, i),
			ReportDate:      at(recent.ReportDate, i),
			AccessionNumber: accession,
			PrimaryDocument: doc,
			URL:             fmt.Sprintf("%s/%s/%s/%s", c.archivesURL, cikNum, strings.ReplaceAll(accession, "-", ""), doc),
			Title:           at(recent.PrimaryDocDescription, i),
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// FormatFilings renders up to maxItems filings as "- form | date | title | url"
// lines. maxItems <= 0 means all.
func FormatFilings(filings []contracts.Filing, maxItems int) string {
	if maxItems <= 0 || maxItems > len(filings) {
		maxItems = len(filings)
	}
	lines := make([]string, 0, maxItems)
	for _, f := range filings[:maxItems] {
		lines = append(lines, fmt.Sprintf("- %s | %s | %s | %s", f.Form, f.FilingDate, f.Title, f.URL))
	}
	return strings.Join(lines, "\n")
}

func zeroPad10(cik string) string {
	if len(cik) >= 10 {
		return cik
	}
	return strings.Repeat("0", 10-len(cik)) + cik
}

func at(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}
