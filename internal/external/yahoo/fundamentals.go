package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/wonny/factorlens/internal/contracts"
)

// summaryModules are the quoteSummary modules a fundamentals snapshot reads
var summaryModules = []string{"assetProfile", "summaryDetail", "defaultKeyStatistics", "financialData", "price"}

type rawValue struct {
	Raw *float64 `json:"raw"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []quoteSummaryResult `json:"result"`
		Error  *apiError            `json:"error"`
	} `json:"quoteSummary"`
}

type quoteSummaryResult struct {
	AssetProfile struct {
		Sector   string `json:"sector"`
		Industry string `json:"industry"`
	} `json:"assetProfile"`
	SummaryDetail struct {
		TrailingPE rawValue `json:"trailingPE"`
		MarketCap  rawValue `json:"marketCap"`
	} `json:"summaryDetail"`
	DefaultKeyStatistics struct {
		PriceToBook             rawValue `json:"priceToBook"`
		TrailingEps             rawValue `json:"trailingEps"`
		ForwardEps              rawValue `json:"forwardEps"`
		EarningsQuarterlyGrowth rawValue `json:"earningsQuarterlyGrowth"`
	} `json:"defaultKeyStatistics"`
	FinancialData struct {
		RevenueGrowth  rawValue `json:"revenueGrowth"`
		ProfitMargins  rawValue `json:"profitMargins"`
		ReturnOnEquity rawValue `json:"returnOnEquity"`
		ReturnOnAssets rawValue `json:"returnOnAssets"`
		FreeCashflow   rawValue `json:"freeCashflow"`
		CurrentPrice   rawValue `json:"currentPrice"`
	} `json:"financialData"`
	Price struct {
		Currency           string   `json:"currency"`
		RegularMarketPrice rawValue `json:"regularMarketPrice"`
		MarketCap          rawValue `json:"marketCap"`
	} `json:"price"`
}

// FetchFundamentals fetches a fundamentals snapshot. Any field may be nil.
func (c *Client) FetchFundamentals(ctx context.Context, ticker string) (*contracts.Fundamentals, error) {
	params := url.Values{}
	params.Set("modules", strings.Join(summaryModules, ","))

	var resp quoteSummaryResponse
	if err := c.httpClient.GetJSON(ctx, endpoint(c.quoteSummaryURL, ticker, params), &resp); err != nil {
		return nil, fmt.Errorf("fetch quote summary for %s: %w", ticker, err)
	}

	f, err := parseQuoteSummary(ticker, resp)
	if err != nil {
		return nil, fmt.Errorf("parse quote summary for %s: %w", ticker, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"sector": f.Sector,
	}).Debug("Fetched fundamentals")
	return f, nil
}

func parseQuoteSummary(ticker string, resp quoteSummaryResponse) (*contracts.Fundamentals, error) {
	if resp.QuoteSummary.Error != nil {
		return nil, resp.QuoteSummary.Error
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, contracts.ErrDataUnavailable
	}
	r := resp.QuoteSummary.Result[0]

	return &contracts.Fundamentals{
		Ticker:                  ticker,
		MarketCap:               first(r.Price.MarketCap, r.SummaryDetail.MarketCap),
		Currency:                r.Price.Currency,
		LastPrice:               first(r.Price.RegularMarketPrice, r.FinancialData.CurrentPrice),
		Sector:                  r.AssetProfile.Sector,
		Industry:                r.AssetProfile.Industry,
		PE:                      r.SummaryDetail.TrailingPE.Raw,
		PB:                      r.DefaultKeyStatistics.PriceToBook.Raw,
		EPS:                     r.DefaultKeyStatistics.TrailingEps.Raw,
		ForwardEPS:              r.DefaultKeyStatistics.ForwardEps.Raw,
		RevenueGrowth:           r.FinancialData.RevenueGrowth.Raw,
		EarningsQuarterlyGrowth: r.DefaultKeyStatistics.EarningsQuarterlyGrowth.Raw,
		ProfitMargins:           r.FinancialData.ProfitMargins.Raw,
		ReturnOnEquity:          r.FinancialData.ReturnOnEquity.Raw,
		ReturnOnAssets:          r.FinancialData.ReturnOnAssets.Raw,
		FreeCashFlow:            r.FinancialData.FreeCashflow.Raw,
	}, nil
}

func first(values ...rawValue) *float64 {
	for _, v := range values {
		if v.Raw != nil {
			return v.Raw
		}
	}
	return nil
}
