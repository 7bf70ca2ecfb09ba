package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/wonny/factorlens/internal/contracts"
)

// chartResponse is the v8 chart payload
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// FetchPrices fetches daily closes over rangeSpec (e.g. "1y"), oldest first.
// Adjusted closes are preferred; days without a close are skipped.
// ⭐ SSOT: Yahoo 가격 API 호출은 이 함수에서만
func (c *Client) FetchPrices(ctx context.Context, ticker, rangeSpec string) ([]contracts.PricePoint, error) {
	params := url.Values{}
	params.Set("range", rangeSpec)
	params.Set("interval", "1d")
	params.Set("events", "div,splits")

	var resp chartResponse
	if err := c.httpClient.GetJSON(ctx, endpoint(c.chartURL, ticker, params), &resp); err != nil {
		return nil, fmt.Errorf("fetch chart for %s: %w", ticker, err)
	}

	prices, err := parseChart(resp)
	if err != nil {
		return nil, fmt.Errorf("parse chart for %s: %w", ticker, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"range":  rangeSpec,
		"count":  len(prices),
	}).Debug("Fetched prices")
	return prices, nil
}

func parseChart(resp chartResponse) ([]contracts.PricePoint, error) {
	if resp.Chart.Error != nil {
		return nil, resp.Chart.Error
	}
	if len(resp.Chart.Result) == 0 {
		return nil, contracts.ErrDataUnavailable
	}

	r := resp.Chart.Result[0]
	var closes []*float64
	if len(r.Indicators.AdjClose) > 0 && len(r.Indicators.AdjClose[0].AdjClose) > 0 {
		closes = r.Indicators.AdjClose[0].AdjClose
	} else if len(r.Indicators.Quote) > 0 {
		closes = r.Indicators.Quote[0].Close
	}

	prices := make([]contracts.PricePoint, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		prices = append(prices, contracts.PricePoint{
			Date:  time.Unix(ts, 0).UTC(),
			Close: *closes[i],
		})
	}

	if len(prices) == 0 {
		return nil, contracts.ErrDataUnavailable
	}
	return prices, nil
}
