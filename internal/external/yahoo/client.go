package yahoo

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/wonny/factorlens/pkg/config"
	"github.com/wonny/factorlens/pkg/httputil"
	"github.com/wonny/factorlens/pkg/logger"
)

// Client handles communication with Yahoo Finance
// ⭐ SSOT: Yahoo Finance API 호출은 이 클라이언트에서만
type Client struct {
	httpClient      *httputil.Client
	logger          *logger.Logger
	chartURL        string
	quoteSummaryURL string
}

// NewClient creates a new Yahoo Finance client
func NewClient(httpClient *httputil.Client, cfg config.YahooConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient:      httpClient,
		logger:          log,
		chartURL:        cfg.ChartURL,
		quoteSummaryURL: cfg.QuoteSummaryURL,
	}
}

// endpoint formats a per-symbol URL and appends params
func endpoint(format, ticker string, params url.Values) string {
	symbol := url.PathEscape(strings.ToUpper(strings.TrimSpace(ticker)))
	u := fmt.Sprintf(format, symbol)
	if len(params) > 0 {
		u = fmt.Sprintf("%s?%s", u, params.Encode())
	}
	return u
}

// apiError is the error object both endpoints return
type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("yahoo: %s: %s", e.Code, e.Description)
}
