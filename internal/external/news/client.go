package news

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/pkg/config"
	"github.com/wonny/factorlens/pkg/httputil"
	"github.com/wonny/factorlens/pkg/logger"
)

const snippetMax = 300

// Client searches the Google News RSS feed
// ⭐ SSOT: 뉴스 검색은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	rssURL     string
	now        func() time.Time
}

// NewClient creates a new news client
func NewClient(httpClient *httputil.Client, cfg config.NewsConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		rssURL:     cfg.RSSURL,
		now:        time.Now,
	}
}

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
	Description string `xml:"description"`
	Source      string `xml:"source"`
}

// QueryHits pairs a query with its results
type QueryHits struct {
	Query string              `json:"query"`
	Hits  []contracts.NewsHit `json:"hits"`
}

// SearchNews returns up to maxResults items published within lookbackDays.
// At most 2*maxResults feed items are examined.
func (c *Client) SearchNews(ctx context.Context, query string, lookbackDays, maxResults int) ([]contracts.NewsHit, error) {
	hits := []contracts.NewsHit{}
	if maxResults <= 0 || strings.TrimSpace(query) == "" {
		return hits, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("hl", "en-US")
	params.Set("gl", "US")
	params.Set("ceid", "US:en")

	body, err := c.httpClient.GetBody(ctx, c.rssURL+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("fetch news for %q: %w", query, err)
	}

	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("parse news feed for %q: %w", query, err)
	}

	cutoff := c.now().Add(-time.Duration(lookbackDays) * 24 * time.Hour)
	items := feed.Channel.Items
	if len(items) > maxResults*2 {
		items = items[:maxResults*2]
	}

	for _, item := range items {
		published, ok := parseDate(item.PubDate)
		if ok && published.Before(cutoff) {
			continue
		}
		hits = append(hits, contracts.NewsHit{
			Title:     strings.TrimSpace(item.Title),
			URL:       strings.TrimSpace(item.Link),
			Source:    strings.TrimSpace(item.Source),
			Published: published,
			Snippet:   snippet(item.Description),
		})
		if len(hits) >= maxResults {
			break
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"query": query,
		"items": len(feed.Channel.Items),
		"hits":  len(hits),
	}).Debug("News search completed")
	return hits, nil
}

// Search runs each query in order. A failed query yields no hits.
func (c *Client) Search(ctx context.Context, queries []string, lookbackDays, maxResults int) []QueryHits {
	out := make([]QueryHits, 0, len(queries))
	for _, q := range queries {
		hits, err := c.SearchNews(ctx, q, lookbackDays, maxResults)
		if err != nil {
			c.logger.WithError(err).WithField("query", q).Warn("News search failed")
			hits = []contracts.NewsHit{}
		}
		out = append(out, QueryHits{Query: q, Hits: hits})
	}
	return out
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// snippet strips markup and truncates to snippetMax runes
func snippet(description string) string {
	text := description
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(description)); err == nil {
		text = doc.Text()
	}
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= snippetMax {
		return text
	}
	return string([]rune(text)[:snippetMax])
}
