package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/internal/external/news"
	"github.com/wonny/factorlens/internal/external/sec"
	"github.com/wonny/factorlens/internal/report"
)

// ThemeLookbackDays is the default news lookback of theme reports
const ThemeLookbackDays = 7

// Theme report limits
const (
	themeNewsPerQuery   = 5
	themeNewsLines      = 3
	themeFilingsPerName = 3
	themeFilingsMax     = 6
)

// ThemeResult is the outcome of a theme report
type ThemeResult struct {
	Run
	Theme    string                  `json:"theme"`
	NotePath string                  `json:"note_path"`
	Markdown string                  `json:"markdown"`
	Ranked   []contracts.ScoreRecord `json:"ranked"`
}

// ThemeQueries returns the news queries for a theme
func ThemeQueries(theme string) []string {
	return []string{theme + " stocks", theme + " demand", theme + " regulation"}
}

// ThemeReport collects news, filings and a ranking for tickers and writes
// the weekly snapshot note.
func (o *Orchestrator) ThemeReport(ctx context.Context, theme string, tickers []string) (*ThemeResult, error) {
	if len(tickers) == 0 {
		return nil, ErrNoTickers
	}
	theme, err := cleanTheme(theme)
	if err != nil {
		return nil, err
	}
	run, start := o.startRun("theme")
	queries := ThemeQueries(theme)

	var newsLines []string
	for _, q := range o.searchNews(ctx, queries, ThemeLookbackDays, themeNewsPerQuery) {
		hits := q.Hits
		if len(hits) > themeNewsLines {
			hits = hits[:themeNewsLines]
		}
		for _, h := range hits {
			newsLines = append(newsLines, fmt.Sprintf("%s | %s | %s", h.Title, h.Source, h.URL))
		}
	}
	run.stage("news")

	filings := o.collectFilings(ctx, tickers, themeFilingsPerName)
	run.stage("filings")

	ranked, err := o.rank(ctx, tickers)
	if err != nil {
		return nil, err
	}
	run.stage("ranking")

	md, err := report.Generate(report.Payload{
		Title:          theme + " Theme Snapshot",
		Date:           run.Date,
		Tickers:        tickers,
		Summary:        fmt.Sprintf("Condensed news and ranking for %s.", theme),
		NewsSummary:    report.Bullets(newsLines),
		FilingsSummary: sec.FormatFilings(filings, themeFilingsMax),
		Scores:         ranked,
	})
	if err != nil {
		return nil, err
	}

	path, err := o.deps.Vault.Write(fmt.Sprintf("Markets/%s/Weekly Snapshot.md", theme), report.FrontMatter{
		{Key: "type", Value: "market"},
		{Key: "date", Value: run.Date},
		{Key: "theme", Value: theme},
		{Key: "queries", Value: queries},
	}, md)
	if err != nil {
		return nil, fmt.Errorf("write theme note: %w", err)
	}
	run.stage("note")

	o.finishRun("theme", run, start)
	return &ThemeResult{Run: *run, Theme: theme, NotePath: path, Markdown: md, Ranked: ranked}, nil
}

// ThemeOverview builds the presentation overview without writing a note
func (o *Orchestrator) ThemeOverview(ctx context.Context, theme string, tickers []string, lookbackDays int) (string, error) {
	theme = strings.TrimSpace(theme)
	newsMax := o.deps.Present.NewsMax

	var hits []contracts.NewsHit
	for _, q := range o.searchNews(ctx, ThemeQueries(theme), lookbackDays, newsMax) {
		h := q.Hits
		if len(h) > newsMax {
			h = h[:newsMax]
		}
		hits = append(hits, h...)
	}

	filings := o.collectFilings(ctx, tickers, o.deps.Present.FilingsMax)

	var ranked []contracts.ScoreRecord
	if len(tickers) > 0 {
		var err error
		if ranked, err = o.rank(ctx, tickers); err != nil {
			return "", err
		}
	}

	overview := report.ThemeOverview{Theme: theme, News: hits, Filings: filings, Ranked: ranked}
	return overview.Markdown(o.deps.Present.FilingsMax), nil
}

func (o *Orchestrator) searchNews(ctx context.Context, queries []string, lookbackDays, maxResults int) []news.QueryHits {
	if o.deps.News == nil {
		return nil
	}
	return o.deps.News.Search(ctx, queries, lookbackDays, maxResults)
}

// collectFilings gathers recent filings per ticker; failures are skipped
func (o *Orchestrator) collectFilings(ctx context.Context, tickers []string, perTicker int) []contracts.Filing {
	if o.deps.Filings == nil {
		return nil
	}
	var out []contracts.Filing
	for _, t := range tickers {
		filings, err := o.deps.Filings.RecentFilings(ctx, t, sec.DefaultForms, perTicker)
		if err != nil {
			o.logger.WithError(err).WithField("ticker", t).Warn("Data unavailable, using neutral value")
			continue
		}
		out = append(out, filings...)
	}
	return out
}
