package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/wonny/factorlens/internal/contracts"
)

// Payload is the input of the standard markdown report
type Payload struct {
	Title          string
	Date           string
	Tickers        []string
	Summary        string
	NewsSummary    string
	FilingsSummary string
	Scores         []contracts.ScoreRecord
}

var funcs = template.FuncMap{
	"f3":   func(v float64) string { return fmt.Sprintf("%.3f", v) },
	"opt":  formatOptional,
	"or0":  orZero,
	"join": strings.Join,
}

var reportTemplate = template.Must(template.New("report").Funcs(funcs).Parse(`# {{ .Title }}

**Date**: {{ .Date }}
**Tickers**: {{ join .Tickers ", " }}

## Summary
{{ .Summary }}

## News (Condensed)
{{ if .NewsSummary }}{{ .NewsSummary }}{{ else }}_No news summary_{{ end }}

## SEC Filings (Condensed)
{{ if .FilingsSummary }}{{ .FilingsSummary }}{{ else }}_No filings summary_{{ end }}

## Scores
| Ticker | Base | Dip bonus | Total |
|---|---:|---:|---:|
{{ range .Scores }}| {{ .Ticker }} | {{ f3 .BaseScore }} | {{ f3 .DipBonus }} | {{ f3 .Score }} |
{{ end }}
## Factor Evidence
| Ticker | Sector | PE | PB | EPS | ROE | RevG | ProfitM | Mom(3/6/12) | Event |
|---|---|---:|---:|---:|---:|---:|---:|---:|---:|
{{ range .Scores }}| {{ .Ticker }} | {{ .Sector }} | {{ opt .PE }} | {{ opt .PB }} | {{ opt .EPS }} | {{ opt .ReturnOnEquity }} | {{ opt .RevenueGrowth }} | {{ opt .ProfitMargins }} | {{ f3 (or0 .Mom3) }}/{{ f3 (or0 .Mom6) }}/{{ f3 (or0 .Mom12) }} | {{ f3 .EventScore }} |
{{ end }}`))

// Generate renders the standard report
// ⭐ SSOT: 리포트 마크다운 포맷은 여기서만
func Generate(p Payload) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

// Bullets prefixes each line with "- "
func Bullets(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = "- " + l
	}
	return strings.Join(out, "\n")
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
