package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Candidate is a caller-supplied record of factor values. Every field of the
// input object is kept in order and echoed back on output.
type Candidate struct {
	fields []candidateField
}

type candidateField struct {
	key string
	raw json.RawMessage
}

// NewCandidate starts a candidate for ticker
func NewCandidate(ticker string) *Candidate {
	c := &Candidate{}
	if ticker != "" {
		c.Set("ticker", ticker)
	}
	return c
}

// Set stores value under key, keeping the position of an existing key
func (c *Candidate) Set(key string, value interface{}) *Candidate {
	raw, err := json.Marshal(value)
	if err != nil {
		raw = json.RawMessage("null")
	}
	for i := range c.fields {
		if c.fields[i].key == key {
			c.fields[i].raw = raw
			return c
		}
	}
	c.fields = append(c.fields, candidateField{key: key, raw: raw})
	return c
}

func (c Candidate) lookup(key string) (json.RawMessage, bool) {
	for _, f := range c.fields {
		if f.key == key {
			return f.raw, true
		}
	}
	return nil, false
}

// Has reports whether key is present, even with a null value
func (c Candidate) Has(key string) bool {
	_, ok := c.lookup(key)
	return ok
}

// Ticker returns the ticker field, or "" when missing
func (c Candidate) Ticker() string {
	raw, ok := c.lookup("ticker")
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if trimmed := strings.TrimSpace(string(raw)); trimmed != "null" && trimmed != "false" {
		return strings.Trim(trimmed, `"`)
	}
	return ""
}

// Number returns key as a float; missing, null or unparsable values are 0
func (c Candidate) Number(key string) float64 {
	raw, ok := c.lookup(key)
	if !ok {
		return 0
	}
	v, _ := NumberFromJSON(raw)
	return v
}

// DipScore returns the explicit dip_score when present and not null
func (c Candidate) DipScore() (float64, bool) {
	raw, ok := c.lookup("dip_score")
	if !ok {
		return 0, false
	}
	if strings.TrimSpace(string(raw)) == "null" {
		return 0, false
	}
	v, _ := NumberFromJSON(raw)
	return v, true
}

// MarshalJSON writes the fields in their original order
func (c Candidate) MarshalJSON() ([]byte, error) {
	return marshalFields(c.fields)
}

// UnmarshalJSON accepts any JSON object
func (c *Candidate) UnmarshalJSON(data []byte) error {
	c.fields = nil
	return DecodeOrderedObject(data, func(key string, raw json.RawMessage) error {
		cp := make(json.RawMessage, len(raw))
		copy(cp, raw)
		for i := range c.fields {
			if c.fields[i].key == key {
				c.fields[i].raw = cp
				return nil
			}
		}
		c.fields = append(c.fields, candidateField{key: key, raw: cp})
		return nil
	})
}

// CandidateScore is a ranked candidate: the input fields plus the scores
type CandidateScore struct {
	Candidate Candidate
	DipBonus  float64
	BaseScore float64
	Score     float64
}

// MarshalJSON writes the candidate fields followed by dip_bonus, base_score
// and score. A candidate field with one of those names is replaced in place.
func (s CandidateScore) MarshalJSON() ([]byte, error) {
	out := &Candidate{fields: append([]candidateField(nil), s.Candidate.fields...)}
	out.Set("dip_bonus", s.DipBonus)
	out.Set("base_score", s.BaseScore)
	out.Set("score", s.Score)
	return marshalFields(out.fields)
}

func marshalFields(fields []candidateField) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(f.key)
		if err != nil {
			return nil, fmt.Errorf("marshal key: %w", err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(f.raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
