package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// Entry is one platform's line in a report.
type Entry struct {
	Platform  string  `json:"-"`
	Name      string  `json:"name"`
	URL       string  `json:"url"`
	Available *bool   `json:"available"`
	Verdict   Verdict `json:"verdict"`
	Cause     Cause   `json:"cause,omitempty"`
	Detail    string  `json:"detail,omitempty"`
	LatencyMS float64 `json:"latency_ms"`
}

// Report is the answer to one availability request. It is built per request
// and never stored.
type Report struct {
	ID             string
	Username       string
	CatalogVersion string
	CheckedAt      time.Time
	Entries        []Entry
}

// Verdicts returns platform id -> verdict.
func (r *Report) Verdicts() map[string]Verdict {
	out := make(map[string]Verdict, len(r.Entries))
	for _, e := range r.Entries {
		out[e.Platform] = e.Verdict
	}
	return out
}

// MarshalJSON writes platforms as an object whose keys keep catalog order.
func (r Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	head, err := json.Marshal(struct {
		ID             string    `json:"id"`
		Username       string    `json:"username"`
		CatalogVersion string    `json:"catalog_version,omitempty"`
		CheckedAt      time.Time `json:"checked_at"`
	}{r.ID, r.Username, r.CatalogVersion, r.CheckedAt})
	if err != nil {
		return nil, err
	}
	buf.Write(head[:len(head)-1])
	buf.WriteString(`,"platforms":{`)
	for i, e := range r.Entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(e.Platform)
		v, err := json.Marshal(e)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}
