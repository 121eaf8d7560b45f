// internal/models/intelligence.go
package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Query is the company name a pipeline run is about.
type Query struct {
	Company string `json:"company"`
}

// NewQuery trims surrounding whitespace from the company name.
func NewQuery(company string) Query {
	return Query{Company: strings.TrimSpace(company)}
}

// Valid reports whether the query names a company.
func (q Query) Valid() bool {
	return strings.TrimSpace(q.Company) != ""
}

// CacheKey is the normalized form used for cache lookups: lower case with
// inner whitespace collapsed.
func (q Query) CacheKey() string {
	return strings.ToLower(strings.Join(strings.Fields(q.Company), " "))
}

// Source is a web page used to ground the collector prompt.
type Source struct {
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Snippet   string  `json:"snippet,omitempty"`
	Relevance float64 `json:"relevance"`
}

// CollectedData is the collector's output. Raw is the LLM text as returned;
// Parsed holds it decoded when it was a JSON object.
type CollectedData struct {
	Company     string          `json:"company"`
	Raw         string          `json:"raw"`
	Parsed      json.RawMessage `json:"parsed,omitempty"`
	Structured  bool            `json:"structured"`
	Sources     []Source        `json:"sources,omitempty"`
	CollectedAt time.Time       `json:"collected_at"`
	Cached      bool            `json:"-"`
}

// Empty reports whether there is nothing to analyze.
func (d *CollectedData) Empty() bool {
	return d == nil || strings.TrimSpace(d.Raw) == ""
}

// SourceURLs lists the URLs of the sources in order.
func (d *CollectedData) SourceURLs() []string {
	if d == nil {
		return nil
	}
	urls := make([]string, 0, len(d.Sources))
	for _, s := range d.Sources {
		urls = append(urls, s.URL)
	}
	return urls
}

// Insight is the analyst's output.
type Insight struct {
	Company     string    `json:"company"`
	Analysis    string    `json:"analysis"`
	GeneratedAt time.Time `json:"generated_at"`
}

type MessageRole string

const (
	RoleHuman MessageRole = "human"
	RoleAI    MessageRole = "ai"
)

// MemoryMessage is one turn of the orchestrator's conversation memory.
type MemoryMessage struct {
	Role      MessageRole `json:"role" db:"role"`
	Content   string      `json:"content" db:"content"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

type ReportStatus string

const (
	StatusCompleted        ReportStatus = "completed"
	StatusCollectionFailed ReportStatus = "collection_failed"
	StatusAnalysisFailed   ReportStatus = "analysis_failed"
	StatusInvalidRequest   ReportStatus = "invalid_request"
)

// Report is the result of one orchestrator run. Fields after the failing
// stage stay empty.
type Report struct {
	RunID      string          `json:"run_id" db:"run_id"`
	Company    string          `json:"company" db:"company"`
	Status     ReportStatus    `json:"status" db:"status"`
	RawData    string          `json:"raw_data" db:"raw_data"`
	Analysis   string          `json:"analysis" db:"analysis"`
	Memory     []MemoryMessage `json:"memory"`
	Error      string          `json:"error" db:"error"`
	Sources    []string        `json:"sources,omitempty" db:"sources"`
	StartedAt  time.Time       `json:"started_at" db:"started_at"`
	FinishedAt time.Time       `json:"finished_at" db:"finished_at"`
}

// Succeeded reports whether both stages completed.
func (r *Report) Succeeded() bool {
	return r != nil && r.Status == StatusCompleted && r.Error == ""
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r == nil || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
