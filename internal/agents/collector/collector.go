// internal/agents/collector/collector.go
package collector

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"company-intel/internal/common/database"
	"company-intel/internal/common/errors"
	"company-intel/internal/common/logger"
	"company-intel/internal/common/metrics"
	"company-intel/internal/common/validation"
	"company-intel/internal/llm"
	"company-intel/internal/models"
	"company-intel/internal/search"
)

const (
	AgentName      = "collector"
	cacheKeyPrefix = "intel:collected:"
)

var (
	ErrInvalidCompany       = stderrors.New("INVALID_COMPANY")
	ErrDataCollectionFailed = stderrors.New("DATA_COLLECTION_FAILED")
)

var (
	//go:embed prompts/collector.tmpl
	promptText string
	//go:embed prompts/collected_data.schema.json
	schemaJSON []byte

	promptTemplate = template.Must(template.New("collector").Parse(promptText))
	dataSchema     = validation.MustCompile(schemaJSON)
)

// Cache stores collected data between runs. *database.RedisClient satisfies it.
type Cache interface {
	GetJSON(ctx context.Context, key string, out interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type Config struct {
	CacheTTL time.Duration
}

type Option func(*Agent)

// WithCache enables the collected-data cache.
func WithCache(c Cache) Option {
	return func(a *Agent) { a.cache = c }
}

// WithSearcher enables web search grounding of the prompt.
func WithSearcher(s search.Searcher) Option {
	return func(a *Agent) { a.searcher = s }
}

// Agent gathers recent news, stock performance and key events for a company.
type Agent struct {
	config   Config
	llm      llm.Completer
	cache    Cache
	searcher search.Searcher
	logger   logger.Logger
	now      func() time.Time
}

func New(cfg Config, completer llm.Completer, log logger.Logger, opts ...Option) *Agent {
	a := &Agent{
		config: cfg,
		llm:    completer,
		logger: log.With(map[string]interface{}{"agent": AgentName}),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Collect returns data about the company named by query. A blank query fails
// with ErrInvalidCompany before any LLM call.
func (a *Agent) Collect(ctx context.Context, query models.Query) (*models.CollectedData, error) {
	if !query.Valid() {
		metrics.AgentCalls.WithLabelValues(AgentName, "invalid").Inc()
		return nil, errors.NewInvalidCompanyError("company name is empty")
	}
	company := strings.TrimSpace(query.Company)

	start := a.now()
	defer func() {
		metrics.AgentDuration.WithLabelValues(AgentName).Observe(time.Since(start).Seconds())
	}()

	if cached, ok := a.fromCache(ctx, query); ok {
		metrics.AgentCalls.WithLabelValues(AgentName, "cached").Inc()
		return cached, nil
	}

	sources := a.lookupSources(ctx, company)

	prompt, err := renderPrompt(company, sources)
	if err != nil {
		metrics.AgentCalls.WithLabelValues(AgentName, "failed").Inc()
		return nil, errors.NewDataCollectionFailedError(company, err)
	}

	resp, err := a.llm.Complete(ctx, llm.UserPrompt(prompt))
	if err != nil {
		metrics.AgentCalls.WithLabelValues(AgentName, "failed").Inc()
		a.logger.Error("data collection failed", map[string]interface{}{
			"company": company,
			"error":   err,
		})
		return nil, errors.NewDataCollectionFailedError(company, err)
	}

	data := &models.CollectedData{
		Company:     company,
		Raw:         resp.Content,
		Sources:     sources,
		CollectedAt: a.now().UTC(),
	}
	a.parse(data)

	// An empty answer is passed on as is; the analyst rejects it.
	if data.Empty() {
		a.logger.Warn("collector returned an empty answer", map[string]interface{}{
			"company": company,
		})
	} else {
		a.toCache(ctx, query, data)
	}

	metrics.AgentCalls.WithLabelValues(AgentName, "completed").Inc()
	a.logger.Info("data collected", map[string]interface{}{
		"company":    company,
		"structured": data.Structured,
		"sources":    len(sources),
		"bytes":      len(data.Raw),
	})
	return data, nil
}

func renderPrompt(company string, sources []models.Source) (string, error) {
	var buf bytes.Buffer
	err := promptTemplate.Execute(&buf, struct {
		Company string
		Sources []models.Source
	}{company, sources})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

// parse fills Parsed and Structured when the answer, minus any Markdown code
// fence, is a JSON object matching the collected-data schema.
func (a *Agent) parse(data *models.CollectedData) {
	body := StripCodeFence(data.Raw)
	if !strings.HasPrefix(body, "{") || !json.Valid([]byte(body)) {
		return
	}
	result := dataSchema.ValidateJSON([]byte(body))
	if !result.Valid {
		a.logger.Warn("collected data does not match schema", map[string]interface{}{
			"company": data.Company,
			"errors":  result.Error(),
		})
		return
	}
	data.Parsed = json.RawMessage(body)
	data.Structured = true
}

// StripCodeFence removes a surrounding ``` or ```json fence.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func (a *Agent) lookupSources(ctx context.Context, company string) []models.Source {
	if a.searcher == nil {
		return nil
	}
	sources, err := a.searcher.Search(ctx, company)
	if err != nil {
		fields := map[string]interface{}{"company": company, "error": err}
		if stderrors.Is(err, search.ErrWebSearchTimeout) {
			a.logger.Warn("web search timed out, continuing without sources", fields)
		} else {
			a.logger.Warn("web search failed, continuing without sources", fields)
		}
		return nil
	}
	return sources
}

func cacheKey(query models.Query) string {
	return cacheKeyPrefix + query.CacheKey()
}

func (a *Agent) fromCache(ctx context.Context, query models.Query) (*models.CollectedData, bool) {
	if a.cache == nil {
		return nil, false
	}
	var data models.CollectedData
	err := a.cache.GetJSON(ctx, cacheKey(query), &data)
	switch {
	case err == nil:
		metrics.CollectorCacheLookups.WithLabelValues("hit").Inc()
		data.Cached = true
		a.logger.Debug("collected data served from cache", map[string]interface{}{"company": data.Company})
		return &data, true
	case stderrors.Is(err, database.ErrCacheMiss):
		metrics.CollectorCacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.CollectorCacheLookups.WithLabelValues("error").Inc()
		a.logger.Warn("cache lookup failed", map[string]interface{}{"error": err})
	}
	return nil, false
}

func (a *Agent) toCache(ctx context.Context, query models.Query, data *models.CollectedData) {
	if a.cache == nil || a.config.CacheTTL <= 0 {
		return
	}
	if err := a.cache.SetJSON(ctx, cacheKey(query), data, a.config.CacheTTL); err != nil {
		a.logger.Warn("cache store failed", map[string]interface{}{"error": err})
	}
}
