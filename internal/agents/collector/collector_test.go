package collector

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"company-intel/internal/common/config"
	"company-intel/internal/common/database"
	"company-intel/internal/common/errors"
	"company-intel/internal/common/logger"
	"company-intel/internal/llm"
	"company-intel/internal/models"
	"company-intel/internal/search"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []string
}

func (f *fakeCompleter) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, req.Messages[len(req.Messages)-1].Content)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.answer}, nil
}

func (f *fakeCompleter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type fakeSearcher struct {
	sources []models.Source
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, company string) ([]models.Source, error) {
	return f.sources, f.err
}

const structuredAnswer = "```json\n{\"company\": \"Acme\", \"recent_news\": [\"Acme opens new plant\"], \"stock_performance\": {\"change\": \"+3%\"}, \"key_events\": []}\n```"

func newRedisCache(t *testing.T) (*miniredis.Miniredis, *database.RedisClient) {
	mr := miniredis.RunT(t)
	rc, err := database.NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { rc.Close() })
	return mr, rc
}

func TestCollect_InvalidCompany(t *testing.T) {
	llmFake := &fakeCompleter{answer: "{}"}
	agent := New(Config{}, llmFake, logger.NewTestLogger(t))

	for _, company := range []string{"", "   ", "\t\n"} {
		_, err := agent.Collect(context.Background(), models.NewQuery(company))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidCompany)
		assert.Equal(t, "Invalid company name provided: company name is empty", errors.Describe(err))
	}
	assert.Equal(t, 0, llmFake.calls())
}

func TestCollect_StructuredAnswer(t *testing.T) {
	llmFake := &fakeCompleter{answer: structuredAnswer}
	agent := New(Config{}, llmFake, logger.NewTestLogger(t))

	data, err := agent.Collect(context.Background(), models.NewQuery("  Acme "))
	require.NoError(t, err)

	assert.Equal(t, "Acme", data.Company)
	assert.Equal(t, structuredAnswer, data.Raw)
	assert.True(t, data.Structured)
	assert.JSONEq(t, `{"company": "Acme", "recent_news": ["Acme opens new plant"], "stock_performance": {"change": "+3%"}, "key_events": []}`, string(data.Parsed))
	assert.False(t, data.CollectedAt.IsZero())

	require.Len(t, llmFake.prompts, 1)
	prompt := llmFake.prompts[0]
	assert.Contains(t, prompt, "for the company: Acme")
	assert.Contains(t, prompt, "recent news, stock performance, and key events")
	assert.Contains(t, prompt, "generate realistic dummy data")
	assert.NotContains(t, prompt, "web results")
}

func TestCollect_UnstructuredAnswer(t *testing.T) {
	tests := []struct {
		name   string
		answer string
	}{
		{name: "prose", answer: "Acme had a quiet quarter."},
		{name: "json array", answer: `["a", "b"]`},
		{name: "schema mismatch", answer: `{"recent_news": "not a list"}`},
		{name: "broken json", answer: `{"company": "Acme"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent := New(Config{}, &fakeCompleter{answer: tt.answer}, logger.NewTestLogger(t))
			data, err := agent.Collect(context.Background(), models.NewQuery("Acme"))
			require.NoError(t, err)
			assert.Equal(t, tt.answer, data.Raw)
			assert.False(t, data.Structured)
			assert.Nil(t, data.Parsed)
		})
	}
}

func TestCollect_LLMFailure(t *testing.T) {
	cause := fmt.Errorf("%w: context deadline exceeded", llm.ErrLLMTimeout)
	agent := New(Config{}, &fakeCompleter{err: cause}, logger.NewTestLogger(t))

	data, err := agent.Collect(context.Background(), models.NewQuery("Acme"))
	assert.Nil(t, data)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDataCollectionFailed)
	assert.ErrorIs(t, err, llm.ErrLLMTimeout)
	assert.Equal(t, "Error collecting data for Acme: LLM_TIMEOUT: context deadline exceeded", errors.Describe(err))
}

func TestCollect_EmptyAnswer(t *testing.T) {
	mr, rc := newRedisCache(t)
	agent := New(Config{CacheTTL: time.Hour}, &fakeCompleter{answer: "  "}, logger.NewTestLogger(t), WithCache(rc))

	data, err := agent.Collect(context.Background(), models.NewQuery("Acme"))
	require.NoError(t, err)
	assert.Equal(t, "Acme", data.Company)
	assert.Equal(t, "  ", data.Raw)
	assert.True(t, data.Empty())
	assert.False(t, data.Structured)
	assert.False(t, mr.Exists("intel:collected:acme"))
}

func TestCollect_WithSearchSources(t *testing.T) {
	llmFake := &fakeCompleter{answer: structuredAnswer}
	searcher := &fakeSearcher{sources: []models.Source{
		{Title: "Acme 10-K", URL: "https://www.sec.gov/acme", Snippet: "Annual report", Relevance: 1.2},
	}}
	agent := New(Config{}, llmFake, logger.NewTestLogger(t), WithSearcher(searcher))

	data, err := agent.Collect(context.Background(), models.NewQuery("Acme"))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://www.sec.gov/acme"}, data.SourceURLs())
	assert.Contains(t, llmFake.prompts[0], "- Acme 10-K (https://www.sec.gov/acme): Annual report")
}

func TestCollect_SearchFailureDegrades(t *testing.T) {
	for _, searchErr := range []error{
		fmt.Errorf("%w: deadline", search.ErrWebSearchTimeout),
		stderrors.New("search API: status 500"),
	} {
		llmFake := &fakeCompleter{answer: "plain text"}
		agent := New(Config{}, llmFake, logger.NewTestLogger(t), WithSearcher(&fakeSearcher{err: searchErr}))

		data, err := agent.Collect(context.Background(), models.NewQuery("Acme"))
		require.NoError(t, err)
		assert.Empty(t, data.Sources)
		assert.Equal(t, 1, llmFake.calls())
	}
}

func TestCollect_CacheHit(t *testing.T) {
	mr, rc := newRedisCache(t)
	llmFake := &fakeCompleter{answer: structuredAnswer}
	agent := New(Config{CacheTTL: time.Hour}, llmFake, logger.NewTestLogger(t), WithCache(rc))

	first, err := agent.Collect(context.Background(), models.NewQuery("Acme  Corp"))
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.True(t, mr.Exists("intel:collected:acme corp"))
	assert.Equal(t, time.Hour, mr.TTL("intel:collected:acme corp"))

	second, err := agent.Collect(context.Background(), models.NewQuery("acme corp"))
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Raw, second.Raw)
	assert.True(t, second.Structured)
	assert.Equal(t, 1, llmFake.calls())

	mr.FastForward(2 * time.Hour)
	_, err = agent.Collect(context.Background(), models.NewQuery("Acme Corp"))
	require.NoError(t, err)
	assert.Equal(t, 2, llmFake.calls())
}

func TestCollect_CacheErrorsOnlyLog(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectGet("intel:collected:acme").SetErr(stderrors.New("connection refused"))
	mock.Regexp().ExpectSet("intel:collected:acme", `.+`, time.Minute).SetErr(stderrors.New("connection refused"))

	llmFake := &fakeCompleter{answer: "plain text"}
	agent := New(Config{CacheTTL: time.Minute}, llmFake, logger.NewTestLogger(t),
		WithCache(database.NewRedisFromClient(client)))

	data, err := agent.Collect(context.Background(), models.NewQuery("Acme"))
	require.NoError(t, err)
	assert.Equal(t, "plain text", data.Raw)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStripCodeFence(t *testing.T) {
	tests := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}```":       `{"a":1}`,
		"  {\"a\":1}  ":           `{"a":1}`,
		"```":                     "",
		"plain":                   "plain",
	}
	for in, want := range tests {
		assert.Equal(t, want, StripCodeFence(in), strings.ReplaceAll(in, "\n", `\n`))
	}
}
