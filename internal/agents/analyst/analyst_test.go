package analyst

import (
	"context"
	"errors"
	"fmt"
	"testing"

	commonerrors "company-intel/internal/common/errors"
	"company-intel/internal/common/logger"
	"company-intel/internal/llm"
	"company-intel/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	answer  string
	err     error
	prompts []string
}

func (f *fakeCompleter) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	f.prompts = append(f.prompts, req.Messages[0].Content)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.answer}, nil
}

func TestAnalyze_Success(t *testing.T) {
	llmFake := &fakeCompleter{answer: "\n1. Situation: steady\n4. Outlook: positive\n"}
	agent := New(llmFake, logger.NewTestLogger(t))

	data := &models.CollectedData{
		Company: "Acme",
		Raw:     `{"recent_news": ["Acme opens new plant"]}`,
		Sources: []models.Source{{URL: "https://www.sec.gov/acme"}},
	}
	insight, err := agent.Analyze(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, "Acme", insight.Company)
	assert.Equal(t, "1. Situation: steady\n4. Outlook: positive", insight.Analysis)
	assert.False(t, insight.GeneratedAt.IsZero())

	require.Len(t, llmFake.prompts, 1)
	prompt := llmFake.prompts[0]
	assert.Contains(t, prompt, "You are a Financial Analyst Agent.")
	assert.Contains(t, prompt, `{"recent_news": ["Acme opens new plant"]}`)
	assert.Contains(t, prompt, "- https://www.sec.gov/acme")
	for _, step := range []string{
		"1. Summarize the current business situation",
		"2. Identify growth opportunities",
		"3. Identify risks",
		"4. Provide an overall outlook",
	} {
		assert.Contains(t, prompt, step)
	}
}

func TestAnalyze_NoData(t *testing.T) {
	llmFake := &fakeCompleter{answer: "unused"}
	agent := New(llmFake, logger.NewTestLogger(t))

	for _, data := range []*models.CollectedData{nil, {Company: "Acme"}, {Company: "Acme", Raw: "  "}} {
		insight, err := agent.Analyze(context.Background(), data)
		assert.Nil(t, insight)
		assert.ErrorIs(t, err, ErrNoCompanyData)
		assert.Equal(t, "No company data provided for analysis", commonerrors.Describe(err))
	}
	assert.Empty(t, llmFake.prompts)
}

func TestAnalyze_LLMFailure(t *testing.T) {
	cause := fmt.Errorf("%w: status 500", llm.ErrLLMRequestFailed)
	agent := New(&fakeCompleter{err: cause}, logger.NewTestLogger(t))

	_, err := agent.Analyze(context.Background(), &models.CollectedData{Company: "Acme", Raw: "data"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAnalysisFailed)
	assert.True(t, errors.Is(err, llm.ErrLLMRequestFailed))
	assert.Equal(t, "Error analyzing company data: LLM_REQUEST_FAILED: status 500", commonerrors.Describe(err))
}

func TestAnalyze_BlankAnswer(t *testing.T) {
	agent := New(&fakeCompleter{answer: " \n "}, logger.NewTestLogger(t))
	_, err := agent.Analyze(context.Background(), &models.CollectedData{Company: "Acme", Raw: "data"})
	assert.ErrorIs(t, err, ErrAnalysisFailed)
}
