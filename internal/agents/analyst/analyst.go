// internal/agents/analyst/analyst.go
package analyst

import (
	"bytes"
	"context"
	_ "embed"
	stderrors "errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"company-intel/internal/common/errors"
	"company-intel/internal/common/logger"
	"company-intel/internal/common/metrics"
	"company-intel/internal/llm"
	"company-intel/internal/models"
)

const AgentName = "analyst"

var (
	ErrNoCompanyData  = stderrors.New("NO_COMPANY_DATA")
	ErrAnalysisFailed = stderrors.New("ANALYSIS_FAILED")
)

var (
	//go:embed prompts/analyst.tmpl
	promptText     string
	promptTemplate = template.Must(template.New("analyst").Parse(promptText))
)

// Agent turns collected data into a situation, opportunities, risks and
// outlook summary.
type Agent struct {
	llm    llm.Completer
	logger logger.Logger
	now    func() time.Time
}

func New(completer llm.Completer, log logger.Logger) *Agent {
	return &Agent{
		llm:    completer,
		logger: log.With(map[string]interface{}{"agent": AgentName}),
		now:    time.Now,
	}
}

// Analyze fails with ErrNoCompanyData, without calling the LLM, when data
// carries no raw text.
func (a *Agent) Analyze(ctx context.Context, data *models.CollectedData) (*models.Insight, error) {
	if data.Empty() {
		metrics.AgentCalls.WithLabelValues(AgentName, "invalid").Inc()
		return nil, errors.NewNoCompanyDataError()
	}

	start := a.now()
	defer func() {
		metrics.AgentDuration.WithLabelValues(AgentName).Observe(time.Since(start).Seconds())
	}()

	prompt, err := renderPrompt(data)
	if err != nil {
		metrics.AgentCalls.WithLabelValues(AgentName, "failed").Inc()
		return nil, errors.NewAnalysisFailedError(err)
	}

	resp, err := a.llm.Complete(ctx, llm.UserPrompt(prompt))
	if err != nil {
		metrics.AgentCalls.WithLabelValues(AgentName, "failed").Inc()
		a.logger.Error("analysis failed", map[string]interface{}{
			"company": data.Company,
			"error":   err,
		})
		return nil, errors.NewAnalysisFailedError(err)
	}

	analysis := strings.TrimSpace(resp.Content)
	if analysis == "" {
		metrics.AgentCalls.WithLabelValues(AgentName, "failed").Inc()
		return nil, errors.NewAnalysisFailedError(fmt.Errorf("%w: empty response", ErrAnalysisFailed))
	}

	metrics.AgentCalls.WithLabelValues(AgentName, "completed").Inc()
	a.logger.Info("analysis completed", map[string]interface{}{
		"company": data.Company,
		"bytes":   len(analysis),
	})

	return &models.Insight{
		Company:     data.Company,
		Analysis:    analysis,
		GeneratedAt: a.now().UTC(),
	}, nil
}

func renderPrompt(data *models.CollectedData) (string, error) {
	var buf bytes.Buffer
	err := promptTemplate.Execute(&buf, struct {
		CompanyData string
		Sources     []string
	}{data.Raw, data.SourceURLs()})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}
