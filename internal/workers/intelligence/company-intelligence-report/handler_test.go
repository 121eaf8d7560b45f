// internal/workers/intelligence/company-intelligence-report/handler_test.go
package companyintelligencereport

import (
	"context"
	"testing"
	"time"

	"company-intel/internal/common/errors"
	"company-intel/internal/common/logger"
	"company-intel/internal/models"
	"company-intel/internal/orchestrator"
	"company-intel/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	report *models.Report
	err    error
	got    string
}

func (f *fakeRunner) Run(ctx context.Context, company string) (*models.Report, error) {
	f.got = company
	return f.report, f.err
}

func createTestConfig(t *testing.T) *Config {
	act, err := registry.MustDefault().Find(TaskType)
	require.NoError(t, err)
	return LoadConfig(act)
}

func TestLoadConfig(t *testing.T) {
	assert.Equal(t, 120*time.Second, createTestConfig(t).Timeout)
	assert.Equal(t, 120*time.Second, LoadConfig(nil).Timeout)
}

func TestHandler_Execute_Success(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	runner := &fakeRunner{report: &models.Report{
		RunID:    "run-1",
		Company:  "Acme",
		Status:   models.StatusCompleted,
		RawData:  "raw",
		Analysis: "Outlook: positive",
		Memory: []models.MemoryMessage{
			{Role: models.RoleHuman, Content: "Collected data for Acme"},
			{Role: models.RoleAI, Content: "raw"},
		},
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
	}}
	h := NewHandler(createTestConfig(t), runner, nil, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{Company: "Acme"})
	require.NoError(t, err)

	assert.Equal(t, "Acme", runner.got)
	assert.Equal(t, "run-1", out.RunID)
	assert.Equal(t, "completed", out.Status)
	assert.Equal(t, "Outlook: positive", out.Analysis)
	assert.Len(t, out.Memory, 2)
	assert.Empty(t, out.Error)
}

func TestHandler_Execute_FailedRun(t *testing.T) {
	runner := &fakeRunner{
		report: &models.Report{RunID: "run-2", Status: models.StatusInvalidRequest, Error: "Invalid company name provided"},
		err:    errors.NewInvalidCompanyError(""),
	}
	h := NewHandler(createTestConfig(t), runner, nil, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{Company: "Acme"})
	assert.Nil(t, out)
	require.Error(t, err)

	bpmn := errors.ConvertToBPMNError(errors.NormalizeError(err))
	assert.Equal(t, "INVALID_COMPANY", bpmn.Code)
	assert.Zero(t, bpmn.Retries)
}

func TestParseInput(t *testing.T) {
	schema := createTestConfig(t).InputSchema

	input, err := ParseInput(`{"company":"Soulpage IT Solutions"}`, schema)
	require.NoError(t, err)
	assert.Equal(t, "Soulpage IT Solutions", input.Company)

	_, err = ParseInput(`{}`, schema)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInputValidationFailed))
}

var _ Runner = (*orchestrator.Orchestrator)(nil)
