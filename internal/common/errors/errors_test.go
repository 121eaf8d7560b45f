package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = stderrors.New("LLM_TIMEOUT")

func TestConstructors(t *testing.T) {
	tests := []struct {
		name      string
		err       *StandardError
		code      ErrorCode
		retryable bool
		described string
	}{
		{
			name:      "invalid company",
			err:       NewInvalidCompanyError("company is blank"),
			code:      ErrCodeInvalidCompany,
			retryable: false,
			described: "Invalid company name provided: company is blank",
		},
		{
			name:      "no company data",
			err:       NewNoCompanyDataError(),
			code:      ErrCodeNoCompanyData,
			retryable: false,
			described: "No company data provided for analysis",
		},
		{
			name:      "collection failed",
			err:       NewDataCollectionFailedError("Acme Corp", fmt.Errorf("%w: deadline exceeded", errUpstream)),
			code:      ErrCodeDataCollectionFailed,
			retryable: true,
			described: "Error collecting data for Acme Corp: LLM_TIMEOUT: deadline exceeded",
		},
		{
			name:      "analysis failed",
			err:       NewAnalysisFailedError(stderrors.New("status 500")),
			code:      ErrCodeAnalysisFailed,
			retryable: true,
			described: "Error analyzing company data: status 500",
		},
		{
			name:      "persist failed",
			err:       NewReportPersistFailedError("postgres", stderrors.New("connection refused")),
			code:      ErrCodeReportPersistFailed,
			retryable: true,
			described: "Report persistence failed: sink: postgres, error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.retryable, tt.err.Retryable)
			assert.Equal(t, tt.described, Describe(tt.err))
			assert.False(t, tt.err.Timestamp.IsZero())
			assert.Contains(t, tt.err.Error(), string(tt.code))
		})
	}
}

func TestUnwrapAndHasCode(t *testing.T) {
	err := fmt.Errorf("worker: %w", NewDataCollectionFailedError("Acme", fmt.Errorf("%w: boom", errUpstream)))

	assert.True(t, stderrors.Is(err, errUpstream))
	assert.True(t, HasCode(err, ErrCodeDataCollectionFailed))
	assert.False(t, HasCode(err, ErrCodeAnalysisFailed))

	stdErr, ok := AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeDataCollectionFailed, stdErr.Code)

	assert.Equal(t, "plain", Describe(stderrors.New("plain")))
	assert.Equal(t, "", Describe(nil))
}

func TestGetRetryCount(t *testing.T) {
	assert.Equal(t, 3, GetRetryCount(ErrCodeDataCollectionFailed))
	assert.Equal(t, 3, GetRetryCount(ErrCodeAnalysisFailed))
	assert.Equal(t, 1, GetRetryCount(ErrCodeLLMTimeout))
	assert.Equal(t, 2, GetRetryCount(ErrCodeTimeout))
	assert.Equal(t, 0, GetRetryCount(ErrCodeInvalidCompany))
	assert.True(t, IsRetryableErrorCode(ErrCodeReportPersistFailed))
	assert.False(t, IsRetryableErrorCode(ErrCodeInputValidationFailed))
}

func TestConvertToBPMNError(t *testing.T) {
	bpmn := ConvertToBPMNError(NewAnalysisFailedError(stderrors.New("empty answer")))
	assert.Equal(t, "ANALYSIS_FAILED", bpmn.Code)
	assert.Equal(t, 3, bpmn.Retries)
	assert.True(t, bpmn.Retryable)

	vars := bpmn.ToErrorVariables()
	assert.Equal(t, "ANALYSIS_FAILED", vars["errorCode"])
	assert.Equal(t, "ANALYSIS_FAILED", vars["originalErrorCode"])
	assert.Equal(t, "empty answer", vars["errorDetails"])

	unmapped := ConvertToBPMNError(NewExternalServiceError("zeebe", stderrors.New("unavailable")))
	assert.Equal(t, "EXTERNAL_SERVICE_ERROR", unmapped.Code)

	nonRetryable := ConvertToBPMNError(NewWebSearchTimeoutError(stderrors.New("deadline")))
	assert.Equal(t, 0, nonRetryable.Retries)
}

func TestNormalizeError(t *testing.T) {
	stdErr := NormalizeError(stderrors.New("nil pointer"))
	assert.Equal(t, ErrCodeInternal, stdErr.Code)
	assert.False(t, stdErr.Retryable)

	original := NewInvalidCompanyError("")
	assert.Same(t, original, NormalizeError(fmt.Errorf("wrapped: %w", original)))
}

func TestRetriesFor(t *testing.T) {
	bpmn := &BPMNError{Retries: 3}

	job := entities.Job{ActivatedJob: &pb.ActivatedJob{Retries: 5}}
	assert.Equal(t, int32(3), RetriesFor(job, bpmn))

	job = entities.Job{ActivatedJob: &pb.ActivatedJob{Retries: 2}}
	assert.Equal(t, int32(1), RetriesFor(job, bpmn))

	job = entities.Job{ActivatedJob: &pb.ActivatedJob{Retries: 1}}
	assert.Equal(t, int32(0), RetriesFor(job, bpmn))
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "LLM", GetErrorCategory(ErrCodeLLMTimeout))
	assert.Equal(t, "COLLECTION", GetErrorCategory(ErrCodeDataCollectionFailed))
	assert.Equal(t, "COLLECTION", GetErrorCategory(ErrCodeWebSearchTimeout))
	assert.Equal(t, "ANALYSIS", GetErrorCategory(ErrCodeNoCompanyData))
	assert.Equal(t, "DELIVERY", GetErrorCategory(ErrCodeNotificationSendFailed))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidCompany))
	assert.Equal(t, "INTEGRATION", GetErrorCategory(ErrCodeExternalService))
	assert.Equal(t, "UNKNOWN", GetErrorCategory(ErrCodeInternal))
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	sentinel := stderrors.New("LLM_REQUEST_FAILED")
	stdErr := FromError(fmt.Errorf("%w: status 503", sentinel))
	assert.Equal(t, ErrCodeLLMRequestFailed, stdErr.Code)
	assert.Equal(t, "LLM API error", stdErr.Message)
	assert.Equal(t, "LLM_REQUEST_FAILED: status 503", stdErr.Details)
	assert.True(t, stdErr.Retryable)
	assert.ErrorIs(t, stdErr, sentinel)

	timeout := FromError(fmt.Errorf("search: %w", context.DeadlineExceeded))
	assert.Equal(t, ErrCodeTimeout, timeout.Code)

	internal := FromError(stderrors.New("unexpected"))
	assert.Equal(t, ErrCodeInternal, internal.Code)
}

func TestStandardErrorMatchesSentinel(t *testing.T) {
	errInvalidCompany := stderrors.New("INVALID_COMPANY")
	err := fmt.Errorf("collect: %w", NewInvalidCompanyError("blank"))

	assert.ErrorIs(t, err, errInvalidCompany)
	assert.NotErrorIs(t, err, stderrors.New("NO_COMPANY_DATA"))
	assert.ErrorIs(t, err, NewInvalidCompanyError("other details"))
}

func TestStandardError_ErrorIncludesDetails(t *testing.T) {
	err := NewReportPersistFailedError("postgres", stderrors.New("connection reset"))
	assert.Equal(t, "StandardError[REPORT_PERSIST_FAILED]: Report persistence failed: sink: postgres, error: connection reset", err.Error())

	bare := NewNoCompanyDataError()
	assert.Equal(t, "StandardError[NO_COMPANY_DATA]: No company data provided for analysis", bare.Error())
}
