// Package errors provides standardized error handling for the intelligence
// pipeline and its BPMN workflow integration.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidCompany         ErrorCode = "INVALID_COMPANY"
	ErrCodeNoCompanyData          ErrorCode = "NO_COMPANY_DATA"
	ErrCodeDataCollectionFailed   ErrorCode = "DATA_COLLECTION_FAILED"
	ErrCodeAnalysisFailed         ErrorCode = "ANALYSIS_FAILED"
	ErrCodeLLMTimeout             ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMRequestFailed       ErrorCode = "LLM_REQUEST_FAILED"
	ErrCodeWebSearchTimeout       ErrorCode = "WEB_SEARCH_TIMEOUT"
	ErrCodeInputValidationFailed  ErrorCode = "INPUT_VALIDATION_FAILED"
	ErrCodeReportPersistFailed    ErrorCode = "REPORT_PERSIST_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeExternalService        ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout                ErrorCode = "TIMEOUT_ERROR"
	ErrCodeResourceNotFound       ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeAuthentication         ErrorCode = "AUTHENTICATION_ERROR"
	ErrCodeBusinessRuleViolation  ErrorCode = "BUSINESS_RULE_VIOLATION"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
}

// Unwrap exposes the underlying sentinel so errors.Is keeps working.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches package sentinels declared as errors.New(<code>), so
// errors.Is(err, collector.ErrInvalidCompany) holds for the StandardError
// built for that code.
func (e *StandardError) Is(target error) bool {
	if target == nil {
		return false
	}
	if other, ok := target.(*StandardError); ok {
		return other.Code == e.Code
	}
	return target.Error() == string(e.Code)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewInvalidCompanyError creates a non-retryable query validation error.
func NewInvalidCompanyError(details string) *StandardError {
	return newError(ErrCodeInvalidCompany, "Invalid company name provided", details, false, nil)
}

// NewNoCompanyDataError creates a non-retryable error for an empty analyst input.
func NewNoCompanyDataError() *StandardError {
	return newError(ErrCodeNoCompanyData, "No company data provided for analysis", "", false, nil)
}

// NewDataCollectionFailedError creates a retryable collector error.
func NewDataCollectionFailedError(company string, err error) *StandardError {
	return newError(ErrCodeDataCollectionFailed,
		fmt.Sprintf("Error collecting data for %s", company), err.Error(), true, err)
}

// NewAnalysisFailedError creates a retryable analyst error.
func NewAnalysisFailedError(err error) *StandardError {
	return newError(ErrCodeAnalysisFailed, "Error analyzing company data", err.Error(), true, err)
}

// NewLLMTimeoutError creates a retryable LLM timeout error.
func NewLLMTimeoutError(err error) *StandardError {
	return newError(ErrCodeLLMTimeout, "LLM call timed out", err.Error(), true, err)
}

// NewLLMRequestFailedError creates a retryable LLM API error.
func NewLLMRequestFailedError(err error) *StandardError {
	return newError(ErrCodeLLMRequestFailed, "LLM API error", err.Error(), true, err)
}

// NewWebSearchTimeoutError creates a non-retryable web search timeout error;
// callers degrade to an empty result instead.
func NewWebSearchTimeoutError(err error) *StandardError {
	return newError(ErrCodeWebSearchTimeout, "Web search API timeout", err.Error(), false, err)
}

// NewInputValidationFailedError creates a non-retryable job input error.
func NewInputValidationFailedError(details string) *StandardError {
	return newError(ErrCodeInputValidationFailed, "Job input failed schema validation", details, false, nil)
}

// NewReportPersistFailedError creates a retryable report storage error.
func NewReportPersistFailedError(sink string, err error) *StandardError {
	return newError(ErrCodeReportPersistFailed, "Report persistence failed",
		fmt.Sprintf("sink: %s, error: %s", sink, err.Error()), true, err)
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("channel: %s, error: %s", channel, err.Error()), true, err)
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return newError(ErrCodeBusinessRuleViolation, message, details, false, nil)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service), err.Error(), true, err)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), err.Error(), true, err)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return newError(ErrCodeResourceNotFound, fmt.Sprintf("Resource not found in %s", service), details, false, nil)
}

func NewAuthenticationError(details string) *StandardError {
	return newError(ErrCodeAuthentication, "Authentication failed", details, false, nil)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to the codes caught by boundary
// events in the intelligence process model.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidCompany:         "INVALID_COMPANY",
	ErrCodeNoCompanyData:          "NO_COMPANY_DATA",
	ErrCodeDataCollectionFailed:   "DATA_COLLECTION_FAILED",
	ErrCodeAnalysisFailed:         "ANALYSIS_FAILED",
	ErrCodeLLMTimeout:             "LLM_TIMEOUT",
	ErrCodeLLMRequestFailed:       "LLM_REQUEST_FAILED",
	ErrCodeWebSearchTimeout:       "WEB_SEARCH_TIMEOUT",
	ErrCodeInputValidationFailed:  "INPUT_VALIDATION_FAILED",
	ErrCodeReportPersistFailed:    "REPORT_PERSIST_FAILED",
	ErrCodeNotificationSendFailed: "NOTIFICATION_SEND_FAILED",
}

var codeMessages = map[ErrorCode]string{
	ErrCodeInvalidCompany:         "Invalid company name provided",
	ErrCodeNoCompanyData:          "No company data provided for analysis",
	ErrCodeDataCollectionFailed:   "Error collecting data",
	ErrCodeAnalysisFailed:         "Error analyzing company data",
	ErrCodeLLMTimeout:             "LLM call timed out",
	ErrCodeLLMRequestFailed:       "LLM API error",
	ErrCodeWebSearchTimeout:       "Web search API timeout",
	ErrCodeInputValidationFailed:  "Job input failed schema validation",
	ErrCodeReportPersistFailed:    "Report persistence failed",
	ErrCodeNotificationSendFailed: "Notification delivery failed",
}

var knownCodes = func() map[ErrorCode]struct{} {
	m := make(map[ErrorCode]struct{}, len(BPMNErrorMapping))
	for code := range BPMNErrorMapping {
		m[code] = struct{}{}
	}
	return m
}()

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDataCollectionFailed,
		ErrCodeAnalysisFailed,
		ErrCodeLLMRequestFailed,
		ErrCodeReportPersistFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeExternalService:
		return 3
	case ErrCodeTimeout:
		return 2
	case ErrCodeLLMTimeout:
		return 1
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}
	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError returns the first StandardError in err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// FromError maps any error onto a StandardError. Sentinels whose text is a
// known code keep that code; context deadlines become timeouts.
func FromError(err error) *StandardError {
	if err == nil {
		return nil
	}
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	for e := err; e != nil; e = stderrors.Unwrap(e) {
		code := ErrorCode(e.Error())
		if _, known := knownCodes[code]; known {
			return newError(code, codeMessages[code], err.Error(), IsRetryableErrorCode(code), err)
		}
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return newError(ErrCodeTimeout, "Operation timed out", err.Error(), true, err)
	}
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

// HasCode reports whether err's chain contains a StandardError with code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if stdErr, ok := err.(*StandardError); ok && stdErr.Code == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// Describe renders the error the way it is shown to users and stored on
// reports: the message followed by the details.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	stdErr, ok := AsStandardError(err)
	if !ok {
		return err.Error()
	}
	if stdErr.Details == "" {
		return stdErr.Message
	}
	return stdErr.Message + ": " + stdErr.Details
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "LLM"):
		return "LLM"
	case strings.Contains(codeStr, "COLLECTION") || strings.Contains(codeStr, "SEARCH"):
		return "COLLECTION"
	case strings.Contains(codeStr, "ANALYSIS") || strings.Contains(codeStr, "COMPANY_DATA"):
		return "ANALYSIS"
	case strings.Contains(codeStr, "PERSIST") || strings.Contains(codeStr, "NOTIFICATION"):
		return "DELIVERY"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "EXTERNAL") || strings.Contains(codeStr, "TIMEOUT"):
		return "INTEGRATION"
	default:
		return "UNKNOWN"
	}
}
