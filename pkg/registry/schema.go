// pkg/registry/schema.go
package registry

import (
	"fmt"
	"time"
)

type ActivityRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Activities  []Activity `json:"activities"`
}

type Activity struct {
	ID                   string                 `json:"id"`
	DisplayName          string                 `json:"displayName"`
	Description          string                 `json:"description"`
	Category             string                 `json:"category"`
	Version              string                 `json:"version"`
	TaskType             string                 `json:"taskType"`
	ImplementationStatus string                 `json:"implementationStatus"`
	InputSchema          map[string]interface{} `json:"inputSchema"`
	OutputSchema         map[string]interface{} `json:"outputSchema"`
	ErrorCodes           []string               `json:"errorCodes"`
	Timeout              string                 `json:"timeout"`
	Retries              int                    `json:"retries"`
	Workflows            []string               `json:"workflows"`
	Tags                 []string               `json:"tags"`
}

// Find returns the activity registered for taskType.
func (r *ActivityRegistry) Find(taskType string) (*Activity, error) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], nil
		}
	}
	return nil, fmt.Errorf("activity %q not registered", taskType)
}

// TimeoutDuration parses Timeout, falling back to def when it is empty or
// malformed.
func (a *Activity) TimeoutDuration(def time.Duration) time.Duration {
	if a == nil || a.Timeout == "" {
		return def
	}
	d, err := time.ParseDuration(a.Timeout)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// HasErrorCode reports whether code is declared for the activity.
func (a *Activity) HasErrorCode(code string) bool {
	for _, c := range a.ErrorCodes {
		if c == code {
			return true
		}
	}
	return false
}
