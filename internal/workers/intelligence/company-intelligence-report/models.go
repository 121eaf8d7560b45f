package companyintelligencereport

import "company-intel/internal/models"

type Input struct {
	Company string `json:"company"`
}

// Output mirrors models.Report in the camelCase the process variables use.
type Output struct {
	RunID    string                 `json:"runId"`
	Company  string                 `json:"company"`
	Status   string                 `json:"status"`
	RawData  string                 `json:"rawData"`
	Analysis string                 `json:"analysis"`
	Memory   []models.MemoryMessage `json:"memory,omitempty"`
	Sources  []string               `json:"sources,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

func outputFrom(r *models.Report) *Output {
	return &Output{
		RunID:    r.RunID,
		Company:  r.Company,
		Status:   string(r.Status),
		RawData:  r.RawData,
		Analysis: r.Analysis,
		Memory:   r.Memory,
		Sources:  r.Sources,
		Error:    r.Error,
	}
}
