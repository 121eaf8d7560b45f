package companyintelligencereport

import (
	"time"

	"company-intel/pkg/registry"
)

type Config struct {
	Timeout     time.Duration
	InputSchema map[string]interface{}
}

// LoadConfig takes the execution timeout and input schema from the
// registered activity.
func LoadConfig(activity *registry.Activity) *Config {
	cfg := &Config{Timeout: activity.TimeoutDuration(120 * time.Second)}
	if activity != nil {
		cfg.InputSchema = activity.InputSchema
	}
	return cfg
}
