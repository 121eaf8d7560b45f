// internal/common/camunda/worker.go
package camunda

import (
	"time"

	"company-intel/internal/common/config"
	"company-intel/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// JobWorkerFactory is the part of zbc.Client needed to open workers.
type JobWorkerFactory interface {
	NewJobWorker() worker.JobWorkerBuilderStep1
}

// StartWorker opens a job worker for taskType. It returns nil when the
// worker is disabled in config.
func StartWorker(client JobWorkerFactory, taskType string, wcfg config.WorkerConfig, handler worker.JobHandler, log logger.Logger) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}

	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(handler).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Name(taskType).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return jobWorker
}
