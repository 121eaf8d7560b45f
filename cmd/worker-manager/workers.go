package main

import (
	"fmt"

	"company-intel/internal/app"
	"company-intel/internal/common/camunda"
	"company-intel/internal/common/config"
	"company-intel/internal/common/logger"
	acd "company-intel/internal/workers/intelligence/analyze-company-data"
	ccd "company-intel/internal/workers/intelligence/collect-company-data"
	cir "company-intel/internal/workers/intelligence/company-intelligence-report"
	"company-intel/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// registerWorkers opens a job worker per enabled task type and returns the
// open workers so they can be closed on shutdown.
func registerWorkers(client camunda.JobWorkerFactory, cfg *config.Config, reg *registry.ActivityRegistry, a *app.App, log logger.Logger) ([]worker.JobWorker, error) {
	var open []worker.JobWorker
	start := func(taskType string, handler worker.JobHandler) {
		if w := camunda.StartWorker(client, taskType, config.GetWorkerConfig(cfg, taskType), handler, log); w != nil {
			open = append(open, w)
		}
	}
	activity := func(taskType string) (*registry.Activity, error) {
		act, err := reg.Find(taskType)
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", taskType, err)
		}
		return act, nil
	}

	act, err := activity(ccd.TaskType)
	if err != nil {
		return nil, err
	}
	start(ccd.TaskType, ccd.NewHandler(ccd.LoadConfig(act), a.Collector, a.Obs, log).Handle)

	if act, err = activity(acd.TaskType); err != nil {
		return nil, err
	}
	start(acd.TaskType, acd.NewHandler(acd.LoadConfig(act), a.Analyst, a.Obs, log).Handle)

	if act, err = activity(cir.TaskType); err != nil {
		return nil, err
	}
	start(cir.TaskType, cir.NewHandler(cir.LoadConfig(act), a.Orchestrator, a.Obs, log).Handle)

	return open, nil
}
