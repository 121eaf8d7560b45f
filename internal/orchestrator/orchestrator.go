// internal/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"company-intel/internal/common/errors"
	"company-intel/internal/common/logger"
	"company-intel/internal/common/metrics"
	"company-intel/internal/memory"
	"company-intel/internal/models"
	"company-intel/internal/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const sinkTimeout = 10 * time.Second

// Collector is the data collection stage.
type Collector interface {
	Collect(ctx context.Context, query models.Query) (*models.CollectedData, error)
}

// Analyst is the analysis stage.
type Analyst interface {
	Analyze(ctx context.Context, data *models.CollectedData) (*models.Insight, error)
}

type Option func(*Orchestrator)

// WithSinks hands every report to the given sinks after the run.
func WithSinks(sinks ...store.ReportSink) Option {
	return func(o *Orchestrator) { o.sinks = append(o.sinks, sinks...) }
}

func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithMemory makes every run append to b instead of a fresh per-run buffer.
func WithMemory(b *memory.Buffer) Option {
	return func(o *Orchestrator) {
		if b != nil {
			o.memory = b
		}
	}
}

// Orchestrator runs collect then analyze. Each run records its exchange in
// its own memory buffer unless WithMemory supplies a shared one.
type Orchestrator struct {
	collector Collector
	analyst   Analyst
	memory    *memory.Buffer
	sinks     []store.ReportSink
	tracer    trace.Tracer
	logger    logger.Logger
	now       func() time.Time
	newID     func() string
}

func New(collector Collector, analyst Analyst, log logger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		collector: collector,
		analyst:   analyst,
		tracer:    otel.Tracer("company-intel/orchestrator"),
		logger:    log.With(map[string]interface{}{"component": "orchestrator"}),
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Memory returns the buffer set with WithMemory, or nil.
func (o *Orchestrator) Memory() *memory.Buffer {
	return o.memory
}

// Run produces a report for company. The report is always returned; err is
// the stage failure, if any, and its text is also stored on report.Error.
func (o *Orchestrator) Run(ctx context.Context, company string) (*models.Report, error) {
	report := &models.Report{
		RunID:     o.newID(),
		StartedAt: o.now().UTC(),
	}

	ctx, span := o.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run.id", report.RunID),
		attribute.String("company", company),
	))
	defer span.End()

	err := o.run(ctx, company, report)

	report.FinishedAt = o.now().UTC()
	if err != nil {
		report.Error = errors.Describe(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, report.Error)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(attribute.String("report.status", string(report.Status)))

	metrics.PipelineRuns.WithLabelValues(string(report.Status)).Inc()
	metrics.PipelineDuration.Observe(report.Duration().Seconds())

	o.deliver(ctx, report)
	return report, err
}

func (o *Orchestrator) run(ctx context.Context, company string, report *models.Report) error {
	query := models.NewQuery(company)
	if !query.Valid() {
		report.Status = models.StatusInvalidRequest
		return errors.NewInvalidCompanyError("")
	}
	report.Company = query.Company

	mem := o.memory
	if mem == nil {
		mem = memory.NewBuffer()
	}

	o.logger.Info(fmt.Sprintf("Collecting data for %s...", query.Company), map[string]interface{}{
		"runId":   report.RunID,
		"company": query.Company,
	})
	data, err := o.collect(ctx, query)
	if err != nil {
		report.Status = models.StatusCollectionFailed
		return err
	}
	report.RawData = data.Raw
	report.Sources = data.SourceURLs()
	mem.SaveContext(fmt.Sprintf("Collected data for %s", query.Company), data.Raw)

	o.logger.Info(fmt.Sprintf("Analyzing data for %s...", query.Company), map[string]interface{}{
		"runId":      report.RunID,
		"company":    query.Company,
		"structured": data.Structured,
		"cached":     data.Cached,
	})
	insight, err := o.analyze(ctx, data)
	if err != nil {
		report.Status = models.StatusAnalysisFailed
		return err
	}
	report.Analysis = insight.Analysis
	mem.SaveContext("Analyze company data", insight.Analysis)

	report.Status = models.StatusCompleted
	report.Memory = mem.Snapshot()
	return nil
}

func (o *Orchestrator) collect(ctx context.Context, query models.Query) (*models.CollectedData, error) {
	ctx, span := o.tracer.Start(ctx, "collect")
	defer span.End()

	data, err := o.collector.Collect(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errors.Describe(err))
		return nil, err
	}
	span.SetAttributes(
		attribute.Bool("data.structured", data.Structured),
		attribute.Bool("data.cached", data.Cached),
		attribute.Int("data.sources", len(data.Sources)),
	)
	return data, nil
}

func (o *Orchestrator) analyze(ctx context.Context, data *models.CollectedData) (*models.Insight, error) {
	ctx, span := o.tracer.Start(ctx, "analyze")
	defer span.End()

	insight, err := o.analyst.Analyze(ctx, data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errors.Describe(err))
		return nil, err
	}
	span.SetAttributes(attribute.Int("analysis.bytes", len(insight.Analysis)))
	return insight, nil
}

// deliver saves the report to every sink in parallel. Sink failures are
// logged and counted but never change the run outcome.
func (o *Orchestrator) deliver(ctx context.Context, report *models.Report) {
	if len(o.sinks) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()

	var g errgroup.Group
	for _, sink := range o.sinks {
		sink := sink
		g.Go(func() error {
			if err := sink.Save(ctx, report); err != nil {
				metrics.SinkErrors.WithLabelValues(sink.Name()).Inc()
				o.logger.Error("report sink failed", map[string]interface{}{
					"runId": report.RunID,
					"sink":  sink.Name(),
					"error": err,
				})
			}
			return nil
		})
	}
	_ = g.Wait()
}
