package orchestrator

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"company-intel/internal/agents/analyst"
	"company-intel/internal/common/errors"
	"company-intel/internal/common/logger"
	"company-intel/internal/llm"
	"company-intel/internal/memory"
	"company-intel/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type fakeCollector struct {
	data  *models.CollectedData
	err   error
	calls []models.Query
}

func (f *fakeCollector) Collect(ctx context.Context, q models.Query) (*models.CollectedData, error) {
	f.calls = append(f.calls, q)
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

type fakeAnalyst struct {
	insight *models.Insight
	err     error
	got     *models.CollectedData
}

func (f *fakeAnalyst) Analyze(ctx context.Context, d *models.CollectedData) (*models.Insight, error) {
	f.got = d
	if f.err != nil {
		return nil, f.err
	}
	return f.insight, nil
}

// companyCollector answers with data naming the requested company.
type companyCollector struct{}

func (companyCollector) Collect(ctx context.Context, q models.Query) (*models.CollectedData, error) {
	return &models.CollectedData{Company: q.Company, Raw: "news about " + q.Company}, nil
}

// echoAnalyst analyzes by quoting the raw data.
type echoAnalyst struct{}

func (echoAnalyst) Analyze(ctx context.Context, d *models.CollectedData) (*models.Insight, error) {
	return &models.Insight{Company: d.Company, Analysis: "outlook from " + d.Raw}, nil
}

type fakeCompleter struct {
	calls int
}

func (f *fakeCompleter) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	f.calls++
	return &llm.Response{Content: "should not be asked"}, nil
}

type fakeSink struct {
	name string
	err  error

	mu      sync.Mutex
	reports []*models.Report
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Save(ctx context.Context, r *models.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, r)
	return f.err
}

func newTestOrchestrator(t *testing.T, c Collector, a Analyst, opts ...Option) (*Orchestrator, *tracetest.InMemoryExporter) {
	t.Helper()
	recorder := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	opts = append([]Option{WithTracer(tp.Tracer("test"))}, opts...)
	o := New(c, a, logger.NewTestLogger(t), opts...)
	o.newID = func() string { return "run-1" }
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ticks := 0
	o.now = func() time.Time {
		ticks++
		return start.Add(time.Duration(ticks) * time.Second)
	}
	return o, recorder
}

func spanNames(recorder *tracetest.InMemoryExporter) []string {
	var names []string
	for _, s := range recorder.GetSpans() {
		names = append(names, s.Name)
	}
	return names
}

func TestRun_Success(t *testing.T) {
	collector := &fakeCollector{data: &models.CollectedData{
		Company: "Acme",
		Raw:     `{"news":["launch"]}`,
		Sources: []models.Source{{URL: "https://acme.example/news"}},
	}}
	analyst := &fakeAnalyst{insight: &models.Insight{Company: "Acme", Analysis: "Outlook: positive"}}
	sink := &fakeSink{name: "memory"}

	o, recorder := newTestOrchestrator(t, collector, analyst, WithSinks(sink))

	report, err := o.Run(context.Background(), "  Acme ")
	require.NoError(t, err)

	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, "Acme", report.Company)
	assert.Equal(t, models.StatusCompleted, report.Status)
	assert.Equal(t, `{"news":["launch"]}`, report.RawData)
	assert.Equal(t, "Outlook: positive", report.Analysis)
	assert.Empty(t, report.Error)
	assert.Equal(t, []string{"https://acme.example/news"}, report.Sources)
	assert.True(t, report.Succeeded())
	assert.Equal(t, time.Second, report.Duration())

	require.Len(t, collector.calls, 1)
	assert.Equal(t, "Acme", collector.calls[0].Company)
	assert.Same(t, collector.data, analyst.got)

	require.Len(t, report.Memory, 4)
	assert.Equal(t, models.RoleHuman, report.Memory[0].Role)
	assert.Equal(t, "Collected data for Acme", report.Memory[0].Content)
	assert.Equal(t, `{"news":["launch"]}`, report.Memory[1].Content)
	assert.Equal(t, "Analyze company data", report.Memory[2].Content)
	assert.Equal(t, models.RoleAI, report.Memory[3].Role)
	assert.Equal(t, "Outlook: positive", report.Memory[3].Content)

	require.Len(t, sink.reports, 1)
	assert.Same(t, report, sink.reports[0])

	assert.ElementsMatch(t, []string{"collect", "analyze", "pipeline.run"}, spanNames(recorder))
	for _, s := range recorder.GetSpans() {
		assert.NotEqual(t, codes.Error, s.Status.Code, s.Name)
	}
}

func TestRun_InvalidCompany(t *testing.T) {
	collector := &fakeCollector{}
	analyst := &fakeAnalyst{}
	sink := &fakeSink{name: "memory"}
	o, _ := newTestOrchestrator(t, collector, analyst, WithSinks(sink))

	report, err := o.Run(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidCompany))

	assert.Equal(t, models.StatusInvalidRequest, report.Status)
	assert.Empty(t, report.Company)
	assert.Equal(t, "Invalid company name provided", report.Error)
	assert.Empty(t, report.RawData)
	assert.Empty(t, report.Memory)
	assert.Empty(t, collector.calls)
	assert.Nil(t, analyst.got)
	assert.Len(t, sink.reports, 1)
}

func TestRun_CollectionFailure(t *testing.T) {
	cause := errors.NewDataCollectionFailedError("Acme", stderrors.New("LLM_REQUEST_FAILED"))
	collector := &fakeCollector{err: cause}
	analyst := &fakeAnalyst{}
	shared := memory.NewBuffer()
	o, recorder := newTestOrchestrator(t, collector, analyst, WithMemory(shared))

	report, err := o.Run(context.Background(), "Acme")
	require.Error(t, err)
	assert.Same(t, cause, err)

	assert.Equal(t, models.StatusCollectionFailed, report.Status)
	assert.Equal(t, "Acme", report.Company)
	assert.Equal(t, "Error collecting data for Acme: LLM_REQUEST_FAILED", report.Error)
	assert.Empty(t, report.RawData)
	assert.Empty(t, report.Analysis)
	assert.Nil(t, analyst.got)
	assert.Zero(t, shared.Len())

	var failed []string
	for _, s := range recorder.GetSpans() {
		if s.Status.Code == codes.Error {
			failed = append(failed, s.Name)
		}
	}
	assert.ElementsMatch(t, []string{"collect", "pipeline.run"}, failed)
}

func TestRun_AnalysisFailureKeepsRawData(t *testing.T) {
	collector := &fakeCollector{data: &models.CollectedData{Company: "Acme", Raw: "raw facts"}}
	analyst := &fakeAnalyst{err: errors.NewAnalysisFailedError(stderrors.New("LLM_TIMEOUT"))}
	shared := memory.NewBuffer()
	o, _ := newTestOrchestrator(t, collector, analyst, WithMemory(shared))

	report, err := o.Run(context.Background(), "Acme")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeAnalysisFailed))

	assert.Equal(t, models.StatusAnalysisFailed, report.Status)
	assert.Equal(t, "raw facts", report.RawData)
	assert.Empty(t, report.Analysis)
	assert.Equal(t, "Error analyzing company data: LLM_TIMEOUT", report.Error)
	assert.Nil(t, report.Memory)
	// the collect exchange is still remembered
	assert.Equal(t, 2, shared.Len())
}

func TestRun_SinkFailureDoesNotFailRun(t *testing.T) {
	collector := &fakeCollector{data: &models.CollectedData{Company: "Acme", Raw: "raw"}}
	analyst := &fakeAnalyst{insight: &models.Insight{Analysis: "fine"}}
	broken := &fakeSink{name: "postgres", err: stderrors.New("connection refused")}
	healthy := &fakeSink{name: "elasticsearch"}

	o, _ := newTestOrchestrator(t, collector, analyst, WithSinks(broken, healthy))

	report, err := o.Run(context.Background(), "Acme")
	require.NoError(t, err)
	assert.True(t, report.Succeeded())
	assert.Len(t, broken.reports, 1)
	assert.Len(t, healthy.reports, 1)
}

func TestRun_SharedMemoryAccumulates(t *testing.T) {
	shared := memory.NewBuffer()
	collector := &fakeCollector{data: &models.CollectedData{Company: "Acme", Raw: "raw"}}
	analyst := &fakeAnalyst{insight: &models.Insight{Analysis: "fine"}}
	o, _ := newTestOrchestrator(t, collector, analyst, WithMemory(shared))

	_, err := o.Run(context.Background(), "Acme")
	require.NoError(t, err)
	report, err := o.Run(context.Background(), "Acme")
	require.NoError(t, err)

	assert.Same(t, shared, o.Memory())
	assert.Len(t, report.Memory, 8)
}

func TestRun_SinksSurviveCancelledContext(t *testing.T) {
	collector := &fakeCollector{err: errors.FromError(context.Canceled)}
	sink := &fakeSink{name: "memory"}
	o, _ := newTestOrchestrator(t, collector, &fakeAnalyst{}, WithSinks(sink))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := o.Run(ctx, "Acme")
	require.Error(t, err)
	assert.Equal(t, models.StatusCollectionFailed, report.Status)
	assert.Len(t, sink.reports, 1)
}

func TestRun_MemoryIsPerRun(t *testing.T) {
	o, _ := newTestOrchestrator(t, companyCollector{}, echoAnalyst{})

	acme, err := o.Run(context.Background(), "Acme")
	require.NoError(t, err)
	require.Len(t, acme.Memory, 4)

	for i := 0; i < 3; i++ {
		globex, err := o.Run(context.Background(), "Globex")
		require.NoError(t, err)
		require.Len(t, globex.Memory, 4)
		for _, m := range globex.Memory {
			assert.NotContains(t, m.Content, "Acme")
		}
		assert.Equal(t, "Collected data for Globex", globex.Memory[0].Content)
		assert.Equal(t, "news about Globex", globex.Memory[1].Content)
	}
	assert.Nil(t, o.Memory())
}

func TestRun_ConcurrentRunsDoNotShareMemory(t *testing.T) {
	o := New(companyCollector{}, echoAnalyst{}, logger.NewNoOpLogger())

	companies := []string{"Acme", "Globex", "Initech", "Umbrella"}
	reports := make([]*models.Report, len(companies))
	var wg sync.WaitGroup
	for i, c := range companies {
		wg.Add(1)
		go func(i int, c string) {
			defer wg.Done()
			reports[i], _ = o.Run(context.Background(), c)
		}(i, c)
	}
	wg.Wait()

	for i, r := range reports {
		require.Len(t, r.Memory, 4, companies[i])
		for _, m := range r.Memory {
			for j, other := range companies {
				if j != i {
					assert.False(t, strings.Contains(m.Content, other), "%s memory mentions %s", companies[i], other)
				}
			}
		}
	}
}

func TestRun_EmptyCollectionFailsAnalysis(t *testing.T) {
	collector := &fakeCollector{data: &models.CollectedData{Company: "Acme", Raw: "   "}}
	completer := &fakeCompleter{}
	o, _ := newTestOrchestrator(t, collector, analyst.New(completer, logger.NewTestLogger(t)))

	report, err := o.Run(context.Background(), "Acme")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeNoCompanyData))

	assert.Equal(t, models.StatusAnalysisFailed, report.Status)
	assert.Equal(t, "Acme", report.Company)
	assert.Equal(t, "   ", report.RawData)
	assert.Equal(t, "No company data provided for analysis", report.Error)
	assert.Zero(t, completer.calls)
}
