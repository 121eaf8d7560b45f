// cmd/tools/worker-generator/main.go
package main

import (
	"bytes"
	"flag"
	"fmt"
	"go/format"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"company-intel/pkg/registry"
)

// WorkerData holds data for templates
type WorkerData struct {
	Name         string
	PackageName  string
	TaskType     string
	InputSchema  map[string]interface{}
	OutputSchema map[string]interface{}
	Category     string
	Timeout      string
}

// parseSchema extracts properties from a JSON schema object
func parseSchema(schemaObj interface{}) map[string]interface{} {
	if schemaMap, ok := schemaObj.(map[string]interface{}); ok {
		if props, exists := schemaMap["properties"]; exists {
			if properties, ok := props.(map[string]interface{}); ok {
				return properties
			}
		}
	}
	return map[string]interface{}{}
}

// goTypeFromJSONType maps JSON schema types to Go types
func goTypeFromJSONType(jsonType interface{}) string {
	jt, _ := jsonType.(string)
	switch jt {
	case "string":
		return "string"
	case "integer":
		return "int"
	case "number":
		return "float64"
	case "boolean":
		return "bool"
	case "object":
		return "map[string]interface{}"
	case "array":
		return "[]interface{}"
	default:
		return "interface{}"
	}
}

// generateStructFields renders schema properties as struct fields in a
// stable order.
func generateStructFields(properties map[string]interface{}) string {
	names := make([]string, 0, len(properties))
	for prop := range properties {
		names = append(names, prop)
	}
	sort.Strings(names)

	var fields []string
	for _, prop := range names {
		details, ok := properties[prop].(map[string]interface{})
		if !ok {
			continue
		}
		field := fmt.Sprintf("\t%s %s `json:\"%s\"`", exportedName(prop), goTypeFromJSONType(details["type"]), prop)
		if desc, ok := details["description"].(string); ok && desc != "" {
			field += " // " + desc
		}
		fields = append(fields, field)
	}
	return strings.Join(fields, "\n")
}

// exportedName turns rawData or raw_data into RawData.
func exportedName(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' })
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, "")
}

// exampleInput builds job variables that satisfy the required string fields.
func exampleInput(schema map[string]interface{}) string {
	required, _ := schema["required"].([]interface{})
	props := parseSchema(schema)
	var pairs []string
	for _, r := range required {
		name, _ := r.(string)
		details, _ := props[name].(map[string]interface{})
		value := `"example"`
		if goTypeFromJSONType(details["type"]) != "string" {
			value = "null"
		}
		pairs = append(pairs, fmt.Sprintf(`"%s":%s`, name, value))
	}
	return "{" + strings.Join(pairs, ",") + "}"
}

const configTemplate = `package {{ .PackageName }}

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
	cfg := &Config{Timeout: activity.TimeoutDuration({{ .Timeout }})}
	if activity != nil {
		cfg.InputSchema = activity.InputSchema
	}
	return cfg
}
`

const modelsTemplate = `package {{ .PackageName }}

type Input struct {
{{ generateStructFields (parseSchema .InputSchema) }}
}

type Output struct {
{{ generateStructFields (parseSchema .OutputSchema) }}
}
`

const handlerTemplate = `// internal/workers/{{ .Category }}/{{ .TaskType }}/handler.go
package {{ .PackageName }}

import (
	"context"
	"encoding/json"
	"time"

	"company-intel/internal/common/errors"
	"company-intel/internal/common/logger"
	"company-intel/internal/common/metrics"
	"company-intel/internal/common/observability"
	"company-intel/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "{{ .TaskType }}"
)

// Service performs the {{ .Name }} step.
type Service interface {
	Execute(ctx context.Context, input *Input) (*Output, error)
}

type Handler struct {
	config       *Config
	service      Service
	errorHandler *errors.ErrorHandler
	obs          *observability.Observability
	logger       logger.Logger
}

func NewHandler(config *Config, service Service, obs *observability.Observability, log logger.Logger) *Handler {
	l := log.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		service:      service,
		errorHandler: errors.NewErrorHandler(l),
		obs:          obs,
		logger:       l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.run(ctx, job.Variables)
	if err != nil {
		h.record(ctx, start, err)
		h.errorHandler.HandleJobError(context.Background(), client, job, err)
		return
	}

	h.completeJob(client, job, output)
	h.record(ctx, start, nil)
}

func (h *Handler) run(ctx context.Context, variables string) (*Output, error) {
	var vars map[string]interface{}
	if err := json.Unmarshal([]byte(variables), &vars); err != nil {
		return nil, errors.NewInputValidationFailedError("parse input: " + err.Error())
	}
	if result := validation.ValidateInput(vars, h.config.InputSchema); !result.Valid {
		return nil, errors.NewInputValidationFailedError(result.Error())
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewInputValidationFailedError("parse input: " + err.Error())
	}
	return h.service.Execute(ctx, &input)
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

func (h *Handler) record(ctx context.Context, start time.Time, err error) {
	elapsed := time.Since(start)
	status := "completed"
	if err != nil {
		status = "failed"
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.NormalizeError(err).Code)).Inc()
	} else {
		metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	}
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(elapsed.Seconds())
	h.obs.RecordJobProcessed(ctx, TaskType, status)
	h.obs.RecordJobDuration(ctx, TaskType, elapsed, status)
}
`

const testTemplate = `package {{ .PackageName }}

import (
	"context"
	"testing"

	"company-intel/internal/common/errors"
	"company-intel/internal/common/logger"
	"company-intel/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	out *Output
	err error
}

func (f *fakeService) Execute(ctx context.Context, input *Input) (*Output, error) {
	return f.out, f.err
}

func createTestConfig(t *testing.T) *Config {
	act, err := registry.MustDefault().Find(TaskType)
	require.NoError(t, err)
	return LoadConfig(act)
}

func TestHandler_Run(t *testing.T) {
	h := NewHandler(createTestConfig(t), &fakeService{out: &Output{}}, nil, logger.NewTestLogger(t))

	out, err := h.run(context.Background(), ` + "`{{ exampleInput .InputSchema }}`" + `)
	require.NoError(t, err)
	assert.NotNil(t, out)

	_, err = h.run(context.Background(), ` + "`{`" + `)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInputValidationFailed))
}
`

func generate(act *registry.Activity, outputDir string, out io.Writer) (string, error) {
	timeout := "60 * time.Second"
	if d := act.TimeoutDuration(0); d > 0 {
		timeout = fmt.Sprintf("%d * time.Millisecond", d.Milliseconds())
	}
	data := WorkerData{
		Name:         act.DisplayName,
		PackageName:  strings.ReplaceAll(act.ID, "-", ""),
		TaskType:     act.TaskType,
		InputSchema:  act.InputSchema,
		OutputSchema: act.OutputSchema,
		Category:     mapCategoryToDirectory(act.Category),
		Timeout:      timeout,
	}

	workerDir := filepath.Join(outputDir, data.Category, act.ID)
	if err := os.MkdirAll(workerDir, 0755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}

	funcMap := template.FuncMap{
		"parseSchema":          parseSchema,
		"generateStructFields": generateStructFields,
		"exampleInput":         exampleInput,
	}

	templates := map[string]string{
		"config.go":       configTemplate,
		"models.go":       modelsTemplate,
		"handler.go":      handlerTemplate,
		"handler_test.go": testTemplate,
	}
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, filename := range names {
		tmpl, err := template.New(filename).Funcs(funcMap).Parse(templates[filename])
		if err != nil {
			return "", fmt.Errorf("parse template %s: %w", filename, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", fmt.Errorf("execute template %s: %w", filename, err)
		}
		src, err := format.Source(buf.Bytes())
		if err != nil {
			return "", fmt.Errorf("format %s: %w", filename, err)
		}

		filePath := filepath.Join(workerDir, filename)
		if err := os.WriteFile(filePath, src, 0644); err != nil {
			return "", fmt.Errorf("write %s: %w", filePath, err)
		}
		fmt.Fprintf(out, "✓ Generated %s\n", filePath)
	}
	return workerDir, nil
}

func main() {
	activity := flag.String("activity", "", "Activity ID from registry (e.g., collect-company-data)")
	outputDir := flag.String("output", "./internal/workers/", "Output directory for the generated worker")
	registryPath := flag.String("registry", "pkg/registry/registry.json", "Path to the activity registry JSON file")
	flag.Parse()

	if *activity == "" {
		fmt.Println("Usage: worker-generator --activity <id> --output <dir> [--registry <path>]")
		fmt.Println("\nExample:")
		fmt.Println("  go run ./cmd/tools/worker-generator --activity summarize-filings")
		os.Exit(1)
	}

	reg, err := registry.LoadRegistry(*registryPath)
	if err != nil {
		fmt.Printf("Error loading registry from %s: %v\n", *registryPath, err)
		os.Exit(1)
	}

	var found *registry.Activity
	for i := range reg.Activities {
		if reg.Activities[i].ID == *activity {
			found = &reg.Activities[i]
			break
		}
	}
	if found == nil {
		fmt.Printf("Activity '%s' not found in registry %s\n", *activity, *registryPath)
		os.Exit(1)
	}

	workerDir, err := generate(found, *outputDir, os.Stdout)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n✅ Worker scaffold generated successfully at: %s\n", workerDir)
	fmt.Printf("\nNext steps:\n")
	fmt.Printf("  1. Implement a Service for the handler\n")
	fmt.Printf("  2. Register the worker in cmd/worker-manager/workers.go\n")
	fmt.Printf("  3. Add its section under workers in configs/config.yaml\n")
}

// mapCategoryToDirectory maps registry categories to directory names
func mapCategoryToDirectory(category string) string {
	switch category {
	case "", "intelligence", "ai-ml":
		return "intelligence"
	default:
		return strings.ToLower(category)
	}
}
