package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"company-intel/internal/app"
	"company-intel/internal/common/config"
	"company-intel/internal/common/logger"
	"company-intel/internal/common/observability"
	"company-intel/internal/models"
	"company-intel/internal/report"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version is set at build time via -ldflags.
var version = "dev"

const defaultCompany = "Soulpage IT Solutions"

type rootFlags struct {
	configPath string
	format     string
	logLevel   string
	timeout    time.Duration
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "company-report [company]",
		Short: "Generate a company intelligence report",
		Long: `Collect recent news, stock performance and key events for a company,
then analyze them into situation, opportunities, risks and outlook.

The company defaults to "` + defaultCompany + `".
The LLM API key is read from OPENAI_API_KEY (or llm.api_key in configs/config.yaml).`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			company := defaultCompany
			if len(args) > 0 {
				company = args[0]
			}
			return runReport(cmd.Context(), flags, company, stdout)
		},
	}
	cmd.SetOut(stdout)

	f := cmd.PersistentFlags()
	f.StringVar(&flags.configPath, "config", "", "Config file (default: configs/config.yaml)")
	f.StringVar(&flags.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	f.DurationVar(&flags.timeout, "timeout", 3*time.Minute, "Overall deadline")
	f.StringVarP(&flags.format, "format", "f", "text", "Output format: text or json")

	cmd.AddCommand(newHistoryCmd(flags, stdout))
	cmd.AddCommand(newShowCmd(flags, stdout))
	cmd.AddCommand(newSearchCmd(flags, stdout))
	return cmd
}

func runReport(ctx context.Context, flags *rootFlags, company string, stdout io.Writer) error {
	if err := checkFormat(flags.format); err != nil {
		return err
	}
	return withApp(ctx, flags, func(ctx context.Context, a *app.App) error {
		r, runErr := a.Orchestrator.Run(ctx, company)
		if err := writeReport(stdout, r, flags.format); err != nil {
			return err
		}
		if runErr != nil {
			return errReportFailed
		}
		return nil
	})
}

// withApp loads config, builds the app and runs fn under the command deadline.
func withApp(ctx context.Context, flags *rootFlags, fn func(context.Context, *app.App) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		return err
	}

	level := cfg.Logging.Level
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	zapLog := logger.New(level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog.With(zap.String("service", "company-report")))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, flags.timeout)
	defer cancel()

	a, err := app.New(ctx, cfg, log, app.Options{
		ServiceName: "company-report",
		// one-shot runs do not serve /metrics
		Observe: []observability.Option{observability.WithRegisterer(prometheus.NewRegistry())},
	})
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	defer a.Close(context.Background())

	return fn(ctx, a)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func checkFormat(format string) error {
	switch format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text or json)", format)
	}
}

func writeReport(w io.Writer, r *models.Report, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	return report.WriteText(w, r)
}
