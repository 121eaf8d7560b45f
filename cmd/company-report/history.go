package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"company-intel/internal/app"
	"company-intel/internal/models"

	"github.com/spf13/cobra"
)

func newHistoryCmd(flags *rootFlags, stdout io.Writer) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <company>",
		Short: "List stored reports for a company, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(flags.format); err != nil {
				return err
			}
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app.App) error {
				if a.Reports == nil {
					return fmt.Errorf("history needs database.postgres.enabled")
				}
				reports, err := a.Reports.ListReports(ctx, args[0], limit)
				if err != nil {
					return err
				}
				return writeList(stdout, reports, flags.format)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum reports to list")
	return cmd
}

func newShowCmd(flags *rootFlags, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a stored report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(flags.format); err != nil {
				return err
			}
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app.App) error {
				if a.Reports == nil {
					return fmt.Errorf("show needs database.postgres.enabled")
				}
				r, err := a.Reports.GetReport(ctx, args[0])
				if err != nil {
					return err
				}
				return writeReport(stdout, r, flags.format)
			})
		},
	}
}

func newSearchCmd(flags *rootFlags, stdout io.Writer) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Full text search over indexed reports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(flags.format); err != nil {
				return err
			}
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app.App) error {
				if a.Index == nil {
					return fmt.Errorf("search needs database.elasticsearch.enabled")
				}
				reports, err := a.Index.Search(ctx, args[0], limit)
				if err != nil {
					return err
				}
				return writeList(stdout, reports, flags.format)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum hits")
	return cmd
}

func writeList(w io.Writer, reports []*models.Report, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if reports == nil {
			reports = []*models.Report{}
		}
		return enc.Encode(reports)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tCOMPANY\tSTATUS\tFINISHED")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.RunID, r.Company, r.Status, r.FinishedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}
