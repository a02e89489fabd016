package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/savegress/traderecon/internal/reconciliation"
	"github.com/savegress/traderecon/internal/reporting"
	"github.com/savegress/traderecon/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		internalPath string
		bankPath     string
		outDir       string
		outFile      string
		tolerance    string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile two CSV sources and write the Excel report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc := a.cfg.Reconciliation

			if cmd.Flags().Changed("internal") {
				rc.InternalPath = internalPath
			}
			if cmd.Flags().Changed("bank") {
				rc.BankPath = bankPath
			}
			if cmd.Flags().Changed("out-dir") {
				rc.OutputDir = outDir
			}
			if cmd.Flags().Changed("out") {
				rc.OutputFile = outFile
			}
			if cmd.Flags().Changed("tolerance") {
				t, err := decimal.NewFromString(tolerance)
				if err != nil {
					return fmt.Errorf("invalid --tolerance %q: %w", tolerance, err)
				}
				rc.Tolerance = t
			}

			engine := reconciliation.NewEngine(reporting.NewGenerator(&a.cfg.Reporting, a.logger), a.logger)
			result, err := engine.Run(cmd.Context(), &rc)
			if err != nil {
				return err
			}

			printSummary(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&internalPath, "internal", "", "internal ledger CSV")
	cmd.Flags().StringVar(&bankPath, "bank", "", "bank statement CSV")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "directory for the dated report")
	cmd.Flags().StringVar(&outFile, "out", "", "explicit report path, overrides --out-dir")
	cmd.Flags().StringVar(&tolerance, "tolerance", "", "price tolerance, e.g. 0.01")

	return cmd
}

func printSummary(w io.Writer, result *models.ReconcileResult) {
	s := result.Summary
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Run ID\t%s\n", result.RunID)
	fmt.Fprintf(tw, "Tolerance\t%s\n", result.Tolerance)
	fmt.Fprintf(tw, "Rows\t%d\n", s.TotalRows)
	for _, status := range models.AllReconStatuses() {
		fmt.Fprintf(tw, "%s\t%d\n", status, s.ByStatus[status])
	}
	fmt.Fprintf(tw, "Match rate\t%.2f%%\n", s.MatchRate*100)
	if result.ReportPath != "" {
		fmt.Fprintf(tw, "Report\t%s\n", result.ReportPath)
	}
	tw.Flush()
}
