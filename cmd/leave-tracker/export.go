package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/username/leave-tracker/internal/export"
	"github.com/username/leave-tracker/pkg/dateutil"
	"go.uber.org/zap"
)

// defaultExportName builds the report file name for a range
func defaultExportName(person, start, end string) string {
	if person != "" {
		return fmt.Sprintf("%s请假记录_%s_%s.xlsx", person, start, end)
	}
	return fmt.Sprintf("请假记录_%s_%s.xlsx", start, end)
}

func exportCmd() *cobra.Command {
	var rf rangeFlags
	var person, output string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a date range to an .xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := rf.resolve(dateutil.Today())
			if err != nil {
				return err
			}
			a, err := loadApp()
			if err != nil {
				return err
			}

			rows, err := a.engine.Rows(person, start, end)
			if err != nil {
				return err
			}
			if output == "" {
				output = defaultExportName(person, start, end)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			outPrintf("⏳ Exporting %d row(s) to %s\n", len(rows), output)
			writer := export.NewWriter(logger)
			errCh := writer.Start(ctx, output, rows, person, func(done, total int) {
				if done == total || done%50 == 0 {
					outPrintf("\r   • %d/%d", done, total)
				}
			})
			if err := <-errCh; err != nil {
				outPrintln()
				return fmt.Errorf("export failed: %w", err)
			}

			logger.Info("Report exported",
				zap.String("file", output),
				zap.String("person", person),
				zap.String("start", start),
				zap.String("end", end),
				zap.Int("rows", len(rows)))
			outPrintf("\n✅ Exported to %s\n", output)
			return nil
		},
	}

	rf.register(cmd)
	cmd.Flags().StringVarP(&person, "person", "p", "", "Export only this person's absences")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default derived from the range)")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Abort the export after this long")
	return cmd
}
