package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ngl-strategy/rim-assistant/internal/extract"
	"github.com/ngl-strategy/rim-assistant/pkg/llamacloud"
)

var (
	extractOutput string
	extractFormat string
)

var extractCmd = &cobra.Command{
	Use:   "extract <file-id>",
	Short: "Run the price-table extraction agent over an indexed document",
	Long:  "Starts a hosted extraction job, waits for it to finish, maps locations onto pricing regions, and writes the table as CSV or XLSX.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("extract"); err != nil {
			return err
		}
		ctx := cmd.Context()
		client := newLlamaCloud()

		jobID, err := client.CreateExtractionJob(ctx, cfg.Extract.AgentID, args[0])
		if err != nil {
			return err
		}
		zap.L().Info("extraction job started", zap.String("job_id", jobID))

		if err := waitForExtraction(ctx, client, jobID); err != nil {
			return err
		}

		result, err := client.GetExtractionResult(ctx, jobID)
		if err != nil {
			return err
		}
		rows := extract.Rows(result.Rows)

		output := extractOutput
		if output == "" {
			ext := "csv"
			if extractFormat == "xlsx" {
				ext = "xlsx"
			}
			output = fmt.Sprintf("extraction_%s.%s", jobID, ext)
		}

		switch extractFormat {
		case "csv", "":
			f, err := os.Create(output)
			if err != nil {
				return eris.Wrapf(err, "create %s", output)
			}
			defer f.Close()
			if err := extract.WriteCSV(f, rows); err != nil {
				return err
			}
		case "xlsx":
			if err := extract.WriteXLSX(output, rows); err != nil {
				return err
			}
		default:
			return eris.Errorf("unknown format %q (want csv or xlsx)", extractFormat)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", len(rows), output)
		return nil
	},
}

// waitForExtraction polls the job until it succeeds, fails, or the configured
// timeout elapses.
func waitForExtraction(ctx context.Context, client llamacloud.Client, jobID string) error {
	interval := time.Duration(cfg.Extract.PollIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	timeout := time.Duration(cfg.Extract.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := client.GetExtractionJob(ctx, jobID)
		if err != nil {
			return err
		}
		switch strings.ToUpper(job.Status) {
		case "SUCCESS":
			return nil
		case "ERROR", "FAILED", "CANCELLED":
			return eris.Errorf("extraction job %s finished with status %s", jobID, job.Status)
		}
		zap.L().Debug("extraction pending", zap.String("job_id", jobID), zap.String("status", job.Status))

		select {
		case <-ctx.Done():
			return eris.Wrapf(ctx.Err(), "waiting for extraction job %s", jobID)
		case <-ticker.C:
		}
	}
}

func init() {
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "output path (default extraction_<job>.<ext>)")
	extractCmd.Flags().StringVar(&extractFormat, "format", "csv", "output format: csv or xlsx")
	rootCmd.AddCommand(extractCmd)
}
