package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ashmitsharp/fintrack-api/internal/services"
	"github.com/spf13/cobra"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (a *cli) exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the summary workbook for one or more statements",
		Long: `Import bank statements into a scratch ledger and write the XLSX summary
report. With --bucket the workbook is uploaded to S3 under reports/ as well.`,
		Example: `  fintrack export --file statement.csv
  fintrack export --file statement.csv --out report.xlsx --now 2024-01-31`,
		RunE: a.runExport,
	}

	cmd.Flags().StringSlice("file", nil, "statement file to import (repeatable)")
	cmd.Flags().String("now", "", "summary date as YYYY-MM-DD (default: today)")
	cmd.Flags().String("out", "", "output path (default: fintrack-summary-YYYY-MM.xlsx)")
	cmd.Flags().String("bucket", "", "S3 bucket to upload the workbook to")
	cmd.Flags().String("region", "us-east-1", "AWS region of the bucket")
	cmd.Flags().String("endpoint", "", "custom S3 endpoint (LocalStack, MinIO)")

	_ = a.v.BindPFlag("export.file", cmd.Flags().Lookup("file"))
	_ = a.v.BindPFlag("export.now", cmd.Flags().Lookup("now"))
	_ = a.v.BindPFlag("export.out", cmd.Flags().Lookup("out"))
	_ = a.v.BindPFlag("export.bucket", cmd.Flags().Lookup("bucket"))
	_ = a.v.BindPFlag("export.region", cmd.Flags().Lookup("region"))
	_ = a.v.BindPFlag("export.endpoint", cmd.Flags().Lookup("endpoint"))

	return cmd
}

func (a *cli) runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	now, err := resolveNow(a.v.GetString("export.now"))
	if err != nil {
		return err
	}

	ledger, err := a.loadLedger(ctx, a.v.GetStringSlice("export.file"), now)
	if err != nil {
		return err
	}

	summary, err := ledger.Summary(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute summary: %w", err)
	}

	buf, err := services.ExportReport(summary, now)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	filename := services.ReportFilename(now)
	out := a.v.GetString("export.out")
	if out == "" {
		out = filename
	}

	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d transactions)\n", out, summary.Total)

	bucket := a.v.GetString("export.bucket")
	if bucket == "" {
		return nil
	}

	storage, err := services.NewStorageService(ctx, bucket, a.v.GetString("export.region"), a.v.GetString("export.endpoint"))
	if err != nil {
		return fmt.Errorf("failed to initialize storage service: %w", err)
	}

	key, err := storage.GenerateUploadKey(services.ReportPrefix, filename)
	if err != nil {
		return fmt.Errorf("failed to generate report key: %w", err)
	}

	if err := storage.UploadFile(ctx, key, xlsxContentType, bytes.NewReader(buf.Bytes())); err != nil {
		return fmt.Errorf("failed to upload report: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Uploaded s3://%s/%s\n", storage.Bucket(), key)

	return nil
}
