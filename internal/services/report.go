package services

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// Report sheet names
const (
	SheetOverview   = "Overview"
	SheetCategories = "Categories"
	SheetRecent     = "Recent"
)

// BuildReport renders summary into a workbook with overview, category and
// recent transaction sheets. The caller closes the returned file.
func BuildReport(summary Summary, generatedAt time.Time) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetOverview); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetCategories, SheetRecent} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	overview := [][]interface{}{
		{"Metric", "Value"},
		{"Generated at", generatedAt.Format(time.RFC3339)},
		{"Transactions", summary.Total},
		{"Income", summary.Income},
		{"Expenses", summary.Expenses},
		{"Balance", summary.Balance},
		{"Top category", summary.TopCategory()},
		{"Income trend (%)", summary.Trend.Income},
		{"Expense trend (%)", summary.Trend.Expenses},
	}
	if err := writeRows(f, SheetOverview, overview); err != nil {
		f.Close()
		return nil, err
	}

	categories := [][]interface{}{{"Category", "Amount"}}
	for _, c := range summary.Breakdown {
		categories = append(categories, []interface{}{c.Name, c.Amount})
	}
	if err := writeRows(f, SheetCategories, categories); err != nil {
		f.Close()
		return nil, err
	}

	recent := [][]interface{}{{"Date", "Description", "Category", "Type", "Amount"}}
	for _, t := range summary.RecentTransactions {
		recent = append(recent, []interface{}{
			t.Date.Format("2006-01-02"),
			t.Description,
			t.Category,
			string(t.Type),
			t.Amount,
		})
	}
	if err := writeRows(f, SheetRecent, recent); err != nil {
		f.Close()
		return nil, err
	}

	return f, nil
}

// ExportReport renders summary as XLSX bytes
func ExportReport(summary Summary, generatedAt time.Time) (*bytes.Buffer, error) {
	f, err := BuildReport(summary, generatedAt)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

// ReportFilename names the export for the month of now
func ReportFilename(now time.Time) string {
	return fmt.Sprintf("fintrack-summary-%s.xlsx", now.Format("2006-01"))
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
