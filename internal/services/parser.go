package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ashmitsharp/fintrack-api/internal/models"
	"github.com/xuri/excelize/v2"
)

// UnknownBank is reported when no statement layout matches the headers
const UnknownBank = "UNKNOWN"

var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrEmptyStatement      = errors.New("empty file")
	ErrUnknownBankFormat   = errors.New("unknown bank format")
)

// statementLayout is a bank schema plus the lowercase headers that identify it
type statementLayout struct {
	schema    models.BankSchema
	signature []string
}

// statementLayouts are tried in order; Kotak's headers are the most generic
var statementLayouts = []statementLayout{
	{
		schema: models.BankSchema{
			BankName:           "HDFC",
			DateColumn:         "Date",
			DescriptionColumn:  "Narration",
			DebitColumn:        "Withdrawal Amt.",
			CreditColumn:       "Deposit Amt.",
			HasSeparateAmounts: true,
		},
		signature: []string{"narration", "withdrawal amt."},
	},
	{
		schema: models.BankSchema{
			BankName:           "ICICI",
			DateColumn:         "Transaction Date",
			DescriptionColumn:  "Transaction Remarks",
			DebitColumn:        "Withdrawal Amount (INR)",
			CreditColumn:       "Deposit Amount (INR)",
			HasSeparateAmounts: true,
		},
		signature: []string{"transaction remarks", "withdrawal amount (inr)"},
	},
	{
		schema: models.BankSchema{
			BankName:           "SBI",
			DateColumn:         "Txn Date",
			DescriptionColumn:  "Description",
			DebitColumn:        "Debit",
			CreditColumn:       "Credit",
			HasSeparateAmounts: true,
		},
		signature: []string{"txn date", "description"},
	},
	{
		schema: models.BankSchema{
			BankName:          "Axis",
			DateColumn:        "Transaction Date",
			DescriptionColumn: "Particulars",
			AmountColumn:      "Amount",
			DrCrColumn:        "Dr/Cr",
		},
		signature: []string{"particulars", "dr/cr"},
	},
	{
		schema: models.BankSchema{
			BankName:           "Kotak",
			DateColumn:         "Date",
			DescriptionColumn:  "Description",
			DebitColumn:        "Debit",
			CreditColumn:       "Credit",
			HasSeparateAmounts: true,
		},
		signature: []string{"date", "debit", "credit", "description"},
	},
}

// Statement date layouts, most common first
var statementDateLayouts = []string{
	"02/01/2006",   // HDFC, ICICI, Kotak, Axis
	"2006-01-02",   // ISO
	"02-Jan-2006",  // SBI
	"02-01-2006",
	"02/01/06",
	"Jan 02, 2006",
}

// Rows whose first cell contains one of these are statement totals
var summaryRowMarkers = []string{"total", "summary", "opening balance", "closing balance"}

// Parser turns CSV and XLSX bank statements into parsed transactions
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a parser for the HDFC, ICICI, SBI, Axis and Kotak layouts
func NewParser() *Parser {
	return &Parser{logger: slog.Default()}
}

// WithLogger returns the parser logging skipped rows to logger
func (p *Parser) WithLogger(logger *slog.Logger) *Parser {
	p.logger = logger
	return p
}

// DetectBank names the bank whose layout matches headers, or UnknownBank
func DetectBank(headers []string) string {
	if layout, ok := detectLayout(headers); ok {
		return layout.schema.BankName
	}
	return UnknownBank
}

func detectLayout(headers []string) (statementLayout, bool) {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[strings.ToLower(strings.TrimSpace(h))] = true
	}

	for _, layout := range statementLayouts {
		matched := true
		for _, h := range layout.signature {
			if !present[h] {
				matched = false
				break
			}
		}
		if matched {
			return layout, true
		}
	}
	return statementLayout{}, false
}

// ParseDate accepts the date layouts used by supported statements
func ParseDate(dateStr string) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	for _, layout := range statementDateLayouts {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}

var amountCleaner = strings.NewReplacer("₹", "", "Rs.", "", "Rs", "", ",", "")

// ParseAmount parses a statement amount such as "₹1,250.00". Blank and "-"
// cells are zero.
func ParseAmount(amountStr string) (float64, error) {
	cleaned := strings.TrimSpace(amountCleaner.Replace(amountStr))
	if cleaned == "" || cleaned == "-" {
		return 0, nil
	}

	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount: %s", amountStr)
	}
	return amount, nil
}

// ParseFile dispatches to the CSV or XLSX parser by file extension
func (p *Parser) ParseFile(file io.Reader, filename string) ([]models.ParsedTransaction, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		return p.ParseCSV(file)
	case ".xlsx", ".xls":
		return p.ParseXLSX(file)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, ext)
	}
}

// ParseCSV parses a CSV statement whose first record is the header row
func (p *Parser) ParseCSV(file io.Reader) ([]models.ParsedTransaction, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyStatement
	}

	return p.parseRecords(records[0], records[1:])
}

// ParseXLSX parses the first sheet of an Excel workbook
func (p *Parser) ParseXLSX(file io.Reader) ([]models.ParsedTransaction, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyStatement
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyStatement
	}

	return p.parseRecords(rows[0], rows[1:])
}

// parseRecords maps data rows onto the layout detected from headers.
// Blank and summary rows are dropped; rows that fail to parse are logged
// and skipped.
func (p *Parser) parseRecords(headers []string, rows [][]string) ([]models.ParsedTransaction, error) {
	layout, ok := detectLayout(headers)
	if !ok {
		return nil, ErrUnknownBankFormat
	}
	cols := indexColumns(headers)

	var transactions []models.ParsedTransaction
	for i, row := range rows {
		if isEmptyRow(row) || isSummaryRow(row) {
			continue
		}

		txn, err := parseRow(row, cols, layout.schema)
		if err != nil {
			// +2: one-based, after the header row
			p.logger.Warn("Skipping statement row", "bank", layout.schema.BankName, "row", i+2, "error", err)
			continue
		}
		transactions = append(transactions, txn)
	}

	return transactions, nil
}

// columns maps trimmed header names to their index
type columns map[string]int

func indexColumns(headers []string) columns {
	cols := make(columns, len(headers))
	for i, h := range headers {
		cols[strings.TrimSpace(h)] = i
	}
	return cols
}

// value returns the cell under header name, "" when absent
func (c columns) value(row []string, name string) string {
	idx, ok := c[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func parseRow(row []string, cols columns, schema models.BankSchema) (models.ParsedTransaction, error) {
	if _, ok := cols[schema.DateColumn]; !ok {
		return models.ParsedTransaction{}, fmt.Errorf("date column '%s' not found", schema.DateColumn)
	}
	if _, ok := cols[schema.DescriptionColumn]; !ok {
		return models.ParsedTransaction{}, fmt.Errorf("description column '%s' not found", schema.DescriptionColumn)
	}

	date, err := ParseDate(cols.value(row, schema.DateColumn))
	if err != nil {
		return models.ParsedTransaction{}, fmt.Errorf("failed to parse date: %w", err)
	}

	amount, direction, err := signedAmount(row, cols, schema)
	if err != nil {
		return models.ParsedTransaction{}, err
	}

	return models.ParsedTransaction{
		TxnDate:     date,
		Description: strings.TrimSpace(cols.value(row, schema.DescriptionColumn)),
		Amount:      amount,
		TxnType:     direction,
		RawData:     strings.Join(row, ","),
	}, nil
}

// signedAmount returns the row amount, negative for debits, and its direction
func signedAmount(row []string, cols columns, schema models.BankSchema) (float64, string, error) {
	if schema.HasSeparateAmounts {
		// Unparseable cells count as empty
		debit, _ := ParseAmount(cols.value(row, schema.DebitColumn))
		credit, _ := ParseAmount(cols.value(row, schema.CreditColumn))

		switch {
		case debit > 0:
			return -debit, "debit", nil
		case credit > 0:
			return credit, "credit", nil
		}
		return 0, "", errors.New("both debit and credit are zero")
	}

	amount, err := ParseAmount(cols.value(row, schema.AmountColumn))
	if err != nil {
		return 0, "", fmt.Errorf("failed to parse amount: %w", err)
	}

	indicator := cols.value(row, schema.DrCrColumn)
	switch strings.ToLower(strings.TrimSpace(indicator)) {
	case "dr":
		return -amount, "debit", nil
	case "cr":
		return amount, "credit", nil
	}
	return 0, "", fmt.Errorf("invalid Dr/Cr indicator: %s", indicator)
}

func isEmptyRow(row []string) bool {
	for _, field := range row {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func isSummaryRow(row []string) bool {
	if len(row) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(row[0]))
	for _, marker := range summaryRowMarkers {
		if strings.Contains(first, marker) {
			return true
		}
	}
	return false
}
