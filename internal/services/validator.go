package services

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Statement kinds recognised from file content
const (
	FileTypeCSV  = "CSV"
	FileTypeXLSX = "XLSX"
)

const (
	mimeCSV  = "text/csv"
	mimeText = "text/plain"
	mimeXLS  = "application/vnd.ms-excel"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// zipSignature opens every XLSX workbook
var zipSignature = []byte{0x50, 0x4B, 0x03, 0x04}

// textSampleSize bounds how much of a file is inspected for text content
const textSampleSize = 512

// statementExtensions maps accepted extensions to their declared MIME type
var statementExtensions = map[string]string{
	".csv":  mimeCSV,
	".xlsx": mimeXLSX,
	".xls":  mimeXLS,
}

// acceptedMimeTypes lists the MIME types each detected kind may be declared as
var acceptedMimeTypes = map[string][]string{
	FileTypeCSV:  {mimeCSV, mimeText, mimeXLS},
	FileTypeXLSX: {mimeXLSX, mimeXLS},
}

// ValidationResult reports every problem found with an uploaded statement
type ValidationResult struct {
	Valid        bool     `json:"valid"`
	DetectedType string   `json:"detected_type,omitempty"`
	ContentType  string   `json:"content_type"`
	Size         int64    `json:"size"`
	Errors       []string `json:"errors"`
	Warnings     []string `json:"warnings"`

	// Content holds the bytes read during validation
	Content []byte `json:"-"`
}

func (r *ValidationResult) fail(err error) {
	r.Valid = false
	r.Errors = append(r.Errors, err.Error())
}

// FileValidator checks statement uploads before they reach the parser
type FileValidator struct {
	maxSizeBytes int64
}

// ContentTypeForFilename returns the MIME type expected for a statement file
func ContentTypeForFilename(filename string) string {
	return statementExtensions[strings.ToLower(filepath.Ext(filename))]
}

// NewFileValidator accepts statements up to maxSizeBytes
func NewFileValidator(maxSizeBytes int64) *FileValidator {
	return &FileValidator{maxSizeBytes: maxSizeBytes}
}

// ValidateFile reads at most one byte past the size limit from reader and
// collects every filename, MIME, size and content error it finds. The
// returned error is only set when reading fails.
func (v *FileValidator) ValidateFile(reader io.Reader, filename, contentType string) (*ValidationResult, error) {
	contentType = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	result := &ValidationResult{
		Valid:       true,
		ContentType: contentType,
		Errors:      []string{},
		Warnings:    []string{},
	}

	if err := v.ValidateFilename(filename); err != nil {
		result.fail(err)
	}
	if err := v.ValidateMimeType(contentType); err != nil {
		result.fail(err)
	}

	data, err := io.ReadAll(io.LimitReader(reader, v.maxSizeBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	result.Content = data
	result.Size = int64(len(data))

	if err := v.ValidateFileSize(result.Size); err != nil {
		result.fail(err)
	}

	detected, err := v.ValidateMagicBytes(data)
	if err != nil {
		result.fail(err)
		return result, nil
	}
	result.DetectedType = detected

	if !declaredAs(detected, contentType) {
		result.fail(errors.New("MIME type does not match file content"))
	}

	return result, nil
}

// ValidateFilename rejects names that are empty, escape the upload
// directory or carry an extension other than csv, xlsx or xls.
func (v *FileValidator) ValidateFilename(filename string) error {
	switch {
	case filename == "":
		return errors.New("filename cannot be empty")
	case strings.Contains(filename, ".."):
		return errors.New("filename contains path traversal")
	case strings.ContainsRune(filename, 0):
		return errors.New("filename contains null bytes")
	case strings.HasPrefix(filename, "/"), strings.HasPrefix(filename, `\`):
		return errors.New("filename cannot be absolute path")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return errors.New("filename must have an extension")
	}
	if _, ok := statementExtensions[ext]; !ok {
		return fmt.Errorf("unsupported file extension: %s", ext)
	}
	return nil
}

// ValidateMimeType accepts the declared types of CSV and Excel statements
func (v *FileValidator) ValidateMimeType(contentType string) error {
	if contentType == "" {
		return errors.New("MIME type cannot be empty")
	}
	for _, types := range acceptedMimeTypes {
		for _, t := range types {
			if t == contentType {
				return nil
			}
		}
	}
	return fmt.Errorf("unsupported MIME type: %s", contentType)
}

// ValidateMagicBytes detects the statement kind from its content
func (v *FileValidator) ValidateMagicBytes(data []byte) (string, error) {
	switch {
	case len(data) == 0:
		return "", errors.New("empty file")
	case bytes.HasPrefix(data, zipSignature):
		return FileTypeXLSX, nil
	case looksLikeText(data):
		return FileTypeCSV, nil
	}
	return "", errors.New("unsupported file type based on content")
}

// ValidateFileSize enforces 0 < size <= the configured maximum
func (v *FileValidator) ValidateFileSize(size int64) error {
	switch {
	case size < 0:
		return errors.New("invalid file size")
	case size == 0:
		return errors.New("empty file")
	case size > v.maxSizeBytes:
		return fmt.Errorf("file size (%d bytes) exceeds maximum allowed size (%d bytes)", size, v.maxSizeBytes)
	}
	return nil
}

func declaredAs(detected, contentType string) bool {
	for _, t := range acceptedMimeTypes[detected] {
		if t == contentType {
			return true
		}
	}
	return false
}

// looksLikeText reports whether more than 95% of the leading sample is
// printable. Valid UTF-8 such as the rupee sign counts as printable.
func looksLikeText(data []byte) bool {
	sample := data[:min(len(data), textSampleSize)]
	if bytes.IndexByte(sample, 0) >= 0 {
		return false
	}

	// The sample may cut the last rune in half
	multiByteOK := utf8.Valid(sample) || utf8.Valid(trimPartialRune(sample))

	printable := 0
	for _, b := range sample {
		switch {
		case b >= 0x20 && b <= 0x7E, b == '\t', b == '\n', b == '\r':
			printable++
		case b >= 0x80 && multiByteOK:
			printable++
		}
	}
	return float64(printable)/float64(len(sample)) > 0.95
}

// trimPartialRune drops an incomplete UTF-8 sequence from the end of b
func trimPartialRune(b []byte) []byte {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		if utf8.RuneStart(b[len(b)-i]) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}
			break
		}
	}
	return b
}
