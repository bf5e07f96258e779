// Package local extracts text from a blob on the worker itself. It backs the
// fallback path taken when the OCR provider cannot be reached.
package local

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, filename, mimeType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("local extract: empty blob")
	}

	switch kind(filename, mimeType) {
	case "pdf":
		return extractPDF(data)
	case "xlsx":
		return extractXLSX(data)
	case "text":
		if !validText(data) {
			return "", fmt.Errorf("local extract: blob is not valid utf-8 text")
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("local extract: unsupported type %q for %q", mimeType, filename)
	}
}

func kind(filename, mimeType string) string {
	switch {
	case strings.Contains(mimeType, "pdf"):
		return "pdf"
	case strings.Contains(mimeType, "spreadsheet"), strings.Contains(mimeType, "excel"):
		return "xlsx"
	case strings.HasPrefix(mimeType, "text/"), strings.Contains(mimeType, "json"), strings.Contains(mimeType, "xml"):
		return "text"
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "pdf"
	case ".xlsx", ".xlsm":
		return "xlsx"
	case ".txt", ".md", ".csv", ".json", ".xml", ".log":
		return "text"
	}
	return ""
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var b strings.Builder
	if _, err := io.Copy(&b, plain); err != nil {
		return "", fmt.Errorf("copy pdf text: %w", err)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("pdf contains no extractable text")
	}
	return text, nil
}

func extractXLSX(data []byte) (string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer file.Close()

	var b strings.Builder
	for _, sheet := range file.GetSheetList() {
		rows, err := file.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		b.WriteString(sheet)
		b.WriteString("\n")
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("workbook contains no cell data")
	}
	return text, nil
}

// validText rejects blobs that pretend to be text but decode as garbage.
func validText(data []byte) bool {
	return utf8.Valid(data)
}
