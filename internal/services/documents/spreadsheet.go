package documents

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ternarybob/scribe/internal/interfaces"
)

// loadDelimited flattens a CSV/TSV file to one "a | b | c" line per row
func (l *Loader) loadDelimited(path string, comma rune) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var rows [][]string
	truncated := false
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", interfaces.ErrParse, filepath.Base(path), err)
		}
		if len(rows) >= l.maxRows {
			truncated = true
			break
		}
		rows = append(rows, record)
	}

	l.warnRowsTruncated(path, truncated)
	return flattenRows(rows), nil
}

// loadXLSX flattens the first sheet of a workbook, in workbook order
func (l *Loader) loadXLSX(path string) (string, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s is not a valid xlsx file: %v", interfaces.ErrParse, filepath.Base(path), err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("%w: %s has no worksheets", interfaces.ErrParse, filepath.Base(path))
	}

	iter, err := book.Rows(sheets[0])
	if err != nil {
		return "", fmt.Errorf("%w: worksheet %q: %v", interfaces.ErrParse, sheets[0], err)
	}
	defer iter.Close()

	var rows [][]string
	truncated := false
	for iter.Next() {
		if len(rows) >= l.maxRows {
			truncated = true
			break
		}
		cells, err := iter.Columns()
		if err != nil {
			return "", fmt.Errorf("%w: worksheet %q: %v", interfaces.ErrParse, sheets[0], err)
		}
		rows = append(rows, cells)
	}
	if err := iter.Error(); err != nil {
		return "", fmt.Errorf("%w: worksheet %q: %v", interfaces.ErrParse, sheets[0], err)
	}

	l.warnRowsTruncated(path, truncated)
	return flattenRows(rows), nil
}

func (l *Loader) warnRowsTruncated(path string, truncated bool) {
	if truncated {
		l.logger.Warn().
			Str("path", path).
			Int("max_rows", l.maxRows).
			Msg("Spreadsheet truncated to row limit")
	}
}

func flattenRows(rows [][]string) string {
	var b strings.Builder
	for _, row := range rows {
		cells := make([]string, 0, len(row))
		empty := true
		for _, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell != "" {
				empty = false
			}
			cells = append(cells, cell)
		}
		if empty {
			continue
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString("\n")
	}
	return b.String()
}
