// Package documents extracts plain text from knowledge base files and
// manages the KB entries that reference them.
package documents

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
)

const (
	// DefaultMaxSpreadsheetRows caps the rows flattened from a spreadsheet
	DefaultMaxSpreadsheetRows = 2500

	// DefaultMaxDocumentChars caps the characters extracted from a Word document
	DefaultMaxDocumentChars = 200000
)

// Loader dispatches on file extension to the matching extractor
type Loader struct {
	maxRows  int
	maxChars int
	logger   arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.DocumentLoader = (*Loader)(nil)

// NewLoader creates a document loader using the kb limits from config
func NewLoader(config *common.Config, logger arbor.ILogger) *Loader {
	l := &Loader{
		maxRows:  config.KB.MaxSpreadsheetRows,
		maxChars: config.KB.MaxDocumentChars,
		logger:   logger,
	}
	if l.maxRows <= 0 {
		l.maxRows = DefaultMaxSpreadsheetRows
	}
	if l.maxChars <= 0 {
		l.maxChars = DefaultMaxDocumentChars
	}
	return l
}

// Load returns the text content of the file at path.
// Unsupported extensions fail with ErrParse.
func (l *Loader) Load(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(path))

	var text string
	var err error
	switch ext {
	case ".csv":
		text, err = l.loadDelimited(path, ',')
	case ".tsv":
		text, err = l.loadDelimited(path, '\t')
	case ".xlsx":
		text, err = l.loadXLSX(path)
	case ".pdf":
		text, err = l.loadPDF(path)
	case ".docx":
		text, err = l.loadDOCX(path)
	case ".txt", ".md", ".markdown":
		text, err = l.loadText(path)
	default:
		return "", fmt.Errorf("%w: unsupported document type %q", interfaces.ErrParse, ext)
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: no text extracted from %s", interfaces.ErrEmptyInput, filepath.Base(path))
	}

	l.logger.Debug().
		Str("path", path).
		Str("type", ext).
		Int("chars", len(text)).
		Msg("Document loaded")

	return text, nil
}

// truncateRunes cuts s to at most max runes, reporting whether it did
func truncateRunes(s string, max int) (string, bool) {
	if max <= 0 || len(s) <= max {
		return s, false
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s, false
	}
	return string(runes[:max]), true
}
