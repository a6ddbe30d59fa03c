package documents

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/ternarybob/scribe/internal/interfaces"
)

// loadPDF extracts the text of every page, decoding through the page fonts
// and their ToUnicode maps. Pages are separated by a blank line.
func (l *Loader) loadPDF(path string) (text string, err error) {
	// pdfcpu rejects damaged and password protected files up front
	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read PDF %s: %v", interfaces.ErrParse, filepath.Base(path), err)
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: failed to open PDF %s: %v", interfaces.ErrParse, filepath.Base(path), err)
	}
	defer f.Close()

	// The reader panics on some malformed object graphs
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: malformed PDF %s: %v", interfaces.ErrParse, filepath.Base(path), r)
		}
	}()

	var b strings.Builder
	withText := 0
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			l.logger.Warn().Err(err).Str("path", path).Int("page", i).Msg("Failed to extract page text")
			continue
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(pageText)
		withText++
	}

	l.logger.Debug().
		Str("path", path).
		Int("page_count", pdfCtx.PageCount).
		Int("pages_with_text", withText).
		Msg("PDF text extracted")

	return b.String(), nil
}
