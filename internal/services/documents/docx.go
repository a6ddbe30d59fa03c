package documents

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ternarybob/scribe/internal/interfaces"
)

// loadDOCX extracts paragraph text from word/document.xml
func (l *Loader) loadDOCX(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s is not a valid docx file: %v", interfaces.ErrParse, filepath.Base(path), err)
	}
	defer archive.Close()

	data, ok, err := readZipEntry(&archive.Reader, "word/document.xml")
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s has no word/document.xml", interfaces.ErrParse, filepath.Base(path))
	}

	text, err := parseDocumentXML(data)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", interfaces.ErrParse, filepath.Base(path), err)
	}

	text, truncated := truncateRunes(text, l.maxChars)
	if truncated {
		l.logger.Warn().
			Str("path", path).
			Int("max_chars", l.maxChars).
			Msg("Word document truncated to character limit")
	}
	return text, nil
}

// parseDocumentXML walks the WordprocessingML tokens, emitting run text and
// ending each paragraph with a newline. Table cell paragraphs are included.
func parseDocumentXML(data []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))

	var b strings.Builder
	inText := false
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}

	lines := strings.Split(b.String(), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, strings.TrimRight(line, " \t"))
		}
	}
	return strings.Join(kept, "\n"), nil
}

// readZipEntry reads a named archive member; ok is false when it is absent
func readZipEntry(r *zip.Reader, name string) ([]byte, bool, error) {
	for _, f := range r.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, false, fmt.Errorf("%w: open %s: %v", interfaces.ErrParse, name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, false, fmt.Errorf("%w: read %s: %v", interfaces.ErrParse, name, err)
		}
		return data, true, nil
	}
	return nil, false, nil
}
