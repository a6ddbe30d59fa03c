package documents

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontMatter holds the YAML header fields the loader uses
type frontMatter struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
}

// loadText reads plain text and Markdown. A YAML front matter block is
// removed; its title becomes a heading line.
func (l *Loader) loadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	content = strings.TrimPrefix(content, "\ufeff")

	meta, body, ok := splitFrontMatter(content)
	if !ok {
		return content, nil
	}

	var fm frontMatter
	if err := yaml.Unmarshal([]byte(meta), &fm); err != nil {
		l.logger.Warn().Err(err).Str("path", path).Msg("Ignoring malformed front matter")
		return body, nil
	}

	var b strings.Builder
	if title := strings.TrimSpace(fm.Title); title != "" {
		b.WriteString("# ")
		b.WriteString(title)
		b.WriteString("\n\n")
	}
	if desc := strings.TrimSpace(fm.Description); desc != "" {
		b.WriteString(desc)
		b.WriteString("\n\n")
	}
	b.WriteString(body)
	return b.String(), nil
}

// splitFrontMatter separates a leading "---" delimited block from the body
func splitFrontMatter(content string) (meta string, body string, ok bool) {
	if !strings.HasPrefix(content, "---\n") {
		return "", content, false
	}

	rest := content[4:]
	end := strings.Index(rest, "\n---")
	if end == -1 {
		return "", content, false
	}

	meta = rest[:end]
	body = rest[end+4:]
	// Drop the remainder of the closing delimiter line
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = ""
	}
	return meta, strings.TrimSpace(body), true
}
