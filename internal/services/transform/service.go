package transform

import (
	"html"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	blockTagPattern   = regexp.MustCompile(`(?i)<(p|h[1-6]|ul|ol|li|blockquote|div|table|figure|section|article)[\s>]`)
)

// Service converts fetched HTML into text the pipeline can chunk, filter and prompt with
type Service struct {
	logger arbor.ILogger
}

// NewService creates a new transform service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
	}
}

// HTMLToMarkdown converts HTML content to markdown.
// baseURL is used for resolving relative links.
func (s *Service) HTMLToMarkdown(htmlContent string, baseURL string) string {
	if strings.TrimSpace(htmlContent) == "" {
		return ""
	}

	mdConverter := md.NewConverter(baseURL, true, nil)
	converted, err := mdConverter.ConvertString(htmlContent)
	if err != nil {
		s.logger.Warn().Err(err).Str("base_url", baseURL).Msg("HTML to markdown conversion failed, using plain text")
		return CleanText(htmlContent)
	}

	converted = strings.TrimSpace(converted)
	if converted == "" {
		s.logger.Debug().
			Int("html_length", len(htmlContent)).
			Msg("HTML to markdown conversion produced empty output, using plain text")
		return CleanText(htmlContent)
	}

	return converted
}

// CleanText strips tags, decodes entities and collapses whitespace
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	var text string
	if doc, ok := parseMarkup(content); ok {
		doc.Find("script, style, noscript").Remove()
		// Keep block boundaries from gluing words together
		doc.Find("p, br, li, h1, h2, h3, h4, h5, h6, div, tr").Each(func(_ int, sel *goquery.Selection) {
			sel.AppendHtml(" ")
		})
		// Text() has already decoded entities
		text = doc.Text()
	} else {
		text = html.UnescapeString(tagPattern.ReplaceAllString(content, " "))
	}

	text = strings.ReplaceAll(text, "\u00a0", " ")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

func parseMarkup(content string) (*goquery.Document, bool) {
	if !strings.Contains(content, "<") {
		return nil, false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, false
	}
	return doc, true
}

// BlockTagCount counts opening block-level tags, used to decide whether
// generated output is already HTML.
func BlockTagCount(content string) int {
	return len(blockTagPattern.FindAllStringIndex(content, -1))
}

// LooksLikeHTML reports whether content has at least two block-level tags
func LooksLikeHTML(content string) bool {
	return BlockTagCount(content) >= 2
}
