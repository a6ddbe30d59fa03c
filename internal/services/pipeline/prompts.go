package pipeline

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/ternarybob/scribe/internal/models"
)

var listMarker = regexp.MustCompile(`^(#+|[-*]|\d+[.)])\s+`)

func topicPrompt(summary string, recent []string) string {
	var b strings.Builder
	b.WriteString("You plan articles for a blog backed by the knowledge base summarised below.\n\n")
	b.WriteString("## Knowledge base\n")
	b.WriteString(summary)
	b.WriteString("\n\n")
	if len(recent) > 0 {
		b.WriteString("## Recently covered, do not repeat\n")
		for _, topic := range recent {
			fmt.Fprintf(&b, "- %s\n", topic)
		}
		b.WriteString("\n")
	}
	b.WriteString("Suggest exactly one new article topic grounded in the knowledge base. ")
	b.WriteString("Reply with the topic as a single line of plain text and nothing else.")
	return b.String()
}

func anglePrompt(title, content, kbContext string) string {
	var b strings.Builder
	b.WriteString("Suggest one fresh editorial angle for a blog post about the story below. ")
	b.WriteString("Reply with one or two sentences describing the perspective and nothing else.\n\n")
	fmt.Fprintf(&b, "## Story\nTitle: %s\n", title)
	if content != "" {
		b.WriteString(content)
		b.WriteString("\n")
	}
	if kbContext != "" {
		b.WriteString("\n## Background from our knowledge base\n")
		b.WriteString(kbContext)
		b.WriteString("\n")
	}
	return b.String()
}

// firstLine returns the first non-empty line of text without list markers
// or wrapping quotes
func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = listMarker.ReplaceAllString(strings.TrimSpace(line), "")
		line = strings.TrimPrefix(line, "Topic:")
		line = strings.Trim(line, "\"'`* ")
		if line != "" {
			return line
		}
	}
	return ""
}

func joinChunks(chunks []models.ScoredChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, strings.TrimSpace(c.Text))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// RelatedReading renders the interlink list appended to an article
func RelatedReading(posts []*models.Post) string {
	var b strings.Builder
	b.WriteString("\n<h3>Related Reading</h3>\n<ul>\n")
	for _, post := range posts {
		fmt.Fprintf(&b, "<li><a href=\"%s\">%s</a></li>\n", html.EscapeString(post.Link), html.EscapeString(post.Title))
	}
	b.WriteString("</ul>")
	return b.String()
}
