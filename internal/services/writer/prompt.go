// Package writer builds the article prompt and turns model output into
// publishable HTML.
package writer

import (
	"fmt"
	"strings"

	"github.com/ternarybob/scribe/internal/models"
)

const (
	// DefaultExcerptChars is the length each source excerpt is cut to
	DefaultExcerptChars = 1200

	// DefaultMaxExcerpts is the number of supplementary sources included
	DefaultMaxExcerpts = 5
)

// PromptInput carries everything the article prompt is built from
type PromptInput struct {
	Persona      *models.Persona
	StyleGuide   string
	Language     string
	MinWords     int
	Categories   []string
	Angle        string
	KBContext    string
	Research     string
	Primary      models.ContentItem
	Sources      []models.ContentItem
	ExcerptChars int
	MaxExcerpts  int
}

// BuildPrompt renders the article generation prompt
func BuildPrompt(in PromptInput) string {
	excerptChars := in.ExcerptChars
	if excerptChars <= 0 {
		excerptChars = DefaultExcerptChars
	}
	maxExcerpts := in.MaxExcerpts
	if maxExcerpts <= 0 {
		maxExcerpts = DefaultMaxExcerpts
	}
	language := in.Language
	if language == "" {
		language = "English"
	}

	var b strings.Builder

	b.WriteString("You are a professional blog writer.\n\n")

	if in.Persona != nil {
		fmt.Fprintf(&b, "## Voice: %s\n%s\n", in.Persona.Name, strings.TrimSpace(in.Persona.Desc))
		for i, sample := range in.Persona.Samples {
			if i == 0 {
				b.WriteString("\nMatch the tone of these writing samples:\n")
			}
			fmt.Fprintf(&b, "---\n%s\n", Truncate(sample, excerptChars))
		}
		b.WriteString("\n")
	}

	if style := strings.TrimSpace(in.StyleGuide); style != "" {
		fmt.Fprintf(&b, "## Style guide\n%s\n\n", style)
	}

	if angle := strings.TrimSpace(in.Angle); angle != "" {
		fmt.Fprintf(&b, "## Editorial angle\nWrite the article from this perspective: %s\n\n", angle)
	}

	b.WriteString("## Primary source\n")
	if in.Primary.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", in.Primary.Title)
	}
	if link := firstNonEmpty(in.Primary.Link, in.Primary.SourceURL); link != "" {
		fmt.Fprintf(&b, "URL: %s\n", link)
	}
	fmt.Fprintf(&b, "%s\n\n", Truncate(in.Primary.Content, excerptChars))

	if kb := strings.TrimSpace(in.KBContext); kb != "" {
		fmt.Fprintf(&b, "## Knowledge base context\n%s\n\n", kb)
	}

	written := 0
	for _, src := range in.Sources {
		if written >= maxExcerpts {
			break
		}
		if src.Title == in.Primary.Title && src.Content == in.Primary.Content {
			continue
		}
		if written == 0 {
			b.WriteString("## Supporting sources\n")
		}
		written++
		fmt.Fprintf(&b, "### %d. %s\n%s\n\n", written, src.Title, Truncate(src.Content, excerptChars))
	}

	if research := strings.TrimSpace(in.Research); research != "" {
		fmt.Fprintf(&b, "%s\n\n", research)
	}

	b.WriteString("## Instructions\n")
	fmt.Fprintf(&b, "- Write in %s.\n", language)
	if in.MinWords > 0 {
		fmt.Fprintf(&b, "- Write at least %d words.\n", in.MinWords)
	}
	b.WriteString("- Output clean HTML only: one <h1> title, <h2> section headings, <p> paragraphs, <ul>/<ol> lists and <blockquote> where useful. No <html>, <head> or <body> tags and no code fences.\n")
	b.WriteString("- Use your own words. Do not copy sentences from the sources.\n")
	if len(in.Categories) > 0 {
		fmt.Fprintf(&b, "- After the article, output a JSON block {\"category\": \"...\", \"tags\": [\"...\"]}. The category MUST be one of: %s. Give 3 to 8 tags.\n",
			strings.Join(in.Categories, ", "))
	} else {
		b.WriteString("- After the article, output a JSON block {\"category\": \"...\", \"tags\": [\"...\"]} with 3 to 8 tags.\n")
	}
	b.WriteString("- Optional: if the sources contain numeric data worth visualising, output a JSON block {\"chart\": {\"type\": \"bar\", \"title\": \"...\", \"labels\": [...], \"data\": [...]}}.\n")
	b.WriteString("- Optional: if a specific YouTube video or X/Twitter post is central to the story, output a JSON block {\"media\": {\"type\": \"youtube\" or \"twitter\", \"url\": \"...\"}}.\n")

	return b.String()
}

// Truncate cuts s to max runes at a word boundary, appending "..."
func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	cut := string(runes[:max])
	if i := strings.LastIndexAny(cut, " \n\t"); i > max/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "..."
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
