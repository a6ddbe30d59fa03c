package sources

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/ternarybob/scribe/internal/services/transform"
)

const (
	mainContentSelector = "article, main, [role=main]"
	boilerplateSelector = "script, style, noscript, nav, footer, header, aside, form, iframe"
)

// WebAdapter scrapes a page. With a selector every matching block becomes an
// item; without one the page's main content is a single item.
type WebAdapter struct {
	pageURL     string
	selector    string
	maxItems    int
	filter      KeywordFilter
	fetcher     *fetcher
	transformer *transform.Service
}

// Fetch downloads the page and extracts its items
func (a *WebAdapter) Fetch(ctx context.Context) ([]models.ContentItem, error) {
	body, err := a.fetcher.get(ctx, a.pageURL, "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", interfaces.ErrParse, a.pageURL, err)
	}

	var items []models.ContentItem
	if strings.TrimSpace(a.selector) != "" {
		items = a.extractBlocks(doc)
	} else if item, ok := a.extractPage(doc); ok {
		items = []models.ContentItem{item}
	}

	found := len(items)
	items = a.filter.Apply(items)
	if a.maxItems > 0 && len(items) > a.maxItems {
		items = items[:a.maxItems]
	}

	a.fetcher.logger.Info().
		Str("url", a.pageURL).
		Str("selector", a.selector).
		Int("found", found).
		Int("items", len(items)).
		Msg("Web page collected")

	return items, nil
}

func (a *WebAdapter) extractBlocks(doc *goquery.Document) []models.ContentItem {
	var items []models.ContentItem
	doc.Find(a.selector).Each(func(_ int, block *goquery.Selection) {
		block.Find(boilerplateSelector).Remove()

		title := strings.TrimSpace(block.Find("h1, h2, h3, h4, h5, h6").First().Text())
		anchor := block.Find("a[href]").First()
		if title == "" {
			title = strings.TrimSpace(anchor.Text())
		}

		link := ""
		if href, ok := anchor.Attr("href"); ok {
			link = resolveLink(a.pageURL, href)
		}

		blockHTML, err := goquery.OuterHtml(block)
		if err != nil {
			return
		}
		content := a.transformer.HTMLToMarkdown(blockHTML, a.pageURL)
		if content == "" {
			return
		}

		title = transform.CleanText(title)
		if title == "" {
			title = firstLine(content)
		}

		items = append(items, models.ContentItem{
			Title:      title,
			Content:    content,
			SourceType: models.SourceTypeWeb,
			SourceURL:  firstNonEmpty(link, a.pageURL),
			Link:       link,
		})
	})
	return items
}

func (a *WebAdapter) extractPage(doc *goquery.Document) (models.ContentItem, bool) {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	doc.Find(boilerplateSelector).Remove()
	main := doc.Find(mainContentSelector).First()
	if main.Length() == 0 {
		main = doc.Find("body")
	}

	mainHTML, err := main.Html()
	if err != nil {
		return models.ContentItem{}, false
	}
	content := a.transformer.HTMLToMarkdown(mainHTML, a.pageURL)
	if content == "" {
		return models.ContentItem{}, false
	}

	return models.ContentItem{
		Title:      transform.CleanText(title),
		Content:    content,
		SourceType: models.SourceTypeWeb,
		SourceURL:  a.pageURL,
		Link:       a.pageURL,
	}, true
}

// resolveLink resolves href against the page URL
func resolveLink(pageURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	line = strings.TrimLeft(line, "#*-> ")
	if runes := []rune(line); len(runes) > 120 {
		line = string(runes[:120])
	}
	return strings.TrimSpace(line)
}
