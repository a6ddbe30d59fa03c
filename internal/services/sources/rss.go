package sources

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/ternarybob/scribe/internal/services/transform"
)

// rssFeed represents an RSS 2.0 document
type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Encoded     string `xml:"http://purl.org/rss/1.0/modules/content/ encoded"`
	PubDate     string `xml:"pubDate"`
	GUID        string `xml:"guid"`
}

// atomFeed represents an Atom document
type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Title   string      `xml:"title"`
	Entries []atomEntry `xml:"entry"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

type atomEntry struct {
	Title     string     `xml:"title"`
	Link      []atomLink `xml:"link"`
	Summary   string     `xml:"summary"`
	Content   string     `xml:"content"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
	ID        string     `xml:"id"`
}

// RSSAdapter reads RSS 2.0 and Atom feeds
type RSSAdapter struct {
	feedURL  string
	maxItems int
	filter   KeywordFilter
	fetcher  *fetcher
}

// Fetch downloads the feed and returns the filtered items, newest as listed by the feed
func (a *RSSAdapter) Fetch(ctx context.Context) ([]models.ContentItem, error) {
	body, err := a.fetcher.get(ctx, a.feedURL, "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")
	if err != nil {
		return nil, err
	}

	items, err := parseFeed(body, a.feedURL)
	if err != nil {
		return nil, err
	}

	items = a.filter.Apply(items)
	if a.maxItems > 0 && len(items) > a.maxItems {
		items = items[:a.maxItems]
	}

	a.fetcher.logger.Info().
		Str("feed", a.feedURL).
		Int("items", len(items)).
		Msg("RSS feed collected")

	return items, nil
}

// parseFeed tries RSS first, then Atom
func parseFeed(body []byte, feedURL string) ([]models.ContentItem, error) {
	var rss rssFeed
	rssErr := decodeXML(body, &rss)
	if rssErr == nil {
		return rssItems(rss, feedURL), nil
	}

	var atom atomFeed
	if err := decodeXML(body, &atom); err == nil {
		return atomItems(atom, feedURL), nil
	}

	return nil, fmt.Errorf("%w: %s is not an RSS or Atom feed: %v", interfaces.ErrParse, feedURL, rssErr)
}

func decodeXML(body []byte, v interface{}) error {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	decoder.CharsetReader = charset.NewReaderLabel
	decoder.Strict = false
	decoder.Entity = xml.HTMLEntity
	return decoder.Decode(v)
}

func rssItems(feed rssFeed, feedURL string) []models.ContentItem {
	items := make([]models.ContentItem, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		body := item.Encoded
		if strings.TrimSpace(body) == "" {
			body = item.Description
		}
		link := strings.TrimSpace(item.Link)
		items = append(items, models.ContentItem{
			Title:       transform.CleanText(item.Title),
			Content:     transform.CleanText(body),
			SourceType:  models.SourceTypeRSS,
			SourceURL:   firstNonEmpty(link, feedURL),
			Link:        link,
			Description: transform.CleanText(item.Description),
			PubDate:     strings.TrimSpace(item.PubDate),
			GUID:        strings.TrimSpace(item.GUID),
		})
	}
	return items
}

func atomItems(feed atomFeed, feedURL string) []models.ContentItem {
	items := make([]models.ContentItem, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		var link string
		for _, l := range entry.Link {
			if l.Rel == "" || l.Rel == "alternate" {
				link = strings.TrimSpace(l.Href)
				break
			}
		}

		body := entry.Content
		if strings.TrimSpace(body) == "" {
			body = entry.Summary
		}
		items = append(items, models.ContentItem{
			Title:       transform.CleanText(entry.Title),
			Content:     transform.CleanText(body),
			SourceType:  models.SourceTypeRSS,
			SourceURL:   firstNonEmpty(link, feedURL),
			Link:        link,
			Description: transform.CleanText(entry.Summary),
			PubDate:     firstNonEmpty(entry.Published, entry.Updated),
			GUID:        strings.TrimSpace(entry.ID),
		})
	}
	return items
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
