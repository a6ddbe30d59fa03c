package writer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/ternarybob/scribe/internal/services/transform"
)

const (
	quickChartURL = "https://quickchart.io/chart?c="
	maxTags       = 10
)

var (
	wrappingFence  = regexp.MustCompile("(?s)^```[a-zA-Z]*[ \t]*\n?(.*?)\n?```$")
	leadingFence   = regexp.MustCompile("^```[a-zA-Z]*[ \t]*\n")
	titleLine      = regexp.MustCompile(`(?i)^\s*(?:\*\*)?title:\s*(.+?)(?:\*\*)?\s*(?:\n|$)`)
	jsonFence      = regexp.MustCompile("(?s)```(?:json|JSON)?[ \t]*\n?(\\{.*?\\})\\s*\n?```")
	emptyBlocks    = regexp.MustCompile(`(?is)<p>\s*</p>|<pre>\s*(?:<code[^>]*>\s*</code>)?\s*</pre>`)
	blankLines     = regexp.MustCompile(`\n{3,}`)
	youTubePattern = regexp.MustCompile(`(?:youtube\.com/(?:watch\?(?:[^#\s]*&)?v=|embed/|shorts/|live/|v/)|youtu\.be/)([A-Za-z0-9_-]{11})`)
	youTubeID      = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	tweetPattern   = regexp.MustCompile(`(?:twitter\.com|x\.com)/(?:#!/)?[A-Za-z0-9_]+/status(?:es)?/(\d+)`)
	tweetID        = regexp.MustCompile(`^\d{5,25}$`)
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))

// taxonomyBlock is the {category, tags} JSON the model appends
type taxonomyBlock struct {
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

type chartBlock struct {
	Chart *models.ChartSpec `json:"chart"`
}

type mediaSpec struct {
	Type    string `json:"type"`
	URL     string `json:"url"`
	ID      string `json:"id"`
	YouTube string `json:"youtube"`
	Twitter string `json:"twitter"`
	Tweet   string `json:"tweet"`
}

type mediaBlock struct {
	Media *mediaSpec `json:"media"`
}

// blocks holds the JSON side-channels found in the model output
type blocks struct {
	taxonomy *taxonomyBlock
	chart    *models.ChartSpec
	media    *models.MediaEmbed
}

// PostProcess turns raw model output into an article:
//  1. strip wrapping code fences
//  2. convert Markdown to HTML when the output has fewer than two block tags
//  3. extract the taxonomy JSON, keeping the category only if it is a known one
//  4. replace the chart JSON with a rendered chart figure at the median paragraph
//  5. replace the media JSON with an embed at the median paragraph
//
// The first <h1> becomes the title and is removed from the body.
func PostProcess(raw string, categories []string) (*models.Article, error) {
	text := StripFences(raw)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: writer returned no content", interfaces.ErrEmptyInput)
	}

	// JSON blocks are lifted out before conversion so Markdown rendering cannot mangle them
	text, found := extractBlocks(text)

	var lineTitle string
	if m := titleLine.FindStringSubmatch(text); m != nil {
		lineTitle = strings.TrimSpace(m[1])
		text = text[len(m[0]):]
	}

	body := ToHTML(text)

	article := &models.Article{}
	if found.taxonomy != nil {
		article.Category = matchCategory(found.taxonomy.Category, categories)
		article.Tags = cleanTags(found.taxonomy.Tags)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body>" + body + "</body></html>"))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse article html: %v", interfaces.ErrParse, err)
	}
	root := doc.Find("body")

	if h1 := root.Find("h1").First(); h1.Length() > 0 {
		article.Title = strings.TrimSpace(h1.Text())
		h1.Remove()
	}
	if article.Title == "" {
		article.Title = lineTitle
	}

	if found.chart != nil {
		article.Chart = found.chart
		InjectAtMedian(root, RenderChart(*found.chart))
	}
	if found.media != nil {
		article.Media = found.media
		InjectAtMedian(root, RenderMedia(*found.media))
	}

	out, err := root.Html()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to render article html: %v", interfaces.ErrParse, err)
	}
	article.HTML = strings.TrimSpace(blankLines.ReplaceAllString(out, "\n\n"))

	if article.HTML == "" {
		return nil, fmt.Errorf("%w: article body is empty", interfaces.ErrEmptyInput)
	}
	return article, nil
}

// StripFences removes a code fence wrapping the whole output
func StripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if m := wrappingFence.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if loc := leadingFence.FindStringIndex(text); loc != nil {
		return strings.TrimSpace(text[loc[1]:])
	}
	return text
}

// ToHTML returns text unchanged when it already looks like HTML, otherwise
// renders it as Markdown.
func ToHTML(text string) string {
	text = strings.TrimSpace(text)
	if transform.LooksLikeHTML(text) {
		return text
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return "<p>" + html.EscapeString(text) + "</p>"
	}
	return strings.TrimSpace(buf.String())
}

// InjectAtMedian inserts fragment after top-level paragraph k = max(1, even(n/2))
// of the n top-level paragraphs, or appends it when there are none.
func InjectAtMedian(root *goquery.Selection, fragment string) {
	paragraphs := root.ChildrenFiltered("p")
	n := paragraphs.Length()
	if n == 0 {
		root.AppendHtml(fragment)
		return
	}
	paragraphs.Eq(MedianIndex(n) - 1).AfterHtml(fragment)
}

// MedianIndex returns the paragraph count after which media is inserted
func MedianIndex(n int) int {
	k := (n / 2 / 2) * 2
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	return k
}

// RenderChart renders a chart spec as a QuickChart image figure
func RenderChart(chart models.ChartSpec) string {
	chartType := strings.ToLower(strings.TrimSpace(chart.Type))
	if chartType == "" {
		chartType = "bar"
	}

	config := map[string]interface{}{
		"type": chartType,
		"data": map[string]interface{}{
			"labels": chart.Labels,
			"datasets": []map[string]interface{}{
				{"label": chart.Title, "data": chart.Data},
			},
		},
	}
	if chart.Title != "" {
		config["options"] = map[string]interface{}{
			"title": map[string]interface{}{"display": true, "text": chart.Title},
		}
	}

	encoded, _ := json.Marshal(config)
	src := quickChartURL + url.QueryEscape(string(encoded))
	alt := html.EscapeString(firstNonEmpty(chart.Title, "Chart"))

	return fmt.Sprintf(`<figure class="scribe-chart"><img src="%s" alt="%s"/><figcaption>%s</figcaption></figure>`,
		html.EscapeString(src), alt, alt)
}

// RenderMedia renders a YouTube iframe or an embedded tweet
func RenderMedia(media models.MediaEmbed) string {
	switch media.Kind {
	case models.MediaYouTube:
		return fmt.Sprintf(`<figure class="scribe-embed"><iframe width="560" height="315" src="https://www.youtube.com/embed/%s" title="YouTube video" frameborder="0" allowfullscreen></iframe></figure>`,
			url.PathEscape(media.ID))
	case models.MediaTwitter:
		return fmt.Sprintf(`<blockquote class="twitter-tweet"><a href="https://twitter.com/i/status/%s"></a></blockquote>`,
			url.PathEscape(media.ID))
	}
	return ""
}

// ParseMedia resolves a URL or bare ID into an embed
func ParseMedia(kind, ref string) (*models.MediaEmbed, bool) {
	ref = strings.TrimSpace(ref)
	kind = strings.ToLower(strings.TrimSpace(kind))

	if m := youTubePattern.FindStringSubmatch(ref); m != nil {
		return &models.MediaEmbed{Kind: models.MediaYouTube, ID: m[1]}, true
	}
	if m := tweetPattern.FindStringSubmatch(ref); m != nil {
		return &models.MediaEmbed{Kind: models.MediaTwitter, ID: m[1]}, true
	}

	switch kind {
	case "youtube", "video":
		if youTubeID.MatchString(ref) {
			return &models.MediaEmbed{Kind: models.MediaYouTube, ID: ref}, true
		}
	case "twitter", "tweet", "x":
		if tweetID.MatchString(ref) {
			return &models.MediaEmbed{Kind: models.MediaTwitter, ID: ref}, true
		}
	}
	return nil, false
}

// extractBlocks removes recognised JSON objects from text, fenced or bare
func extractBlocks(text string) (string, blocks) {
	var found blocks

	text = jsonFence.ReplaceAllStringFunc(text, func(match string) string {
		sub := jsonFence.FindStringSubmatch(match)
		if found.classify(sub[1]) {
			return ""
		}
		return match
	})

	type span struct{ start, end int }
	var spans []span
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		end := matchBrace(text, i)
		if end < 0 {
			continue
		}
		if found.classify(html.UnescapeString(text[i : end+1])) {
			spans = append(spans, span{i, end + 1})
			i = end
		}
	}
	sort.Slice(spans, func(a, b int) bool { return spans[a].start > spans[b].start })
	for _, s := range spans {
		text = text[:s.start] + text[s.end:]
	}

	text = emptyBlocks.ReplaceAllString(text, "")
	return strings.TrimSpace(text), found
}

// classify decodes candidate JSON and records it when it is a known block
func (b *blocks) classify(candidate string) bool {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &keys); err != nil {
		return false
	}

	if _, ok := keys["chart"]; ok {
		var cb chartBlock
		if json.Unmarshal([]byte(candidate), &cb) == nil && cb.Chart != nil {
			if valid := validChart(cb.Chart); valid && b.chart == nil {
				b.chart = cb.Chart
			}
			return true
		}
	}
	if _, ok := keys["labels"]; ok {
		var chart models.ChartSpec
		if _, hasData := keys["data"]; hasData && json.Unmarshal([]byte(candidate), &chart) == nil {
			if validChart(&chart) && b.chart == nil {
				b.chart = &chart
			}
			return true
		}
	}

	if _, ok := keys["media"]; ok {
		var mb mediaBlock
		if json.Unmarshal([]byte(candidate), &mb) == nil && mb.Media != nil {
			b.setMedia(*mb.Media)
			return true
		}
	}
	for _, key := range []string{"youtube", "twitter", "tweet"} {
		if _, ok := keys[key]; ok {
			var spec mediaSpec
			if json.Unmarshal([]byte(candidate), &spec) == nil {
				b.setMedia(spec)
				return true
			}
		}
	}

	_, hasCategory := keys["category"]
	_, hasTags := keys["tags"]
	if hasCategory || hasTags {
		var tax taxonomyBlock
		if json.Unmarshal([]byte(candidate), &tax) == nil {
			if b.taxonomy == nil {
				b.taxonomy = &tax
			}
			return true
		}
	}
	return false
}

func (b *blocks) setMedia(spec mediaSpec) {
	if b.media != nil {
		return
	}
	candidates := []struct{ kind, ref string }{
		{spec.Type, spec.URL},
		{spec.Type, spec.ID},
		{"youtube", spec.YouTube},
		{"twitter", spec.Twitter},
		{"twitter", spec.Tweet},
	}
	for _, c := range candidates {
		if c.ref == "" {
			continue
		}
		if media, ok := ParseMedia(c.kind, c.ref); ok {
			b.media = media
			return
		}
	}
}

func validChart(chart *models.ChartSpec) bool {
	return len(chart.Labels) > 0 && len(chart.Labels) == len(chart.Data)
}

// matchBrace returns the index of the brace closing the one at start, or -1
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// matchCategory returns the site category equal (case-insensitively) to
// category, or "" when it is not one of them.
func matchCategory(category string, categories []string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		return ""
	}
	for _, c := range categories {
		if strings.EqualFold(strings.TrimSpace(c), category) {
			return c
		}
	}
	return ""
}

func cleanTags(tags []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tag := range tags {
		tag = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
		key := strings.ToLower(tag)
		if tag == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tag)
		if len(out) == maxTags {
			break
		}
	}
	return out
}
