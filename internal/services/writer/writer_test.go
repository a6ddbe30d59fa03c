package writer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

func TestToHTML_MarkdownFallback(t *testing.T) {
	out := ToHTML("# Title\n\nSome **bold** text.")
	assert.Equal(t, "<h1>Title</h1>\n<p>Some <strong>bold</strong> text.</p>", out)

	html := "<h2>Already</h2><p>html</p>"
	assert.Equal(t, html, ToHTML(html))
}

func TestPostProcess_Markdown(t *testing.T) {
	article, err := PostProcess("# Title\n\nSome **bold** text.", nil)
	require.NoError(t, err)
	assert.Equal(t, "Title", article.Title)
	assert.Equal(t, "<p>Some <strong>bold</strong> text.</p>", article.HTML)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, "<h1>T</h1><p>a</p>", StripFences("```html\n<h1>T</h1><p>a</p>\n```"))
	assert.Equal(t, "<p>a</p>", StripFences("```\n<p>a</p>"))
	assert.Equal(t, "plain", StripFences("  plain  "))
}

func TestPostProcess_Taxonomy(t *testing.T) {
	raw := "<h1>Go 1.23</h1>\n<p>One.</p>\n<p>Two.</p>\n" +
		`{"category": "news", "tags": ["go", "Go", "#release", ""]}`

	article, err := PostProcess(raw, []string{"News", "Opinion"})
	require.NoError(t, err)
	assert.Equal(t, "Go 1.23", article.Title)
	assert.Equal(t, "News", article.Category)
	assert.Equal(t, []string{"go", "release"}, article.Tags)
	assert.NotContains(t, article.HTML, "category")
	assert.NotContains(t, article.HTML, "<h1>")
}

func TestPostProcess_UnknownCategoryDropped(t *testing.T) {
	raw := "<p>One.</p><p>Two.</p>```json\n{\"category\": \"Sports\", \"tags\": [\"x\"]}\n```"
	article, err := PostProcess(raw, []string{"News"})
	require.NoError(t, err)
	assert.Empty(t, article.Category)
	assert.Equal(t, []string{"x"}, article.Tags)
	assert.NotContains(t, article.HTML, "Sports")
}

func TestPostProcess_MarkdownWithFencedTaxonomy(t *testing.T) {
	raw := "# Hello\n\nPara one.\n\nPara two.\n\n```json\n{\"category\": \"Guides\", \"tags\": [\"a\"]}\n```"
	article, err := PostProcess(raw, []string{"News", "Guides"})
	require.NoError(t, err)
	assert.Equal(t, "Hello", article.Title)
	assert.Equal(t, "Guides", article.Category)
	assert.Contains(t, article.HTML, "<p>Para one.</p>")
	assert.NotContains(t, article.HTML, "```")
}

func TestPostProcess_ChartAndMediaAtMedian(t *testing.T) {
	raw := "<h1>Growth</h1>\n<p>P1</p>\n<p>P2</p>\n<p>P3</p>\n<p>P4</p>\n" +
		`{"chart": {"type": "line", "title": "Growth", "labels": ["Q1", "Q2"], "data": [1, 2]}}` + "\n" +
		`{"media": {"type": "youtube", "url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ"}}`

	article, err := PostProcess(raw, nil)
	require.NoError(t, err)
	require.NotNil(t, article.Chart)
	require.NotNil(t, article.Media)
	assert.Equal(t, models.MediaYouTube, article.Media.Kind)
	assert.Equal(t, "dQw4w9WgXcQ", article.Media.ID)

	out := article.HTML
	p2 := strings.Index(out, "<p>P2</p>")
	p3 := strings.Index(out, "<p>P3</p>")
	chart := strings.Index(out, "scribe-chart")
	embed := strings.Index(out, "https://www.youtube.com/embed/dQw4w9WgXcQ")
	require.True(t, p2 >= 0 && p3 >= 0 && chart >= 0 && embed >= 0, out)
	assert.True(t, p2 < chart && chart < p3, out)
	assert.True(t, p2 < embed && embed < p3, out)
	assert.Contains(t, out, "quickchart.io/chart?c=")
	assert.NotContains(t, out, `"labels"`)
}

func TestPostProcess_InvalidChartRemoved(t *testing.T) {
	raw := "<p>A</p><p>B</p>" + `{"chart": {"labels": ["a", "b"], "data": [1]}}`
	article, err := PostProcess(raw, nil)
	require.NoError(t, err)
	assert.Nil(t, article.Chart)
	assert.NotContains(t, article.HTML, "chart")
}

func TestPostProcess_EmptyOutput(t *testing.T) {
	_, err := PostProcess("```html\n```", nil)
	assert.ErrorIs(t, err, interfaces.ErrEmptyInput)
}

func TestMedianIndex(t *testing.T) {
	cases := map[int]int{1: 1, 2: 1, 3: 1, 4: 2, 5: 2, 6: 2, 7: 2, 8: 4, 9: 4, 12: 6}
	for n, want := range cases {
		assert.Equal(t, want, MedianIndex(n), "n=%d", n)
	}
}

func TestInjectAtMedian_NoParagraphs(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body><h2>Only</h2></body></html>"))
	require.NoError(t, err)
	body := doc.Find("body")
	InjectAtMedian(body, "<div id=\"x\"></div>")

	out, err := body.Html()
	require.NoError(t, err)
	assert.Equal(t, `<h2>Only</h2><div id="x"></div>`, out)
}

func TestParseMedia(t *testing.T) {
	media, ok := ParseMedia("", "https://youtu.be/dQw4w9WgXcQ?t=10")
	require.True(t, ok)
	assert.Equal(t, models.MediaEmbed{Kind: models.MediaYouTube, ID: "dQw4w9WgXcQ"}, *media)

	media, ok = ParseMedia("twitter", "https://x.com/golang/status/1234567890")
	require.True(t, ok)
	assert.Equal(t, models.MediaEmbed{Kind: models.MediaTwitter, ID: "1234567890"}, *media)

	media, ok = ParseMedia("tweet", "1234567890")
	require.True(t, ok)
	assert.Equal(t, models.MediaTwitter, media.Kind)

	_, ok = ParseMedia("youtube", "not-an-id")
	assert.False(t, ok)

	assert.Contains(t, RenderMedia(models.MediaEmbed{Kind: models.MediaTwitter, ID: "42"}),
		`<blockquote class="twitter-tweet"><a href="https://twitter.com/i/status/42"></a></blockquote>`)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "alpha beta...", Truncate("alpha beta gamma", 12))
	assert.Equal(t, "abcdefghij...", Truncate("abcdefghijklmnop", 10))
}

func TestBuildPrompt(t *testing.T) {
	primary := models.ContentItem{Title: "Primary story", Content: "Primary body", Link: "https://example.com/p"}
	prompt := BuildPrompt(PromptInput{
		Persona:    &models.Persona{Name: "Si Kritis", Desc: "Sharp critic", Samples: []string{"Sample voice."}},
		StyleGuide: "Short paragraphs.",
		MinWords:   600,
		Categories: []string{"News", "Guides"},
		Angle:      "Why this matters for small teams",
		KBContext:  "Internal note",
		Research:   "## Deep Research Findings\n### Round 1\nfinding",
		Primary:    primary,
		Sources: []models.ContentItem{
			primary,
			{Title: "Second", Content: "Second body"},
			{Title: "Third", Content: "Third body"},
		},
		MaxExcerpts: 1,
	})

	for _, want := range []string{
		"Si Kritis", "Sample voice.", "Short paragraphs.", "Why this matters for small teams",
		"https://example.com/p", "Internal note", "### 1. Second", "Deep Research Findings",
		"at least 600 words", "News, Guides", "English",
	} {
		assert.Contains(t, prompt, want)
	}
	assert.NotContains(t, prompt, "Third body")
	assert.Equal(t, 1, strings.Count(prompt, "Primary body"))
}

type fakeLLM struct {
	text    string
	err     error
	prompts []string
}

func (f *fakeLLM) GenerateText(ctx context.Context, request interfaces.CompletionRequest) (string, error) {
	return f.GenerateWithFallback(ctx, request)
}

func (f *fakeLLM) GenerateWithFallback(ctx context.Context, request interfaces.CompletionRequest) (string, error) {
	f.prompts = append(f.prompts, request.Prompt)
	return f.text, f.err
}

func newTestWriter(llm *fakeLLM) *Writer {
	config := common.NewDefaultConfig()
	return NewWriter(llm, config, arbor.NewNoOpLogger())
}

func TestWriter_Write(t *testing.T) {
	llm := &fakeLLM{text: "<h1>Fresh take</h1><p>One.</p><p>Two.</p>{\"category\": \"Opinion\", \"tags\": [\"go\"]}"}
	w := newTestWriter(llm)

	input := NewInput(w.config, nil, models.ContentItem{Title: "Source title", Content: "Body"}, nil)
	input.Angle = "contrarian"
	article, err := w.Write(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "Fresh take", article.Title)
	assert.Equal(t, "Opinion", article.Category)
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "contrarian")
}

func TestWriter_TitleFallsBackToPrimary(t *testing.T) {
	w := newTestWriter(&fakeLLM{text: "<p>One.</p><p>Two.</p>"})
	article, err := w.Write(context.Background(), NewInput(w.config, nil, models.ContentItem{Title: "Source title"}, nil))
	require.NoError(t, err)
	assert.Equal(t, "Source title", article.Title)
}

func TestWriter_Failures(t *testing.T) {
	w := newTestWriter(&fakeLLM{err: errors.New("all providers down")})
	_, err := w.Write(context.Background(), PromptInput{})
	assert.Error(t, err)

	w = newTestWriter(&fakeLLM{text: "   "})
	_, err = w.Write(context.Background(), PromptInput{})
	assert.ErrorIs(t, err, interfaces.ErrEmptyInput)
}
