// Package research runs two rounds of search-driven research ahead of
// article writing.
package research

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

const (
	initialQueries  = 3
	followUpQueries = 2
	resultsPerQuery = 3
	queryMaxTokens  = 200
	summaryTokens   = 400
	contextChars    = 2000
)

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]+|\d+[.)]|#+)\s*`)

// Finding is the summary of one query's top results
type Finding struct {
	Query   string
	Summary string
	Sources []models.SearchResult
}

// Round is one pass of query planning and search
type Round struct {
	Queries  []string
	Findings []Finding
}

// Report holds the findings of both rounds
type Report struct {
	Topic  string
	Rounds [2]Round
}

// Empty reports whether no round produced a finding
func (r *Report) Empty() bool {
	return r == nil || (len(r.Rounds[0].Findings) == 0 && len(r.Rounds[1].Findings) == 0)
}

// String renders the report as a labelled section for the writer prompt
func (r *Report) String() string {
	if r.Empty() {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Deep Research Findings\n")
	for i, round := range r.Rounds {
		fmt.Fprintf(&b, "\n### Round %d\n", i+1)
		if len(round.Findings) == 0 {
			b.WriteString("No findings.\n")
			continue
		}
		for _, f := range round.Findings {
			fmt.Fprintf(&b, "\n**%s**\n%s\n", f.Query, f.Summary)
			for _, src := range f.Sources {
				if src.URL != "" {
					fmt.Fprintf(&b, "- %s (%s)\n", src.Title, src.URL)
				}
			}
		}
	}
	return b.String()
}

// Researcher plans queries with the completion service and runs them
// against the search provider
type Researcher struct {
	llm    interfaces.CompletionService
	search interfaces.SearchProvider
	logger arbor.ILogger
}

// NewResearcher creates a new researcher
func NewResearcher(llm interfaces.CompletionService, search interfaces.SearchProvider, logger arbor.ILogger) *Researcher {
	return &Researcher{
		llm:    llm,
		search: search,
		logger: logger,
	}
}

// Research never fails: a round whose planning or searches fail simply has
// no findings.
func (r *Researcher) Research(ctx context.Context, topic, background string) *Report {
	report := &Report{Topic: topic}
	if r.search == nil {
		r.logger.Warn().Msg("Deep research skipped: no search provider configured")
		return report
	}

	first := r.plan(ctx, initialPrompt(topic, background), nil, initialQueries)
	report.Rounds[0] = r.runRound(ctx, topic, first)

	if len(report.Rounds[0].Findings) > 0 {
		second := r.plan(ctx, followUpPrompt(topic, report.Rounds[0]), first, followUpQueries)
		report.Rounds[1] = r.runRound(ctx, topic, second)
	}

	r.logger.Info().
		Str("topic", topic).
		Int("round1_findings", len(report.Rounds[0].Findings)).
		Int("round2_findings", len(report.Rounds[1].Findings)).
		Msg("Deep research complete")

	return report
}

// plan asks for queries, dropping any already in previous
func (r *Researcher) plan(ctx context.Context, prompt string, previous []string, limit int) []string {
	text, err := r.llm.GenerateText(ctx, interfaces.CompletionRequest{
		Prompt:      prompt,
		Temperature: 0.3,
		MaxTokens:   queryMaxTokens,
	})
	if err != nil {
		r.logger.Warn().Err(err).Msg("Research query planning failed")
		return nil
	}
	queries := dedupe(ParseQueries(text, 0), previous)
	if len(queries) > limit {
		queries = queries[:limit]
	}
	return queries
}

func (r *Researcher) runRound(ctx context.Context, topic string, queries []string) Round {
	round := Round{Queries: queries}
	for _, query := range queries {
		if ctx.Err() != nil {
			break
		}

		response, err := r.search.Search(ctx, query, resultsPerQuery)
		if err != nil {
			r.logger.Warn().Err(err).Str("query", query).Msg("Research search failed")
			continue
		}

		results := response.Results
		if len(results) > resultsPerQuery {
			results = results[:resultsPerQuery]
		}
		if len(results) == 0 && response.Answer == "" {
			continue
		}

		summary, err := r.llm.GenerateText(ctx, interfaces.CompletionRequest{
			Prompt:      summaryPrompt(topic, query, response.Answer, results),
			Temperature: 0.3,
			MaxTokens:   summaryTokens,
		})
		if err != nil {
			r.logger.Warn().Err(err).Str("query", query).Msg("Research summary failed")
			continue
		}
		if summary = strings.TrimSpace(summary); summary == "" {
			continue
		}

		round.Findings = append(round.Findings, Finding{Query: query, Summary: summary, Sources: results})
	}
	return round
}

// ParseQueries takes one query per line, dropping list markers, quotes and
// blank lines, up to limit queries.
func ParseQueries(text string, limit int) []string {
	var queries []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(text, "\n") {
		line = listMarker.ReplaceAllString(line, "")
		line = strings.Trim(strings.TrimSpace(line), `"'`+"`")
		key := strings.ToLower(line)
		if line == "" || seen[key] || strings.HasSuffix(line, ":") {
			continue
		}
		seen[key] = true
		queries = append(queries, line)
		if limit > 0 && len(queries) == limit {
			break
		}
	}
	return queries
}

func dedupe(queries, previous []string) []string {
	used := make(map[string]bool, len(previous))
	for _, q := range previous {
		used[strings.ToLower(q)] = true
	}
	var out []string
	for _, q := range queries {
		if !used[strings.ToLower(q)] {
			out = append(out, q)
		}
	}
	return out
}

func initialPrompt(topic, background string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are researching a blog article about: %s\n\n", topic)
	if background = strings.TrimSpace(background); background != "" {
		if len(background) > contextChars {
			background = background[:contextChars]
		}
		fmt.Fprintf(&b, "Background:\n%s\n\n", background)
	}
	fmt.Fprintf(&b, "Write %d web search queries that would find facts, data and recent developments for this article. "+
		"Output one query per line with no numbering or commentary.", initialQueries)
	return b.String()
}

func followUpPrompt(topic string, round Round) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are researching a blog article about: %s\n\nFindings so far:\n", topic)
	for _, f := range round.Findings {
		fmt.Fprintf(&b, "- %s: %s\n", f.Query, f.Summary)
	}
	fmt.Fprintf(&b, "\nPropose up to %d follow-up web search queries that fill gaps or verify claims in these findings. "+
		"Output one query per line with no numbering or commentary.", followUpQueries)
	return b.String()
}

func summaryPrompt(topic, query, answer string, results []models.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarise the search results below in 3 to 5 factual sentences relevant to an article about %q. "+
		"Keep numbers and names. Do not speculate.\n\nQuery: %s\n\n", topic, query)
	if answer != "" {
		fmt.Fprintf(&b, "Answer:\n%s\n\n", answer)
	}
	for i, res := range results {
		fmt.Fprintf(&b, "%d. %s\n%s\n%s\n\n", i+1, res.Title, res.Snippet, res.URL)
	}
	return b.String()
}
