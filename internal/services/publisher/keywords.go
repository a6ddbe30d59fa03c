package publisher

import (
	"sort"
	"strings"
	"unicode"
)

var stopWords = map[string]bool{
	"a": true, "about": true, "after": true, "all": true, "also": true, "an": true, "and": true, "any": true,
	"are": true, "as": true, "at": true, "be": true, "been": true, "before": true, "but": true, "by": true,
	"can": true, "could": true, "did": true, "do": true, "does": true, "for": true, "from": true, "had": true,
	"has": true, "have": true, "how": true, "if": true, "in": true, "into": true, "is": true, "it": true,
	"its": true, "just": true, "more": true, "most": true, "new": true, "not": true, "now": true, "of": true,
	"on": true, "or": true, "our": true, "out": true, "over": true, "should": true, "so": true, "than": true,
	"that": true, "the": true, "their": true, "them": true, "then": true, "there": true, "these": true,
	"they": true, "this": true, "those": true, "to": true, "up": true, "was": true, "we": true, "were": true,
	"what": true, "when": true, "where": true, "which": true, "while": true, "who": true, "why": true,
	"will": true, "with": true, "would": true, "you": true, "your": true,
	// Indonesian
	"dan": true, "di": true, "ke": true, "dari": true, "yang": true, "untuk": true, "dengan": true,
	"ini": true, "itu": true, "atau": true, "pada": true, "adalah": true, "akan": true, "dalam": true,
}

// Keywords returns up to max distinct lower-cased words of text, longest
// first, with stop words and words shorter than three letters removed.
func Keywords(text string, max int) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool)
	var out []string
	for _, w := range words {
		if len([]rune(w)) < 3 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return len([]rune(out[i])) > len([]rune(out[j]))
	})

	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}
