// Package chunker splits text into sentence-aligned segments for embedding.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxLength is the target chunk length in characters
const DefaultMaxLength = 800

// Chunk normalizes whitespace, splits text into sentences and greedily packs
// them into chunks of at most maxLength characters. A sentence longer than
// maxLength becomes its own chunk and is never split.
func Chunk(text string, maxLength int) []string {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	sentences := Sentences(text)
	chunks := make([]string, 0, len(sentences))

	var current strings.Builder
	currentLen := 0
	for _, sentence := range sentences {
		n := utf8.RuneCountInString(sentence)
		if currentLen > 0 && currentLen+1+n > maxLength {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(sentence)
		currentLen += n
	}
	if currentLen > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

// Sentences collapses whitespace runs and splits after '.', '?' or '!'
// when followed by whitespace. Terminal punctuation stays with its sentence.
func Sentences(text string) []string {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return nil
	}

	var sentences []string
	start := 0
	for i, r := range normalized {
		if r != '.' && r != '?' && r != '!' {
			continue
		}
		next := i + utf8.RuneLen(r)
		if next < len(normalized) && unicode.IsSpace(rune(normalized[next])) {
			sentences = append(sentences, normalized[start:next])
			start = next + 1
		}
	}
	if start < len(normalized) {
		sentences = append(sentences, normalized[start:])
	}

	return sentences
}
