// Package chunker splits input text into bounded spans suitable for
// independent synthesis.
package chunker

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/piperbook/piperbook/core/schema"
)

// span is a half-open [start, end) byte range into the input text.
type span struct {
	start, end int
}

// Split breaks text into ordered chunks whose trimmed text is at most bound
// bytes long. Splits happen at sentence ends when possible, then at
// whitespace, and only inside a word when the word alone exceeds the bound.
// Cuts never land in the middle of a UTF-8 sequence, so a single rune wider
// than the bound is emitted whole.
//
// The chunk spans tile the input: chunk 0 starts at byte 0, the last chunk
// ends at len(text), and every chunk begins where the previous one ended.
// Empty or whitespace-only input yields no chunks.
func Split(text string, bound int) ([]schema.Chunk, error) {
	if bound <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", bound)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var spans []span
	curStart := -1

	for _, s := range sentenceSpans(text) {
		if trimmedLen(text, s) > bound {
			if curStart >= 0 {
				spans = append(spans, span{curStart, s.start})
				curStart = -1
			}
			spans = append(spans, packWords(text, s, bound)...)
			continue
		}
		if curStart < 0 {
			curStart = s.start
			continue
		}
		if trimmedLen(text, span{curStart, s.end}) > bound {
			spans = append(spans, span{curStart, s.start})
			curStart = s.start
		}
	}
	if curStart >= 0 {
		spans = append(spans, span{curStart, len(text)})
	}

	chunks := make([]schema.Chunk, 0, len(spans))
	for i, sp := range spans {
		chunks = append(chunks, schema.Chunk{
			Index: i,
			Start: sp.start,
			End:   sp.end,
			Text:  strings.TrimSpace(text[sp.start:sp.end]),
		})
	}
	return chunks, nil
}

// sentenceSpans cuts text after every run of sentence punctuation that is
// followed by whitespace. Each span keeps the whitespace that follows it, so
// the spans tile the whole input.
func sentenceSpans(text string) []span {
	var spans []span
	start := 0
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !isSentenceEnd(r) {
			i += size
			continue
		}
		j := i + size
		for j < len(text) {
			r2, s2 := utf8.DecodeRuneInString(text[j:])
			if !isSentenceEnd(r2) {
				break
			}
			j += s2
		}
		k := j
		for k < len(text) {
			r2, s2 := utf8.DecodeRuneInString(text[k:])
			if !unicode.IsSpace(r2) {
				break
			}
			k += s2
		}
		if k > j || k == len(text) {
			spans = append(spans, span{start, k})
			start = k
		}
		i = k
	}
	if start < len(text) {
		spans = append(spans, span{start, len(text)})
	}
	return spans
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// packWords splits a single oversized sentence at whitespace, hard-cutting
// words that alone exceed the bound. The returned spans tile sp exactly.
func packWords(text string, sp span, bound int) []span {
	var out []span
	curStart := sp.start
	firstTok := -1

	flush := func(end int) {
		out = append(out, span{curStart, end})
		curStart = end
		firstTok = -1
	}

	for _, t := range tokenSpans(text, sp) {
		if t.end-t.start > bound {
			if firstTok >= 0 {
				flush(t.start)
			}
			pieces := hardCut(text, t, bound)
			pieces[0].start = curStart
			out = append(out, pieces...)
			curStart = t.end
			continue
		}
		if firstTok < 0 {
			firstTok = t.start
			continue
		}
		if t.end-firstTok > bound {
			flush(t.start)
			firstTok = t.start
		}
	}

	if firstTok >= 0 {
		flush(sp.end)
	} else if len(out) > 0 && curStart < sp.end {
		// trailing whitespace after a hard-cut word sticks to the last piece
		out[len(out)-1].end = sp.end
		curStart = sp.end
	}
	return out
}

// tokenSpans returns the non-whitespace runs inside sp.
func tokenSpans(text string, sp span) []span {
	var toks []span
	i := sp.start
	for i < sp.end {
		r, size := utf8.DecodeRuneInString(text[i:sp.end])
		if unicode.IsSpace(r) {
			i += size
			continue
		}
		start := i
		for i < sp.end {
			r, size = utf8.DecodeRuneInString(text[i:sp.end])
			if unicode.IsSpace(r) {
				break
			}
			i += size
		}
		toks = append(toks, span{start, i})
	}
	return toks
}

// hardCut slices the token t into pieces of at most bound bytes, cutting only
// at rune boundaries. A single rune wider than the bound is kept whole.
func hardCut(text string, t span, bound int) []span {
	var pieces []span
	start := t.start
	i := t.start
	for i < t.end {
		_, size := utf8.DecodeRuneInString(text[i:t.end])
		if i+size-start > bound && i > start {
			pieces = append(pieces, span{start, i})
			start = i
		}
		i += size
	}
	pieces = append(pieces, span{start, t.end})
	return pieces
}

// trimmedLen is the length of text[sp.start:sp.end] with surrounding
// whitespace removed, which is what counts against the bound.
func trimmedLen(text string, sp span) int {
	return len(strings.TrimSpace(text[sp.start:sp.end]))
}
