package text

import "strings"

// Chunk is a provider-length-bounded, sentence-aligned slice of an
// utterance's text. Chunks are produced once and never mutated; Index is the
// playback order.
type Chunk struct {
	Index  int
	Text   string
	IsLast bool
}

// Normalize collapses whitespace runs and converts paragraph breaks into
// sentence-ending punctuation so providers do not read line breaks as one
// run-on sentence. Normalizing twice equals normalizing once.
func Normalize(input string) string {
	input = strings.ReplaceAll(input, "\r\n", "\n")

	var sb strings.Builder
	var last rune
	for _, line := range strings.Split(input, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		flat := strings.Join(fields, " ")
		if sb.Len() > 0 {
			if !isSentenceBoundary(last) {
				sb.WriteRune('.')
			}
			sb.WriteRune(' ')
		}
		sb.WriteString(flat)
		runes := []rune(flat)
		last = runes[len(runes)-1]
	}
	return sb.String()
}

// Segment normalizes text and splits it into sentence-bounded chunks of at
// most maxChunkLen runes. A single sentence longer than maxChunkLen becomes
// its own oversized chunk; the synthesis client still attempts it and the
// provider's own length-limit error surfaces if rejected. Empty input yields
// one chunk containing the (empty) normalized string so callers always get a
// non-empty sequence.
func Segment(input string, maxChunkLen int) []Chunk {
	normalized := Normalize(input)
	if normalized == "" {
		return []Chunk{{Index: 0, Text: "", IsLast: true}}
	}

	sentences := splitSentences(normalized)

	var texts []string
	var current strings.Builder
	currentRunes := 0
	flush := func() {
		if currentRunes > 0 {
			texts = append(texts, current.String())
			current.Reset()
			currentRunes = 0
		}
	}

	for _, sentence := range sentences {
		sentenceRunes := len([]rune(sentence))
		if maxChunkLen > 0 && currentRunes > 0 && currentRunes+1+sentenceRunes > maxChunkLen {
			flush()
		}
		if currentRunes > 0 {
			current.WriteRune(' ')
			currentRunes++
		}
		current.WriteString(sentence)
		currentRunes += sentenceRunes
	}
	flush()

	chunks := make([]Chunk, 0, len(texts))
	for i, t := range texts {
		chunks = append(chunks, Chunk{
			Index:  i,
			Text:   t,
			IsLast: i == len(texts)-1,
		})
	}
	return chunks
}

// splitSentences breaks normalized text after end-of-sentence punctuation.
// Consecutive terminators ("wait!!") stay in one sentence; the split happens
// only when a terminator is followed by a space or end of input, so joining
// the sentences with single spaces reproduces the input.
func splitSentences(s string) []string {
	runes := []rune(s)
	var sentences []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isSentenceBoundary(runes[i]) {
			continue
		}
		atEnd := i == len(runes)-1
		followedBySpace := !atEnd && runes[i+1] == ' '
		if !atEnd && !followedBySpace {
			continue
		}
		sentence := strings.TrimSpace(string(runes[start : i+1]))
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = i + 1
	}
	if start < len(runes) {
		if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
			sentences = append(sentences, tail)
		}
	}
	return sentences
}

func isSentenceBoundary(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？', '…':
		return true
	default:
		return false
	}
}
