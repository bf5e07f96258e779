// Package text splits processed document text into overlapping chunks sized
// for embedding. Sizes are tracked in characters with the ~4 chars per token
// heuristic applied to the configured token targets.
package text

import (
	"regexp"
	"strings"
)

const charsPerToken = 4

// Separators ordered from strongest structural boundary to weakest. The
// empty separator means raw character windows.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", ";", ":", " ", ""}

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

type Chunker struct {
	targetTokens  int
	overlapTokens int
}

func NewChunker(targetTokens, overlapTokens int) *Chunker {
	if targetTokens <= 0 {
		targetTokens = 500
	}
	if overlapTokens < 0 {
		overlapTokens = 0
	}
	if overlapTokens >= targetTokens {
		overlapTokens = targetTokens / 4
	}
	return &Chunker{targetTokens: targetTokens, overlapTokens: overlapTokens}
}

// Chunk runs the splitting cascade. Strategies are tried in order and the
// first one that produces usable chunks wins. Deterministic: the same text
// always yields the same chunks.
func (c *Chunker) Chunk(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	for _, split := range []func(string) []string{
		c.structural,
		c.paragraphs,
		c.sentenceWindows,
	} {
		if chunks := clean(split(trimmed)); len(chunks) > 0 {
			return chunks
		}
	}
	return clean(charWindows(trimmed, 1000, 200))
}

// structural applies the recursive separator splitter, then the oversize
// policy, then the giant-chunk guard.
func (c *Chunker) structural(text string) []string {
	size := c.targetTokens * charsPerToken
	overlap := c.overlapTokens * charsPerToken

	chunks := splitRecursive(text, separators, size, overlap)
	chunks = c.enforceMaxSize(chunks)

	// A single chunk from text well past the target means every separator
	// failed to bite. Force a coarser strategy instead of embedding a wall
	// of text as one vector.
	if len(chunks) <= 1 && len(text) > c.maxChunkChars() {
		if paras := clean(splitParagraphs(text)); len(paras) > 1 {
			return c.enforceMaxSize(paras)
		}
		if sents := clean(c.sentenceWindows(text)); len(sents) > 1 {
			return sents
		}
	}
	return chunks
}

// maxChunkChars is the oversize ceiling shared with enforceMaxSize.
func (c *Chunker) maxChunkChars() int {
	return c.targetTokens * 5
}

// enforceMaxSize is the single oversize policy: any chunk longer than five
// times the target is re-split at half target/overlap; stubborn remainders
// fall back to raw character windows.
func (c *Chunker) enforceMaxSize(chunks []string) []string {
	maxLen := c.targetTokens * 5
	size := c.targetTokens * charsPerToken
	overlap := c.overlapTokens * charsPerToken

	out := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk) <= maxLen {
			out = append(out, chunk)
			continue
		}
		resplit := splitRecursive(chunk, separators, size/2, overlap/2)
		ok := true
		for _, r := range resplit {
			if len(r) > maxLen {
				ok = false
				break
			}
		}
		if ok && len(resplit) > 0 {
			out = append(out, resplit...)
			continue
		}
		out = append(out, charWindows(chunk, c.targetTokens*3, c.overlapTokens*2)...)
	}
	return out
}

// paragraphs handles texts with clear paragraph structure. It declines
// (returns nil) unless more than three paragraphs are present, leaving the
// text to the sentence-window strategy.
func (c *Chunker) paragraphs(text string) []string {
	paras := splitParagraphs(text)
	if len(paras) <= 3 {
		return nil
	}
	const capLen, capOverlap = 1500, 200
	out := make([]string, 0, len(paras))
	for _, p := range paras {
		if len(p) > capLen {
			out = append(out, charWindows(p, capLen, capOverlap)...)
			continue
		}
		out = append(out, p)
	}
	return out
}

func splitParagraphs(text string) []string {
	parts := paragraphBreak.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var sentenceEnd = regexp.MustCompile(`[.!?]+`)

// sentenceWindows emits sliding windows of five sentences with two-sentence
// overlap, rejoined with ". " and a trailing period.
func (c *Chunker) sentenceWindows(text string) []string {
	raw := sentenceEnd.Split(text, -1)
	sentences := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) <= 1 {
		return nil
	}

	const window, overlap = 5, 2
	step := window - overlap
	out := make([]string, 0, (len(sentences)+step-1)/step)
	for start := 0; start < len(sentences); start += step {
		end := start + window
		if end > len(sentences) {
			end = len(sentences)
		}
		out = append(out, strings.Join(sentences[start:end], ". ")+".")
		if end == len(sentences) {
			break
		}
	}
	return out
}

// splitRecursive finds the strongest separator present in the text, splits
// on it keeping the separator attached, and packs the pieces into chunks of
// at most size characters with an overlapping tail seeded between adjacent
// chunks. Pieces that alone exceed size recurse with the weaker separators.
func splitRecursive(text string, seps []string, size, overlap int) []string {
	if size <= 0 {
		size = 1
	}
	if overlap >= size {
		overlap = size / 4
	}
	if len(text) <= size {
		return []string{text}
	}

	sep, rest := pickSeparator(text, seps)
	if sep == "" {
		return charWindows(text, size, overlap)
	}

	parts := strings.SplitAfter(text, sep)
	out := make([]string, 0, len(text)/size+1)
	var buf strings.Builder

	flush := func() string {
		if buf.Len() == 0 {
			return ""
		}
		chunk := buf.String()
		out = append(out, chunk)
		buf.Reset()
		return chunk
	}

	for _, part := range parts {
		if len(part) > size {
			flush()
			out = append(out, splitRecursive(part, rest, size, overlap)...)
			continue
		}
		if buf.Len() > 0 && buf.Len()+len(part) > size {
			chunk := flush()
			buf.WriteString(tail(chunk, overlap))
		}
		buf.WriteString(part)
	}
	flush()
	return out
}

func pickSeparator(text string, seps []string) (string, []string) {
	for i, sep := range seps {
		if sep == "" {
			return "", nil
		}
		if strings.Contains(text, sep) {
			return sep, seps[i+1:]
		}
	}
	return "", nil
}

// tail returns the last n bytes of s without cutting a UTF-8 sequence.
func tail(s string, n int) string {
	if n <= 0 || len(s) <= n {
		if n <= 0 {
			return ""
		}
		return s
	}
	start := len(s) - n
	for start < len(s) && !isRuneStart(s[start]) {
		start++
	}
	return s[start:]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// charWindows is the strategy of last resort: fixed windows with a positive
// stride, so it always terminates and always covers the whole text.
func charWindows(text string, size, overlap int) []string {
	if size <= 0 {
		size = 1000
	}
	stride := size - overlap
	if stride <= 0 {
		stride = size
	}
	out := make([]string, 0, len(text)/stride+1)
	for start := 0; start < len(text); start += stride {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		// do not cut multi-byte runes at window edges
		s, e := start, end
		for s < len(text) && !isRuneStart(text[s]) {
			s++
		}
		for e < len(text) && !isRuneStart(text[e]) {
			e++
		}
		out = append(out, text[s:e])
		if end == len(text) {
			break
		}
	}
	return out
}

func clean(chunks []string) []string {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
