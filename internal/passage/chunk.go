package passage

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/neurosnap/sentences/english"
)

// ChunkOptions bounds chunk sizes in words.
type ChunkOptions struct {
	MinWords    int
	MaxWords    int
	TargetWords int
}

// DefaultChunkOptions returns the fixed passage bounds.
func DefaultChunkOptions() ChunkOptions {
	return ChunkOptions{
		MinWords:    MinWords,
		MaxWords:    MaxWords,
		TargetWords: TargetWords,
	}
}

// paragraphBreak separates paragraphs in cleaned text.
var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// abbreviations end with a period but do not end a sentence. They back up the
// Punkt English model for titles it was not trained on.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "st": true, "jr": true, "sr": true,
	"prof": true, "rev": true, "gen": true, "col": true, "capt": true, "lt": true, "sgt": true,
	"mt": true, "vs": true, "etc": true, "e.g": true, "i.e": true, "vol": true,
	"fig": true, "approx": true, "co": true, "inc": true, "ltd": true, "u.s": true,
}

// punktAbbreviation reports whether the Punkt English model learned word as an
// abbreviation. Nil when the embedded model fails to load.
var punktAbbreviation = sync.OnceValue(func() func(string) bool {
	tok, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil
	}
	return tok.AbbrevTypes.Has
})

// unit is a paragraph, or a sentence of an oversized paragraph.
type unit struct {
	text      string
	words     int
	paragraph int
	sentence  bool
}

// ChunkText splits cleaned text into candidates around targetWords, within the fixed
// MinWords/MaxWords bounds. A non-positive or out-of-range target uses TargetWords.
func ChunkText(cleaned string, targetWords int) []CandidateChunk {
	opts := DefaultChunkOptions()
	if targetWords >= opts.MinWords && targetWords <= opts.MaxWords {
		opts.TargetWords = targetWords
	}
	return Chunk(cleaned, opts)
}

// Chunk splits cleaned text into word-bounded candidate passages.
//
// Paragraphs are accumulated into a buffer. The buffer is flushed when the next unit
// would push it past MaxWords or once it reaches TargetWords. Paragraphs longer than
// MaxWords are split at sentence boundaries. Buffers are only emitted after reaching
// MinWords, so every chunk has MinWords <= WordCount <= MaxWords.
func Chunk(cleaned string, opts ChunkOptions) []CandidateChunk {
	if opts.MaxWords <= 0 {
		opts = DefaultChunkOptions()
	}
	if opts.TargetWords <= 0 || opts.TargetWords > opts.MaxWords {
		opts.TargetWords = opts.MaxWords
	}
	if opts.TargetWords < opts.MinWords {
		opts.TargetWords = opts.MinWords
	}

	c := &chunker{opts: opts}
	for i, p := range paragraphBreak.Split(strings.TrimSpace(cleaned), -1) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		u := unit{text: p, words: CountWords(p), paragraph: i}
		if u.words > opts.MaxWords {
			c.addSentences(u)
			continue
		}
		c.add(u)
	}
	c.flush()
	return c.chunks
}

type chunker struct {
	opts   ChunkOptions
	buf    []unit
	words  int
	chunks []CandidateChunk
}

// add appends u to the buffer, flushing or topping up first when it would overflow.
func (c *chunker) add(u unit) {
	if c.words >= c.opts.TargetWords {
		c.flush()
	}
	if c.words+u.words > c.opts.MaxWords {
		switch {
		case c.words >= c.opts.MinWords:
			c.flush()
		case !u.sentence:
			// Top up the short buffer sentence by sentence
			c.addSentences(u)
			return
		default:
			c.reset()
		}
	}
	if u.words > c.opts.MaxWords {
		// A single run-on sentence can never form a valid chunk
		return
	}
	c.buf = append(c.buf, u)
	c.words += u.words
}

func (c *chunker) addSentences(p unit) {
	for _, s := range SplitSentences(p.text) {
		c.add(unit{text: s, words: CountWords(s), paragraph: p.paragraph, sentence: true})
	}
}

// flush emits the buffer when it has reached MinWords, and clears it either way.
func (c *chunker) flush() {
	if c.words >= c.opts.MinWords && len(c.buf) > 0 {
		text := c.render()
		c.chunks = append(c.chunks, CandidateChunk{
			ID:        ChunkID(text),
			Index:     len(c.chunks),
			Text:      text,
			WordCount: c.words,
		})
	}
	c.reset()
}

func (c *chunker) reset() {
	c.buf = c.buf[:0]
	c.words = 0
}

// render joins buffered units, keeping paragraph breaks between different paragraphs.
func (c *chunker) render() string {
	var b strings.Builder
	for i, u := range c.buf {
		if i > 0 {
			if u.paragraph == c.buf[i-1].paragraph {
				b.WriteByte(' ')
			} else {
				b.WriteString("\n\n")
			}
		}
		b.WriteString(u.text)
	}
	return b.String()
}

// SplitSentences splits a paragraph at terminal punctuation (. ? !), keeping closing
// quotes and brackets with their sentence. A period after a single initial or an
// abbreviation known to the Punkt English model does not end a sentence.
func SplitSentences(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	var sentences []string
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '?' && r != '!' {
			continue
		}
		end := i + 1
		for end < len(runes) && isSentenceTrailer(runes[end]) {
			end++
		}
		if end < len(runes) && !unicode.IsSpace(runes[end]) {
			continue
		}
		if r == '.' && isAbbreviation(runes[start:i]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			sentences = append(sentences, s)
		}
		start = end
		i = end - 1
	}
	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// isSentenceTrailer reports punctuation that may follow a terminal mark within the same sentence.
func isSentenceTrailer(r rune) bool {
	switch r {
	case '.', '?', '!', '"', '\'', '”', '’', ')', ']', '»':
		return true
	}
	return false
}

// isAbbreviation reports whether the word right before a period is a known abbreviation
// or a single initial.
func isAbbreviation(before []rune) bool {
	j := len(before)
	for j > 0 && !unicode.IsSpace(before[j-1]) {
		j--
	}
	word := strings.ToLower(strings.TrimLeft(string(before[j:]), "\"'“‘(["))
	if w := []rune(word); len(w) == 1 {
		return unicode.IsLetter(w[0]) && word != "i"
	}
	if abbreviations[word] {
		return true
	}
	known := punktAbbreviation()
	return known != nil && known(word)
}
