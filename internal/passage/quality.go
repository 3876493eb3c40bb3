package passage

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kljensen/snowball"
)

// Reason names a quality rule that rejected a candidate.
type Reason string

const (
	ReasonTooShort        Reason = "too_short"
	ReasonFewSentences    Reason = "few_sentences"
	ReasonSymbolHeavy     Reason = "symbol_heavy"
	ReasonDialogueHeavy   Reason = "dialogue_heavy"
	ReasonBadStart        Reason = "bad_start"
	ReasonBadEnd          Reason = "bad_end"
	ReasonBoilerplate     Reason = "boilerplate"
	ReasonShortWords      Reason = "short_words"
	ReasonWeakConnectives Reason = "weak_connectives"
)

// Quality thresholds.
const (
	MinSentenceMarks  = 3
	MaxSymbolRatio    = 0.25
	MaxDialogueRatio  = 0.40
	BoilerplateWindow = 200
	MinAvgWordLength  = 3.0
	MinConnectives    = 3
)

// Predicate is one named rejection rule. Reject returns true when the text fails the rule.
type Predicate struct {
	Reason Reason
	Reject func(text string) bool
}

// Vocabulary is the locale-specific word and pattern lists used by the filter.
type Vocabulary struct {
	// Connectives are causal/temporal/referential cues and pronouns that signal prose flow
	Connectives []string

	// Boilerplate patterns are matched against the opening of a candidate
	Boilerplate []*regexp.Regexp

	// StemLanguage is the snowball language used to match connectives; empty disables stemming
	StemLanguage string
}

// FilterOptions configures a Filter.
type FilterOptions struct {
	MinWords   int
	Vocabulary Vocabulary
}

// DefaultFilterOptions returns the English vocabulary and the fixed word minimum.
func DefaultFilterOptions() FilterOptions {
	return FilterOptions{
		MinWords:   MinWords,
		Vocabulary: DefaultVocabulary(),
	}
}

// DefaultVocabulary returns the English connective list and boilerplate patterns.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Connectives: []string{
			"because", "therefore", "however", "although", "though", "since", "thus", "hence",
			"consequently", "meanwhile", "then", "after", "afterward", "before", "when", "while",
			"until", "later", "finally", "eventually", "once", "soon", "so", "but", "yet",
			"moreover", "furthermore", "instead", "despite", "whereas", "unless",
			"this", "that", "these", "those", "it", "its", "he", "she", "they", "him", "her",
			"them", "his", "their", "which", "who", "whom", "whose",
		},
		Boilerplate: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(figure|fig\.|table|chart|plate)\s+\d+`),
			regexp.MustCompile(`(?im)^\s*(references|bibliography|see also|external links|further reading|notes|index|contents|table of contents)\s*:?\s*$`),
			regexp.MustCompile(`(?i)\bappendix\b`),
			regexp.MustCompile(`(?i)(https?://|www\.)\S+`),
			regexp.MustCompile(`(?i)\[\s*(\d+|citation needed)\s*\]|\(\s*[A-Z][a-z]+(\s+et al\.,?|,)\s+\d{4}[a-z]?\s*\)`),
			regexp.MustCompile(`(?im)^\s*(chapter|book|part)\s+([0-9]+|[ivxlcdm]+)\b[^\n]{0,40}$`),
			regexp.MustCompile(`(?i)project gutenberg|all rights reserved|copyright\s*(©|\(c\)|\d{4})|this (e-?book|file) is for the use of|under the terms of (this|the) licen[cs]e`),
		},
		StemLanguage: "english",
	}
}

var (
	terminalRunRegex = regexp.MustCompile(`[.!?]+`)
	letterRunRegex   = regexp.MustCompile(`\p{L}+`)
)

// Filter is a hard admit/reject gate for candidate passages.
type Filter struct {
	minWords    int
	vocab       Vocabulary
	connectives map[string]bool
	predicates  []Predicate
}

// NewFilter builds a Filter from opts. A zero MinWords uses the package minimum.
func NewFilter(opts FilterOptions) *Filter {
	if opts.MinWords <= 0 {
		opts.MinWords = MinWords
	}
	f := &Filter{
		minWords:    opts.MinWords,
		vocab:       opts.Vocabulary,
		connectives: make(map[string]bool, len(opts.Vocabulary.Connectives)),
	}
	for _, w := range opts.Vocabulary.Connectives {
		f.connectives[f.stem(strings.ToLower(w))] = true
	}

	f.predicates = []Predicate{
		{ReasonTooShort, f.tooShort},
		{ReasonFewSentences, fewSentences},
		{ReasonSymbolHeavy, symbolHeavy},
		{ReasonDialogueHeavy, dialogueHeavy},
		{ReasonBadStart, badStart},
		{ReasonBadEnd, badEnd},
		{ReasonBoilerplate, f.boilerplate},
		{ReasonShortWords, shortWords},
		{ReasonWeakConnectives, f.weakConnectives},
	}
	return f
}

// defaultFilter backs IsAcceptable.
var defaultFilter = NewFilter(DefaultFilterOptions())

// IsAcceptable reports whether text passes every quality rule of the default filter.
func IsAcceptable(text string) bool {
	return defaultFilter.Accepts(text)
}

// Predicates returns the filter's rules in evaluation order.
func (f *Filter) Predicates() []Predicate {
	return append([]Predicate(nil), f.predicates...)
}

// Accepts reports whether text passes every rule.
func (f *Filter) Accepts(text string) bool {
	text = strings.TrimSpace(text)
	for _, p := range f.predicates {
		if p.Reject(text) {
			return false
		}
	}
	return true
}

// Evaluate returns the reasons text is rejected, or nil if it is acceptable.
func (f *Filter) Evaluate(text string) []Reason {
	text = strings.TrimSpace(text)
	var reasons []Reason
	for _, p := range f.predicates {
		if p.Reject(text) {
			reasons = append(reasons, p.Reason)
		}
	}
	return reasons
}

func (f *Filter) tooShort(text string) bool {
	return CountWords(text) < f.minWords
}

func fewSentences(text string) bool {
	return len(terminalRunRegex.FindAllStringIndex(text, -1)) < MinSentenceMarks
}

// symbolHeavy guards against tables and data dumps.
func symbolHeavy(text string) bool {
	var content, noisy int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		content++
		if unicode.IsDigit(r) || (!unicode.IsLetter(r) && !isBasicPunct(r)) {
			noisy++
		}
	}
	if content == 0 {
		return false
	}
	return float64(noisy)/float64(content) > MaxSymbolRatio
}

func isBasicPunct(r rune) bool {
	switch r {
	case '.', ',', ';', ':', '!', '?', '\'', '"', '-', '(', ')',
		'‘', '’', '“', '”', '–', '—', '…':
		return true
	}
	return false
}

// dialogueHeavy guards against scripts and dialogue-dominated excerpts.
// Curly single quotes count only at word edges so apostrophes are not dialogue.
// A quote left open ends at the paragraph break.
func dialogueHeavy(text string) bool {
	runes := []rune(text)
	if len(runes) == 0 {
		return false
	}
	quoted := 0
	inDouble, inSingle := false, false
	for i, r := range runes {
		var prev, next rune
		if i > 0 {
			prev = runes[i-1]
		}
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch {
		case r == '\n' && prev == '\n':
			inDouble, inSingle = false, false
		case r == '"':
			inDouble = !inDouble
			quoted++
			continue
		case r == '“':
			inDouble = true
			quoted++
			continue
		case r == '”':
			inDouble = false
			quoted++
			continue
		case r == '‘' && !isWordRune(prev):
			inSingle = true
			quoted++
			continue
		case r == '’' && inSingle && !isWordRune(next):
			inSingle = false
			quoted++
			continue
		}
		if inDouble || inSingle {
			quoted++
		}
	}
	return float64(quoted)/float64(len(runes)) > MaxDialogueRatio
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isOpeningQuote(r rune) bool {
	return r == '"' || r == '\'' || r == '“' || r == '‘'
}

func isClosingQuote(r rune) bool {
	return r == '"' || r == '\'' || r == '”' || r == '’'
}

// badStart rejects candidates that begin mid-sentence.
func badStart(text string) bool {
	r, size := utf8.DecodeRuneInString(text)
	if isOpeningQuote(r) {
		r, _ = utf8.DecodeRuneInString(text[size:])
	}
	return !unicode.IsUpper(r)
}

// badEnd rejects candidates that stop mid-sentence.
func badEnd(text string) bool {
	r, size := utf8.DecodeLastRuneInString(text)
	if isClosingQuote(r) {
		r, _ = utf8.DecodeLastRuneInString(text[:len(text)-size])
	}
	return r != '.' && r != '?' && r != '!'
}

func (f *Filter) boilerplate(text string) bool {
	head := text
	if utf8.RuneCountInString(head) > BoilerplateWindow {
		head = string([]rune(head)[:BoilerplateWindow])
	}
	for _, re := range f.vocab.Boilerplate {
		if re.MatchString(head) {
			return true
		}
	}
	return false
}

// shortWords guards against abbreviation lists and gibberish.
func shortWords(text string) bool {
	var words, chars int
	for _, w := range strings.Fields(text) {
		n := 0
		for _, r := range w {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				n++
			}
		}
		if n == 0 {
			continue
		}
		words++
		chars += n
	}
	if words == 0 {
		return true
	}
	return float64(chars)/float64(words) < MinAvgWordLength
}

// weakConnectives guards against disconnected sentence lists.
func (f *Filter) weakConnectives(text string) bool {
	seen := make(map[string]bool)
	for _, tok := range letterRunRegex.FindAllString(strings.ToLower(text), -1) {
		stem := f.stem(tok)
		if f.connectives[stem] {
			seen[stem] = true
			if len(seen) >= MinConnectives {
				return false
			}
		}
	}
	return true
}

func (f *Filter) stem(word string) string {
	if f.vocab.StemLanguage == "" {
		return word
	}
	stemmed, err := snowball.Stem(word, f.vocab.StemLanguage, true)
	if err != nil || stemmed == "" {
		return word
	}
	return stemmed
}
