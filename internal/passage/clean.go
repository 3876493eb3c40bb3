package passage

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// htmlPolicy strips every tag. Script and style bodies are dropped with their tags.
var htmlPolicy = bluemonday.StrictPolicy()

var (
	htmlTagRegex   = regexp.MustCompile(`<[a-zA-Z/!][^>]*>`)
	htmlBlockRegex = regexp.MustCompile(`(?i)<\s*/?\s*(p|div|br|h[1-6]|li|ul|ol|tr|table|section|article|blockquote|header|footer|figure|figcaption)\b[^>]*>`)

	bookStartRegex = regexp.MustCompile(`(?im)^[ \t]*\*{3}[ \t]*START OF (THE|THIS) PROJECT GUTENBERG E-?BOOK[^\n]*$`)
	bookEndRegex   = regexp.MustCompile(`(?im)^[ \t]*(\*{3}[ \t]*END OF (THE|THIS) PROJECT GUTENBERG|End of (the )?Project Gutenberg)`)

	wikiHeadingRegex = regexp.MustCompile(`^\s*(=+|#+)\s*(.*?)\s*=*\s*$`)

	newsCutRegex  = regexp.MustCompile(`(?i)^\s*(related (articles|stories|coverage|content)|more from\b|recommended( for you)?\s*$|read next\b|you may also like)`)
	newsDropRegex = regexp.MustCompile(`(?i)^\s*(advertisement|advertising|share this( article| story)?|sign up\b.*|subscribe\b.*|read more\b.*|click here\b.*|follow us\b.*|(photo|image|picture)( credit)?:.*|\(?(photo|image)s? (credit|by)\b.*|copyright\b.*|all rights reserved.*)\s*$`)
	bylineRegex   = regexp.MustCompile(`^\s*(By|BY)\s+[A-Z][\w.'’-]*(\s+(and\s+)?[A-Z][\w.'’-]*){0,4}(\s*[,|].*)?\s*$`)

	illustrationRegex = regexp.MustCompile(`(?is)\[\s*(illustration|footnote|transcriber'?s? note|sidenote|editor'?s? note|note)\b[^\]]*\]`)
	bracketRegex      = regexp.MustCompile(`\[[^\[\]]{0,200}\]`)
	braceNumberRegex  = regexp.MustCompile(`\{\d+\}`)
	strongRegex       = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)
	emRegex           = regexp.MustCompile(`\*([^*\n]+)\*`)
	underscoreRegex   = regexp.MustCompile(`_([^_\n]+)_`)
	spaceBeforePunct  = regexp.MustCompile(`[ \t]+([,.;:!?])`)
	paragraphSplit    = regexp.MustCompile(`\n[ \t]*\n`)

	chapterHeadingRegex = regexp.MustCompile(`(?i)^(chapter|book|part|volume|section|canto|act|scene)\s+([0-9]+|[ivxlcdm]+|[a-z]+)\b[^.!?]{0,60}[.:]?$`)
	romanOnlyRegex      = regexp.MustCompile(`(?i)^[ivxlcdm]+\.?$`)
	creditRegex         = regexp.MustCompile(`(?i)^(produced by|transcriber'?s? notes?|e-?text prepared by|this e-?book was produced)`)
)

// trailingSections are headings after which an encyclopedia article is reference material.
var trailingSections = []string{
	"references",
	"see also",
	"external links",
	"notes",
	"further reading",
	"bibliography",
	"sources",
	"citations",
	"footnotes",
}

// Clean strips source-specific boilerplate and markup noise from raw text.
// It never fails; the result may be empty. Paragraphs are separated by one blank line.
func Clean(raw string, typ SourceType) string {
	text := normalizeNewlines(raw)

	switch typ {
	case SourceBook:
		text = cutBook(text)
	case SourceEncyclopedia:
		text = cutEncyclopedia(stripHTML(text))
	case SourceNews:
		text = cutNews(stripHTML(text))
	case SourceMarkdown:
		text = markdownText(text)
	}

	text = stripAnnotations(text)
	paragraphs := reflow(text)

	if typ == SourceBook {
		paragraphs = dropParagraphs(paragraphs, isBookFurniture)
	}

	return strings.Join(paragraphs, "\n\n")
}

// normalizeNewlines converts CRLF/CR to LF and removes control characters.
func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\ufeff' || r == '\u00ad':
			return -1
		case r == '\u00a0' || r == '\t':
			return ' '
		case r == '\n':
			return r
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
}

// stripHTML removes markup when the text looks like HTML, keeping block boundaries as paragraph breaks.
func stripHTML(s string) string {
	if !htmlTagRegex.MatchString(s) {
		return s
	}
	s = htmlBlockRegex.ReplaceAllString(s, "\n\n")
	s = htmlPolicy.Sanitize(s)
	return html.UnescapeString(s)
}

// cutBook keeps only the body between the distribution header and footer.
func cutBook(s string) string {
	if loc := bookStartRegex.FindStringIndex(s); loc != nil {
		s = s[loc[1]:]
	}
	if loc := bookEndRegex.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	return s
}

// cutEncyclopedia truncates at the first trailing section and drops heading lines.
func cutEncyclopedia(s string) string {
	lines := strings.Split(s, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		name, isHeading := headingName(line)
		if isTrailingSection(name) {
			break
		}
		if isHeading {
			// Headings become paragraph breaks
			kept = append(kept, "")
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// headingName extracts the heading text from a wiki/markdown heading line.
// For a plain line it returns the trimmed line and false.
func headingName(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if m := wikiHeadingRegex.FindStringSubmatch(trimmed); m != nil && m[1] != "" {
		return strings.TrimSpace(m[2]), true
	}
	return trimmed, false
}

func isTrailingSection(name string) bool {
	name = strings.TrimSuffix(Normalize(bracketRegex.ReplaceAllString(name, "")), ":")
	for _, s := range trailingSections {
		if name == s {
			return true
		}
	}
	return false
}

// cutNews drops navigation/promo lines and truncates at related-content blocks.
func cutNews(s string) string {
	lines := strings.Split(s, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if newsCutRegex.MatchString(line) {
			break
		}
		if newsDropRegex.MatchString(line) || bylineRegex.MatchString(line) {
			kept = append(kept, "")
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// markdownText renders markdown to plain prose: paragraph, list and quote text only.
func markdownText(s string) string {
	src := []byte(s)
	doc := goldmark.New().Parser().Parse(gmtext.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch n.Kind() {
		case ast.KindHeading, ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindHTMLBlock,
			ast.KindImage, ast.KindThematicBreak, ast.KindRawHTML, ast.KindAutoLink:
			return ast.WalkSkipChildren, nil
		case ast.KindParagraph, ast.KindTextBlock:
			if !entering {
				b.WriteString("\n\n")
			}
		case ast.KindText:
			if entering {
				t := n.(*ast.Text)
				b.Write(t.Segment.Value(src))
				if t.SoftLineBreak() || t.HardLineBreak() {
					b.WriteByte(' ')
				}
			}
		case ast.KindString:
			if entering {
				b.Write(n.(*ast.String).Value)
			}
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// stripAnnotations removes bracketed editorial notes, footnote anchors and emphasis markers.
func stripAnnotations(s string) string {
	s = illustrationRegex.ReplaceAllString(s, "")
	s = bracketRegex.ReplaceAllString(s, "")
	s = braceNumberRegex.ReplaceAllString(s, "")
	s = strongRegex.ReplaceAllString(s, "$1")
	s = emRegex.ReplaceAllString(s, "$1")
	s = underscoreRegex.ReplaceAllString(s, "$1")
	return spaceBeforePunct.ReplaceAllString(s, "$1")
}

// reflow joins hard-wrapped lines and returns the non-empty paragraphs.
func reflow(s string) []string {
	raw := paragraphSplit.Split(s, -1)
	paragraphs := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(whitespaceRegex.ReplaceAllString(p, " "))
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

func dropParagraphs(paragraphs []string, drop func(string) bool) []string {
	kept := paragraphs[:0]
	for _, p := range paragraphs {
		if !drop(p) {
			kept = append(kept, p)
		}
	}
	return kept
}

// isBookFurniture reports headings, credits and title lines that are not prose.
func isBookFurniture(p string) bool {
	if creditRegex.MatchString(p) {
		return true
	}
	if CountWords(p) > 12 {
		return false
	}
	return chapterHeadingRegex.MatchString(p) || romanOnlyRegex.MatchString(p) || isAllCaps(p)
}

// isAllCaps reports whether every letter in s is uppercase (and there is at least one).
func isAllCaps(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters > 1
}
