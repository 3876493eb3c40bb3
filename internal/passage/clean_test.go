package passage

import (
	"strings"
	"testing"
)

func TestClean_Book(t *testing.T) {
	raw := "The Project Gutenberg eBook of Test\r\n" +
		"*** START OF THE PROJECT GUTENBERG EBOOK TEST ***\r\n" +
		"\r\n" +
		"Produced by Someone Careful\r\n" +
		"\r\n" +
		"CHAPTER I.\r\n" +
		"\r\n" +
		"It was a bright\r\n" +
		"cold day in April.\r\n" +
		"\r\n" +
		"*** END OF THE PROJECT GUTENBERG EBOOK TEST ***\r\n" +
		"License text follows here.\r\n"

	got := Clean(raw, SourceBook)
	want := "It was a bright cold day in April."
	if got != want {
		t.Errorf("Clean = %q, want %q", got, want)
	}
}

func TestClean_BookWithoutMarkers(t *testing.T) {
	raw := "THE TITLE\n\nII.\n\nShe walked to the\nwindow and waited.\n\nHe never came."
	got := Clean(raw, SourceBook)
	want := "She walked to the window and waited.\n\nHe never came."
	if got != want {
		t.Errorf("Clean = %q, want %q", got, want)
	}
}

func TestClean_Annotations(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "illustration",
			input: "He smiled [Illustration: A map of the coast] at her friend.",
			want:  "He smiled at her friend.",
		},
		{
			name:  "footnote block",
			input: "The war ended.[Footnote 3: See the appendix.] Peace returned.",
			want:  "The war ended. Peace returned.",
		},
		{
			name:  "citation markers",
			input: "The city grew.[1][citation needed] It prospered.",
			want:  "The city grew. It prospered.",
		},
		{
			name:  "emphasis",
			input: "It was _very_ cold and **quite** *dark* outside.",
			want:  "It was very cold and quite dark outside.",
		},
		{
			name:  "brace anchor",
			input: "The king died{12} in spring.",
			want:  "The king died in spring.",
		},
		{
			name:  "control characters",
			input: "\ufeffThe river\u0007 flowed.",
			want:  "The river flowed.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.input, SourceBook); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestClean_EncyclopediaWiki(t *testing.T) {
	raw := "The city lies on a river.\n\n== History ==\nIt was founded long ago.\n\n== See also ==\nOther cities"
	got := Clean(raw, SourceEncyclopedia)
	want := "The city lies on a river.\n\nIt was founded long ago."
	if got != want {
		t.Errorf("Clean = %q, want %q", got, want)
	}
}

func TestClean_EncyclopediaHTML(t *testing.T) {
	raw := `<div><p>The city was founded in 1200.<sup>[1]</sup></p>` +
		`<p>It grew &amp; prospered.</p>` +
		`<script>alert("x")</script>` +
		`<h2>References<span>[edit]</span></h2><p>Smith 2001</p></div>`

	got := Clean(raw, SourceEncyclopedia)
	for _, want := range []string{"The city was founded in 1200.", "It grew & prospered."} {
		if !strings.Contains(got, want) {
			t.Errorf("Clean = %q, missing %q", got, want)
		}
	}
	for _, unwanted := range []string{"<", "[1]", "Smith", "alert", "References"} {
		if strings.Contains(got, unwanted) {
			t.Errorf("Clean = %q, should not contain %q", got, unwanted)
		}
	}
}

func TestClean_News(t *testing.T) {
	raw := "By Jane Doe\nThe council voted on Tuesday.\nAdvertisement\nThe vote passed.\nRelated articles\nOther story."
	got := Clean(raw, SourceNews)
	want := "The council voted on Tuesday.\n\nThe vote passed."
	if got != want {
		t.Errorf("Clean = %q, want %q", got, want)
	}
}

func TestClean_NewsKeepsProseStartingWithBy(t *testing.T) {
	raw := "By then the storm had passed."
	if got := Clean(raw, SourceNews); got != raw {
		t.Errorf("Clean = %q, want %q", got, raw)
	}
}

func TestClean_Markdown(t *testing.T) {
	raw := "# Title\n\nSome *emphasis* and a [link](http://x.com) here.\n\n```\ncode\n```\n\n- item one\n"
	got := Clean(raw, SourceMarkdown)
	want := "Some emphasis and a link here.\n\nitem one"
	if got != want {
		t.Errorf("Clean = %q, want %q", got, want)
	}
}

func TestClean_Empty(t *testing.T) {
	for _, typ := range SourceTypes {
		if got := Clean("", typ); got != "" {
			t.Errorf("Clean(\"\", %s) = %q, want empty", typ, got)
		}
	}
}

func TestParseSourceType(t *testing.T) {
	tests := []struct {
		input string
		want  SourceType
		ok    bool
	}{
		{"book", SourceBook, true},
		{" News ", SourceNews, true},
		{"ENCYCLOPEDIA", SourceEncyclopedia, true},
		{"markdown", SourceMarkdown, true},
		{"pdf", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseSourceType(tt.input)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseSourceType(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}
