package indexer

import (
	"reflect"
	"testing"

	"github.com/hyperjump/shiori/internal/models"
)

func TestChunker_Chunk(t *testing.T) {
	c := NewChunker(3, 1, false)
	chunks := c.Chunk("doc1", "one two three four five six seven")
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	want := []string{"one two three", "three four five", "five six seven"}
	for i, ch := range chunks {
		if ch.DocumentID != "doc1" {
			t.Errorf("chunk %d DocumentID=%s", i, ch.DocumentID)
		}
		if ch.ChunkIndex != i {
			t.Errorf("chunk %d ChunkIndex=%d", i, ch.ChunkIndex)
		}
		if ch.Text != want[i] {
			t.Errorf("chunk %d Text=%q, want %q", i, ch.Text, want[i])
		}
	}
	if chunks[2].ID != "doc1_2" {
		t.Errorf("ID=%s", chunks[2].ID)
	}
}

func TestChunker_ChunkEmpty(t *testing.T) {
	c := NewChunker(5, 1, false)
	if chunks := c.Chunk("d", "   \n\t  "); chunks != nil {
		t.Errorf("empty text should return nil, got %v", chunks)
	}
	if chunks := c.Chunk("d", "# Only a heading\n## And a section"); chunks != nil {
		t.Errorf("headings alone should not produce chunks, got %v", chunks)
	}
}

func TestChunker_Defaults(t *testing.T) {
	c := NewChunker(0, 10, false)
	if c.chunkSize != 200 || c.chunkOverlap != 0 {
		t.Errorf("chunkSize=%d chunkOverlap=%d", c.chunkSize, c.chunkOverlap)
	}
	c = NewChunker(4, 4, false)
	if c.chunkOverlap != 0 {
		t.Errorf("overlap >= size should be reset, got %d", c.chunkOverlap)
	}
}

func TestChunker_MarkdownHeadings(t *testing.T) {
	text := `intro words

# Fruits
Bananas are yellow.

## Tropical
Mangoes grow in warm places.

### Detail
Still tropical.

# Animals
Chinchillas are cute.`

	chunks := NewChunker(50, 0, false).Chunk("d", text)
	type tagged struct{ chapter, section, text string }
	var got []tagged
	for _, ch := range chunks {
		got = append(got, tagged{ch.Chapter(), ch.Section(), ch.Text})
	}
	want := []tagged{
		{"", "", "intro words"},
		{"Fruits", "", "Bananas are yellow."},
		{"Fruits", "Tropical", "Mangoes grow in warm places. ### Detail Still tropical."},
		{"Animals", "", "Chinchillas are cute."},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got  %+v\nwant %+v", got, want)
	}
	if _, ok := chunks[0].Metadata[models.MetaChapter]; ok {
		t.Error("chunk before any heading should have no chapter")
	}
}

func TestChunker_WindowsDoNotCrossHeadings(t *testing.T) {
	text := "# A\none two three\n# B\nfour five"
	chunks := NewChunker(10, 0, false).Chunk("d", text)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Text != "one two three" || chunks[1].Text != "four five" {
		t.Errorf("chunks=%+v", chunks)
	}
}

func TestParseHeading(t *testing.T) {
	tests := []struct {
		line      string
		numbered  bool
		wantLevel int
		wantTitle string
	}{
		{"# Introduction", false, levelChapter, "Introduction"},
		{"## Getting Started ##", false, levelSection, "Getting Started"},
		{"### Deep", false, levelNone, ""},
		{"#hashtag", false, levelNone, ""},
		{"3 Vector Spaces", false, levelNone, ""},
		{"3 Vector Spaces", true, levelChapter, "Vector Spaces"},
		{"3. Vector Spaces (41)", true, levelChapter, "Vector Spaces"},
		{"3.2 Inner Products", true, levelSection, "Inner Products"},
		{"3.2 Inner Products ....... 57", true, levelSection, "Inner Products"},
		{"3.2.1 Norms", true, levelNone, ""},
		{"3 apples were eaten", true, levelNone, ""},
		{"1 This sentence ends like prose.", true, levelNone, ""},
		{"# Chapter 3", false, levelChapter, "Chapter 3"},
		{"   ", true, levelNone, ""},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			level, title := parseHeading(tt.line, tt.numbered)
			if level != tt.wantLevel || title != tt.wantTitle {
				t.Errorf("parseHeading(%q, %v) = (%d, %q), want (%d, %q)",
					tt.line, tt.numbered, level, title, tt.wantLevel, tt.wantTitle)
			}
		})
	}
}

func TestChunker_NumberedHeadings(t *testing.T) {
	text := "1 Basics\nfirst body\n1.1 Setup\nsetup body\n2 Advanced\nlast body"
	chunks := NewChunker(20, 0, true).Chunk("d", text)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[1].Chapter() != "Basics" || chunks[1].Section() != "Setup" {
		t.Errorf("chunk 1 = %+v", chunks[1].Metadata)
	}
	if chunks[2].Chapter() != "Advanced" || chunks[2].Section() != "" {
		t.Errorf("section should reset on a new chapter: %+v", chunks[2].Metadata)
	}
}
