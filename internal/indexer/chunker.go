// Package indexer splits documents into chapter- and section-tagged chunks and
// records them in the catalog.
package indexer

import (
	"fmt"
	"strings"

	"github.com/hyperjump/shiori/internal/models"
)

// Chunker splits text into overlapping word windows that never cross a heading.
// Each chunk carries the chapter and section it was found under.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	numbered     bool
}

// NewChunker creates a chunker with the given size and overlap (in words).
// numbered enables "1 Title" / "1.2 Title" heading detection for text without Markdown.
func NewChunker(chunkSize, chunkOverlap int, numbered bool) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 200
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap, numbered: numbered}
}

type segment struct {
	chapter, section string
	words            []string
}

// Chunk splits text into chunks with IDs "<docID>_<index>".
func (c *Chunker) Chunk(docID, text string) []models.Chunk {
	var segments []segment
	cur := segment{}
	flush := func() {
		if len(cur.words) > 0 {
			segments = append(segments, cur)
		}
		cur = segment{chapter: cur.chapter, section: cur.section}
	}

	for _, line := range strings.Split(text, "\n") {
		level, title := parseHeading(line, c.numbered)
		switch level {
		case levelChapter:
			flush()
			cur.chapter, cur.section = title, ""
		case levelSection:
			flush()
			cur.section = title
		default:
			cur.words = append(cur.words, strings.Fields(line)...)
		}
	}
	flush()

	var chunks []models.Chunk
	for _, seg := range segments {
		for _, window := range c.windows(seg.words) {
			meta := make(map[string]string, 2)
			if seg.chapter != "" {
				meta[models.MetaChapter] = seg.chapter
			}
			if seg.section != "" {
				meta[models.MetaSection] = seg.section
			}
			chunks = append(chunks, models.Chunk{
				ID:         fmt.Sprintf("%s_%d", docID, len(chunks)),
				DocumentID: docID,
				Text:       window,
				ChunkIndex: len(chunks),
				Metadata:   meta,
			})
		}
	}
	return chunks
}

func (c *Chunker) windows(words []string) []string {
	if len(words) == 0 {
		return nil
	}
	step := c.chunkSize - c.chunkOverlap
	var out []string
	for i := 0; i < len(words); i += step {
		end := i + c.chunkSize
		if end > len(words) {
			end = len(words)
		}
		out = append(out, strings.Join(words[i:end], " "))
		if end >= len(words) {
			break
		}
	}
	return out
}
