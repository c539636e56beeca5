package labels

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/hyperjump/shiori/internal/models"
)

// KeywordMatcher matches queries to TOC labels by keyword search over the label
// names, with no model call. A chapter is indexed under its own name and the names
// of its sections; a section under its name and its chapter's.
type KeywordMatcher struct {
	index     bleve.Index
	labels    map[string]models.Label
	maxLabels int
	minScore  float64
}

// Seams for tests.
var (
	newLabelIndex   = func(im mapping.IndexMapping) (bleve.Index, error) { return bleve.NewMemOnly(im) }
	indexLabelEntry = func(b *bleve.Batch, id, text string) error {
		return b.Index(id, map[string]interface{}{"text": text})
	}
)

// NewKeywordMatcher builds an in-memory Bleve index over toc. maxLabels <= 0 defaults to 3.
func NewKeywordMatcher(toc *TOC, maxLabels int, minScore float64) (_ *KeywordMatcher, err error) {
	if toc == nil || len(toc.Chapters) == 0 {
		return nil, fmt.Errorf("table of contents is required")
	}
	if maxLabels <= 0 {
		maxLabels = 3
	}

	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("text", textFieldMapping)
	im.DefaultMapping = docMapping

	index, err := newLabelIndex(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create label index: %w", err)
	}
	defer func() {
		if err != nil {
			_ = index.Close()
		}
	}()

	m := &KeywordMatcher{
		index:     index,
		labels:    make(map[string]models.Label),
		maxLabels: maxLabels,
		minScore:  minScore,
	}
	batch := index.NewBatch()
	n := 0
	add := func(l models.Label, text string) error {
		id := strconv.Itoa(n)
		n++
		m.labels[id] = l
		return indexLabelEntry(batch, id, text)
	}
	for _, ch := range toc.Chapters {
		if err := add(models.ChapterLabel(ch.Name), ch.Name+" "+strings.Join(ch.Sections, " ")); err != nil {
			return nil, fmt.Errorf("failed to index chapter %q: %w", ch.Name, err)
		}
		for _, s := range ch.Sections {
			if err := add(models.SectionLabel(ch.Name, s), s+" "+ch.Name); err != nil {
				return nil, fmt.Errorf("failed to index section %q: %w", s, err)
			}
		}
	}
	if err := index.Batch(batch); err != nil {
		return nil, fmt.Errorf("failed to build label index: %w", err)
	}
	return m, nil
}

// Match implements router.LabelMatcher.
func (m *KeywordMatcher) Match(ctx context.Context, query string) ([]models.Label, error) {
	q := bleve.NewMatchQuery(query)
	q.SetField("text")
	req := bleve.NewSearchRequest(q)
	req.Size = m.maxLabels
	res, err := m.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("label search failed: %w", err)
	}
	var out []models.Label
	for _, hit := range res.Hits {
		if hit.Score < m.minScore {
			continue
		}
		if l, ok := m.labels[hit.ID]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

// Close releases the index.
func (m *KeywordMatcher) Close() error {
	return m.index.Close()
}
