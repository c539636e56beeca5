// Package labelindex maps chapter and section labels to the keys of the chunks carrying them.
package labelindex

import (
	"sort"
	"sync"

	"github.com/hyperjump/shiori/internal/models"
)

// Index is the label -> keys lookup used to narrow a search. It is rebuilt
// wholesale by Build and is safe for concurrent use.
type Index struct {
	keys  map[models.Label][]string
	order []models.Label
	mu    sync.RWMutex
}

// New returns an empty index.
func New() *Index {
	return &Index{keys: make(map[models.Label][]string)}
}

// Build replaces the index contents with the labels of chunks. Keys are appended
// in chunk order. A chunk with a chapter is indexed under that chapter; a chunk
// with a section is indexed under models.SectionLabel(chapter, section).
func (i *Index) Build(chunks []models.Chunk) {
	keys := make(map[models.Label][]string)
	var order []models.Label
	add := func(l models.Label, key string) {
		if _, ok := keys[l]; !ok {
			order = append(order, l)
		}
		keys[l] = append(keys[l], key)
	}
	for _, c := range chunks {
		key := c.Key()
		chapter, section := c.Chapter(), c.Section()
		if chapter != "" {
			add(models.ChapterLabel(chapter), key)
		}
		if section != "" {
			add(models.SectionLabel(chapter, section), key)
		}
	}

	i.mu.Lock()
	i.keys = keys
	i.order = order
	i.mu.Unlock()
}

// Lookup returns a copy of the keys indexed under (category, name). Unknown labels yield nil.
func (i *Index) Lookup(category, name string) []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	keys := i.keys[models.Label{Category: category, Name: name}]
	if len(keys) == 0 {
		return nil
	}
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// Labels returns every label with its key count, chapters before sections and
// each group in the order first seen.
func (i *Index) Labels() []models.LabelCount {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]models.LabelCount, 0, len(i.order))
	for _, l := range i.order {
		out = append(out, models.LabelCount{Label: l, Count: len(i.keys[l])})
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Category == models.CategoryChapter && out[b].Category != models.CategoryChapter
	})
	return out
}

// Len returns the number of distinct labels.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.keys)
}
