// Package labels predicts which chapters and sections of a document a query is about.
package labels

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/shiori/internal/models"
)

// TOC is a document's table of contents, loaded from YAML:
//
//	title: Fundamentals of Python
//	chapters:
//	  - name: Python Primer
//	    sections: [Python Overview, Objects in Python]
type TOC struct {
	Title    string    `yaml:"title"`
	Chapters []Chapter `yaml:"chapters"`
}

// Chapter is a TOC chapter and its section names.
type Chapter struct {
	Name     string   `yaml:"name"`
	Sections []string `yaml:"sections"`
}

// LoadTOC reads a table of contents from a YAML file.
func LoadTOC(path string) (*TOC, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read table of contents: %w", err)
	}
	return ParseTOC(data)
}

// ParseTOC parses YAML table-of-contents data. Blank names are dropped.
func ParseTOC(data []byte) (*TOC, error) {
	var toc TOC
	if err := yaml.Unmarshal(data, &toc); err != nil {
		return nil, fmt.Errorf("failed to parse table of contents: %w", err)
	}
	chapters := toc.Chapters[:0]
	for _, ch := range toc.Chapters {
		ch.Name = strings.TrimSpace(ch.Name)
		if ch.Name == "" {
			continue
		}
		sections := ch.Sections[:0]
		for _, s := range ch.Sections {
			if s = strings.TrimSpace(s); s != "" {
				sections = append(sections, s)
			}
		}
		ch.Sections = sections
		chapters = append(chapters, ch)
	}
	toc.Chapters = chapters
	if len(toc.Chapters) == 0 {
		return nil, fmt.Errorf("table of contents has no chapters")
	}
	return &toc, nil
}

// Labels returns every chapter label followed by its chapter-qualified section labels.
func (t *TOC) Labels() []models.Label {
	var out []models.Label
	for _, ch := range t.Chapters {
		out = append(out, models.ChapterLabel(ch.Name))
		for _, s := range ch.Sections {
			out = append(out, models.SectionLabel(ch.Name, s))
		}
	}
	return out
}

// String renders the TOC as numbered lines, the form used in prompts.
func (t *TOC) String() string {
	var b strings.Builder
	for i, ch := range t.Chapters {
		fmt.Fprintf(&b, "%d %s\n", i+1, ch.Name)
		for j, s := range ch.Sections {
			fmt.Fprintf(&b, "%d.%d %s\n", i+1, j+1, s)
		}
	}
	return b.String()
}

// canonicalChapter returns the TOC chapter closest to name, if any is within maxDistance edits.
func (t *TOC) canonicalChapter(name string, maxDistance int) (string, bool) {
	var names []string
	for _, ch := range t.Chapters {
		names = append(names, ch.Name)
	}
	return closest(name, names, maxDistance)
}

// canonicalSection resolves a section name, preferring sections of chapter.
// It returns the chapter the section belongs to.
func (t *TOC) canonicalSection(chapter, section string, maxDistance int) (string, string, bool) {
	for _, ch := range t.Chapters {
		if ch.Name != chapter {
			continue
		}
		if s, ok := closest(section, ch.Sections, maxDistance); ok {
			return ch.Name, s, true
		}
	}
	best, bestChapter, bestDist := "", "", -1
	for _, ch := range t.Chapters {
		for _, s := range ch.Sections {
			d := LevenshteinDistance(normalizeName(section), normalizeName(s))
			if d <= maxDistance && (bestDist < 0 || d < bestDist) {
				best, bestChapter, bestDist = s, ch.Name, d
			}
		}
	}
	return bestChapter, best, bestDist >= 0
}
