package models

import "fmt"

// Metadata keys read by the label index.
const (
	MetaChapter = "chapter"
	MetaSection = "section"
)

// Label categories.
const (
	CategoryChapter = "chapter"
	CategorySection = "section"
)

// UnknownChapter stands in for the chapter when a section has none.
const UnknownChapter = "unknown"

// Label names a chapter or a chapter-qualified section.
type Label struct {
	Category string `json:"category"`
	Name     string `json:"name"`
}

// ChapterLabel returns the label for a chapter.
func ChapterLabel(chapter string) Label {
	return Label{Category: CategoryChapter, Name: chapter}
}

// SectionLabel returns the label for section within chapter, named "<chapter> - <section>".
// An empty chapter is replaced by UnknownChapter.
func SectionLabel(chapter, section string) Label {
	if chapter == "" {
		chapter = UnknownChapter
	}
	return Label{Category: CategorySection, Name: chapter + " - " + section}
}

// Valid reports whether the label has a known category and a name.
func (l Label) Valid() bool {
	return l.Name != "" && (l.Category == CategoryChapter || l.Category == CategorySection)
}

func (l Label) String() string {
	return fmt.Sprintf("%s:%s", l.Category, l.Name)
}

// LabelCount is a label with the number of keys indexed under it.
type LabelCount struct {
	Label
	Count int `json:"count"`
}
