package indexer

import (
	"regexp"
	"strings"
)

// Heading levels recognised by the chunker.
const (
	levelNone = iota
	levelChapter
	levelSection
)

var (
	mdHeadingRe = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*\s*$`)
	// "3 Title" for chapters, "3.2 Title" for sections. Deeper numbering is body text.
	numChapterRe = regexp.MustCompile(`^(\d{1,3})\.?\s+(\p{Lu}.*)$`)
	numSectionRe = regexp.MustCompile(`^(\d{1,3})\.(\d{1,3})\.?\s+(\p{Lu}.*)$`)
	pageSuffixRe = regexp.MustCompile(`\s*(?:\(\d+\)|\.{2,}\s*\d+)$`)
	// Longest line treated as a numbered heading.
	maxHeadingLen = 80
)

// parseHeading classifies a line as a chapter heading, a section heading, or neither.
// Markdown "#" lines are chapters and "##" lines sections; "###" and deeper are body
// text. With numbered set, "1 Title" and "1.2 Title" lines are headings too when
// they are short and do not end like a sentence. A trailing page number such as
// "(23)" or ".... 23" is dropped from the title.
func parseHeading(line string, numbered bool) (int, string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return levelNone, ""
	}
	if m := mdHeadingRe.FindStringSubmatch(line); m != nil {
		switch len(m[1]) {
		case 1:
			return levelChapter, cleanTitle(m[2])
		case 2:
			return levelSection, cleanTitle(m[2])
		}
		return levelNone, ""
	}
	if !numbered || len(line) > maxHeadingLen || strings.HasSuffix(line, ".") {
		return levelNone, ""
	}
	if m := numSectionRe.FindStringSubmatch(line); m != nil {
		return levelSection, cleanTitle(m[3])
	}
	if m := numChapterRe.FindStringSubmatch(line); m != nil {
		return levelChapter, cleanTitle(m[2])
	}
	return levelNone, ""
}

// cleanTitle collapses whitespace and strips a trailing page number.
func cleanTitle(title string) string {
	title = strings.Join(strings.Fields(title), " ")
	if stripped := strings.TrimSpace(pageSuffixRe.ReplaceAllString(title, "")); stripped != "" {
		title = stripped
	}
	return title
}
