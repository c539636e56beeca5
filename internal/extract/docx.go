package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strconv"
	"strings"
)

const (
	docxDocumentXMLPath = "word/document.xml"
	contentTypesPath    = "[Content_Types].xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

var (
	// Paragraphs, with or without attributes on <w:p>.
	wpTag = regexp.MustCompile(`(?s)<w:p[ >].*?</w:p>|<w:p/>`)
	// Text runs: <w:t>text</w:t> or <w:t xml:space="preserve">text</w:t>.
	wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
	// Paragraph style, e.g. <w:pStyle w:val="Heading2"/>.
	pStyleTag = regexp.MustCompile(`<w:pStyle w:val="([^"]+)"`)
	headingRe = regexp.MustCompile(`(?i)^heading\s*([1-6])$`)

	partNameRe  = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)
	partNameRe2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)
)

// extractDOCX returns one line per non-empty paragraph. Paragraphs styled
// "Heading N" become Markdown headings with N '#'s, "Title" becomes a level-1 heading.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}

	docPath := docxMainDocumentPath(zr)
	if docPath == "" {
		docPath = docxDocumentXMLPath
	}
	docXML, err := readZipFile(zr, docPath)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}

	var lines []string
	for _, para := range wpTag.FindAllString(string(docXML), -1) {
		var b strings.Builder
		for _, m := range wtTag.FindAllStringSubmatch(para, -1) {
			b.WriteString(html.UnescapeString(m[1]))
		}
		text := strings.TrimSpace(b.String())
		if text == "" {
			continue
		}
		if level := headingLevel(para); level > 0 {
			text = strings.Repeat("#", level) + " " + text
		}
		lines = append(lines, text)
	}
	return strings.Join(lines, "\n"), nil
}

func headingLevel(para string) int {
	m := pStyleTag.FindStringSubmatch(para)
	if m == nil {
		return 0
	}
	if strings.EqualFold(m[1], "Title") {
		return 1
	}
	if h := headingRe.FindStringSubmatch(m[1]); h != nil {
		n, _ := strconv.Atoi(h[1])
		return n
	}
	return 0
}

// docxMainDocumentPath reads the main document part from [Content_Types].xml.
// It returns "" when the manifest is missing or names no main part.
func docxMainDocumentPath(zr *zip.Reader) string {
	data, err := readZipFile(zr, contentTypesPath)
	if err != nil {
		return ""
	}
	for _, re := range []*regexp.Regexp{partNameRe, partNameRe2} {
		if m := re.FindSubmatch(data); len(m) > 1 {
			return strings.TrimPrefix(string(m[1]), "/")
		}
	}
	return ""
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%s not found", name)
}
