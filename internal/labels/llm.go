package labels

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/models"
)

// Completer sends a prompt to a chat model and returns its reply. *openai.Client implements it.
type Completer interface {
	Complete(ctx context.Context, model, system, prompt string) (string, error)
}

// Prediction is one item of the model's reply.
type Prediction struct {
	Chapter    *string  `json:"chapter"`
	Section    *string  `json:"section"`
	Confidence *float64 `json:"confidence"`
}

// LLMMatcher asks a chat model which chapters and sections of a table of contents
// a query is about. Predicted names are snapped to the nearest TOC entry.
type LLMMatcher struct {
	completer     Completer
	model         string
	toc           *TOC
	minConfidence float64
	maxDistance   int
	logger        *zap.Logger
}

// LLMOption configures an LLMMatcher.
type LLMOption func(*LLMMatcher)

// WithMinConfidence drops predictions below c (default 0.5). Predictions without a
// confidence are kept.
func WithMinConfidence(c float64) LLMOption {
	return func(m *LLMMatcher) { m.minConfidence = c }
}

// WithMaxDistance sets how many edits a predicted name may be from a TOC entry (default 3).
func WithMaxDistance(d int) LLMOption {
	return func(m *LLMMatcher) { m.maxDistance = d }
}

// WithLLMLogger sets the logger.
func WithLLMLogger(l *zap.Logger) LLMOption {
	return func(m *LLMMatcher) { m.logger = l }
}

// NewLLMMatcher creates a matcher for toc using model.
func NewLLMMatcher(completer Completer, model string, toc *TOC, opts ...LLMOption) (*LLMMatcher, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if toc == nil || len(toc.Chapters) == 0 {
		return nil, fmt.Errorf("table of contents is required")
	}
	m := &LLMMatcher{
		completer:     completer,
		model:         model,
		toc:           toc,
		minConfidence: 0.5,
		maxDistance:   3,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Match implements router.LabelMatcher. A reply without a JSON array is an error.
func (m *LLMMatcher) Match(ctx context.Context, query string) ([]models.Label, error) {
	reply, err := m.completer.Complete(ctx, m.model, "", BuildPrompt(m.toc, query))
	if err != nil {
		return nil, fmt.Errorf("label completion failed: %w", err)
	}
	preds, err := ParsePredictions(reply)
	if err != nil {
		return nil, err
	}
	labels := m.resolve(preds)
	m.logger.Debug("matched labels",
		zap.String("query", query),
		zap.Int("predictions", len(preds)),
		zap.Int("labels", len(labels)))
	return labels, nil
}

func (m *LLMMatcher) resolve(preds []Prediction) []models.Label {
	var out []models.Label
	seen := make(map[models.Label]struct{})
	add := func(l models.Label) {
		if _, ok := seen[l]; ok {
			return
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}

	for _, p := range preds {
		if p.Confidence != nil && *p.Confidence < m.minConfidence {
			continue
		}
		chapter, section := deref(p.Chapter), deref(p.Section)
		if chapter != "" {
			if c, ok := m.toc.canonicalChapter(chapter, m.maxDistance); ok {
				chapter = c
				add(models.ChapterLabel(c))
			} else {
				chapter = ""
			}
		}
		if section != "" {
			if c, s, ok := m.toc.canonicalSection(chapter, section, m.maxDistance); ok {
				add(models.SectionLabel(c, s))
			}
		}
	}
	return out
}

// BuildPrompt renders the label-matching prompt for query.
func BuildPrompt(toc *TOC, query string) string {
	var b strings.Builder
	b.WriteString("You map questions to the chapters and sections of a document")
	if toc.Title != "" {
		fmt.Fprintf(&b, ", %q", toc.Title)
	}
	b.WriteString(".\n")
	b.WriteString("Use only the table of contents below. Reply with a JSON array of objects with the keys ")
	b.WriteString(`"chapter", "section" and "confidence" (0 to 1), most relevant first. `)
	b.WriteString("Use null for a chapter or section you cannot determine and a confidence below 0.5 when unsure.\n\n")
	b.WriteString("Table of contents:\n")
	b.WriteString(toc.String())
	b.WriteString("\nExample reply:\n")
	b.WriteString(`[{"chapter": "Python Primer", "section": "Comprehension Syntax", "confidence": 0.9}]`)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(query)
	b.WriteString("\n")
	return b.String()
}

// ParsePredictions decodes the JSON array between the first '[' and the last ']' of reply.
func ParsePredictions(reply string) ([]Prediction, error) {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in label reply")
	}
	var preds []Prediction
	if err := json.Unmarshal([]byte(reply[start:end+1]), &preds); err != nil {
		return nil, fmt.Errorf("failed to parse label reply: %w", err)
	}
	return preds, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
