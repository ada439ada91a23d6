// Package classifier scores OCR text against a set of document types, picks
// the best match and validates the document's structure for that type.
package classifier

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
)

// Classifier is implemented by every document type the registry can select.
type Classifier interface {
	// DocumentType is the stable name reported as file_class.
	DocumentType() string
	// CalculateScore ranks how likely text is of this type. Unbounded, relative only.
	CalculateScore(text string) float64
	// ValidateDocument extracts fields and runs the structural checks.
	ValidateDocument(text string, blocks []TextBlock) DocumentValidation
	// CheckSpecificFeatures runs only the structural checks.
	CheckSpecificFeatures(blocks []TextBlock) FeatureReport
}

// FieldRule is a named field and its alternative patterns, tried in order.
type FieldRule struct {
	Name     string
	Patterns []*regexp.Regexp
}

// Definition is the fixed vocabulary of one document type.
type Definition struct {
	TypeIndicators   []string
	RequiredFields   []FieldRule
	SpecificPatterns []*regexp.Regexp
}

// patterns compiles case-insensitive expressions. Invalid input panics at setup.
func patterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile("(?i)" + e)
	}
	return out
}

func field(name string, exprs ...string) FieldRule {
	return FieldRule{Name: name, Patterns: patterns(exprs...)}
}

// Score adds 1.0 per indicator phrase and 0.5 per matching field or specific pattern.
func (d Definition) Score(text string) float64 {
	upper := strings.ToUpper(text)
	var score float64
	for _, ind := range d.TypeIndicators {
		if strings.Contains(upper, strings.ToUpper(ind)) {
			score += 1.0
		}
	}
	for _, f := range d.RequiredFields {
		for _, p := range f.Patterns {
			if p.MatchString(text) {
				score += 0.5
			}
		}
	}
	for _, p := range d.SpecificPatterns {
		if p.MatchString(text) {
			score += 0.5
		}
	}
	return score
}

// FieldNames returns the required field names in definition order.
func (d Definition) FieldNames() []string {
	names := make([]string, len(d.RequiredFields))
	for i, f := range d.RequiredFields {
		names[i] = f.Name
	}
	return names
}

// Find returns the first match of the first matching pattern. The value is
// capture group 1 when the pattern has one that took part in the match.
func (f FieldRule) Find(text string) (string, bool) {
	for _, p := range f.Patterns {
		m := p.FindStringSubmatchIndex(text)
		if m == nil {
			continue
		}
		start, end := m[0], m[1]
		if p.NumSubexp() > 0 && m[2] >= 0 {
			start, end = m[2], m[3]
		}
		return strings.TrimSpace(text[start:end]), true
	}
	return "", false
}

// ExtractFields splits the required fields into detected values and missing names.
func (d Definition) ExtractFields(text string) (map[string]string, []string) {
	detected := make(map[string]string, len(d.RequiredFields))
	missing := []string{}
	for _, f := range d.RequiredFields {
		if v, ok := f.Find(text); ok {
			detected[f.Name] = v
			continue
		}
		missing = append(missing, f.Name)
	}
	return detected, missing
}

// checkFunc is a structural heuristic over the text blocks.
type checkFunc func(blocks []TextBlock) (float64, error)

// base carries what all three document types share.
type base struct {
	docType string
	def     Definition
	logger  *slog.Logger
}

func newBase(docType string, def Definition, logger *slog.Logger) base {
	if logger == nil {
		logger = slog.Default()
	}
	return base{docType: docType, def: def, logger: logger.With("document_type", docType)}
}

func (b *base) DocumentType() string { return b.docType }

func (b *base) CalculateScore(text string) float64 { return b.def.Score(text) }

// Definition exposes the vocabulary, mostly for diagnostics.
func (b *base) Definition() Definition { return b.def }

// runCheck contains a failing or panicking heuristic as a zero score.
func (b *base) runCheck(name string, fn checkFunc, blocks []TextBlock) (res CheckResult) {
	res.Name = name
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("structural check panicked", "check", name, "panic", r)
			res.Score = 0
			res.Diagnostic = fmt.Sprintf("panic: %v", r)
		}
	}()
	score, err := fn(blocks)
	if err != nil {
		b.logger.Error("structural check failed", "check", name, "error", err)
		res.Diagnostic = err.Error()
		return res
	}
	if math.IsNaN(score) {
		b.logger.Error("structural check returned NaN", "check", name)
		res.Diagnostic = "score is NaN"
		return res
	}
	res.Score = clamp01(score)
	return res
}

// assemble computes base confidence, applies the type-specific boost and
// packages the result. Validity requires confidence > 0.8 and a valid report.
func (b *base) assemble(text string, blocks []TextBlock, report FeatureReport, boost func(float64) float64) DocumentValidation {
	detected, missing := b.def.ExtractFields(text)
	total := len(b.def.RequiredFields)
	confidence := 0.0
	if total > 0 {
		confidence = float64(total-len(missing)) / float64(total)
	}
	confidence = math.Min(boost(confidence), 1.0)

	return DocumentValidation{
		IsValid:        confidence > 0.8 && report.IsValid,
		Confidence:     confidence,
		DetectedFields: detected,
		MissingFields:  missing,
		Metadata: map[string]any{
			"extra_validation":  report.Metadata(),
			"text_blocks_count": len(blocks),
		},
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// hasBadGeometry reports the first block whose corners are not finite numbers.
func hasBadGeometry(blocks []TextBlock) error {
	for i, b := range blocks {
		for _, p := range b.Box {
			if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
				return fmt.Errorf("block %d: non-finite coordinate", i)
			}
		}
	}
	return nil
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
