package classifier

import (
	"encoding/json"
	"fmt"
)

// Point is a pixel coordinate. It serialises as a two element array [x, y].
type Point struct {
	X float64
	Y float64
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

func (p *Point) UnmarshalJSON(b []byte) error {
	var xy []float64
	if err := json.Unmarshal(b, &xy); err != nil {
		return fmt.Errorf("point: %w", err)
	}
	if len(xy) != 2 {
		return fmt.Errorf("point: want 2 coordinates, got %d", len(xy))
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

// TextBlock is one OCR-recognised fragment.
// Box corners are ordered top-left, top-right, bottom-right, bottom-left.
type TextBlock struct {
	Box        [4]Point `json:"box"`
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
}

// TopLeft and BottomRight are the two corners the structural checks rely on.
func (b TextBlock) TopLeft() Point     { return b.Box[0] }
func (b TextBlock) BottomRight() Point { return b.Box[2] }

// Center returns the midpoint of the top-left/bottom-right diagonal.
func (b TextBlock) Center() Point {
	return Point{X: (b.Box[0].X + b.Box[2].X) / 2, Y: (b.Box[0].Y + b.Box[2].Y) / 2}
}

func (b TextBlock) Width() float64  { return b.Box[2].X - b.Box[0].X }
func (b TextBlock) Height() float64 { return b.Box[2].Y - b.Box[0].Y }

// Rect builds an axis aligned block from a left/top origin and a size.
func Rect(text string, x, y, w, h, conf float64) TextBlock {
	return TextBlock{
		Box: [4]Point{
			{X: x, Y: y},
			{X: x + w, Y: y},
			{X: x + w, Y: y + h},
			{X: x, Y: y + h},
		},
		Text:       text,
		Confidence: conf,
	}
}

// DocumentValidation is what a classifier reports about a document it was asked to validate.
type DocumentValidation struct {
	IsValid        bool
	Confidence     float64
	DetectedFields map[string]string
	MissingFields  []string
	Metadata       map[string]any
}

// ClassificationResult is the engine output.
type ClassificationResult struct {
	FileClass      string            `json:"file_class"`
	Confidence     float64           `json:"confidence"`
	IsValid        bool              `json:"is_valid"`
	DetectedFields map[string]string `json:"detected_fields"`
	MissingFields  []string          `json:"missing_fields"`
	Metadata       map[string]any    `json:"metadata"`
	Error          string            `json:"error,omitempty"`
}

// CheckResult is the outcome of one structural sub-check.
// A failed check has Score 0 and a non-empty Diagnostic.
type CheckResult struct {
	Name       string
	Score      float64
	Diagnostic string
}

// FeatureReport collects the sub-checks of one classifier.
type FeatureReport struct {
	IsValid bool
	Checks  []CheckResult
}

// Score returns the score of the named check, 0 when absent.
func (r FeatureReport) Score(name string) float64 {
	for _, c := range r.Checks {
		if c.Name == name {
			return c.Score
		}
	}
	return 0
}

// Metadata renders the report as the "extra_validation" map.
func (r FeatureReport) Metadata() map[string]any {
	details := map[string]any{}
	out := map[string]any{"is_valid": r.IsValid}
	for _, c := range r.Checks {
		out[c.Name+"_score"] = c.Score
		if c.Diagnostic != "" {
			details[c.Name] = c.Diagnostic
		}
	}
	out["details"] = details
	return out
}
