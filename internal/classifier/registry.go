package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/doc-classifier/constants"
)

// Score is the ranking value of one registered classifier.
type Score struct {
	DocumentType string  `json:"document_type"`
	Value        float64 `json:"score"`
}

// Registry holds classifiers in registration order. Register is for setup
// only; Classify and Scores are safe for concurrent use afterwards.
type Registry struct {
	classifiers []Classifier
	index       map[string]int
	parallel    bool
	logger      *slog.Logger
}

type Option func(*Registry)

// WithParallelScoring scores classifiers concurrently. Selection is unchanged.
func WithParallelScoring() Option {
	return func(r *Registry) { r.parallel = true }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{index: map[string]int{}, logger: slog.Default()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// NewDefaultRegistry registers the driver's license, bank statement and
// invoice classifiers, in that order.
func NewDefaultRegistry(opts ...Option) *Registry {
	r := NewRegistry(opts...)
	r.Register(NewDriversLicense(r.logger))
	r.Register(NewBankStatement(r.logger))
	r.Register(NewInvoice(r.logger))
	return r
}

// Register adds c. A classifier with the same type replaces the earlier one
// in place, keeping its position. A nil classifier or empty type panics.
func (r *Registry) Register(c Classifier) {
	if c == nil {
		panic("classifier: Register called with nil classifier")
	}
	t := c.DocumentType()
	if t == "" {
		panic("classifier: Register called with empty document type")
	}
	if i, ok := r.index[t]; ok {
		r.classifiers[i] = c
		r.logger.Debug("classifier replaced", "document_type", t, "position", i)
		return
	}
	r.index[t] = len(r.classifiers)
	r.classifiers = append(r.classifiers, c)
	r.logger.Debug("classifier registered", "document_type", t, "position", r.index[t])
}

// Types lists the registered document types in registration order.
func (r *Registry) Types() []string {
	out := make([]string, len(r.classifiers))
	for i, c := range r.classifiers {
		out[i] = c.DocumentType()
	}
	return out
}

// Scores ranks text against every classifier, in registration order.
// A classifier that panics while scoring contributes 0.
func (r *Registry) Scores(ctx context.Context, text string) ([]Score, error) {
	scores := make([]Score, len(r.classifiers))
	for i, c := range r.classifiers {
		scores[i].DocumentType = c.DocumentType()
	}

	if r.parallel && len(r.classifiers) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		for i, c := range r.classifiers {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				scores[i].Value = r.safeScore(c, text)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return scores, nil
	}

	for i, c := range r.classifiers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scores[i].Value = r.safeScore(c, text)
	}
	return scores, nil
}

func (r *Registry) safeScore(c Classifier, text string) (score float64) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("classifier scoring panicked", "document_type", c.DocumentType(), "panic", rec)
			score = 0
		}
	}()
	return c.CalculateScore(text)
}

// Classify picks the highest scoring classifier, ties going to the earliest
// registered, and validates the document with it. It never returns an error:
// failures are reported through the result's Error field.
func (r *Registry) Classify(ctx context.Context, text string, blocks []TextBlock) (res ClassificationResult) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("classification panicked", "panic", rec)
			res = ErrorResult(fmt.Errorf("classification panicked: %v", rec))
		}
	}()

	if len(r.classifiers) == 0 {
		r.logger.Warn("no classifiers registered")
		return UnknownResult()
	}

	scores, err := r.Scores(ctx, text)
	if err != nil {
		r.logger.Error("classification aborted", "error", err)
		return ErrorResult(err)
	}

	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i].Value > scores[best].Value {
			best = i
		}
	}
	if scores[best].Value == 0 {
		r.logger.Info("document not recognised", "blocks", len(blocks), "elapsed_ms", time.Since(start).Milliseconds())
		return UnknownResult()
	}
	if err := ctx.Err(); err != nil {
		return ErrorResult(err)
	}

	c := r.classifiers[best]
	v := c.ValidateDocument(text, blocks)
	r.logger.Info("document classified",
		"document_type", c.DocumentType(),
		"score", scores[best].Value,
		"confidence", v.Confidence,
		"is_valid", v.IsValid,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return ClassificationResult{
		FileClass:      c.DocumentType(),
		Confidence:     v.Confidence,
		IsValid:        v.IsValid,
		DetectedFields: v.DetectedFields,
		MissingFields:  v.MissingFields,
		Metadata:       v.Metadata,
	}
}

// ErrUnknownDocument is the reason recorded on unknown results.
var ErrUnknownDocument = errors.New("unknown document type")

// UnknownDocumentMessage is the error text of an unknown result.
const UnknownDocumentMessage = "Unknown document type"

// UnknownResult is returned when nothing scored above zero. Its reason is in
// both error and metadata.reason; ErrorResult clears the reason.
func UnknownResult() ClassificationResult {
	return ClassificationResult{
		FileClass:      string(constants.Unknown),
		DetectedFields: map[string]string{},
		MissingFields:  []string{},
		Metadata:       map[string]any{"reason": ErrUnknownDocument.Error()},
		Error:          UnknownDocumentMessage,
	}
}

// ErrorResult reports a whole-document failure in the result shape.
func ErrorResult(err error) ClassificationResult {
	res := UnknownResult()
	res.Metadata = map[string]any{}
	res.Error = ""
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// Explanation is everything behind one classification, for diagnostics.
type Explanation struct {
	Scores   []Score                   `json:"scores"`
	Features map[string]map[string]any `json:"features"`
	Result   ClassificationResult      `json:"result"`
}

// Explain classifies text and also reports every classifier's score and
// structural checks, not only the winner's.
func (r *Registry) Explain(ctx context.Context, text string, blocks []TextBlock) (Explanation, error) {
	scores, err := r.Scores(ctx, text)
	if err != nil {
		return Explanation{}, err
	}
	features := make(map[string]map[string]any, len(r.classifiers))
	for _, c := range r.classifiers {
		features[c.DocumentType()] = r.safeFeatures(c, blocks).Metadata()
	}
	return Explanation{
		Scores:   scores,
		Features: features,
		Result:   r.Classify(ctx, text, blocks),
	}, nil
}

func (r *Registry) safeFeatures(c Classifier, blocks []TextBlock) (report FeatureReport) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("classifier feature check panicked", "document_type", c.DocumentType(), "panic", rec)
			report = FeatureReport{Checks: []CheckResult{{Name: "panic", Diagnostic: fmt.Sprint(rec)}}}
		}
	}()
	return c.CheckSpecificFeatures(blocks)
}
