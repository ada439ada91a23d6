package classifier_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/doc-classifier/internal/classifier"
)

type fakeClassifier struct {
	name          string
	score         float64
	panicScore    bool
	panicValidate bool
}

func (f *fakeClassifier) DocumentType() string { return f.name }

func (f *fakeClassifier) CalculateScore(string) float64 {
	if f.panicScore {
		panic("score exploded")
	}
	return f.score
}

func (f *fakeClassifier) ValidateDocument(string, []classifier.TextBlock) classifier.DocumentValidation {
	if f.panicValidate {
		panic("validate exploded")
	}
	return classifier.DocumentValidation{
		Confidence:     0.5,
		DetectedFields: map[string]string{"who": f.name},
		MissingFields:  []string{},
		Metadata:       map[string]any{},
	}
}

func (f *fakeClassifier) CheckSpecificFeatures([]classifier.TextBlock) classifier.FeatureReport {
	return classifier.FeatureReport{}
}

func TestRegistryClassifyScenarios(t *testing.T) {
	reg := classifier.NewDefaultRegistry()

	tests := []struct {
		name      string
		text      string
		blocks    []classifier.TextBlock
		wantClass string
	}{
		{"invoice", joinText(invoiceBlocks(), "\n"), invoiceBlocks(), "invoice"},
		{"bank statement", joinText(bankStatementBlocks(), " "), bankStatementBlocks(), "bank_statement"},
		{"drivers license", joinText(licenseBlocks(), "\n"), licenseBlocks(), "drivers_license"},
		{"nothing recognisable", "the quick brown fox jumps over the lazy dog", nil, "unknown"},
		{"empty", "", nil, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := reg.Classify(context.Background(), tt.text, tt.blocks)
			assert.Equal(t, tt.wantClass, res.FileClass)
			if tt.wantClass == "unknown" {
				assert.Equal(t, classifier.UnknownDocumentMessage, res.Error)
				assert.Equal(t, "unknown document type", res.Metadata["reason"])
			} else {
				assert.Empty(t, res.Error)
			}
			assert.GreaterOrEqual(t, res.Confidence, 0.0)
			assert.LessOrEqual(t, res.Confidence, 1.0)
			if res.IsValid {
				assert.Greater(t, res.Confidence, 0.8)
			}
			if tt.wantClass == "unknown" {
				assert.Zero(t, res.Confidence)
				assert.False(t, res.IsValid)
				assert.Empty(t, res.DetectedFields)
				assert.Empty(t, res.MissingFields)
			}
		})
	}
}

func TestRegistryIdempotent(t *testing.T) {
	reg := classifier.NewDefaultRegistry()
	blocks := invoiceBlocks()
	text := joinText(blocks, "\n")

	first, err := json.Marshal(reg.Classify(context.Background(), text, blocks))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := json.Marshal(reg.Classify(context.Background(), text, blocks))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestRegistryTieBreak(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		var opts []classifier.Option
		if parallel {
			opts = append(opts, classifier.WithParallelScoring())
		}
		reg := classifier.NewRegistry(opts...)
		reg.Register(&fakeClassifier{name: "second_best", score: 1})
		reg.Register(&fakeClassifier{name: "first", score: 2})
		reg.Register(&fakeClassifier{name: "later", score: 2})

		for i := 0; i < 20; i++ {
			res := reg.Classify(context.Background(), "x", nil)
			require.Equal(t, "first", res.FileClass, "parallel=%v", parallel)
		}
	}
}

func TestRegistryRegisterReplacesInPlace(t *testing.T) {
	reg := classifier.NewRegistry()
	reg.Register(&fakeClassifier{name: "a", score: 1})
	reg.Register(&fakeClassifier{name: "b", score: 1})
	reg.Register(&fakeClassifier{name: "a", score: 0})

	assert.Equal(t, []string{"a", "b"}, reg.Types())

	// the replacement scores 0, so b is now the best
	res := reg.Classify(context.Background(), "x", nil)
	assert.Equal(t, "b", res.FileClass)
}

func TestRegistryRegisterPanicsOnBadInput(t *testing.T) {
	reg := classifier.NewRegistry()
	assert.Panics(t, func() { reg.Register(nil) })
	assert.Panics(t, func() { reg.Register(&fakeClassifier{name: ""}) })
}

func TestRegistryEmpty(t *testing.T) {
	res := classifier.NewRegistry().Classify(context.Background(), "INVOICE", nil)
	assert.Equal(t, "unknown", res.FileClass)
	assert.Equal(t, "Unknown document type", res.Error)
}

func TestRegistryContainsFailures(t *testing.T) {
	t.Run("scoring panic counts as zero", func(t *testing.T) {
		reg := classifier.NewRegistry()
		reg.Register(&fakeClassifier{name: "broken", panicScore: true})
		reg.Register(&fakeClassifier{name: "ok", score: 0.5})

		res := reg.Classify(context.Background(), "x", nil)
		assert.Equal(t, "ok", res.FileClass)
		assert.Empty(t, res.Error)
	})

	t.Run("validation panic becomes an error result", func(t *testing.T) {
		reg := classifier.NewRegistry()
		reg.Register(&fakeClassifier{name: "broken", score: 1, panicValidate: true})

		res := reg.Classify(context.Background(), "x", nil)
		assert.Equal(t, "unknown", res.FileClass)
		assert.Zero(t, res.Confidence)
		assert.False(t, res.IsValid)
		assert.Contains(t, res.Error, "validate exploded")
	})

	t.Run("cancelled context becomes an error result", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res := classifier.NewDefaultRegistry().Classify(ctx, "INVOICE", nil)
		assert.Equal(t, "unknown", res.FileClass)
		assert.NotEmpty(t, res.Error)
	})
}

func TestRegistryScores(t *testing.T) {
	reg := classifier.NewDefaultRegistry(classifier.WithParallelScoring())
	scores, err := reg.Scores(context.Background(), "INVOICE")
	require.NoError(t, err)

	require.Len(t, scores, 3)
	assert.Equal(t, []string{"drivers_license", "bank_statement", "invoice"}, reg.Types())
	assert.Equal(t, "invoice", scores[2].DocumentType)
	assert.InDelta(t, 1.0, scores[2].Value, 1e-9)
}

func TestErrorResult(t *testing.T) {
	res := classifier.ErrorResult(assert.AnError)
	b, err := json.Marshal(res)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "unknown", m["file_class"])
	assert.Equal(t, assert.AnError.Error(), m["error"])
	assert.NotContains(t, res.Metadata, "reason")
	assert.Contains(t, m, "detected_fields")
	assert.Contains(t, m, "missing_fields")
}

func TestRegistryExplain(t *testing.T) {
	reg := classifier.NewDefaultRegistry()
	blocks := invoiceBlocks()
	text := joinText(blocks, "\n")

	exp, err := reg.Explain(context.Background(), text, blocks)
	require.NoError(t, err)

	assert.Len(t, exp.Scores, 3)
	assert.Equal(t, "invoice", exp.Result.FileClass)
	require.Contains(t, exp.Features, "invoice")
	assert.InDelta(t, 1.0, exp.Features["invoice"]["structure_score"], 1e-9)
	assert.Contains(t, exp.Features, "bank_statement")
	assert.Contains(t, exp.Features, "drivers_license")

	_, err = json.Marshal(exp)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = reg.Explain(ctx, text, blocks)
	assert.Error(t, err)
}
