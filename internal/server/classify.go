package server

import (
	"context"
	"fmt"

	"github.com/joseph-ayodele/doc-classifier/internal/classifier"
	"github.com/joseph-ayodele/doc-classifier/internal/common"
	"github.com/joseph-ayodele/doc-classifier/internal/extract"
	"github.com/joseph-ayodele/doc-classifier/internal/schema"
)

func classifyRaw(ctx context.Context, cl extract.DocumentClassifier, data []byte) (classifier.ClassificationResult, error) {
	req, err := schema.DecodeClassifyRequest(data)
	if err != nil {
		return classifier.ClassificationResult{}, err
	}
	res := cl.Classify(ctx, req.Text, req.TextBlocks)
	if err := schema.ValidateResult(res); err != nil {
		// a malformed result is our fault, not the caller's
		return classifier.ClassificationResult{}, fmt.Errorf("%w: classification result: %v", common.ErrInternal, err)
	}
	return res, nil
}
