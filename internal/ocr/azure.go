package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"

	"github.com/joseph-ayodele/doc-classifier/internal/classifier"
)

// azureLineConfidence is assigned to every line; the OCR endpoint reports none.
const azureLineConfidence = 1.0

// AzureEngine calls the Azure Computer Vision printed text OCR endpoint.
type AzureEngine struct {
	client *computervision.BaseClient
	logger *slog.Logger
}

func NewAzureEngine(endpoint, apiKey string, logger *slog.Logger) *AzureEngine {
	if logger == nil {
		logger = slog.Default()
	}
	client := computervision.New(endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(apiKey)
	return &AzureEngine{client: &client, logger: logger}
}

func (a *AzureEngine) Name() string { return "azure" }

func (a *AzureEngine) Recognize(ctx context.Context, imagePath string) ([]classifier.TextBlock, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	// the SDK closes the body once the request is sent
	result, err := a.client.RecognizePrintedTextInStream(ctx, true, f, computervision.OcrLanguages(computervision.En))
	if err != nil {
		return nil, fmt.Errorf("recognize printed text: %w", err)
	}
	blocks := blocksFromOCRResult(result)
	a.logger.Debug("azure ocr complete", "path", imagePath, "lines", len(blocks))
	return blocks, nil
}

// blocksFromOCRResult flattens regions and lines into line blocks. Lines
// without a parsable "x,y,w,h" bounding box are skipped.
func blocksFromOCRResult(result computervision.OcrResult) []classifier.TextBlock {
	var blocks []classifier.TextBlock
	if result.Regions == nil {
		return blocks
	}
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.BoundingBox == nil || line.Words == nil {
				continue
			}
			box, ok := parseBoundingBox(*line.BoundingBox)
			if !ok {
				continue
			}
			words := make([]string, 0, len(*line.Words))
			for _, word := range *line.Words {
				if word.Text != nil {
					words = append(words, *word.Text)
				}
			}
			blocks = append(blocks, classifier.Rect(strings.Join(words, " "), box[0], box[1], box[2], box[3], azureLineConfidence))
		}
	}
	return blocks
}

func parseBoundingBox(s string) ([4]float64, bool) {
	var out [4]float64
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return out, false
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return out, false
		}
		out[i] = v
	}
	return out, true
}
