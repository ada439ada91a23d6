package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/joseph-ayodele/doc-classifier/constants"
)

// extractPDF rasterizes the first page with pdftoppm and recognizes it.
// Later pages are not classified.
func (e *Extractor) extractPDF(ctx context.Context, path string) (ExtractionResult, error) {
	img, cleanup, warns, err := e.renderFirstPage(ctx, path)
	if err != nil {
		return ExtractionResult{SourceType: constants.PDF, Warnings: warns}, err
	}
	defer cleanup()

	if e.cfg.Enhance {
		enhanced, done, eerr := enhanceImage(img)
		if eerr != nil {
			warns = append(warns, eerr.Error())
			e.logger.Warn("image enhancement failed, using original", "path", img, "error", eerr)
		} else {
			defer done()
			img = enhanced
		}
	}
	return e.recognize(ctx, img, constants.PDF, "pdf-ocr", warns)
}

func (e *Extractor) renderFirstPage(ctx context.Context, path string) (string, func(), []string, error) {
	tmpDir, err := os.MkdirTemp("", "dc-pp-*")
	if err != nil {
		return "", nil, nil, err
	}
	cleanup := func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("failed to remove temp dir", "dir", tmpDir, "error", err)
		}
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -f 1 -l 1 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, e.logger,
		"-r", strconv.Itoa(e.cfg.DPI), "-f", "1", "-l", "1", "-png", path, prefix)
	if err != nil {
		cleanup()
		return "", nil, []string{string(errb)}, fmt.Errorf("pdftoppm: %w", err)
	}

	// pdftoppm names pages prefix-1.png, or prefix-01.png for longer documents
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		cleanup()
		return "", nil, []string{"pdftoppm produced no images"}, fmt.Errorf("no pages rendered")
	}
	return matches[0], cleanup, nil, nil
}
