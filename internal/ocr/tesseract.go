package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/doc-classifier/internal/classifier"
)

// TesseractEngine shells out to the tesseract CLI in TSV mode.
type TesseractEngine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewTesseractEngine(cfg Config, runner Runner, logger *slog.Logger) *TesseractEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = execRunner{}
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	return &TesseractEngine{cfg: cfg, runner: runner, logger: logger}
}

func (t *TesseractEngine) Name() string { return "tesseract" }

// Recognize runs `tesseract <img> stdout -l <lang> tsv` and returns one block per text line.
func (t *TesseractEngine) Recognize(ctx context.Context, imagePath string) ([]classifier.TextBlock, error) {
	args := []string{imagePath, "stdout", "-l", t.cfg.TesseractLang}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(t.cfg.OEM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	args = append(args, "tsv")

	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, t.logger, args...)
	if err != nil {
		return nil, fmt.Errorf("tesseract TSV: %w: %s", err, truncate(string(errb), 512))
	}
	return parseTSVLines(string(out)), nil
}

type lineKey struct{ page, block, par, line int }

type lineAcc struct {
	words                    []string
	left, top, right, bottom float64
	confSum                  float64
	confN                    int
}

// parseTSVLines groups tesseract word rows into line blocks in first-seen order.
// Line confidence is the mean word confidence scaled to 0..1.
func parseTSVLines(tsv string) []classifier.TextBlock {
	var order []lineKey
	acc := make(map[lineKey]*lineAcc)

	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || ln == "" {
			continue // header
		}
		cols := strings.Split(strings.TrimRight(ln, "\r"), "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue // only level 5 (word) rows carry text
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}
		nums := make([]float64, 0, 7)
		ok := true
		for _, c := range cols[1:5] {
			v, err := strconv.Atoi(c)
			if err != nil {
				ok = false
				break
			}
			nums = append(nums, float64(v))
		}
		for _, c := range cols[6:10] {
			v, err := strconv.ParseFloat(c, 64)
			if err != nil {
				ok = false
				break
			}
			nums = append(nums, v)
		}
		if !ok {
			continue
		}
		key := lineKey{int(nums[0]), int(nums[1]), int(nums[2]), int(nums[3])}
		left, top, width, height := nums[4], nums[5], nums[6], nums[7]

		a, seen := acc[key]
		if !seen {
			a = &lineAcc{left: left, top: top, right: left + width, bottom: top + height}
			acc[key] = a
			order = append(order, key)
		}
		a.words = append(a.words, text)
		a.left = math.Min(a.left, left)
		a.top = math.Min(a.top, top)
		a.right = math.Max(a.right, left+width)
		a.bottom = math.Max(a.bottom, top+height)
		if conf, err := strconv.ParseFloat(cols[10], 64); err == nil && conf >= 0 {
			a.confSum += conf
			a.confN++
		}
	}

	blocks := make([]classifier.TextBlock, 0, len(order))
	for _, k := range order {
		a := acc[k]
		var conf float64
		if a.confN > 0 {
			conf = a.confSum / float64(a.confN) / 100
		}
		blocks = append(blocks, classifier.Rect(strings.Join(a.words, " "), a.left, a.top, a.right-a.left, a.bottom-a.top, conf))
	}
	return blocks
}
