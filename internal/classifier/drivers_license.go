package classifier

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/doc-classifier/constants"
)

const (
	checkPhotoArea        = "photo_area"
	checkSecurityFeatures = "security_features"
	checkLayout           = "layout"

	photoGridStep  = 50
	photoGridLimit = 1000
)

var securityKeywords = []string{
	"HOLOGRAM",
	"VOID IF COPIED",
	"SECURITY FEATURE",
	"NOT VALID WITHOUT",
	"CERTIFIED",
	"OFFICIAL",
}

// DriversLicense recognises driver's licenses and state identification cards.
type DriversLicense struct {
	base
}

func NewDriversLicense(logger *slog.Logger) *DriversLicense {
	def := Definition{
		TypeIndicators: []string{
			"DRIVER LICENSE",
			"DRIVER'S LICENSE",
			"OPERATOR LICENSE",
			"COMMERCIAL DRIVER LICENSE",
			"IDENTIFICATION CARD",
			"DEPARTMENT OF MOTOR VEHICLES",
			"DMV",
		},
		RequiredFields: []FieldRule{
			field("license_number",
				`DL\s*#?\s*[A-Z0-9]+`,
				`DRIVER'?S?\s*LIC(?:ENSE|)\s*#?\s*[A-Z0-9]+`,
			),
			field("name",
				`NAME[\s:]+([A-Z\s,]+)`,
				`([A-Z]+,\s+[A-Z\s]+)`,
			),
			field("dob",
				`DOB[\s:]+\d{2}[-/]\d{2}[-/]\d{4}`,
				`DATE\s+OF\s+BIRTH[\s:]+\d{2}[-/]\d{2}[-/]\d{4}`,
			),
			field("expiration",
				`EXP(?:IRES?)?[\s:]+\d{2}[-/]\d{2}[-/]\d{4}`,
				`EXPIRATION[\s:]+\d{2}[-/]\d{2}[-/]\d{4}`,
			),
			field("address",
				`ADD?RESS[\s:]+.*?(?:\r|\n|$)`,
				`\d+\s+[A-Z0-9\s,]+(?:STREET|ST|AVENUE|AVE|ROAD|RD|DRIVE|DR)`,
			),
		},
		SpecificPatterns: patterns(
			`CLASS\s*[A-Z]`,
			`REST\w*:\s*[A-Z]`,
			`ENDORSEMENTS?`,
			`SEX\s*[MF]`,
			`HGT\s*\d`,
			`EYES?\s*[A-Z]{3}`,
			`HAIR\s*[A-Z]{3}`,
		),
	}
	return &DriversLicense{base: newBase(string(constants.DriversLicense), def, logger)}
}

func (c *DriversLicense) ValidateDocument(text string, blocks []TextBlock) DocumentValidation {
	report := c.CheckSpecificFeatures(blocks)
	return c.assemble(text, blocks, report, func(conf float64) float64 {
		if report.Score(checkPhotoArea) > 0 {
			conf *= 1.2
		}
		if report.Score(checkSecurityFeatures) > 0 {
			conf *= 1.1
		}
		return conf
	})
}

func (c *DriversLicense) CheckSpecificFeatures(blocks []TextBlock) FeatureReport {
	photo := c.runCheck(checkPhotoArea, photoAreaScore, blocks)
	security := c.runCheck(checkSecurityFeatures, securityFeaturesScore, blocks)
	layout := c.runCheck(checkLayout, layoutScore, blocks)
	return FeatureReport{
		IsValid: photo.Score > 0 && security.Score > 0.5 && layout.Score > 0.7,
		Checks:  []CheckResult{photo, security, layout},
	}
}

// photoAreaScore probes a 50px grid over the first 1000x1000 pixels and
// reports 1 when at least one probe lies strictly outside every block.
func photoAreaScore(blocks []TextBlock) (float64, error) {
	if err := hasBadGeometry(blocks); err != nil {
		return 0, err
	}
	for x := 0; x < photoGridLimit; x += photoGridStep {
		for y := 0; y < photoGridLimit; y += photoGridStep {
			if !covered(blocks, float64(x), float64(y)) {
				return 1, nil
			}
		}
	}
	return 0, nil
}

func covered(blocks []TextBlock, x, y float64) bool {
	for _, b := range blocks {
		tl, br := b.TopLeft(), b.BottomRight()
		if tl.X < x && x < br.X && tl.Y < y && y < br.Y {
			return true
		}
	}
	return false
}

func securityFeaturesScore(blocks []TextBlock) (float64, error) {
	texts := make([]string, len(blocks))
	for i, b := range blocks {
		texts[i] = b.Text
	}
	content := strings.ToUpper(strings.Join(texts, " "))
	found := 0
	for _, kw := range securityKeywords {
		if strings.Contains(content, kw) {
			found++
		}
	}
	return float64(found) / float64(len(securityKeywords)), nil
}

// layoutScore checks the usual card zones on block centres expressed as a
// fraction of the page extent. Input already in 0..1 is used as is.
func layoutScore(blocks []TextBlock) (float64, error) {
	if len(blocks) == 0 {
		return 0, nil
	}
	if err := hasBadGeometry(blocks); err != nil {
		return 0, err
	}
	width, height := pageExtent(blocks)
	minPhotoWidth := 100.0
	if width <= 1 && height <= 1 {
		width, height, minPhotoWidth = 1, 1, 0.1
	}
	if width <= 0 || height <= 0 {
		return 0, errors.New("page extent is empty")
	}

	var photo, name, address, number bool
	for _, b := range blocks {
		c := b.Center()
		x, y := c.X/width, c.Y/height
		upper := strings.ToUpper(b.Text)

		if 0.1 < x && x < 0.3 && 0.1 < y && y < 0.4 && b.Width() > minPhotoWidth {
			photo = true
		}
		if containsAny(upper, "NAME", "LAST", "FIRST") && 0.4 < x && x < 0.9 && 0.1 < y && y < 0.3 {
			name = true
		}
		if strings.Contains(upper, "ADDRESS") && 0.4 < x && x < 0.9 && 0.3 < y && y < 0.6 {
			address = true
		}
		if containsAny(upper, "LICENSE", "DL") && 0.1 < x && x < 0.9 && 0.6 < y && y < 0.9 {
			number = true
		}
	}

	score := 0
	for _, ok := range []bool{photo, name, address, number} {
		if ok {
			score++
		}
	}
	return float64(score) / 4, nil
}

// pageExtent is the largest x and y over every corner of every block.
func pageExtent(blocks []TextBlock) (float64, float64) {
	var w, h float64
	for _, b := range blocks {
		for _, p := range b.Box {
			w = max(w, p.X)
			h = max(h, p.Y)
		}
	}
	return w, h
}
