package classifier

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/doc-classifier/constants"
)

const (
	checkStructure   = "structure"
	checkCalculation = "calculation"
	checkLineItems   = "line_items"

	// totalsTolerance absorbs rounding when comparing subtotal + tax to total.
	totalsTolerance = 0.01
)

var (
	amountToken = regexp.MustCompile(`\$?([\d,]+\.?\d*)`)
	anyAmount   = regexp.MustCompile(`\$?\d+(?:,\d{3})*(?:\.\d{2})?`)
	lineItem    = regexp.MustCompile(`^\d+\s+[\w\s-]+\s+\$?\d+(?:,\d{3})*(?:\.\d{2})?\s+\$?\d+(?:,\d{3})*(?:\.\d{2})?`)
)

// invoiceSections are the regions a complete invoice is expected to show.
var invoiceSections = []struct {
	name  string
	words []string
}{
	{"header", []string{"INVOICE", "BILL", "DATE", "NO."}},
	{"billing", []string{"BILL TO", "SHIP TO", "ADDRESS"}},
	{"items", []string{"DESCRIPTION", "QUANTITY", "PRICE", "ITEM"}},
	{"totals", []string{"SUBTOTAL", "TAX", "TOTAL"}},
	{"payment", []string{"PAYMENT TERMS", "DUE DATE"}},
}

// Invoice recognises invoices and bills of sale.
type Invoice struct {
	base
}

func NewInvoice(logger *slog.Logger) *Invoice {
	def := Definition{
		TypeIndicators: []string{
			"INVOICE",
			"TAX INVOICE",
			"BILL OF SALE",
			"PURCHASE INVOICE",
			"BILLING STATEMENT",
			"PAYMENT DUE",
		},
		RequiredFields: []FieldRule{
			field("invoice_number",
				`INVOICE\s*(?:#|NUMBER|NO)[\s:]*\d+`,
				`INV\s*(?:#|NUMBER|NO)[\s:]*\d+`,
			),
			field("date",
				`(?:INVOICE\s+)?DATE[\s:]+\d{2}[-/]\d{2}[-/]\d{4}`,
				`DATED?[\s:]+\d{2}[-/]\d{2}[-/]\d{4}`,
			),
			field("amount",
				`TOTAL[\s:]+\$[\d,.]+`,
				`AMOUNT\s+DUE[\s:]+\$[\d,.]+`,
			),
			field("vendor",
				`FROM[\s:]+([A-Z\s]+)(?:\r|\n|$)`,
				`VENDOR[\s:]+([A-Z\s]+)(?:\r|\n|$)`,
			),
			field("items",
				`\d+\s+[A-Z0-9\s]+\$[\d,.]+`,
				`DESCRIPTION.*?(?:AMOUNT|PRICE|TOTAL)`,
			),
		},
		SpecificPatterns: patterns(
			`SUBTOTAL`,
			`SHIPPING\s+(?:COST|FEE)`,
			`TAX\s+RATE`,
			`PO\s*(?:NUMBER|#)`,
			`ITEM\s+DESCRIPTION`,
			`PAYMENT\s+TERMS`,
			`DUE\s+DATE`,
		),
	}
	return &Invoice{base: newBase(string(constants.Invoice), def, logger)}
}

func (c *Invoice) ValidateDocument(text string, blocks []TextBlock) DocumentValidation {
	report := c.CheckSpecificFeatures(blocks)
	return c.assemble(text, blocks, report, func(conf float64) float64 {
		if report.Score(checkStructure) > 0.8 {
			conf *= 1.2
		}
		if report.Score(checkCalculation) > 0.8 {
			conf *= 1.1
		}
		if report.Score(checkLineItems) > 0.8 {
			conf *= 1.1
		}
		return conf
	})
}

func (c *Invoice) CheckSpecificFeatures(blocks []TextBlock) FeatureReport {
	structure := c.runCheck(checkStructure, invoiceStructureScore, blocks)
	calc := c.runCheck(checkCalculation, calculationScore, blocks)
	items := c.runCheck(checkLineItems, lineItemsScore, blocks)
	return FeatureReport{
		IsValid: structure.Score > 0.7 && calc.Score > 0.7 && items.Score > 0.6,
		Checks:  []CheckResult{structure, calc, items},
	}
}

func invoiceStructureScore(blocks []TextBlock) (float64, error) {
	seen := make([]bool, len(invoiceSections))
	for _, b := range blocks {
		upper := strings.ToUpper(b.Text)
		for i, s := range invoiceSections {
			if !seen[i] && containsAny(upper, s.words...) {
				seen[i] = true
			}
		}
	}
	found := 0
	for _, ok := range seen {
		if ok {
			found++
		}
	}
	return float64(found) / float64(len(invoiceSections)), nil
}

// calculationScore checks that the first subtotal plus the first tax equals
// the first total. 0.5 means the numbers exist but disagree.
func calculationScore(blocks []TextBlock) (float64, error) {
	var subtotal, total, tax float64
	var haveSubtotal, haveTotal, haveTax bool

	for i, b := range blocks {
		amounts, err := parseAmounts(b.Text)
		if err != nil {
			return 0, fmt.Errorf("block %d: %w", i, err)
		}
		if len(amounts) == 0 {
			continue
		}
		upper := strings.ToUpper(b.Text)
		switch {
		case strings.Contains(upper, "SUBTOTAL"):
			if !haveSubtotal {
				subtotal, haveSubtotal = amounts[0], true
			}
		case strings.Contains(upper, "TOTAL") && !strings.Contains(upper, "SUB"):
			if !haveTotal {
				total, haveTotal = amounts[0], true
			}
		case strings.Contains(upper, "TAX"):
			if !haveTax {
				tax, haveTax = amounts[0], true
			}
		}
	}

	if !haveSubtotal || !haveTotal {
		return 0, nil
	}
	if math.Abs(subtotal+tax-total) <= totalsTolerance {
		return 1, nil
	}
	return 0.5, nil
}

// parseAmounts returns every amount in s in order. Separator-only tokens such
// as a lone comma are skipped.
func parseAmounts(s string) ([]float64, error) {
	var out []float64
	for _, m := range amountToken.FindAllStringSubmatch(s, -1) {
		raw := strings.ReplaceAll(m[1], ",", "")
		if strings.Trim(raw, ".") == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", m[1], err)
		}
		out = append(out, v)
	}
	return out, nil
}

// lineItemsScore is the share of amount-bearing blocks shaped like
// "quantity description unit-price amount". 0 when no block carries an amount.
func lineItemsScore(blocks []TextBlock) (float64, error) {
	potential, valid := 0, 0
	for _, b := range blocks {
		if !anyAmount.MatchString(b.Text) {
			continue
		}
		potential++
		if lineItem.MatchString(b.Text) {
			valid++
		}
	}
	if potential == 0 {
		return 0, nil
	}
	return float64(valid) / float64(potential), nil
}
