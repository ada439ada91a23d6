package classifier

import (
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/joseph-ayodele/doc-classifier/constants"
)

const (
	checkTableStructure    = "table_structure"
	checkTransactionFormat = "transaction_format"

	// columnTolerance is the max left-edge drift, in pixels, for two cells to share a column.
	columnTolerance = 20.0
)

var (
	transactionLine     = regexp.MustCompile(`^\d{1,2}[-/]\d{1,2}(?:[-/]\d{2,4})?\s+[\w\s]+\s+\$?\d+(?:,\d{3})*(?:\.\d{2})?`)
	transactionKeywords = []string{"DEPOSIT", "WITHDRAWAL", "DEBIT", "CREDIT", "TRANSACTION"}
)

// BankStatement recognises periodic account statements.
type BankStatement struct {
	base
}

func NewBankStatement(logger *slog.Logger) *BankStatement {
	def := Definition{
		TypeIndicators: []string{
			"BANK STATEMENT",
			"ACCOUNT STATEMENT",
			"MONTHLY STATEMENT",
			"ACCOUNT SUMMARY",
			"ACCOUNT ACTIVITY",
			"TRANSACTION HISTORY",
		},
		RequiredFields: []FieldRule{
			field("bank_name",
				`(BANK\s+OF\s+[A-Z]+|[A-Z]+\s+BANK|CHASE|WELLS\s+FARGO|CITIBANK)`,
				`([A-Z]+\s+)?BANK(?:ING)?\s+STATEMENT`,
			),
			field("account_number",
				`ACCOUNT\s*(?:#|NUMBER|NO)[\s:]*[X*\d]+`,
				`ACCT\s*(?:#|NUMBER|NO)[\s:]*[X*\d]+`,
			),
			field("statement_period",
				`STATEMENT\s+PERIOD[\s:]+.*?(?:\r|\n|$)`,
				`STATEMENT\s+DATE[\s:]+.*?(?:\r|\n|$)`,
			),
			field("balance",
				`(?:ENDING|CLOSING)\s+BALANCE[\s:]+[$][\d,.]+`,
				`BALANCE[\s:]+[$][\d,.]+`,
			),
			field("transactions",
				`\d{2}[-/]\d{2}\s+(?:\$[\d,.]+\s+){2}`,
				`(?:DEPOSIT|WITHDRAWAL|DEBIT|CREDIT)\s+\$[\d,.]+`,
			),
		},
		SpecificPatterns: patterns(
			`DEPOSIT\s+SUMMARY`,
			`WITHDRAWAL\s+SUMMARY`,
			`BEGINNING\s+BALANCE`,
			`ENDING\s+BALANCE`,
			`APR\s*\d`,
			`INTEREST\s+RATE`,
			`AVAILABLE\s+BALANCE`,
		),
	}
	return &BankStatement{base: newBase(string(constants.BankStatement), def, logger)}
}

func (c *BankStatement) ValidateDocument(text string, blocks []TextBlock) DocumentValidation {
	report := c.CheckSpecificFeatures(blocks)
	return c.assemble(text, blocks, report, func(conf float64) float64 {
		if report.Score(checkTableStructure) > 0.8 {
			conf *= 1.2
		}
		if report.Score(checkTransactionFormat) > 0.8 {
			conf *= 1.1
		}
		return conf
	})
}

func (c *BankStatement) CheckSpecificFeatures(blocks []TextBlock) FeatureReport {
	table := c.runCheck(checkTableStructure, tableStructureScore, blocks)
	tx := c.runCheck(checkTransactionFormat, transactionFormatScore, blocks)
	return FeatureReport{
		IsValid: table.Score > 0.7 && tx.Score > 0.7,
		Checks:  []CheckResult{table, tx},
	}
}

// tableStructureScore groups blocks into rows by exact vertical midpoint and
// counts rows whose left edges line up with every column of the first row.
// The denominator includes the first row.
func tableStructureScore(blocks []TextBlock) (float64, error) {
	if err := hasBadGeometry(blocks); err != nil {
		return 0, err
	}
	rows := map[float64][]float64{}
	for _, b := range blocks {
		y := b.Center().Y
		rows[y] = append(rows[y], b.TopLeft().X)
	}
	if len(rows) < 3 {
		return 0, nil
	}

	keys := make([]float64, 0, len(rows))
	for y := range rows {
		keys = append(keys, y)
	}
	sort.Float64s(keys)

	columns := rows[keys[0]]
	aligned := 0
	for _, y := range keys[1:] {
		if rowAligned(columns, rows[y]) {
			aligned++
		}
	}
	return float64(aligned) / float64(len(keys)), nil
}

func rowAligned(columns, row []float64) bool {
	for _, want := range columns {
		found := false
		for _, x := range row {
			if math.Abs(want-x) < columnTolerance {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// transactionFormatScore is the share of transaction-looking blocks that
// start with a date, a description and an amount.
func transactionFormatScore(blocks []TextBlock) (float64, error) {
	potential, valid := 0, 0
	for _, b := range blocks {
		if !containsAny(strings.ToUpper(b.Text), transactionKeywords...) {
			continue
		}
		potential++
		if transactionLine.MatchString(b.Text) {
			valid++
		}
	}
	return float64(valid) / float64(max(potential, 1)), nil
}
