package classifier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/doc-classifier/internal/classifier"
)

func TestBankStatementValidateDocument(t *testing.T) {
	c := classifier.NewBankStatement(nil)
	blocks := bankStatementBlocks()

	v := c.ValidateDocument(joinText(blocks, " "), blocks)

	assert.Empty(t, v.MissingFields)
	assert.Equal(t, "NATIONAL BANK", v.DetectedFields["bank_name"])
	assert.Equal(t, "ACCOUNT NUMBER: XXXX1234", v.DetectedFields["account_number"])
	assert.Equal(t, "ENDING BALANCE: $1,200.00", v.DetectedFields["balance"])
	assert.InDelta(t, 1.0, v.Confidence, 1e-9)
	assert.True(t, v.IsValid)

	extra := v.Metadata["extra_validation"].(map[string]any)
	assert.InDelta(t, 0.8, extra["table_structure_score"], 1e-9)
	assert.InDelta(t, 1.0, extra["transaction_format_score"], 1e-9)
	assert.Equal(t, true, extra["is_valid"])
}

func TestBankStatementTableStructure(t *testing.T) {
	c := classifier.NewBankStatement(nil)

	tests := []struct {
		name   string
		blocks []classifier.TextBlock
		want   float64
	}{
		{
			name:   "no blocks",
			blocks: nil,
			want:   0,
		},
		{
			// fewer than three rows is never a table
			name: "two rows",
			blocks: []classifier.TextBlock{
				cell("A", 50, 10), cell("B", 200, 10),
				cell("C", 50, 50), cell("D", 200, 50),
			},
			want: 0,
		},
		{
			name: "aligned rows count against all rows",
			blocks: []classifier.TextBlock{
				cell("A", 50, 10), cell("B", 200, 10),
				cell("C", 55, 50), cell("D", 210, 50),
				cell("E", 45, 90), cell("F", 190, 90),
			},
			want: 2.0 / 3.0,
		},
		{
			name: "drift of 20px breaks the column",
			blocks: []classifier.TextBlock{
				cell("A", 50, 10), cell("B", 200, 10),
				cell("C", 70, 50), cell("D", 200, 50),
				cell("E", 50, 90), cell("F", 200, 90),
				cell("G", 50, 130), cell("H", 200, 130),
			},
			want: 2.0 / 4.0,
		},
		{
			name: "sub-pixel midpoint noise splits rows",
			blocks: []classifier.TextBlock{
				cell("A", 50, 10), cell("B", 200, 10.5),
				cell("C", 50, 50), cell("D", 200, 50),
			},
			want: 1.0 / 3.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := c.CheckSpecificFeatures(tt.blocks)
			assert.InDelta(t, tt.want, report.Score("table_structure"), 1e-9)
		})
	}
}

func TestBankStatementTransactionFormat(t *testing.T) {
	c := classifier.NewBankStatement(nil)

	tests := []struct {
		name  string
		texts []string
		want  float64
	}{
		{"no candidates", []string{"ACCOUNT SUMMARY", "PAGE 1"}, 0},
		{"all well formed", []string{"01/05 DEPOSIT PAYROLL $800.00", "1-12-2024 WITHDRAWAL ATM 100.00"}, 1},
		{"half well formed", []string{"01/05 DEPOSIT PAYROLL $800.00", "DEPOSIT SUMMARY"}, 0.5},
		{"keyword in lower case still counts as candidate", []string{"credit card payment"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := make([]classifier.TextBlock, len(tt.texts))
			for i, s := range tt.texts {
				blocks[i] = cell(s, 50, float64(10+40*i))
			}
			report := c.CheckSpecificFeatures(blocks)
			assert.InDelta(t, tt.want, report.Score("transaction_format"), 1e-9)
		})
	}
}

func TestBankStatementFewRowsIsInvalid(t *testing.T) {
	c := classifier.NewBankStatement(nil)
	all := bankStatementBlocks()
	blocks := all[:6] // two rows
	text := joinText(all, " ")

	report := c.CheckSpecificFeatures(blocks)
	assert.Zero(t, report.Score("table_structure"))
	assert.False(t, report.IsValid)

	v := c.ValidateDocument(text, blocks)
	require.Empty(t, v.MissingFields)
	assert.False(t, v.IsValid)
}
