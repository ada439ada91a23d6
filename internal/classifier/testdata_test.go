package classifier_test

import (
	"strings"

	"github.com/joseph-ayodele/doc-classifier/internal/classifier"
)

// cell is a 100x20 block whose top-left corner is (x, y).
func cell(text string, x, y float64) classifier.TextBlock {
	return classifier.Rect(text, x, y, 100, 20, 0.95)
}

func joinText(blocks []classifier.TextBlock, sep string) string {
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = b.Text
	}
	return strings.Join(parts, sep)
}

// bankStatementBlocks is a five row, three column statement.
func bankStatementBlocks() []classifier.TextBlock {
	return []classifier.TextBlock{
		cell("FIRST NATIONAL BANK STATEMENT", 50, 10),
		cell("ACCOUNT NUMBER: XXXX1234", 200, 10),
		cell("STATEMENT PERIOD: 01/01/2024 - 01/31/2024", 400, 10),

		cell("01/05 DEPOSIT PAYROLL $800.00", 50, 50),
		cell("01/05 $800.00 $1,300.00", 200, 50),
		cell("BEGINNING BALANCE: $500.00", 400, 50),

		cell("01/12 WITHDRAWAL ATM $100.00", 50, 90),
		cell("01/12 $100.00 $1,200.00", 200, 90),
		cell("ENDING BALANCE: $1,200.00", 400, 90),

		cell("01/15 DEBIT CARD PURCHASE $25.00", 50, 130),
		cell("01/15 $25.00 $1,175.00", 200, 130),
		cell("AVAILABLE BALANCE: $1,175.00", 400, 130),

		cell("01/20 CREDIT REFUND $25.00", 50, 170),
		cell("01/20 $25.00 $1,200.00", 200, 170),
		cell("INTEREST RATE 0.01%", 400, 170),
	}
}

func invoiceBlocks() []classifier.TextBlock {
	lines := []string{
		"INVOICE",
		"INVOICE NUMBER: 1234",
		"DATE: 01/02/2023",
		"FROM: ACME CORP",
		"BILL TO: JANE SMITH",
		"DESCRIPTION QUANTITY PRICE AMOUNT",
		"2 WIDGET LARGE $30.00 $60.00",
		"1 SERVICE FEE $30.00 $30.00",
		"SUBTOTAL $90.00",
		"TAX $10.00",
		"TOTAL: $100.00",
		"PAYMENT TERMS: NET 30",
	}
	blocks := make([]classifier.TextBlock, len(lines))
	for i, l := range lines {
		blocks[i] = classifier.Rect(l, 40, 30+float64(i)*40, 300, 24, 0.9)
	}
	return blocks
}

// licenseBlocks lays out a 1000x1000 pixel card.
func licenseBlocks() []classifier.TextBlock {
	return []classifier.TextBlock{
		classifier.Rect("DRIVER LICENSE", 300, 20, 400, 60, 0.97),
		classifier.Rect("PHOTO", 100, 150, 200, 200, 0.5),
		classifier.Rect("NAME: JOHN DOE", 500, 150, 300, 100, 0.93),
		classifier.Rect("DOB 01/15/1990", 500, 270, 300, 40, 0.91),
		classifier.Rect("ADDRESS: 123 MAIN ST", 500, 400, 300, 100, 0.9),
		classifier.Rect("EXP 01/15/2028", 500, 520, 300, 40, 0.92),
		classifier.Rect("DL D1234567", 200, 700, 400, 100, 0.95),
		classifier.Rect("HOLOGRAM VOID IF COPIED", 20, 880, 300, 50, 0.8),
		classifier.Rect("OFFICIAL CERTIFIED", 900, 950, 100, 50, 0.8),
	}
}

func normalized(blocks []classifier.TextBlock, extent float64) []classifier.TextBlock {
	out := make([]classifier.TextBlock, len(blocks))
	for i, b := range blocks {
		out[i] = b
		for j := range b.Box {
			out[i].Box[j].X = b.Box[j].X / extent
			out[i].Box[j].Y = b.Box[j].Y / extent
		}
	}
	return out
}
