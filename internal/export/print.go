package export

import (
	"fmt"
	"strings"
	"time"

	"equity-share-calculator/internal/allocation"
)

const printFooter = "Services by https://suar.services"

// PrintDocument renders the calculation as a plain-text sheet suitable
// for printing and signing: a header, the economic summary, the
// allocation table, one signature row per participant and the footer.
// Results carrying errors render as an empty string; callers gate on
// Valid() before asking for the document.
func PrintDocument(result *allocation.CalculationResult) string {
	if result == nil || !result.Valid() {
		return ""
	}

	rounded := allocation.RoundedCopy(result)
	now := time.Now().Format("2006-01-02 15:04")

	var b strings.Builder

	b.WriteString("Investment Share Calculator - Results\n")
	b.WriteString("Generated: " + now + "\n\n")

	fmt.Fprintf(&b, "Project Cost:      €%s\n", num(rounded.Totals.ProjectCost))
	fmt.Fprintf(&b, "Sale Price:        €%s\n", num(rounded.Totals.SalePrice))
	fmt.Fprintf(&b, "Total Profit:      €%s\n", num(rounded.Totals.Profit))
	fmt.Fprintf(&b, "Cash Investment:   €%s\n", num(rounded.Totals.CashTotal))
	fmt.Fprintf(&b, "Pools:             base=%s%%  role=%s%%  property=%s%%\n\n",
		num(rounded.Pools.BasePct), num(rounded.Pools.RolePct), num(rounded.Pools.PropertyPct))

	writeResultsTable(&b, rounded)

	b.WriteString("\nSignatures\n")
	b.WriteString("Date: " + now + "\n\n")
	writeSignatureTable(&b, rounded)

	b.WriteString("\n" + printFooter + "\n")

	return b.String()
}

func writeResultsTable(b *strings.Builder, result *allocation.CalculationResult) {
	format := "%-20s %-12s %14s %10s %10s %10s %10s %10s %16s %14s\n"
	fmt.Fprintf(b, format,
		"Name", "Role", "Payment (€)", "Base %", "Role %", "Prop %", "Equity %", "Profit %", "Final Value (€)", "Profit (€)")
	fmt.Fprintf(b, "%s\n", strings.Repeat("-", 134))

	var paymentSum, finalSum, profitSum float64
	for _, row := range result.Participants {
		paymentSum += row.Payment
		finalSum += row.FinalValue
		profitSum += row.ProfitValue
		fmt.Fprintf(b, format,
			row.Name, row.Role,
			num(row.Payment),
			num(row.BaseSharePct), num(row.RoleSharePct), num(row.PropertySharePct),
			num(row.TotalEquityPct), num(row.TotalProfitPct),
			num(row.FinalValue), num(row.ProfitValue))
	}

	fmt.Fprintf(b, "%s\n", strings.Repeat("-", 134))
	fmt.Fprintf(b, format,
		"Totals", "",
		num(paymentSum),
		"", "", "",
		num(result.Totals.TotalEquityPctSum), num(result.Totals.TotalProfitPctSum),
		num(finalSum), num(profitSum))
}

func writeSignatureTable(b *strings.Builder, result *allocation.CalculationResult) {
	format := "%-20s %-12s %-30s %-15s\n"
	fmt.Fprintf(b, format, "Name", "Role", "Signature", "Date")
	fmt.Fprintf(b, "%s\n", strings.Repeat("-", 80))
	for _, row := range result.Participants {
		fmt.Fprintf(b, format, row.Name, row.Role, strings.Repeat("_", 28), strings.Repeat("_", 12))
	}
}
