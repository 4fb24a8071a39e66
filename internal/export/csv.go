// Package export renders finished calculations as downloadable
// documents: a spreadsheet-friendly CSV and a printable text sheet
// with a signature block. Both refuse results that carry errors.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"equity-share-calculator/internal/allocation"
)

// ErrInvalidResults is returned when a result with error banners is
// handed to an exporter.
var ErrInvalidResults = errors.New("results contain errors and cannot be exported")

// utf8BOM makes Excel open the file as UTF-8.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var csvHeader = []string{
	"Name",
	"Role",
	"Payment (€)",
	"Base Share (%)",
	"Role Bonus (%)",
	"Property Share (%)",
	"Equity Share (%)",
	"Profit Share (%)",
	"Final Share Value (€)",
	"Profit Value (€)",
}

// CSV renders the calculation as a CSV document with metadata comment
// lines, a header row, one row per participant and a totals row.
func CSV(result *allocation.CalculationResult) ([]byte, error) {
	if result == nil {
		return nil, errors.New("nil result")
	}
	if !result.Valid() {
		return nil, ErrInvalidResults
	}

	rounded := allocation.RoundedCopy(result)

	var buf bytes.Buffer
	buf.Write(utf8BOM)

	meta := []string{
		"# Investment Share Calculator",
		"# Generated: " + time.Now().UTC().Format(time.RFC3339),
		fmt.Sprintf("# Pools: base=%s%%, role=%s%%, property=%s%%",
			num(rounded.Pools.BasePct), num(rounded.Pools.RolePct), num(rounded.Pools.PropertyPct)),
	}
	if rounded.Totals.CashTotal > 0 {
		meta = append(meta, fmt.Sprintf("# Cash Investment (excl. property): €%s", num(rounded.Totals.CashTotal)))
	} else {
		meta = append(meta, "#")
	}
	for _, line := range meta {
		buf.WriteString(line)
		buf.WriteString("\r\n")
	}

	w := csv.NewWriter(&buf)
	w.UseCRLF = true

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}

	var paymentSum, finalSum, profitSum float64
	for _, row := range rounded.Participants {
		paymentSum += row.Payment
		finalSum += row.FinalValue
		profitSum += row.ProfitValue
		record := []string{
			row.Name,
			row.Role,
			num(row.Payment),
			num(row.BaseSharePct),
			num(row.RoleSharePct),
			num(row.PropertySharePct),
			num(row.TotalEquityPct),
			num(row.TotalProfitPct),
			num(row.FinalValue),
			num(row.ProfitValue),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	totals := []string{
		"Totals",
		"",
		num(paymentSum),
		"",
		"",
		"",
		num(rounded.Totals.TotalEquityPctSum),
		num(rounded.Totals.TotalProfitPctSum),
		num(finalSum),
		num(profitSum),
	}
	if err := w.Write(totals); err != nil {
		return nil, err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// num formats a display-rounded value without trailing zeros beyond
// two decimals.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
