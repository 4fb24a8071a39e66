package allocation

import "math"

// Round2 rounds to 2 decimal places. Internal accumulation keeps full
// float64 precision; rounding happens only at the serialization
// boundary, so the sum of displayed rounded values may differ from the
// displayed total by at most one cent.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// RoundedCopy returns a copy of the result with every percentage and
// monetary field rounded for presentation.
func RoundedCopy(r *CalculationResult) *CalculationResult {
	out := *r
	out.Pools.BasePct = Round2(r.Pools.BasePct)
	out.Pools.RolePct = Round2(r.Pools.RolePct)
	out.Pools.PropertyPct = Round2(r.Pools.PropertyPct)
	out.Pools.PropertyProfitEffectivePct = Round2(r.Pools.PropertyProfitEffectivePct)

	out.Totals.ProjectCost = Round2(r.Totals.ProjectCost)
	out.Totals.SalePrice = Round2(r.Totals.SalePrice)
	out.Totals.Profit = Round2(r.Totals.Profit)
	out.Totals.CashTotal = Round2(r.Totals.CashTotal)
	out.Totals.TotalEquityPctSum = Round2(r.Totals.TotalEquityPctSum)
	out.Totals.TotalProfitPctSum = Round2(r.Totals.TotalProfitPctSum)

	out.Participants = make([]ParticipantShare, len(r.Participants))
	for i, row := range r.Participants {
		row.Payment = Round2(row.Payment)
		row.BaseSharePct = Round2(row.BaseSharePct)
		row.RoleSharePct = Round2(row.RoleSharePct)
		row.PropertySharePct = Round2(row.PropertySharePct)
		row.TotalEquityPct = Round2(row.TotalEquityPct)
		row.TotalProfitPct = Round2(row.TotalProfitPct)
		row.FinalValue = Round2(row.FinalValue)
		row.ProfitValue = Round2(row.ProfitValue)
		out.Participants[i] = row
	}
	return &out
}
