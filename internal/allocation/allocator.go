package allocation

import "math"

// AllocationOutcome is the allocator's output: the per-participant rows
// in input order (property owner appended last when present) and the
// effective cash base used for pro-rata distribution.
type AllocationOutcome struct {
	Shares    []ParticipantShare
	CashTotal float64
}

// Allocate distributes the pools across the participants.
//
// The base pool is split pro-rata by cash contribution; under model B
// the property value (scaled by its weight) enters the cash base like a
// synthetic payment attributed to the property owner. Role bonus pools
// are split equally per head within each role. Under model A the
// property owner is a virtual trailing row holding the whole property
// pool.
func Allocate(participants []Participant, pools PoolBreakdown, bonuses RoleBonusBudget, property *PropertyContribution, econ ProjectEconomics) AllocationOutcome {
	modelB := property != nil && property.Model == ModelValuedContribution
	profit := econ.Profit()

	// Step 1: effective cash base. Developers never contribute cash.
	var cashTotal float64
	for _, p := range participants {
		if p.Role != RoleDeveloper && p.Payment > 0 {
			cashTotal += p.Payment
		}
	}
	var propertyCash float64
	if modelB && property.Value > 0 {
		propertyCash = property.Value * property.Weight
		cashTotal += propertyCash
	}

	// Steps 2-3: base shares (guarded against empty cash base) and
	// per-head role bonuses.
	counts := countRoles(participants)
	perRole := perRolePcts(bonuses, counts)

	baseShare := func(contribution float64) float64 {
		if cashTotal <= 0 {
			return 0
		}
		return contribution / cashTotal * pools.BasePct
	}

	shares := make([]ParticipantShare, 0, len(participants)+1)
	for _, p := range participants {
		row := ParticipantShare{
			Name:    p.Name,
			Role:    string(p.Role),
			Payment: p.Payment,
		}
		if p.Role != RoleDeveloper && p.Payment > 0 {
			row.BaseSharePct = baseShare(p.Payment)
		}
		row.RoleSharePct = perRole[p.Role]
		shares = append(shares, row)
	}

	// Step 4: property owner row.
	if includePropertyRow(property) {
		row := ParticipantShare{
			Name:            property.ownerLabel(),
			Role:            DefaultPropertyOwnerName,
			Payment:         property.Value,
			IsPropertyOwner: true,
		}
		if modelB {
			row.BaseSharePct = baseShare(propertyCash)
		} else {
			row.PropertySharePct = pools.PropertyPct
		}
		shares = append(shares, row)
	}

	// Steps 5-6: totals, profit percentages and monetization.
	profitPositive := math.Max(profit, 0)
	for i := range shares {
		row := &shares[i]
		row.TotalEquityPct = row.BaseSharePct + row.RoleSharePct + row.PropertySharePct

		row.TotalProfitPct = row.TotalEquityPct
		if row.IsPropertyOwner {
			if modelB {
				row.TotalProfitPct = clampPropertyProfit(row.TotalEquityPct, property, profit)
			} else {
				// Negotiated-share owners participate in profit only
				// through the profit-conditional part of their pool.
				row.TotalProfitPct = pools.PropertyProfitEffectivePct
			}
		}

		row.FinalValue = row.TotalEquityPct / 100 * econ.SalePrice
		row.ProfitValue = row.TotalProfitPct / 100 * profitPositive
	}

	return AllocationOutcome{Shares: shares, CashTotal: cashTotal}
}

// countRoles tallies participants per role.
func countRoles(participants []Participant) map[Role]int {
	counts := make(map[Role]int, 3)
	for _, p := range participants {
		counts[p.Role]++
	}
	return counts
}

// perRolePcts derives the equal per-head bonus for each role. A role
// with no members contributes nothing (its budget stays undistributed
// inside the role pool; the validator does not treat this as an error).
func perRolePcts(bonuses RoleBonusBudget, counts map[Role]int) map[Role]float64 {
	perRole := make(map[Role]float64, 3)
	budgets := map[Role]float64{
		RoleDeveloper:   bonuses.DeveloperPct,
		RoleConstructor: bonuses.ConstructorPct,
		RoleInvestor:    bonuses.InvestorPct,
	}
	for role, budget := range budgets {
		if counts[role] > 0 {
			perRole[role] = budget / float64(counts[role])
		}
	}
	return perRole
}

// includePropertyRow reports whether a property owner row exists at all.
// Under model A the negotiated percentages stand on their own even with
// a zero market value; under model B only a positive value participates.
func includePropertyRow(property *PropertyContribution) bool {
	if property == nil {
		return false
	}
	if property.Model == ModelValuedContribution {
		return property.Value > 0
	}
	return property.Value > 0 || property.EquityPct > 0 || property.ProfitPct > 0
}

// clampPropertyProfit applies the model B profit bounds to the property
// owner's profit percentage. Bounds only bite when the project is
// profitable; each bound applies independently when present.
func clampPropertyProfit(pct float64, property *PropertyContribution, profit float64) float64 {
	if profit <= 0 {
		return pct
	}
	if property.ProfitMinPct != nil && pct < *property.ProfitMinPct {
		pct = *property.ProfitMinPct
	}
	if property.ProfitMaxPct != nil && pct > *property.ProfitMaxPct {
		pct = *property.ProfitMaxPct
	}
	return pct
}
