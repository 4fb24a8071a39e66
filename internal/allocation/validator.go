package allocation

import "fmt"

// closeToLimitBandPct is the advisory band for a base pool that still
// fits the budget but leaves almost nothing to distribute.
const closeToLimitBandPct = 5

// highPerPersonSharePct is the advisory threshold for a single role
// member's per-head bonus.
const highPerPersonSharePct = 50

// Validate produces the ordered blocking errors and advisory warnings
// for a calculation. All rules are evaluated; nothing short-circuits.
// Errors mean the result must not be displayed as authoritative;
// warnings never block.
func Validate(pools PoolBreakdown, bonuses RoleBonusBudget, participants []Participant, property *PropertyContribution, cashTotal float64, econ ProjectEconomics) Banners {
	banners := Banners{}
	modelB := property != nil && property.Model == ModelValuedContribution

	// Blocking: share budget over 100%. Under model B there is no
	// property pool to conflict with, only the role pools count.
	committed := pools.RolePct + pools.PropertyPct
	if modelB {
		committed = pools.RolePct
	}
	if committed > 100 {
		excess := committed - 100
		if modelB {
			banners.Errors = append(banners.Errors, fmt.Sprintf(
				"Share budget exceeds 100%% by %.2f%%. Reduce role pools (%.2f%%).",
				excess, pools.RolePct))
		} else {
			banners.Errors = append(banners.Errors, fmt.Sprintf(
				"Share budget exceeds 100%% by %.2f%%. Reduce role pools (%.2f%%) or property pool (%.2f%%).",
				excess, pools.RolePct, pools.PropertyPct))
		}
	}

	// Blocking: contradictory model B profit bounds.
	if modelB && property.ProfitMinPct != nil && property.ProfitMaxPct != nil &&
		*property.ProfitMinPct > *property.ProfitMaxPct {
		banners.Errors = append(banners.Errors,
			"Property profit min cannot be greater than max.")
	}

	// Advisory: the base pool exists on paper but nobody can receive it.
	if pools.BasePct > 0 && cashTotal <= 0 {
		banners.Warnings = append(banners.Warnings,
			"Base pool cannot be distributed; only role/property pools apply.")
	}

	// Advisory: a single role member would receive more than half the
	// total equity from their role budget alone.
	perRole := perRolePcts(bonuses, countRoles(participants))
	for _, role := range []Role{RoleDeveloper, RoleConstructor, RoleInvestor} {
		perHead := perRole[role]
		if perHead > highPerPersonSharePct {
			banners.Warnings = append(banners.Warnings, fmt.Sprintf(
				"Per-person %s bonus (%.2f%%) exceeds %d%% of total equity.",
				role, perHead, highPerPersonSharePct))
		}
	}

	// Advisory: base pool squeezed close to the budget limit.
	if pools.BasePct >= 0 && pools.BasePct <= closeToLimitBandPct {
		banners.Warnings = append(banners.Warnings, fmt.Sprintf(
			"Base pool is %.2f%% (close to limit).", pools.BasePct))
	}

	if property != nil {
		if !modelB && property.Value > 0 && econ.Profit() <= 0 {
			banners.Warnings = append(banners.Warnings,
				"Project not profitable; profit-based property share = 0%.")
		}
		if modelB {
			if property.OwnerName != "" && property.Value <= 0 {
				banners.Warnings = append(banners.Warnings,
					"Property owner name provided but property value is 0 or missing.")
			}
			if property.Weight > 2 {
				banners.Warnings = append(banners.Warnings, fmt.Sprintf(
					"Property weight (%.2f) is above recommended range (0.5-2.0).",
					property.Weight))
			}
		}
	}

	// Advisory: the cash raised does not cover the project cost. Only
	// meaningful when the result itself is otherwise trustworthy.
	if len(banners.Errors) == 0 && cashTotal < econ.ProjectCost {
		banners.Warnings = append(banners.Warnings, fmt.Sprintf(
			"Cash investments (%.2f) are less than the project cost (%.2f). Need %.2f more.",
			cashTotal, econ.ProjectCost, econ.ProjectCost-cashTotal))
	}

	return banners
}
