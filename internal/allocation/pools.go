package allocation

// ComputePools derives the base/role/property pool percentages from the
// project economics, role bonus budget and optional property contribution.
//
// The function is pure and total over its numeric domain: it performs no
// clamping and no division. A negative BasePct is the over-budget
// condition and is reported as-is for the validator to flag.
//
// Steps:
//  1. rolePct = developer + constructor + investor budgets
//  2. Model A: propertyPct = equityPct + (profitPct if value > 0 and
//     profit > 0, else 0); basePct = 100 - rolePct - propertyPct
//  3. Model B: propertyPct = 0; basePct = 100 - rolePct
//  4. No property: treated as model A with all property fields zero
func ComputePools(econ ProjectEconomics, bonuses RoleBonusBudget, property *PropertyContribution) PoolBreakdown {
	pools := PoolBreakdown{
		RolePct: bonuses.DeveloperPct + bonuses.ConstructorPct + bonuses.InvestorPct,
	}

	if property != nil && property.Model == ModelValuedContribution {
		pools.BasePct = 100 - pools.RolePct
		return pools
	}

	var equityPct, profitPct, value float64
	if property != nil {
		equityPct = property.EquityPct
		profitPct = property.ProfitPct
		value = property.Value
	}

	pools.ProfitEffective = value > 0 && econ.Profit() > 0
	if pools.ProfitEffective {
		pools.PropertyProfitEffectivePct = profitPct
	}
	pools.PropertyPct = equityPct + pools.PropertyProfitEffectivePct
	pools.BasePct = 100 - pools.RolePct - pools.PropertyPct

	return pools
}
