package allocation

import "fmt"

// Calculate runs one full allocation: pools, per-participant shares,
// totals and banners. It is pure and synchronous; concurrent callers
// never share state.
//
// Structural precondition violations (no participants at all, unknown
// role, empty name, cap exceeded, negative money) return an error.
// Business-rule violations never do: the full result is computed and
// returned with the violations as banner data, so the caller can show
// exactly which numbers to fix.
func Calculate(input Input) (*CalculationResult, error) {
	property, err := normalizeProperty(input.Property)
	if err != nil {
		return nil, err
	}
	if err := checkStructure(input, property); err != nil {
		return nil, err
	}

	pools := ComputePools(input.Economics, input.Bonuses, property)
	outcome := Allocate(input.Participants, pools, input.Bonuses, property, input.Economics)
	banners := Validate(pools, input.Bonuses, input.Participants, property, outcome.CashTotal, input.Economics)

	totals := Totals{
		ProjectCost: input.Economics.ProjectCost,
		SalePrice:   input.Economics.SalePrice,
		Profit:      input.Economics.Profit(),
		CashTotal:   outcome.CashTotal,
	}
	for _, row := range outcome.Shares {
		totals.TotalEquityPctSum += row.TotalEquityPct
		totals.TotalProfitPctSum += row.TotalProfitPct
	}

	return &CalculationResult{
		Pools:        pools,
		Participants: outcome.Shares,
		Totals:       totals,
		Banners:      banners,
	}, nil
}

// normalizeProperty applies the model-exclusivity rule: selecting one
// model zeroes the fields meaningful only to the other. The input is
// not mutated. An unrecognized model falls back to negotiated share.
func normalizeProperty(property *PropertyContribution) (*PropertyContribution, error) {
	if property == nil {
		return nil, nil
	}
	pc := *property
	switch pc.Model {
	case ModelValuedContribution:
		pc.EquityPct = 0
		pc.ProfitPct = 0
		if pc.Weight < 0 {
			return nil, fmt.Errorf("property weight must be non-negative, got %v", pc.Weight)
		}
		if pc.Weight == 0 {
			pc.Weight = 1.0
		}
	case ModelNegotiatedShare:
		pc.Weight = 0
		pc.ProfitMinPct = nil
		pc.ProfitMaxPct = nil
	default:
		pc.Model = ModelNegotiatedShare
		pc.Weight = 0
		pc.ProfitMinPct = nil
		pc.ProfitMaxPct = nil
	}
	if pc.Value < 0 {
		return nil, fmt.Errorf("property value must be non-negative, got %v", pc.Value)
	}
	return &pc, nil
}

// checkStructure enforces the hard preconditions that distinguish a
// malformed request from a business-rule violation.
func checkStructure(input Input, property *PropertyContribution) error {
	if len(input.Participants) == 0 && !includePropertyRow(property) {
		return fmt.Errorf("at least one participant or property owner is required")
	}
	if len(input.Participants) > MaxParticipants {
		return fmt.Errorf("participant count %d exceeds cap of %d", len(input.Participants), MaxParticipants)
	}
	for i, p := range input.Participants {
		if p.Name == "" {
			return fmt.Errorf("participant %d has no name", i+1)
		}
		if _, err := ParseRole(string(p.Role)); err != nil {
			return fmt.Errorf("participant %q: %w", p.Name, err)
		}
		if p.Payment < 0 {
			return fmt.Errorf("participant %q has negative payment %v", p.Name, p.Payment)
		}
	}
	if input.Economics.ProjectCost < 0 || input.Economics.SalePrice < 0 {
		return fmt.Errorf("project cost and sale price must be non-negative")
	}
	return nil
}
