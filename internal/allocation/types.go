// Package allocation implements the equity share allocation engine: it
// partitions 100% of a project's equity (and profit) into a base pool
// distributed pro-rata by cash, fixed role bonus pools split per head,
// and an optional property pool.
package allocation

import "fmt"

// MaxParticipants is the engine-level cap on participants per calculation.
const MaxParticipants = 20

// Role identifies a participant's fixed role in the project.
type Role string

const (
	RoleDeveloper   Role = "Developer"
	RoleConstructor Role = "Constructor"
	RoleInvestor    Role = "Investor"
)

// ParseRole converts a display string to a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case string(RoleDeveloper):
		return RoleDeveloper, nil
	case string(RoleConstructor):
		return RoleConstructor, nil
	case string(RoleInvestor):
		return RoleInvestor, nil
	default:
		return "", fmt.Errorf("unknown role: %q", s)
	}
}

// Participant is a cash (or sweat) contributor to the project.
// Developers' payments are excluded from pool math but stored as given.
type Participant struct {
	Name    string  `json:"name"`
	Role    Role    `json:"role"`
	Payment float64 `json:"payment"`
}

// PropertyModel selects how a property contribution enters the split.
type PropertyModel string

const (
	// ModelNegotiatedShare ("A"): the property owner receives fixed
	// equity/profit percentages, independent of property value.
	ModelNegotiatedShare PropertyModel = "A"
	// ModelValuedContribution ("B"): the property value enters the base
	// pool like cash, scaled by a weight multiplier.
	ModelValuedContribution PropertyModel = "B"
)

// DefaultPropertyOwnerName labels the property row when no owner name is given.
const DefaultPropertyOwnerName = "Property Owner"

// PropertyContribution describes a non-cash property contribution.
// Fields meaningful only to the inactive model are zero.
type PropertyContribution struct {
	OwnerName string        `json:"owner_name"`
	Value     float64       `json:"value"`
	Model     PropertyModel `json:"model"`

	// Model A (negotiated share)
	EquityPct float64 `json:"equity_pct"`
	ProfitPct float64 `json:"profit_pct"`

	// Model B (valued contribution)
	Weight       float64  `json:"weight"`
	ProfitMinPct *float64 `json:"profit_min_pct,omitempty"`
	ProfitMaxPct *float64 `json:"profit_max_pct,omitempty"`
}

// ownerLabel returns the display name for the property row.
func (pc *PropertyContribution) ownerLabel() string {
	if pc.OwnerName == "" {
		return DefaultPropertyOwnerName
	}
	return pc.OwnerName
}

// ProjectEconomics holds the project-level money amounts.
type ProjectEconomics struct {
	ProjectCost float64 `json:"project_cost"`
	SalePrice   float64 `json:"sale_price"`
}

// Profit is the derived project profit. May be zero or negative.
func (p ProjectEconomics) Profit() float64 {
	return p.SalePrice - p.ProjectCost
}

// RoleBonusBudget holds the percentage of total equity reserved per role.
// Each budget is split equally among the role's members, not pro-rata.
type RoleBonusBudget struct {
	DeveloperPct   float64 `json:"developer_pct"`
	ConstructorPct float64 `json:"constructor_pct"`
	InvestorPct    float64 `json:"investor_pct"`
}

// PoolBreakdown is the pool-level output of the pool calculator.
// No clamping happens here: BasePct may be negative when the budget is
// over-committed; the validator turns that into a blocking error.
type PoolBreakdown struct {
	BasePct     float64 `json:"base_pct"`
	RolePct     float64 `json:"role_pct"`
	PropertyPct float64 `json:"property_pct"`

	// PropertyProfitEffectivePct is the profit-conditional part of the
	// property pool under model A (zero when the project is not
	// profitable or there is no property value).
	PropertyProfitEffectivePct float64 `json:"property_profit_effective_pct"`
	ProfitEffective            bool    `json:"profit_effective"`
}

// ParticipantShare is one allocated row of the result, in input order.
// The property owner under model A appears as a trailing virtual row.
type ParticipantShare struct {
	Name             string  `json:"name"`
	Role             string  `json:"role"`
	Payment          float64 `json:"payment"`
	BaseSharePct     float64 `json:"base_share_pct"`
	RoleSharePct     float64 `json:"role_share_pct"`
	PropertySharePct float64 `json:"property_share_pct"`
	TotalEquityPct   float64 `json:"total_equity_pct"`
	TotalProfitPct   float64 `json:"total_profit_pct"`
	FinalValue       float64 `json:"final_value"`
	ProfitValue      float64 `json:"profit_value"`
	IsPropertyOwner  bool    `json:"is_property_owner"`
}

// Totals summarizes the calculation for display.
type Totals struct {
	ProjectCost       float64 `json:"project_cost"`
	SalePrice         float64 `json:"sale_price"`
	Profit            float64 `json:"profit"`
	CashTotal         float64 `json:"cash_total"`
	TotalEquityPctSum float64 `json:"total_equity_pct_sum"`
	TotalProfitPctSum float64 `json:"total_profit_pct_sum"`
}

// Banners carries the ordered business-rule violations for a result.
// Errors invalidate the result for display; warnings only flag it.
type Banners struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// CalculationResult is the immutable output of one engine invocation.
type CalculationResult struct {
	Pools        PoolBreakdown      `json:"pools"`
	Participants []ParticipantShare `json:"participants"`
	Totals       Totals             `json:"totals"`
	Banners      Banners            `json:"banners"`
}

// Valid reports whether the result may be displayed as authoritative.
func (r *CalculationResult) Valid() bool {
	return len(r.Banners.Errors) == 0
}

// Input bundles everything one calculation needs. Property may be nil.
type Input struct {
	Participants []Participant         `json:"participants"`
	Bonuses      RoleBonusBudget       `json:"bonuses"`
	Economics    ProjectEconomics      `json:"economics"`
	Property     *PropertyContribution `json:"property,omitempty"`
}
