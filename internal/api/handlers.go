package api

import (
	"net/http"
	"strings"

	"equity-share-calculator/internal/allocation"
	"equity-share-calculator/internal/export"

	"github.com/gin-gonic/gin"
)

// ParticipantPayload is one participant row of the calculate payload.
// Rows lacking a name or role are skipped, not faulted.
type ParticipantPayload struct {
	Name            string     `json:"name"`
	Role            string     `json:"role"`
	Payment         FlexNumber `json:"payment"`
	IsPropertyOwner bool       `json:"is_property_owner"`
}

// CalculateRequest is the invocation payload. All numeric fields accept
// decimal strings or numbers; invalid or missing values become 0.
type CalculateRequest struct {
	ProjectCost         FlexNumber `json:"project_cost"`
	SalePrice           FlexNumber `json:"sale_price"`
	DeveloperBonusPct   FlexNumber `json:"developer_bonus_pct"`
	ConstructorBonusPct FlexNumber `json:"constructor_bonus_pct"`
	InvestorBonusPct    FlexNumber `json:"investor_bonus_pct"`

	PropertyValue        FlexNumber     `json:"property_value"`
	PropertyOwnerName    string         `json:"property_owner_name"`
	PropertyModel        string         `json:"property_model"`
	PropertyEquityPct    FlexNumber     `json:"property_equity_pct"`
	PropertyProfitPct    FlexNumber     `json:"property_profit_pct"`
	PropertyWeight       FlexNumber     `json:"property_weight"`
	PropertyProfitMinPct OptionalNumber `json:"property_profit_min_pct"`
	PropertyProfitMaxPct OptionalNumber `json:"property_profit_max_pct"`

	Participants []ParticipantPayload `json:"participants"`
}

// ToInput maps the wire payload onto an engine input.
func (r *CalculateRequest) ToInput() allocation.Input {
	input := allocation.Input{
		Economics: allocation.ProjectEconomics{
			ProjectCost: float64(r.ProjectCost),
			SalePrice:   float64(r.SalePrice),
		},
		Bonuses: allocation.RoleBonusBudget{
			DeveloperPct:   float64(r.DeveloperBonusPct),
			ConstructorPct: float64(r.ConstructorBonusPct),
			InvestorPct:    float64(r.InvestorBonusPct),
		},
	}

	for _, p := range r.Participants {
		// The property owner is carried by the dedicated fields, never
		// by the participant list.
		if p.IsPropertyOwner {
			continue
		}
		name := strings.TrimSpace(p.Name)
		role := strings.TrimSpace(p.Role)
		if name == "" || role == "" {
			continue
		}
		input.Participants = append(input.Participants, allocation.Participant{
			Name:    name,
			Role:    allocation.Role(role),
			Payment: float64(p.Payment),
		})
	}

	model := allocation.ModelNegotiatedShare
	if strings.EqualFold(strings.TrimSpace(r.PropertyModel), "B") {
		model = allocation.ModelValuedContribution
	}
	input.Property = &allocation.PropertyContribution{
		OwnerName:    strings.TrimSpace(r.PropertyOwnerName),
		Value:        float64(r.PropertyValue),
		Model:        model,
		EquityPct:    float64(r.PropertyEquityPct),
		ProfitPct:    float64(r.PropertyProfitPct),
		Weight:       float64(r.PropertyWeight),
		ProfitMinPct: r.PropertyProfitMinPct.Ptr(),
		ProfitMaxPct: r.PropertyProfitMaxPct.Ptr(),
	}

	return input
}

// ResultRow is one allocated row on the wire, rounded for display.
type ResultRow struct {
	Name             string  `json:"name"`
	Role             string  `json:"role"`
	Payment          float64 `json:"payment"`
	ShareBasePct     float64 `json:"share_base_pct"`
	ShareRolePct     float64 `json:"share_role_pct"`
	SharePropertyPct float64 `json:"share_property_pct"`
	TotalEquityPct   float64 `json:"total_equity_pct"`
	TotalProfitPct   float64 `json:"total_profit_pct"`
	FinalValue       float64 `json:"final_value"`
	ProfitValue      float64 `json:"profit_value"`
	IsPropertyOwner  bool    `json:"is_property_owner"`
}

// CalculateResponse is the invocation result on the wire.
type CalculateResponse struct {
	Pools   PoolsPayload       `json:"pools"`
	Totals  TotalsPayload      `json:"totals"`
	Results []ResultRow        `json:"results"`
	Banners allocation.Banners `json:"banners"`
}

type PoolsPayload struct {
	Base            float64 `json:"base"`
	Role            float64 `json:"role"`
	Property        float64 `json:"property"`
	ProfitEffective float64 `json:"profit_effective"`
}

type TotalsPayload struct {
	ProjectCost       float64 `json:"project_cost"`
	SalePrice         float64 `json:"sale_price"`
	Profit            float64 `json:"profit"`
	CashTotal         float64 `json:"cash_total"`
	TotalEquityPctSum float64 `json:"total_equity_pct_sum"`
	TotalProfitPctSum float64 `json:"total_profit_pct_sum"`
}

// toResponse rounds the engine result at the serialization boundary.
func toResponse(result *allocation.CalculationResult) CalculateResponse {
	rounded := allocation.RoundedCopy(result)

	resp := CalculateResponse{
		Pools: PoolsPayload{
			Base:            rounded.Pools.BasePct,
			Role:            rounded.Pools.RolePct,
			Property:        rounded.Pools.PropertyPct,
			ProfitEffective: rounded.Pools.PropertyProfitEffectivePct,
		},
		Totals: TotalsPayload{
			ProjectCost:       rounded.Totals.ProjectCost,
			SalePrice:         rounded.Totals.SalePrice,
			Profit:            rounded.Totals.Profit,
			CashTotal:         rounded.Totals.CashTotal,
			TotalEquityPctSum: rounded.Totals.TotalEquityPctSum,
			TotalProfitPctSum: rounded.Totals.TotalProfitPctSum,
		},
		Results: make([]ResultRow, 0, len(rounded.Participants)),
		Banners: rounded.Banners,
	}
	if resp.Banners.Errors == nil {
		resp.Banners.Errors = []string{}
	}
	if resp.Banners.Warnings == nil {
		resp.Banners.Warnings = []string{}
	}

	for _, row := range rounded.Participants {
		resp.Results = append(resp.Results, ResultRow{
			Name:             row.Name,
			Role:             row.Role,
			Payment:          row.Payment,
			ShareBasePct:     row.BaseSharePct,
			ShareRolePct:     row.RoleSharePct,
			SharePropertyPct: row.PropertySharePct,
			TotalEquityPct:   row.TotalEquityPct,
			TotalProfitPct:   row.TotalProfitPct,
			FinalValue:       row.FinalValue,
			ProfitValue:      row.ProfitValue,
			IsPropertyOwner:  row.IsPropertyOwner,
		})
	}

	return resp
}

// handleCalculate runs one allocation
// POST /api/calculate
func (s *Server) handleCalculate(c *gin.Context) {
	result, ok := s.runCalculation(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toResponse(result))
}

// runCalculation decodes the shared calculate payload and executes the
// engine. Structural faults are reported as request-level failures;
// business-rule violations travel as banners inside a 200 response.
func (s *Server) runCalculation(c *gin.Context) (*allocation.CalculationResult, bool) {
	var req CalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "calculation_failed", "detail": err.Error()})
		return nil, false
	}

	input := req.ToInput()
	if len(input.Participants) > s.config.MaxParticipants {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "calculation_failed",
			"detail": "too many participants",
		})
		return nil, false
	}

	result, err := allocation.Calculate(input)
	if err != nil {
		s.logger.Warn("calculation rejected", "reason", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "calculation_failed", "detail": err.Error()})
		return nil, false
	}

	// A client that went away gets no say in the response; the engine
	// result is simply discarded (the engine needs no cancellation).
	if c.Request.Context().Err() != nil {
		c.Abort()
		return nil, false
	}

	return result, true
}

// handleLimits exposes the caps and bounds callers must respect
// GET /api/limits
func (s *Server) handleLimits(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"max_participants": s.config.MaxParticipants,
		"percent_scale":    gin.H{"min": 0, "max": 100},
		"money_min":        0,
	})
}

// handleHealth is the liveness endpoint
// GET /health
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleExportCSV renders a calculation as a CSV attachment
// POST /api/export/csv
func (s *Server) handleExportCSV(c *gin.Context) {
	result, ok := s.runCalculation(c)
	if !ok {
		return
	}
	if !result.Valid() {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "results_invalid",
			"banners": result.Banners,
		})
		return
	}

	data, err := export.CSV(result)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to render CSV: "+err.Error())
		return
	}
	c.Header("Content-Disposition", `attachment; filename="investment-results.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// handleExportPrint renders the printable document body
// POST /api/export/print
func (s *Server) handleExportPrint(c *gin.Context) {
	result, ok := s.runCalculation(c)
	if !ok {
		return
	}
	if !result.Valid() {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "results_invalid",
			"banners": result.Banners,
		})
		return
	}

	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(export.PrintDocument(result)))
}
