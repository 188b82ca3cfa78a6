/*
samples.go - Sample generation requests for demos

PURPOSE:
  Provides ready-made requests, one per built-in template plus one for an
  unrecognized business type, so a client can generate a realistic model
  without knowing the input catalog.

AVAILABLE SAMPLES:
  saas-startup:          Subscription business with venture debt
  online-store:          E-commerce with inventory and a marketing budget
  contract-manufacturer: Capex-heavy manufacturer with a term loan
  consulting-firm:       Billable-hours services firm
  food-truck:            Unknown business type, served by the default template

USAGE VIA API:
  GET  /api/samples
  POST /api/samples/saas-startup/generate

ADDING NEW SAMPLES:
  Append to 'samples'. Inputs use the same raw form as POST /api/models,
  so strings such as "80%" and "1,200" are accepted.

SEE ALSO:
  - handlers.go: shared generate path
  - template/catalog.yaml: input definitions
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// =============================================================================
// SAMPLE DEFINITIONS
// =============================================================================

var samples = []SampleDTO{
	{
		ID:             "saas-startup",
		Name:           "SaaS Startup",
		Description:    "50k MRR growing 5% a month with 2% churn and a 500k venture loan",
		BusinessTypeID: "saas",
		Inputs: map[string]any{
			"initial_mrr":         50000,
			"revenue_growth_rate": 0.05,
			"churn_rate":          0.02,
			"gross_margin":        "80%",
			"opening_cash":        250000,
			"initial_debt":        500000,
			"interest_rate":       0.09,
			"loan_maturity_years": 4,
			"cash_interest_rate":  0.02,
		},
	},
	{
		ID:             "online-store",
		Name:           "Online Store",
		Description:    "4,000 orders a month at $65 with 45 days of inventory",
		BusinessTypeID: "online_retail",
		Inputs: map[string]any{
			"monthly_orders":      "4,000",
			"average_order_value": 65,
			"order_growth_rate":   0.03,
			"price_growth_rate":   0.002,
			"opening_cash":        150000,
			"capex_monthly":       2000,
		},
	},
	{
		ID:             "contract-manufacturer",
		Name:           "Contract Manufacturer",
		Description:    "400k monthly revenue, heavy capex and a 3 year term loan",
		BusinessTypeID: "manufacturing",
		Inputs: map[string]any{
			"initial_revenue":     400000,
			"revenue_growth_rate": 0.01,
			"fixed_plant_cost":    40000,
			"capex_monthly":       25000,
			"initial_debt":        2000000,
			"interest_rate":       0.07,
			"loan_maturity_years": 3,
			"opening_cash":        500000,
			"loss_carryforward":   1,
		},
	},
	{
		ID:             "consulting-firm",
		Name:           "Consulting Firm",
		Description:    "2,000 billable hours a month at $150 with 45 days sales outstanding",
		BusinessTypeID: "consulting",
		Inputs: map[string]any{
			"billable_hours": 2000,
			"hourly_rate":    150,
			"opening_cash":   100000,
		},
	},
	{
		ID:             "food-truck",
		Name:           "Food Truck",
		Description:    "Unrecognized business type; the general template is used",
		BusinessTypeID: "food_truck",
		Inputs: map[string]any{
			"initial_revenue":     30000,
			"revenue_growth_rate": 0.01,
			"gross_margin":        0.6,
			"opex_pct":            0.3,
			"opening_cash":        20000,
			"periods":             36,
		},
	},
}

// ListSamples returns the available samples.
// GET /api/samples
func (h *Handler) ListSamples(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, samples)
}

// GenerateSample generates and stores a model from a sample request.
// POST /api/samples/{id}/generate
func (h *Handler) GenerateSample(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, s := range samples {
		if s.ID == id {
			h.generate(w, r, CreateModelRequest{BusinessTypeID: s.BusinessTypeID, Inputs: s.Inputs})
			return
		}
	}
	writeError(w, http.StatusNotFound, "Sample not found", nil)
}
