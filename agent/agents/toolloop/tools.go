package toolloop

import "github.com/cloudwego/eino/schema"

const (
	toolSupplierGetOffers = "supplier_get_offers"
	toolFXConvertAmount   = "fx_convert_amount"
	toolNotifySendPlan    = "notify_send_plan"
	toolFinalAnswer       = "final_answer"
)

func toolInfos() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name: toolSupplierGetOffers,
			Desc: "Resolve supplier offers for the request's line items; returns totals, supplier currency, and unavailable skus.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"items": {
					Type: schema.Array,
					Desc: "Line items to source: sku, quantity, max_unit_price.",
					ElemInfo: &schema.ParameterInfo{
						Type: schema.Object,
						SubParams: map[string]*schema.ParameterInfo{
							"sku":            {Type: schema.String, Desc: "Catalog search key", Required: true},
							"quantity":       {Type: schema.Integer, Desc: "Units requested", Required: true},
							"max_unit_price": {Type: schema.Number, Desc: "Optional per-unit price cap"},
						},
					},
					Required: true,
				},
			}),
		},
		{
			Name: toolFXConvertAmount,
			Desc: "Convert a money amount between currencies and report the rate used.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"amount": {Type: schema.Number, Desc: "Amount in the base currency", Required: true},
				"base":   {Type: schema.String, Desc: "Source currency code", Required: true},
				"quote":  {Type: schema.String, Desc: "Target currency code", Required: true},
			}),
		},
		{
			Name: toolNotifySendPlan,
			Desc: "POST a JSON procurement plan to a webhook URL.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"url":  {Type: schema.String, Desc: "Webhook URL accepting POST JSON", Required: true},
				"plan": {Type: schema.Object, Desc: "Plan payload to deliver", Required: true},
			}),
		},
		{
			Name: toolFinalAnswer,
			Desc: "Finish the run with a short human summary of the plan.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"summary": {Type: schema.String, Desc: "Summary of the assembled plan", Required: true},
			}),
		},
	}
}
