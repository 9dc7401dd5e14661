package interpret

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/merchkit/procurement-agent/agent/contract"
)

// Interpreter merges free-text turns into the structured request using a
// schema-constrained model call. One corrective retry is attempted before
// the turn is rejected.
type Interpreter struct {
	model  einomodel.BaseChatModel
	prompt string
}

var _ contractx.Interpreter = (*Interpreter)(nil)

func New(model einomodel.BaseChatModel, systemPrompt string) (*Interpreter, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: interpreter prompt is required", contractx.ErrValidation)
	}
	return &Interpreter{model: model, prompt: systemPrompt}, nil
}

// llmRequest is the wire shape the model must emit.
type llmRequest struct {
	TargetCurrency string    `json:"target_currency"`
	Budget         *float64  `json:"budget"`
	WebhookURL     string    `json:"webhook_url"`
	Items          []llmItem `json:"items"`
}

type llmItem struct {
	SKU          string   `json:"sku"`
	Quantity     int      `json:"quantity"`
	MaxUnitPrice *float64 `json:"max_unit_price"`
}

func (i *Interpreter) Interpret(
	ctx context.Context,
	prior *contractx.ProcurementRequest,
	rawText string,
) (contractx.ProcurementRequest, error) {
	if strings.TrimSpace(rawText) == "" {
		return contractx.ProcurementRequest{}, fmt.Errorf("%w: user message is empty", contractx.ErrValidation)
	}

	payload := map[string]any{
		"prior_request": prior,
		"user_message":  rawText,
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return contractx.ProcurementRequest{}, fmt.Errorf("%w: marshal interpreter payload: %v", contractx.ErrValidation, err)
	}

	messages := []*schema.Message{
		schema.SystemMessage(i.prompt),
		schema.UserMessage(string(input)),
	}

	merged, firstErr := i.invokeOnce(ctx, messages, prior, rawText)
	if firstErr == nil {
		return merged, nil
	}

	log.Warn().Err(firstErr).Msg("interpreter output rejected, retrying with corrective instruction")

	corrective := fmt.Sprintf(
		"Your previous answer was not a valid request object (%v). "+
			"Answer again with ONLY the JSON object in the required schema.",
		firstErr,
	)
	messages = append(messages, schema.UserMessage(corrective))

	merged, retryErr := i.invokeOnce(ctx, messages, prior, rawText)
	if retryErr != nil {
		return contractx.ProcurementRequest{}, fmt.Errorf("%w: %v (first attempt: %v)", contractx.ErrInterpretation, retryErr, firstErr)
	}
	return merged, nil
}

func (i *Interpreter) invokeOnce(
	ctx context.Context,
	messages []*schema.Message,
	prior *contractx.ProcurementRequest,
	rawText string,
) (contractx.ProcurementRequest, error) {
	msg, err := i.model.Generate(ctx, messages)
	if err != nil {
		return contractx.ProcurementRequest{}, fmt.Errorf("%w: interpreter invoke: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return contractx.ProcurementRequest{}, fmt.Errorf("%w: empty interpreter response", contractx.ErrSchemaViolation)
	}

	var out llmRequest
	if err := json.Unmarshal([]byte(stripFences(msg.Content)), &out); err != nil {
		return contractx.ProcurementRequest{}, fmt.Errorf("%w: decode interpreter response: %v", contractx.ErrSchemaViolation, err)
	}

	merged, err := toRequest(out)
	if err != nil {
		return contractx.ProcurementRequest{}, err
	}

	sanitize(&merged, prior, rawText)
	return merged, nil
}

// toRequest validates the wire shape and folds duplicate skus together,
// preserving first-mention order.
func toRequest(out llmRequest) (contractx.ProcurementRequest, error) {
	currency := strings.ToUpper(strings.TrimSpace(out.TargetCurrency))
	if currency == "" {
		return contractx.ProcurementRequest{}, fmt.Errorf("%w: target_currency is required", contractx.ErrSchemaViolation)
	}

	req := contractx.ProcurementRequest{
		TargetCurrency: currency,
		Budget:         out.Budget,
		WebhookURL:     strings.TrimSpace(out.WebhookURL),
		Items:          []contractx.LineItem{},
	}

	for _, it := range out.Items {
		sku := strings.ToLower(strings.TrimSpace(it.SKU))
		if sku == "" {
			return contractx.ProcurementRequest{}, fmt.Errorf("%w: item sku is empty", contractx.ErrSchemaViolation)
		}
		if it.Quantity <= 0 {
			return contractx.ProcurementRequest{}, fmt.Errorf("%w: item %q quantity must be > 0", contractx.ErrSchemaViolation, sku)
		}

		if idx := req.FindItem(sku); idx >= 0 {
			req.Items[idx].Quantity += it.Quantity
			if it.MaxUnitPrice != nil {
				req.Items[idx].MaxUnitPrice = it.MaxUnitPrice
			}
			continue
		}
		req.Items = append(req.Items, contractx.LineItem{
			SKU:          sku,
			Quantity:     it.Quantity,
			MaxUnitPrice: it.MaxUnitPrice,
		})
	}

	return req, nil
}

// sanitize enforces the no-fabrication rules: a webhook URL or a changed
// currency must actually come from the conversation, not from the model.
func sanitize(req *contractx.ProcurementRequest, prior *contractx.ProcurementRequest, rawText string) {
	lowerText := strings.ToLower(rawText)

	if req.WebhookURL != "" {
		fromPrior := prior != nil && prior.WebhookURL == req.WebhookURL
		fromText := strings.Contains(lowerText, strings.ToLower(req.WebhookURL))
		if !fromPrior && !fromText {
			log.Warn().Str("webhook_url", req.WebhookURL).Msg("dropping webhook url not present in conversation")
			req.WebhookURL = ""
		}
	}

	if prior != nil && prior.TargetCurrency != "" && req.TargetCurrency != prior.TargetCurrency {
		if !strings.Contains(lowerText, strings.ToLower(req.TargetCurrency)) {
			req.TargetCurrency = prior.TargetCurrency
		}
	}
}

func stripFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
