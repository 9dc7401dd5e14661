package toolloop

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/merchkit/procurement-agent/agent/contract"
	planx "github.com/merchkit/procurement-agent/agent/plan"
)

// State is the loop's explicit lifecycle. The loop is a bounded state
// machine, not open-ended recursion: it always reaches Done or Aborted.
type State string

const (
	StateRunning            State = "running"
	StateAwaitingToolResult State = "awaiting_tool_result"
	StateDone               State = "done"
	StateAborted            State = "aborted"
)

const DefaultMaxSteps = 8

// ToolInvocation records one executed tool call for the run trace.
type ToolInvocation struct {
	Name   string         `json:"name"`
	Args   map[string]any `json:"args,omitempty"`
	Result any            `json:"result,omitempty"`
}

// Outcome is the result of one autonomous run.
type Outcome struct {
	Plan    contractx.ProcurementPlan
	State   State
	Trace   []ToolInvocation
	Summary string
}

// Loop lets the model sequence the same capability-backed operations the
// deterministic pipeline uses. Only the sequencing decision belongs to the
// model; execution goes through the shared components.
type Loop struct {
	model     einomodel.ToolCallingChatModel
	prompt    string
	sourcer   contractx.Sourcer
	converter contractx.Converter
	notifier  contractx.Notifier
	maxSteps  int
}

func New(
	model einomodel.ToolCallingChatModel,
	systemPrompt string,
	sourcer contractx.Sourcer,
	converter contractx.Converter,
	notifier contractx.Notifier,
	maxSteps int,
) (*Loop, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}
	if sourcer == nil || converter == nil || notifier == nil {
		return nil, fmt.Errorf("%w: sourcer, converter and notifier are required", contractx.ErrValidation)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: tool loop prompt is required", contractx.ErrValidation)
	}
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	bound, err := model.WithTools(toolInfos())
	if err != nil {
		return nil, fmt.Errorf("%w: bind tools: %v", contractx.ErrModelInvoke, err)
	}

	return &Loop{
		model:     bound,
		prompt:    systemPrompt,
		sourcer:   sourcer,
		converter: converter,
		notifier:  notifier,
		maxSteps:  maxSteps,
	}, nil
}

// Run drives the model through at most maxSteps iterations and assembles a
// plan from whatever the model accomplished, filling in any skipped steps
// itself. It never fails on model misbehavior; only context cancellation and
// internal errors propagate.
func (l *Loop) Run(ctx context.Context, req contractx.ProcurementRequest, userText string) (Outcome, error) {
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: marshal request: %v", contractx.ErrValidation, err)
	}

	messages := []*schema.Message{
		schema.SystemMessage(l.prompt),
		schema.AssistantMessage(
			"The user's request has been parsed into this structure:\n"+string(reqJSON)+
				"\nUse it as the basis for tool calls.", nil),
		schema.UserMessage(userText),
	}

	run := &runState{state: StateRunning}

	for step := 0; step < l.maxSteps && run.state != StateDone; step++ {
		msg, genErr := l.model.Generate(ctx, messages)
		if genErr != nil {
			if ctx.Err() != nil {
				return Outcome{}, ctx.Err()
			}
			log.Warn().Err(genErr).Int("step", step).Msg("tool loop model invoke failed, aborting loop")
			break
		}

		if len(msg.ToolCalls) == 0 {
			run.summary = strings.TrimSpace(msg.Content)
			run.state = StateDone
			break
		}

		run.state = StateAwaitingToolResult
		messages = append(messages, msg)

		for _, tc := range msg.ToolCalls {
			result := l.execute(ctx, run, req, tc)
			resultJSON, marshalErr := json.Marshal(result)
			if marshalErr != nil {
				resultJSON = []byte(fmt.Sprintf(`{"error":%q}`, marshalErr.Error()))
			}
			messages = append(messages, schema.ToolMessage(string(resultJSON), tc.ID))
			if run.state == StateDone {
				break
			}
		}
		if run.state == StateAwaitingToolResult {
			run.state = StateRunning
		}
	}

	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	if run.state != StateDone {
		run.state = StateAborted
	}

	p := l.assemble(ctx, req, run)
	return Outcome{
		Plan:    p,
		State:   run.state,
		Trace:   run.trace,
		Summary: run.summary,
	}, nil
}

// runState accumulates what the model actually did across iterations.
type runState struct {
	state    State
	trace    []ToolInvocation
	summary  string
	sourcing *contractx.SourcingResult
	fx       *contractx.ConversionResult
	notified *contractx.NotifyOutcome
}

func (r *runState) record(name string, args map[string]any, result any) {
	r.trace = append(r.trace, ToolInvocation{Name: name, Args: args, Result: result})
}

// execute runs one model-chosen tool call through the shared components.
// Malformed payloads are recoverable: the model sees an error result and may
// correct itself on the next iteration.
func (l *Loop) execute(ctx context.Context, run *runState, req contractx.ProcurementRequest, tc schema.ToolCall) any {
	name := strings.TrimSpace(tc.Function.Name)

	args := map[string]any{}
	if raw := strings.TrimSpace(tc.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			result := map[string]any{"error": fmt.Sprintf("invalid arguments for %s: %v", name, err)}
			run.record(name, nil, result)
			return result
		}
	}

	var result any
	switch name {
	case toolSupplierGetOffers:
		items := decodeItems(args["items"])
		if len(items) == 0 {
			items = req.Items
		}
		sr, err := l.sourcer.Source(ctx, items)
		if err != nil {
			result = map[string]any{"error": err.Error()}
			break
		}
		run.sourcing = &sr
		result = sr

	case toolFXConvertAmount:
		amount, _ := args["amount"].(float64)
		base, _ := args["base"].(string)
		quote, _ := args["quote"].(string)
		if base == "" || quote == "" {
			result = map[string]any{"error": "fx_convert_amount requires base and quote"}
			break
		}
		conv := l.converter.Normalize(ctx, amount, base, quote)
		run.fx = &conv
		result = conv

	case toolNotifySendPlan:
		url, _ := args["url"].(string)
		if strings.TrimSpace(url) == "" {
			result = map[string]any{"error": "notify_send_plan called without url"}
			break
		}
		outcome := l.notifier.Send(ctx, url, args["plan"])
		run.notified = &outcome
		result = outcome

	case toolFinalAnswer:
		summary, _ := args["summary"].(string)
		run.summary = strings.TrimSpace(summary)
		run.state = StateDone
		result = map[string]any{"ok": true}

	default:
		result = map[string]any{"error": fmt.Sprintf("unknown tool %q", name)}
	}

	run.record(name, args, result)
	return result
}

// assemble builds the terminal plan, performing the supplier and FX steps
// itself when the model skipped them or produced mismatched calls.
func (l *Loop) assemble(ctx context.Context, req contractx.ProcurementRequest, run *runState) contractx.ProcurementPlan {
	sourcing := run.sourcing
	if sourcing == nil {
		log.Info().Msg("model never sourced offers, running supplier step directly")
		sr, err := l.sourcer.Source(ctx, req.Items)
		if err != nil {
			sr = contractx.SourcingResult{
				Offers:          map[string]contractx.Offer{},
				UnavailableSKUs: skus(req.Items),
				ProviderTier:    contractx.TierDemoFallback,
			}
		}
		run.record(toolSupplierGetOffers+" (auto)", nil, sr)
		sourcing = &sr
	}

	var conversion *contractx.ConversionResult
	needFX := !strings.EqualFold(sourcing.Currency, req.TargetCurrency) && sourcing.TotalCost > 0
	if needFX {
		conversion = run.fx
		if conversion == nil ||
			!strings.EqualFold(conversion.Base, sourcing.Currency) ||
			!strings.EqualFold(conversion.Quote, req.TargetCurrency) {
			conv := l.converter.Normalize(ctx, sourcing.TotalCost, sourcing.Currency, req.TargetCurrency)
			run.record(toolFXConvertAmount+" (auto)", nil, conv)
			conversion = &conv
		}
	}

	p := planx.Assemble(req, *sourcing, conversion)
	p.ID = uuid.NewString()

	notified := run.notified
	if notified == nil && strings.TrimSpace(req.WebhookURL) != "" {
		outcome := l.notifier.Send(ctx, req.WebhookURL, p)
		run.record(toolNotifySendPlan+" (auto)", nil, outcome)
		notified = &outcome
	}
	p = planx.WithNotification(p, notified)

	if run.state == StateAborted {
		p = planx.WithWarning(p, fmt.Sprintf("tool loop did not finish within %d steps; plan assembled from partial results", l.maxSteps))
	}
	return p
}

func decodeItems(raw any) []contractx.LineItem {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var items []contractx.LineItem
	if err := json.Unmarshal(encoded, &items); err != nil {
		return nil
	}
	out := items[:0]
	for _, it := range items {
		if strings.TrimSpace(it.SKU) != "" && it.Quantity > 0 {
			out = append(out, it)
		}
	}
	return out
}

func skus(items []contractx.LineItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.SKU)
	}
	return out
}
