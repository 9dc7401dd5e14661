package orchestrator

import (
	"context"
	"encoding/json"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/rs/zerolog/log"

	contractx "github.com/merchkit/procurement-agent/agent/contract"
	planx "github.com/merchkit/procurement-agent/agent/plan"
	openrouterx "github.com/merchkit/procurement-agent/pkg/openrouter"
)

// Summarizer turns a finished plan into a short human reply through the raw
// chat-completions SDK. Model failures degrade to a deterministic text
// rendering; summarization never fails a turn.
type Summarizer struct {
	client *openaisdk.Client
	model  string
	temp   float32
	prompt string
}

func NewSummarizer(client *openaisdk.Client, cfg openrouterx.Config, systemPrompt string) *Summarizer {
	return &Summarizer{
		client: client,
		model:  strings.TrimSpace(cfg.Model),
		temp:   cfg.Temperature,
		prompt: strings.TrimSpace(systemPrompt),
	}
}

func (s *Summarizer) Summarize(ctx context.Context, p contractx.ProcurementPlan) string {
	if s == nil || s.client == nil || s.model == "" || s.prompt == "" {
		return renderFallback(p)
	}

	planJSON, err := json.Marshal(p)
	if err != nil {
		return renderFallback(p)
	}

	completion, err := s.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(s.prompt),
			openaisdk.UserMessage(string(planJSON)),
		},
		Model:       openaisdk.ChatModel(s.model),
		Temperature: openaisdk.Float(float64(s.temp)),
	})
	if err != nil {
		log.Warn().Err(err).Str("plan_id", p.ID).Msg("plan summary model invoke failed, using text rendering")
		return renderFallback(p)
	}
	if len(completion.Choices) == 0 {
		return renderFallback(p)
	}

	summary := strings.TrimSpace(completion.Choices[0].Message.Content)
	if summary == "" {
		return renderFallback(p)
	}
	return summary
}

func renderFallback(p contractx.ProcurementPlan) string {
	return planx.RenderText(p)
}
