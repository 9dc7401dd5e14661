package notify

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/merchkit/procurement-agent/agent/contract"
	webhookx "github.com/merchkit/procurement-agent/pkg/webhook"
)

// WebhookClient is the delivery capability contract.
type WebhookClient interface {
	Post(ctx context.Context, url string, payload any) (*webhookx.Result, error)
}

// Dispatcher sends assembled plans to the request's webhook, at most once per
// plan. Delivery problems become outcomes, never errors: a failed webhook
// must not invalidate an otherwise valid plan.
type Dispatcher struct {
	client WebhookClient
}

func NewDispatcher(client WebhookClient) *Dispatcher {
	return &Dispatcher{client: client}
}

// Dispatch posts the plan to its own webhook URL. Returns nil when the
// request names no webhook; no call is made in that case.
func (d *Dispatcher) Dispatch(ctx context.Context, p contractx.ProcurementPlan) *contractx.NotifyOutcome {
	url := strings.TrimSpace(p.Request.WebhookURL)
	if url == "" {
		return nil
	}
	outcome := d.Send(ctx, url, p)
	return &outcome
}

// Send posts an arbitrary payload to a webhook URL. Transport failures are
// reported as a zero status code with OK=false.
func (d *Dispatcher) Send(ctx context.Context, url string, payload any) contractx.NotifyOutcome {
	if d.client == nil {
		log.Error().Str("url", url).Msg("webhook client not configured, delivery skipped")
		return contractx.NotifyOutcome{}
	}

	result, err := d.client.Post(ctx, url, payload)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("webhook delivery failed")
		return contractx.NotifyOutcome{}
	}

	log.Info().Str("url", url).Int("status", result.StatusCode).Bool("ok", result.OK).Msg("webhook delivered")
	return contractx.NotifyOutcome{
		StatusCode: result.StatusCode,
		OK:         result.OK,
	}
}

var _ contractx.Notifier = (*Dispatcher)(nil)
