package notify

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/merchkit/procurement-agent/agent/contract"
	webhookx "github.com/merchkit/procurement-agent/pkg/webhook"
)

type fakeWebhookClient struct {
	result *webhookx.Result
	err    error
	calls  int
	urls   []string
}

func (f *fakeWebhookClient) Post(ctx context.Context, url string, payload any) (*webhookx.Result, error) {
	f.calls++
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestDispatchWithoutWebhookMakesNoCall(t *testing.T) {
	t.Parallel()

	client := &fakeWebhookClient{}
	d := NewDispatcher(client)

	outcome := d.Dispatch(context.Background(), contractx.ProcurementPlan{})

	if outcome != nil {
		t.Fatalf("no webhook url must mean no outcome, got %#v", outcome)
	}
	if client.calls != 0 {
		t.Fatalf("no webhook url must mean zero delivery calls, got %d", client.calls)
	}
}

func TestDispatchDeliversPlanToItsWebhook(t *testing.T) {
	t.Parallel()

	client := &fakeWebhookClient{result: &webhookx.Result{StatusCode: 200, OK: true}}
	d := NewDispatcher(client)

	p := contractx.ProcurementPlan{
		Request: contractx.ProcurementRequest{WebhookURL: "https://hooks.example/p1"},
	}
	outcome := d.Dispatch(context.Background(), p)

	if outcome == nil || !outcome.OK || outcome.StatusCode != 200 {
		t.Fatalf("unexpected outcome: %#v", outcome)
	}
	if client.calls != 1 || client.urls[0] != "https://hooks.example/p1" {
		t.Fatalf("expected one delivery to the plan's webhook, got %v", client.urls)
	}
}

func TestSendTransportFailure(t *testing.T) {
	t.Parallel()

	client := &fakeWebhookClient{err: errors.New("connection refused")}
	d := NewDispatcher(client)

	outcome := d.Send(context.Background(), "https://hooks.example/p1", map[string]any{"k": "v"})

	if outcome.OK || outcome.StatusCode != 0 {
		t.Fatalf("transport failure must yield zero-status outcome, got %#v", outcome)
	}
}

func TestSendNon2xx(t *testing.T) {
	t.Parallel()

	client := &fakeWebhookClient{result: &webhookx.Result{StatusCode: 503, OK: false}}
	d := NewDispatcher(client)

	outcome := d.Send(context.Background(), "https://hooks.example/p1", nil)

	if outcome.OK || outcome.StatusCode != 503 {
		t.Fatalf("unexpected outcome: %#v", outcome)
	}
}

func TestSendWithoutClient(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(nil)
	outcome := d.Send(context.Background(), "https://hooks.example/p1", nil)
	if outcome.OK || outcome.StatusCode != 0 {
		t.Fatalf("missing client must degrade to failed outcome, got %#v", outcome)
	}
}
