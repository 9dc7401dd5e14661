package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"

	contractx "github.com/merchkit/procurement-agent/agent/contract"
	planx "github.com/merchkit/procurement-agent/agent/plan"
)

type pipelineInput struct {
	Request contractx.ProcurementRequest
}

type pipelineOutput struct {
	Plan contractx.ProcurementPlan
}

// pipelineState carries intermediate results between pipeline nodes.
type pipelineState struct {
	Request    contractx.ProcurementRequest
	Sourcing   contractx.SourcingResult
	Conversion *contractx.ConversionResult
	Plan       contractx.ProcurementPlan
}

func (s *Service) compilePipelineGraph(
	ctx context.Context,
) (compose.Runnable[pipelineInput, pipelineOutput], error) {
	graph := compose.NewGraph[pipelineInput, pipelineOutput]()

	if err := graph.AddLambdaNode("source_offers",
		compose.InvokableLambda(func(ctx context.Context, in pipelineInput) (*pipelineState, error) {
			sourcing, err := s.sourcer.Source(ctx, in.Request.Items)
			if err != nil {
				return nil, err
			}
			return &pipelineState{Request: in.Request, Sourcing: sourcing}, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node source_offers: %w", err)
	}

	if err := graph.AddLambdaNode("normalize_currency",
		compose.InvokableLambda(func(ctx context.Context, in *pipelineState) (*pipelineState, error) {
			if in.Sourcing.TotalCost > 0 && !strings.EqualFold(in.Sourcing.Currency, in.Request.TargetCurrency) {
				conv := s.converter.Normalize(ctx, in.Sourcing.TotalCost, in.Sourcing.Currency, in.Request.TargetCurrency)
				in.Conversion = &conv
			}
			return in, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node normalize_currency: %w", err)
	}

	if err := graph.AddLambdaNode("assemble_plan",
		compose.InvokableLambda(func(ctx context.Context, in *pipelineState) (*pipelineState, error) {
			in.Plan = planx.Assemble(in.Request, in.Sourcing, in.Conversion)
			in.Plan.ID = uuid.NewString()
			return in, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node assemble_plan: %w", err)
	}

	if err := graph.AddLambdaNode("notify_webhook",
		compose.InvokableLambda(func(ctx context.Context, in *pipelineState) (*pipelineState, error) {
			outcome := s.dispatcher.Dispatch(ctx, in.Plan)
			in.Plan = planx.WithNotification(in.Plan, outcome)
			return in, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node notify_webhook: %w", err)
	}

	if err := graph.AddLambdaNode("finalize",
		compose.InvokableLambda(func(ctx context.Context, in *pipelineState) (pipelineOutput, error) {
			return pipelineOutput{Plan: in.Plan}, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize: %w", err)
	}

	edges := [][2]string{
		{compose.START, "source_offers"},
		{"source_offers", "normalize_currency"},
		{"normalize_currency", "assemble_plan"},
		{"assemble_plan", "notify_webhook"},
		{"notify_webhook", "finalize"},
		{"finalize", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.procurement_pipeline"))
	if err != nil {
		return nil, fmt.Errorf("compile pipeline graph: %w", err)
	}
	return runner, nil
}
