package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	"github.com/merchkit/procurement-agent/agent/agents/toolloop"
	contractx "github.com/merchkit/procurement-agent/agent/contract"
	notifyx "github.com/merchkit/procurement-agent/agent/notify"
	statex "github.com/merchkit/procurement-agent/agent/state"
)

// Mode selects how a turn is executed after interpretation: a fixed
// deterministic pipeline, or a model-sequenced tool loop bounded by a step
// budget. Both produce the same plan shape.
type Mode string

const (
	ModePipeline   Mode = "pipeline"
	ModeToolsAgent Mode = "tools-agent"
)

type Config struct {
	Mode Mode `envconfig:"MODE" split_words:"true" default:"pipeline"`
	// Iteration bound for tools-agent mode; zero means the loop default.
	MaxSteps int `envconfig:"MAX_STEPS" split_words:"true" default:"8"`
}

func (c Config) Validate() error {
	if c.MaxSteps < 0 {
		return fmt.Errorf("%w: max steps must not be negative", contractx.ErrValidation)
	}
	switch c.Mode {
	case ModePipeline, ModeToolsAgent:
		return nil
	default:
		return fmt.Errorf("%w: unknown mode %q", contractx.ErrValidation, c.Mode)
	}
}

// TurnResult is what one user turn produces: the terminal plan plus a human
// summary. Trace and LoopState are populated only in tools-agent mode.
type TurnResult struct {
	Plan      contractx.ProcurementPlan
	Summary   string
	Mode      Mode
	LoopState toolloop.State
	Trace     []toolloop.ToolInvocation
}

// Service is the mode controller: it merges each turn into session state via
// the interpreter, then executes the turn in the configured mode.
type Service struct {
	states     *statex.Manager
	interp     contractx.Interpreter
	sourcer    contractx.Sourcer
	converter  contractx.Converter
	dispatcher *notifyx.Dispatcher
	summarizer *Summarizer
	loop       *toolloop.Loop
	mode       Mode

	pipeline compose.Runnable[pipelineInput, pipelineOutput]
}

func New(
	states *statex.Manager,
	interp contractx.Interpreter,
	sourcer contractx.Sourcer,
	converter contractx.Converter,
	dispatcher *notifyx.Dispatcher,
	summarizer *Summarizer,
	loop *toolloop.Loop,
	cfg Config,
) (*Service, error) {
	if states == nil {
		return nil, fmt.Errorf("%w: session state manager is required", contractx.ErrValidation)
	}
	if interp == nil {
		return nil, fmt.Errorf("%w: interpreter is required", contractx.ErrValidation)
	}
	if sourcer == nil || converter == nil || dispatcher == nil {
		return nil, fmt.Errorf("%w: sourcer, converter and dispatcher are required", contractx.ErrValidation)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Mode == ModeToolsAgent && loop == nil {
		return nil, fmt.Errorf("%w: tools-agent mode requires a tool loop", contractx.ErrValidation)
	}

	s := &Service{
		states:     states,
		interp:     interp,
		sourcer:    sourcer,
		converter:  converter,
		dispatcher: dispatcher,
		summarizer: summarizer,
		loop:       loop,
		mode:       cfg.Mode,
	}

	pipeline, err := s.compilePipelineGraph(context.Background())
	if err != nil {
		return nil, err
	}
	s.pipeline = pipeline

	return s, nil
}

// HandleTurn runs one conversational turn for a session. Interpretation
// failures leave session state untouched and surface as an error wrapping
// ErrInterpretation, so callers can ask the user to rephrase.
func (s *Service) HandleTurn(ctx context.Context, sessionID string, text string) (*TurnResult, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: message text is required", contractx.ErrValidation)
	}

	req, err := s.states.Merge(ctx, sessionID, text, s.interp)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("session_id", sessionID).
		Str("mode", string(s.mode)).
		Int("items", len(req.Items)).
		Str("target_currency", req.TargetCurrency).
		Msg("turn interpreted")

	switch s.mode {
	case ModeToolsAgent:
		return s.runToolsAgent(ctx, req, text)
	default:
		return s.runPipeline(ctx, req)
	}
}

func (s *Service) runPipeline(ctx context.Context, req contractx.ProcurementRequest) (*TurnResult, error) {
	out, err := s.pipeline.Invoke(ctx, pipelineInput{Request: req})
	if err != nil {
		return nil, err
	}
	return &TurnResult{
		Plan:    out.Plan,
		Summary: s.summarize(ctx, out.Plan),
		Mode:    ModePipeline,
	}, nil
}

func (s *Service) runToolsAgent(ctx context.Context, req contractx.ProcurementRequest, text string) (*TurnResult, error) {
	outcome, err := s.loop.Run(ctx, req, text)
	if err != nil {
		return nil, err
	}
	summary := outcome.Summary
	if summary == "" {
		summary = s.summarize(ctx, outcome.Plan)
	}
	return &TurnResult{
		Plan:      outcome.Plan,
		Summary:   summary,
		Mode:      ModeToolsAgent,
		LoopState: outcome.State,
		Trace:     outcome.Trace,
	}, nil
}

func (s *Service) summarize(ctx context.Context, p contractx.ProcurementPlan) string {
	if s.summarizer == nil {
		return renderFallback(p)
	}
	return s.summarizer.Summarize(ctx, p)
}

// ResetSession discards accumulated state for one session.
func (s *Service) ResetSession(sessionID string) {
	s.states.Drop(sessionID)
}
