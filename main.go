package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/merchkit/procurement-agent/agent/agents/orchestrator"
	"github.com/merchkit/procurement-agent/agent/agents/toolloop"
	contractx "github.com/merchkit/procurement-agent/agent/contract"
	fxx "github.com/merchkit/procurement-agent/agent/fx"
	"github.com/merchkit/procurement-agent/agent/interpret"
	llmx "github.com/merchkit/procurement-agent/agent/llm"
	notifyx "github.com/merchkit/procurement-agent/agent/notify"
	"github.com/merchkit/procurement-agent/agent/prompt"
	"github.com/merchkit/procurement-agent/agent/sourcing"
	statex "github.com/merchkit/procurement-agent/agent/state"
	configx "github.com/merchkit/procurement-agent/pkg/config"
	fakestorex "github.com/merchkit/procurement-agent/pkg/fakestore"
	fxapix "github.com/merchkit/procurement-agent/pkg/fxapi"
	_ "github.com/merchkit/procurement-agent/pkg/logger/autoload"
	openrouterx "github.com/merchkit/procurement-agent/pkg/openrouter"
	printfulx "github.com/merchkit/procurement-agent/pkg/printful"
	webhookx "github.com/merchkit/procurement-agent/pkg/webhook"
)

func main() {
	ctx := context.Background()

	svc, err := buildService(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}

	sessionID := uuid.NewString()
	fmt.Printf("procurement agent ready (session %s)\n", sessionID)
	fmt.Println("describe what to buy, or /reset to start over, /quit to exit")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return
		case line == "/reset":
			svc.ResetSession(sessionID)
			sessionID = uuid.NewString()
			fmt.Printf("session reset (%s)\n", sessionID)
			continue
		}

		result, err := svc.HandleTurn(ctx, sessionID, line)
		if err != nil {
			if errors.Is(err, contractx.ErrInterpretation) {
				fmt.Println("I could not turn that into a procurement request. Please tell me the items, quantities, and target currency.")
				continue
			}
			log.Error().Err(err).Msg("turn failed")
			fmt.Println("something went wrong handling that request, please try again")
			continue
		}

		fmt.Println(result.Summary)
		planJSON, err := json.MarshalIndent(result.Plan, "", "  ")
		if err == nil {
			fmt.Println(string(planJSON))
		}
	}
}

func buildService(ctx context.Context) (*orchestrator.Service, error) {
	llmCfg := configx.MustLoad[llmx.Config]("LLM")
	if err := llmCfg.Validate(); err != nil {
		return nil, err
	}
	agentCfg := configx.MustLoad[orchestrator.Config]("AGENT")
	printfulCfg := configx.MustLoad[printfulx.Config]("PRINTFUL")
	fakestoreCfg := configx.MustLoad[fakestorex.Config]("FAKESTORE")
	fxCfg := configx.MustLoad[fxapix.Config]("FX")
	webhookCfg := configx.MustLoad[webhookx.Config]("WEBHOOK")

	prompts := prompt.LoadPromptSet()

	interpModelCfg := llmCfg.OpenRouterFor(llmx.RoleInterpreter)
	interpModel, err := interpModelCfg.New(ctx)
	if err != nil {
		return nil, err
	}
	interp, err := interpret.New(interpModel, prompts.Interpreter)
	if err != nil {
		return nil, err
	}

	printfulClient, err := printfulx.NewClient(*printfulCfg)
	if err != nil {
		return nil, err
	}
	fakestoreClient, err := fakestorex.NewClient(*fakestoreCfg)
	if err != nil {
		return nil, err
	}
	fxClient, err := fxapix.NewClient(*fxCfg)
	if err != nil {
		return nil, err
	}

	converter := fxx.NewNormalizer(fxClient)
	sourcer := sourcing.New(printfulClient, fakestoreClient, converter)
	dispatcher := notifyx.NewDispatcher(webhookx.NewClient(*webhookCfg))

	summarizerCfg := llmCfg.OpenRouterFor(llmx.RoleSummarizer)
	summarizer := orchestrator.NewSummarizer(openrouterx.NewClient(summarizerCfg), summarizerCfg, prompts.Summarizer)

	var loop *toolloop.Loop
	if agentCfg.Mode == orchestrator.ModeToolsAgent {
		loopModelCfg := llmCfg.OpenRouterFor(llmx.RoleToolLoop)
		loopModel, err := loopModelCfg.New(ctx)
		if err != nil {
			return nil, err
		}
		loop, err = toolloop.New(loopModel, prompts.ToolLoop, sourcer, converter, dispatcher, agentCfg.MaxSteps)
		if err != nil {
			return nil, err
		}
	}

	return orchestrator.New(
		statex.NewManager(),
		interp,
		sourcer,
		converter,
		dispatcher,
		summarizer,
		loop,
		*agentCfg,
	)
}
