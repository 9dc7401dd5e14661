package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/merchkit/procurement-agent/agent/contract"
	openrouterx "github.com/merchkit/procurement-agent/pkg/openrouter"
)

// Role names one of the model call sites; each can override the default
// model and temperature.
type Role string

const (
	RoleInterpreter Role = "interpreter"
	RoleSummarizer  Role = "summarizer"
	RoleToolLoop    Role = "toolloop"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.2"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	InterpreterModel       string  `envconfig:"INTERPRETER_MODEL" split_words:"true"`
	SummarizerModel        string  `envconfig:"SUMMARIZER_MODEL" split_words:"true"`
	ToolLoopModel          string  `envconfig:"TOOLLOOP_MODEL" split_words:"true"`
	InterpreterTemperature float32 `envconfig:"INTERPRETER_TEMPERATURE" split_words:"true" default:"-1"`
	SummarizerTemperature  float32 `envconfig:"SUMMARIZER_TEMPERATURE" split_words:"true" default:"-1"`
	ToolLoopTemperature    float32 `envconfig:"TOOLLOOP_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: llm api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// OpenRouterFor resolves the effective model settings for one role.
func (c Config) OpenRouterFor(role Role) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	switch role {
	case RoleInterpreter:
		if v := strings.TrimSpace(c.InterpreterModel); v != "" {
			modelName = v
		}
		if c.InterpreterTemperature >= 0 {
			temp = c.InterpreterTemperature
		}
	case RoleSummarizer:
		if v := strings.TrimSpace(c.SummarizerModel); v != "" {
			modelName = v
		}
		if c.SummarizerTemperature >= 0 {
			temp = c.SummarizerTemperature
		}
	case RoleToolLoop:
		if v := strings.TrimSpace(c.ToolLoopModel); v != "" {
			modelName = v
		}
		if c.ToolLoopTemperature >= 0 {
			temp = c.ToolLoopTemperature
		}
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
