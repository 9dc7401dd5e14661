package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/interpreter.txt
	interpreterRaw string

	//go:embed template/summarizer.txt
	summarizerRaw string

	//go:embed template/toolloop.txt
	toolLoopRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Interpreter string
	Summarizer  string
	ToolLoop    string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings. Safe to call
// concurrently; the embed is compile-time and trimming is cheap.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Interpreter: strings.TrimSpace(interpreterRaw),
		Summarizer:  strings.TrimSpace(summarizerRaw),
		ToolLoop:    strings.TrimSpace(toolLoopRaw),
	}
}
