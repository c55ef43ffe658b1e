// Package llm abstracts model invocation behind a single interface so
// the analysis and synthesis stages stay independent of the model
// family serving them.
package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/intel-cli/pkg/anthropic"
	"github.com/sells-group/intel-cli/pkg/openai"
)

// Invocation holds the parameters for a single model call.
type Invocation struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// Invoker issues one model call and returns the raw text output.
// Implementations exist per model family; callers never see any
// provider SDK type.
type Invoker interface {
	Invoke(ctx context.Context, inv Invocation) (string, error)
}

// AnthropicInvoker adapts pkg/anthropic to the Invoker interface.
type AnthropicInvoker struct {
	client anthropic.Client
	model  string
	phase  string
}

// NewAnthropicInvoker returns an Invoker backed by the given Anthropic
// client and model. phase labels cost-attribution log lines.
func NewAnthropicInvoker(client anthropic.Client, model, phase string) *AnthropicInvoker {
	return &AnthropicInvoker{client: client, model: model, phase: phase}
}

func (a *AnthropicInvoker) Invoke(ctx context.Context, inv Invocation) (string, error) {
	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       a.model,
		MaxTokens:   int64(inv.MaxTokens),
		System:      inv.System,
		Messages:    []anthropic.Message{{Role: "user", Content: inv.User}},
		Temperature: &inv.Temperature,
	})
	if err != nil {
		return "", eris.Wrap(err, "llm: anthropic invoke")
	}
	resp.Usage.LogCost(a.model, a.phase)
	return resp.Text(), nil
}

// OpenAIInvoker adapts pkg/openai to the Invoker interface.
type OpenAIInvoker struct {
	client openai.Client
	model  string
}

// NewOpenAIInvoker returns an Invoker backed by the given OpenAI
// client and model.
func NewOpenAIInvoker(client openai.Client, model string) *OpenAIInvoker {
	return &OpenAIInvoker{client: client, model: model}
}

func (o *OpenAIInvoker) Invoke(ctx context.Context, inv Invocation) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatRequest{
		Model:       o.model,
		MaxTokens:   inv.MaxTokens,
		System:      inv.System,
		User:        inv.User,
		Temperature: &inv.Temperature,
	})
	if err != nil {
		return "", eris.Wrap(err, "llm: openai invoke")
	}
	return resp.Content, nil
}
