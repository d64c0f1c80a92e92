// Package llm generates grounded answers from an assembled context,
// wrapping anthropic-sdk-go. The domain stack originally reached for a
// single chat-completion call per ask; this wraps that call behind a
// small Generator interface so pkg/ask can swap in FakeGenerator for
// FAKE_LLM=1 development without touching orchestration logic.
package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type Client struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

func NewClient(apiKey, model string, maxTokens int64, temperature float64) *Client {
	return &Client{
		client:      anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm: generate: %w", err)
	}

	for _, block := range resp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("llm: response contained no text block")
}
