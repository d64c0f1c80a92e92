package llm

import (
	"context"
	"fmt"
)

// FakeGenerator echoes a canned, deterministic answer referencing whatever
// context it was given, for local development and tests under FAKE_LLM=1.
type FakeGenerator struct{}

func NewFakeGenerator() *FakeGenerator { return &FakeGenerator{} }

func (FakeGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return fmt.Sprintf("[fake-llm] respuesta generada a partir del contexto provisto (%d caracteres).", len(userPrompt)), nil
}
