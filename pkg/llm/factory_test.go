package llm

import (
	"testing"

	"go.uber.org/zap"
)

func TestNewClientForProvider_OpenAI(t *testing.T) {
	client, err := NewClientForProvider(&Config{
		Provider: "openai",
		Model:    "gpt-4o",
		APIKey:   "test-key",
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := client.(*Client); !ok {
		t.Errorf("expected *Client, got %T", client)
	}
	if client.GetModel() != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %s", client.GetModel())
	}
}

func TestNewClientForProvider_DefaultsToOpenAI(t *testing.T) {
	client, err := NewClientForProvider(&Config{Model: "gpt-4o"}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := client.(*Client); !ok {
		t.Errorf("expected *Client, got %T", client)
	}
}

func TestNewClientForProvider_Anthropic(t *testing.T) {
	client, err := NewClientForProvider(&Config{
		Provider: "anthropic",
		Model:    "claude-sonnet-4-0",
		APIKey:   "test-key",
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := client.(*AnthropicClient); !ok {
		t.Errorf("expected *AnthropicClient, got %T", client)
	}
}

func TestNewClientForProvider_UnknownProvider(t *testing.T) {
	_, err := NewClientForProvider(&Config{Provider: "cohere", Model: "m"}, zap.NewNop())
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNewClientForProvider_MissingModel(t *testing.T) {
	_, err := NewClientForProvider(&Config{Provider: "openai"}, zap.NewNop())
	if err == nil {
		t.Fatal("expected error for missing model")
	}
}
