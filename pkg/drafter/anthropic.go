// Package drafter generates the initial feedback text for patient journal
// entries. Two implementations: the Anthropic client for real deployments
// and a deterministic template for development and tests. Both produce
// drafts only; nothing reaches a patient without clinician review.
package drafter

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/carelog/carelog_backend/internal/model"
)

const systemPrompt = "You draft supportive, plain-language feedback on a patient's " +
	"care journal entry for clinician review. Acknowledge what the patient " +
	"reported, never diagnose, never suggest medication changes, and keep it " +
	"under 150 words."

type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int64
}

// Anthropic drafts feedback with a Claude model.
type Anthropic struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

func NewAnthropic(cfg AnthropicConfig) (*Anthropic, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("anthropic model is required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}

	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))

	return &Anthropic{
		client:    &client,
		model:     anthropic.Model(cfg.Model),
		maxTokens: cfg.MaxTokens,
	}, nil
}

func (a *Anthropic) Draft(ctx context.Context, note model.Note) (string, error) {
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System: []anthropic.TextBlockParam{
			{Type: "text", Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(notePrompt(note))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var sb strings.Builder
	for _, content := range message.Content {
		if content.Type == "text" {
			sb.WriteString(content.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("anthropic returned no text content")
	}
	return text, nil
}

func notePrompt(note model.Note) string {
	return fmt.Sprintf(
		"Journal entry from %s.\nMood: %d/10\nPain: %d/10\nAppetite: %d/10\n\n%s",
		note.CreatedAt.Format("2006-01-02"),
		note.Mood, note.Pain, note.Appetite,
		note.Narrative,
	)
}
