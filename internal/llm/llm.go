package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Suggestion is the model's pick of a category for a reported issue.
type Suggestion struct {
	Category string `json:"category"` // empty when no category fits
	Reason   string `json:"reason"`
}

// Client wraps the Anthropic API for issue triage.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// buildSuggestPrompt constructs the system and user prompts for category suggestion.
func buildSuggestPrompt(title, description string, categories []string) (system string, user string) {
	system = `You triage issues reported by citizens to a city's public works department. Given an issue's title, optional description, and the list of existing categories, pick the single best category. Return ONLY a JSON object with exactly two fields:

- "category": the chosen category name, copied exactly from the list, or "" if none of them fits
- "reason": one short sentence explaining the choice

Rules:
- Never invent a category that is not in the list
- Prefer the most specific category when several could apply
- Return valid JSON only, no markdown fencing or explanation`

	var sb strings.Builder
	sb.WriteString("Categories: ")
	sb.WriteString(strings.Join(categories, ", "))
	sb.WriteString("\n\nIssue title: ")
	sb.WriteString(title)
	sb.WriteString("\n")
	if description != "" {
		sb.WriteString("\nDescription:\n")
		sb.WriteString(description)
		sb.WriteString("\n")
	}
	user = sb.String()
	return
}

// stripFences removes a surrounding markdown code fence, if present.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}

// parseSuggestion decodes the model's reply and checks the category is one
// of the offered names (case-insensitive), normalizing its spelling.
func parseSuggestion(text string, categories []string) (*Suggestion, error) {
	text = stripFences(text)

	var s Suggestion
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return nil, fmt.Errorf("parse LLM response as JSON: %w\nraw response: %s", err, text)
	}

	if s.Category == "" {
		return &s, nil
	}
	for _, name := range categories {
		if strings.EqualFold(strings.TrimSpace(s.Category), name) {
			s.Category = name
			return &s, nil
		}
	}
	return nil, fmt.Errorf("LLM suggested unknown category %q", s.Category)
}

// SuggestCategory asks the model which of the given categories fits an issue.
func (c *Client) SuggestCategory(ctx context.Context, title, description string, categories []string) (*Suggestion, error) {
	if len(categories) == 0 {
		return &Suggestion{}, nil
	}
	systemPrompt, userPrompt := buildSuggestPrompt(title, description, categories)

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 512,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call: %w", err)
	}

	// Extract text from response
	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	if text == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	return parseSuggestion(text, categories)
}
