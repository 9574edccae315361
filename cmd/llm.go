package cmd

import (
	"os"

	"github.com/spf13/viper"

	"github.com/joescharf/urbaneyes/internal/classify"
	"github.com/joescharf/urbaneyes/internal/llm"
)

// newLLMClient creates an LLM client from config/env, or returns nil if no API key is configured.
func newLLMClient() *llm.Client {
	apiKey := viper.GetString("anthropic.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil
	}
	return llm.NewClient(apiKey, viper.GetString("anthropic.model"))
}

// newSuggester returns a category suggester that uses the LLM when configured.
func newSuggester() *classify.Suggester {
	if c := newLLMClient(); c != nil {
		return classify.New(c)
	}
	return classify.New(nil)
}
