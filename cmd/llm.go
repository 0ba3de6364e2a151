package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/joescharf/swipe/internal/llm"
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

// requireLLMClient is newLLMClient for commands that cannot run without one.
func requireLLMClient() (*llm.Client, error) {
	c := newLLMClient()
	if c == nil {
		return nil, fmt.Errorf("no Anthropic API key: set ANTHROPIC_API_KEY or anthropic.api_key in config")
	}
	return c, nil
}
