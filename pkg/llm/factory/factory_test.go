package factory

import (
	"testing"

	"avatar-engine-be/pkg/llm/huggingface"
	"avatar-engine-be/pkg/llm/ollama"
	"avatar-engine-be/pkg/llm/openai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProvider(t *testing.T) {
	p, err := NewLLMProvider(Config{Provider: "ollama", Model: "llama3"})
	require.NoError(t, err)
	assert.IsType(t, &ollama.OllamaProvider{}, p)

	p, err = NewLLMProvider(Config{Provider: "huggingface", Model: "m"})
	require.NoError(t, err)
	assert.IsType(t, &huggingface.HuggingFaceProvider{}, p)

	p, err = NewLLMProvider(Config{Provider: "openai", APIKey: "sk-test"})
	require.NoError(t, err)
	assert.IsType(t, &openai.OpenAIProvider{}, p)

	_, err = NewLLMProvider(Config{Provider: "openai"})
	assert.Error(t, err)

	_, err = NewLLMProvider(Config{Provider: "gpt-local"})
	assert.ErrorContains(t, err, "unsupported LLM provider")
}
