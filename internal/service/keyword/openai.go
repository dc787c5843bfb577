package keyword

import (
	"context"

	"github.com/openai/openai-go"
	oaioption "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/errors"
)

// OpenAIGenerator calls an OpenAI-compatible chat completions endpoint in JSON object mode
type OpenAIGenerator struct {
	client      openai.Client
	model       string
	temperature float32
}

// NewOpenAIGenerator creates a chat completions client; baseURL may point at any compatible gateway
func NewOpenAIGenerator(apiKey, baseURL, model string, temperature float32) *OpenAIGenerator {
	opts := []oaioption.RequestOption{oaioption.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, oaioption.WithBaseURL(baseURL))
	}
	return &OpenAIGenerator{
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: temperature,
	}
}

// Generate returns the content of the first choice
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(g.model),
		Temperature: openai.Float(float64(g.temperature)),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		},
	})
	if err != nil {
		return "", errors.Wrap(err, errors.CodeExternal, "openai chat completion failed")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New(errors.CodeMalformedResponse, "openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Close is a no-op; the HTTP client holds no dedicated resources
func (g *OpenAIGenerator) Close() error {
	return nil
}
