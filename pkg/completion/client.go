package completion

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

// Client turns a single prompt into a single reply.
type Client interface {
	Complete(ctx context.Context, prompt string, modelID string) (string, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, prompt string, modelID string) (string, error)

func (f ClientFunc) Complete(ctx context.Context, prompt string, modelID string) (string, error) {
	return f(ctx, prompt, modelID)
}

var ErrEmptyChoices = errors.New("completion returned no choices")

// OpenAIClient talks to an OpenAI compatible chat-completions endpoint (OpenRouter by default).
// Each call sends exactly one user message and is never retried.
type OpenAIClient struct {
	client *go_openai.Client
}

var _ Client = (*OpenAIClient)(nil)

func NewOpenAIClient(settings *Settings) (*OpenAIClient, error) {
	if settings == nil {
		return nil, errors.New("no completion settings")
	}
	s := settings.WithDefaults()
	if s.APIKey == "" {
		log.Warn().Msg("no openrouter-api-key configured, completion requests will be rejected")
	}

	config := go_openai.DefaultConfig(s.APIKey)
	config.BaseURL = s.BaseURL
	config.HTTPClient = &http.Client{
		Transport: &headerTransport{
			base: http.DefaultTransport,
			headers: map[string]string{
				"HTTP-Referer": s.HTTPReferer,
				"X-Title":      s.AppTitle,
			},
		},
	}

	return &OpenAIClient{client: go_openai.NewClientWithConfig(config)}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string, modelID string) (string, error) {
	req := go_openai.ChatCompletionRequest{
		Model: modelID,
		Messages: []go_openai.ChatCompletionMessage{
			{
				Role:    go_openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	}

	log.Debug().Str("model", modelID).Int("prompt_length", len(prompt)).Msg("sending completion request")
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", errors.Wrapf(err, "completion request for model %s failed", modelID)
	}
	if len(resp.Choices) == 0 {
		return "", errors.Wrapf(ErrEmptyChoices, "model %s", modelID)
	}

	reply := resp.Choices[0].Message.Content
	log.Debug().
		Str("model", modelID).
		Str("response_model", resp.Model).
		Int("total_tokens", resp.Usage.TotalTokens).
		Int("reply_length", len(reply)).
		Msg("completion received")
	return reply, nil
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(req)
}
