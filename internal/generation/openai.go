package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/JaimeStill/palette/pkg/formatting"
)

// OpenAIClient creates images and runs vision analyses through the OpenAI
// API or a compatible endpoint.
type OpenAIClient struct {
	client *openai.Client
	key    string
	retry  RetryConfig
	logger *slog.Logger
}

// NewOpenAIClient creates a client. A nil httpClient uses the library default.
func NewOpenAIClient(cfg *Config, httpClient *http.Client, logger *slog.Logger) *OpenAIClient {
	oc := openai.DefaultConfig(cfg.OpenAIKey)
	if cfg.OpenAIBaseURL != "" {
		oc.BaseURL = cfg.OpenAIBaseURL
	}
	if httpClient != nil {
		oc.HTTPClient = httpClient
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(oc),
		key:    cfg.OpenAIKey,
		retry:  cfg.Retry(),
		logger: logger.With("client", "openai"),
	}
}

// CreateImage generates one image and returns its URL.
func (c *OpenAIClient) CreateImage(ctx context.Context, model, prompt, aspectRatio string) ([]string, error) {
	if c.key == "" {
		return nil, fmt.Errorf("%w: openai key", ErrNotConfigured)
	}

	resp, err := withRetry(ctx, c.retry, func() (openai.ImageResponse, error) {
		resp, err := c.client.CreateImage(ctx, openai.ImageRequest{
			Prompt:         prompt,
			Model:          model,
			N:              1,
			Size:           imageSize(aspectRatio),
			ResponseFormat: openai.CreateImageResponseFormatURL,
		})
		return resp, statusError(err)
	})
	if err != nil {
		return nil, fmt.Errorf("create image: %w", err)
	}

	var urls []string
	for _, d := range resp.Data {
		if d.URL != "" {
			urls = append(urls, d.URL)
		}
	}
	if len(urls) == 0 {
		return nil, ErrNoOutput
	}
	return urls, nil
}

// Analyze asks a vision model to describe image and returns the values of
// the requested variables.
func (c *OpenAIClient) Analyze(ctx context.Context, model, instruction string, variables []string, image string) (map[string]string, error) {
	if c.key == "" {
		return nil, fmt.Errorf("%w: openai key", ErrNotConfigured)
	}

	system := fmt.Sprintf(
		"%s\nRespond with a JSON object whose keys are exactly: %s. Every value must be a plain string.",
		instruction, strings.Join(variables, ", "),
	)

	resp, err := withRetry(ctx, c.retry, func() (openai.ChatCompletionResponse, error) {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: model,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{
					Role: openai.ChatMessageRoleUser,
					MultiContent: []openai.ChatMessagePart{
						{Type: openai.ChatMessagePartTypeText, Text: "Analyze this image."},
						{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: image}},
					},
				},
			},
		})
		return resp, statusError(err)
	})
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, ErrNoOutput
	}

	return ParseAnalysis(resp.Choices[0].Message.Content)
}

// ParseAnalysis decodes a JSON object, fenced or bare, into string
// values. Non-string values are formatted with %v.
func ParseAnalysis(content string) (map[string]string, error) {
	raw, err := formatting.Parse[map[string]any](content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAnalysis, err)
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = strings.TrimSpace(val)
		case nil:
		default:
			out[k] = fmt.Sprintf("%v", val)
		}
	}
	return out, nil
}

func imageSize(aspectRatio string) string {
	switch aspectRatio {
	case "16:9", "3:2", "4:3", "21:9":
		return openai.CreateImageSize1792x1024
	case "9:16", "2:3", "3:4":
		return openai.CreateImageSize1024x1792
	default:
		return openai.CreateImageSize1024x1024
	}
}

func statusError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	return err
}
