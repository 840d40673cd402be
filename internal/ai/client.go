package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"civic-complaints/internal/scoring"
)

// Config holds OpenAI configuration parameters.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client implements Analyzer against an OpenAI-compatible vision model.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewClient constructs a Client if the supplied configuration is valid.
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrDisabled
	}
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	temp := cfg.Temperature
	if temp <= 0 {
		temp = 0.2
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	apiCfg := openai.DefaultConfig(apiKey)
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		apiCfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		api:         openai.NewClientWithConfig(apiCfg),
		model:       cfg.Model,
		temperature: float32(temp),
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Enabled reports whether the client can make outbound calls.
func (c *Client) Enabled() bool {
	return c != nil && c.api != nil
}

// Analyze sends the complaint photo with a category-specific grading guide and
// parses the structured reply.
func (c *Client) Analyze(ctx context.Context, req Request) (scoring.Analysis, Details, error) {
	if !c.Enabled() {
		return scoring.Analysis{}, Details{}, ErrDisabled
	}
	if len(req.Image) == 0 {
		return scoring.Analysis{}, Details{}, fmt.Errorf("%w: no image supplied", ErrInvalidResponse)
	}

	resp, err := c.api.CreateChatCompletion(ctx, c.buildRequest(req))
	if err != nil {
		return scoring.Analysis{}, Details{}, fmt.Errorf("openai request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return scoring.Analysis{}, Details{}, fmt.Errorf("%w: no choices returned", ErrInvalidResponse)
	}
	return parseAnalysis(resp.Choices[0].Message.Content, req.Category)
}

func (c *Client) buildRequest(req Request) openai.ChatCompletionRequest {
	contentType := req.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(req.Image)
	}
	dataURI := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(req.Image)

	return openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: buildUserPrompt(req)},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURI,
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
	}
}
