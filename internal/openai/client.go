package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/oukeidos/boardtrans/internal/apperrors"
	"github.com/oukeidos/boardtrans/internal/httpclient"
	"github.com/oukeidos/boardtrans/internal/language"
)

const (
	DefaultModel       = "gpt-4o-mini"
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultTemperature = 0.2
)

// ChatRequest is the Chat Completions request body.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the subset of the Chat Completions response we read.
type ChatResponse struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type errorEnvelope struct {
	Error errorDetails `json:"error"`
}

type errorDetails struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

func (e errorDetails) codeString() string {
	if e.Code == nil {
		return ""
	}
	return fmt.Sprint(e.Code)
}

// Client translates text through OpenAI Chat Completions.
type Client struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
}

func NewClient(apiKey, model string) *Client {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &Client{
		apiKey:      strings.TrimSpace(apiKey),
		model:       model,
		baseURL:     DefaultBaseURL,
		temperature: DefaultTemperature,
	}
}

func (c *Client) Name() string { return "openai" }

// Available reports whether an API key is configured.
func (c *Client) Available() bool { return c.apiKey != "" }

// GetModelID returns the configured model identifier.
func (c *Client) GetModelID() string { return c.model }

// SystemPrompt instructs the model to translate and keep the document layout.
func SystemPrompt(source, target language.Language) string {
	return fmt.Sprintf("You are a professional translator. Translate from %s to %s. "+
		"Return only translated text; keep formatting/numbering.", source.Name, target.Name)
}

func (c *Client) Translate(ctx context.Context, text string, source, target language.Language) (string, error) {
	resp, err := c.Complete(ctx, ChatRequest{
		Messages: []ChatMessage{
			{Role: "system", Content: SystemPrompt(source, target)},
			{Role: "user", Content: text},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.New(apperrors.KindValidation, "OpenAI returned no translation.", fmt.Errorf("no choices in response %s", resp.ID))
	}
	out := resp.Choices[0].Message.Content
	if strings.TrimSpace(out) == "" {
		return "", apperrors.New(apperrors.KindValidation, "OpenAI returned an empty translation.", fmt.Errorf("empty content in response %s", resp.ID))
	}
	return out, nil
}

// Complete sends a raw Chat Completions request.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	req.Model = c.model

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	body, resp, err := httpclient.DoAndRead(httpclient.GetDefaultClient(), httpReq)
	if err != nil {
		return nil, apperrors.New(
			apperrors.KindTransient,
			"OpenAI request failed due to a network/runtime error.",
			fmt.Errorf("request failed: %w", err),
		)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyOpenAIError(resp.StatusCode, resp.Status, parseErrorDetails(body))
	}

	var result ChatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, apperrors.New(
			apperrors.KindValidation,
			"OpenAI response format was invalid.",
			fmt.Errorf("failed to decode response: %w", err),
		)
	}

	slog.Debug("OpenAI API Response", "status", resp.Status, "usage_total", result.Usage.TotalTokens, "response_id", result.ID)
	return &result, nil
}

func parseErrorDetails(body []byte) errorDetails {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return errorDetails{}
	}
	return envelope.Error
}

func classifyOpenAIError(statusCode int, status string, details errorDetails) error {
	code := details.codeString()
	cause := fmt.Errorf("openai status=%s type=%s code=%s message=%s", status, details.Type, code, details.Message)

	switch {
	case statusCode == http.StatusTooManyRequests:
		// A 429 for an exhausted billing quota will not clear by waiting.
		if code == "insufficient_quota" || details.Type == "insufficient_quota" {
			return apperrors.New(
				apperrors.KindAuth,
				"OpenAI quota exhausted (429): check your plan and billing details.",
				cause,
			)
		}
		return apperrors.New(apperrors.KindRateLimit, "OpenAI API rate limit exceeded (429).", cause)
	case statusCode == http.StatusServiceUnavailable:
		return apperrors.New(apperrors.KindOverloaded, "OpenAI is over capacity (503).", cause)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return apperrors.New(
			apperrors.KindAuth,
			fmt.Sprintf("OpenAI API authentication/authorization failed (%d): please verify your API key and permissions.", statusCode),
			cause,
		)
	case statusCode == http.StatusNotFound:
		if isOpenAIModelNotFound(details) {
			return apperrors.New(apperrors.KindBadRequest, "The model does not exist or you do not have access to it.", cause)
		}
		return apperrors.New(apperrors.KindBadRequest, "OpenAI resource not found (404).", cause)
	case statusCode >= 500:
		return apperrors.New(
			apperrors.KindTransient,
			fmt.Sprintf("OpenAI server error (%d): please try again later.", statusCode),
			cause,
		)
	default:
		return apperrors.New(apperrors.KindBadRequest, fmt.Sprintf("OpenAI API error (%d): %s", statusCode, status), cause)
	}
}

func isOpenAIModelNotFound(details errorDetails) bool {
	needle := strings.ToLower(details.codeString() + " " + details.Type + " " + details.Message)
	if strings.Contains(needle, "model_not_found") {
		return true
	}
	return strings.Contains(needle, "does not exist or you do not have access to it")
}
