package gemini

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"github.com/oukeidos/boardtrans/internal/apperrors"
	"github.com/oukeidos/boardtrans/internal/httpclient"
	"github.com/oukeidos/boardtrans/internal/language"
	"google.golang.org/api/option"
)

const (
	DefaultModel       = "gemini-3-flash-preview"
	DefaultTemperature = 0.2
)

// generator is the part of *genai.GenerativeModel the client uses.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Client handles communication with the Gemini API.
// The underlying genai client is created on first use.
type Client struct {
	apiKey    string
	modelName string

	mu     sync.Mutex
	client *genai.Client
	// models holds one model per source>target pair, each carrying its
	// own system instruction.
	models map[string]generator
	// newModel builds the model for a pair. Nil uses the genai client.
	newModel func(instruction string) generator
}

// NewClient creates a new Gemini client.
func NewClient(apiKey, modelName string) *Client {
	if strings.TrimSpace(modelName) == "" {
		modelName = DefaultModel
	}
	return &Client{apiKey: strings.TrimSpace(apiKey), modelName: modelName}
}

func (c *Client) Name() string { return "gemini" }

func (c *Client) Available() bool { return c.apiKey != "" }

func (c *Client) GetModelID() string { return c.modelName }

// Close closes the underlying genai client.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	c.models = nil
	return err
}

// SystemInstruction is set on the model for each language pair.
func SystemInstruction(source, target language.Language) string {
	return fmt.Sprintf("You are a professional translator. Translate from %s to %s. "+
		"Return only translated text; keep formatting/numbering.", source.Name, target.Name)
}

func (c *Client) ensureModel(ctx context.Context, source, target language.Language) (generator, error) {
	key := source.Code + ">" + target.Code
	c.mu.Lock()
	defer c.mu.Unlock()
	if model, ok := c.models[key]; ok {
		return model, nil
	}
	instruction := SystemInstruction(source, target)
	newModel := c.newModel
	if newModel == nil {
		if c.client == nil {
			// Note: We avoid using option.WithHTTPClient because it interferes with the genai library's
			// internal header injection for API keys, causing 403 errors.
			client, err := genai.NewClient(context.WithoutCancel(ctx), option.WithAPIKey(c.apiKey))
			if err != nil {
				return nil, apperrors.New(apperrors.KindUnavailable, "Gemini client could not be created.", err)
			}
			c.client = client
		}
		newModel = c.genaiModel
	}
	model := newModel(instruction)
	if c.models == nil {
		c.models = make(map[string]generator)
	}
	c.models[key] = model
	return model, nil
}

func (c *Client) genaiModel(instruction string) generator {
	model := c.client.GenerativeModel(c.modelName)
	model.SetTemperature(DefaultTemperature)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(instruction)},
	}
	return model
}

// Translate sends text to Gemini and returns the translated text.
func (c *Client) Translate(ctx context.Context, text string, source, target language.Language) (string, error) {
	model, err := c.ensureModel(ctx, source, target)
	if err != nil {
		return "", err
	}

	// Enforce default timeout to prevent indefinite hangs, since we are not using a custom HTTP client with timeout.
	ctx, cancel := context.WithTimeout(ctx, httpclient.DefaultTimeout)
	defer cancel()

	resp, err := model.GenerateContent(ctx, genai.Text(text))
	if err != nil {
		return "", classifyGeminiError(err)
	}

	out, err := extractResponseText(resp)
	if err != nil {
		return "", apperrors.Validation(err)
	}
	return out, nil
}

func extractResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("no response received from Gemini")
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
			continue
		}
		var combined strings.Builder
		for _, part := range candidate.Content.Parts {
			text, ok := part.(genai.Text)
			if !ok {
				continue
			}
			combined.WriteString(string(text))
		}
		if combined.Len() > 0 {
			return combined.String(), nil
		}
	}
	return "", fmt.Errorf("no text parts found in Gemini response")
}
