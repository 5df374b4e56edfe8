// Package googletranslate adapts Cloud Translation (v2, API key auth) to the
// translation provider interface.
package googletranslate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	translate "cloud.google.com/go/translate"
	"github.com/oukeidos/boardtrans/internal/apperrors"
	"github.com/oukeidos/boardtrans/internal/httpclient"
	"github.com/oukeidos/boardtrans/internal/language"
	xlang "golang.org/x/text/language"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DefaultModel selects the neural machine translation model.
const DefaultModel = "nmt"

type translator interface {
	Translate(ctx context.Context, inputs []string, target xlang.Tag, opts *translate.Options) ([]translate.Translation, error)
	Close() error
}

type Client struct {
	apiKey string
	model  string

	mu     sync.Mutex
	client translator
}

func NewClient(apiKey, model string) *Client {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &Client{apiKey: strings.TrimSpace(apiKey), model: model}
}

func (c *Client) Name() string { return "google" }

func (c *Client) Available() bool { return c.apiKey != "" }

func (c *Client) GetModelID() string { return c.model }

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

func (c *Client) ensureClient(ctx context.Context) (translator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	client, err := translate.NewClient(context.WithoutCancel(ctx),
		option.WithAPIKey(c.apiKey),
		option.WithUserAgent(httpclient.UserAgent()),
	)
	if err != nil {
		return nil, apperrors.New(apperrors.KindUnavailable, "Google Translate client could not be created.", err)
	}
	c.client = client
	return client, nil
}

// wireTag maps a supported language to the tag Cloud Translation v2 expects.
// v2 knows zh-TW but not zh-Hant.
func wireTag(l language.Language) (xlang.Tag, error) {
	tag, err := xlang.Parse(l.Code)
	if err != nil {
		return xlang.Und, apperrors.New(apperrors.KindBadRequest, fmt.Sprintf("Unsupported language %q.", l.Code), err)
	}
	return tag, nil
}

func (c *Client) Translate(ctx context.Context, text string, source, target language.Language) (string, error) {
	client, err := c.ensureClient(ctx)
	if err != nil {
		return "", err
	}
	src, err := wireTag(source)
	if err != nil {
		return "", err
	}
	dst, err := wireTag(target)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, httpclient.DefaultTimeout)
	defer cancel()

	// Text format keeps line breaks and numbering and returns no HTML entities.
	out, err := client.Translate(ctx, []string{text}, dst, &translate.Options{
		Source: src,
		Format: translate.Text,
		Model:  c.model,
	})
	if err != nil {
		return "", classifyError(err)
	}
	if len(out) == 0 || strings.TrimSpace(out[0].Text) == "" {
		return "", apperrors.New(apperrors.KindValidation, "Google Translate returned no translation.", fmt.Errorf("empty translation list"))
	}
	return out[0].Text, nil
}

func classifyError(err error) error {
	wrapped := fmt.Errorf("google translate failed: %w", err)

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return apperrors.New(apperrors.KindTransient, "Google Translate request failed due to a network/runtime error.", wrapped)
	}
	switch {
	case gerr.Code == http.StatusTooManyRequests:
		return apperrors.New(apperrors.KindRateLimit, "Google Translate rate limit exceeded (429).", wrapped)
	case gerr.Code == http.StatusForbidden && isQuotaReason(gerr):
		// v2 reports per-user rate limits as 403 with a rate limit reason.
		return apperrors.New(apperrors.KindRateLimit, "Google Translate rate limit exceeded (403).", wrapped)
	case gerr.Code == http.StatusServiceUnavailable:
		return apperrors.New(apperrors.KindOverloaded, "Google Translate is over capacity (503).", wrapped)
	case gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden:
		return apperrors.New(apperrors.KindAuth, fmt.Sprintf("Google Translate authentication/authorization failed (%d).", gerr.Code), wrapped)
	case gerr.Code >= 500:
		return apperrors.New(apperrors.KindTransient, fmt.Sprintf("Google Translate service error (%d).", gerr.Code), wrapped)
	default:
		return apperrors.New(apperrors.KindBadRequest, fmt.Sprintf("Google Translate rejected the request (%d).", gerr.Code), wrapped)
	}
}

func isQuotaReason(gerr *googleapi.Error) bool {
	for _, item := range gerr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded":
			return true
		}
	}
	return false
}
