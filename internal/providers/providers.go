// Package providers builds translation providers by name.
package providers

import (
	"fmt"
	"io"
	"strings"

	"github.com/oukeidos/boardtrans/internal/gemini"
	"github.com/oukeidos/boardtrans/internal/googletranslate"
	"github.com/oukeidos/boardtrans/internal/openai"
	"github.com/oukeidos/boardtrans/internal/translation"
)

const Default = "openai"

// Info describes a provider for listings.
type Info struct {
	Name         string
	Label        string
	DefaultModel string
}

var known = []Info{
	{Name: "openai", Label: "OpenAI Chat Completions", DefaultModel: openai.DefaultModel},
	{Name: "gemini", Label: "Google Gemini", DefaultModel: gemini.DefaultModel},
	{Name: "google", Label: "Google Cloud Translation", DefaultModel: googletranslate.DefaultModel},
}

func List() []Info {
	return append([]Info(nil), known...)
}

func Names() []string {
	names := make([]string, 0, len(known))
	for _, p := range known {
		names = append(names, p.Name)
	}
	return names
}

// New returns the named provider. An empty apiKey yields a provider that
// reports itself unavailable. An empty model selects the provider default.
func New(name, apiKey, model string) (translation.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openai":
		return openai.NewClient(apiKey, model), nil
	case "gemini":
		return gemini.NewClient(apiKey, model), nil
	case "google":
		return googletranslate.NewClient(apiKey, model), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (expected one of: %s)", name, strings.Join(Names(), ", "))
	}
}

// Close releases resources held by p, if any.
func Close(p translation.Provider) error {
	if c, ok := p.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
