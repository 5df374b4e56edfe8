package auth

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

const serviceName = "boardtrans"

// Source labels where a key was found.
const (
	SourceKeychain = "Keychain"
	SourceEnv      = "Environment Variable"
	SourcePrompt   = "Terminal Prompt"
)

type credential struct {
	account string
	envVar  string
	label   string
}

var credentials = map[string]credential{
	"openai": {account: "openai-api-key", envVar: "OPENAI_API_KEY", label: "OpenAI"},
	"gemini": {account: "gemini-api-key", envVar: "GEMINI_API_KEY", label: "Gemini"},
	"google": {account: "google-translate-api-key", envVar: "GOOGLE_TRANSLATE_API_KEY", label: "Google Cloud Translation"},
}

// Services returns the known service names, sorted.
func Services() []string {
	names := make([]string, 0, len(credentials))
	for name := range credentials {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookup(service string) (credential, error) {
	c, ok := credentials[strings.ToLower(strings.TrimSpace(service))]
	if !ok {
		return credential{}, fmt.Errorf("invalid service %q (must be one of: %s)", service, strings.Join(Services(), ", "))
	}
	return c, nil
}

// ValidateService returns an error for unknown service names.
func ValidateService(service string) error {
	_, err := lookup(service)
	return err
}

// Label returns a display name such as "OpenAI".
func Label(service string) string {
	if c, err := lookup(service); err == nil {
		return c.label
	}
	return service
}

// EnvVar returns the environment variable consulted for service.
func EnvVar(service string) string {
	if c, err := lookup(service); err == nil {
		return c.envVar
	}
	return ""
}

// GetKey retrieves the API key for a service: keychain first, then the
// environment when allowEnv is set. It returns the key and its source.
func GetKey(service string, allowEnv bool) (string, string) {
	c, err := lookup(service)
	if err != nil {
		return "", ""
	}
	if key, err := keyring.Get(serviceName, c.account); err == nil && strings.TrimSpace(key) != "" {
		return strings.TrimSpace(key), SourceKeychain
	}
	if allowEnv {
		if key, ok := GetEnvKey(service); ok {
			return key, SourceEnv
		}
	}
	return "", ""
}

// SaveKey stores the key in the OS keychain.
func SaveKey(service, key string) error {
	c, err := lookup(service)
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("API key is empty")
	}
	return keyring.Set(serviceName, c.account, key)
}

// DeleteKey removes the key from the OS keychain.
func DeleteKey(service string) error {
	c, err := lookup(service)
	if err != nil {
		return err
	}
	return keyring.Delete(serviceName, c.account)
}

// GetStatus reports whether the keychain holds a key for service.
func GetStatus(service string) bool {
	c, err := lookup(service)
	if err != nil {
		return false
	}
	key, err := keyring.Get(serviceName, c.account)
	return err == nil && strings.TrimSpace(key) != ""
}

// GetEnvKey retrieves the key from environment variables only.
func GetEnvKey(service string) (string, bool) {
	c, err := lookup(service)
	if err != nil {
		return "", false
	}
	key := strings.TrimSpace(os.Getenv(c.envVar))
	return key, key != ""
}

// PromptForAPIKey reads a key from the terminal without echo.
func PromptForAPIKey(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}
