package httpclient

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/oukeidos/boardtrans/internal/version"
)

const (
	// DefaultTimeout bounds a single provider call. Board documents are short,
	// so a translation that takes longer than this is treated as a failure.
	DefaultTimeout = 2 * time.Minute
	// MaxResponseBytes caps HTTP response bodies.
	MaxResponseBytes = 4 * 1024 * 1024

	MaxIdleConns          = 20
	MaxIdleConnsPerHost   = 4
	IdleConnTimeout       = 90 * time.Second
	TLSHandshakeTimeout   = 15 * time.Second
	ExpectContinueTimeout = 2 * time.Second
)

var (
	defaultClient     *http.Client
	defaultClientOnce sync.Once
	overrideMu        sync.RWMutex
	overrideClient    *http.Client
)

// NewClient returns a new http.Client with the specified timeout.
func NewClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          MaxIdleConns,
		MaxIdleConnsPerHost:   MaxIdleConnsPerHost,
		IdleConnTimeout:       IdleConnTimeout,
		TLSHandshakeTimeout:   TLSHandshakeTimeout,
		ExpectContinueTimeout: ExpectContinueTimeout,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// GetDefaultClient returns the process-wide client used by provider adapters.
func GetDefaultClient() *http.Client {
	overrideMu.RLock()
	override := overrideClient
	overrideMu.RUnlock()
	if override != nil {
		return override
	}
	defaultClientOnce.Do(func() {
		defaultClient = NewClient(DefaultTimeout)
	})
	return defaultClient
}

// SetDefaultClientForTesting overrides the singleton client for tests.
// It returns a restore function to reset the previous client.
func SetDefaultClientForTesting(client *http.Client) func() {
	overrideMu.Lock()
	prev := overrideClient
	overrideClient = client
	overrideMu.Unlock()
	return func() {
		overrideMu.Lock()
		overrideClient = prev
		overrideMu.Unlock()
	}
}

// UserAgent is sent with every provider request.
func UserAgent() string {
	return "boardtrans/" + version.Version
}

// DoAndRead performs req, reads at most MaxResponseBytes of the body and
// always closes it.
func DoAndRead(client *http.Client, req *http.Request) ([]byte, *http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", UserAgent())
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.ContentLength > MaxResponseBytes {
		return nil, resp, fmt.Errorf("response body too large (limit %d bytes)", MaxResponseBytes)
	}

	limited := &io.LimitedReader{R: resp.Body, N: MaxResponseBytes + 1}
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, resp, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > MaxResponseBytes {
		return nil, resp, fmt.Errorf("response body too large (limit %d bytes)", MaxResponseBytes)
	}

	return body, resp, nil
}
