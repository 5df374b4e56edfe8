package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/oukeidos/boardtrans/internal/auth"
	"github.com/oukeidos/boardtrans/internal/cleanup"
	"github.com/oukeidos/boardtrans/internal/files"
	"github.com/oukeidos/boardtrans/internal/language"
	"github.com/oukeidos/boardtrans/internal/logger"
	"github.com/oukeidos/boardtrans/internal/providers"
	"github.com/oukeidos/boardtrans/internal/translation"
	"golang.org/x/term"
)

var (
	isTerminal   = term.IsTerminal
	getKey       = auth.GetKey
	getEnvKey    = auth.GetEnvKey
	getStatus    = auth.GetStatus
	promptForKey = auth.PromptForAPIKey
	saveKey      = auth.SaveKey
	deleteKey    = auth.DeleteKey
	newProvider  = providers.New
	newService   = translation.NewService
)

// resolveAPIKey finds the key for service. A missing key is not an error:
// the provider then reports itself unavailable and the caller prints a
// configuration hint.
func resolveAPIKey(service string, allowEnv, envOnly bool) (string, string, error) {
	if envOnly {
		if key, ok := getEnvKey(service); ok {
			return key, auth.SourceEnv, nil
		}
		return "", "", nil
	}

	if key, source := getKey(service, false); key != "" {
		return key, source, nil
	}

	if allowEnv {
		if key, ok := getEnvKey(service); ok {
			return key, auth.SourceEnv, nil
		}
	}

	if isTerminal(int(os.Stdin.Fd())) {
		key, err := promptForKey(fmt.Sprintf("%s API Key (press Enter to skip): ", auth.Label(service)))
		if err != nil {
			return "", "", fmt.Errorf("error reading API key: %w", err)
		}
		if strings.TrimSpace(key) != "" {
			return strings.TrimSpace(key), auth.SourcePrompt, nil
		}
	}
	return "", "", nil
}

// configurationHint tells the user how to make service available.
func configurationHint(service string, allowEnv bool) string {
	envHint := auth.EnvVar(service)
	if !allowEnv {
		envHint += " with --allow-env"
	}
	return fmt.Sprintf("[Run `boardtrans env setup --service %s` or set %s]", service, envHint)
}

func resolveLanguages(sourceInput, targetInput string, targetChanged bool) (language.Language, language.Language, error) {
	src, err := language.Parse(sourceInput)
	if err != nil {
		return language.Language{}, language.Language{}, fmt.Errorf("--source: %w", err)
	}
	tgt := language.Opposite(src)
	if targetChanged {
		tgt, err = language.Parse(targetInput)
		if err != nil {
			return language.Language{}, language.Language{}, fmt.Errorf("--target: %w", err)
		}
	}
	if src.Code == tgt.Code {
		return language.Language{}, language.Language{}, fmt.Errorf("source and target languages must differ (both %s)", src.Code)
	}
	return src, tgt, nil
}

// initLogging configures the global logger and opens the JSONL log file.
func initLogging(debug bool, logFilePath string) error {
	logLevel := logger.LevelInfo
	if debug {
		logLevel = logger.LevelDebug
	}
	var logFileW io.Writer
	if logFilePath != "" {
		f, err := files.OpenAppend(logFilePath, 0600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		cleanup.Register("log file", f.Close)
		logFileW = f
	}
	logger.Init(logLevel, logFileW)
	return nil
}

func signalContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("Cancellation requested")
			cancel()
		case <-ctx.Done():
		}
	}()
	stop := func() {
		signal.Stop(sigCh)
		cancel()
	}
	return ctx, stop
}
