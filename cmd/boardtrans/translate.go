package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oukeidos/boardtrans/internal/batch"
	"github.com/oukeidos/boardtrans/internal/catalog"
	"github.com/oukeidos/boardtrans/internal/cleanup"
	"github.com/oukeidos/boardtrans/internal/config"
	"github.com/oukeidos/boardtrans/internal/files"
	"github.com/oukeidos/boardtrans/internal/history"
	"github.com/oukeidos/boardtrans/internal/language"
	"github.com/oukeidos/boardtrans/internal/logger"
	"github.com/oukeidos/boardtrans/internal/prompt"
	"github.com/oukeidos/boardtrans/internal/providers"
	"github.com/oukeidos/boardtrans/internal/translation"
	"github.com/spf13/cobra"
)

// maxInputBytes caps text read from --file or stdin.
const maxInputBytes = 1 << 20

// adHocDocument names history entries for text given on the command line.
const adHocDocument = "Ad-hoc text"

type translateOptions struct {
	root        *rootOptions
	sourceCode  string
	targetCode  string
	docRef      string
	filePath    string
	category    string
	outputPath  string
	yes         bool
	envOnly     bool
	logFilePath string
	noHistory   bool
	debug       bool
}

// job is one text to translate, named for output headings and history.
type job struct {
	name string
	ref  string
	text string
}

func newTranslateCmd(root *rootOptions) *cobra.Command {
	opts := translateOptions{root: root}
	cmd := &cobra.Command{
		Use:   "translate [text...]",
		Short: "Translate text or a sample board document",
		Long: `Translate board documents between English and Traditional Chinese.

The text comes from exactly one of: arguments, --doc, --file, --category or stdin.
Capacity errors (rate limits, overloaded providers) are retried with
exponential backoff; any other failure ends the request immediately.`,
		Example: `  boardtrans translate "Resolved that the Company shall file IPO application in Q4 2025."
  boardtrans translate --doc "Governance / Board Agenda"
  boardtrans translate --source zh-TW --file minutes.txt --output minutes.en.txt
  boardtrans translate --category Committees --provider gemini`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, args, &opts)
		},
		SilenceUsage: true,
	}

	cmd.SetUsageTemplate(subcommandUsageTemplate)
	addTranslateFlags(cmd, &opts)
	return cmd
}

func addTranslateFlags(cmd *cobra.Command, opts *translateOptions) {
	fs := cmd.Flags()
	fs.StringVar(&opts.sourceCode, "source", language.English.Code, "Source language (en or zh-TW)")
	fs.StringVar(&opts.targetCode, "target", language.TraditionalChinese.Code, "Target language (default: the other supported language)")
	fs.StringVar(&opts.docRef, "doc", "", `Translate a sample document, e.g. "Governance / Board Agenda"`)
	fs.StringVar(&opts.filePath, "file", "", "Translate the contents of a UTF-8 text file")
	fs.StringVar(&opts.category, "category", "", "Translate every sample document in a category")
	fs.StringVarP(&opts.outputPath, "output", "o", "", "Write the translation to a file instead of stdout")
	fs.BoolVarP(&opts.yes, "yes", "y", false, "Overwrite output file without asking")
	fs.BoolVar(&opts.envOnly, "env-only", false, "Use only environment variables for API keys")
	fs.StringVar(&opts.logFilePath, "log-file", "", "Path to save machine-readable JSONL logs")
	fs.BoolVar(&opts.noHistory, "no-history", false, "Do not record this run in the translation history")
	fs.BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	// Bound to config keys; read back through config.Load.
	fs.String("provider", providers.Default, "Translation provider ("+strings.Join(providers.Names(), ", ")+")")
	fs.String("model", "", "Provider model (default: provider specific)")
	fs.Bool("allow-env", false, "Allow reading API key from environment variables")
	fs.String("history-file", "", "Translation history file (default: user config dir)")
	config.RegisterRetryFlags(fs)
	config.RegisterBatchFlags(fs)
}

func runTranslate(cmd *cobra.Command, args []string, opts *translateOptions) error {
	if err := initLogging(opts.debug, opts.logFilePath); err != nil {
		return err
	}

	cfg, used, err := config.Load(opts.root.configPath, cmd.Flags())
	if err != nil {
		return err
	}
	if used != "" {
		logger.Info("Using config file", "path", used)
	}

	src, tgt, err := resolveLanguages(opts.sourceCode, opts.targetCode, cmd.Flags().Changed("target"))
	if err != nil {
		return err
	}

	jobs, err := collectJobs(cmd, args, opts)
	if err != nil {
		return err
	}

	key, keySource, err := resolveAPIKey(cfg.Provider, cfg.AllowEnv, opts.envOnly)
	if err != nil {
		return err
	}
	if key != "" {
		logger.Info("Using API Key", "service", cfg.Provider, "source", keySource)
	}
	provider, err := newProvider(cfg.Provider, key, cfg.Model)
	if err != nil {
		return err
	}
	cleanup.Register("provider "+provider.Name(), func() error { return providers.Close(provider) })

	items := make([]batch.Item, 0, len(jobs))
	for _, j := range jobs {
		req, err := translation.NewRequest(j.text, src, tgt)
		if err != nil {
			return fmt.Errorf("%s: %w", j.name, err)
		}
		items = append(items, batch.Item{Name: j.name, Request: req})
	}

	logger.Debug("Retry policy", "provider", cfg.Provider, "schedule", config.DescribeRetry(cfg.Retry))

	svc := newService()
	svc.OnAttempt = func(ev translation.AttemptEvent) {
		if ev.State == translation.AttemptRetrying {
			logger.Info("Waiting before next attempt", "provider", ev.Provider, "attempt", ev.Attempt+1, "max_attempts", cfg.Retry.MaxAttempts, "delay", ev.Delay)
		}
	}
	runner := batch.NewRunner(svc, provider, cfg.Retry, cfg.Concurrency, cfg.QPS)
	if len(items) == 1 {
		runner.RampUp = 0
	}
	runner.OnProgress = func(p batch.Progress) {
		if p.Done && p.Total > 1 {
			logger.Info("Document finished", "document", p.Name, "index", p.Index+1, "total", p.Total, "result", p.Result.Kind)
		}
	}

	ctx, stop := signalContext()
	defer stop()
	outcomes, err := runner.Run(ctx, items)
	if err != nil {
		return err
	}

	if !opts.noHistory {
		recordHistory(cfg.HistoryPath, cfg.Provider, outcomes, src, tgt)
	}

	if err := writeOutcomes(cmd, jobs, outcomes, opts); err != nil {
		return err
	}
	for _, o := range outcomes {
		if o.Result.Kind == translation.KindUnavailable {
			fmt.Fprintln(cmd.ErrOrStderr(), configurationHint(cfg.Provider, cfg.AllowEnv))
			break
		}
	}
	return outcomesError(outcomes)
}

// collectJobs reads the text to translate from exactly one source.
func collectJobs(cmd *cobra.Command, args []string, opts *translateOptions) ([]job, error) {
	sources := 0
	for _, set := range []bool{len(args) > 0, opts.docRef != "", opts.filePath != "", opts.category != ""} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return nil, fmt.Errorf("use only one of: text arguments, --doc, --file, --category")
	}

	switch {
	case len(args) > 0:
		return []job{{name: adHocDocument, text: strings.Join(args, " ")}}, nil
	case opts.docRef != "":
		doc, err := catalog.Default().Resolve(opts.docRef)
		if err != nil {
			return nil, err
		}
		return []job{{name: doc.Name, ref: doc.Ref(), text: doc.Text}}, nil
	case opts.filePath != "":
		text, err := readInputFile(opts.filePath)
		if err != nil {
			return nil, err
		}
		return []job{{name: filepath.Base(opts.filePath), text: text}}, nil
	case opts.category != "":
		docs, err := catalog.Default().Documents(opts.category)
		if err != nil {
			return nil, err
		}
		jobs := make([]job, 0, len(docs))
		for _, d := range docs {
			jobs = append(jobs, job{name: d.Name, ref: d.Ref(), text: d.Text})
		}
		if len(jobs) == 0 {
			return nil, fmt.Errorf("category %q has no documents", opts.category)
		}
		return jobs, nil
	}

	text, err := readStdin(cmd)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		_ = cmd.Usage()
		return nil, fmt.Errorf("no text to translate: pass text, --doc, --file, --category or pipe stdin")
	}
	return []job{{name: adHocDocument, text: text}}, nil
}

func readInputFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > maxInputBytes {
		return "", fmt.Errorf("%s is too large (limit %d bytes)", path, maxInputBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return decodeText(path, data)
}

func readStdin(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && isTerminal(int(f.Fd())) {
		return "", nil
	}
	data, err := io.ReadAll(io.LimitReader(in, maxInputBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	if len(data) > maxInputBytes {
		return "", fmt.Errorf("stdin is too large (limit %d bytes)", maxInputBytes)
	}
	return decodeText("stdin", data)
}

func decodeText(name string, data []byte) (string, error) {
	data = trimBOM(data)
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s is not valid UTF-8 text", name)
	}
	return string(data), nil
}

func trimBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

// renderOutcomes formats successful translations. A single job is printed
// as-is; several jobs get a heading each.
func renderOutcomes(jobs []job, outcomes []batch.Outcome) string {
	if len(jobs) == 1 {
		if outcomes[0].Result.OK() {
			return outcomes[0].Result.Text + "\n"
		}
		return ""
	}
	var sb strings.Builder
	for i, o := range outcomes {
		if !o.Result.OK() {
			continue
		}
		heading := jobs[i].ref
		if heading == "" {
			heading = jobs[i].name
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "## %s\n\n%s\n", heading, o.Result.Text)
	}
	return sb.String()
}

func writeOutcomes(cmd *cobra.Command, jobs []job, outcomes []batch.Outcome, opts *translateOptions) error {
	for _, o := range outcomes {
		if !o.Result.OK() && len(outcomes) > 1 {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s (%s)\n", o.Name, o.Result.Message, o.Result.Kind)
		}
	}

	text := renderOutcomes(jobs, outcomes)
	if text == "" {
		return nil
	}
	if opts.outputPath == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), text)
		return err
	}

	path, err := resolveOutputPath(cmd, opts.outputPath, opts.yes)
	if err != nil {
		return err
	}
	if err := files.AtomicWrite(path, []byte(text), 0600); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	logger.Info("Translation saved", "path", path)
	return nil
}

// resolveOutputPath asks before replacing an existing file. When the user
// declines, a free sibling path is used instead.
func resolveOutputPath(cmd *cobra.Command, path string, yes bool) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return path, nil
		}
		return "", fmt.Errorf("failed to check output path: %w", err)
	}
	confirmer := prompt.DefaultConfirmer()
	confirmer.Out = cmd.ErrOrStderr()
	confirmed, err := confirmer.ConfirmOverwrite(path, yes)
	if err != nil {
		return "", err
	}
	if confirmed {
		return path, nil
	}
	safePath, changed, err := files.SafePath(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve output path: %w", err)
	}
	if changed {
		fmt.Fprintf(cmd.ErrOrStderr(), "Keeping %s; writing to %s\n", path, safePath)
	}
	return safePath, nil
}

func recordHistory(path, provider string, outcomes []batch.Outcome, src, tgt language.Language) {
	now := time.Now()
	entries := make([]history.Entry, 0, len(outcomes))
	for _, o := range outcomes {
		entries = append(entries, history.NewEntry(o.Name, provider, o.Result, src, tgt, now))
	}
	if err := history.AppendFile(path, entries...); err != nil {
		logger.Warn("Failed to save translation history", "path", path, "error", err)
	}
}

// outcomesError maps any non-success outcome to a command error.
func outcomesError(outcomes []batch.Outcome) error {
	if len(outcomes) == 1 {
		res := outcomes[0].Result
		if res.OK() {
			return nil
		}
		return fmt.Errorf("translation %s: %s", res.Kind, res.Message)
	}
	failed := 0
	for _, o := range outcomes {
		if !o.Result.OK() {
			failed++
		}
	}
	if failed == 0 {
		return nil
	}
	counts := batch.Summary(outcomes)
	parts := make([]string, 0, len(counts))
	for _, kind := range []translation.ResultKind{
		translation.KindUnavailable, translation.KindRateLimited, translation.KindFailed, translation.KindCancelled,
	} {
		if counts[kind] > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", kind, counts[kind]))
		}
	}
	return fmt.Errorf("%d of %d documents did not translate (%s)", failed, len(outcomes), strings.Join(parts, ", "))
}
