// Package history keeps the translation memory: one entry per finished
// translate call, persisted as JSON lines.
package history

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/oukeidos/boardtrans/internal/files"
	"github.com/oukeidos/boardtrans/internal/language"
	"github.com/oukeidos/boardtrans/internal/logger"
	"github.com/oukeidos/boardtrans/internal/translation"
	"github.com/rivo/uniseg"
)

// SnippetLength is the number of grapheme clusters kept from a result.
const SnippetLength = 80

const maxLineBytes = 1 << 20

type Entry struct {
	ID       uuid.UUID              `json:"id"`
	Document string                 `json:"document"`
	Snippet  string                 `json:"snippet"`
	Kind     translation.ResultKind `json:"kind"`
	Source   string                 `json:"source"`
	Target   string                 `json:"target"`
	Provider string                 `json:"provider,omitempty"`
	Time     time.Time              `json:"time"`
}

// NewEntry records res for document. The snippet is taken from what the
// user saw, so failed calls keep their message.
func NewEntry(document, provider string, res translation.Result, source, target language.Language, now time.Time) Entry {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return Entry{
		ID:       id,
		Document: document,
		Snippet:  Snippet(res.Display()),
		Kind:     res.Kind,
		Source:   source.Code,
		Target:   target.Code,
		Provider: provider,
		Time:     now,
	}
}

// Snippet returns the first SnippetLength grapheme clusters of s.
func Snippet(s string) string {
	g := uniseg.NewGraphemes(s)
	n, end := 0, 0
	for n < SnippetLength && g.Next() {
		_, end = g.Positions()
		n++
	}
	return s[:end]
}

// Log is an append-only list of entries, safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	entries []Entry
}

func (l *Log) Append(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

// Entries returns a copy in insertion order.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// Table renders the log as Document, Snippet, Time columns.
func (l *Log) Table(w io.Writer) error {
	entries := l.Entries()
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No translations yet.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DOCUMENT\tRESULT\tSNIPPET\tTIME")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			e.Document, e.Kind, flatten(e.Snippet), e.Time.Local().Format("15:04"))
	}
	return tw.Flush()
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Load reads a JSONL history file. A missing file yields an empty log.
// Lines that do not decode are skipped with a warning.
func Load(path string) (*Log, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Log{}, nil
		}
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	defer f.Close()
	return read(f)
}

func read(r io.Reader) (*Log, error) {
	log := &Log{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			logger.Warn("Skipping malformed history line", "line", lineNo, "error", err)
			continue
		}
		log.entries = append(log.entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return log, nil
}

// AppendFile adds entries to the end of the JSONL file at path without
// reading it. Existing lines, including ones Load cannot decode, are left
// untouched.
func AppendFile(path string, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	data, err := encode(entries)
	if err != nil {
		return err
	}
	if err := files.RejectSymlinkPath(path); err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	f, err := files.OpenAppend(path, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	// One write per call keeps concurrent appenders from interleaving lines.
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to append history: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// Save replaces the file at path with the log, atomically and with 0600
// permissions. Only history --clear rewrites the file; translate appends.
func (l *Log) Save(path string) error {
	data, err := encode(l.Entries())
	if err != nil {
		return err
	}
	if err := files.AtomicWrite(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

func encode(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return nil, fmt.Errorf("failed to encode history entry: %w", err)
		}
	}
	return buf.Bytes(), nil
}
