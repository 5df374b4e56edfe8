package history

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oukeidos/boardtrans/internal/language"
	"github.com/oukeidos/boardtrans/internal/translation"
	"github.com/rivo/uniseg"
)

func success(text string) translation.Result {
	return translation.Result{Kind: translation.KindSuccess, Text: text, Attempts: 1}
}

func TestSnippet(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int
	}{
		{"short", "董事會議程", 5},
		{"ascii long", strings.Repeat("a", 200), 80},
		{"cjk long", strings.Repeat("決", 100), 80},
		{"combining marks", strings.Repeat("e\u0301", 90), 80},
		{"empty", "", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Snippet(tc.in)
			if n := uniseg.GraphemeClusterCount(got); n != tc.want {
				t.Fatalf("expected %d clusters, got %d", tc.want, n)
			}
			if !strings.HasPrefix(tc.in, got) {
				t.Fatalf("snippet is not a prefix of the input")
			}
		})
	}
}

func TestNewEntry(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	e := NewEntry("Board Resolution", "openai", success("本公司應於2025年第四季提出首次公開發行申請。"), language.English, language.TraditionalChinese, now)
	if e.ID.Version() != 7 {
		t.Fatalf("expected UUIDv7, got version %d", e.ID.Version())
	}
	if e.Kind != translation.KindSuccess || e.Source != "en" || e.Target != "zh-TW" || !e.Time.Equal(now) {
		t.Fatalf("unexpected entry %+v", e)
	}

	failed := NewEntry("Board Minutes", "openai", translation.Result{Kind: translation.KindRateLimited, Message: "Rate limited after 4 attempts."}, language.English, language.TraditionalChinese, now)
	if failed.Snippet != "Rate limited after 4 attempts." {
		t.Fatalf("expected message snippet, got %q", failed.Snippet)
	}
}

func TestLog_EntriesIsCopy(t *testing.T) {
	var l Log
	l.Append(Entry{Document: "Board Agenda"})
	entries := l.Entries()
	entries[0].Document = "changed"
	if l.Entries()[0].Document != "Board Agenda" {
		t.Fatalf("Entries must return a copy")
	}
	l.Clear()
	if l.Len() != 0 {
		t.Fatalf("expected empty log after Clear")
	}
}

func TestLog_ConcurrentAppend(t *testing.T) {
	var l Log
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Append(Entry{Document: "IR Press Release"})
		}()
	}
	wg.Wait()
	if l.Len() != 50 {
		t.Fatalf("expected 50 entries, got %d", l.Len())
	}
}

func TestLog_Table(t *testing.T) {
	var buf bytes.Buffer
	var l Log
	if err := l.Table(&buf); err != nil {
		t.Fatalf("Table failed: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "No translations yet." {
		t.Fatalf("unexpected empty table %q", buf.String())
	}

	buf.Reset()
	l.Append(Entry{Document: "Board Agenda", Kind: translation.KindSuccess, Snippet: "日期：____\n1. 宣布開會", Time: time.Now()})
	if err := l.Table(&buf); err != nil {
		t.Fatalf("Table failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "DOCUMENT") || !strings.Contains(out, "日期：____ 1. 宣布開會") {
		t.Fatalf("unexpected table %q", out)
	}
	if strings.Count(out, "\n") != 2 {
		t.Fatalf("expected header and one row, got %q", out)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.jsonl")
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	var l Log
	l.Append(NewEntry("Board Agenda", "openai", success("議程 <R&D>"), language.English, language.TraditionalChinese, now))
	l.Append(NewEntry("Board Minutes", "gemini", success("Minutes"), language.TraditionalChinese, language.English, now.Add(time.Minute)))
	if err := l.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "<R&D>") {
		t.Fatalf("expected unescaped JSON, got %s", data)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got := loaded.Entries()
	want := l.Entries()
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i].ID || got[i].Document != want[i].Document || !got[i].Time.Equal(want[i].Time) {
			t.Fatalf("entry %d mismatch: %+v vs %+v", i, got[i], want[i])
		}
	}
}

func TestLoad_MissingAndMalformed(t *testing.T) {
	l, err := Load(filepath.Join(t.TempDir(), "none.jsonl"))
	if err != nil || l.Len() != 0 {
		t.Fatalf("expected empty log for missing file, got %v %v", l, err)
	}

	path := filepath.Join(t.TempDir(), "history.jsonl")
	body := `{"document":"Board Agenda","kind":"success"}` + "\n" + "not json\n\n" + `{"document":"Board Minutes","kind":"failed"}` + "\n"
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	l, err = Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if l.Len() != 2 {
		t.Fatalf("expected malformed line to be skipped, got %d entries", l.Len())
	}
}

func TestAppendFile_KeepsUnreadableLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	truncated := `{"document":"Board Minutes","kind":"succ`
	body := `{"document":"Board Agenda","kind":"success"}` + "\n" + truncated + "\n"
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	e := NewEntry("IR Press Release", "openai", success("新聞稿 <R&D>"), language.English, language.TraditionalChinese, now)
	if err := AppendFile(path, e); err != nil {
		t.Fatalf("AppendFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(string(data), body) {
		t.Fatalf("existing lines were rewritten:\n%s", data)
	}
	if !strings.Contains(string(data), truncated) {
		t.Fatalf("unreadable Board Minutes line was dropped:\n%s", data)
	}

	l, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	entries := l.Entries()
	if len(entries) != 2 || entries[0].Document != "Board Agenda" || entries[1].ID != e.ID {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if entries[1].Snippet != "新聞稿 <R&D>" {
		t.Fatalf("expected unescaped snippet, got %q", entries[1].Snippet)
	}
}

func TestAppendFile_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.jsonl")
	if err := AppendFile(path); err != nil {
		t.Fatalf("AppendFile with no entries: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no file for an empty append, got %v", err)
	}

	now := time.Now()
	if err := AppendFile(path, Entry{Document: "Board Agenda", Time: now}, Entry{Document: "Board Minutes", Time: now}); err != nil {
		t.Fatalf("AppendFile failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 permissions, got %v", info.Mode().Perm())
	}
	l, err := Load(path)
	if err != nil || l.Len() != 2 {
		t.Fatalf("expected 2 entries, got %v %v", l, err)
	}
}

func TestAppendFile_Concurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := AppendFile(path, Entry{Document: "Board Agenda", Snippet: strings.Repeat("議", 80)}); err != nil {
				t.Errorf("AppendFile failed: %v", err)
			}
		}()
	}
	wg.Wait()
	l, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if l.Len() != 20 {
		t.Fatalf("expected 20 entries from concurrent appends, got %d", l.Len())
	}
}
