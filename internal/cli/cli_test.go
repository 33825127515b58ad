// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jeranaias/ollamachat/internal/config"
	"github.com/jeranaias/ollamachat/internal/model"
	"github.com/jeranaias/ollamachat/internal/ollama"
	"github.com/jeranaias/ollamachat/internal/storage"
)

// =============================================================================
// HELPERS
// =============================================================================

type fakeOllama struct {
	models string
	lines  []string
	status int

	mu      sync.Mutex
	lastReq ollama.ChatRequest
}

func (f *fakeOllama) request() ollama.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastReq
}

func (f *fakeOllama) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/tags":
		io.WriteString(w, f.models)
	case "/api/chat":
		var req ollama.ChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.lastReq = req
		f.mu.Unlock()
		if f.status != 0 {
			w.WriteHeader(f.status)
			return
		}
		for _, line := range f.lines {
			io.WriteString(w, line+"\n")
		}
	default:
		io.WriteString(w, "Ollama is running")
	}
}

// writeConfig points a config file at url with logging disabled.
func writeConfig(t *testing.T, url, model string) (cfgPath, sessionsDir string) {
	t.Helper()
	dir := t.TempDir()
	sessionsDir = filepath.Join(dir, "sessions")
	cfgPath = filepath.Join(dir, "config.toml")

	content := fmt.Sprintf(`[ollama]
url = %q
model = %q

[storage]
sessions_dir = %q

[log]
file = ""
`, url, model, sessionsDir)
	if err := os.WriteFile(cfgPath, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath, sessionsDir
}

func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("OLLAMACHAT_URL", "")
	t.Setenv("OLLAMACHAT_MODEL", "")
	t.Setenv("NO_COLOR", "1")

	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func newFake(t *testing.T, lines ...string) (*fakeOllama, string) {
	t.Helper()
	fake := &fakeOllama{
		models: `{"models":[{"name":"llama3:8b","size":4661224676,"details":{"parameter_size":"8.0B","quantization_level":"Q4_0"}},{"name":"mistral:7b","size":4109865159}]}`,
		lines:  lines,
	}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return fake, srv.URL
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk_StreamsReply(t *testing.T) {
	fake, url := newFake(t,
		`{"message":{"content":"Hi"}}`,
		`{"message":{"content":" there"},"done":true}`,
	)
	cfg, _ := writeConfig(t, url, "llama3:8b")

	out, _, err := runCLI(t, "", "--config", cfg, "ask", "--temperature", "0.5", "--max-tokens", "64", "Hello")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if out != "Hi there\n" {
		t.Errorf("output = %q, want %q", out, "Hi there\n")
	}

	req := fake.request()
	if req.Model != "llama3:8b" || !req.Stream {
		t.Errorf("request model=%q stream=%v", req.Model, req.Stream)
	}
	if req.Options == nil || req.Options.Temperature != 0.5 || req.Options.NumPredict != 64 {
		t.Errorf("request options = %+v", req.Options)
	}
	if len(req.Messages) != 1 || req.Messages[0].Content != "Hello" {
		t.Errorf("request messages = %+v", req.Messages)
	}
}

func TestAsk_TranscriptAndSystemPrompt(t *testing.T) {
	fake, url := newFake(t, `{"message":{"content":"Paris"},"done":true}`)
	cfg, _ := writeConfig(t, url, "llama3:8b")

	out, _, err := runCLI(t, "", "--config", cfg, "ask", "--transcript", "-s", "One word.", "Capital", "of", "France?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	want := "You:\nCapital of France?\n\nAI:\nParis\n\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
	if len(fake.request().Messages) != 2 || fake.request().Messages[0].Role != "system" {
		t.Errorf("request messages = %+v", fake.request().Messages)
	}
}

func TestAsk_ReadsStdinAndPicksFirstModel(t *testing.T) {
	fake, url := newFake(t, `{"message":{"content":"ok"},"done":true}`)
	cfg, _ := writeConfig(t, url, "")

	out, _, err := runCLI(t, "from a pipe\n", "--config", cfg, "ask")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if out != "ok\n" {
		t.Errorf("output = %q", out)
	}
	if fake.request().Model != "llama3:8b" {
		t.Errorf("model = %q, want first installed", fake.request().Model)
	}
	if got := fake.request().Messages[0].Content; got != "from a pipe" {
		t.Errorf("message = %q", got)
	}
}

func TestAsk_MissingMessage(t *testing.T) {
	_, url := newFake(t)
	cfg, _ := writeConfig(t, url, "llama3:8b")

	_, _, err := runCLI(t, "   ", "--config", cfg, "ask")
	if err == nil {
		t.Fatal("expected an error")
	}
	if code := ExitCode(err); code != ExitUsageError {
		t.Errorf("exit code = %d, want %d", code, ExitUsageError)
	}
}

func TestAsk_ModelNotFound(t *testing.T) {
	fake, url := newFake(t)
	fake.status = http.StatusNotFound
	cfg, _ := writeConfig(t, url, "nope:1b")

	_, _, err := runCLI(t, "", "--config", cfg, "ask", "Hello")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !ollama.IsModelNotFound(err) {
		t.Errorf("error %v should be model-not-found", err)
	}
	if code := ExitCode(err); code != ExitNotFoundError {
		t.Errorf("exit code = %d, want %d", code, ExitNotFoundError)
	}
}

func TestAsk_EmptyReply(t *testing.T) {
	_, url := newFake(t, `{"done":true}`)
	cfg, _ := writeConfig(t, url, "llama3:8b")

	out, errOut, err := runCLI(t, "", "--config", cfg, "ask", "--stats", "Hello")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if out != "" {
		t.Errorf("output = %q, want nothing", out)
	}
	if !strings.Contains(errOut, "1 chunks") {
		t.Errorf("stats = %q", errOut)
	}
}

// =============================================================================
// MODELS / SESSIONS / VERSION
// =============================================================================

func TestModels(t *testing.T) {
	_, url := newFake(t)
	cfg, _ := writeConfig(t, url, "mistral:7b")

	out, _, err := runCLI(t, "", "--config", cfg, "models")
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	for _, want := range []string{"NAME", "llama3:8b", "8.0B", "Q4_0", "4.3 GB", "* mistral:7b"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, _, err = runCLI(t, "", "--config", cfg, "models", "--json")
	if err != nil {
		t.Fatalf("models --json: %v", err)
	}
	var infos []ollama.ModelInfo
	if err := json.Unmarshal([]byte(out), &infos); err != nil || len(infos) != 2 {
		t.Errorf("json output = %q (%v)", out, err)
	}
}

func TestModels_Unreachable(t *testing.T) {
	cfg, _ := writeConfig(t, "http://127.0.0.1:1", "")

	_, _, err := runCLI(t, "", "--config", cfg, "models")
	if err == nil {
		t.Fatal("expected an error")
	}
	if code := ExitCode(err); code != ExitNetworkError {
		t.Errorf("exit code = %d, want %d", code, ExitNetworkError)
	}
}

func TestSessions(t *testing.T) {
	_, url := newFake(t)
	cfg, dir := writeConfig(t, url, "")

	out, _, err := runCLI(t, "", "--config", cfg, "sessions")
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if !strings.Contains(out, "No saved sessions") {
		t.Errorf("output = %q", out)
	}

	store, err := storage.NewSessionStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	_, err = store.Save("trip", model.PersistedSession{
		SystemPrompt: "Be brief.",
		Conversation: []model.Message{model.NewUserMessage("Hello"), model.NewAssistantMessage("Hi")},
	})
	if err != nil {
		t.Fatal(err)
	}

	out, _, err = runCLI(t, "", "--config", cfg, "sessions")
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if !strings.HasPrefix(out, "trip") {
		t.Errorf("list output = %q", out)
	}

	out, _, err = runCLI(t, "", "--config", cfg, "sessions", "trip")
	if err != nil {
		t.Fatalf("sessions trip: %v", err)
	}
	want := "System: Be brief.\n\nYou:\nHello\n\nAI:\nHi\n\n"
	if out != want {
		t.Errorf("show output = %q, want %q", out, want)
	}

	_, _, err = runCLI(t, "", "--config", cfg, "sessions", "missing")
	if code := ExitCode(err); code != ExitNotFoundError {
		t.Errorf("exit code = %d, want %d (%v)", code, ExitNotFoundError, err)
	}
}

func TestVersion(t *testing.T) {
	out, _, err := runCLI(t, "", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "ollamachat "+Version) {
		t.Errorf("output = %q", out)
	}
}

// =============================================================================
// CONFIG AND ERRORS
// =============================================================================

func TestFlagsOverrideConfig(t *testing.T) {
	fake, url := newFake(t, `{"done":true}`)
	cfg, _ := writeConfig(t, "http://127.0.0.1:1", "llama3:8b")

	_, _, err := runCLI(t, "", "--config", cfg, "--url", url+"/", "-m", "mistral:7b", "ask", "Hello")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if fake.request().Model != "mistral:7b" {
		t.Errorf("model = %q", fake.request().Model)
	}
}

func TestConfigErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("not = [valid"), 0600); err != nil {
		t.Fatal(err)
	}

	_, _, err := runCLI(t, "", "--config", bad, "models")
	if code := ExitCode(err); code != ExitConfigError {
		t.Errorf("exit code = %d, want %d (%v)", code, ExitConfigError, err)
	}

	cfg, _ := writeConfig(t, "http://127.0.0.1:11434", "")
	_, _, err = runCLI(t, "", "--config", cfg, "--url", "ftp://host", "models")
	if code := ExitCode(err); code != ExitConfigError {
		t.Errorf("exit code = %d, want %d (%v)", code, ExitConfigError, err)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"validation", ErrMissingArgument("message", ""), ExitUsageError},
		{"empty path", storage.ErrEmptyPath, ExitUsageError},
		{"config", &ConfigError{Err: errors.New("bad")}, ExitConfigError},
		{"validate", config.ValidateErrors{{Field: "f", Message: "m"}}, ExitConfigError},
		{"model not found", NewCommandError("ask", "stream", "x", ollama.ErrModelNotFound), ExitNotFoundError},
		{"missing file", fmt.Errorf("read: %w", os.ErrNotExist), ExitNotFoundError},
		{"timeout", &ollama.ClientError{Type: ollama.ErrTypeTimeout}, ExitTimeoutError},
		{"not running", &ollama.ClientError{Type: ollama.ErrTypeNotRunning}, ExitNetworkError},
		{"other", errors.New("boom"), ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestDisplayError(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, errors.New("boom"))
	if !strings.Contains(buf.String(), "[ERROR]") || !strings.HasSuffix(buf.String(), " boom\n") {
		t.Errorf("output = %q", buf.String())
	}

	buf.Reset()
	DisplayError(&buf, nil)
	if buf.Len() != 0 {
		t.Errorf("nil error wrote %q", buf.String())
	}
}
