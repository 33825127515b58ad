// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/ollamachat/internal/model"
)

// =============================================================================
// SESSION STORE TESTS
// =============================================================================

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()
	store, err := NewSessionStore(filepath.Join(t.TempDir(), "sessions"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store
}

func TestNewSessionStore_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	store, err := NewSessionStore(dir)
	if err != nil {
		t.Fatalf("NewSessionStore failed: %v", err)
	}
	if store.BaseDir != dir {
		t.Errorf("BaseDir = %q, want %q", store.BaseDir, dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("directory not created: %v", err)
	}
}

func TestSessionStore_SaveAndLoad(t *testing.T) {
	store := newTestStore(t)

	doc := model.PersistedSession{
		SystemPrompt: "Be brief.",
		Conversation: []model.Message{
			model.NewUserMessage("Hello"),
			model.NewAssistantMessage("Hi there"),
		},
	}

	path, err := store.Save("chat", doc)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if want := filepath.Join(store.BaseDir, "chat.json"); path != want {
		t.Errorf("Save path = %q, want %q", path, want)
	}

	loaded, err := store.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(loaded, doc) {
		t.Errorf("Load = %+v, want %+v", loaded, doc)
	}
}

func TestSessionStore_SaveKeepsExtension(t *testing.T) {
	store := newTestStore(t)

	path, err := store.Save("notes.txt", model.PersistedSession{})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if filepath.Base(path) != "notes.txt" {
		t.Errorf("Save path = %q, want notes.txt", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(data), `"conversation": []`) {
		t.Errorf("empty conversation should be written as [], got %s", data)
	}
}

func TestSessionStore_SaveAbsolutePath(t *testing.T) {
	store := newTestStore(t)
	target := filepath.Join(t.TempDir(), "nested", "out")

	path, err := store.Save(target, model.PersistedSession{SystemPrompt: "x"})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if path != target+".json" {
		t.Errorf("Save path = %q, want %q", path, target+".json")
	}
}

func TestSessionStore_LoadIgnoresUnknownFields(t *testing.T) {
	store := newTestStore(t)
	path := filepath.Join(store.BaseDir, "extra.json")
	content := `{"system_prompt":"p","conversation":[{"role":"user","content":"hi","ts":1}],"version":3}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	doc, err := store.Load("extra.json")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if doc.SystemPrompt != "p" {
		t.Errorf("SystemPrompt = %q, want p", doc.SystemPrompt)
	}
	if len(doc.Conversation) != 1 || doc.Conversation[0] != model.NewUserMessage("hi") {
		t.Errorf("Conversation = %+v", doc.Conversation)
	}
}

func TestSessionStore_LoadMissingFields(t *testing.T) {
	store := newTestStore(t)
	path := filepath.Join(store.BaseDir, "empty.json")
	if err := os.WriteFile(path, []byte(`{}`), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	doc, err := store.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if doc.SystemPrompt != "" || doc.Conversation == nil || len(doc.Conversation) != 0 {
		t.Errorf("Load = %+v, want empty document", doc)
	}
}

func TestSessionStore_LoadMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"truncated", `{"system_prompt": "x", "conversation": [`},
		{"not json", `hello`},
		{"null", `null`},
		{"wrong type", `{"conversation": "nope"}`},
	}

	store := newTestStore(t)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(store.BaseDir, tc.name+".json")
			if err := os.WriteFile(path, []byte(tc.content), 0600); err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}
			_, err := store.Load(path)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("Load error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestSessionStore_LoadMissingFile(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Load("nope.json")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load error = %v, want ErrNotExist", err)
	}
}

func TestSessionStore_Resolve(t *testing.T) {
	store := &SessionStore{BaseDir: "/data/sessions"}
	home, _ := os.UserHomeDir()

	tests := []struct {
		in   string
		want string
	}{
		{"chat", "/data/sessions/chat"},
		{"  sub/chat.json ", "/data/sessions/sub/chat.json"},
		{"/tmp/x.json", "/tmp/x.json"},
		{"~/x.json", filepath.Join(home, "x.json")},
	}
	for _, tc := range tests {
		got, err := store.Resolve(tc.in)
		if err != nil {
			t.Errorf("Resolve(%q) error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Resolve(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	if _, err := store.Resolve("   "); !errors.Is(err, ErrEmptyPath) {
		t.Errorf("Resolve(blank) error = %v, want ErrEmptyPath", err)
	}
}

func TestSessionStore_List(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Save("older", model.PersistedSession{}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	newer, err := store.Save("newer", model.PersistedSession{})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(newer, later, later); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(store.BaseDir, "skip.txt"), []byte("x"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	metas, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("List returned %d entries, want 2", len(metas))
	}
	if metas[0].Name != "newer" || metas[1].Name != "older" {
		t.Errorf("List order = %q, %q", metas[0].Name, metas[1].Name)
	}
}
