// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jeranaias/ollamachat/internal/model"
	"github.com/jeranaias/ollamachat/internal/util"
)

// DefaultExtension is appended to save paths that have none.
const DefaultExtension = ".json"

var (
	// ErrEmptyPath is returned when no file name was given.
	ErrEmptyPath = errors.New("no file name given")

	// ErrMalformed is wrapped by Load when the file is not a valid document.
	ErrMalformed = errors.New("malformed session file")
)

// =============================================================================
// SESSION STORE
// =============================================================================

// SessionMeta describes a saved session file for listing.
type SessionMeta struct {
	Name      string
	Path      string
	UpdatedAt time.Time
	Size      int64
}

// SessionStore reads and writes session documents.
type SessionStore struct {
	// BaseDir anchors relative paths
	BaseDir string
}

// NewSessionStore creates a store rooted at baseDir, creating it if needed.
func NewSessionStore(baseDir string) (*SessionStore, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create sessions directory: %w", err)
	}
	return &SessionStore{BaseDir: baseDir}, nil
}

// Resolve turns user input into a file path. A leading "~/" expands to the
// home directory and relative paths join BaseDir.
func (s *SessionStore) Resolve(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", ErrEmptyPath
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	if !filepath.IsAbs(path) && s.BaseDir != "" {
		path = filepath.Join(s.BaseDir, path)
	}
	return filepath.Clean(path), nil
}

// =============================================================================
// SAVE / LOAD
// =============================================================================

// Save writes doc to path and returns the path actually written.
func (s *SessionStore) Save(path string, doc model.PersistedSession) (string, error) {
	resolved, err := s.Resolve(path)
	if err != nil {
		return "", err
	}
	if filepath.Ext(resolved) == "" {
		resolved += DefaultExtension
	}

	if doc.Conversation == nil {
		doc.Conversation = []model.Message{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}

	if err := util.AtomicWriteFileWithDir(resolved, data, 0600, 0700); err != nil {
		return "", fmt.Errorf("write session %s: %w", resolved, err)
	}
	return resolved, nil
}

// Load reads the document at path. Unknown fields are ignored and missing
// fields come back empty; anything that is not a JSON object wraps
// ErrMalformed.
func (s *SessionStore) Load(path string) (model.PersistedSession, error) {
	resolved, err := s.Resolve(path)
	if err != nil {
		return model.PersistedSession{}, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return model.PersistedSession{}, fmt.Errorf("read session: %w", err)
	}

	var doc model.PersistedSession
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.PersistedSession{}, fmt.Errorf("%w %s: %v", ErrMalformed, filepath.Base(resolved), err)
	}
	// A literal null decodes without error
	if strings.TrimSpace(string(data)) == "null" {
		return model.PersistedSession{}, fmt.Errorf("%w %s: not an object", ErrMalformed, filepath.Base(resolved))
	}
	if doc.Conversation == nil {
		doc.Conversation = []model.Message{}
	}
	return doc, nil
}

// =============================================================================
// LISTING
// =============================================================================

// List returns the session files in BaseDir, most recently modified first.
func (s *SessionStore) List() ([]SessionMeta, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var metas []SessionMeta
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != DefaultExtension {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		metas = append(metas, SessionMeta{
			Name:      strings.TrimSuffix(entry.Name(), DefaultExtension),
			Path:      filepath.Join(s.BaseDir, entry.Name()),
			UpdatedAt: info.ModTime(),
			Size:      info.Size(),
		})
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}
