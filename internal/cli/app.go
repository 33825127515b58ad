// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/ollamachat/internal/config"
	"github.com/jeranaias/ollamachat/internal/logging"
	"github.com/jeranaias/ollamachat/internal/model"
	"github.com/jeranaias/ollamachat/internal/ollama"
	"github.com/jeranaias/ollamachat/internal/session"
	"github.com/jeranaias/ollamachat/internal/storage"
)

// app holds what every command needs once flags are parsed.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	client   *ollama.Client
	closeLog func()
}

// loadConfig reads the config file, then applies flag overrides on top of
// the file and environment.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath == "" {
		cfg, err = config.Load()
	} else {
		cfg, err = config.LoadFromPath(o.configPath)
	}
	if err != nil {
		return nil, &ConfigError{Path: o.configPath, Err: err}
	}

	if o.url != "" {
		cfg.Ollama.URL = strings.TrimRight(o.url, "/")
	}
	if o.model != "" {
		cfg.Ollama.Model = o.model
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Path: o.configPath, Err: err}
	}
	return cfg, nil
}

func newApp(opts *rootOptions) (*app, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return nil, NewCommandError("startup", "logging", "cannot open log file", err)
	}

	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:     cfg.Ollama.URL,
		Timeout:     cfg.RequestTimeout(),
		IdleTimeout: cfg.IdleTimeout(),
		Logger:      logger,
	})

	logger.Info("starting",
		zap.String("version", Version),
		zap.String("url", cfg.Ollama.URL),
		zap.String("model", cfg.Ollama.Model))

	return &app{cfg: cfg, log: logger, client: client, closeLog: closeLog}, nil
}

// Close flushes the log.
func (a *app) Close() {
	a.closeLog()
}

func (a *app) newController(conv *model.Conversation) *session.Controller {
	return session.NewController(session.ClientBackend{Client: a.client}, conv, session.Config{
		EventBuffer:           a.cfg.Stream.EventBuffer,
		PersistEmptyResponses: a.cfg.Stream.PersistEmptyResponses,
		Logger:                a.log,
	})
}

func (a *app) newStore() (*storage.SessionStore, error) {
	store, err := storage.NewSessionStore(a.cfg.Storage.SessionsDir)
	if err != nil {
		return nil, NewCommandError("startup", "storage", "cannot use sessions directory", err)
	}
	return store, nil
}

// requestContext bounds a non-streaming call by the configured timeout.
func (a *app) requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, a.cfg.RequestTimeout())
}

// resolveModel returns the configured model, or the first installed one.
func (a *app) resolveModel(ctx context.Context) (string, error) {
	if a.cfg.Ollama.Model != "" {
		return a.cfg.Ollama.Model, nil
	}

	ctx, cancel := a.requestContext(ctx)
	defer cancel()
	for _, name := range a.client.ListModels(ctx) {
		if model.UsableModel(name) {
			return name, nil
		}
	}
	return "", &ValidationError{
		Field:   "model",
		Reason:  "no model configured and none installed at " + a.cfg.Ollama.URL,
		Example: `ollamachat -m llama3:8b ask "Hello"`,
	}
}
