package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/smartmatch/internal/ai"
	"github.com/spigell/smartmatch/internal/ai/gemini"
	"github.com/spigell/smartmatch/internal/filtering"
	"github.com/spigell/smartmatch/internal/importer"
	"github.com/spigell/smartmatch/internal/logger"
	"github.com/spigell/smartmatch/internal/secrets"
	"github.com/spigell/smartmatch/internal/storage"
)

func openStore(ctx context.Context, cfg *Config, log *zap.Logger) (*storage.SQLStore, error) {
	url, err := databaseURL(cfg.Database)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, storage.Options{
		Driver: cfg.Database.Driver,
		URL:    url,
		Logger: log,
	})
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	return store, nil
}

func newImporter(store importer.Store, cfg *Config, allowDuplicates bool, log *zap.Logger) *importer.Importer {
	return importer.New(store, importer.Options{
		Filter: &filtering.Config{
			ExcludeEmails: cfg.Imports.ExcludeEmails,
			ExcludeFile:   cfg.Imports.ExcludeFile,
		},
		AllowDuplicates: allowDuplicates,
		Logger:          log,
	})
}

// newReviewer returns nil when the AI review is disabled.
func newReviewer(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Reviewer, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	if cfg.Gemini == nil {
		return nil, fmt.Errorf("ai.gemini section is required when ai is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries)
	if err != nil {
		return nil, err
	}

	return gemini.NewReviewer(generator, logger.Component(log, "ai"), cfg.Gemini.MaxLogLength, gemini.PromptOptions{
		Tone:             cfg.Gemini.Tone,
		Language:         cfg.Gemini.Language,
		UserInstructions: cfg.Gemini.Instructions,
	}), nil
}
