package service

import (
	"fmt"
	"log/slog"

	"github.com/nupi-ai/plugin-translate-local/internal/bridge"
	"github.com/nupi-ai/plugin-translate-local/internal/config"
	"github.com/nupi-ai/plugin-translate-local/internal/engine"
	"github.com/nupi-ai/plugin-translate-local/internal/langdetect"
	"github.com/nupi-ai/plugin-translate-local/internal/models"
)

// FromConfig wires the model library, engine registry and language scorer
// described by cfg into a Manager.
func FromConfig(cfg config.Config, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	library, err := models.NewManager(cfg.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}

	loaders := engine.NewLoaders(cfg, logger)
	decoding := engine.DecodingFromConfig(cfg)
	factory := func() *engine.Engine {
		return engine.New(
			engine.WithLogger(logger),
			engine.WithLoaders(loaders),
			engine.WithDecoding(decoding),
		)
	}

	scorer := langdetect.NewScorer(langdetect.NewLinguaClassifier(nil))
	registry := bridge.NewRegistry(factory, scorer, logger)

	return New(registry, library, Options{
		ModelType: cfg.ModelType,
		ModelDir:  cfg.ModelDir,
	}, logger), nil
}
