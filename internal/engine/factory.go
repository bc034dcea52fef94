package engine

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/nupi-ai/plugin-translate-local/internal/config"
	"github.com/nupi-ai/plugin-translate-local/internal/ct2"
	"github.com/nupi-ai/plugin-translate-local/internal/tokenizer"
)

// DefaultLoaders uses the native runtime when compiled in and the stub
// runtime otherwise.
func DefaultLoaders(logger *slog.Logger) Loaders {
	if logger == nil {
		logger = slog.Default()
	}
	loaders := Loaders{
		Tokenizer: tokenizer.Load,
		Config:    ct2.DefaultLoadConfig(),
	}
	if ct2.NativeAvailable() {
		loaders.Translator = ct2.NewNativeTranslator
	} else {
		loaders.Translator = ct2.StubLoader(logger)
	}
	return loaders
}

// NewLoaders builds loaders from adapter configuration. The stub runtime is
// used when forced by configuration or when the native backend was not built.
func NewLoaders(cfg config.Config, logger *slog.Logger) Loaders {
	if logger == nil {
		logger = slog.Default()
	}

	loadCfg := ct2.DefaultLoadConfig()
	if d := strings.TrimSpace(cfg.Device); d != "" {
		loadCfg.Device = d
	}
	if c := strings.TrimSpace(cfg.ComputeType); c != "" {
		loadCfg.ComputeType = c
	}
	if cfg.Threads != nil {
		loadCfg.Threads = *cfg.Threads
	}

	loaders := Loaders{
		Tokenizer: tokenizer.Load,
		Config:    loadCfg,
	}

	switch {
	case cfg.UseStubEngine:
		logger.Warn("stub runtime forced by configuration")
		loaders.Translator = ct2.StubLoader(logger)
	case ct2.NativeAvailable():
		logger.Info("native runtime selected", "device", loadCfg.Device, "compute_type", loadCfg.ComputeType, "threads", loadCfg.Threads)
		loaders.Translator = nativeWithFallback(logger)
	default:
		logger.Warn("native runtime disabled at build time; using stub runtime")
		loaders.Translator = ct2.StubLoader(logger)
	}
	return loaders
}

// DecodingFromConfig applies configuration overrides to DefaultDecoding.
func DecodingFromConfig(cfg config.Config) DecodingParameters {
	p := DefaultDecoding()
	if cfg.BeamSize != nil {
		p = p.WithBeamSize(*cfg.BeamSize)
	}
	return p
}

func nativeWithFallback(logger *slog.Logger) ct2.Loader {
	stub := ct2.StubLoader(logger)
	return func(modelDir string, cfg ct2.LoadConfig) (ct2.Translator, error) {
		tr, err := ct2.NewNativeTranslator(modelDir, cfg)
		if errors.Is(err, ct2.ErrNativeUnavailable) {
			logger.Warn("native runtime unavailable; using stub runtime", "model_dir", modelDir)
			return stub(modelDir, cfg)
		}
		return tr, err
	}
}
