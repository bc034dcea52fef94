// Package service routes translation requests to the engine loaded for the
// requested language pair, detecting the source language when asked to.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nupi-ai/plugin-translate-local/internal/bridge"
	"github.com/nupi-ai/plugin-translate-local/internal/engine"
	"github.com/nupi-ai/plugin-translate-local/internal/langdetect"
	"github.com/nupi-ai/plugin-translate-local/internal/languages"
	"github.com/nupi-ai/plugin-translate-local/internal/models"
)

var (
	// ErrUnsupportedLanguage is returned for languages without offline models.
	ErrUnsupportedLanguage = errors.New("service: unsupported language")
	// ErrModelNotInstalled is returned when the pair has no local model.
	ErrModelNotInstalled = models.ErrModelNotInstalled
	// ErrModelLoadFailed is returned when the engine rejects the model directory.
	ErrModelLoadFailed = errors.New("service: failed to load offline model")
	// ErrTranslationFailed wraps sentinel results from the engine.
	ErrTranslationFailed = errors.New("service: translation failed")
)

// Request is one translation call. Source may be languages.Auto.
type Request struct {
	Text      string
	Source    string
	Target    string
	ModelType string
}

// Response carries the translation and the resolved direction.
type Response struct {
	Text      string
	Source    string
	Target    string
	ModelType string
	// Detected is set when Source was languages.Auto.
	Detected  *langdetect.Result
	Inference time.Duration
}

// Options configures a Manager.
type Options struct {
	// ModelType is used when a request leaves it empty.
	ModelType string
	// ModelDir bypasses the model library for every pair.
	ModelDir string
}

type engineKey struct {
	source    string
	target    string
	modelType string
}

// Manager serializes access to a single live engine.
type Manager struct {
	log      *slog.Logger
	registry *bridge.Registry
	library  *models.Manager
	opts     Options

	mu      sync.Mutex
	handle  bridge.Handle
	current engineKey
}

// New returns a Manager that owns registry.
func New(registry *bridge.Registry, library *models.Manager, opts Options, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ModelType == "" {
		opts.ModelType = models.TypeLite
	}
	return &Manager{
		log:      logger.With("component", "service"),
		registry: registry,
		library:  library,
		opts:     opts,
	}
}

// Translate translates req.Text, loading a new engine only when the resolved
// pair or model type changed since the previous call.
func (m *Manager) Translate(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	modelType := strings.TrimSpace(req.ModelType)
	if modelType == "" {
		modelType = m.opts.ModelType
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = languages.Auto
	}
	target := strings.TrimSpace(req.Target)
	if target == "" || target == languages.Auto || !languages.IsSupported(target) {
		return Response{}, fmt.Errorf("%w: target %q", ErrUnsupportedLanguage, target)
	}

	resp := Response{Source: source, Target: target, ModelType: modelType}
	if strings.TrimSpace(req.Text) == "" {
		return resp, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sourceName := languages.Name(source)
	if source == languages.Auto {
		detected := m.registry.DetectLanguage(req.Text, nil)
		resp.Detected = &detected
		if detected.LanguageCode == languages.Auto || !languages.IsSupported(detected.LanguageCode) {
			return resp, fmt.Errorf("%w: detected %q has no offline model", ErrUnsupportedLanguage, detected.LanguageCode)
		}
		source = detected.LanguageCode
		resp.Source = source
		sourceName = languages.Name(source) + " (detected)"
		m.log.Debug("source language detected", "language", source, "reliable", detected.IsReliable, "confidence", detected.ConfidencePercent)
	} else if !languages.IsSupported(source) {
		return resp, fmt.Errorf("%w: source %q", ErrUnsupportedLanguage, source)
	}

	pair := models.Pair{Source: source, Target: target}
	dir, err := m.library.Resolve(pair, modelType, m.opts.ModelDir)
	if err != nil {
		if errors.Is(err, models.ErrModelNotInstalled) {
			return resp, fmt.Errorf("%w: %s → %s %s model", ErrModelNotInstalled, sourceName, languages.Name(target), modelType)
		}
		return resp, err
	}

	key := engineKey{source: source, target: target, modelType: modelType}
	if err := m.ensureEngine(key, dir); err != nil {
		return resp, err
	}

	if err := ctx.Err(); err != nil {
		return resp, err
	}

	start := time.Now()
	out := m.registry.Translate(m.handle, req.Text)
	resp.Inference = time.Since(start)
	if engine.IsSentinel(out) {
		return resp, fmt.Errorf("%w: %s", ErrTranslationFailed, strings.TrimPrefix(out, engine.SentinelPrefix))
	}
	resp.Text = out
	return resp, nil
}

func (m *Manager) ensureEngine(key engineKey, dir string) error {
	if m.handle != 0 && m.current == key {
		return nil
	}
	m.releaseLocked()

	h := m.registry.CreateInstance()
	if h == 0 {
		return fmt.Errorf("%w: engine allocation failed", ErrModelLoadFailed)
	}
	if !m.registry.Initialize(h, dir) {
		m.registry.Destroy(h)
		return fmt.Errorf("%w: %s-%s (%s)", ErrModelLoadFailed, key.source, key.target, key.modelType)
	}
	m.handle = h
	m.current = key
	m.log.Info("engine loaded", "source", key.source, "target", key.target, "model_type", key.modelType, "model_dir", dir)
	return nil
}

func (m *Manager) releaseLocked() {
	if m.handle == 0 {
		return
	}
	m.registry.Destroy(m.handle)
	m.handle = 0
	m.current = engineKey{}
}

// Detect runs language detection; hint may be empty.
func (m *Manager) Detect(text, hint string) langdetect.Result {
	var h *string
	if hint != "" {
		h = &hint
	}
	return m.registry.DetectLanguage(text, h)
}

// Installed lists the locally available model pairs.
func (m *Manager) Installed() ([]models.Installed, error) {
	return m.library.Installed()
}

// Close releases the live engine.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseLocked()
	m.registry.Close()
}
