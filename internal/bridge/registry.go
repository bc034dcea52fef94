// Package bridge exposes engines to hosts that can only hold integer handles
// and plain strings. Nothing crossing it panics or returns a Go error.
package bridge

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nupi-ai/plugin-translate-local/internal/engine"
	"github.com/nupi-ai/plugin-translate-local/internal/langdetect"
)

// Handle identifies an engine owned by a Registry. Zero is never issued.
type Handle uint64

// Translate sentinels for handles that cannot translate.
const (
	// NotInitText is returned for unknown or destroyed handles.
	NotInitText = engine.SentinelPrefix + "Engine not init"
	// NotReadyText is returned for live engines that never reached ready.
	NotReadyText = engine.SentinelPrefix + "Engine not ready"
)

// Factory builds a fresh engine for CreateInstance.
type Factory func() *engine.Engine

// Registry owns engines by handle.
type Registry struct {
	log     *slog.Logger
	factory Factory
	scorer  *langdetect.Scorer

	mu      sync.Mutex
	next    Handle
	engines map[Handle]*engine.Engine
}

// NewRegistry returns an empty registry. A nil factory builds engines with
// default loaders; a nil scorer makes DetectLanguage report unknown.
func NewRegistry(factory Factory, scorer *langdetect.Scorer, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if factory == nil {
		factory = func() *engine.Engine { return engine.New(engine.WithLogger(logger)) }
	}
	return &Registry{
		log:     logger.With("component", "bridge"),
		factory: factory,
		scorer:  scorer,
		engines: make(map[Handle]*engine.Engine),
	}
}

// CreateInstance allocates an uninitialized engine. It returns 0 when the
// factory fails.
func (r *Registry) CreateInstance() (h Handle) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("engine allocation failed", "panic", rec)
			h = 0
		}
	}()

	e := r.factory()
	if e == nil {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	h = r.next
	r.engines[h] = e
	return h
}

func (r *Registry) lookup(h Handle) (*engine.Engine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.engines[h]
	return e, ok
}

// Initialize loads the model directory into the engine behind h.
func (r *Registry) Initialize(h Handle, modelDir string) (ok bool) {
	e, found := r.lookup(h)
	if !found {
		r.log.Warn("initialize on unknown handle", "handle", uint64(h))
		return false
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("initialize panicked", "handle", uint64(h), "panic", rec)
			ok = false
		}
	}()
	if err := e.Initialize(modelDir); err != nil {
		r.log.Warn("initialize failed", "handle", uint64(h), "model_dir", modelDir, "error", err)
		return false
	}
	return true
}

// Translate returns the translation of text, or a sentinel-prefixed message
// on failure.
func (r *Registry) Translate(h Handle, text string) (out string) {
	e, found := r.lookup(h)
	if !found {
		return NotInitText
	}
	defer func() {
		if rec := recover(); rec != nil {
			out = engine.SentinelText(fmt.Errorf("panic: %v", rec))
		}
	}()
	translated, err := e.Translate(text)
	if errors.Is(err, engine.ErrNotReady) {
		return NotReadyText
	}
	if err != nil {
		return engine.SentinelText(err)
	}
	return translated
}

// Destroy releases the engine behind h. Unknown handles are ignored.
func (r *Registry) Destroy(h Handle) {
	r.mu.Lock()
	e, found := r.engines[h]
	delete(r.engines, h)
	r.mu.Unlock()
	if !found {
		return
	}
	if err := e.Close(); err != nil {
		r.log.Warn("engine close failed", "handle", uint64(h), "error", err)
	}
}

// Len reports the number of live handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.engines)
}

// Close destroys every live handle.
func (r *Registry) Close() {
	r.mu.Lock()
	handles := make([]Handle, 0, len(r.engines))
	for h := range r.engines {
		handles = append(handles, h)
	}
	r.mu.Unlock()
	for _, h := range handles {
		r.Destroy(h)
	}
}

// DetectLanguage is stateless. A nil hint means no hint.
func (r *Registry) DetectLanguage(text string, hint *string) (res langdetect.Result) {
	if r.scorer == nil {
		return langdetect.Result{LanguageCode: langdetect.UnknownCode}
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("language detection panicked", "panic", rec)
			res = langdetect.Result{LanguageCode: langdetect.UnknownCode}
		}
	}()
	h := ""
	if hint != nil {
		h = *hint
	}
	return r.scorer.Detect(text, h)
}
