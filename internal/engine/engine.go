// Package engine owns a loaded translation model and its tokenizers and runs
// the text-to-text pipeline over them.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/nupi-ai/plugin-translate-local/internal/ct2"
	"github.com/nupi-ai/plugin-translate-local/internal/tokenizer"
	"github.com/nupi-ai/plugin-translate-local/internal/vocab"
)

var (
	// ErrAlreadyInitialized is returned by Initialize on an engine that left
	// the uninitialized state.
	ErrAlreadyInitialized = errors.New("engine: already initialized")
	// ErrNotReady is returned by Translate before a successful Initialize.
	ErrNotReady = errors.New("engine: not initialized")
	// ErrEmptyResult indicates the runtime produced no output tokens.
	ErrEmptyResult = errors.New("engine: empty translation result")
	// ErrDecodeFailed indicates the target tokenizer could not detokenize.
	ErrDecodeFailed = errors.New("engine: failed to decode tokens")
)

// State is the lifecycle position of an Engine.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateFailedInit
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateFailedInit:
		return "failed_init"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Loaders opens the runtime model and the tokenizer models.
type Loaders struct {
	Translator ct2.Loader
	Tokenizer  tokenizer.Loader
	Config     ct2.LoadConfig
}

// Engine is not safe for concurrent use.
type Engine struct {
	log      *slog.Logger
	decoding DecodingParameters
	loaders  Loaders

	state      State
	vocab      vocab.Config
	translator ct2.Translator
	source     tokenizer.Model
	target     tokenizer.Model
}

// Option customises an Engine at construction.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.log = logger
		}
	}
}

// WithDecoding replaces the decoding parameters.
func WithDecoding(p DecodingParameters) Option {
	return func(e *Engine) { e.decoding = p }
}

// WithLoaders replaces the model loaders.
func WithLoaders(l Loaders) Option {
	return func(e *Engine) {
		if l.Translator != nil {
			e.loaders.Translator = l.Translator
		}
		if l.Tokenizer != nil {
			e.loaders.Tokenizer = l.Tokenizer
		}
		if l.Config != (ct2.LoadConfig{}) {
			e.loaders.Config = l.Config
		}
	}
}

// New returns an uninitialized engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		log:      slog.Default(),
		decoding: DefaultDecoding(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.loaders.Translator == nil || e.loaders.Tokenizer == nil {
		defaults := DefaultLoaders(e.log)
		if e.loaders.Translator == nil {
			e.loaders.Translator = defaults.Translator
		}
		if e.loaders.Tokenizer == nil {
			e.loaders.Tokenizer = defaults.Tokenizer
		}
		if e.loaders.Config == (ct2.LoadConfig{}) {
			e.loaders.Config = defaults.Config
		}
	}
	e.log = e.log.With("component", "engine")
	return e
}

// State reports the lifecycle state.
func (e *Engine) State() State { return e.state }

// Vocabulary returns the resolved vocabulary; zero until Ready.
func (e *Engine) Vocabulary() vocab.Config { return e.vocab }

// Decoding returns the decoding parameters used by Translate.
func (e *Engine) Decoding() DecodingParameters { return e.decoding }

// Initialize resolves vocabularies in modelDir and loads the runtime model and
// both tokenizers. Any failure releases what was loaded and pins the engine
// to StateFailedInit.
func (e *Engine) Initialize(modelDir string) (err error) {
	if e.state != StateUninitialized {
		return fmt.Errorf("%w (state %s)", ErrAlreadyInitialized, e.state)
	}

	stage := "resolve"
	defer func() {
		if r := recover(); r != nil {
			err = &PipelineError{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			e.release()
			e.state = StateFailedInit
			e.log.Error("initialization failed", "model_dir", modelDir, "stage", stage, "error", err)
		}
	}()

	cfg, err := vocab.Resolve(modelDir)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if cfg.Shared {
		if base := filepath.Base(cfg.SourcePath); base == vocab.SourceFile || base == vocab.TargetFile {
			e.log.Warn("single-sided vocabulary used for both directions", "path", cfg.SourcePath)
		}
	}

	stage = "load_model"
	tr, err := e.loaders.Translator(modelDir, e.loaders.Config)
	if err != nil {
		return fmt.Errorf("engine: load model: %w", err)
	}
	e.translator = tr

	stage = "load_source_vocab"
	src, err := e.loaders.Tokenizer(cfg.SourcePath)
	if err != nil {
		return fmt.Errorf("engine: load source vocabulary: %w", err)
	}
	e.source = src

	stage = "load_target_vocab"
	tgt, err := e.loaders.Tokenizer(cfg.TargetPath)
	if err != nil {
		return fmt.Errorf("engine: load target vocabulary: %w", err)
	}
	e.target = tgt

	e.vocab = cfg
	e.state = StateReady
	e.log.Info("engine ready",
		"model_dir", modelDir,
		"shared_vocab", cfg.Shared,
		"source_vocab", filepath.Base(cfg.SourcePath),
		"source_vocab_size", src.VocabSize(),
		"target_vocab", filepath.Base(cfg.TargetPath),
		"target_vocab_size", tgt.VocabSize(),
	)
	return nil
}

// Close releases the runtime model and both tokenizers. Safe on engines that
// never initialized; repeated calls are no-ops.
func (e *Engine) Close() error {
	return e.release()
}

func (e *Engine) release() error {
	var errs []error
	if e.translator != nil {
		errs = append(errs, e.translator.Close())
		e.translator = nil
	}
	if e.source != nil {
		errs = append(errs, e.source.Close())
		e.source = nil
	}
	if e.target != nil {
		errs = append(errs, e.target.Close())
		e.target = nil
	}
	return errors.Join(errs...)
}
