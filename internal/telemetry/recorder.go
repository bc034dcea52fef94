package telemetry

import (
	"log/slog"
	"sync/atomic"
	"time"
	"unicode/utf8"
)

// Recorder tracks adapter-level telemetry that can be forwarded to the daemon/event bus.
type Recorder struct {
	log *slog.Logger

	totalRequests     atomic.Uint64
	activeRequests    atomic.Int64
	totalTranslations atomic.Uint64
	totalDetections   atomic.Uint64
	totalFailures     atomic.Uint64
	totalInputRunes   atomic.Uint64
	totalOutputRunes  atomic.Uint64
	totalInferenceNs  atomic.Int64
}

// Snapshot captures cumulative metrics recorded so far.
type Snapshot struct {
	TotalRequests     uint64
	ActiveRequests    int64
	TotalTranslations uint64
	TotalDetections   uint64
	TotalFailures     uint64
	TotalInputRunes   uint64
	TotalOutputRunes  uint64
	TotalInference    time.Duration
}

// NewRecorder constructs a Recorder using the provided logger.
func NewRecorder(logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		log: logger.With("component", "telemetry.Recorder"),
	}
}

// Snapshot returns an immutable view of the recorder totals.
func (r *Recorder) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{}
	}
	return Snapshot{
		TotalRequests:     r.totalRequests.Load(),
		ActiveRequests:    r.activeRequests.Load(),
		TotalTranslations: r.totalTranslations.Load(),
		TotalDetections:   r.totalDetections.Load(),
		TotalFailures:     r.totalFailures.Load(),
		TotalInputRunes:   r.totalInputRunes.Load(),
		TotalOutputRunes:  r.totalOutputRunes.Load(),
		TotalInference:    time.Duration(r.totalInferenceNs.Load()),
	}
}

// RequestMetrics accumulates statistics for a single RPC.
type RequestMetrics struct {
	recorder *Recorder
	log      *slog.Logger

	requestID string
	method    string

	started     time.Time
	inputRunes  int
	outputRunes int
	inference   time.Duration
	closed      atomic.Bool
}

// StartRequest initialises a RequestMetrics instance bound to the recorder.
func (r *Recorder) StartRequest(requestID, method string, metadata map[string]string) *RequestMetrics {
	if r == nil {
		return nil
	}

	reqLogger := r.log.With(
		"request_id", requestID,
		"method", method,
	)
	if cloned := cloneMetadata(metadata); len(cloned) > 0 {
		reqLogger = reqLogger.With("metadata", cloned)
	}

	r.totalRequests.Add(1)
	r.activeRequests.Add(1)

	return &RequestMetrics{
		recorder:  r,
		log:       reqLogger,
		requestID: requestID,
		method:    method,
		started:   time.Now(),
	}
}

// RecordTranslation stores statistics for a completed translation.
func (m *RequestMetrics) RecordTranslation(input, output, source, target string) {
	if m == nil {
		return
	}
	in := utf8.RuneCountInString(input)
	out := utf8.RuneCountInString(output)
	m.inputRunes += in
	m.outputRunes += out
	m.recorder.totalTranslations.Add(1)
	m.recorder.totalInputRunes.Add(uint64(in))
	m.recorder.totalOutputRunes.Add(uint64(out))

	m.log.Debug("translation produced",
		"source", source,
		"target", target,
		"input_runes", in,
		"output_runes", out,
	)
}

// RecordDetection stores statistics for a language detection call.
func (m *RequestMetrics) RecordDetection(text, code string, reliable bool) {
	if m == nil {
		return
	}
	in := utf8.RuneCountInString(text)
	m.inputRunes += in
	m.recorder.totalDetections.Add(1)
	m.recorder.totalInputRunes.Add(uint64(in))

	m.log.Debug("language detected", "language", code, "reliable", reliable, "input_runes", in)
}

// RecordInferenceDuration adds time spent inside the engine.
func (m *RequestMetrics) RecordInferenceDuration(d time.Duration) {
	if m == nil || d <= 0 {
		return
	}
	m.inference += d
	m.recorder.totalInferenceNs.Add(int64(d))
}

// Finish logs a summary and updates active request counters.
func (m *RequestMetrics) Finish(err error) {
	if m == nil {
		return
	}
	if !m.closed.CompareAndSwap(false, true) {
		return
	}

	defer m.recorder.activeRequests.Add(-1)

	args := []any{
		"duration_ms", time.Since(m.started).Milliseconds(),
		"inference_ms", m.inference.Milliseconds(),
		"input_runes", m.inputRunes,
		"output_runes", m.outputRunes,
	}

	if err != nil {
		m.recorder.totalFailures.Add(1)
		m.log.Error("request completed with error", append(args, "error", err)...)
		return
	}

	m.log.Info("request completed", args...)
}

func cloneMetadata(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
