package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nupi-ai/plugin-translate-local/internal/adapterinfo"
	"github.com/nupi-ai/plugin-translate-local/internal/config"
	"github.com/nupi-ai/plugin-translate-local/internal/langdetect"
	"github.com/nupi-ai/plugin-translate-local/internal/languages"
	"github.com/nupi-ai/plugin-translate-local/internal/models"
	"github.com/nupi-ai/plugin-translate-local/internal/service"
	"github.com/nupi-ai/plugin-translate-local/internal/telemetry"
)

const (
	// ClientLanguageMode makes the server take the source language from the
	// request metadata instead of the configuration.
	ClientLanguageMode = "client"
	// LanguageMetadataKey carries the caller's ISO 639-1 language code.
	LanguageMetadataKey = "nupi.lang.iso1"
	// RequestIDHeader is echoed back in the response header.
	RequestIDHeader = "x-request-id"
)

// Translator is the translation backend; *service.Manager satisfies it.
type Translator interface {
	Translate(ctx context.Context, req service.Request) (service.Response, error)
	Detect(text, hint string) langdetect.Result
	Installed() ([]models.Installed, error)
}

// Server implements the TranslationService over structpb messages.
type Server struct {
	cfg        config.Config
	log        *slog.Logger
	translator Translator
	metrics    *telemetry.Recorder
	limiter    *rate.Limiter
}

// New returns a new Server instance.
func New(cfg config.Config, logger *slog.Logger, translator Translator, metrics *telemetry.Recorder) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if translator == nil {
		panic("server: translator must not be nil")
	}
	if metrics == nil {
		metrics = telemetry.NewRecorder(logger)
	}
	s := &Server{
		cfg: cfg,
		log: logger.With(
			"component", "server",
			"model_type", cfg.ModelType,
			"source_language", cfg.SourceLanguage,
			"target_language", cfg.TargetLanguage,
		),
		translator: translator,
		metrics:    metrics,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(math.Ceil(cfg.RequestsPerSecond))
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return s
}

// Translate handles {text, source?, target?, model_type?, metadata?}.
func (s *Server) Translate(ctx context.Context, in *structpb.Struct) (_ *structpb.Struct, err error) {
	requestID := requestIDFrom(ctx)
	fields, err := stringFields(in, "text", "source", "target", "model_type")
	if err != nil {
		return nil, err
	}
	md, err := metadataField(in)
	if err != nil {
		return nil, err
	}

	reqMetrics := s.metrics.StartRequest(requestID, "Translate", md)
	defer func() { reqMetrics.Finish(err) }()

	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	source := fields["source"]
	if source == "" {
		source = resolveLanguage(s.cfg.SourceLanguage, md)
	}
	target := fields["target"]
	if target == "" {
		target = s.cfg.TargetLanguage
	}
	modelType := fields["model_type"]
	if modelType == "" {
		modelType = s.cfg.ModelType
	}

	resp, err := s.translator.Translate(ctx, service.Request{
		Text:      fields["text"],
		Source:    source,
		Target:    target,
		ModelType: modelType,
	})
	if err != nil {
		s.log.Warn("translation failed", "request_id", requestID, "source", source, "target", target, "error", err)
		return nil, toStatus(err)
	}
	reqMetrics.RecordInferenceDuration(resp.Inference)
	reqMetrics.RecordTranslation(fields["text"], resp.Text, resp.Source, resp.Target)
	s.setRequestID(ctx, requestID)

	out := map[string]any{
		"text":         resp.Text,
		"source":       resp.Source,
		"target":       resp.Target,
		"model_type":   resp.ModelType,
		"inference_ms": float64(resp.Inference) / float64(time.Millisecond),
		"metadata":     stringMap(adapterinfo.TranslationMetadata(resp.Source, resp.Target, resp.ModelType)),
	}
	if resp.Detected != nil {
		out["detected"] = detectionValue(*resp.Detected)
	}
	return newStruct(out)
}

// DetectLanguage handles {text, hint?}.
func (s *Server) DetectLanguage(ctx context.Context, in *structpb.Struct) (_ *structpb.Struct, err error) {
	requestID := requestIDFrom(ctx)
	fields, err := stringFields(in, "text", "hint")
	if err != nil {
		return nil, err
	}

	reqMetrics := s.metrics.StartRequest(requestID, "DetectLanguage", nil)
	defer func() { reqMetrics.Finish(err) }()

	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	res := s.translator.Detect(fields["text"], fields["hint"])
	reqMetrics.RecordDetection(fields["text"], res.LanguageCode, res.IsReliable)
	s.setRequestID(ctx, requestID)
	return newStruct(detectionValue(res))
}

// ListModels reports installed pairs and the supported language codes.
func (s *Server) ListModels(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	installed, err := s.translator.Installed()
	if err != nil {
		return nil, status.Errorf(codes.Internal, "list models: %v", err)
	}
	entries := make([]any, 0, len(installed))
	for _, m := range installed {
		entries = append(entries, map[string]any{
			"source":     m.Pair.Source,
			"target":     m.Pair.Target,
			"model_type": m.Type,
			"dir":        m.Dir,
		})
	}
	codesList := languages.Codes()
	langs := make([]any, 0, len(codesList))
	for _, code := range codesList {
		langs = append(langs, code)
	}
	return newStruct(map[string]any{
		"models":    entries,
		"languages": langs,
		"version":   adapterinfo.Version(),
	})
}

func (s *Server) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return status.FromContextError(ctx.Err()).Err()
		}
		return status.Errorf(codes.ResourceExhausted, "rate limit: %v", err)
	}
	return nil
}

func (s *Server) setRequestID(ctx context.Context, id string) {
	if err := grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, id)); err != nil {
		s.log.Debug("failed to set response header", "error", err)
	}
}

// resolveLanguage maps the configured source mode to a language code. In
// client mode the caller's metadata decides and anything else means auto.
func resolveLanguage(configured string, md map[string]string) string {
	mode := strings.TrimSpace(configured)
	if !strings.EqualFold(mode, ClientLanguageMode) {
		if mode == "" {
			return languages.Auto
		}
		return mode
	}
	if lang := strings.TrimSpace(md[LanguageMetadataKey]); lang != "" {
		return lang
	}
	return languages.Auto
}

func requestIDFrom(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		for _, v := range md.Get(RequestIDHeader) {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return uuid.NewString()
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, service.ErrUnsupportedLanguage):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrModelNotInstalled):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrModelLoadFailed):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, models.ErrInvalidModelType):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func stringFields(in *structpb.Struct, names ...string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	fields := in.GetFields()
	for _, name := range names {
		v, ok := fields[name]
		if !ok {
			continue
		}
		switch kind := v.GetKind().(type) {
		case *structpb.Value_StringValue:
			out[name] = strings.TrimSpace(kind.StringValue)
			if name == "text" {
				out[name] = kind.StringValue
			}
		case *structpb.Value_NullValue:
		default:
			return nil, status.Errorf(codes.InvalidArgument, "field %q must be a string", name)
		}
	}
	return out, nil
}

func metadataField(in *structpb.Struct) (map[string]string, error) {
	v, ok := in.GetFields()["metadata"]
	if !ok {
		return nil, nil
	}
	st := v.GetStructValue()
	if st == nil {
		return nil, status.Error(codes.InvalidArgument, `field "metadata" must be an object`)
	}
	out := make(map[string]string, len(st.GetFields()))
	for k, val := range st.GetFields() {
		s, ok := val.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "metadata %q must be a string", k)
		}
		out[k] = s.StringValue
	}
	return out, nil
}

func detectionValue(res langdetect.Result) map[string]any {
	return map[string]any{
		"language":   res.LanguageCode,
		"name":       languages.Name(res.LanguageCode),
		"reliable":   res.IsReliable,
		"confidence": res.ConfidencePercent,
	}
}

func stringMap(in map[string]string) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return st, nil
}
