package server_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nupi-ai/plugin-translate-local/internal/config"
	"github.com/nupi-ai/plugin-translate-local/internal/langdetect"
	"github.com/nupi-ai/plugin-translate-local/internal/models"
	"github.com/nupi-ai/plugin-translate-local/internal/server"
	"github.com/nupi-ai/plugin-translate-local/internal/service"
	"github.com/nupi-ai/plugin-translate-local/internal/telemetry"
)

const bufSize = 1024 * 1024

type fakeTranslator struct {
	mu   sync.Mutex
	reqs []service.Request
	err  error
}

func (f *fakeTranslator) Translate(_ context.Context, req service.Request) (service.Response, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.err != nil {
		return service.Response{}, f.err
	}
	resp := service.Response{
		Text:      "[" + req.Source + "→" + req.Target + "] " + req.Text,
		Source:    req.Source,
		Target:    req.Target,
		ModelType: req.ModelType,
		Inference: 3 * time.Millisecond,
	}
	if req.Source == "auto" {
		resp.Source = "fr"
		resp.Detected = &langdetect.Result{LanguageCode: "fr", IsReliable: true, ConfidencePercent: 88}
	}
	return resp, nil
}

func (f *fakeTranslator) Detect(text, hint string) langdetect.Result {
	if hint != "" {
		return langdetect.Result{LanguageCode: hint, IsReliable: false, ConfidencePercent: 40}
	}
	return langdetect.Result{LanguageCode: "de", IsReliable: true, ConfidencePercent: 97}
}

func (f *fakeTranslator) Installed() ([]models.Installed, error) {
	return []models.Installed{
		{Pair: models.Pair{Source: "de", Target: "en"}, Type: models.TypeLite, Dir: "/models/lite/de-en"},
	}, nil
}

func (f *fakeTranslator) last() service.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[len(f.reqs)-1]
}

type harness struct {
	client   *server.Client
	tr       *fakeTranslator
	recorder *telemetry.Recorder
}

func newHarness(t *testing.T, cfg config.Config) *harness {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	lis := bufconn.Listen(bufSize)
	t.Cleanup(func() { lis.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{tr: &fakeTranslator{}, recorder: telemetry.NewRecorder(logger)}

	grpcServer := grpc.NewServer()
	t.Cleanup(grpcServer.Stop)
	server.Register(grpcServer, server.New(cfg, logger, h.tr, h.recorder))

	go func() {
		if err := grpcServer.Serve(lis); err != nil &&
			!errors.Is(err, grpc.ErrServerStopped) &&
			!errors.Is(err, net.ErrClosed) &&
			err.Error() != "closed" {
			t.Errorf("Serve() error: %v", err)
		}
	}()

	conn, err := grpc.DialContext(ctx, "bufconn",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
			return lis.Dial()
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("DialContext error: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	h.client = server.NewClient(conn)
	return h
}

func baseConfig() config.Config {
	return config.Config{
		ListenAddr:     "bufconn",
		ModelType:      "lite",
		SourceLanguage: "auto",
		TargetLanguage: "en",
	}
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	st, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	return st
}

func TestTranslateExplicitSource(t *testing.T) {
	h := newHarness(t, baseConfig())
	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-request-id", "req-42")

	var header metadata.MD
	resp, err := h.client.Translate(ctx, mustStruct(t, map[string]any{
		"text":   "Guten Tag",
		"source": "de",
	}), grpc.Header(&header))
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}
	fields := resp.AsMap()
	if fields["text"] != "[de→en] Guten Tag" {
		t.Fatalf("unexpected text: %v", fields["text"])
	}
	if fields["model_type"] != "lite" {
		t.Fatalf("expected configured model type, got %v", fields["model_type"])
	}
	if _, ok := fields["detected"]; ok {
		t.Fatalf("explicit source must not report detection")
	}
	md, ok := fields["metadata"].(map[string]any)
	if !ok || md["generator"] != "translate-local" || md["source"] != "de" {
		t.Fatalf("unexpected metadata: %v", fields["metadata"])
	}
	if got := header.Get("x-request-id"); len(got) != 1 || got[0] != "req-42" {
		t.Fatalf("request id not echoed: %v", got)
	}

	snap := h.recorder.Snapshot()
	if snap.TotalRequests != 1 || snap.TotalTranslations != 1 || snap.TotalFailures != 0 {
		t.Fatalf("unexpected telemetry: %+v", snap)
	}
}

func TestTranslateAutoDetect(t *testing.T) {
	h := newHarness(t, baseConfig())

	resp, err := h.client.Translate(context.Background(), mustStruct(t, map[string]any{"text": "Bonjour"}))
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}
	fields := resp.AsMap()
	if fields["source"] != "fr" {
		t.Fatalf("expected detected source, got %v", fields["source"])
	}
	detected, ok := fields["detected"].(map[string]any)
	if !ok {
		t.Fatalf("missing detection block: %v", fields)
	}
	if detected["language"] != "fr" || detected["reliable"] != true || detected["confidence"] != float64(88) {
		t.Fatalf("unexpected detection: %v", detected)
	}
}

func TestTranslateClientLanguageMode(t *testing.T) {
	cfg := baseConfig()
	cfg.SourceLanguage = "client"
	h := newHarness(t, cfg)

	_, err := h.client.Translate(context.Background(), mustStruct(t, map[string]any{
		"text":     "Dzień dobry",
		"metadata": map[string]any{"nupi.lang.iso1": " pl "},
	}))
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}
	if got := h.tr.last().Source; got != "pl" {
		t.Fatalf("expected source from metadata, got %q", got)
	}

	if _, err := h.client.Translate(context.Background(), mustStruct(t, map[string]any{"text": "x"})); err != nil {
		t.Fatalf("Translate error: %v", err)
	}
	if got := h.tr.last().Source; got != "auto" {
		t.Fatalf("expected auto without metadata, got %q", got)
	}
}

func TestTranslateErrorCodes(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{err: fmt.Errorf("%w: target %q", service.ErrUnsupportedLanguage, "tlh"), want: codes.InvalidArgument},
		{err: fmt.Errorf("%w: de → en lite model", service.ErrModelNotInstalled), want: codes.NotFound},
		{err: fmt.Errorf("%w: de-en (lite)", service.ErrModelLoadFailed), want: codes.FailedPrecondition},
		{err: fmt.Errorf("%w: boom", service.ErrTranslationFailed), want: codes.Internal},
		{err: context.Canceled, want: codes.Canceled},
	}
	for _, tc := range cases {
		t.Run(tc.want.String(), func(t *testing.T) {
			h := newHarness(t, baseConfig())
			h.tr.err = tc.err

			_, err := h.client.Translate(context.Background(), mustStruct(t, map[string]any{"text": "x", "source": "de"}))
			if got := status.Code(err); got != tc.want {
				t.Fatalf("status code: got %v want %v (%v)", got, tc.want, err)
			}
			if snap := h.recorder.Snapshot(); snap.TotalFailures != 1 {
				t.Fatalf("expected failure to be recorded: %+v", snap)
			}
		})
	}
}

func TestTranslateRejectsBadFieldTypes(t *testing.T) {
	h := newHarness(t, baseConfig())

	for _, in := range []map[string]any{
		{"text": 42.0},
		{"text": "x", "target": true},
		{"text": "x", "metadata": "nope"},
		{"text": "x", "metadata": map[string]any{"k": 1.0}},
	} {
		_, err := h.client.Translate(context.Background(), mustStruct(t, in))
		if status.Code(err) != codes.InvalidArgument {
			t.Fatalf("%v: expected InvalidArgument, got %v", in, err)
		}
	}
}

func TestDetectLanguage(t *testing.T) {
	h := newHarness(t, baseConfig())

	resp, err := h.client.DetectLanguage(context.Background(), mustStruct(t, map[string]any{"text": "Guten Morgen"}))
	if err != nil {
		t.Fatalf("DetectLanguage error: %v", err)
	}
	fields := resp.AsMap()
	if fields["language"] != "de" || fields["name"] != "German" || fields["reliable"] != true {
		t.Fatalf("unexpected detection: %v", fields)
	}

	resp, err = h.client.DetectLanguage(context.Background(), mustStruct(t, map[string]any{"text": "x", "hint": "it"}))
	if err != nil {
		t.Fatalf("DetectLanguage error: %v", err)
	}
	if resp.AsMap()["language"] != "it" {
		t.Fatalf("hint not forwarded: %v", resp.AsMap())
	}
	if snap := h.recorder.Snapshot(); snap.TotalDetections != 2 {
		t.Fatalf("unexpected telemetry: %+v", snap)
	}
}

func TestListModels(t *testing.T) {
	h := newHarness(t, baseConfig())

	resp, err := h.client.ListModels(context.Background(), &structpb.Struct{})
	if err != nil {
		t.Fatalf("ListModels error: %v", err)
	}
	fields := resp.AsMap()
	list, ok := fields["models"].([]any)
	if !ok || len(list) != 1 {
		t.Fatalf("unexpected models: %v", fields["models"])
	}
	entry := list[0].(map[string]any)
	if entry["source"] != "de" || entry["target"] != "en" || entry["model_type"] != "lite" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	langs, ok := fields["languages"].([]any)
	if !ok || len(langs) != 26 {
		t.Fatalf("unexpected languages: %v", fields["languages"])
	}
}

func TestRateLimitHonoursDeadline(t *testing.T) {
	cfg := baseConfig()
	cfg.RequestsPerSecond = 0.01
	h := newHarness(t, cfg)

	in := mustStruct(t, map[string]any{"text": "x", "source": "de"})
	if _, err := h.client.Translate(context.Background(), in); err != nil {
		t.Fatalf("first request should pass: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err := h.client.Translate(ctx, in)
	switch status.Code(err) {
	case codes.ResourceExhausted, codes.DeadlineExceeded:
	default:
		t.Fatalf("expected throttling, got %v", err)
	}
}
