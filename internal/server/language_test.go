package server

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/nupi-ai/plugin-translate-local/internal/models"
	"github.com/nupi-ai/plugin-translate-local/internal/service"
)

func TestResolveLanguage(t *testing.T) {
	cases := []struct {
		name       string
		configured string
		metadata   map[string]string
		want       string
	}{
		{name: "specific ignores metadata", configured: "de", metadata: map[string]string{LanguageMetadataKey: "pl"}, want: "de"},
		{name: "auto ignores metadata", configured: "auto", metadata: map[string]string{LanguageMetadataKey: "pl"}, want: "auto"},
		{name: "empty means auto", configured: "", want: "auto"},
		{name: "client uses metadata", configured: "client", metadata: map[string]string{LanguageMetadataKey: "pl"}, want: "pl"},
		{name: "client trims metadata", configured: "Client", metadata: map[string]string{LanguageMetadataKey: "  fr "}, want: "fr"},
		{name: "client without metadata", configured: "client", want: "auto"},
		{name: "client with blank metadata", configured: "client", metadata: map[string]string{LanguageMetadataKey: " "}, want: "auto"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := resolveLanguage(tc.configured, tc.metadata); got != tc.want {
				t.Fatalf("resolveLanguage(%q) = %q, want %q", tc.configured, got, tc.want)
			}
		})
	}
}

func TestToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{err: service.ErrUnsupportedLanguage, want: codes.InvalidArgument},
		{err: models.ErrInvalidModelType, want: codes.InvalidArgument},
		{err: service.ErrModelNotInstalled, want: codes.NotFound},
		{err: service.ErrModelLoadFailed, want: codes.FailedPrecondition},
		{err: context.DeadlineExceeded, want: codes.DeadlineExceeded},
		{err: errors.New("unexpected"), want: codes.Internal},
	}
	for _, tc := range cases {
		if got := status.Code(toStatus(tc.err)); got != tc.want {
			t.Fatalf("toStatus(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestRequestIDFrom(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(RequestIDHeader, "abc"))
	if got := requestIDFrom(ctx); got != "abc" {
		t.Fatalf("expected incoming id, got %q", got)
	}
	a, b := requestIDFrom(context.Background()), requestIDFrom(context.Background())
	if a == "" || a == b {
		t.Fatalf("expected fresh ids, got %q and %q", a, b)
	}
}
