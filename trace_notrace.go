//go:build notrace

package ofx

import (
	"context"
	"log/slog"
	"time"
)

var nullLogger = slog.New(slog.DiscardHandler)

// TracingEnabled is false when built with -tags notrace
var TracingEnabled = false

type Span interface {
	End()
}

type SpanInfo struct {
	ID       string
	ParentID string
	Name     string
	Start    time.Time
}

type discardSpan struct{}

func (discardSpan) End() {}

func WithTraceLogger(ctx context.Context, _ *slog.Logger) context.Context { return ctx }

func TraceLogger(context.Context) *slog.Logger { return nullLogger }

func WithSpan(ctx context.Context, _ string) (context.Context, *SpanInfo) {
	return ctx, &SpanInfo{}
}

func StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, discardSpan{}
}

func TraceEvent(context.Context, string, ...slog.Attr) {}

func TraceError(context.Context, error, string, ...slog.Attr) {}
