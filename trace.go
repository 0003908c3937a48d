//go:build !notrace

package ofx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"runtime"
	"time"
)

type traceLoggerKey struct{}
type spanKey struct{}

// the null logger is a logger that does nothing
var nullLogger = slog.New(slog.DiscardHandler)

// TracingEnabled is false when built with -tags notrace
var TracingEnabled = true

// Span is an open tracing span
type Span interface {
	End()
}

// SpanInfo holds information about a tracing span
type SpanInfo struct {
	ID       string
	ParentID string
	Name     string
	Start    time.Time
}

type span struct {
	ctx  context.Context
	info *SpanInfo
}

func (s *span) End() {
	getTraceLogFromContext(s.ctx).Debug("END",
		slog.String("span_id", s.info.ID),
		slog.String("span_name", s.info.Name),
		slog.Duration("duration", time.Since(s.info.Start)))
}

func WithTraceLogger(ctx context.Context, tlog *slog.Logger) context.Context {
	// If the context already has a trace logger, return the context as is
	if _, ok := ctx.Value(traceLoggerKey{}).(*slog.Logger); ok {
		return ctx
	}

	// Otherwise, create a new context with the trace logger
	return context.WithValue(ctx, traceLoggerKey{}, tlog)
}

// TraceLogger returns the trace logger carried by ctx, or a logger that
// discards everything
func TraceLogger(ctx context.Context) *slog.Logger {
	if tlog, ok := ctx.Value(traceLoggerKey{}).(*slog.Logger); ok {
		return tlog
	}
	return nullLogger
}

func getTraceLogFromContext(ctx context.Context) *slog.Logger {
	// If the context has a trace logger, use that
	if tlog, ok := ctx.Value(traceLoggerKey{}).(*slog.Logger); ok {
		// Retrieve the function name of the caller for tracing
		pc, _, _, ok := runtime.Caller(2)
		if ok {
			fn := runtime.FuncForPC(pc)
			if fn != nil {
				tlog = tlog.With(slog.String("fn", fn.Name()))
			}
		}
		if info, ok := ctx.Value(spanKey{}).(*SpanInfo); ok {
			tlog = tlog.With(slog.String("span_id", info.ID))
		}
		return tlog
	}

	// Otherwise, return a null logger
	return nullLogger
}

// WithSpan creates a new span context. The span of ctx, if any, becomes
// the parent.
func WithSpan(ctx context.Context, name string) (context.Context, *SpanInfo) {
	info := &SpanInfo{
		ID:    generateSpanID(),
		Name:  name,
		Start: time.Now(),
	}
	if parent, ok := ctx.Value(spanKey{}).(*SpanInfo); ok {
		info.ParentID = parent.ID
	}
	return context.WithValue(ctx, spanKey{}, info), info
}

// StartSpan opens a span and logs its start. Call End on the result.
func StartSpan(ctx context.Context, spanName string) (context.Context, Span) {
	ctx, info := WithSpan(ctx, spanName)
	getTraceLogFromContext(ctx).Debug("START", slog.String("span_name", spanName))
	return ctx, &span{ctx: ctx, info: info}
}

// TraceEvent logs a structured event at debug level
func TraceEvent(ctx context.Context, msg string, attrs ...slog.Attr) {
	getTraceLogFromContext(ctx).LogAttrs(ctx, slog.LevelDebug, msg, attrs...)
}

// TraceError logs an error
func TraceError(ctx context.Context, err error, msg string, attrs ...slog.Attr) {
	attrs = append(attrs, slog.Any("error", err))
	getTraceLogFromContext(ctx).LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

func generateSpanID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
