// Package tracing wires OpenTelemetry into swipe. Spans are exported through
// the stdout exporter, either to stdout or a file.
package tracing

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/joescharf/swipe/internal/models"
)

const instrumentationName = "github.com/joescharf/swipe"

// Init installs a global tracer provider backed by the stdout exporter. An
// empty outputFile writes to os.Stderr. The returned func flushes and shuts
// the provider down.
func Init(serviceName, serviceVersion, outputFile string) (func(context.Context) error, error) {
	var w io.Writer = os.Stderr
	var closer io.Closer
	if outputFile != "" {
		f, err := os.OpenFile(outputFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, err
		}
		w, closer = f, f
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}

	tp, err := InitWithExporter(serviceName, serviceVersion, exporter)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) error {
		err := tp.Shutdown(ctx)
		if closer != nil {
			closer.Close()
		}
		return err
	}, nil
}

// InitWithExporter registers the supplied exporter as the global trace provider.
func InitWithExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// StatusStore is the slice of the persistence layer the review engine calls.
type StatusStore interface {
	UpdateStatus(ctx context.Context, postID string, status models.PostStatus, meta models.StatusMeta) error
	FetchPending(ctx context.Context, clientID string) ([]*models.Post, error)
}

type tracedStatusStore struct {
	next   StatusStore
	tracer trace.Tracer
}

// WrapStatusStore records a span around every call to next.
func WrapStatusStore(next StatusStore) StatusStore {
	return &tracedStatusStore{
		next:   next,
		tracer: otel.Tracer(instrumentationName),
	}
}

func (s *tracedStatusStore) UpdateStatus(ctx context.Context, postID string, status models.PostStatus, meta models.StatusMeta) error {
	ctx, span := s.tracer.Start(ctx, "store.UpdateStatus", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("post.id", postID),
		attribute.String("post.status", string(status)),
		attribute.Bool("post.content_replaced", meta.Content != ""),
	)

	err := s.next.UpdateStatus(ctx, postID, status, meta)
	record(span, err)
	return err
}

func (s *tracedStatusStore) FetchPending(ctx context.Context, clientID string) ([]*models.Post, error) {
	ctx, span := s.tracer.Start(ctx, "store.FetchPending", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("client.id", clientID))

	posts, err := s.next.FetchPending(ctx, clientID)
	span.SetAttributes(attribute.Int("posts.count", len(posts)))
	record(span, err)
	return posts, err
}

func record(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}
