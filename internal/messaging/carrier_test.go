package messaging

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestMessageCarrier(t *testing.T) {
	t.Run("set replaces existing header", func(t *testing.T) {
		msg := &kafka.Message{}
		carrier := NewMessageCarrier(msg)

		carrier.Set("traceparent", "a")
		carrier.Set("traceparent", "b")
		carrier.Set("tracestate", "c")

		require.Len(t, msg.Headers, 2)
		assert.Equal(t, "b", carrier.Get("traceparent"))
		assert.Equal(t, []string{"traceparent", "tracestate"}, carrier.Keys())
		assert.Empty(t, carrier.Get("missing"))
	})

	t.Run("round trips trace context", func(t *testing.T) {
		traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
		require.NoError(t, err)
		spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
		require.NoError(t, err)

		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     spanID,
			TraceFlags: trace.FlagsSampled,
		})
		ctx := trace.ContextWithSpanContext(context.Background(), sc)

		msg := &kafka.Message{}
		propagator := propagation.TraceContext{}
		propagator.Inject(ctx, NewMessageCarrier(msg))

		extracted := trace.SpanContextFromContext(propagator.Extract(context.Background(), NewMessageCarrier(msg)))
		assert.Equal(t, traceID, extracted.TraceID())
		assert.Equal(t, spanID, extracted.SpanID())
	})
}
