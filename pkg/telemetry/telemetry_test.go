package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })
	return recorder
}

func TestInitTracerDisabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestWithSpanRecordsStatus(t *testing.T) {
	recorder := installRecorder(t)

	err := WithSpan(context.Background(), "ok", func(ctx context.Context) error {
		SetAttributes(ctx, attribute.String("skill", "demo"))
		AddEvent(ctx, "checkpoint")
		return nil
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = WithSpan(context.Background(), "failing", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "ok", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String("skill", "demo"))
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "checkpoint", spans[0].Events()[0].Name)

	assert.Equal(t, "failing", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "boom", spans[1].Status().Description)
}

func TestSampler(t *testing.T) {
	assert.Contains(t, sampler(Config{SamplerType: "never"}).Description(), "AlwaysOff")
	assert.Contains(t, sampler(Config{}).Description(), "AlwaysOn")
	assert.Contains(t, sampler(Config{SamplerType: "ratio", SamplerRatio: 0.5}).Description(), "ParentBased")
}
