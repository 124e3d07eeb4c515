package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestObservability_Lifecycle(t *testing.T) {
	obs := New("nexi-assistant-test")
	defer obs.Shutdown()

	ctx, span := obs.StartSpan(context.Background(), "turn", attribute.String("thread_id", "t1"))
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	assert.NotPanics(t, func() {
		obs.RecordTurn(ctx, "collection", "send_message")
		obs.RecordTurnDuration(ctx, 120*time.Millisecond, "collection")
	})
}

func TestObservability_NilSafe(t *testing.T) {
	var obs *Observability
	ctx, span := obs.StartSpan(context.Background(), "turn")
	assert.NotNil(t, ctx)
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	assert.NotPanics(t, func() {
		obs.RecordTurn(ctx, "text", "apply_filters")
		obs.RecordTurnDuration(ctx, time.Second, "text")
		obs.Shutdown()
	})
}
