package tracing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/event"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/listener/tracing"
)

func newSink(t *testing.T) (*tracing.Sink, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return tracing.NewSink(provider.Tracer("test")), recorder
}

func TestSink_OneSpanPerOperation(t *testing.T) {
	sink, recorder := newSink(t)
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	base := event.Event{Object: "Account", Operation: model.OperationUpsert}

	e := base
	e.Status, e.Time = model.APIStatusOperationStarted, start
	sink.Emit(e)
	e.Status, e.Time, e.JobID = model.APIStatusJobCreated, start.Add(time.Second), "job-1"
	sink.Emit(e)
	e.Status, e.Time, e.Processed, e.Failed = model.APIStatusOperationFinished, start.Add(2*time.Second), 5, 1
	sink.Emit(e)

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	span := ended[0]
	assert.Equal(t, "Account/Upsert", span.Name())
	assert.Equal(t, start, span.StartTime())
	assert.Equal(t, start.Add(2*time.Second), span.EndTime())
	assert.Equal(t, codes.Ok, span.Status().Code)
	require.Len(t, span.Events(), 2)
	assert.Equal(t, "JobCreated", span.Events()[0].Name)
}

func TestSink_FailedStatusMarksSpan(t *testing.T) {
	sink, recorder := newSink(t)
	base := event.Event{Object: "Contact", Operation: model.OperationDelete}

	e := base
	e.Status = model.APIStatusOperationStarted
	sink.Emit(e)
	e.Status, e.Message, e.Severity = model.APIStatusFailed, "boom", event.SeverityError
	sink.Emit(e)
	assert.Empty(t, recorder.Ended())

	sink.EndAll()
	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
}

func TestSink_IgnoresEventsWithoutStart(t *testing.T) {
	sink, recorder := newSink(t)
	sink.Emit(event.Event{Object: "Account", Operation: model.OperationInsert, Status: model.APIStatusCompleted})
	assert.Empty(t, recorder.Started())
}
