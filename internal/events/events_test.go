package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"admission/internal/platform/metrics"
	"admission/pkg/requestcontext"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEmitEnrichesFromContext(t *testing.T) {
	p := NewPublisher(1)
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithRequestID(ctx, "req-1")
	ctx = requestcontext.WithClientMetadata(ctx, "10.0.0.1", "Chrome/120")

	require.NoError(t, p.Emit(ctx, Event{Type: ApplicationSaved, ApplicationID: "REG202500000001"}))

	e := <-p.Inbox()
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, now, e.Timestamp)
	assert.Equal(t, "req-1", e.RequestID)
	assert.Equal(t, "10.0.0.1", e.ClientIP)
	assert.Equal(t, "Chrome/120", e.UserAgent)
}

func TestEmitGivesUpWhenContextDone(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	p := NewPublisher(0, WithLogger(quietLogger()), WithMetrics(m))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Emit(ctx, Event{Type: ApplicationSaved})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("dropped")))
}

type failingSink struct{ calls int }

func (f *failingSink) Write(context.Context, Event) error {
	f.calls++
	return errors.New("sink down")
}

func TestWorkerDeliversUntilInboxClosed(t *testing.T) {
	p := NewPublisher(4)
	sink := NewMemorySink()
	w := NewWorker(sink, p.Inbox(), quietLogger(), nil)

	ctx := context.Background()
	require.NoError(t, p.Emit(ctx, Event{Type: CandidateRegistered}))
	require.NoError(t, p.Emit(ctx, Event{Type: ApplicationSubmitted}))
	p.Close()

	require.NoError(t, w.Run(ctx))
	assert.Len(t, sink.Events(), 2)
	assert.Len(t, sink.ByType(ApplicationSubmitted), 1)
}

func TestWorkerDrainsOnCancel(t *testing.T) {
	p := NewPublisher(4)
	sink := NewMemorySink()
	w := NewWorker(sink, p.Inbox(), quietLogger(), nil)

	require.NoError(t, p.Emit(context.Background(), Event{Type: ApplicationReset}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, sink.Events(), 1)
}

func TestWorkerSurvivesSinkFailure(t *testing.T) {
	p := NewPublisher(2)
	sink := &failingSink{}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	w := NewWorker(sink, p.Inbox(), quietLogger(), m)

	require.NoError(t, p.Emit(context.Background(), Event{Type: OTPVerified}))
	require.NoError(t, p.Emit(context.Background(), Event{Type: OTPVerified}))
	p.Close()

	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, 2, sink.calls)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("failed")))
}

type recordingProducer struct {
	records []*kgo.Record
	err     error
}

func (r *recordingProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	r.records = append(r.records, rs...)
	out := make(kgo.ProduceResults, 0, len(rs))
	for _, rec := range rs {
		out = append(out, kgo.ProduceResult{Record: rec, Err: r.err})
	}
	return out
}

func TestKafkaSinkWritesKeyedJSON(t *testing.T) {
	producer := &recordingProducer{}
	sink := NewKafkaSink(producer, "admission.events")

	e := Event{ID: "e-1", Type: ApplicationSubmitted, ApplicationID: "CAP202512345678"}
	require.NoError(t, sink.Write(context.Background(), e))

	require.Len(t, producer.records, 1)
	rec := producer.records[0]
	assert.Equal(t, "admission.events", rec.Topic)
	assert.Equal(t, "CAP202512345678", string(rec.Key))
	assert.Equal(t, "application.submitted", string(rec.Headers[0].Value))

	var decoded Event
	require.NoError(t, json.Unmarshal(rec.Value, &decoded))
	assert.Equal(t, e.ID, decoded.ID)
}

func TestKafkaSinkPropagatesProduceError(t *testing.T) {
	sink := NewKafkaSink(&recordingProducer{err: errors.New("no leader")}, "t")
	err := sink.Write(context.Background(), Event{ID: "e-2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no leader")
}

func TestLogSink(t *testing.T) {
	assert.NoError(t, NewLogSink(quietLogger()).Write(context.Background(), Event{Type: ApplicationSaved}))
}
