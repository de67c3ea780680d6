package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"focusguard/config"
	"focusguard/internal/domain/service"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPublisher struct {
	err    error
	closed bool
}

func (p *stubPublisher) PublishSessionEvent(context.Context, *service.SessionEvent) error {
	return p.err
}

func (p *stubPublisher) Close() error {
	p.closed = true

	return nil
}

func TestInstrumentPublisher_CountsResults(t *testing.T) {
	m := New(&config.Config{})
	ok := InstrumentPublisher(&stubPublisher{}, m)
	failing := InstrumentPublisher(&stubPublisher{err: errors.New("boom")}, m)

	require.NoError(t, ok.PublishSessionEvent(context.Background(), &service.SessionEvent{Type: service.SessionStarted}))
	require.Error(t, failing.PublishSessionEvent(context.Background(), &service.SessionEvent{Type: service.SessionStarted}))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionEventsTotal.WithLabelValues("session.started", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionEventsTotal.WithLabelValues("session.started", "error")))
}

func TestInstrumentPublisher_Close(t *testing.T) {
	stub := &stubPublisher{}
	require.NoError(t, InstrumentPublisher(stub, New(nil)).Close())
	assert.True(t, stub.closed)
}

func TestMetrics_Handler(t *testing.T) {
	m := New(&config.Config{})
	m.ObservePoll(true)
	m.ObservePoll(false)
	m.ObservePoll(false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `focus_active_session_polls_total{outcome="none",service="focusguard"} 2`)
	assert.Contains(t, rec.Body.String(), `focus_active_session_polls_total{outcome="active",service="focusguard"} 1`)
}
