package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/tripdiary/internal/domain"
	"github.com/bft-labs/tripdiary/internal/ports"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...ports.Field) {}
func (nopLogger) Info(string, ...ports.Field)  {}
func (nopLogger) Warn(string, ...ports.Field)  {}
func (nopLogger) Error(string, ...ports.Field) {}

type fixedStore struct {
	state domain.State
	err   error
}

func (s *fixedStore) Load(context.Context) (domain.State, error) { return s.state, s.err }
func (s *fixedStore) Save(_ context.Context, st domain.State) error {
	s.state = st
	return nil
}

type captureInjector struct {
	mu     sync.Mutex
	events []domain.Event
}

func (c *captureInjector) Inject(ev domain.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *captureInjector) Events() []domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Event(nil), c.events...)
}

func newControlFixture(t *testing.T, store *fixedStore) (*httptest.Server, *captureInjector) {
	t.Helper()
	inj := &captureInjector{}
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics\n"))
	})
	srv := httptest.NewServer(NewControlServer("", store, inj, metrics, nopLogger{}).Handler())
	t.Cleanup(srv.Close)
	return srv, inj
}

func TestControlServer_State(t *testing.T) {
	srv, _ := newControlFixture(t, &fixedStore{state: domain.StateOngoingTrip})

	resp, err := http.Get(srv.URL + StatePath)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body StateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, domain.StateOngoingTrip, body.State)
}

func TestControlServer_StateLoadError(t *testing.T) {
	srv, _ := newControlFixture(t, &fixedStore{err: errors.New("disk gone")})

	resp, err := http.Get(srv.URL + StatePath)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	hresp, err := http.Get(srv.URL + HealthPath)
	require.NoError(t, err)
	defer hresp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, hresp.StatusCode)
}

func TestControlServer_Events(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		wantStatus  int
		wantKind    domain.EventKind
		redelivered bool
	}{
		{name: "exited geofence", path: "/exited_geofence", wantStatus: http.StatusAccepted, wantKind: domain.EventExitedGeofence},
		{name: "upper case", path: "/STOP_TRACKING", wantStatus: http.StatusAccepted, wantKind: domain.EventStopTracking},
		{name: "redelivered", path: "/stopped_moving?redelivered=true", wantStatus: http.StatusAccepted, wantKind: domain.EventStoppedMoving, redelivered: true},
		{name: "unknown event", path: "/teleported", wantStatus: http.StatusBadRequest},
		{name: "bad flag", path: "/initialize?redelivered=maybe", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, inj := newControlFixture(t, &fixedStore{})

			resp, err := http.Post(srv.URL+EventsPath+tt.path, "application/json", nil)
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, tt.wantStatus, resp.StatusCode)
			events := inj.Events()
			if tt.wantStatus != http.StatusAccepted {
				assert.Empty(t, events)
				return
			}
			require.Len(t, events, 1)
			assert.Equal(t, tt.wantKind, events[0].Kind)
			assert.Equal(t, tt.redelivered, events[0].Redelivered)
			assert.False(t, events[0].At.IsZero())
		})
	}
}

func TestControlServer_HealthAndMetrics(t *testing.T) {
	srv, _ := newControlFixture(t, &fixedStore{})

	resp, err := http.Get(srv.URL + HealthPath)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + MetricsPath)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestControlClient(t *testing.T) {
	store := &fixedStore{state: domain.StateWaitingForTripStart}
	srv, inj := newControlFixture(t, store)
	client := NewControlClient(srv.URL+"/", srv.Client())
	ctx := context.Background()

	st, err := client.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StateWaitingForTripStart, st)

	require.NoError(t, client.Inject(ctx, domain.EventStartTracking, false))
	require.NoError(t, client.Inject(ctx, domain.EventStoppedMoving, true))

	events := inj.Events()
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventStartTracking, events[0].Kind)
	assert.True(t, events[1].Redelivered)
}

func TestControlClient_ServerError(t *testing.T) {
	srv, _ := newControlFixture(t, &fixedStore{err: errors.New("disk gone")})
	client := NewControlClient(srv.URL, srv.Client())

	_, err := client.State(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
}

func TestNewControlClient_AddsScheme(t *testing.T) {
	c := NewControlClient("127.0.0.1:7480", http.DefaultClient)
	assert.Equal(t, "http://127.0.0.1:7480", c.baseURL)
}

type webhookSink struct {
	mu      sync.Mutex
	got     []Notification
	headers []http.Header
	status  int
}

func (s *webhookSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var n Notification
	_ = json.NewDecoder(r.Body).Decode(&n)
	s.mu.Lock()
	s.got = append(s.got, n)
	s.headers = append(s.headers, r.Header.Clone())
	status := s.status
	s.mu.Unlock()
	if status == 0 {
		status = http.StatusNoContent
	}
	w.WriteHeader(status)
}

func (s *webhookSink) Received() ([]Notification, []http.Header) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notification(nil), s.got...), append([]http.Header(nil), s.headers...)
}

func TestWebhookNotifier_DeliversInOrder(t *testing.T) {
	sink := &webhookSink{}
	srv := httptest.NewServer(sink)
	defer srv.Close()

	n := NewWebhookNotifier(WebhookConfig{
		URL:      srv.URL,
		AuthKey:  "secret",
		Timeout:  time.Second,
		Hostname: "laptop",
	}, srv.Client(), nopLogger{})

	n.Notify(domain.NotificationStateChange, "success moving to new state ongoing_trip")
	n.NotifyResolution(domain.NotificationLocationPermission, "enable it", "enable_location_permission")
	n.Cancel(domain.NotificationTrackingError)
	n.Close()

	got, headers := sink.Received()
	require.Len(t, got, 3)
	assert.Equal(t, "notify", got[0].Op)
	assert.Equal(t, "success moving to new state ongoing_trip", got[0].Message)
	assert.Equal(t, "resolve", got[1].Op)
	assert.Equal(t, "enable_location_permission", got[1].Token)
	assert.Equal(t, "cancel", got[2].Op)

	assert.Equal(t, "Bearer secret", headers[0].Get("Authorization"))
	assert.Equal(t, "laptop", headers[0].Get("X-Tripdiary-Hostname"))
	assert.NotEmpty(t, headers[0].Get("X-Tripdiary-OSArch"))
}

func TestWebhookNotifier_ErrorsAreSwallowed(t *testing.T) {
	sink := &webhookSink{status: http.StatusBadGateway}
	srv := httptest.NewServer(sink)
	defer srv.Close()

	n := NewWebhookNotifier(WebhookConfig{URL: srv.URL}, srv.Client(), nopLogger{})
	n.Notify(domain.NotificationTrackingError, "boom")
	n.Close()

	got, _ := sink.Received()
	assert.Len(t, got, 1)
}

func TestWebhookNotifier_DropsAfterClose(t *testing.T) {
	sink := &webhookSink{}
	srv := httptest.NewServer(sink)
	defer srv.Close()

	n := NewWebhookNotifier(WebhookConfig{URL: srv.URL}, srv.Client(), nopLogger{})
	n.Close()
	n.Close()
	n.Notify(domain.NotificationStateChange, "late")

	got, _ := sink.Received()
	assert.Empty(t, got)
}
