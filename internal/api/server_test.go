package api

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/indicatord/internal/api/models"
	"github.com/smazurov/indicatord/internal/arbiter"
	"github.com/smazurov/indicatord/internal/events"
	"github.com/smazurov/indicatord/internal/indicator"
	"github.com/smazurov/indicatord/internal/intent"
	"github.com/smazurov/indicatord/internal/logging"
	"github.com/smazurov/indicatord/internal/signals"
)

type fakeIndicator struct {
	status    indicator.Status
	indicated []arbiter.IndicateKind
	err       error
}

func (f *fakeIndicator) Status() indicator.Status { return f.status }

func (f *fakeIndicator) Indicate(kind arbiter.IndicateKind) error {
	if f.err != nil {
		return f.err
	}
	f.indicated = append(f.indicated, kind)
	return nil
}

func sampleStatus() indicator.Status {
	critical := intent.Intent{
		Class:  intent.ClassCritical,
		Color:  intent.Red,
		Mode:   intent.BlinkForever(250*time.Millisecond, 250*time.Millisecond),
		Reason: "battery_critical",
		Seq:    3,
	}
	return indicator.Status{
		Signals: signals.Snapshot{
			Battery:   signals.Battery{Percent: 7},
			Link:      signals.Link{Connected: true, ProfileIndex: 1},
			LinkKnown: true,
			Endpoint:  signals.Endpoint{Transport: signals.TransportBLE},
			Version:   4,
		},
		Current:    critical,
		Recomputes: 2,
		Lanes: []indicator.LaneStatus{{
			Name:      indicator.LaneLight,
			State:     "rendering",
			Rendering: &critical,
			QueueCap:  8,
			Spam:      map[string]bool{"link": false},
			Admitted:  3,
		}},
	}
}

func newTestServer(t *testing.T, ind *fakeIndicator, bus *events.Bus) (*Server, *httptest.Server) {
	t.Helper()
	opts := &Options{
		AuthUsername: "test",
		AuthPassword: "test",
		EventBus:     bus,
		PrometheusHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("indicatord_up 1\n"))
		}),
	}
	if ind != nil {
		opts.Indicator = ind
	}
	server := NewServer(opts)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return server, ts
}

func doRequest(t *testing.T, ts *httptest.Server, method, path, body string, auth bool) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("test:test")))
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestAuth(t *testing.T) {
	_, ts := newTestServer(t, &fakeIndicator{status: sampleStatus()}, events.New())

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"bearer", "Bearer abc", "", http.StatusUnauthorized},
		{"bad base64", "Basic !!!", "", http.StatusUnauthorized},
		{"no colon", "Basic " + base64.StdEncoding.EncodeToString([]byte("test")), "", http.StatusUnauthorized},
		{"wrong password", "Basic " + base64.StdEncoding.EncodeToString([]byte("test:nope")), "", http.StatusUnauthorized},
		{"header", "Basic " + base64.StdEncoding.EncodeToString([]byte("test:test")), "", http.StatusOK},
		{"query", "", base64.StdEncoding.EncodeToString([]byte("test:test")), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := ts.URL + "/api/indicator"
			if tt.query != "" {
				url += "?auth=" + tt.query
			}
			req, _ := http.NewRequest(http.MethodGet, url, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestPublicEndpoints(t *testing.T) {
	_, ts := newTestServer(t, &fakeIndicator{}, events.New())

	health := decode[models.HealthData](t, doRequest(t, ts, http.MethodGet, "/api/health", "", false))
	if health.Status != "ok" {
		t.Errorf("health = %+v", health)
	}

	resp := doRequest(t, ts, http.MethodGet, "/api/version", "", false)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("version status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doRequest(t, ts, http.MethodGet, "/metrics", "", false)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d", resp.StatusCode)
	}
}

func TestHealthWithoutIndicator(t *testing.T) {
	_, ts := newTestServer(t, nil, events.New())

	health := decode[models.HealthData](t, doRequest(t, ts, http.MethodGet, "/api/health", "", false))
	if health.Status != "degraded" {
		t.Errorf("health = %+v, want degraded", health)
	}

	resp := doRequest(t, ts, http.MethodGet, "/api/indicator", "", true)
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("indicator status = %d, want 503", resp.StatusCode)
	}
}

func TestGetIndicator(t *testing.T) {
	_, ts := newTestServer(t, &fakeIndicator{status: sampleStatus()}, events.New())

	resp := doRequest(t, ts, http.MethodGet, "/api/indicator", "", true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got := decode[models.IndicatorData](t, resp)

	if got.Signals.BatteryPercent == nil || *got.Signals.BatteryPercent != 7 {
		t.Errorf("battery = %v", got.Signals.BatteryPercent)
	}
	if got.Signals.Transport != "ble" || got.Signals.Profile != 1 || !got.Signals.Connected {
		t.Errorf("signals = %+v", got.Signals)
	}
	if got.Current.Class != "critical" || got.Current.Color != "red" || got.Current.Reason != "battery_critical" {
		t.Errorf("current = %+v", got.Current)
	}
	if len(got.Lanes) != 1 || got.Lanes[0].Rendering == nil || got.Lanes[0].QueueCapacity != 8 {
		t.Errorf("lanes = %+v", got.Lanes)
	}
}

func TestIndicate(t *testing.T) {
	tests := []struct {
		name string
		kind string
		err  error
		want int
	}{
		{"battery", "battery", nil, http.StatusAccepted},
		{"profile", "profile", nil, http.StatusAccepted},
		{"unknown kind", "volume", nil, http.StatusUnprocessableEntity},
		{"no light", "connectivity", intent.ErrDeviceNotReady, http.StatusConflict},
		{"spam cooldown", "battery", fmt.Errorf("indicate battery: %w", intent.ErrSuppressed), http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ind := &fakeIndicator{err: tt.err}
			_, ts := newTestServer(t, ind, events.New())

			resp := doRequest(t, ts, http.MethodPost, "/api/indicate/"+tt.kind, "", true)
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if tt.want == http.StatusAccepted && (len(ind.indicated) != 1 || string(ind.indicated[0]) != tt.kind) {
				t.Errorf("indicated = %v", ind.indicated)
			}
		})
	}
}

func TestSignalRoutes(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		body  string
		want  int
		check func(t *testing.T, ev any)
	}{
		{
			name: "battery percent",
			path: "/api/signals/battery",
			body: `{"percent":15}`,
			want: http.StatusAccepted,
			check: func(t *testing.T, ev any) {
				if b := ev.(events.BatteryChangedEvent); b.Percent != 15 || b.Unknown || b.Source != "api" {
					t.Errorf("battery = %+v", b)
				}
			},
		},
		{
			name: "battery unknown",
			path: "/api/signals/battery",
			body: `{}`,
			want: http.StatusAccepted,
			check: func(t *testing.T, ev any) {
				if b := ev.(events.BatteryChangedEvent); !b.Unknown {
					t.Errorf("battery = %+v, want unknown", b)
				}
			},
		},
		{
			name: "battery out of range",
			path: "/api/signals/battery",
			body: `{"percent":140}`,
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "caps lock flag",
			path: "/api/signals/capslock",
			body: `{"active":true}`,
			want: http.StatusAccepted,
			check: func(t *testing.T, ev any) {
				if c := ev.(events.CapsLockChangedEvent); c.Flags != 0x02 {
					t.Errorf("flags = %#x", c.Flags)
				}
			},
		},
		{
			name: "caps lock raw flags",
			path: "/api/signals/capslock",
			body: `{"flags":3}`,
			want: http.StatusAccepted,
			check: func(t *testing.T, ev any) {
				if c := ev.(events.CapsLockChangedEvent); c.Flags != 0x03 {
					t.Errorf("flags = %#x", c.Flags)
				}
			},
		},
		{
			name: "boot",
			path: "/api/signals/boot",
			want: http.StatusAccepted,
			check: func(t *testing.T, ev any) {
				if _, ok := ev.(events.BootCompleteEvent); !ok {
					t.Errorf("event = %T", ev)
				}
			},
		},
		{
			name: "endpoint",
			path: "/api/signals/endpoint",
			body: `{"transport":"usb"}`,
			want: http.StatusAccepted,
			check: func(t *testing.T, ev any) {
				if e := ev.(events.EndpointChangedEvent); e.Transport != "usb" {
					t.Errorf("endpoint = %+v", e)
				}
			},
		},
		{
			name: "endpoint invalid",
			path: "/api/signals/endpoint",
			body: `{"transport":"serial"}`,
			want: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := events.New()
			ch := make(chan any, 4)
			for _, unsub := range []func(){
				events.SubscribeToChannel[events.BatteryChangedEvent](bus, ch),
				events.SubscribeToChannel[events.CapsLockChangedEvent](bus, ch),
				events.SubscribeToChannel[events.BootCompleteEvent](bus, ch),
				events.SubscribeToChannel[events.EndpointChangedEvent](bus, ch),
			} {
				defer unsub()
			}
			_, ts := newTestServer(t, nil, bus)

			resp := doRequest(t, ts, http.MethodPost, tt.path, tt.body, true)
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if tt.check == nil {
				return
			}
			select {
			case ev := <-ch:
				tt.check(t, ev)
			case <-time.After(time.Second):
				t.Fatal("no event published")
			}
		})
	}
}

func TestSignalRoutesWithoutBus(t *testing.T) {
	_, ts := newTestServer(t, nil, nil)

	resp := doRequest(t, ts, http.MethodPost, "/api/signals/boot", "", true)
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestGetLogs(t *testing.T) {
	logging.Initialize(logging.Config{Level: "info", BufferSize: 16})
	logger := logging.GetLogger("apitest")
	logger.Info("first entry")
	logger.Info("second entry")

	_, ts := newTestServer(t, nil, events.New())

	all := decode[struct {
		Entries []models.LogEntryData `json:"entries"`
		Count   int                   `json:"count"`
	}](t, doRequest(t, ts, http.MethodGet, "/api/logs", "", true))
	if all.Count < 2 || all.Count != len(all.Entries) {
		t.Fatalf("count = %d, entries = %d", all.Count, len(all.Entries))
	}

	var firstSeq uint64
	for _, e := range all.Entries {
		if e.Message == "first entry" {
			firstSeq = e.Seq
		}
	}
	if firstSeq == 0 {
		t.Fatal("first entry not buffered")
	}

	since := decode[struct {
		Entries []models.LogEntryData `json:"entries"`
	}](t, doRequest(t, ts, http.MethodGet, "/api/logs?since="+strconv.FormatUint(firstSeq, 10), "", true))
	for _, e := range since.Entries {
		if e.Seq <= firstSeq {
			t.Errorf("entry %d not after %d", e.Seq, firstSeq)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	_, ts := newTestServer(t, nil, events.New())

	resp := doRequest(t, ts, http.MethodOptions, "/api/signals/battery", "", false)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow origin = %q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") {
		t.Errorf("allow methods = %q", got)
	}
}

func TestRequestLevel(t *testing.T) {
	tests := []struct {
		method string
		path   string
		status int
		want   slog.Level
	}{
		{"GET", "/api/health", 200, slog.LevelDebug},
		{"GET", "/api/indicator", 503, slog.LevelError},
		{"OPTIONS", "/api/signals/battery", 204, slog.LevelDebug},
		{"POST", "/api/signals/battery", 202, slog.LevelInfo},
		{"POST", "/api/indicate/rainbow", 422, slog.LevelWarn},
	}
	for _, tt := range tests {
		if got := requestLevel(tt.method, tt.path, tt.status); got != tt.want {
			t.Errorf("requestLevel(%s %s %d) = %v, want %v", tt.method, tt.path, tt.status, got, tt.want)
		}
	}
}
