package api

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/indicatord/internal/events"
)

// openSSE connects to an SSE endpoint and returns a channel of its
// "event:" and "data:" lines.
func openSSE(t *testing.T, ts *httptest.Server, path string) <-chan string {
	t.Helper()

	credentials := base64.StdEncoding.EncodeToString([]byte("test:test"))
	resp, err := http.Get(fmt.Sprintf("%s%s?auth=%s", ts.URL, path, credentials))
	if err != nil {
		t.Fatalf("Failed to connect to SSE: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		t.Fatalf("Expected SSE content type, got %s", resp.Header.Get("Content-Type"))
	}

	lines := make(chan string, 32)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, "data:") || strings.HasPrefix(line, "event:") {
				lines <- line
			}
		}
	}()
	return lines
}

// nextData returns the next data line, skipping event lines.
func nextData(t *testing.T, lines <-chan string, timeout time.Duration) (event, data string) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case line := <-lines:
			if strings.HasPrefix(line, "event:") {
				event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
				continue
			}
			return event, line
		case <-deadline:
			t.Fatal("Timeout waiting for SSE message")
			return "", ""
		}
	}
}

func TestSSEConnectionAndEvents(t *testing.T) {
	bus := events.New()
	_, ts := newTestServer(t, &fakeIndicator{status: sampleStatus()}, bus)

	lines := openSSE(t, ts, "/api/events")

	if _, msg := nextData(t, lines, time.Second); !strings.Contains(msg, "SSE connection established") {
		t.Errorf("Expected connection established message, got: %s", msg)
	}
	if ev, msg := nextData(t, lines, time.Second); ev != "state" || !strings.Contains(msg, `"reason":"battery_critical"`) {
		t.Errorf("Expected initial state, got %s: %s", ev, msg)
	}

	bus.Publish(events.IntentRenderedEvent{
		Worker:  "light",
		Class:   "critical",
		Color:   "red",
		Reason:  "battery_critical",
		Outcome: "preempted",
		Seq:     7,
	})

	ev, msg := nextData(t, lines, time.Second)
	if ev != "intent-rendered" {
		t.Errorf("event = %q, want intent-rendered", ev)
	}
	if !strings.Contains(msg, `"outcome":"preempted"`) || !strings.Contains(msg, `"seq":7`) {
		t.Errorf("Expected rendered intent, got: %s", msg)
	}
}

func TestSSESpamModeEvent(t *testing.T) {
	bus := events.New()
	_, ts := newTestServer(t, nil, bus)

	lines := openSSE(t, ts, "/api/events")
	nextData(t, lines, time.Second) // connection message

	bus.Publish(events.SpamModeChangedEvent{Lane: "light", Category: "link", Active: true})

	ev, msg := nextData(t, lines, time.Second)
	if ev != "spam-mode-changed" || !strings.Contains(msg, `"category":"link"`) || !strings.Contains(msg, `"active":true`) {
		t.Errorf("got %s: %s", ev, msg)
	}
}

func TestSSESignalViaAPI(t *testing.T) {
	bus := events.New()
	_, ts := newTestServer(t, nil, bus)

	lines := openSSE(t, ts, "/api/events")
	nextData(t, lines, time.Second)

	resp := doRequest(t, ts, http.MethodPost, "/api/signals/link", `{"connected":false,"advertising":true,"profile":2}`, true)
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	ev, msg := nextData(t, lines, time.Second)
	if ev != "link-changed" || !strings.Contains(msg, `"advertising":true`) || !strings.Contains(msg, `"source":"api"`) {
		t.Errorf("got %s: %s", ev, msg)
	}
}

func TestSSEUnauthorized(t *testing.T) {
	_, ts := newTestServer(t, nil, events.New())

	resp, err := http.Get(ts.URL + "/api/events")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if got := resp.Header.Get("WWW-Authenticate"); got != authRealm {
		t.Errorf("WWW-Authenticate = %q", got)
	}
}
