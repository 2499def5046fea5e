package nats

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/smazurov/indicatord/internal/events"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func startServer(t *testing.T, port int) *Server {
	t.Helper()
	server := NewServer(ServerOptions{
		Port:   port,
		Name:   "test-server",
		Logger: quietLogger(),
	})
	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(server.Stop)
	return server
}

func TestServerStartStop(t *testing.T) {
	server := NewServer(ServerOptions{
		Port:   14222, // Use non-default port for testing
		Name:   "test-server",
		Logger: quietLogger(),
	})

	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}

	if !server.IsRunning() {
		t.Error("Server should be running after Start()")
	}

	if url := server.ClientURL(); url == "" {
		t.Error("ClientURL should not be empty")
	}

	server.Stop()

	if server.IsRunning() {
		t.Error("Server should not be running after Stop()")
	}
}

func TestClientOffline(t *testing.T) {
	client := NewClient("nats://localhost:59999", "test", quietLogger())

	// Connect should fail but not panic
	if err := client.Connect(); err == nil {
		t.Error("Connect should fail with non-existent server")
	}

	if err := client.Battery(50); err != ErrNotConnected {
		t.Errorf("Battery() offline = %v, want ErrNotConnected", err)
	}
	if _, err := client.OnRendered(func(events.IntentRenderedEvent) {}); err != ErrNotConnected {
		t.Errorf("OnRendered() offline = %v, want ErrNotConnected", err)
	}
	if client.IsConnected() {
		t.Error("Client should not be connected")
	}

	client.Close()
}

func TestBridgeForwardsSignals(t *testing.T) {
	server := startServer(t, 14223)

	bus := events.New()
	bridge := NewBridge(server.ClientURL(), bus, quietLogger())
	if err := bridge.Start(); err != nil {
		t.Fatalf("Bridge start: %v", err)
	}
	defer bridge.Stop()

	received := make(chan any, 16)
	for _, unsub := range []func(){
		events.SubscribeToChannel[events.BatteryChangedEvent](bus, received),
		events.SubscribeToChannel[events.LinkChangedEvent](bus, received),
		events.SubscribeToChannel[events.CapsLockChangedEvent](bus, received),
		events.SubscribeToChannel[events.BootCompleteEvent](bus, received),
		events.SubscribeToChannel[events.EndpointChangedEvent](bus, received),
		events.SubscribeToChannel[events.IndicateRequestedEvent](bus, received),
	} {
		defer unsub()
	}

	client := NewClient(server.ClientURL(), "test", quietLogger())
	if err := client.Connect(); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer client.Close()

	publishes := []func() error{
		func() error { return client.Battery(42) },
		func() error { return client.Link(true, false, 3) },
		func() error { return client.CapsLock(0x02) },
		client.Boot,
		func() error { return client.Endpoint("ble") },
		func() error { return client.Indicate("battery") },
	}
	for _, p := range publishes {
		if err := p(); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	if err := client.Flush(time.Second); err != nil {
		t.Fatal(err)
	}

	got := make(map[string]any)
	timeout := time.After(2 * time.Second)
	for len(got) < len(publishes) {
		select {
		case ev := <-received:
			switch e := ev.(type) {
			case events.BatteryChangedEvent:
				got["battery"] = e
			case events.LinkChangedEvent:
				got["link"] = e
			case events.CapsLockChangedEvent:
				got["capslock"] = e
			case events.BootCompleteEvent:
				got["boot"] = e
			case events.EndpointChangedEvent:
				got["endpoint"] = e
			case events.IndicateRequestedEvent:
				got["indicate"] = e
			}
		case <-timeout:
			t.Fatalf("received %d of %d events: %v", len(got), len(publishes), got)
		}
	}

	if e := got["battery"].(events.BatteryChangedEvent); e.Percent != 42 || e.Source != "nats" {
		t.Errorf("battery event = %+v", e)
	}
	if e := got["link"].(events.LinkChangedEvent); !e.Connected || e.Profile != 3 {
		t.Errorf("link event = %+v", e)
	}
	if e := got["capslock"].(events.CapsLockChangedEvent); e.Flags != 0x02 {
		t.Errorf("capslock event = %+v", e)
	}
	if e := got["endpoint"].(events.EndpointChangedEvent); e.Transport != "ble" {
		t.Errorf("endpoint event = %+v", e)
	}
	if e := got["indicate"].(events.IndicateRequestedEvent); e.Kind != "battery" {
		t.Errorf("indicate event = %+v", e)
	}
}

func TestBridgeForwardsRendered(t *testing.T) {
	server := startServer(t, 14224)

	bus := events.New()
	bridge := NewBridge(server.ClientURL(), bus, quietLogger())
	if err := bridge.Start(); err != nil {
		t.Fatalf("Bridge start: %v", err)
	}
	defer bridge.Stop()

	client := NewClient(server.ClientURL(), "watcher", quietLogger())
	if err := client.Connect(); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer client.Close()

	rendered := make(chan events.IntentRenderedEvent, 1)
	unsub, err := client.OnRendered(func(e events.IntentRenderedEvent) { rendered <- e })
	if err != nil {
		t.Fatal(err)
	}
	defer unsub()
	if err := client.Flush(time.Second); err != nil {
		t.Fatal(err)
	}

	bus.Publish(events.IntentRenderedEvent{Worker: "light", Class: "critical", Color: "red", Outcome: "completed"})

	select {
	case e := <-rendered:
		if e.Class != "critical" || e.Color != "red" {
			t.Errorf("rendered = %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Error("rendered event was not forwarded")
	}
}

func TestDecodeSignal(t *testing.T) {
	tests := []struct {
		name    string
		signal  string
		data    string
		want    events.Event
		wantErr bool
	}{
		{"battery unknown", SignalBattery, `{"unknown":true}`, events.BatteryChangedEvent{Unknown: true}, false},
		{"capslock active", SignalCapsLock, `{"active":true,"flags":1}`, events.CapsLockChangedEvent{Flags: 0x03}, false},
		{"boot incomplete ignored", SignalBoot, `{"complete":false}`, nil, false},
		{"empty link payload", SignalLink, ``, events.LinkChangedEvent{}, false},
		{"unknown subject", "humidity", `{}`, nil, false},
		{"bad json", SignalBattery, `{"percent":`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeSignal(tt.signal, []byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.want == nil {
				if got != nil {
					t.Errorf("got %+v, want nil", got)
				}
				return
			}
			if got == nil || got.Type() != tt.want.Type() {
				t.Fatalf("got %+v, want %T", got, tt.want)
			}
			switch w := tt.want.(type) {
			case events.BatteryChangedEvent:
				if g := got.(events.BatteryChangedEvent); g.Unknown != w.Unknown || g.Percent != w.Percent {
					t.Errorf("got %+v", g)
				}
			case events.CapsLockChangedEvent:
				if g := got.(events.CapsLockChangedEvent); g.Flags != w.Flags {
					t.Errorf("flags = %#x, want %#x", g.Flags, w.Flags)
				}
			}
		})
	}
}

func TestSubjectFunctions(t *testing.T) {
	tests := []struct {
		got      string
		expected string
	}{
		{SubjectSignal(SignalBattery), "indicatord.signals.battery"},
		{SubjectSignal(SignalCapsLock), "indicatord.signals.capslock"},
		{SubjectIndicate("profile"), "indicatord.indicate.profile"},
		{lastToken("indicatord.signals.link"), "link"},
		{lastToken("plain"), "plain"},
	}

	for _, tt := range tests {
		if tt.got != tt.expected {
			t.Errorf("Got %s, want %s", tt.got, tt.expected)
		}
	}
}
