package nats

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/smazurov/indicatord/internal/events"
)

const bridgeSource = "nats"

// Bridge subscribes to signal subjects and forwards them to the event bus.
// Rendered intents and spam mode changes flow the other way.
type Bridge struct {
	url      string
	eventBus *events.Bus
	conn     *nats.Conn
	subs     []*nats.Subscription
	unsubs   []func()
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewBridge creates a new NATS-to-EventBus bridge.
func NewBridge(url string, eventBus *events.Bus, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}

	return &Bridge{
		url:      url,
		eventBus: eventBus,
		logger:   logger.With("component", "nats-bridge"),
	}
}

// Start connects to NATS and subscribes to the signal subjects.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	conn, err := nats.Connect(b.url,
		nats.Name("indicatord-bridge"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				b.logger.Warn("NATS bridge disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			b.logger.Info("NATS bridge reconnected")
		}),
	)
	if err != nil {
		return err
	}

	b.conn = conn
	b.logger.Info("NATS bridge connected", "url", b.url)

	signalsSub, err := conn.Subscribe(SubjectSignalsPrefix+".*", b.handleSignal)
	if err != nil {
		b.cleanup()
		return err
	}
	b.subs = append(b.subs, signalsSub)

	indicateSub, err := conn.Subscribe(SubjectIndicatePrefix+".*", b.handleIndicate)
	if err != nil {
		b.cleanup()
		return err
	}
	b.subs = append(b.subs, indicateSub)

	b.unsubs = append(b.unsubs,
		b.eventBus.Subscribe(func(e events.IntentRenderedEvent) { b.forward(SubjectRendered, e) }),
		b.eventBus.Subscribe(func(e events.SpamModeChangedEvent) { b.forward(SubjectSpam, e) }),
	)

	b.logger.Info("NATS bridge subscribed to signal subjects")
	return nil
}

// handleSignal decodes one signal message and publishes the matching event.
func (b *Bridge) handleSignal(msg *nats.Msg) {
	signal := lastToken(msg.Subject)
	ev, err := decodeSignal(signal, msg.Data)
	if err != nil {
		b.logger.Warn("Failed to unmarshal signal", "error", err, "subject", msg.Subject)
		return
	}
	if ev == nil {
		b.logger.Debug("Ignoring signal message", "subject", msg.Subject)
		return
	}

	b.eventBus.Publish(ev)
	b.logger.Debug("Published signal event", "signal", signal)
}

func decodeSignal(signal string, data []byte) (events.Event, error) {
	now := time.Now().Format(time.RFC3339)

	switch signal {
	case SignalBattery:
		m, err := Unmarshal[BatteryMessage](data)
		if err != nil {
			return nil, err
		}
		return events.BatteryChangedEvent{Percent: m.Percent, Unknown: m.Unknown, Source: bridgeSource, Timestamp: now}, nil

	case SignalLink:
		m, err := Unmarshal[LinkMessage](data)
		if err != nil {
			return nil, err
		}
		return events.LinkChangedEvent{
			Connected:   m.Connected,
			Advertising: m.Advertising,
			Profile:     m.Profile,
			Source:      bridgeSource,
			Timestamp:   now,
		}, nil

	case SignalCapsLock:
		m, err := Unmarshal[CapsLockMessage](data)
		if err != nil {
			return nil, err
		}
		return events.CapsLockChangedEvent{Flags: m.HIDFlags(), Source: bridgeSource, Timestamp: now}, nil

	case SignalBoot:
		m, err := Unmarshal[BootMessage](data)
		if err != nil {
			return nil, err
		}
		// Boot completion is one-way.
		if !m.Complete {
			return nil, nil
		}
		return events.BootCompleteEvent{Source: bridgeSource, Timestamp: now}, nil

	case SignalEndpoint:
		m, err := Unmarshal[EndpointMessage](data)
		if err != nil {
			return nil, err
		}
		return events.EndpointChangedEvent{Transport: m.Transport, Source: bridgeSource, Timestamp: now}, nil
	}
	return nil, nil
}

// handleIndicate turns indicatord.indicate.{kind} into an indicate request.
func (b *Bridge) handleIndicate(msg *nats.Msg) {
	if _, err := Unmarshal[IndicateMessage](msg.Data); err != nil {
		b.logger.Warn("Failed to unmarshal indicate request", "error", err, "subject", msg.Subject)
		return
	}
	b.eventBus.Publish(events.IndicateRequestedEvent{
		Kind:      lastToken(msg.Subject),
		Source:    bridgeSource,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// forward publishes a bus event to NATS.
func (b *Bridge) forward(subject string, ev events.Event) {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		b.logger.Warn("Failed to marshal event", "error", err, "subject", subject)
		return
	}
	if err := conn.Publish(subject, data); err != nil {
		b.logger.Debug("Failed to forward event", "error", err, "subject", subject)
	}
}

// cleanup unsubscribes and closes connection.
func (b *Bridge) cleanup() {
	for _, sub := range b.subs {
		_ = sub.Unsubscribe()
	}
	b.subs = nil

	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
}

// Stop closes the bridge connection.
func (b *Bridge) Stop() {
	// Bus handlers take b.mu in forward, so drop them before locking.
	b.mu.Lock()
	unsubs := b.unsubs
	b.unsubs = nil
	b.mu.Unlock()
	for _, unsub := range unsubs {
		unsub()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.cleanup()
	b.logger.Info("NATS bridge stopped")
}

// IsConnected returns true if the bridge is connected to NATS.
func (b *Bridge) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil && b.conn.IsConnected()
}
