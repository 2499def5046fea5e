package nats

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/smazurov/indicatord/internal/events"
)

// ErrNotConnected is returned by publishes made while offline.
var ErrNotConnected = errors.New("nats: not connected")

// Client publishes signals to a running indicatord and watches what it
// renders. It is what `indicatord signal` uses.
type Client struct {
	url       string
	name      string
	conn      *nats.Conn
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool
}

// NewClient creates a client. name identifies the connection on the server.
func NewClient(url, name string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if name == "" {
		name = "indicatord-client"
	}

	return &Client{
		url:    url,
		name:   name,
		logger: logger.With("component", "nats-client"),
	}
}

// Connect establishes a connection to the NATS server.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	opts := []nats.Option{
		nats.Name(c.name),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(5),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.mu.Lock()
			c.connected = false
			c.mu.Unlock()
			if err != nil {
				c.logger.Warn("NATS disconnected", "error", err)
			} else {
				c.logger.Debug("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			c.mu.Lock()
			c.connected = true
			c.mu.Unlock()
			c.logger.Info("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(c.url, opts...)
	if err != nil {
		c.logger.Warn("Failed to connect to NATS", "url", c.url, "error", err)
		return err
	}

	c.conn = conn
	c.connected = true
	c.logger.Debug("Connected to NATS", "url", c.url)
	return nil
}

func (c *Client) publish(subject string, msg any) error {
	c.mu.RLock()
	conn := c.conn
	connected := c.connected
	c.mu.RUnlock()

	if conn == nil || !connected {
		return ErrNotConnected
	}

	data, err := Marshal(msg)
	if err != nil {
		return err
	}
	if err := conn.Publish(subject, data); err != nil {
		return err
	}
	c.logger.Debug("Published", "subject", subject)
	return nil
}

func now() string { return time.Now().Format(time.RFC3339) }

// Battery publishes a state of charge. Negative percent means unknown.
func (c *Client) Battery(percent int) error {
	m := BatteryMessage{Percent: percent, Timestamp: now()}
	if percent < 0 {
		m = BatteryMessage{Unknown: true, Timestamp: m.Timestamp}
	}
	return c.publish(SubjectSignal(SignalBattery), m)
}

// Link publishes the link state of the active profile.
func (c *Client) Link(connected, advertising bool, profile int) error {
	return c.publish(SubjectSignal(SignalLink), LinkMessage{
		Connected:   connected,
		Advertising: advertising,
		Profile:     profile,
		Timestamp:   now(),
	})
}

// CapsLock publishes raw HID LED flags.
func (c *Client) CapsLock(flags uint8) error {
	return c.publish(SubjectSignal(SignalCapsLock), CapsLockMessage{Flags: flags, Timestamp: now()})
}

// Boot publishes boot completion.
func (c *Client) Boot() error {
	return c.publish(SubjectSignal(SignalBoot), BootMessage{Complete: true, Timestamp: now()})
}

// Endpoint publishes the active output transport.
func (c *Client) Endpoint(transport string) error {
	return c.publish(SubjectSignal(SignalEndpoint), EndpointMessage{Transport: transport, Timestamp: now()})
}

// Indicate requests a one-shot indication.
func (c *Client) Indicate(kind string) error {
	return c.publish(SubjectIndicate(kind), IndicateMessage{Timestamp: now()})
}

// OnRendered calls fn for every intent the daemon finishes rendering.
// The returned function unsubscribes.
func (c *Client) OnRendered(fn func(events.IntentRenderedEvent)) (func(), error) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return nil, ErrNotConnected
	}

	sub, err := conn.Subscribe(SubjectRendered, func(msg *nats.Msg) {
		var e events.IntentRenderedEvent
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			c.logger.Warn("Failed to unmarshal rendered event", "error", err)
			return
		}
		fn(e)
	})
	if err != nil {
		return nil, err
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

// Flush waits until the server has processed everything published so far.
func (c *Client) Flush(timeout time.Duration) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}
	return conn.FlushTimeout(timeout)
}

// IsConnected returns true if connected to NATS.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.conn != nil
}

// Close closes the NATS connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	c.connected = false
	c.logger.Debug("NATS client closed")
}
