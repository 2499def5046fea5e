package led

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"

	"github.com/smazurov/indicatord/internal/intent"
)

// ModbusOptions addresses a Modbus TCP stack light whose red, green and blue
// lamps are three consecutive coils.
type ModbusOptions struct {
	Endpoint  string
	UnitID    uint8
	CoilStart uint16
	Timeout   time.Duration
}

// coilWriter is the subset of modbus.Client used by the sink.
type coilWriter interface {
	WriteMultipleCoils(address, quantity uint16, value []byte) ([]byte, error)
}

// Modbus is a single TCP connection to one stack light.
type Modbus struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  coilWriter
	start   uint16
}

// NewModbus connects to the stack light.
func NewModbus(opts ModbusOptions) (*Modbus, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("modbus indicator: endpoint required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second
	}

	h := modbus.NewTCPClientHandler(opts.Endpoint)
	h.Timeout = opts.Timeout
	h.SlaveId = opts.UnitID

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("modbus indicator %s: %w", opts.Endpoint, err)
	}

	return &Modbus{
		handler: h,
		client:  modbus.NewClient(h),
		start:   opts.CoilStart,
	}, nil
}

// Name identifies the sink in logs.
func (m *Modbus) Name() string { return "modbus" }

// SetColor writes the three lamp coils in one request.
func (m *Modbus) SetColor(c intent.Color) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := c.Channels()
	if _, err := m.client.WriteMultipleCoils(m.start, uint16(len(ch)), packBits(ch[:])); err != nil {
		return fmt.Errorf("write coils at %d: %w: %w", m.start, intent.ErrDeviceNotReady, err)
	}
	return nil
}

// Close drops the TCP connection.
func (m *Modbus) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handler == nil {
		return nil
	}
	return m.handler.Close()
}

func packBits(bits []bool) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, v := range bits {
		if v {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}
