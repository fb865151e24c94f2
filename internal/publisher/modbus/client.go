// internal/publisher/modbus/client.go
package modbus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// Config locates a status memory endpoint.
type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// Link is one TCP connection to a status memory endpoint. The unit ID
// travels on the shared transport handler, so requests are serialised.
type Link struct {
	mu        sync.Mutex
	transport *modbus.TCPClientHandler
	regs      modbus.Client
}

// Dial opens the link. Requests after a dropped connection redial on demand.
func Dial(cfg Config) (*Link, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("status link: endpoint required")
	}

	tr := modbus.NewTCPClientHandler(cfg.Endpoint)
	tr.Timeout = cfg.Timeout
	if err := tr.Connect(); err != nil {
		return nil, fmt.Errorf("status link: dial %s: %w", cfg.Endpoint, err)
	}
	return &Link{transport: tr, regs: modbus.NewClient(tr)}, nil
}

// Close drops the connection.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transport.Close()
}

// WriteRegisters stores regs from addr on unit (FC 16).
func (l *Link) WriteRegisters(unit uint8, addr uint16, regs []uint16) error {
	return l.forUnit(unit, func(c modbus.Client) error {
		_, err := c.WriteMultipleRegisters(addr, uint16(len(regs)), registerBytes(regs))
		return err
	})
}

// ReadRegisters loads qty registers from addr on unit (FC 3).
func (l *Link) ReadRegisters(unit uint8, addr, qty uint16) ([]uint16, error) {
	var out []uint16
	err := l.forUnit(unit, func(c modbus.Client) error {
		raw, err := c.ReadHoldingRegisters(addr, qty)
		if err != nil {
			return err
		}
		if len(raw) != 2*int(qty) {
			return fmt.Errorf("status link: read %d bytes, expected %d", len(raw), 2*int(qty))
		}
		out = byteRegisters(raw)
		return nil
	})
	return out, err
}

func (l *Link) forUnit(unit uint8, fn func(modbus.Client) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.transport.SlaveId = unit
	return fn(l.regs)
}

func registerBytes(regs []uint16) []byte {
	b := make([]byte, 2*len(regs))
	for i, r := range regs {
		binary.BigEndian.PutUint16(b[2*i:], r)
	}
	return b
}

// byteRegisters ignores a trailing odd byte.
func byteRegisters(b []byte) []uint16 {
	regs := make([]uint16, len(b)/2)
	for i := range regs {
		regs[i] = binary.BigEndian.Uint16(b[2*i:])
	}
	return regs
}
