package printer

import (
	"context"
	"net"
	"sync"
	"time"
)

// TCPDriver talks to a network thermal printer in raw mode (port 9100 style).
// The receipt bytes already carry their ESC/POS cut sequence, so the driver
// only moves bytes.
type TCPDriver struct {
	addr    string
	timeout time.Duration

	mu   sync.Mutex
	conn net.Conn
}

func NewTCPDriver(addr string, timeout time.Duration) *TCPDriver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TCPDriver{addr: addr, timeout: timeout}
}

func (d *TCPDriver) Open(ctx context.Context) error {
	dialer := net.Dialer{Timeout: d.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", d.addr)
	if err != nil {
		return err
	}
	d.mu.Lock()
	if d.conn != nil {
		d.conn.Close()
	}
	d.conn = conn
	d.mu.Unlock()
	return nil
}

func (d *TCPDriver) Printers() []string {
	return []string{d.addr}
}

func (d *TCPDriver) Print(ctx context.Context, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return ErrNotConnected
	}
	deadline := time.Now().Add(d.timeout)
	if t, ok := ctx.Deadline(); ok && t.Before(deadline) {
		deadline = t
	}
	if err := d.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	_, err := d.conn.Write(data)
	return err
}

func (d *TCPDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}
