package printer

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
)

// ConnState is the printer link's connectivity state.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
)

// ErrNotConnected indicates a print was attempted without a live printer link.
var ErrNotConnected = errors.New("printer not connected")

// Driver abstracts the printer transport. The wire protocol is out of scope;
// implementations wrap whatever the station hardware speaks.
type Driver interface {
	Open(ctx context.Context) error
	Printers() []string
	Print(ctx context.Context, data []byte) error
	Close() error
}

// Connection tracks the disconnected -> connecting -> connected lifecycle of
// the printer link and refreshes printer enumeration on every reconnect.
type Connection struct {
	driver Driver

	mu       sync.Mutex
	state    ConnState
	printers []string
}

func NewConnection(driver Driver) *Connection {
	return &Connection{driver: driver, state: StateDisconnected}
}

// Connect opens the printer link. On failure the state returns to
// disconnected and the operator may retry explicitly.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	c.state = StateConnecting
	c.mu.Unlock()

	if err := c.driver.Open(ctx); err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.printers = nil
		c.mu.Unlock()
		log.WithError(err).Warn("printer connect failed")
		return err
	}

	c.mu.Lock()
	c.state = StateConnected
	c.printers = c.driver.Printers()
	c.mu.Unlock()
	log.WithField("printers", c.Printers()).Info("printer connected")
	return nil
}

// Reconnect tears the link down and connects again, refreshing enumeration.
func (c *Connection) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnected {
		if err := c.driver.Close(); err != nil {
			log.WithError(err).Warn("printer close failed")
		}
	}
	c.state = StateDisconnected
	c.printers = nil
	c.mu.Unlock()
	return c.Connect(ctx)
}

// State returns the current connectivity state.
func (c *Connection) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether prints can be submitted.
func (c *Connection) Connected() bool {
	return c.State() == StateConnected
}

// Printers returns the enumeration captured on the last connect.
func (c *Connection) Printers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.printers...)
}

// Print submits data to the printer.
func (c *Connection) Print(ctx context.Context, data []byte) error {
	if !c.Connected() {
		return ErrNotConnected
	}
	return c.driver.Print(ctx, data)
}
