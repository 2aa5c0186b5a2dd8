package printer

import (
	"context"
	"errors"
	"testing"
)

func TestConnectionLifecycle(t *testing.T) {
	drv := &fakeDriver{names: []string{"EPSON TM-T20"}}
	c := NewConnection(drv)
	if c.State() != StateDisconnected {
		t.Fatalf("initial state %s", c.State())
	}
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if c.State() != StateConnected || !c.Connected() {
		t.Fatalf("state %s", c.State())
	}
	printers := c.Printers()
	if len(printers) != 1 || printers[0] != "EPSON TM-T20" {
		t.Fatalf("printers %v", printers)
	}
}

func TestConnectFailureReturnsToDisconnected(t *testing.T) {
	drv := &fakeDriver{openErr: errors.New("usb timeout")}
	c := NewConnection(drv)
	if err := c.Connect(context.Background()); err == nil {
		t.Fatalf("expected connect error")
	}
	if c.State() != StateDisconnected || len(c.Printers()) != 0 {
		t.Fatalf("state %s printers %v", c.State(), c.Printers())
	}
}

func TestReconnectRefreshesEnumeration(t *testing.T) {
	drv := &fakeDriver{names: []string{"old"}}
	c := NewConnection(drv)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	drv.names = []string{"new-a", "new-b"}
	if err := c.Reconnect(context.Background()); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	printers := c.Printers()
	if len(printers) != 2 || printers[0] != "new-a" {
		t.Fatalf("printers %v", printers)
	}
}

func TestPrintWhileDisconnected(t *testing.T) {
	c := NewConnection(&fakeDriver{})
	if err := c.Print(context.Background(), []byte("x")); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}
