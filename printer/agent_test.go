package printer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"fielddispatch/domain"
)

type fakeDriver struct {
	mu       sync.Mutex
	openErr  error
	printErr error
	prints   [][]byte
	names    []string
}

func (f *fakeDriver) Open(ctx context.Context) error { return f.openErr }

func (f *fakeDriver) Printers() []string { return f.names }

func (f *fakeDriver) Print(ctx context.Context, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.printErr != nil {
		return f.printErr
	}
	f.prints = append(f.prints, data)
	return nil
}

func (f *fakeDriver) Close() error { return nil }

func (f *fakeDriver) printCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prints)
}

func connectedAgent(t *testing.T, drv *fakeDriver, autoPrint bool) *Agent {
	t.Helper()
	conn := NewConnection(drv)
	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return NewAgent(conn, 50, autoPrint)
}

func insertEvent(id, title string) domain.FeedEvent {
	return domain.FeedEvent{
		Operation: domain.OpInsert,
		Table:     "tasks",
		Row:       domain.Task{ID: id, Title: title, DriverStatus: domain.StatusPending},
	}
}

func TestDuplicateInsertsPrintOnce(t *testing.T) {
	drv := &fakeDriver{}
	a := connectedAgent(t, drv, true)
	ctx := context.Background()

	ev := insertEvent("t2", "Hotel transfer")
	for i := 0; i < 5; i++ {
		a.HandleEvent(ctx, ev)
	}
	if got := drv.printCount(); got != 1 {
		t.Fatalf("automatic prints = %d, want 1", got)
	}
	entries := a.LogEntries()
	if len(entries) != 1 || entries[0].Status != PrintSuccess || entries[0].TaskID != "t2" {
		t.Fatalf("log entries %+v", entries)
	}
}

func TestManualReprintBypassesDedup(t *testing.T) {
	drv := &fakeDriver{}
	a := connectedAgent(t, drv, true)
	ctx := context.Background()

	a.HandleEvent(ctx, insertEvent("t1", "Pickup"))
	for i := 0; i < 3; i++ {
		if err := a.Reprint(ctx, "t1"); err != nil {
			t.Fatalf("reprint %d: %v", i, err)
		}
	}
	if got := drv.printCount(); got != 4 {
		t.Fatalf("submissions = %d, want 1 automatic + 3 manual", got)
	}
}

func TestPrintFailureQueuesForRetry(t *testing.T) {
	drv := &fakeDriver{printErr: errors.New("printer offline")}
	a := connectedAgent(t, drv, true)
	ctx := context.Background()

	a.HandleEvent(ctx, insertEvent("t5", "Villa move"))
	entries := a.LogEntries()
	if len(entries) != 1 || entries[0].Status != PrintFailed || entries[0].Error == "" {
		t.Fatalf("log entries %+v", entries)
	}
	pending := a.PendingTasks()
	if len(pending) != 1 || pending[0].ID != "t5" {
		t.Fatalf("pending %+v", pending)
	}

	// Printer comes back; manual retry succeeds and clears the queue.
	drv.printErr = nil
	if err := a.Reprint(ctx, "t5"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(a.PendingTasks()) != 0 {
		t.Fatalf("pending queue not cleared: %+v", a.PendingTasks())
	}
	if got := a.LogEntries()[0].Status; got != PrintSuccess {
		t.Fatalf("latest entry %s, want success", got)
	}
}

func TestAutoPrintDisabledGoesStraightToQueue(t *testing.T) {
	drv := &fakeDriver{}
	a := connectedAgent(t, drv, false)
	ctx := context.Background()

	a.HandleEvent(ctx, insertEvent("t3", "Office move"))
	if drv.printCount() != 0 {
		t.Fatalf("no submission expected with auto-print disabled")
	}
	entries := a.LogEntries()
	if len(entries) != 1 || entries[0].Status != PrintPending {
		t.Fatalf("log entries %+v", entries)
	}
	if len(a.PendingTasks()) != 1 {
		t.Fatalf("pending %+v", a.PendingTasks())
	}
}

func TestDisconnectedPrinterQueuesTask(t *testing.T) {
	drv := &fakeDriver{}
	conn := NewConnection(drv)
	a := NewAgent(conn, 50, true)
	ctx := context.Background()

	a.HandleEvent(ctx, insertEvent("t6", "Depot run"))
	if drv.printCount() != 0 {
		t.Fatalf("must not print while disconnected")
	}
	if len(a.PendingTasks()) != 1 {
		t.Fatalf("pending %+v", a.PendingTasks())
	}
	if err := a.Reprint(ctx, "t6"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestUpdateEventsIgnored(t *testing.T) {
	drv := &fakeDriver{}
	a := connectedAgent(t, drv, true)
	ctx := context.Background()

	a.HandleEvent(ctx, domain.FeedEvent{Operation: domain.OpUpdate, Row: domain.Task{ID: "t1"}})
	if drv.printCount() != 0 || len(a.LogEntries()) != 0 {
		t.Fatalf("update events must not reach the printer")
	}
}

func TestAlertFiresOncePerTask(t *testing.T) {
	drv := &fakeDriver{}
	conn := NewConnection(drv)
	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	alerts := 0
	a := NewAgent(conn, 50, true, WithAlert(func() { alerts++ }))
	ctx := context.Background()

	ev := insertEvent("t1", "Pickup")
	a.HandleEvent(ctx, ev)
	a.HandleEvent(ctx, ev)
	if alerts != 1 {
		t.Fatalf("alerts = %d, want 1", alerts)
	}
}
