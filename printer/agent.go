package printer

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"fielddispatch/domain"
)

// Agent is the unattended print station consumer. The feed delivers task
// inserts at-least-once; the agent's job is to turn that into at-most-once
// automatic printing, with manual reprints always available on top.
type Agent struct {
	conn      *Connection
	printLog  *Log
	alert     func()
	now       func() time.Time
	autoPrint bool

	mu      sync.Mutex
	seen    map[string]struct{}
	tasks   map[string]domain.Task
	pending []string
}

// Option configures an Agent.
type Option func(*Agent)

// WithAlert installs an audible-alert hook fired once per new task.
func WithAlert(alert func()) Option {
	return func(a *Agent) { a.alert = alert }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

func NewAgent(conn *Connection, logCapacity int, autoPrint bool, opts ...Option) *Agent {
	a := &Agent{
		conn:      conn,
		printLog:  NewLog(logCapacity),
		now:       time.Now,
		autoPrint: autoPrint,
		seen:      make(map[string]struct{}),
		tasks:     make(map[string]domain.Task),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// HandleEvent consumes one feed event. Only inserts matter here; the id is
// added to the seen set before any side effect runs, which closes the
// duplicate-processing window for redelivered events.
func (a *Agent) HandleEvent(ctx context.Context, ev domain.FeedEvent) {
	if ev.Operation != domain.OpInsert || ev.Row.ID == "" {
		return
	}
	t := ev.Row

	a.mu.Lock()
	if _, dup := a.seen[t.ID]; dup {
		a.mu.Unlock()
		log.WithField("task", t.ID).Debug("duplicate insert event discarded")
		return
	}
	a.seen[t.ID] = struct{}{}
	a.tasks[t.ID] = t
	a.mu.Unlock()

	if a.alert != nil {
		a.alert()
	}

	if !a.autoPrint || !a.conn.Connected() {
		a.enqueuePending(t)
		a.printLog.Append(LogEntry{TaskID: t.ID, Title: t.Title, At: a.now(), Status: PrintPending})
		return
	}

	if err := a.conn.Print(ctx, FormatReceipt(t)); err != nil {
		log.WithError(err).WithField("task", t.ID).Warn("auto print failed")
		a.enqueuePending(t)
		a.printLog.Append(LogEntry{TaskID: t.ID, Title: t.Title, At: a.now(), Status: PrintFailed, Error: err.Error()})
		return
	}
	a.printLog.Append(LogEntry{TaskID: t.ID, Title: t.Title, At: a.now(), Status: PrintSuccess})
}

// Reprint submits the task again, deliberately bypassing the dedup set. It
// works for tasks in the pending queue and for already-printed history; on
// success the task leaves the pending queue.
func (a *Agent) Reprint(ctx context.Context, taskID string) error {
	a.mu.Lock()
	t, ok := a.tasks[taskID]
	a.mu.Unlock()
	if !ok {
		return domain.ErrTaskNotFound
	}
	if err := a.conn.Print(ctx, FormatReceipt(t)); err != nil {
		a.printLog.Append(LogEntry{TaskID: t.ID, Title: t.Title, At: a.now(), Status: PrintFailed, Error: err.Error()})
		return err
	}
	a.removePending(taskID)
	a.printLog.Append(LogEntry{TaskID: t.ID, Title: t.Title, At: a.now(), Status: PrintSuccess})
	return nil
}

// PendingTasks returns the tasks awaiting a manual or retried print, oldest
// first.
func (a *Agent) PendingTasks() []domain.Task {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.Task, 0, len(a.pending))
	for _, id := range a.pending {
		out = append(out, a.tasks[id])
	}
	return out
}

// LogEntries returns the print history, newest first.
func (a *Agent) LogEntries() []LogEntry {
	return a.printLog.Entries()
}

// Connection exposes the printer link for the admin surface.
func (a *Agent) Connection() *Connection {
	return a.conn
}

func (a *Agent) enqueuePending(t domain.Task) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, id := range a.pending {
		if id == t.ID {
			return
		}
	}
	a.pending = append(a.pending, t.ID)
}

func (a *Agent) removePending(taskID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, id := range a.pending {
		if id == taskID {
			a.pending = append(a.pending[:i], a.pending[i+1:]...)
			return
		}
	}
}
