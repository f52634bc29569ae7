// Package logstream mirrors the service's log records to the admin surface:
// a fixed-capacity ring buffer backs the log-history endpoint, and each
// record is pushed to the live log viewer as a LOG event.
package logstream

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"

	"velocity/monitor-service/internal/model"
)

// Entry is one captured log record.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Logger    string    `json:"logger"`
	Message   string    `json:"message"`
}

// Broadcaster is the sink for live LOG events; the ws.Hub satisfies it.
type Broadcaster interface {
	Broadcast(model.Event)
}

// forwardBuffer bounds the live-forwarding queue; a burst that outruns the
// forwarder drops records from the live feed, never from the ring buffer.
const forwardBuffer = 256

// Core is a zapcore.Core that captures records at Info and above. Tee it
// with the console core when building the root logger.
type Core struct {
	mu     sync.Mutex
	buf    []Entry
	next   int
	filled bool
	events chan Entry
}

// NewCore creates a core retaining the newest capacity records.
func NewCore(capacity int) *Core {
	if capacity < 1 {
		capacity = 1
	}
	return &Core{buf: make([]Entry, capacity)}
}

// Attach sets the live sink and starts the single forwarder goroutine that
// pushes captured records to it in capture order. The logger is usually built
// before the hub exists, so attachment happens after construction; records
// logged earlier only land in the ring buffer. Forwarding on a separate
// goroutine keeps the sink's own logging from re-entering its lock.
func (c *Core) Attach(sink Broadcaster) {
	events := make(chan Entry, forwardBuffer)
	c.mu.Lock()
	c.events = events
	c.mu.Unlock()

	go func() {
		for entry := range events {
			sink.Broadcast(model.Event{Type: model.EventLog, Data: entry})
		}
	}()
}

// History returns the retained records, oldest first.
func (c *Core) History() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.filled {
		out := make([]Entry, c.next)
		copy(out, c.buf[:c.next])
		return out
	}
	out := make([]Entry, 0, len(c.buf))
	out = append(out, c.buf[c.next:]...)
	out = append(out, c.buf[:c.next]...)
	return out
}

// Enabled implements zapcore.LevelEnabler.
func (c *Core) Enabled(lvl zapcore.Level) bool {
	return lvl >= zapcore.InfoLevel
}

// With implements zapcore.Core. Derived cores delegate storage back to the
// root so every logger shares one history.
func (c *Core) With(fields []zapcore.Field) zapcore.Core {
	return &fieldCore{parent: c, fields: append([]zapcore.Field(nil), fields...)}
}

// Check implements zapcore.Core.
func (c *Core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

// Write implements zapcore.Core.
func (c *Core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	c.store(ent, fields)
	return nil
}

// Sync implements zapcore.Core.
func (c *Core) Sync() error { return nil }

func (c *Core) store(ent zapcore.Entry, fields []zapcore.Field) {
	entry := Entry{
		Timestamp: ent.Time.UTC(),
		Level:     ent.Level.CapitalString(),
		Logger:    ent.LoggerName,
		Message:   formatMessage(ent.Message, fields),
	}

	c.mu.Lock()
	c.buf[c.next] = entry
	c.next++
	if c.next == len(c.buf) {
		c.next = 0
		c.filled = true
	}
	events := c.events
	c.mu.Unlock()

	if events != nil {
		select {
		case events <- entry:
		default:
		}
	}
}

// fieldCore carries fields accumulated via With and delegates storage to the
// root Core so all loggers share one history.
type fieldCore struct {
	parent *Core
	fields []zapcore.Field
}

func (f *fieldCore) Enabled(lvl zapcore.Level) bool { return f.parent.Enabled(lvl) }

func (f *fieldCore) With(fields []zapcore.Field) zapcore.Core {
	return &fieldCore{parent: f.parent, fields: append(append([]zapcore.Field(nil), f.fields...), fields...)}
}

func (f *fieldCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if f.Enabled(ent.Level) {
		return ce.AddCore(ent, f)
	}
	return ce
}

func (f *fieldCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	f.parent.store(ent, append(append([]zapcore.Field(nil), f.fields...), fields...))
	return nil
}

func (f *fieldCore) Sync() error { return nil }

func formatMessage(msg string, fields []zapcore.Field) string {
	if len(fields) == 0 {
		return msg
	}
	enc := zapcore.NewMapObjectEncoder()
	for _, fld := range fields {
		fld.AddTo(enc)
	}
	for k, v := range enc.Fields {
		msg += fmt.Sprintf(" %s=%v", k, v)
	}
	return msg
}
