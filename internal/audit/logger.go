// Package audit appends one JSON line per registry change.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	StatusOK    = "ok"
	StatusError = "error"

	ActionAdd    = "model.add"
	ActionUpdate = "model.update"
	ActionRemove = "model.remove"
)

// Event is one audit-log record.
type Event struct {
	Timestamp string `json:"ts"`
	Actor     string `json:"actor"`
	Action    string `json:"action"`
	Resource  string `json:"resource"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

type actorKey struct{}

// WithActor tags ctx with the caller recorded in audit events.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the tagged actor, or "unknown".
func ActorFromContext(ctx context.Context) string {
	if a, ok := ctx.Value(actorKey{}).(string); ok && a != "" {
		return a
	}
	return "unknown"
}

// Logger writes JSONL audit records. A nil Logger or one without a path
// records nothing.
type Logger struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func NewLogger(path string) *Logger {
	return &Logger{path: path, now: time.Now}
}

func (l *Logger) Enabled() bool {
	return l != nil && l.path != ""
}

// Record writes an event for action on resource. err decides the status.
func (l *Logger) Record(ctx context.Context, action, resource string, err error) error {
	if !l.Enabled() {
		return nil
	}
	ev := Event{
		Timestamp: l.now().UTC().Format(time.RFC3339Nano),
		Actor:     ActorFromContext(ctx),
		Action:    action,
		Resource:  resource,
		Status:    StatusOK,
	}
	if err != nil {
		ev.Status = StatusError
		ev.Error = err.Error()
	}
	return l.write(ev)
}

func (l *Logger) write(ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("audit marshal: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("audit mkdir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("audit open: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("audit write: %w", err)
	}
	return nil
}
