// Package coordinator provides leases used to serialize registry rewrites
// across requests and processes.
package coordinator

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultTTL = 30 * time.Second

// Holder identifies the owner of a lease. The file backend persists it as the
// lock file body so a stuck registry lock can be traced back to a process.
type Holder struct {
	Key      string    `json:"key"`
	Token    string    `json:"token"`
	PID      int       `json:"pid"`
	Host     string    `json:"host,omitempty"`
	Acquired time.Time `json:"acquired"`
	Expires  time.Time `json:"expires"`
}

func newHolder(key string, ttl time.Duration, now time.Time) Holder {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	host, _ := os.Hostname()
	return Holder{
		Key:      key,
		Token:    uuid.NewString(),
		PID:      os.Getpid(),
		Host:     host,
		Acquired: now.UTC(),
		Expires:  now.Add(ttl).UTC(),
	}
}

// Expired reports whether the lease may be taken over at now.
func (h Holder) Expired(now time.Time) bool {
	return !now.Before(h.Expires)
}

type Lease interface {
	Release(context.Context) error
}

type Coordinator interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// Mode selects a Coordinator implementation.
type Mode string

const (
	ModeNone   Mode = "none"
	ModeMemory Mode = "memory"
	ModeFile   Mode = "file"
	ModeRedis  Mode = "redis"
)

// ParseMode accepts the configured lock mode; empty means none.
func ParseMode(raw string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(raw)))
	switch m {
	case "":
		return ModeNone, nil
	case ModeNone, ModeMemory, ModeFile, ModeRedis:
		return m, nil
	default:
		return "", fmt.Errorf("unknown lock mode %q", raw)
	}
}

// Options configures New.
type Options struct {
	Mode     Mode
	Dir      string
	RedisURL string
	Prefix   string
}

// New builds the coordinator for opts.Mode. ModeNone keeps last-write-wins.
func New(opts Options) (Coordinator, error) {
	switch opts.Mode {
	case "", ModeNone:
		return NewNoopCoordinator(), nil
	case ModeMemory:
		return NewMemoryCoordinator(), nil
	case ModeFile:
		return NewFileCoordinator(opts.Dir), nil
	case ModeRedis:
		return NewRedisCoordinator(opts.RedisURL, opts.Prefix)
	default:
		return nil, fmt.Errorf("unknown lock mode %q", opts.Mode)
	}
}

type noopCoordinator struct{}

type noopLease struct{}

// NewNoopCoordinator hands out leases that exclude nothing.
func NewNoopCoordinator() Coordinator {
	return noopCoordinator{}
}

func (noopCoordinator) Acquire(context.Context, string, time.Duration) (Lease, error) {
	return noopLease{}, nil
}

func (noopLease) Release(context.Context) error { return nil }
