package coordinator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestParseMode(t *testing.T) {
	for raw, want := range map[string]Mode{"": ModeNone, "none": ModeNone, "FILE": ModeFile, " redis ": ModeRedis, "memory": ModeMemory} {
		got, err := ParseMode(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %q, got %q", raw, want, got)
		}
	}
	if _, err := ParseMode("etcd"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestNoopCoordinatorNeverBlocks(t *testing.T) {
	c, err := New(Options{Mode: ModeNone})
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}
	first, err := c.Acquire(context.Background(), "models", time.Second)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	second, err := c.Acquire(context.Background(), "models", time.Second)
	if err != nil {
		t.Fatalf("second acquire should not block: %v", err)
	}
	_ = first.Release(context.Background())
	_ = second.Release(context.Background())
}

func TestFileCoordinatorMutualExclusion(t *testing.T) {
	c := NewFileCoordinator(t.TempDir())

	lease, err := c.Acquire(context.Background(), "data/models.json", 2*time.Second)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	if _, err := c.Acquire(ctx, "data/models.json", 2*time.Second); err == nil {
		t.Fatal("expected second acquire to fail under lock contention")
	}

	if err := lease.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	again, err := c.Acquire(context.Background(), "data/models.json", time.Second)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	_ = again.Release(context.Background())
}

func TestFileCoordinatorTakesOverExpiredLease(t *testing.T) {
	c := NewFileCoordinator(t.TempDir())
	if _, err := c.Acquire(context.Background(), "models", 20*time.Millisecond); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	time.Sleep(40 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	lease, err := c.Acquire(ctx, "models", time.Second)
	if err != nil {
		t.Fatalf("expected expired lease to be taken over: %v", err)
	}
	_ = lease.Release(context.Background())
}

func TestFileLeaseRecordsHolder(t *testing.T) {
	dir := t.TempDir()
	c := NewFileCoordinator(dir)
	key := "registry:" + filepath.Join("srv", "data", "models.json")

	lease, err := c.Acquire(context.Background(), key, time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	path := LockPath(dir, key)
	if !strings.HasPrefix(filepath.Base(path), "models_json-") {
		t.Fatalf("unexpected lock file name %s", path)
	}
	h, err := ReadHolder(path)
	if err != nil {
		t.Fatalf("read holder: %v", err)
	}
	if h.Key != key {
		t.Fatalf("expected key %q, got %q", key, h.Key)
	}
	if h.PID != os.Getpid() {
		t.Fatalf("expected pid %d, got %d", os.Getpid(), h.PID)
	}
	if h.Token == "" || !h.Expires.After(h.Acquired) {
		t.Fatalf("incomplete holder: %+v", h)
	}

	if err := lease.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected lock file removed, stat err = %v", err)
	}
}

func TestLockPathSeparatesRegistries(t *testing.T) {
	a := LockPath("locks", "registry:/a/models.json")
	b := LockPath("locks", "registry:/b/models.json")
	if a == b {
		t.Fatalf("expected distinct lock files, both %s", a)
	}
}

func TestFileCoordinatorReportsHolderOnTimeout(t *testing.T) {
	c := NewFileCoordinator(t.TempDir())
	lease, err := c.Acquire(context.Background(), "models", time.Minute)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	defer func() { _ = lease.Release(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_, err = c.Acquire(ctx, "models", time.Minute)
	if err == nil {
		t.Fatal("expected contention error")
	}
	if !strings.Contains(err.Error(), "pid") {
		t.Fatalf("expected holder in error, got %v", err)
	}
}

func TestStaleFileReleaseKeepsNewHolder(t *testing.T) {
	dir := t.TempDir()
	c := NewFileCoordinator(dir)
	stale, err := c.Acquire(context.Background(), "models", 20*time.Millisecond)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	time.Sleep(40 * time.Millisecond)

	current, err := c.Acquire(context.Background(), "models", time.Minute)
	if err != nil {
		t.Fatalf("takeover: %v", err)
	}
	if err := stale.Release(context.Background()); err != nil {
		t.Fatalf("stale release: %v", err)
	}
	if _, err := os.Stat(LockPath(dir, "models")); err != nil {
		t.Fatalf("stale release removed the new holder's lock: %v", err)
	}
	_ = current.Release(context.Background())
}

func TestCorruptLockFileIsReclaimed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(LockPath(dir, "models"), []byte("not json"), 0o644); err != nil {
		t.Fatalf("write lock: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	lease, err := NewFileCoordinator(dir).Acquire(ctx, "models", time.Second)
	if err != nil {
		t.Fatalf("acquire over corrupt lock: %v", err)
	}
	_ = lease.Release(context.Background())
}

func TestMemoryCoordinatorWakesWaiterOnRelease(t *testing.T) {
	c := NewMemoryCoordinator()
	lease, err := c.Acquire(context.Background(), "models", time.Minute)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	got := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		l, err := c.Acquire(ctx, "models", time.Minute)
		if err == nil {
			_ = l.Release(context.Background())
		}
		got <- err
	}()

	time.Sleep(20 * time.Millisecond)
	if err := lease.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	select {
	case err := <-got:
		if err != nil {
			t.Fatalf("waiter: %v", err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("waiter was not woken by release")
	}
}

func TestMemoryStaleReleaseKeepsNewHolder(t *testing.T) {
	c := NewMemoryCoordinator()
	stale, err := c.Acquire(context.Background(), "models", 20*time.Millisecond)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	current, err := c.Acquire(context.Background(), "models", time.Minute)
	if err != nil {
		t.Fatalf("takeover after expiry: %v", err)
	}
	defer func() { _ = current.Release(context.Background()) }()
	_ = stale.Release(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	if _, err := c.Acquire(ctx, "models", time.Minute); err == nil {
		t.Fatal("stale release freed the new holder's lease")
	}
}

func TestMemoryCoordinatorMutualExclusion(t *testing.T) {
	c := NewMemoryCoordinator()
	lease, err := c.Acquire(context.Background(), "models", time.Second)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	defer func() { _ = lease.Release(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Acquire(ctx, "models", time.Second); err == nil {
		t.Fatal("expected contention error")
	}
}

func TestRedisCoordinatorAcquireRelease(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	c, err := New(Options{Mode: ModeRedis, RedisURL: "redis://" + mr.Addr(), Prefix: "test"})
	if err != nil {
		t.Fatalf("new redis coordinator: %v", err)
	}

	lease, err := c.Acquire(context.Background(), "models", 2*time.Second)
	if err != nil {
		t.Fatalf("acquire lease: %v", err)
	}
	if !mr.Exists("test:models") {
		t.Fatal("expected lock key in redis")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	if _, err := c.Acquire(ctx, "models", 2*time.Second); err == nil {
		t.Fatal("expected second acquire to fail under lock contention")
	}

	if err := lease.Release(context.Background()); err != nil {
		t.Fatalf("release lease: %v", err)
	}
	if mr.Exists("test:models") {
		t.Fatal("expected lock key to be deleted on release")
	}
}

func TestRedisCoordinatorRequiresURL(t *testing.T) {
	if _, err := NewRedisCoordinator("", ""); err == nil {
		t.Fatal("expected error for empty url")
	}
}
