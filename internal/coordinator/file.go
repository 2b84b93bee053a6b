package coordinator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// fileCoordinator serializes writers across processes sharing a directory.
// Each lock file holds the JSON-encoded Holder of the lease.
type fileCoordinator struct {
	dir string
}

type fileLease struct {
	path  string
	token string
}

// NewFileCoordinator stores lock files under dir, or under the system temp
// directory when dir is empty.
func NewFileCoordinator(dir string) Coordinator {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "genie-locks")
	}
	return &fileCoordinator{dir: dir}
}

// LockPath is where the lock file for key lives inside dir.
func LockPath(dir, key string) string {
	sum := sha256.Sum256([]byte(key))
	base := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '_'
	}, filepath.Base(key))
	return filepath.Join(dir, base+"-"+hex.EncodeToString(sum[:6])+".lock")
}

func (c *fileCoordinator) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir lock dir: %w", err)
	}
	path := LockPath(c.dir, key)

	for {
		h := newHolder(key, ttl, time.Now())
		err := create(path, h)
		if err == nil {
			return &fileLease{path: path, token: h.Token}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}

		// A crashed holder leaves its file behind; it is honoured until it expires.
		cur, rErr := ReadHolder(path)
		if errors.Is(rErr, os.ErrNotExist) {
			continue
		}
		if rErr != nil || cur.Expired(time.Now()) {
			_ = os.Remove(path)
			continue
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire %s held by pid %d on %s: %w", key, cur.PID, cur.Host, ctx.Err())
		case <-time.After(25 * time.Millisecond):
		}
	}
}

func create(path string, h Holder) error {
	b, err := json.Marshal(h)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	_, err = f.Write(b)
	if cErr := f.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		_ = os.Remove(path)
	}
	return err
}

// ReadHolder decodes the lock file at path.
func ReadHolder(path string) (Holder, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Holder{}, err
	}
	var h Holder
	if err := json.Unmarshal(b, &h); err != nil {
		return Holder{}, fmt.Errorf("decode lock file %s: %w", path, err)
	}
	return h, nil
}

// Release removes the lock file unless another writer already took it over.
func (l *fileLease) Release(_ context.Context) error {
	cur, err := ReadHolder(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err == nil && cur.Token != l.token {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release file lease: %w", err)
	}
	return nil
}
