// Package registry persists the catalog of known models as a single JSON
// document. Every operation re-reads the file; mutations rewrite it whole.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/your-org/genie/internal/apperr"
	"github.com/your-org/genie/internal/audit"
	"github.com/your-org/genie/internal/coordinator"
)

var ErrInvalidCategory = fmt.Errorf("%w: unknown model category", apperr.ErrInvalidInput)

// AddInput describes a new model. ProviderName, Endpoint and Port apply to
// local models only.
type AddInput struct {
	Category     Category
	ID           string
	ProviderName string
	Endpoint     string
	Port         int
}

// UpdateInput changes a local model. An empty ProviderName keeps the
// current one.
type UpdateInput struct {
	ID           string
	ProviderName string
	Endpoint     string
	Port         int
}

// Store reads and writes the registry document at a path.
type Store struct {
	path      string
	endpoints EndpointResolver
	coord     coordinator.Coordinator
	lockTTL   time.Duration
	audit     *audit.Logger
	log       zerolog.Logger
}

type Option func(*Store)

func WithEndpointResolver(r EndpointResolver) Option {
	return func(s *Store) { s.endpoints = r }
}

// WithCoordinator serializes mutations under a lease of ttl.
func WithCoordinator(c coordinator.Coordinator, ttl time.Duration) Option {
	return func(s *Store) {
		if c != nil {
			s.coord = c
		}
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

func WithAuditLogger(l *audit.Logger) Option {
	return func(s *Store) { s.audit = l }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

func NewStore(path string, opts ...Option) *Store {
	s := &Store{
		path:    path,
		coord:   coordinator.NewNoopCoordinator(),
		lockTTL: 10 * time.Second,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Path() string { return s.path }

// ListIDs returns every id, or the ids of one category when given.
func (s *Store) ListIDs(ctx context.Context, category ...Category) ([]string, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if len(category) == 0 || category[0] == "" {
		return doc.IDs(""), nil
	}
	if !slices.Contains(Categories, category[0]) {
		return nil, ErrInvalidCategory
	}
	return doc.IDs(category[0]), nil
}

// Details returns a snapshot of the whole document.
func (s *Store) Details(ctx context.Context) (Document, error) {
	return s.load(ctx)
}

// LocalEntry returns the ollama entry for id. A missing or non-local id is
// reported through the bool, not the error.
func (s *Store) LocalEntry(ctx context.Context, id string) (Entry, bool, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	e, ok := doc.Local(id)
	return e, ok, nil
}

func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	_, ok := doc.CategoryOf(id)
	return ok, nil
}

func (s *Store) Add(ctx context.Context, in AddInput) error {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return fmt.Errorf("%w: model id is empty", apperr.ErrInvalidInput)
	}
	if !slices.Contains(Categories, in.Category) {
		return ErrInvalidCategory
	}

	err := s.mutate(ctx, func(doc *Document) error {
		if c, ok := doc.CategoryOf(id); ok {
			return fmt.Errorf("%w: %q is already registered under %s", apperr.ErrDuplicateID, id, c)
		}
		switch in.Category {
		case OpenAI:
			doc.OpenAI = append(doc.OpenAI, id)
		case Gemini:
			doc.Gemini = append(doc.Gemini, id)
		case Ollama:
			name := strings.TrimSpace(in.ProviderName)
			if name == "" {
				name = id
			}
			doc.Ollama = append(doc.Ollama, LocalModel{
				ID:   id,
				Name: name,
				URL:  s.endpoints.Resolve(name, in.Endpoint, in.Port),
			})
		}
		return nil
	})
	s.record(ctx, audit.ActionAdd, id, err)
	return err
}

func (s *Store) Update(ctx context.Context, in UpdateInput) error {
	id := strings.TrimSpace(in.ID)
	err := s.mutate(ctx, func(doc *Document) error {
		i := doc.Ollama.index(id)
		if i < 0 {
			return apperr.NotFound(id)
		}
		cur := &doc.Ollama[i]
		if name := strings.TrimSpace(in.ProviderName); name != "" {
			cur.Name = name
		}
		cur.URL = s.endpoints.Resolve(cur.Name, in.Endpoint, in.Port)
		return nil
	})
	s.record(ctx, audit.ActionUpdate, id, err)
	return err
}

// Remove deletes id from whichever category holds it. Removing an absent
// id succeeds without rewriting the document.
func (s *Store) Remove(ctx context.Context, id string) error {
	err := s.mutate(ctx, func(doc *Document) error {
		if !doc.remove(id) {
			return errUnchanged
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		s.log.Debug().Str("model", id).Msg("remove: model not registered")
		err = nil
	}
	s.record(ctx, audit.ActionRemove, id, err)
	return err
}

var errUnchanged = errors.New("document unchanged")

func (s *Store) mutate(ctx context.Context, fn func(*Document) error) error {
	lease, err := s.coord.Acquire(ctx, s.lockKey(), s.lockTTL)
	if err != nil {
		return fmt.Errorf("lock registry: %w", err)
	}
	defer func() {
		if rErr := lease.Release(context.WithoutCancel(ctx)); rErr != nil {
			s.log.Warn().Err(rErr).Msg("release registry lease")
		}
	}()

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(&doc); err != nil {
		return err
	}
	return s.save(doc)
}

// lockKey names the registry by absolute path so stores sharing a lock
// backend only contend on the same file.
func (s *Store) lockKey() string {
	path, err := filepath.Abs(s.path)
	if err != nil {
		path = s.path
	}
	return "registry:" + path
}

func (s *Store) load(ctx context.Context) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	var doc Document
	b, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Document{}, fmt.Errorf("read registry: %w", err)
	case len(strings.TrimSpace(string(b))) > 0:
		if err := json.Unmarshal(b, &doc); err != nil {
			return Document{}, fmt.Errorf("decode registry %s: %w", s.path, err)
		}
	}
	doc.normalize()
	return doc, nil
}

func (s *Store) save(doc Document) error {
	doc.normalize()
	b, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("registry mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("registry temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod registry temp file: %w", err)
	}
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close registry temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace registry: %w", err)
	}
	s.log.Debug().Str("path", s.path).Int("models", len(doc.IDs(""))).Msg("registry written")
	return nil
}

func (s *Store) record(ctx context.Context, action, id string, err error) {
	if aErr := s.audit.Record(ctx, action, id, err); aErr != nil {
		s.log.Warn().Err(aErr).Str("action", action).Msg("audit write failed")
	}
}
