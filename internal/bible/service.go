package bible

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"storybible/internal/store"
)

// Service exposes the story bible operation set over a persistence adapter.
//
// Every mutation is one whole load→merge→prune→save cycle; that cycle is
// the unit of atomicity. The service takes no locks and carries no
// concurrency token, so two writers racing on the same project resolve as
// last-writer-wins at aggregate granularity. Callers with multi-item
// updates should batch them through UpsertEntities to keep the
// read-modify-write window small.
type Service struct {
	adapter store.Adapter
	limits  Limits
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(adapter store.Adapter, limits Limits, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		adapter: adapter,
		limits:  limits.orDefaults(),
		logger:  logger,
		now:     time.Now,
	}
}

// load returns the project's normalized aggregate, creating a fresh default
// in memory when no record exists. It never writes.
func (s *Service) load(ctx context.Context, projectID string) (*Bible, error) {
	raw, err := s.adapter.Get(ctx, projectID)
	if errors.Is(err, store.ErrNotFound) {
		return New(projectID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading bible %q: %w", projectID, err)
	}
	return Decode(projectID, raw, s.limits)
}

// save prunes and persists the aggregate, stamping UpdatedAt.
func (s *Service) save(ctx context.Context, b *Bible) error {
	b.UpdatedAt = s.now()
	stats := b.Prune(s.limits)
	if stats.EntitiesEvicted > 0 || stats.ThreadsEvicted > 0 {
		s.logger.Debug("bible pruned over quota",
			zap.String("project", b.ProjectID),
			zap.Int("entities_evicted", stats.EntitiesEvicted),
			zap.Int("threads_evicted", stats.ThreadsEvicted))
	}
	data, err := b.Encode()
	if err != nil {
		return err
	}
	if err := s.adapter.Put(ctx, b.ProjectID, data); err != nil {
		return fmt.Errorf("saving bible %q: %w", b.ProjectID, err)
	}
	return nil
}

// GetBible returns the project's aggregate, a fresh default if absent.
func (s *Service) GetBible(ctx context.Context, projectID string) (*Bible, error) {
	return s.load(ctx, projectID)
}

// PutBible replaces the stored aggregate wholesale. The value is
// re-normalized and re-pruned before the write.
func (s *Service) PutBible(ctx context.Context, b *Bible) error {
	if b == nil || b.ProjectID == "" {
		return nil
	}
	replacement := b.Clone()
	if replacement.SchemaVersion < CurrentSchemaVersion {
		migrate(replacement)
	}
	if replacement.Entities == nil {
		replacement.Entities = EntityMap{}
	}
	return s.save(ctx, replacement)
}

func (s *Service) UpsertEntity(ctx context.Context, projectID string, delta Entity) error {
	return s.UpsertEntities(ctx, projectID, []Entity{delta})
}

// UpsertEntities applies every delta against one loaded snapshot and writes
// once. This is the only batching the store offers.
func (s *Service) UpsertEntities(ctx context.Context, projectID string, deltas []Entity) error {
	b, err := s.load(ctx, projectID)
	if err != nil {
		return err
	}
	applied := 0
	for _, delta := range deltas {
		if b.ApplyEntity(delta) {
			applied++
		}
	}
	if applied == 0 {
		return nil
	}
	s.logger.Debug("entities upserted",
		zap.String("project", projectID),
		zap.Int("applied", applied))
	return s.save(ctx, b)
}

func (s *Service) UpsertThread(ctx context.Context, projectID string, delta Thread) error {
	b, err := s.load(ctx, projectID)
	if err != nil {
		return err
	}
	if !b.ApplyThread(delta, s.now()) {
		return nil
	}
	s.logger.Debug("thread upserted",
		zap.String("project", projectID),
		zap.String("thread", delta.Name))
	return s.save(ctx, b)
}

func (s *Service) RemoveEntity(ctx context.Context, projectID, id string) error {
	b, err := s.load(ctx, projectID)
	if err != nil {
		return err
	}
	if !b.RemoveEntity(id) {
		return nil
	}
	return s.save(ctx, b)
}

func (s *Service) RemoveThread(ctx context.Context, projectID, name string) error {
	b, err := s.load(ctx, projectID)
	if err != nil {
		return err
	}
	if !b.RemoveThread(name) {
		return nil
	}
	return s.save(ctx, b)
}

// CloseThread marks a thread closed. A missing thread is a no-op, never an
// error.
func (s *Service) CloseThread(ctx context.Context, projectID, name string) error {
	b, err := s.load(ctx, projectID)
	if err != nil {
		return err
	}
	if !b.CloseThread(name, s.now()) {
		return nil
	}
	return s.save(ctx, b)
}

func (s *Service) SearchBible(ctx context.Context, projectID, query string) (SearchResult, error) {
	b, err := s.load(ctx, projectID)
	if err != nil {
		return SearchResult{}, err
	}
	return b.Search(query), nil
}

func (s *Service) GetSnapshot(ctx context.Context, projectID string, opts SnapshotOptions) (Snapshot, error) {
	b, err := s.load(ctx, projectID)
	if err != nil {
		return Snapshot{}, err
	}
	return b.Snapshot(opts), nil
}

// ExportBible returns a deep copy of the full aggregate.
func (s *Service) ExportBible(ctx context.Context, projectID string) (*Bible, error) {
	b, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return b.Clone(), nil
}

// ImportBible merges a partial aggregate through the same upsert paths as
// live extraction: entities and threads union in, style merges shallowly.
func (s *Service) ImportBible(ctx context.Context, projectID string, partial *Bible) error {
	if partial == nil {
		return nil
	}
	b, err := s.load(ctx, projectID)
	if err != nil {
		return err
	}
	now := s.now()
	for _, e := range partial.Entities {
		b.ApplyEntity(*e)
	}
	for _, t := range partial.Threads {
		b.ApplyThread(t, now)
	}
	b.MergeStyle(partial.Style)
	s.logger.Debug("bible imported",
		zap.String("project", projectID),
		zap.Int("entities", len(partial.Entities)),
		zap.Int("threads", len(partial.Threads)))
	return s.save(ctx, b)
}

// ListProjects lists every project key known to the adapter.
func (s *Service) ListProjects(ctx context.Context) ([]string, error) {
	keys, err := s.adapter.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return keys, nil
}

// ClearBible deletes the project's record entirely.
func (s *Service) ClearBible(ctx context.Context, projectID string) error {
	if err := s.adapter.Delete(ctx, projectID); err != nil {
		return fmt.Errorf("clearing bible %q: %w", projectID, err)
	}
	s.logger.Info("bible cleared", zap.String("project", projectID))
	return nil
}
