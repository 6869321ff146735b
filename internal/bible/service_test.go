package bible

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"storybible/internal/store"
	"storybible/internal/store/memory"
)

func newTestService(t *testing.T, limits Limits) *Service {
	t.Helper()
	svc := NewService(memory.New(), limits, nil)
	svc.now = func() time.Time { return now }
	return svc
}

func TestServiceScenario(t *testing.T) {
	// The canonical two-delta merge: a raw id and its canonical form land
	// on the same entity, conflicting motivations become a set, and the
	// repeated quote dedups.
	ctx := context.Background()
	svc := newTestService(t, Limits{})

	err := svc.UpsertEntity(ctx, "p1", Entity{
		ID:       "Mercy",
		Type:     TypeCharacter,
		Attrs:    Attrs{{Key: "motivation", Value: Scalar("guilt")}},
		Evidence: []Evidence{{Quote: "I did it for her"}},
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	err = svc.UpsertEntity(ctx, "p1", Entity{
		ID:       "Character:Mercy",
		Type:     TypeCharacter,
		Attrs:    Attrs{{Key: "motivation", Value: Scalar("revenge")}},
		Evidence: []Evidence{{Quote: "I did it for her"}},
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	b, err := svc.GetBible(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(b.Entities) != 1 {
		t.Fatalf("expected one entity, got %d", len(b.Entities))
	}
	e := b.Entities.Get("Character:Mercy")
	if e == nil {
		t.Fatalf("canonical entity missing")
	}
	v, _ := e.Attrs.Get("motivation")
	if diff := cmp.Diff([]string{"guilt", "revenge"}, v.Values()); diff != "" {
		t.Fatalf("motivation mismatch (-want +got):\n%s", diff)
	}
	if len(e.Evidence) != 1 {
		t.Fatalf("expected one evidence entry, got %d", len(e.Evidence))
	}
}

func TestServiceEntityCap(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, Limits{MaxEntities: 4, MaxThreads: 4})

	deltas := make([]Entity, 5)
	for i := range deltas {
		deltas[i] = Entity{ID: fmt.Sprintf("E%d", i), Type: TypeConcept}
	}
	if err := svc.UpsertEntities(ctx, "p1", deltas); err != nil {
		t.Fatalf("batch upsert: %v", err)
	}

	b, err := svc.GetBible(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(b.Entities) != 4 {
		t.Fatalf("expected cap of 4 entities, got %d", len(b.Entities))
	}
}

func TestServiceExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, Limits{})

	if err := svc.UpsertEntity(ctx, "p1", Entity{
		ID:    "Mercy",
		Type:  TypeCharacter,
		Attrs: Attrs{{Key: "motivation", Value: Set("guilt", "revenge")}},
	}); err != nil {
		t.Fatalf("seed entity: %v", err)
	}
	if err := svc.UpsertThread(ctx, "p1", Thread{Name: "who killed Dorian", Todos: []string{"check alibi"}}); err != nil {
		t.Fatalf("seed thread: %v", err)
	}
	if err := svc.ImportBible(ctx, "p1", &Bible{Style: map[string]any{"tense": "past"}}); err != nil {
		t.Fatalf("seed style: %v", err)
	}

	exported, err := svc.ExportBible(ctx, "p1")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if err := svc.ImportBible(ctx, "p1", exported); err != nil {
		t.Fatalf("import: %v", err)
	}

	after, err := svc.GetBible(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(after.Entities) != 1 || len(after.Threads) != 1 {
		t.Fatalf("round trip changed cardinality: %d entities, %d threads", len(after.Entities), len(after.Threads))
	}
	v, _ := after.Entities.Get("Character:Mercy").Attrs.Get("motivation")
	if diff := cmp.Diff([]string{"guilt", "revenge"}, v.Values()); diff != "" {
		t.Fatalf("attrs changed across round trip (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"check alibi"}, after.Threads[0].Todos); diff != "" {
		t.Fatalf("todos changed across round trip (-want +got):\n%s", diff)
	}
	if after.Style["tense"] != "past" {
		t.Fatalf("style lost across round trip")
	}
}

func TestServiceExportIsDetached(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, Limits{})

	if err := svc.UpsertEntity(ctx, "p1", Entity{ID: "Mercy", Type: TypeCharacter}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	exported, err := svc.ExportBible(ctx, "p1")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	exported.Entities.Get("Character:Mercy").Attrs.Put("tampered", Scalar("yes"))

	b, err := svc.GetBible(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, ok := b.Entities.Get("Character:Mercy").Attrs.Get("tampered"); ok {
		t.Fatalf("mutating an export leaked into the store")
	}
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, Limits{})

	if err := svc.UpsertEntity(ctx, "p1", Entity{ID: "A", Type: TypeConcept}); err != nil {
		t.Fatalf("seed p1: %v", err)
	}
	if err := svc.UpsertThread(ctx, "p2", Thread{Name: "t"}); err != nil {
		t.Fatalf("seed p2: %v", err)
	}

	projects, err := svc.ListProjects(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]string{"p1", "p2"}, projects); diff != "" {
		t.Fatalf("projects mismatch (-want +got):\n%s", diff)
	}

	if err := svc.ClearBible(ctx, "p1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	projects, err = svc.ListProjects(ctx)
	if err != nil {
		t.Fatalf("list after clear: %v", err)
	}
	if diff := cmp.Diff([]string{"p2"}, projects); diff != "" {
		t.Fatalf("projects after clear mismatch (-want +got):\n%s", diff)
	}

	// Cleared project comes back as a fresh default on next access.
	b, err := svc.GetBible(ctx, "p1")
	if err != nil {
		t.Fatalf("get after clear: %v", err)
	}
	if len(b.Entities) != 0 {
		t.Fatalf("cleared project still has entities")
	}
}

func TestServiceNoOpsDoNotWrite(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, Limits{})

	if err := svc.RemoveEntity(ctx, "ghost", "Character:Nobody"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := svc.CloseThread(ctx, "ghost", "nothing"); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := svc.UpsertEntity(ctx, "ghost", Entity{}); err != nil {
		t.Fatalf("empty upsert: %v", err)
	}

	projects, err := svc.ListProjects(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(projects) != 0 {
		t.Fatalf("no-ops created a record: %v", projects)
	}
}

func TestServicePutBible(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, Limits{MaxEntities: 2, MaxThreads: 2})

	oversized := New("p1")
	for i := 0; i < 4; i++ {
		oversized.ApplyEntity(Entity{ID: fmt.Sprintf("E%d", i), Type: TypeConcept})
	}
	if err := svc.PutBible(ctx, oversized); err != nil {
		t.Fatalf("put: %v", err)
	}

	b, err := svc.GetBible(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(b.Entities) != 2 {
		t.Fatalf("put did not re-apply pruning: %d entities", len(b.Entities))
	}

	if err := svc.PutBible(ctx, nil); err != nil {
		t.Fatalf("nil put should be a no-op, got %v", err)
	}
}

type failingAdapter struct {
	store.Adapter
	err error
}

func (f *failingAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, f.err
}

func TestServicePropagatesAdapterErrors(t *testing.T) {
	ctx := context.Background()
	sentinel := errors.New("disk on fire")
	svc := NewService(&failingAdapter{err: sentinel}, Limits{}, nil)

	if _, err := svc.GetBible(ctx, "p1"); !errors.Is(err, sentinel) {
		t.Fatalf("expected adapter error to propagate, got %v", err)
	}
	if err := svc.UpsertEntity(ctx, "p1", Entity{ID: "x"}); !errors.Is(err, sentinel) {
		t.Fatalf("expected adapter error to propagate, got %v", err)
	}
}
