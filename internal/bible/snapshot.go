package bible

import (
	"sort"
	"time"
)

// Snapshot projection bounds. Entity and attribute counts are caller
// tunable; the thread tail and hook count are fixed.
const (
	DefaultSnapshotEntities = 60
	DefaultSnapshotAttrs    = 6

	snapshotThreadTail = 20
	snapshotHooks      = 6
)

type SnapshotOptions struct {
	MaxEntities       int
	MaxAttrsPerEntity int
}

func (o SnapshotOptions) orDefaults() SnapshotOptions {
	if o.MaxEntities <= 0 {
		o.MaxEntities = DefaultSnapshotEntities
	}
	if o.MaxAttrsPerEntity <= 0 {
		o.MaxAttrsPerEntity = DefaultSnapshotAttrs
	}
	return o
}

// Snapshot is a size-bounded projection of the aggregate, small enough to
// feed a language model as grounding context regardless of how large the
// bible has grown. Evidence lists and full thread history never appear.
type Snapshot struct {
	Entities  []SnapshotEntity `json:"entities"`
	Threads   []SnapshotThread `json:"threads"`
	Style     map[string]any   `json:"style,omitempty"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

type SnapshotEntity struct {
	ID    string     `json:"id"`
	Type  EntityType `json:"type"`
	Attrs Attrs      `json:"attrs,omitempty"`
}

type SnapshotThread struct {
	Name   string       `json:"name"`
	Status ThreadStatus `json:"status"`
	Notes  string       `json:"notes,omitempty"`
	Hooks  []float64    `json:"hooks,omitempty"`
}

// Snapshot projects the top entities by evidence count (stable on ties)
// with at most MaxAttrsPerEntity attribute keys each, and the trailing
// snapshotThreadTail threads.
func (b *Bible) Snapshot(opts SnapshotOptions) Snapshot {
	opts = opts.orDefaults()

	ranked := make([]*Entity, len(b.Entities))
	copy(ranked, b.Entities)
	sort.SliceStable(ranked, func(i, j int) bool {
		return len(ranked[i].Evidence) > len(ranked[j].Evidence)
	})
	if len(ranked) > opts.MaxEntities {
		ranked = ranked[:opts.MaxEntities]
	}

	snap := Snapshot{
		Entities:  make([]SnapshotEntity, 0, len(ranked)),
		UpdatedAt: b.UpdatedAt,
	}
	if b.Style != nil {
		snap.Style = cloneStyle(b.Style)
	}
	for _, e := range ranked {
		attrs := e.Attrs.Clone()
		if len(attrs) > opts.MaxAttrsPerEntity {
			attrs = attrs[:opts.MaxAttrsPerEntity]
		}
		snap.Entities = append(snap.Entities, SnapshotEntity{ID: e.ID, Type: e.Type, Attrs: attrs})
	}

	threads := b.Threads
	if len(threads) > snapshotThreadTail {
		threads = threads[len(threads)-snapshotThreadTail:]
	}
	snap.Threads = make([]SnapshotThread, 0, len(threads))
	for _, t := range threads {
		window := t.Hooks
		if len(window) > snapshotHooks {
			window = window[:snapshotHooks]
		}
		var hooks []float64
		if len(window) > 0 {
			hooks = append([]float64(nil), window...)
		}
		snap.Threads = append(snap.Threads, SnapshotThread{
			Name:   t.Name,
			Status: t.Status,
			Notes:  t.Notes,
			Hooks:  hooks,
		})
	}
	return snap
}
