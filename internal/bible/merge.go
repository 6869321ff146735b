package bible

import (
	"math"
	"time"
)

// Per-container caps. Entity and thread counts are configurable (Limits);
// these are fixed regardless of configuration.
const (
	maxAttrSetValues     = 50
	maxEvidencePerEntity = 20
	maxTodosPerThread    = 40
)

// ApplyEntity union-merges an entity delta into the aggregate and reports
// whether anything was applied. A delta without an id is a silent no-op.
func (b *Bible) ApplyEntity(delta Entity) bool {
	typ := NormalizeType(string(delta.Type))
	id, typ, _ := CanonicalID(delta.ID, typ)
	if id == "" {
		return false
	}

	existing := b.Entities.Get(id)
	if existing == nil {
		existing = &Entity{ID: id, Type: typ}
	}
	existing.Type = typ

	for _, attr := range delta.Attrs {
		current, present := existing.Attrs.Get(attr.Key)
		merged := mergeAttrValue(current, attr.Value)
		if !present && merged.IsZero() {
			continue
		}
		existing.Attrs.Put(attr.Key, merged)
	}
	existing.Evidence = mergeEvidence(existing.Evidence, delta.Evidence)

	b.Entities.Put(existing)
	return true
}

// mergeAttrValue implements the union rules for one attribute slot:
// anything involving a set unions into a set; two differing scalars become
// a two-element set; an empty incoming value never clobbers a present one.
func mergeAttrValue(existing, incoming AttrValue) AttrValue {
	if incoming.IsZero() {
		return existing
	}
	if existing.IsZero() {
		return capAttrValue(incoming)
	}
	if existing.IsSet() || incoming.IsSet() {
		return capAttrValue(Set(append(existing.Values(), incoming.Values()...)...))
	}
	if existing.scalar == incoming.scalar {
		return existing
	}
	return Set(existing.scalar, incoming.scalar)
}

func capAttrValue(v AttrValue) AttrValue {
	if v.multi && len(v.set) > maxAttrSetValues {
		v.set = v.set[:maxAttrSetValues]
	}
	return v
}

// mergeEvidence concatenates existing then incoming, dedupes on the
// (chapter, span, quote prefix) key, and truncates to the cap. Earliest
// entries win the cap; an entity already full never takes new evidence.
func mergeEvidence(existing, incoming []Evidence) []Evidence {
	merged := make([]Evidence, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, ev := range append(append([]Evidence{}, existing...), incoming...) {
		key := ev.dedupKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, ev)
		if len(merged) == maxEvidencePerEntity {
			break
		}
	}
	if len(merged) == 0 {
		return nil
	}
	return merged
}

// ApplyThread union-merges a thread delta, creating the thread on first
// sight. Threads are keyed by exact name; an empty name is a silent no-op.
func (b *Bible) ApplyThread(delta Thread, now time.Time) bool {
	if delta.Name == "" {
		return false
	}

	thread := b.Thread(delta.Name)
	if thread == nil {
		b.Threads = append(b.Threads, Thread{
			Name:      delta.Name,
			Status:    StatusOpen,
			CreatedAt: now,
		})
		thread = &b.Threads[len(b.Threads)-1]
	}

	if delta.Status != "" {
		thread.Status = NormalizeStatus(string(delta.Status))
	}
	if delta.Notes != "" {
		thread.Notes = delta.Notes
	}
	thread.Hooks = mergeHooks(thread.Hooks, delta.Hooks)
	thread.Todos = mergeTodos(thread.Todos, delta.Todos)
	thread.UpdatedAt = now
	return true
}

// mergeHooks unions position markers, dropping anything non-finite or
// outside [0,1].
func mergeHooks(existing, incoming []float64) []float64 {
	merged := make([]float64, 0, len(existing)+len(incoming))
	seen := make(map[float64]struct{}, len(existing)+len(incoming))
	for _, h := range append(append([]float64{}, existing...), incoming...) {
		if math.IsNaN(h) || math.IsInf(h, 0) || h < 0 || h > 1 {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		merged = append(merged, h)
	}
	if len(merged) == 0 {
		return nil
	}
	return merged
}

func mergeTodos(existing, incoming []string) []string {
	merged := make([]string, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, todo := range append(append([]string{}, existing...), incoming...) {
		if todo == "" {
			continue
		}
		if _, ok := seen[todo]; ok {
			continue
		}
		seen[todo] = struct{}{}
		merged = append(merged, todo)
		if len(merged) == maxTodosPerThread {
			break
		}
	}
	if len(merged) == 0 {
		return nil
	}
	return merged
}

// RemoveEntity deletes by exact id. Absence is not an error.
func (b *Bible) RemoveEntity(id string) bool {
	return b.Entities.Delete(id)
}

// RemoveThread deletes by exact name. Absence is not an error.
func (b *Bible) RemoveThread(name string) bool {
	for i := range b.Threads {
		if b.Threads[i].Name == name {
			b.Threads = append(b.Threads[:i], b.Threads[i+1:]...)
			return true
		}
	}
	return false
}

// CloseThread marks the thread closed, if it exists.
func (b *Bible) CloseThread(name string, now time.Time) bool {
	thread := b.Thread(name)
	if thread == nil {
		return false
	}
	thread.Status = StatusClosed
	thread.UpdatedAt = now
	return true
}

// MergeStyle shallow-merges stylistic hints; incoming keys overwrite.
func (b *Bible) MergeStyle(style map[string]any) {
	if len(style) == 0 {
		return
	}
	if b.Style == nil {
		b.Style = map[string]any{}
	}
	for k, v := range style {
		b.Style[k] = v
	}
}
