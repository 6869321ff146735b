package bible

// Limits bounds the two aggregate-level collections. The per-container caps
// (evidence, set values, todos) are fixed constants in merge.go.
type Limits struct {
	MaxEntities int
	MaxThreads  int
}

func DefaultLimits() Limits {
	return Limits{MaxEntities: 500, MaxThreads: 200}
}

func (l Limits) orDefaults() Limits {
	def := DefaultLimits()
	if l.MaxEntities <= 0 {
		l.MaxEntities = def.MaxEntities
	}
	if l.MaxThreads <= 0 {
		l.MaxThreads = def.MaxThreads
	}
	return l
}

// PruneStats reports what a prune pass dropped.
type PruneStats struct {
	EntitiesEvicted int
	ThreadsEvicted  int
}

// Prune enforces every quota on the aggregate in place. It runs after each
// mutation and during load normalization, and never fails: excess is
// silently dropped by the deterministic policy below.
//
// Entity eviction keeps the FIRST MaxEntities in enumeration order while
// thread eviction keeps the LAST MaxThreads. The asymmetry is inherited
// behavior and is preserved deliberately.
func (b *Bible) Prune(limits Limits) PruneStats {
	limits = limits.orDefaults()
	var stats PruneStats

	if len(b.Entities) > limits.MaxEntities {
		stats.EntitiesEvicted = len(b.Entities) - limits.MaxEntities
		b.Entities = b.Entities[:limits.MaxEntities]
	}
	for _, e := range b.Entities {
		e.Evidence = mergeEvidence(e.Evidence, nil)
		for i := range e.Attrs {
			if e.Attrs[i].Value.multi {
				e.Attrs[i].Value = capAttrValue(Set(e.Attrs[i].Value.set...))
			}
		}
	}

	b.Threads = dedupeThreads(b.Threads)
	if len(b.Threads) > limits.MaxThreads {
		stats.ThreadsEvicted = len(b.Threads) - limits.MaxThreads
		b.Threads = b.Threads[len(b.Threads)-limits.MaxThreads:]
	}
	for i := range b.Threads {
		b.Threads[i].Hooks = mergeHooks(b.Threads[i].Hooks, nil)
		b.Threads[i].Todos = mergeTodos(b.Threads[i].Todos, nil)
		if b.Threads[i].Status == "" {
			b.Threads[i].Status = StatusOpen
		}
	}

	return stats
}

// dedupeThreads drops later threads that reuse an earlier thread's name.
// Merged records can only grow duplicates through hand-edited imports, but
// the name-uniqueness invariant must hold after every mutation.
func dedupeThreads(threads []Thread) []Thread {
	seen := make(map[string]struct{}, len(threads))
	out := threads[:0]
	for _, t := range threads {
		if t.Name == "" {
			continue
		}
		if _, ok := seen[t.Name]; ok {
			continue
		}
		seen[t.Name] = struct{}{}
		out = append(out, t)
	}
	return out
}
