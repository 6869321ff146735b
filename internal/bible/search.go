package bible

import "strings"

// SearchResult carries the matching entities and threads in aggregate
// order, plus the style record verbatim.
type SearchResult struct {
	Entities []Entity       `json:"entities"`
	Threads  []Thread       `json:"threads"`
	Style    map[string]any `json:"style,omitempty"`
}

// Search matches the query as a case-insensitive substring. An empty query
// matches everything. Results are not relevance-ranked; they keep the
// aggregate's natural order.
func (b *Bible) Search(query string) SearchResult {
	needle := strings.ToLower(query)

	result := SearchResult{
		Entities: []Entity{},
		Threads:  []Thread{},
	}
	if b.Style != nil {
		result.Style = cloneStyle(b.Style)
	}
	for _, e := range b.Entities {
		if needle == "" || strings.Contains(entityHaystack(e), needle) {
			result.Entities = append(result.Entities, *e.Clone())
		}
	}
	for _, t := range b.Threads {
		if needle == "" || strings.Contains(threadHaystack(t), needle) {
			result.Threads = append(result.Threads, t.Clone())
		}
	}
	return result
}

func entityHaystack(e *Entity) string {
	var sb strings.Builder
	sb.WriteString(e.ID)
	sb.WriteByte(' ')
	sb.WriteString(string(e.Type))
	for _, attr := range e.Attrs {
		sb.WriteByte(' ')
		sb.WriteString(attr.Key)
		sb.WriteByte(' ')
		sb.WriteString(attr.Value.String())
	}
	return strings.ToLower(sb.String())
}

func threadHaystack(t Thread) string {
	parts := append([]string{t.Name, t.Notes}, t.Todos...)
	return strings.ToLower(strings.Join(parts, " "))
}
