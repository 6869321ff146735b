// Package bible implements the per-project story bible: an aggregate of
// entities and narrative threads accumulated from extraction passes, with
// union-merge semantics, hard quotas, and bounded projections for grounding
// a language model.
package bible

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type EntityType string

const (
	TypeCharacter EntityType = "Character"
	TypeLocation  EntityType = "Location"
	TypeRule      EntityType = "Rule"
	TypeObject    EntityType = "Object"
	TypeConcept   EntityType = "Concept"
)

var entityTypes = []EntityType{TypeCharacter, TypeLocation, TypeRule, TypeObject, TypeConcept}

// NormalizeType maps a candidate type string onto a known entity type.
// Unrecognized values fall back to Concept rather than failing.
func NormalizeType(s string) EntityType {
	for _, t := range entityTypes {
		if strings.EqualFold(s, string(t)) {
			return t
		}
	}
	return TypeConcept
}

// CanonicalID computes the canonical "<Type>:<Name>" id for an entity delta.
// If the raw id already carries a known type prefix, that prefix wins over
// the delta's declared type. The returned bool reports whether any coercion
// of the caller's input occurred.
func CanonicalID(raw string, declared EntityType) (string, EntityType, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", declared, false
	}
	if head, rest, ok := strings.Cut(raw, ":"); ok && rest != "" {
		for _, t := range entityTypes {
			if strings.EqualFold(head, string(t)) {
				id := string(t) + ":" + rest
				return id, t, id != raw || t != declared
			}
		}
	}
	return string(declared) + ":" + raw, declared, true
}

// AttrValue is a tagged variant: either a single scalar string or an
// ordered set of distinct strings. The zero value is an empty scalar.
type AttrValue struct {
	scalar string
	set    []string
	multi  bool
}

func Scalar(s string) AttrValue {
	return AttrValue{scalar: s}
}

// Set builds a set value, dropping duplicates while keeping first-seen order.
func Set(vals ...string) AttrValue {
	out := make([]string, 0, len(vals))
	seen := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return AttrValue{set: out, multi: true}
}

func (v AttrValue) IsSet() bool { return v.multi }

// IsZero reports whether the value carries nothing worth merging.
func (v AttrValue) IsZero() bool {
	if v.multi {
		return len(v.set) == 0
	}
	return v.scalar == ""
}

// Values returns the value as a flat string slice, one element for a scalar.
func (v AttrValue) Values() []string {
	if v.multi {
		out := make([]string, len(v.set))
		copy(out, v.set)
		return out
	}
	if v.scalar == "" {
		return nil
	}
	return []string{v.scalar}
}

func (v AttrValue) String() string {
	if v.multi {
		return strings.Join(v.set, ", ")
	}
	return v.scalar
}

func (v AttrValue) MarshalJSON() ([]byte, error) {
	if v.multi {
		return json.Marshal(v.set)
	}
	return json.Marshal(v.scalar)
}

// UnmarshalJSON coerces whatever the extractor sent: strings stay scalars,
// arrays become sets with every element stringified, and stray numbers,
// bools, or nulls are stringified rather than rejected.
func (v *AttrValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding attribute value: %w", err)
	}
	switch val := raw.(type) {
	case string:
		*v = Scalar(val)
	case []any:
		vals := make([]string, 0, len(val))
		for _, item := range val {
			if s := coerceString(item); s != "" {
				vals = append(vals, s)
			}
		}
		*v = Set(vals...)
	default:
		*v = Scalar(coerceString(raw))
	}
	return nil
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case json.Number:
		return val.String()
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// Attr is one named attribute of an entity.
type Attr struct {
	Key   string
	Value AttrValue
}

// Attrs is an insertion-ordered attribute map. Order matters: set unions
// and snapshot projections are defined in terms of first-seen key order,
// so a plain Go map would not round-trip deterministically.
type Attrs []Attr

func (a Attrs) Get(key string) (AttrValue, bool) {
	for _, attr := range a {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return AttrValue{}, false
}

// Put replaces the value for key in place, or appends a new entry.
func (a *Attrs) Put(key string, v AttrValue) {
	for i, attr := range *a {
		if attr.Key == key {
			(*a)[i].Value = v
			return
		}
	}
	*a = append(*a, Attr{Key: key, Value: v})
}

func (a Attrs) Clone() Attrs {
	if a == nil {
		return nil
	}
	out := make(Attrs, len(a))
	copy(out, a)
	for i := range out {
		if out[i].Value.multi {
			set := make([]string, len(out[i].Value.set))
			copy(set, out[i].Value.set)
			out[i].Value.set = set
		}
	}
	return out
}

func (a Attrs) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, attr := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(attr.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(attr.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (a *Attrs) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decoding attrs: %w", err)
	}
	if tok == nil {
		*a = Attrs{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("decoding attrs: expected object, got %v", tok)
	}
	out := Attrs{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decoding attrs key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("decoding attrs: non-string key %v", keyTok)
		}
		var val AttrValue
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("decoding attrs value for %q: %w", key, err)
		}
		out.Put(key, val)
	}
	*a = out
	return nil
}

// Span is a half-open character range into the source document.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Evidence is one textual justification for an entity's attributes.
type Evidence struct {
	Span      *Span  `json:"span,omitempty"`
	Quote     string `json:"quote,omitempty"`
	ChapterID string `json:"chapterId,omitempty"`
}

// dedupKey identifies an evidence entry by chapter, span, and the first 80
// characters of the quote.
func (e Evidence) dedupKey() string {
	span := ""
	if e.Span != nil {
		span = strconv.Itoa(e.Span.Start) + "-" + strconv.Itoa(e.Span.End)
	}
	quote := e.Quote
	if runes := []rune(quote); len(runes) > 80 {
		quote = string(runes[:80])
	}
	return e.ChapterID + "\x00" + span + "\x00" + quote
}

func (e Evidence) clone() Evidence {
	if e.Span != nil {
		span := *e.Span
		e.Span = &span
	}
	return e
}

// Entity is one tracked story element.
type Entity struct {
	ID       string     `json:"id"`
	Type     EntityType `json:"type"`
	Attrs    Attrs      `json:"attrs,omitempty"`
	Evidence []Evidence `json:"evidence,omitempty"`
}

func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	out := &Entity{ID: e.ID, Type: e.Type, Attrs: e.Attrs.Clone()}
	if e.Evidence != nil {
		out.Evidence = make([]Evidence, len(e.Evidence))
		for i, ev := range e.Evidence {
			out.Evidence[i] = ev.clone()
		}
	}
	return out
}

// EntityMap is the bible's entity collection, keyed by canonical id and
// insertion-ordered. Enumeration order is the eviction order, so it must
// survive serialization; the wire form is a JSON object keyed by id.
type EntityMap []*Entity

func (m EntityMap) Get(id string) *Entity {
	for _, e := range m {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// Put inserts or replaces the entity keyed by its id, keeping the slot of
// an existing entry.
func (m *EntityMap) Put(e *Entity) {
	for i, existing := range *m {
		if existing.ID == e.ID {
			(*m)[i] = e
			return
		}
	}
	*m = append(*m, e)
}

// Delete removes the entity with the given id and reports whether it existed.
func (m *EntityMap) Delete(id string) bool {
	for i, e := range *m {
		if e.ID == id {
			*m = append((*m)[:i], (*m)[i+1:]...)
			return true
		}
	}
	return false
}

func (m EntityMap) Clone() EntityMap {
	if m == nil {
		return nil
	}
	out := make(EntityMap, len(m))
	for i, e := range m {
		out[i] = e.Clone()
	}
	return out
}

func (m EntityMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.ID)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(e)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *EntityMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decoding entities: %w", err)
	}
	if tok == nil {
		*m = EntityMap{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("decoding entities: expected object, got %v", tok)
	}
	out := EntityMap{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decoding entity key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("decoding entities: non-string key %v", keyTok)
		}
		var e Entity
		if err := dec.Decode(&e); err != nil {
			return fmt.Errorf("decoding entity %q: %w", key, err)
		}
		if e.ID == "" {
			e.ID = key
		}
		out.Put(&e)
	}
	*m = out
	return nil
}

type ThreadStatus string

const (
	StatusOpen   ThreadStatus = "open"
	StatusClosed ThreadStatus = "closed"
)

// NormalizeStatus coerces a candidate status; anything that is not "closed"
// counts as open.
func NormalizeStatus(s string) ThreadStatus {
	if strings.EqualFold(s, string(StatusClosed)) {
		return StatusClosed
	}
	return StatusOpen
}

// Thread is a tracked open narrative question or plot line, keyed by its
// exact name.
type Thread struct {
	Name      string       `json:"name"`
	Status    ThreadStatus `json:"status"`
	Notes     string       `json:"notes,omitempty"`
	Hooks     []float64    `json:"hooks,omitempty"`
	Todos     []string     `json:"todos,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

func (t Thread) Clone() Thread {
	if t.Hooks != nil {
		hooks := make([]float64, len(t.Hooks))
		copy(hooks, t.Hooks)
		t.Hooks = hooks
	}
	if t.Todos != nil {
		todos := make([]string, len(t.Todos))
		copy(todos, t.Todos)
		t.Todos = todos
	}
	return t
}

// Bible is the whole per-project aggregate, the unit of storage.
type Bible struct {
	ProjectID     string         `json:"projectId"`
	SchemaVersion int            `json:"schemaVersion"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	Entities      EntityMap      `json:"entities"`
	Threads       []Thread       `json:"threads"`
	Style         map[string]any `json:"style,omitempty"`
}

// New returns an empty bible at the current schema version.
func New(projectID string) *Bible {
	return &Bible{
		ProjectID:     projectID,
		SchemaVersion: CurrentSchemaVersion,
		Entities:      EntityMap{},
		Threads:       []Thread{},
	}
}

// Thread returns the thread with the exact name, or nil.
func (b *Bible) Thread(name string) *Thread {
	for i := range b.Threads {
		if b.Threads[i].Name == name {
			return &b.Threads[i]
		}
	}
	return nil
}

// Clone deep-copies the aggregate so callers can hold a snapshot without
// aliasing the stored value.
func (b *Bible) Clone() *Bible {
	if b == nil {
		return nil
	}
	out := &Bible{
		ProjectID:     b.ProjectID,
		SchemaVersion: b.SchemaVersion,
		UpdatedAt:     b.UpdatedAt,
		Entities:      b.Entities.Clone(),
	}
	if b.Threads != nil {
		out.Threads = make([]Thread, len(b.Threads))
		for i, t := range b.Threads {
			out.Threads[i] = t.Clone()
		}
	}
	if b.Style != nil {
		out.Style = cloneStyle(b.Style)
	}
	return out
}

func cloneStyle(style map[string]any) map[string]any {
	data, err := json.Marshal(style)
	if err != nil {
		return map[string]any{}
	}
	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{}
	}
	return out
}
