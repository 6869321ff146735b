package bible

import (
	"encoding/json"
	"fmt"
)

// CurrentSchemaVersion is stamped on every new aggregate. Version history:
//
//	1: initial layout, entity ids stored as the extractor produced them
//	2: entity ids canonicalized to the "Type:Name" form
const CurrentSchemaVersion = 2

// Decode turns a stored record into a normalized aggregate. A nil or empty
// record yields a fresh default bible. The result always satisfies the
// aggregate invariants; decoding the same record twice yields identical
// values, so load never needs to write back.
func Decode(projectID string, raw []byte, limits Limits) (*Bible, error) {
	if len(raw) == 0 {
		return New(projectID), nil
	}

	var b Bible
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("decoding bible record: %w", err)
	}

	migrate(&b)

	if b.ProjectID == "" {
		b.ProjectID = projectID
	}
	if b.Entities == nil {
		b.Entities = EntityMap{}
	}
	if b.Threads == nil {
		b.Threads = []Thread{}
	}
	b.Prune(limits)
	return &b, nil
}

// Encode serializes the aggregate for storage.
func (b *Bible) Encode() ([]byte, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encoding bible record: %w", err)
	}
	return data, nil
}

// migrate upgrades older records in increasing version order. Records
// stamped with a version newer than CurrentSchemaVersion pass through
// untransformed; there is no downgrade path.
func migrate(b *Bible) {
	if b.SchemaVersion == 0 {
		b.SchemaVersion = 1
	}
	if b.SchemaVersion == 1 {
		migrateV1Entities(b)
		b.SchemaVersion = 2
	}
}

// migrateV1Entities re-applies every v1 entity through the merge path so
// ids gain their type prefix. Entities whose raw and canonical ids collide
// ("Mercy" next to "Character:Mercy") union into one.
func migrateV1Entities(b *Bible) {
	entities := b.Entities
	b.Entities = EntityMap{}
	for _, e := range entities {
		b.ApplyEntity(*e)
	}
}
