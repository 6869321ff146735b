package bible

import (
	"bytes"
	"testing"
)

func TestDecode(t *testing.T) {
	limits := DefaultLimits()

	t.Run("empty record yields fresh default", func(t *testing.T) {
		b, err := Decode("p1", nil, limits)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if b.ProjectID != "p1" || b.SchemaVersion != CurrentSchemaVersion {
			t.Fatalf("unexpected default: %+v", b)
		}
		if b.Entities == nil || b.Threads == nil {
			t.Fatalf("containers not initialized")
		}
	})

	t.Run("missing version stamps v1 then migrates", func(t *testing.T) {
		raw := []byte(`{"projectId":"p1","entities":{"Mercy":{"id":"Mercy","type":"Character"}},"threads":[]}`)
		b, err := Decode("p1", raw, limits)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if b.SchemaVersion != CurrentSchemaVersion {
			t.Fatalf("expected version %d, got %d", CurrentSchemaVersion, b.SchemaVersion)
		}
		if b.Entities.Get("Character:Mercy") == nil {
			t.Fatalf("v1 id not canonicalized: %v", b.Entities)
		}
	})

	t.Run("v1 raw and canonical ids union into one entity", func(t *testing.T) {
		raw := []byte(`{"schemaVersion":1,"entities":{` +
			`"Mercy":{"id":"Mercy","type":"Character","attrs":{"motivation":"guilt"}},` +
			`"Character:Mercy":{"id":"Character:Mercy","type":"Character","attrs":{"motivation":"revenge"}}}}`)
		b, err := Decode("p1", raw, limits)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(b.Entities) != 1 {
			t.Fatalf("expected 1 entity after migration, got %d", len(b.Entities))
		}
		v, _ := b.Entities.Get("Character:Mercy").Attrs.Get("motivation")
		if !v.IsSet() || len(v.Values()) != 2 {
			t.Fatalf("colliding attrs did not union: %v", v)
		}
	})

	t.Run("future schema version passes through", func(t *testing.T) {
		raw := []byte(`{"schemaVersion":9,"entities":{"weird-id":{"id":"weird-id","type":"Mystery"}}}`)
		b, err := Decode("p1", raw, limits)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if b.SchemaVersion != 9 {
			t.Fatalf("future version rewritten to %d", b.SchemaVersion)
		}
		if b.Entities.Get("weird-id") == nil {
			t.Fatalf("future-version entities should not be transformed")
		}
	})

	t.Run("idempotent: decoding twice is bit-identical", func(t *testing.T) {
		raw := []byte(`{"entities":{"Mercy":{"id":"Mercy","type":"Character","attrs":{"z":"1","a":"2"}}},"threads":[{"name":"t","hooks":[0.5,3]}]}`)
		first, err := Decode("p1", raw, limits)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		second, err := Decode("p1", raw, limits)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}

		a, err := first.Encode()
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		b, err := second.Encode()
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if !bytes.Equal(a, b) {
			t.Fatalf("decode is not deterministic:\n%s\n%s", a, b)
		}
	})

	t.Run("null containers coerce to empty", func(t *testing.T) {
		raw := []byte(`{"schemaVersion":2,"entities":null,"threads":null}`)
		b, err := Decode("p1", raw, limits)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if b.Entities == nil || len(b.Entities) != 0 {
			t.Fatalf("null entities not coerced: %v", b.Entities)
		}
	})

	t.Run("null attrs coerce to empty", func(t *testing.T) {
		raw := []byte(`{"schemaVersion":2,"entities":{"Character:Mercy":{"id":"Character:Mercy","type":"Character","attrs":null}}}`)
		b, err := Decode("p1", raw, limits)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		e := b.Entities.Get("Character:Mercy")
		if e == nil || len(e.Attrs) != 0 {
			t.Fatalf("null attrs not coerced: %+v", e)
		}
	})

	t.Run("corrupt record is an error", func(t *testing.T) {
		if _, err := Decode("p1", []byte("{nope"), limits); err == nil {
			t.Fatalf("expected error")
		}
	})
}
