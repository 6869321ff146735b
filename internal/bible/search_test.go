package bible

import "testing"

func searchFixture() *Bible {
	b := New("p1")
	b.ApplyEntity(Entity{ID: "Mercy", Type: TypeCharacter, Attrs: Attrs{{Key: "motivation", Value: Scalar("guilt")}}})
	b.ApplyEntity(Entity{ID: "Harbor", Type: TypeLocation, Attrs: Attrs{{Key: "mood", Value: Set("foggy", "dangerous")}}})
	b.ApplyThread(Thread{Name: "who killed Dorian", Notes: "center of book two", Todos: []string{"check the harbor logs"}}, now)
	b.Style = map[string]any{"tense": "past"}
	return b
}

func TestSearch(t *testing.T) {
	b := searchFixture()

	t.Run("empty query matches everything", func(t *testing.T) {
		result := b.Search("")
		if len(result.Entities) != 2 || len(result.Threads) != 1 {
			t.Fatalf("expected all items, got %d entities %d threads", len(result.Entities), len(result.Threads))
		}
		if result.Style["tense"] != "past" {
			t.Fatalf("style not carried through")
		}
	})

	t.Run("id match is case-insensitive", func(t *testing.T) {
		result := b.Search("mercy")
		if len(result.Entities) != 1 || result.Entities[0].ID != "Character:Mercy" {
			t.Fatalf("expected Character:Mercy, got %v", result.Entities)
		}
	})

	t.Run("matches attr values", func(t *testing.T) {
		result := b.Search("DANGEROUS")
		if len(result.Entities) != 1 || result.Entities[0].ID != "Location:Harbor" {
			t.Fatalf("expected Location:Harbor, got %v", result.Entities)
		}
	})

	t.Run("matches thread todos and entity attrs together", func(t *testing.T) {
		result := b.Search("harbor")
		if len(result.Entities) != 1 || len(result.Threads) != 1 {
			t.Fatalf("expected one entity and one thread, got %d/%d", len(result.Entities), len(result.Threads))
		}
	})

	t.Run("no relevance ranking, aggregate order kept", func(t *testing.T) {
		result := b.Search("o")
		if len(result.Entities) != 2 {
			t.Fatalf("expected both entities, got %d", len(result.Entities))
		}
		if result.Entities[0].ID != "Character:Mercy" || result.Entities[1].ID != "Location:Harbor" {
			t.Fatalf("order not preserved: %v", result.Entities)
		}
	})

	t.Run("miss returns empty slices", func(t *testing.T) {
		result := b.Search("zeppelin")
		if len(result.Entities) != 0 || len(result.Threads) != 0 {
			t.Fatalf("expected no matches")
		}
	})

	t.Run("result style detaches from the aggregate", func(t *testing.T) {
		result := b.Search("")
		result.Style["tense"] = "present"
		if b.Style["tense"] != "past" {
			t.Fatalf("result style aliases the aggregate: %v", b.Style)
		}
	})
}
