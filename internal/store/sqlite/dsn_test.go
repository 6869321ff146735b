package sqlite

import "testing"

func TestParseDSN(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "memory", input: "sqlite://:memory:", expected: ":memory:"},
		{name: "absolute path", input: "sqlite:///var/data/bibles.db", expected: "/var/data/bibles.db"},
		{name: "relative path gains dot slash", input: "sqlite://bibles.db", expected: "./bibles.db"},
		{name: "explicit relative path", input: "sqlite://./bibles.db", expected: "./bibles.db"},
		{name: "query string preserved", input: "sqlite://bibles.db?cache=shared", expected: "./bibles.db?cache=shared"},
		{name: "escaped path", input: "sqlite://my%20data.db", expected: "./my data.db"},
		{name: "wrong scheme", input: "postgres://x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDSN(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDSN(%q): %v", tt.input, err)
			}
			if got != tt.expected {
				t.Fatalf("parseDSN(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
