package syncx

import (
	"testing"
)

func TestShallowMergeRemoteWins(t *testing.T) {
	local := map[string]any{"title": "local title", "draft": true}
	remote := map[string]any{"title": "remote title", "status": "publish"}

	merged := ShallowMerge(local, remote)

	if merged["title"] != "remote title" {
		t.Errorf("remote should win on collision, got %v", merged["title"])
	}
	if merged["draft"] != true {
		t.Error("local-only field dropped")
	}
	if merged["status"] != "publish" {
		t.Error("remote-only field dropped")
	}
}

func TestShallowMergeDoesNotMutateInputs(t *testing.T) {
	local := map[string]any{"title": "local"}
	remote := map[string]any{"title": "remote"}

	_ = ShallowMerge(local, remote)

	if local["title"] != "local" {
		t.Error("local input mutated")
	}
	if remote["title"] != "remote" {
		t.Error("remote input mutated")
	}
}

func TestItemID(t *testing.T) {
	tests := []struct {
		name   string
		item   map[string]any
		want   string
		wantOK bool
	}{
		{"numeric id", map[string]any{"id": 42.0}, "42", true},
		{"string id", map[string]any{"id": "akismet/akismet"}, "akismet/akismet", true},
		{"int id", map[string]any{"id": 7}, "7", true},
		{"missing id", map[string]any{"title": "x"}, "", false},
		{"empty string id", map[string]any{"id": ""}, "", false},
		{"unsupported kind", map[string]any{"id": true}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ItemID(tt.item)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ItemID() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
