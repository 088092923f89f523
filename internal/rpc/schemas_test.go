package rpc

import (
	"strings"
	"testing"
)

func TestCatalogCoversEveryTool(t *testing.T) {
	if len(toolOrder) != len(toolDefs) {
		t.Fatalf("order %d defs %d", len(toolOrder), len(toolDefs))
	}
	for _, name := range toolOrder {
		if _, ok := toolDefs[name]; !ok {
			t.Fatalf("tool %s has no definition", name)
		}
		if _, ok := validators[name]; !ok {
			t.Fatalf("tool %s has no compiled schema", name)
		}
	}
}

func TestValidateArgsAccepts(t *testing.T) {
	cases := []struct {
		tool string
		args map[string]any
	}{
		{"chat", map[string]any{"message": "hello"}},
		{"navigate", map[string]any{"x": 1.5, "y": 64.0, "z": -3.0}},
		{"navigate_relative", map[string]any{"dx": 5.0, "dy": 0.0, "dz": 0.0}},
		{"dig_area", map[string]any{"x1": 0.0, "y1": 64.0, "z1": 0.0, "x2": 3.0, "y2": 66.0, "z2": 3.0}},
		{"follow_player", map[string]any{"name": "steve"}},
		{"follow_player", map[string]any{"name": "steve", "distance": 4.0}},
		{"find_blocks", map[string]any{"name": "diamond_ore", "max_distance": 64.0, "count": 3.0}},
		{"equip_item", map[string]any{"item": "iron_sword"}},
		{"smelt_item", map[string]any{"item": "iron_ore", "fuel": "coal", "count": 8.0}},
	}
	for _, c := range cases {
		if err := validateArgs(c.tool, c.args); err != nil {
			t.Fatalf("%s %v: %v", c.tool, c.args, err)
		}
	}
}

func TestValidateArgsRejects(t *testing.T) {
	cases := []struct {
		tool string
		args map[string]any
		want string // substring of the error
	}{
		{"chat", map[string]any{}, "message"},
		{"chat", map[string]any{"message": ""}, "/message"},
		{"navigate", map[string]any{"x": "ten", "y": 64.0, "z": 0.0}, "/x"},
		{"navigate", map[string]any{"x": 1.0, "y": 64.0}, "z"},
		{"chat", map[string]any{"message": "hi", "loud": true}, "loud"},
		{"find_blocks", map[string]any{"name": "stone", "count": 0.0}, "/count"},
		{"equip_item", map[string]any{"item": "sword", "destination": "pocket"}, "/destination"},
		{"unknown_tool", map[string]any{}, "unknown tool"},
	}
	for _, c := range cases {
		err := validateArgs(c.tool, c.args)
		if err == nil {
			t.Fatalf("%s %v: expected error", c.tool, c.args)
		}
		if !strings.Contains(err.Error(), c.want) {
			t.Fatalf("%s: error %q does not mention %q", c.tool, err, c.want)
		}
	}
}

func TestValidateArgsNilIsMissingRequired(t *testing.T) {
	if err := validateArgs("chat", nil); err == nil {
		t.Fatalf("expected error for nil arguments")
	}
}
