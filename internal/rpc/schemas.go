package rpc

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// toolDef pairs a tool's description with its raw JSON schema. The raw text
// is both advertised to clients and compiled for server-side validation, so
// the two can never drift apart.
type toolDef struct {
	desc   string
	schema string
}

// toolOrder fixes the registration order; map iteration would shuffle the
// advertised catalog between runs.
var toolOrder = []string{
	"chat",
	"navigate",
	"navigate_relative",
	"dig_block",
	"dig_block_relative",
	"dig_area",
	"dig_area_relative",
	"place_block",
	"follow_player",
	"attack_entity",
	"inspect_block",
	"find_blocks",
	"find_entities",
	"check_path",
	"craft_item",
	"smelt_item",
	"equip_item",
	"deposit_item",
	"withdraw_item",
}

var toolDefs = map[string]toolDef{
	"chat": {
		desc: "Send a chat message to the game server.",
		schema: `{
  "type": "object",
  "properties": {
    "message": {"type": "string", "minLength": 1, "description": "Chat text to send"}
  },
  "required": ["message"],
  "additionalProperties": false
}`,
	},
	"navigate": {
		desc: "Walk to an absolute position in the world.",
		schema: `{
  "type": "object",
  "properties": {
    "x": {"type": "number"},
    "y": {"type": "number"},
    "z": {"type": "number"}
  },
  "required": ["x", "y", "z"],
  "additionalProperties": false
}`,
	},
	"navigate_relative": {
		desc: "Walk to a position given relative to the agent: dx right, dy up, dz forward.",
		schema: `{
  "type": "object",
  "properties": {
    "dx": {"type": "number", "description": "Blocks to the agent's right"},
    "dy": {"type": "number", "description": "Blocks upward"},
    "dz": {"type": "number", "description": "Blocks in front of the agent"}
  },
  "required": ["dx", "dy", "dz"],
  "additionalProperties": false
}`,
	},
	"dig_block": {
		desc: "Dig the block at an absolute position.",
		schema: `{
  "type": "object",
  "properties": {
    "x": {"type": "number"},
    "y": {"type": "number"},
    "z": {"type": "number"}
  },
  "required": ["x", "y", "z"],
  "additionalProperties": false
}`,
	},
	"dig_block_relative": {
		desc: "Dig the block at a position relative to the agent: dx right, dy up, dz forward.",
		schema: `{
  "type": "object",
  "properties": {
    "dx": {"type": "number"},
    "dy": {"type": "number"},
    "dz": {"type": "number"}
  },
  "required": ["dx", "dy", "dz"],
  "additionalProperties": false
}`,
	},
	"dig_area": {
		desc: "Dig every block in the box between two absolute corners, top layer first.",
		schema: `{
  "type": "object",
  "properties": {
    "x1": {"type": "number"},
    "y1": {"type": "number"},
    "z1": {"type": "number"},
    "x2": {"type": "number"},
    "y2": {"type": "number"},
    "z2": {"type": "number"}
  },
  "required": ["x1", "y1", "z1", "x2", "y2", "z2"],
  "additionalProperties": false
}`,
	},
	"dig_area_relative": {
		desc: "Dig every block in the box between two corners given relative to the agent, top layer first.",
		schema: `{
  "type": "object",
  "properties": {
    "dx1": {"type": "number"},
    "dy1": {"type": "number"},
    "dz1": {"type": "number"},
    "dx2": {"type": "number"},
    "dy2": {"type": "number"},
    "dz2": {"type": "number"}
  },
  "required": ["dx1", "dy1", "dz1", "dx2", "dy2", "dz2"],
  "additionalProperties": false
}`,
	},
	"place_block": {
		desc: "Place a block from the inventory at an absolute position.",
		schema: `{
  "type": "object",
  "properties": {
    "x": {"type": "number"},
    "y": {"type": "number"},
    "z": {"type": "number"},
    "block": {"type": "string", "minLength": 1, "description": "Block item name, e.g. cobblestone"}
  },
  "required": ["x", "y", "z", "block"],
  "additionalProperties": false
}`,
	},
	"follow_player": {
		desc: "Follow a player, keeping a fixed distance.",
		schema: `{
  "type": "object",
  "properties": {
    "name": {"type": "string", "minLength": 1, "description": "Player to follow"},
    "distance": {"type": "number", "minimum": 1, "default": 2}
  },
  "required": ["name"],
  "additionalProperties": false
}`,
	},
	"attack_entity": {
		desc: "Attack the nearest entity matching a name.",
		schema: `{
  "type": "object",
  "properties": {
    "name": {"type": "string", "minLength": 1, "description": "Entity or player name"}
  },
  "required": ["name"],
  "additionalProperties": false
}`,
	},
	"inspect_block": {
		desc: "Report the block at an absolute position.",
		schema: `{
  "type": "object",
  "properties": {
    "x": {"type": "number"},
    "y": {"type": "number"},
    "z": {"type": "number"}
  },
  "required": ["x", "y", "z"],
  "additionalProperties": false
}`,
	},
	"find_blocks": {
		desc: "Find positions of nearby blocks matching a name.",
		schema: `{
  "type": "object",
  "properties": {
    "name": {"type": "string", "minLength": 1, "description": "Block name to search for"},
    "max_distance": {"type": "integer", "minimum": 1, "default": 32},
    "count": {"type": "integer", "minimum": 1, "default": 1}
  },
  "required": ["name"],
  "additionalProperties": false
}`,
	},
	"find_entities": {
		desc: "Find nearby entities of a kind.",
		schema: `{
  "type": "object",
  "properties": {
    "kind": {"type": "string", "minLength": 1, "description": "Entity kind, e.g. zombie, player, item"},
    "max_distance": {"type": "integer", "minimum": 1, "default": 32}
  },
  "required": ["kind"],
  "additionalProperties": false
}`,
	},
	"check_path": {
		desc: "Check whether a walkable path exists to an absolute position, without moving.",
		schema: `{
  "type": "object",
  "properties": {
    "x": {"type": "number"},
    "y": {"type": "number"},
    "z": {"type": "number"}
  },
  "required": ["x", "y", "z"],
  "additionalProperties": false
}`,
	},
	"craft_item": {
		desc: "Craft an item from inventory materials.",
		schema: `{
  "type": "object",
  "properties": {
    "item": {"type": "string", "minLength": 1},
    "count": {"type": "integer", "minimum": 1, "default": 1}
  },
  "required": ["item"],
  "additionalProperties": false
}`,
	},
	"smelt_item": {
		desc: "Smelt an item in a nearby furnace.",
		schema: `{
  "type": "object",
  "properties": {
    "item": {"type": "string", "minLength": 1},
    "fuel": {"type": "string", "minLength": 1, "default": "coal"},
    "count": {"type": "integer", "minimum": 1, "default": 1}
  },
  "required": ["item"],
  "additionalProperties": false
}`,
	},
	"equip_item": {
		desc: "Equip an inventory item to a destination slot.",
		schema: `{
  "type": "object",
  "properties": {
    "item": {"type": "string", "minLength": 1},
    "destination": {"type": "string", "enum": ["hand", "off-hand", "head", "torso", "legs", "feet"], "default": "hand"}
  },
  "required": ["item"],
  "additionalProperties": false
}`,
	},
	"deposit_item": {
		desc: "Deposit an item into a nearby container.",
		schema: `{
  "type": "object",
  "properties": {
    "item": {"type": "string", "minLength": 1},
    "count": {"type": "integer", "minimum": 1, "default": 1}
  },
  "required": ["item"],
  "additionalProperties": false
}`,
	},
	"withdraw_item": {
		desc: "Withdraw an item from a nearby container.",
		schema: `{
  "type": "object",
  "properties": {
    "item": {"type": "string", "minLength": 1},
    "count": {"type": "integer", "minimum": 1, "default": 1}
  },
  "required": ["item"],
  "additionalProperties": false
}`,
	},
}

var validators = map[string]*jsonschema.Schema{}

func init() {
	if len(toolOrder) != len(toolDefs) {
		panic("rpc: tool order and definitions out of sync")
	}
	for name, def := range toolDefs {
		validators[name] = jsonschema.MustCompileString(name+".json", def.schema)
	}
}

// validateArgs checks decoded call arguments against the tool's schema and
// reports the first failing field path.
func validateArgs(tool string, args map[string]any) error {
	sch, ok := validators[tool]
	if !ok {
		return fmt.Errorf("unknown tool %q", tool)
	}
	var v any = args
	if args == nil {
		v = map[string]any{}
	}
	if err := sch.Validate(v); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			lf := leafCause(ve)
			loc := lf.InstanceLocation
			if loc == "" {
				loc = "(arguments)"
			}
			return fmt.Errorf("invalid arguments for %s: %s: %s", tool, loc, lf.Message)
		}
		return fmt.Errorf("invalid arguments for %s: %v", tool, err)
	}
	return nil
}

func leafCause(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}
