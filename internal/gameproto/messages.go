// Package gameproto implements the JSON-over-WebSocket protocol spoken by
// the game server and a client for it. Message framing mirrors the server
// side: every frame is a JSON object with a "type" discriminator and a
// protocol_version the peer may reject.
package gameproto

import (
	"encoding/json"
	"fmt"
)

const Version = "1.0"

var supportedVersions = map[string]struct{}{
	"1.0": {},
}

func IsSupportedVersion(v string) bool {
	_, ok := supportedVersions[v]
	return ok
}

const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeState   = "STATE"
	TypeEvent   = "EVENT"
	TypeCommand = "COMMAND"
	TypeResult  = "RESULT"
)

type BaseMsg struct {
	Type string `json:"type"`
}

func DecodeBase(b []byte) (BaseMsg, error) {
	var m BaseMsg
	if err := json.Unmarshal(b, &m); err != nil {
		return BaseMsg{}, err
	}
	if m.Type == "" {
		return BaseMsg{}, fmt.Errorf("missing type")
	}
	return m, nil
}

// HELLO (client -> server)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	AgentName       string            `json:"agent_name"`
	Capabilities    HelloCapabilities `json:"capabilities"`
	Auth            *HelloAuth        `json:"auth,omitempty"`
}

type HelloCapabilities struct {
	CompressedBlocks bool `json:"compressed_blocks,omitempty"`
	MaxQueue         int  `json:"max_queue,omitempty"`
}

type HelloAuth struct {
	Token string `json:"token,omitempty"`
}

// WELCOME (server -> client). Receipt means the login was accepted; the
// agent body is not controllable until the "spawn" EVENT arrives.
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AgentID         string `json:"agent_id"`
	ResumeToken     string `json:"resume_token"`
	Dimension       string `json:"dimension,omitempty"`
	Spawn           [3]int `json:"spawn,omitempty"`
}

// STATE (server -> client) is the periodic agent/world snapshot. The client
// keeps only the latest one.
type StateMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`

	Pos    [3]float64 `json:"pos"`
	Yaw    float64    `json:"yaw"`
	Health float64    `json:"health"`
	Food   float64    `json:"food"`

	Inventory []ItemStack  `json:"inventory,omitempty"`
	Players   []PlayerInfo `json:"players,omitempty"`
	Entities  []EntityInfo `json:"entities,omitempty"`
	Weather   WeatherInfo  `json:"weather"`
}

type ItemStack struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Slot  int    `json:"slot"`
}

type PlayerInfo struct {
	Name string      `json:"name"`
	Ping int         `json:"ping,omitempty"`
	Pos  *[3]float64 `json:"pos,omitempty"`
}

type EntityInfo struct {
	ID       int        `json:"id"`
	Kind     string     `json:"kind"`
	Name     string     `json:"name,omitempty"`
	Pos      [3]float64 `json:"pos"`
	Distance float64    `json:"distance,omitempty"`
}

type WeatherInfo struct {
	Raining    bool `json:"raining"`
	Thundering bool `json:"thundering"`
}

// EVENT (server -> client) signals lifecycle transitions.
type EventMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Name            string `json:"name"`
	Reason          string `json:"reason,omitempty"`
	Text            string `json:"text,omitempty"`
}

const (
	EventSpawn  = "spawn"
	EventEnd    = "end"
	EventKicked = "kicked"
	EventDeath  = "death"
	EventChat   = "chat"
	EventError  = "error"
)

// COMMAND (client -> server). Params shape depends on Op; results are
// correlated back by ID.
type CommandMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	ID              string          `json:"id"`
	Op              string          `json:"op"`
	Params          json.RawMessage `json:"params,omitempty"`
}

const (
	OpSay          = "SAY"
	OpMoveTo       = "MOVE_TO"
	OpDig          = "DIG"
	OpPlace        = "PLACE"
	OpBlockAt      = "BLOCK_AT"
	OpBlocksNearby = "BLOCKS_NEARBY"
	OpFindBlocks   = "FIND_BLOCKS"
	OpFindEntities = "FIND_ENTITIES"
	OpCheckPath    = "CHECK_PATH"
	OpFollow       = "FOLLOW"
	OpAttack       = "ATTACK"
	OpCraft        = "CRAFT"
	OpSmelt        = "SMELT"
	OpEquip        = "EQUIP"
	OpDeposit      = "DEPOSIT"
	OpWithdraw     = "WITHDRAW"
)

// RESULT (server -> client).
type ResultMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	ID              string          `json:"id"`
	OK              bool            `json:"ok"`
	Code            string          `json:"code,omitempty"`
	Message         string          `json:"message,omitempty"`
	Data            json.RawMessage `json:"data,omitempty"`
}
