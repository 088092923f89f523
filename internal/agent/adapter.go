package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"minebridge.ai/internal/gameproto"
	"minebridge.ai/internal/spatial"
)

// commander is the slice of gameproto.Client the adapter needs; tests swap
// in a fake.
type commander interface {
	Do(ctx context.Context, op string, params any) (json.RawMessage, error)
	State() gameproto.StateMsg
	Closed() bool
	Close() error
}

// Bot adapts a live gameproto connection to the Facade contract.
type Bot struct {
	c commander
}

var _ Facade = (*Bot)(nil)

func NewBot(c *gameproto.Client) *Bot {
	return &Bot{c: c}
}

func newBotWith(c commander) *Bot {
	return &Bot{c: c}
}

func (b *Bot) do(ctx context.Context, op string, params any) (json.RawMessage, error) {
	if b.c.Closed() {
		return nil, ErrNotConnected
	}
	data, err := b.c.Do(ctx, op, params)
	if err != nil {
		return nil, mapErr(err)
	}
	return data, nil
}

// state returns the latest snapshot, or ErrNotConnected when the connection
// is down or no snapshot arrived yet.
func (b *Bot) state() (gameproto.StateMsg, error) {
	if b.c.Closed() {
		return gameproto.StateMsg{}, ErrNotConnected
	}
	st := b.c.State()
	if st.Tick == 0 {
		return gameproto.StateMsg{}, ErrNotConnected
	}
	return st, nil
}

func (b *Bot) Chat(ctx context.Context, message string) error {
	_, err := b.do(ctx, gameproto.OpSay, struct {
		Text string `json:"text"`
	}{message})
	return err
}

func (b *Bot) Position(ctx context.Context) (spatial.Vec3, error) {
	st, err := b.state()
	if err != nil {
		return spatial.Vec3{}, err
	}
	return spatial.Vec3{X: st.Pos[0], Y: st.Pos[1], Z: st.Pos[2]}, nil
}

func (b *Bot) Heading(ctx context.Context) (float64, error) {
	st, err := b.state()
	if err != nil {
		return 0, err
	}
	return st.Yaw, nil
}

func (b *Bot) Health(ctx context.Context) (HealthStatus, error) {
	st, err := b.state()
	if err != nil {
		return HealthStatus{}, err
	}
	return HealthStatus{Health: st.Health, Food: st.Food, Status: Classify(st.Health)}, nil
}

func (b *Bot) Inventory(ctx context.Context) ([]ItemStack, error) {
	st, err := b.state()
	if err != nil {
		return nil, err
	}
	out := make([]ItemStack, 0, len(st.Inventory))
	for _, it := range st.Inventory {
		out = append(out, ItemStack{Name: it.Name, Count: it.Count, Slot: it.Slot})
	}
	return out, nil
}

func (b *Bot) Players(ctx context.Context) ([]Player, error) {
	st, err := b.state()
	if err != nil {
		return nil, err
	}
	out := make([]Player, 0, len(st.Players))
	for _, p := range st.Players {
		pl := Player{Name: p.Name, Ping: p.Ping}
		if p.Pos != nil {
			pl.Pos = &spatial.Vec3{X: p.Pos[0], Y: p.Pos[1], Z: p.Pos[2]}
		}
		out = append(out, pl)
	}
	return out, nil
}

func (b *Bot) Weather(ctx context.Context) (Weather, error) {
	st, err := b.state()
	if err != nil {
		return Weather{}, err
	}
	return Weather{Raining: st.Weather.Raining, Thundering: st.Weather.Thundering}, nil
}

func (b *Bot) NavigateTo(ctx context.Context, target spatial.Vec3) error {
	_, err := b.do(ctx, gameproto.OpMoveTo, struct {
		Target [3]float64 `json:"target"`
	}{[3]float64{target.X, target.Y, target.Z}})
	return err
}

func (b *Bot) DigBlock(ctx context.Context, pos spatial.BlockPos) error {
	_, err := b.do(ctx, gameproto.OpDig, struct {
		Pos [3]int `json:"pos"`
	}{[3]int{pos.X, pos.Y, pos.Z}})
	return err
}

func (b *Bot) PlaceBlock(ctx context.Context, pos spatial.BlockPos, block string) error {
	_, err := b.do(ctx, gameproto.OpPlace, struct {
		Pos   [3]int `json:"pos"`
		Block string `json:"block"`
	}{[3]int{pos.X, pos.Y, pos.Z}, block})
	return err
}

func (b *Bot) BlockAt(ctx context.Context, pos spatial.BlockPos) (BlockInfo, error) {
	data, err := b.do(ctx, gameproto.OpBlockAt, struct {
		Pos [3]int `json:"pos"`
	}{[3]int{pos.X, pos.Y, pos.Z}})
	if err != nil {
		return BlockInfo{}, err
	}
	var w gameproto.BlockWire
	if err := json.Unmarshal(data, &w); err != nil {
		return BlockInfo{}, fmt.Errorf("parse BLOCK_AT result: %w", err)
	}
	return blockFromWire(w), nil
}

func (b *Bot) NearbyBlocks(ctx context.Context, radius int) ([]BlockInfo, error) {
	data, err := b.do(ctx, gameproto.OpBlocksNearby, struct {
		Radius int `json:"radius"`
	}{radius})
	if err != nil {
		return nil, err
	}
	wires, err := gameproto.DecodeBlockSnapshot(data)
	if err != nil {
		return nil, err
	}
	out := make([]BlockInfo, 0, len(wires))
	for _, w := range wires {
		out = append(out, blockFromWire(w))
	}
	return out, nil
}

func (b *Bot) FindBlocks(ctx context.Context, name string, maxDistance, count int) ([]spatial.BlockPos, error) {
	data, err := b.do(ctx, gameproto.OpFindBlocks, struct {
		Name        string `json:"name"`
		MaxDistance int    `json:"max_distance"`
		Count       int    `json:"count"`
	}{name, maxDistance, count})
	if err != nil {
		return nil, err
	}
	var res struct {
		Positions [][3]int `json:"positions"`
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("parse FIND_BLOCKS result: %w", err)
	}
	out := make([]spatial.BlockPos, 0, len(res.Positions))
	for _, p := range res.Positions {
		out = append(out, spatial.BlockPos{X: p[0], Y: p[1], Z: p[2]})
	}
	return out, nil
}

func (b *Bot) FindEntities(ctx context.Context, kind string, maxDistance int) ([]Entity, error) {
	data, err := b.do(ctx, gameproto.OpFindEntities, struct {
		Kind        string `json:"kind,omitempty"`
		MaxDistance int    `json:"max_distance"`
	}{kind, maxDistance})
	if err != nil {
		return nil, err
	}
	var res struct {
		Entities []gameproto.EntityInfo `json:"entities"`
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("parse FIND_ENTITIES result: %w", err)
	}
	out := make([]Entity, 0, len(res.Entities))
	for _, e := range res.Entities {
		out = append(out, Entity{
			ID:       e.ID,
			Kind:     e.Kind,
			Name:     e.Name,
			Pos:      spatial.Vec3{X: e.Pos[0], Y: e.Pos[1], Z: e.Pos[2]},
			Distance: e.Distance,
		})
	}
	return out, nil
}

func (b *Bot) CheckPath(ctx context.Context, target spatial.Vec3) (PathReport, error) {
	data, err := b.do(ctx, gameproto.OpCheckPath, struct {
		Target [3]float64 `json:"target"`
	}{[3]float64{target.X, target.Y, target.Z}})
	if err != nil {
		return PathReport{}, err
	}
	var r PathReport
	if err := json.Unmarshal(data, &r); err != nil {
		return PathReport{}, fmt.Errorf("parse CHECK_PATH result: %w", err)
	}
	return r, nil
}

func (b *Bot) FollowPlayer(ctx context.Context, name string, distance float64) error {
	_, err := b.do(ctx, gameproto.OpFollow, struct {
		Player   string  `json:"player"`
		Distance float64 `json:"distance"`
	}{name, distance})
	return err
}

func (b *Bot) AttackEntity(ctx context.Context, name string) error {
	_, err := b.do(ctx, gameproto.OpAttack, struct {
		Target string `json:"target"`
	}{name})
	return err
}

func (b *Bot) CraftItem(ctx context.Context, item string, count int) error {
	_, err := b.do(ctx, gameproto.OpCraft, struct {
		Item  string `json:"item"`
		Count int    `json:"count"`
	}{item, count})
	return err
}

func (b *Bot) SmeltItem(ctx context.Context, item, fuel string, count int) error {
	_, err := b.do(ctx, gameproto.OpSmelt, struct {
		Item  string `json:"item"`
		Fuel  string `json:"fuel,omitempty"`
		Count int    `json:"count"`
	}{item, fuel, count})
	return err
}

func (b *Bot) EquipItem(ctx context.Context, item, destination string) error {
	_, err := b.do(ctx, gameproto.OpEquip, struct {
		Item        string `json:"item"`
		Destination string `json:"destination"`
	}{item, destination})
	return err
}

func (b *Bot) DepositItem(ctx context.Context, item string, count int) error {
	_, err := b.do(ctx, gameproto.OpDeposit, struct {
		Item  string `json:"item"`
		Count int    `json:"count"`
	}{item, count})
	return err
}

func (b *Bot) WithdrawItem(ctx context.Context, item string, count int) error {
	_, err := b.do(ctx, gameproto.OpWithdraw, struct {
		Item  string `json:"item"`
		Count int    `json:"count"`
	}{item, count})
	return err
}

func (b *Bot) Disconnect() error {
	return b.c.Close()
}

func blockFromWire(w gameproto.BlockWire) BlockInfo {
	return BlockInfo{
		Name:     w.Name,
		Pos:      spatial.BlockPos{X: w.Pos[0], Y: w.Pos[1], Z: w.Pos[2]},
		Diggable: w.Diggable,
		Hardness: w.Hardness,
	}
}
