package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"minebridge.ai/internal/gameproto"
	"minebridge.ai/internal/spatial"
)

type fakeCommander struct {
	closed bool
	state  gameproto.StateMsg

	lastOp     string
	lastParams any
	result     json.RawMessage
	err        error
}

func (f *fakeCommander) Do(_ context.Context, op string, params any) (json.RawMessage, error) {
	f.lastOp = op
	f.lastParams = params
	return f.result, f.err
}
func (f *fakeCommander) State() gameproto.StateMsg { return f.state }
func (f *fakeCommander) Closed() bool              { return f.closed }
func (f *fakeCommander) Close() error              { f.closed = true; return nil }

func liveState() gameproto.StateMsg {
	return gameproto.StateMsg{
		Tick:   42,
		Pos:    [3]float64{10.5, 64, -3.2},
		Yaw:    1.57,
		Health: 18,
		Food:   20,
		Inventory: []gameproto.ItemStack{
			{Name: "stone_pickaxe", Count: 1, Slot: 0},
			{Name: "cobblestone", Count: 37, Slot: 1},
		},
	}
}

func TestBot_StateGetters(t *testing.T) {
	fc := &fakeCommander{state: liveState()}
	b := newBotWith(fc)
	ctx := context.Background()

	pos, err := b.Position(ctx)
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if pos != (spatial.Vec3{X: 10.5, Y: 64, Z: -3.2}) {
		t.Fatalf("position: %+v", pos)
	}

	h, err := b.Heading(ctx)
	if err != nil || h != 1.57 {
		t.Fatalf("heading: %v %v", h, err)
	}

	hs, err := b.Health(ctx)
	if err != nil || hs.Status != StatusHealthy {
		t.Fatalf("health: %+v %v", hs, err)
	}

	inv, err := b.Inventory(ctx)
	if err != nil || len(inv) != 2 || inv[1].Count != 37 {
		t.Fatalf("inventory: %+v %v", inv, err)
	}
}

func TestBot_NotConnectedWhenClosed(t *testing.T) {
	fc := &fakeCommander{closed: true, state: liveState()}
	b := newBotWith(fc)
	ctx := context.Background()

	if _, err := b.Position(ctx); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("position: want ErrNotConnected, got %v", err)
	}
	if err := b.Chat(ctx, "hi"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("chat: want ErrNotConnected, got %v", err)
	}
	if err := b.DigBlock(ctx, spatial.BlockPos{}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("dig: want ErrNotConnected, got %v", err)
	}
}

func TestBot_NotConnectedBeforeFirstState(t *testing.T) {
	b := newBotWith(&fakeCommander{})
	if _, err := b.Position(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("want ErrNotConnected, got %v", err)
	}
}

func TestBot_CommandErrorBecomesActionError(t *testing.T) {
	fc := &fakeCommander{
		state: liveState(),
		err:   &gameproto.CommandError{Code: gameproto.ErrNoItem, Message: "no oak_planks in inventory"},
	}
	b := newBotWith(fc)

	err := b.CraftItem(context.Background(), "oak_planks", 4)
	var ae *ActionError
	if !errors.As(err, &ae) {
		t.Fatalf("want ActionError, got %v", err)
	}
	if ae.Code != gameproto.ErrNoItem {
		t.Fatalf("code: %s", ae.Code)
	}
	if fc.lastOp != gameproto.OpCraft {
		t.Fatalf("op: %s", fc.lastOp)
	}
}

func TestBot_ClosedConnBecomesNotConnected(t *testing.T) {
	fc := &fakeCommander{state: liveState(), err: gameproto.ErrClosed}
	b := newBotWith(fc)

	err := b.NavigateTo(context.Background(), spatial.Vec3{X: 1})
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("want ErrNotConnected, got %v", err)
	}
}

func TestBot_FindBlocksParsesPositions(t *testing.T) {
	fc := &fakeCommander{
		state:  liveState(),
		result: json.RawMessage(`{"positions":[[1,64,2],[3,63,-4]]}`),
	}
	b := newBotWith(fc)

	got, err := b.FindBlocks(context.Background(), "iron_ore", 32, 2)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	want := []spatial.BlockPos{{X: 1, Y: 64, Z: 2}, {X: 3, Y: 63, Z: -4}}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("positions: %+v", got)
	}
}

func TestBot_NearbyBlocksDecodesCompressedSnapshot(t *testing.T) {
	raw, err := gameproto.EncodeBlockSnapshot([]gameproto.BlockWire{
		{Name: "dirt", Pos: [3]int{0, 63, 0}, Diggable: true},
	}, true)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	fc := &fakeCommander{state: liveState(), result: raw}
	b := newBotWith(fc)

	blocks, err := b.NearbyBlocks(context.Background(), 16)
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Name != "dirt" || blocks[0].Pos != (spatial.BlockPos{Y: 63}) {
		t.Fatalf("blocks: %+v", blocks)
	}
}

func TestBlockInfo_IsAir(t *testing.T) {
	if !(BlockInfo{Name: "air"}).IsAir() || !(BlockInfo{Name: "cave_air"}).IsAir() {
		t.Fatalf("air variants must count as air")
	}
	if (BlockInfo{Name: "stone"}).IsAir() {
		t.Fatalf("stone is not air")
	}
}
