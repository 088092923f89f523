// Package agent defines the narrow capability surface the command layer
// drives the game through, and its adapter over the gameproto client. The
// rest of the system depends only on Facade, never on the wire client.
package agent

import (
	"context"

	"minebridge.ai/internal/spatial"
)

// Facade is everything the router and the area engine are allowed to do to
// the live connection. Every method returns ErrNotConnected once the
// underlying connection is down; action methods return *ActionError for
// domain failures that leave the connection healthy.
type Facade interface {
	Chat(ctx context.Context, message string) error

	Position(ctx context.Context) (spatial.Vec3, error)
	Heading(ctx context.Context) (float64, error)
	Health(ctx context.Context) (HealthStatus, error)
	Inventory(ctx context.Context) ([]ItemStack, error)
	Players(ctx context.Context) ([]Player, error)
	Weather(ctx context.Context) (Weather, error)

	NavigateTo(ctx context.Context, target spatial.Vec3) error
	DigBlock(ctx context.Context, pos spatial.BlockPos) error
	PlaceBlock(ctx context.Context, pos spatial.BlockPos, block string) error

	BlockAt(ctx context.Context, pos spatial.BlockPos) (BlockInfo, error)
	NearbyBlocks(ctx context.Context, radius int) ([]BlockInfo, error)
	FindBlocks(ctx context.Context, name string, maxDistance, count int) ([]spatial.BlockPos, error)
	FindEntities(ctx context.Context, kind string, maxDistance int) ([]Entity, error)
	CheckPath(ctx context.Context, target spatial.Vec3) (PathReport, error)

	FollowPlayer(ctx context.Context, name string, distance float64) error
	AttackEntity(ctx context.Context, name string) error

	CraftItem(ctx context.Context, item string, count int) error
	SmeltItem(ctx context.Context, item, fuel string, count int) error
	EquipItem(ctx context.Context, item, destination string) error
	DepositItem(ctx context.Context, item string, count int) error
	WithdrawItem(ctx context.Context, item string, count int) error

	Disconnect() error
}
