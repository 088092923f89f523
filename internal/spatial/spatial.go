// Package spatial holds the agent-frame to world-frame coordinate math and
// the block-box enumeration used by area operations. Everything here is pure.
package spatial

import "math"

// Vec3 is an absolute world position. Continuous; movement targets keep the
// fractional part, block operations floor it (see Floor).
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// BlockPos is an integer block coordinate.
type BlockPos struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Offset is a displacement in the agent's own frame:
// DX right(+)/left(-), DY up(+)/down(-), DZ forward(+)/back(-).
type Offset struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
	DZ float64 `json:"dz"`
}

// ToAbsolute converts an agent-relative offset into an absolute world
// position by rotating the horizontal plane by heading (radians) around the
// origin. At heading 0 the result is exactly origin + (dx, dy, dz).
func ToAbsolute(origin Vec3, heading float64, off Offset) Vec3 {
	sin, cos := math.Sin(heading), math.Cos(heading)
	return Vec3{
		X: origin.X + off.DX*cos - off.DZ*sin,
		Y: origin.Y + off.DY,
		Z: origin.Z + off.DX*sin + off.DZ*cos,
	}
}

// Floor truncates toward negative infinity on each axis, yielding the block
// containing the position.
func (v Vec3) Floor() BlockPos {
	return BlockPos{
		X: int(math.Floor(v.X)),
		Y: int(math.Floor(v.Y)),
		Z: int(math.Floor(v.Z)),
	}
}

func (v Vec3) DistanceTo(o Vec3) float64 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Center is the middle of the block, the point dig/place operations aim at.
func (b BlockPos) Center() Vec3 {
	return Vec3{X: float64(b.X) + 0.5, Y: float64(b.Y) + 0.5, Z: float64(b.Z) + 0.5}
}

func (b BlockPos) Vec3() Vec3 {
	return Vec3{X: float64(b.X), Y: float64(b.Y), Z: float64(b.Z)}
}

// Box is an axis-aligned, inclusive block region with Min <= Max per axis.
type Box struct {
	Min BlockPos
	Max BlockPos
}

// NewBox normalizes two arbitrary corners into a Box.
func NewBox(a, b BlockPos) Box {
	return Box{
		Min: BlockPos{X: min(a.X, b.X), Y: min(a.Y, b.Y), Z: min(a.Z, b.Z)},
		Max: BlockPos{X: max(a.X, b.X), Y: max(a.Y, b.Y), Z: max(a.Z, b.Z)},
	}
}

// Count is the number of blocks inside the box.
func (b Box) Count() int {
	return (b.Max.X - b.Min.X + 1) * (b.Max.Y - b.Min.Y + 1) * (b.Max.Z - b.Min.Z + 1)
}

// SweepTopDown enumerates every block position in the box in descending Y,
// then row-major X/Z. Digging in this order keeps gravity-affected blocks
// from collapsing into columns that were dug below them first.
func (b Box) SweepTopDown() []BlockPos {
	out := make([]BlockPos, 0, b.Count())
	for y := b.Max.Y; y >= b.Min.Y; y-- {
		for x := b.Min.X; x <= b.Max.X; x++ {
			for z := b.Min.Z; z <= b.Max.Z; z++ {
				out = append(out, BlockPos{X: x, Y: y, Z: z})
			}
		}
	}
	return out
}
