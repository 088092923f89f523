package agent

import "minebridge.ai/internal/spatial"

type HealthStatus struct {
	Health float64 `json:"health"`
	Food   float64 `json:"food"`
	Status string  `json:"status"`
}

const (
	StatusHealthy  = "healthy"
	StatusHurt     = "hurt"
	StatusCritical = "critical"
)

// Classify buckets raw health (0..20) into the coarse status the health
// resource reports.
func Classify(health float64) string {
	switch {
	case health <= 6:
		return StatusCritical
	case health < 15:
		return StatusHurt
	default:
		return StatusHealthy
	}
}

type ItemStack struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Slot  int    `json:"slot"`
}

type Player struct {
	Name string        `json:"name"`
	Ping int           `json:"ping,omitempty"`
	Pos  *spatial.Vec3 `json:"pos,omitempty"`
}

type Weather struct {
	Raining    bool `json:"raining"`
	Thundering bool `json:"thundering"`
}

type BlockInfo struct {
	Name     string           `json:"name"`
	Pos      spatial.BlockPos `json:"pos"`
	Diggable bool             `json:"diggable"`
	Hardness float64          `json:"hardness,omitempty"`
}

// IsAir reports whether the position holds nothing to dig.
func (b BlockInfo) IsAir() bool {
	switch b.Name {
	case "", "air", "cave_air", "void_air":
		return true
	default:
		return false
	}
}

type Entity struct {
	ID       int          `json:"id"`
	Kind     string       `json:"kind"`
	Name     string       `json:"name,omitempty"`
	Pos      spatial.Vec3 `json:"pos"`
	Distance float64      `json:"distance,omitempty"`
}

type PathReport struct {
	Reachable bool    `json:"reachable"`
	Length    int     `json:"length"`
	Cost      float64 `json:"cost,omitempty"`
}
