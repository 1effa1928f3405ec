// Package arena describes the static stage geometry shared by the server and
// clients: platforms, horizontal bounds and spawn points.
// It has no dependencies so client-side collision prediction can import it.
package arena

import "math"

// Scene dimensions in scene coordinates.
const (
	SceneWidth  = 1000.0
	SceneHeight = 1000.0
)

// Horizontal play area. Players can never stand outside it.
const (
	MinX = 50.0
	MaxX = 950.0
)

// SpawnY is the ground line both players spawn on.
const SpawnY = 580.0

// Platform is an immutable axis-aligned rectangle in scene coordinates.
type Platform struct {
	X      float64 `msgpack:"x"`
	Y      float64 `msgpack:"y"`
	Width  float64 `msgpack:"width"`
	Height float64 `msgpack:"height"`
}

// Layout is the ordered, read-only set of platforms for a match.
type Layout struct {
	platforms []Platform
}

// DefaultLayout builds the stage: one wide low platform and two smaller
// elevated ones, staggered left and right of center.
func DefaultLayout() Layout {
	const (
		wideWidth  = 600.0
		smallWidth = 100.0
		height     = 20.0
	)

	return Layout{platforms: []Platform{
		{X: (SceneWidth - wideWidth) / 2, Y: 600, Width: wideWidth, Height: height},
		{X: math.Floor((SceneWidth - smallWidth) / 2.25), Y: 300, Width: smallWidth, Height: height},
		{X: math.Floor((SceneWidth - smallWidth) / 1.75), Y: 450, Width: smallWidth, Height: height},
	}}
}

// Platforms returns a copy of the platforms in layout order.
func (l Layout) Platforms() []Platform {
	out := make([]Platform, len(l.platforms))
	copy(out, l.platforms)
	return out
}

// Spawn returns the spawn point and initial facing for a player number.
// Player 1 starts on the left facing left, player 2 on the right facing right.
func Spawn(playerNum int) (x, y float64, facingRight bool) {
	if playerNum == 1 {
		return 300, SpawnY, false
	}
	return 700, SpawnY, true
}

// ClampX restricts x to the horizontal play area.
func ClampX(x float64) float64 {
	return clampF(x, MinX, MaxX)
}

// ClampY restricts y to the scene.
func ClampY(y float64) float64 {
	return clampF(y, 0, SceneHeight)
}

func clampF(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
