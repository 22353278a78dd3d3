package vec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFloorDivAndMod(t *testing.T) {
	tests := []struct {
		a, b     int
		div, mod int
	}{
		{0, 32, 0, 0},
		{31, 32, 0, 31},
		{32, 32, 1, 0},
		{-1, 32, -1, 31},
		{-32, 32, -1, 0},
		{-33, 32, -2, 31},
		{-64, 16, -4, 0},
	}

	for _, tt := range tests {
		if got := FloorDiv(tt.a, tt.b); got != tt.div {
			t.Errorf("FloorDiv(%d, %d) = %d, ожидалось %d", tt.a, tt.b, got, tt.div)
		}
		if got := FloorMod(tt.a, tt.b); got != tt.mod {
			t.Errorf("FloorMod(%d, %d) = %d, ожидалось %d", tt.a, tt.b, got, tt.mod)
		}
	}
}

func TestChunkRoundTrip(t *testing.T) {
	for x := -70; x <= 70; x += 7 {
		for y := -70; y <= 70; y += 11 {
			p := Vec2{X: x, Y: y}
			chunk := p.ToChunkCoords(16)
			local := p.LocalInChunk(16)
			origin := chunk.ChunkOrigin(16)

			assert.Equal(t, p, Vec2{X: origin.X + local.X, Y: origin.Y + local.Y})
			assert.True(t, local.X >= 0 && local.X < 16)
			assert.True(t, local.Y >= 0 && local.Y < 16)
		}
	}
}

func TestVec2FloatOps(t *testing.T) {
	a := Vec2Float{X: 3, Y: 4}
	assert.Equal(t, 5.0, a.DistanceTo(Vec2Float{}))
	assert.Equal(t, Vec2Float{X: 4, Y: 6}, a.Add(Vec2Float{X: 1, Y: 2}))
	assert.Equal(t, Vec2Float{X: 2, Y: 2}, a.Sub(Vec2Float{X: 1, Y: 2}))

	r := Vec2Float{X: 1, Y: 0}.Rotate(math.Pi / 2)
	assert.InDelta(t, 0, r.X, 1e-9)
	assert.InDelta(t, 1, r.Y, 1e-9)
}
