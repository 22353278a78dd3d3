package world

import (
	"testing"

	"github.com/annel0/oreforged/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeTarget(t *testing.T) {
	tests := []struct {
		mult float64
		want int
	}{
		{0, 0},
		{0.5, 2},
		{1, 4},
		{2, 7},
		{3, 10},
		{4, 12},
		{10, 24},
		{50, 24},
		{-1, 0},
	}
	for _, tt := range tests {
		if got := TreeTarget(tt.mult); got != tt.want {
			t.Errorf("TreeTarget(%v) = %d, ожидалось %d", tt.mult, got, tt.want)
		}
	}
}

func TestOreChance(t *testing.T) {
	assert.InDelta(t, 0.05, OreChance(block.Coal, 1), 1e-9)
	assert.InDelta(t, 0.004, OreChance(block.Diamond, 1), 1e-9)
	assert.InDelta(t, 0.05, OreChance(block.Diamond, 10), 1e-9, "алмазы ограничены сверху")
	assert.InDelta(t, 0.30, OreChance(block.Coal, 100), 1e-9)
	assert.Zero(t, OreChance(block.Stone, 1))
	assert.Greater(t, OreChance(block.Gold, 2), OreChance(block.Gold, 1))
}

func TestPickOreBands(t *testing.T) {
	assert.Equal(t, block.Diamond, pickOre(0.001, 1))
	assert.Equal(t, block.Gold, pickOre(0.004+0.005, 1))
	assert.Equal(t, block.Coal, pickOre(0.004+0.01+0.025+0.035+0.01, 1))
	assert.Equal(t, block.Air, pickOre(0.5, 1))
}

func TestPlaceTreeShape(t *testing.T) {
	c := NewChunk(0, 0, 8, 16)
	for z := 0; z < 8; z++ {
		for x := 0; x < 8; x++ {
			c.SetBlock(x, 4, z, block.Grass)
		}
	}

	assert.True(t, placeTree(c, 4, 4, 4, 3))

	for y := 5; y <= 7; y++ {
		assert.Equal(t, block.Wood, c.GetBlock(4, y, 4))
	}
	// Кольцо вокруг верхушки ствола
	assert.Equal(t, block.Leaves, c.GetBlock(3, 7, 4))
	assert.Equal(t, block.Leaves, c.GetBlock(5, 7, 5))
	// Полный слой над стволом
	assert.Equal(t, block.Leaves, c.GetBlock(4, 8, 4))
	assert.Equal(t, block.Leaves, c.GetBlock(3, 8, 3))
	// Верхушка
	assert.Equal(t, block.Leaves, c.GetBlock(4, 9, 4))
	assert.Equal(t, block.Air, c.GetBlock(3, 9, 4))

	// Ствол упирается в существующее дерево
	assert.False(t, placeTree(c, 4, 4, 4, 2))
}

func TestPlaceTreeRespectsCeiling(t *testing.T) {
	c := NewChunk(0, 0, 8, 10)
	c.SetBlock(2, 5, 2, block.Grass)

	// 5 + 3 + 2 = 10 не помещается
	assert.False(t, placeTree(c, 2, 5, 2, 3))
	assert.Equal(t, block.Air, c.GetBlock(2, 6, 2))
	assert.True(t, placeTree(c, 2, 5, 2, 2))
}

func TestLeavesOnlyReplaceAir(t *testing.T) {
	c := NewChunk(0, 0, 8, 16)
	c.SetBlock(3, 6, 4, block.Stone)

	assert.True(t, placeTree(c, 4, 3, 4, 3))
	assert.Equal(t, block.Stone, c.GetBlock(3, 6, 4))
}

func TestChunkSeedAndRNG(t *testing.T) {
	assert.Equal(t, ChunkSeed(1, 2, 3), ChunkSeed(1, 2, 3))
	assert.NotEqual(t, ChunkSeed(1, 2, 3), ChunkSeed(1, 3, 2))
	assert.NotEqual(t, ChunkSeed(1, 0, 0), ChunkSeed(2, 0, 0))

	a := newChunkRNG(ChunkSeed(7, -1, 4), saltOres)
	b := newChunkRNG(ChunkSeed(7, -1, 4), saltOres)
	for i := 0; i < 100; i++ {
		n := a.Intn(32)
		assert.Equal(t, n, b.Intn(32))
		assert.True(t, n >= 0 && n < 32)

		f := a.Float64()
		assert.Equal(t, f, b.Float64())
		assert.True(t, f >= 0 && f < 1)
	}
}

func TestTrunkBoost(t *testing.T) {
	tests := []struct {
		attempt int
		want    int
	}{
		{0, 0}, {9, 0}, {10, 1}, {19, 1}, {20, 2}, {29, 2}, {30, 3}, {49, 3},
	}
	for _, tt := range tests {
		if got := trunkBoost(tt.attempt); got != tt.want {
			t.Errorf("trunkBoost(%d) = %d, ожидалось %d", tt.attempt, got, tt.want)
		}
	}
}

func TestTreeGuaranteeBoostsTrunkAfterFailures(t *testing.T) {
	const (
		seed uint32 = 4242
		size        = 4
	)

	// Повторяем последовательность попыток: x, z, ствол
	type try struct{ x, z, trunk int }
	rng := newChunkRNG(ChunkSeed(seed, 0, 0), saltTrees)
	tries := make([]try, maxTreeAttempts)
	for i := range tries {
		tries[i] = try{x: rng.Intn(size), z: rng.Intn(size), trunk: 2 + rng.Intn(3)}
	}

	// Трава только в клетке, впервые выпавшей не раньше десятой попытки
	seen := make(map[[2]int]bool)
	target := -1
	for i, tr := range tries {
		cell := [2]int{tr.x, tr.z}
		if i >= trunkBoostInterval && !seen[cell] {
			target = i
			break
		}
		seen[cell] = true
	}
	require.GreaterOrEqual(t, target, trunkBoostInterval, "нет подходящей клетки")
	tx, tz := tries[target].x, tries[target].z

	chunk := NewChunk(0, 0, size, 40)
	heights := newHeightMap(size)
	for z := -1; z <= size; z++ {
		for x := -1; x <= size; x++ {
			heights.set(x, z, SeaLevel-1)
		}
	}
	h := SeaLevel + 1
	heights.set(tx, tz, h)
	chunk.SetBlock(tx, h, tz, block.Grass)

	stats := newGenerationStats()
	NewTreePlacer(seed, 0.25).guarantee(chunk, heights, &stats)

	require.Equal(t, 1, stats.TreeTarget)
	require.Equal(t, 1, stats.GuaranteedTrees)

	trunk := 0
	for y := h + 1; chunk.GetBlock(tx, y, tz) == block.Wood; y++ {
		trunk++
	}
	assert.Equal(t, tries[target].trunk+trunkBoost(target), trunk)
	assert.Greater(t, trunk, tries[target].trunk, "ствол должен удлиниться")
}
