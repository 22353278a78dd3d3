package world

import (
	"bytes"
	"testing"

	"github.com/annel0/oreforged/internal/logging"
	"github.com/annel0/oreforged/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkCreateAndGetBlock(t *testing.T) {
	chunk := NewChunk(5, -3, 16, 24)

	pos := chunk.Position()
	if pos.X != 5 || pos.Z != -3 {
		t.Errorf("Ожидались координаты {5,-3}, получено {%d,%d}", pos.X, pos.Z)
	}
	if chunk.Size() != 16 || chunk.Height() != 24 {
		t.Errorf("Ожидался размер 16x24, получено %dx%d", chunk.Size(), chunk.Height())
	}

	// Новый чанк заполнен воздухом
	if id := chunk.GetBlock(3, 4, 5); id != block.Air {
		t.Errorf("Ожидался Air, получен %s", id)
	}

	chunk.SetBlock(3, 4, 5, block.Stone)
	if id := chunk.GetBlock(3, 4, 5); id != block.Stone {
		t.Errorf("Ожидался Stone, получен %s", id)
	}
	if !chunk.IsDirty() {
		t.Error("Чанк должен стать грязным после записи")
	}
}

func TestChunkBoundsAreSafe(t *testing.T) {
	chunk := NewChunk(0, 0, 8, 8)

	outside := [][3]int{
		{-1, 0, 0}, {0, -1, 0}, {0, 0, -1},
		{8, 0, 0}, {0, 8, 0}, {0, 0, 8},
		{100, 100, 100},
	}
	for _, p := range outside {
		assert.NotPanics(t, func() { chunk.SetBlock(p[0], p[1], p[2], block.Gold) })
		assert.Equal(t, block.Air, chunk.GetBlock(p[0], p[1], p[2]))
	}

	assert.False(t, chunk.IsDirty(), "запись за пределами не должна менять чанк")
	assert.Equal(t, 8*8*8, chunk.CountBlocks()[block.Air])
}

func TestChunkGenerateIsDeterministic(t *testing.T) {
	a := NewChunk(1, -2, 16, 32)
	b := NewChunk(1, -2, 16, 32)

	statsA := a.Generate(777, 1.5, 2.0, 0.8)
	statsB := b.Generate(777, 1.5, 2.0, 0.8)

	assert.Equal(t, a.Serialize(), b.Serialize())
	assert.Equal(t, statsA, statsB)
}

func TestChunkDifferentSeedsDiffer(t *testing.T) {
	a := NewChunk(0, 0, 32, 32)
	b := NewChunk(0, 0, 32, 32)
	a.Generate(1, 1, 1, 1)
	b.Generate(2, 1, 1, 1)

	assert.NotEqual(t, a.Serialize().Blocks, b.Serialize().Blocks)
}

func TestChunkColumnInvariant(t *testing.T) {
	cases := []struct {
		name string
		pos  ChunkPos
		seed uint32
		cfg  WorldConfig
	}{
		{"default", ChunkPos{X: 0, Z: 0}, DefaultSeed, WorldConfig{Size: 32, Height: 32, OreMult: 1, TreeMult: 1, IslandFactor: 1}},
		{"small_island", ChunkPos{X: 0, Z: 0}, 42, WorldConfig{Size: 16, Height: 24, OreMult: 1, TreeMult: 2, IslandFactor: 0.5}},
		{"negative_chunk", ChunkPos{X: -1, Z: -1}, 7, WorldConfig{Size: 16, Height: 32, OreMult: 2, TreeMult: 1, IslandFactor: 1}},
		{"tall_world", ChunkPos{X: 0, Z: 0}, 99, WorldConfig{Size: 32, Height: 48, OreMult: 3, TreeMult: 1, IslandFactor: 1.5}},
		{"tall_edge", ChunkPos{X: 1, Z: 0}, 2024, WorldConfig{Size: 32, Height: 64, OreMult: 1, TreeMult: 3, IslandFactor: 2}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chunk := NewChunk(tc.pos.X, tc.pos.Z, tc.cfg.Size, tc.cfg.Height)
			hf := NewHeightField(tc.seed, tc.cfg)
			chunk.generate(tc.seed, tc.cfg, hf)

			for z := 0; z < chunk.Size(); z++ {
				for x := 0; x < chunk.Size(); x++ {
					expected := hf.ClampedHeight(tc.pos.X*tc.cfg.Size+x, tc.pos.Z*tc.cfg.Size+z)
					checkColumn(t, chunk, x, z, expected)
				}
			}
		})
	}
}

// checkColumn проходит столбец снизу вверх: бедрок, камень, земля,
// поверхность, вода до уровня моря, выше только декорации и воздух.
func checkColumn(t *testing.T, c *Chunk, x, z, height int) {
	t.Helper()

	require.Equal(t, block.Bedrock, c.GetBlock(x, 0, z), "бедрок в (%d,%d)", x, z)

	y := 1
	for y < height-1 {
		require.Equal(t, block.Stone, c.GetBlock(x, y, z), "камень в (%d,%d,%d)", x, y, z)
		y++
	}
	require.Equal(t, block.Dirt, c.GetBlock(x, height-1, z), "земля в (%d,%d,%d)", x, height-1, z)

	surface := c.GetBlock(x, height, z)
	switch surface {
	case block.Grass, block.Sand:
	case block.Stone:
		require.GreaterOrEqual(t, c.Height(), tallWorldHeight, "каменная поверхность в низком мире (%d,%d)", x, z)
		require.GreaterOrEqual(t, height, SeaLevel+rockExposureMinLift, "каменная поверхность слишком низко (%d,%d)", x, z)
	default:
		t.Fatalf("недопустимая поверхность %s в (%d,%d,%d)", surface, x, height, z)
	}
	if height <= SeaLevel {
		require.Equal(t, block.Sand, surface, "затопленный столбец должен быть песком (%d,%d)", x, z)
	}

	for y = height + 1; y <= SeaLevel; y++ {
		require.Equal(t, block.Water, c.GetBlock(x, y, z), "вода в (%d,%d,%d)", x, y, z)
	}

	for y = max(height, SeaLevel) + 1; y < c.Height(); y++ {
		id := c.GetBlock(x, y, z)
		switch {
		case id == block.Air, id == block.Wood, id == block.Leaves:
		case id == block.Stone || id.IsOre():
			// Одиночный камень и руда лежат только прямо на траве
			require.Equal(t, height+1, y, "декорация %s не на поверхности (%d,%d,%d)", id, x, y, z)
			require.Equal(t, block.Grass, surface, "декорация %s не на траве (%d,%d)", id, x, z)
		default:
			t.Fatalf("недопустимый блок %s над поверхностью в (%d,%d,%d)", id, x, y, z)
		}
	}
}

func TestChunkOreMinimums(t *testing.T) {
	chunk := NewChunk(0, 0, 32, 32)
	stats := chunk.Generate(DefaultSeed, 1, 1, 1)
	counts := chunk.CountBlocks()

	for _, min := range OreMinimums {
		assert.GreaterOrEqual(t, stats.Ores[min.ore], min.count, "минимум для %s", min.ore)
		assert.Equal(t, stats.Ores[min.ore], counts[min.ore], "счётчик %s должен совпадать с блоками", min.ore)
		assert.Zero(t, stats.UnfilledOres[min.ore])
	}
}

func TestChunkTreeTargetOnOrigin(t *testing.T) {
	chunk := NewChunk(0, 0, 32, 32)
	stats := chunk.Generate(DefaultSeed, 1, 1, 1)

	assert.Equal(t, 4, stats.TreeTarget)
	assert.GreaterOrEqual(t, stats.Trees, stats.TreeTarget)
	assert.Zero(t, stats.UnfilledTrees)
	assert.Greater(t, chunk.CountBlocks()[block.Wood], 0)
	assert.Greater(t, chunk.CountBlocks()[block.Leaves], 0)
}

func TestChunkTreeGuaranteeOnlyOnOrigin(t *testing.T) {
	chunk := NewChunk(1, 0, 32, 32)
	stats := chunk.Generate(DefaultSeed, 1, 1, 1)

	assert.Zero(t, stats.TreeTarget)
	assert.Zero(t, stats.GuaranteedTrees)
}

func TestChunkSerializeShape(t *testing.T) {
	chunk := NewChunk(-4, 7, 16, 20)
	chunk.Generate(42, 1, 1, 0.5)

	sc := chunk.Serialize()
	assert.Equal(t, -4, sc.ChunkX)
	assert.Equal(t, 7, sc.ChunkZ)
	assert.Equal(t, 16, sc.Size)
	assert.Equal(t, 20, sc.Height)
	require.Len(t, sc.Blocks, 16*16*20)

	for i, v := range sc.Blocks {
		require.True(t, v >= 0 && v <= int(block.MaxID), "недопустимый блок %d по индексу %d", v, i)
	}

	// Индекс y*size*size + z*size + x
	chunk.SetBlock(3, 5, 2, block.Diamond)
	sc = chunk.Serialize()
	assert.Equal(t, int(block.Diamond), sc.Blocks[5*16*16+2*16+3])
}

func TestDeepOceanChunkIsFlooded(t *testing.T) {
	// Далеко от острова остаётся только дно и вода
	chunk := NewChunk(50, 50, 16, 32)
	stats := chunk.Generate(DefaultSeed, 1, 1, 1)

	for z := 0; z < 16; z++ {
		for x := 0; x < 16; x++ {
			assert.Equal(t, block.Sand, chunk.GetBlock(x, SeaLevel-1, z))
			assert.Equal(t, block.Water, chunk.GetBlock(x, SeaLevel, z))
			assert.Equal(t, block.Air, chunk.GetBlock(x, SeaLevel+1, z))
		}
	}
	assert.Zero(t, stats.Trees)
	assert.Zero(t, stats.TotalOres())
}

func TestOceanChunkLogsShortfallAtDebug(t *testing.T) {
	var buf bytes.Buffer
	prev := logging.SetDefaultLogger(logging.NewWriterLogger("test", &buf, logging.DEBUG))
	defer logging.SetDefaultLogger(prev)

	chunk := NewChunk(50, 50, 16, 32)
	stats := chunk.Generate(DefaultSeed, 1, 1, 1)

	// Недобор учитывается в статистике, но не шумит в WARN
	assert.Equal(t, 1, stats.UnfilledOres[block.Coal])
	assert.Equal(t, 2, stats.UnfilledOres[block.Iron])
	assert.Contains(t, buf.String(), "[DEBUG] [test] Chunk(50,50): no land")
	assert.NotContains(t, buf.String(), "[WARN]")
}

func TestHeightMapHasLand(t *testing.T) {
	hm := newHeightMap(4)
	for z := -1; z <= 4; z++ {
		for x := -1; x <= 4; x++ {
			hm.set(x, z, SeaLevel-1)
		}
	}
	assert.False(t, hm.hasLand())

	// Рамка принадлежит соседям
	hm.set(-1, 2, SeaLevel+3)
	assert.False(t, hm.hasLand())

	hm.set(3, 3, SeaLevel+1)
	assert.True(t, hm.hasLand())
}
