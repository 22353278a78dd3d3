package world

import (
	"time"

	"github.com/annel0/oreforged/internal/logging"
	"github.com/annel0/oreforged/internal/protocol"
	"github.com/annel0/oreforged/internal/vec"
	"github.com/annel0/oreforged/internal/world/block"
)

// Chunk вертикальная колонна блоков размером size x height x size.
// Блоки хранятся плоским срезом с индексом y*size*size + z*size + x.
type Chunk struct {
	chunkX int
	chunkZ int
	size   int
	height int
	blocks []block.ID
	dirty  bool
}

// NewChunk создаёт пустой чанк, заполненный воздухом
func NewChunk(chunkX, chunkZ, size, height int) *Chunk {
	if size < 0 {
		size = 0
	}
	if height < 0 {
		height = 0
	}
	return &Chunk{
		chunkX: chunkX,
		chunkZ: chunkZ,
		size:   size,
		height: height,
		blocks: make([]block.ID, size*size*height),
	}
}

// InBounds проверяет, что локальные координаты лежат внутри чанка
func (c *Chunk) InBounds(x, y, z int) bool {
	return x >= 0 && x < c.size && z >= 0 && z < c.size && y >= 0 && y < c.height
}

func (c *Chunk) index(x, y, z int) int {
	return y*c.size*c.size + z*c.size + x
}

// GetBlock возвращает блок по локальным координатам, Air за пределами чанка
func (c *Chunk) GetBlock(x, y, z int) block.ID {
	if !c.InBounds(x, y, z) {
		return block.Air
	}
	return c.blocks[c.index(x, y, z)]
}

// SetBlock устанавливает блок; запись за пределами чанка игнорируется
func (c *Chunk) SetBlock(x, y, z int, id block.ID) {
	if !c.InBounds(x, y, z) {
		return
	}
	c.blocks[c.index(x, y, z)] = id
	c.dirty = true
}

// Position возвращает координаты чанка на сетке
func (c *Chunk) Position() ChunkPos {
	return ChunkPos{X: c.chunkX, Z: c.chunkZ}
}

// Size возвращает размер чанка по X и Z
func (c *Chunk) Size() int { return c.size }

// Height возвращает высоту чанка
func (c *Chunk) Height() int { return c.height }

// IsDirty сообщает, менялся ли чанк с момента последней отправки
func (c *Chunk) IsDirty() bool { return c.dirty }

func (c *Chunk) SetDirty(dirty bool) { c.dirty = dirty }

// CountBlocks подсчитывает количество блоков каждого типа
func (c *Chunk) CountBlocks() map[block.ID]int {
	counts := make(map[block.ID]int)
	for _, id := range c.blocks {
		counts[id]++
	}
	return counts
}

// Generate заполняет чанк рельефом и декорациями.
// Повторный вызов не очищает чанк.
func (c *Chunk) Generate(seed uint32, oreMult, treeMult, islandFactor float64) GenerationStats {
	cfg := WorldConfig{
		Size:         c.size,
		Height:       c.height,
		OreMult:      oreMult,
		TreeMult:     treeMult,
		IslandFactor: islandFactor,
	}
	return c.generate(seed, cfg, NewHeightField(seed, cfg))
}

func (c *Chunk) generate(seed uint32, cfg WorldConfig, hf *HeightField) GenerationStats {
	start := time.Now()
	stats := newGenerationStats()

	if c.size == 0 || c.height == 0 {
		return stats
	}

	// Высоты с рамкой в один столбец для проверки пляжей
	heights := newHeightMap(c.size)
	origin := vec.Vec2{X: c.chunkX, Y: c.chunkZ}.ChunkOrigin(c.size)
	for z := -1; z <= c.size; z++ {
		for x := -1; x <= c.size; x++ {
			heights.set(x, z, hf.ClampedHeight(origin.X+x, origin.Y+z))
		}
	}

	columns := NewColumnBuilder(seed, cfg.OreMult)
	for z := 0; z < c.size; z++ {
		for x := 0; x < c.size; x++ {
			h := heights.at(x, z)
			isSand := IsBeach(h, func(dx, dz int) int {
				return heights.at(x+dx, z+dz)
			})
			if isSand {
				stats.SandColumns++
			}
			columns.BuildColumn(c, x, z, h, isSand)
		}
	}

	for z := 0; z < c.size; z++ {
		for x := 0; x < c.size; x++ {
			if columns.PlaceLooseStone(c, x, z, heights.at(x, z)) {
				stats.LooseStones++
			}
		}
	}
	decorationsPlaced.WithLabelValues("loose_stone").Add(float64(stats.LooseStones))

	NewOrePlacer(seed, cfg.OreMult).Place(c, heights, &stats)
	NewTreePlacer(seed, cfg.TreeMult).Place(c, heights, &stats)

	c.dirty = true

	elapsed := time.Since(start)
	chunksGenerated.Inc()
	chunkGenerationSeconds.Observe(elapsed.Seconds())
	logging.LogChunkGenerated(c.chunkX, c.chunkZ, seed, elapsed)

	return stats
}

// Serialize возвращает плоское представление чанка для передачи клиенту
func (c *Chunk) Serialize() protocol.SerializedChunk {
	blocks := make([]int, len(c.blocks))
	for i, id := range c.blocks {
		blocks[i] = int(id)
	}
	return protocol.SerializedChunk{
		ChunkX: c.chunkX,
		ChunkZ: c.chunkZ,
		Size:   c.size,
		Height: c.height,
		Blocks: blocks,
	}
}
