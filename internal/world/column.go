package world

import (
	"math"

	"github.com/annel0/oreforged/internal/util"
	"github.com/annel0/oreforged/internal/world/block"
)

const (
	tallWorldHeight     = 40   // С этой высоты чанка появляются каменные выходы
	rockExposureMinLift = 6    // Каменная поверхность только выше SeaLevel+6
	rockExposureChance  = 0.93 // Порог шума для каменной поверхности
	looseStoneBase      = 0.01
	looseStoneMax       = 0.05
)

// ColumnBuilder заполняет вертикальные столбцы чанка слоями блоков
type ColumnBuilder struct {
	seed    uint32
	oreMult float64
}

// NewColumnBuilder создаёт построитель столбцов
func NewColumnBuilder(seed uint32, oreMult float64) *ColumnBuilder {
	return &ColumnBuilder{seed: seed, oreMult: oreMult}
}

// IsBeach проверяет, должен ли столбец быть песчаным пляжем.
// neighbor возвращает высоту соседнего столбца по смещению.
func IsBeach(height int, neighbor func(dx, dz int) int) bool {
	if height < SeaLevel-1 || height > SeaLevel+1 {
		return false
	}

	for dx := -1; dx <= 1; dx++ {
		for dz := -1; dz <= 1; dz++ {
			if dx == 0 && dz == 0 {
				continue
			}
			if neighbor(dx, dz) <= SeaLevel {
				return true
			}
		}
	}
	return false
}

// SurfaceType выбирает блок поверхности столбца
func (cb *ColumnBuilder) SurfaceType(worldX, worldZ, height, chunkHeight int, isSand bool) block.ID {
	if height <= SeaLevel || isSand {
		return block.Sand
	}
	if chunkHeight >= tallWorldHeight && height >= SeaLevel+rockExposureMinLift &&
		util.Noise2D(worldX, worldZ, cb.seed+seedRock) > rockExposureChance {
		return block.Stone
	}
	return block.Grass
}

// BuildColumn заполняет столбец (x, z) чанка снизу вверх:
// бедрок, камень, земля, поверхность, вода до уровня моря.
func (cb *ColumnBuilder) BuildColumn(c *Chunk, x, z, height int, isSand bool) {
	worldX := c.chunkX*c.size + x
	worldZ := c.chunkZ*c.size + z

	c.SetBlock(x, 0, z, block.Bedrock)

	for y := 1; y < height-1; y++ {
		c.SetBlock(x, y, z, block.Stone)
	}

	if height > 1 {
		c.SetBlock(x, height-1, z, block.Dirt)
	}

	c.SetBlock(x, height, z, cb.SurfaceType(worldX, worldZ, height, c.height, isSand))

	// Затопленные столбцы
	for y := height + 1; y <= SeaLevel; y++ {
		c.SetBlock(x, y, z, block.Water)
	}
}

// PlaceLooseStone ставит одиночный камень на открытую траву.
// Возвращает true, если камень был поставлен.
func (cb *ColumnBuilder) PlaceLooseStone(c *Chunk, x, z, height int) bool {
	if c.GetBlock(x, height, z) != block.Grass || height+1 >= c.height {
		return false
	}
	if c.GetBlock(x, height+1, z) != block.Air {
		return false
	}

	chance := math.Min(looseStoneMax, looseStoneBase*cb.oreMult)
	worldX := c.chunkX*c.size + x
	worldZ := c.chunkZ*c.size + z
	if util.Noise2D(worldX, worldZ, cb.seed+seedLooseRock) >= chance {
		return false
	}

	c.SetBlock(x, height+1, z, block.Stone)
	return true
}
