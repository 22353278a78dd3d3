package world

import (
	"math"

	"github.com/annel0/oreforged/internal/logging"
	"github.com/annel0/oreforged/internal/util"
	"github.com/annel0/oreforged/internal/world/block"
)

const (
	maxOreAttempts     = 20   // Попыток на каждую недостающую единицу руды
	diamondBonusChance = 0.30 // Шанс гарантированного алмаза, если естественных нет
)

// oreBand описывает вероятность появления руды на клетке травы
type oreBand struct {
	ore      block.ID
	base     float64 // базовая частота при oreMult = 1
	exponent float64 // редкие руды растут быстрее
	max      float64
}

// Полосы проверяются по убыванию редкости
var oreBands = []oreBand{
	{block.Diamond, 0.004, 2.0, 0.05},
	{block.Gold, 0.01, 1.7, 0.10},
	{block.Iron, 0.025, 1.4, 0.20},
	{block.Bronze, 0.035, 1.2, 0.25},
	{block.Coal, 0.05, 1.1, 0.30},
}

// oreMinimum минимальное количество руды на чанк
type oreMinimum struct {
	ore   block.ID
	count int
}

// OreMinimums гарантируемые минимумы руд на чанк
var OreMinimums = []oreMinimum{
	{block.Coal, 1},
	{block.Bronze, 2},
	{block.Iron, 2},
	{block.Gold, 1},
}

// OreChance возвращает ширину полосы вероятности руды для множителя
func OreChance(ore block.ID, oreMult float64) float64 {
	for _, band := range oreBands {
		if band.ore == ore {
			return math.Min(band.max, band.base*math.Pow(math.Max(0, oreMult), band.exponent))
		}
	}
	return 0
}

// pickOre выбирает руду по одному значению шума
func pickOre(sample, oreMult float64) block.ID {
	threshold := 0.0
	for _, band := range oreBands {
		threshold += OreChance(band.ore, oreMult)
		if sample < threshold {
			return band.ore
		}
	}
	return block.Air
}

// OrePlacer размещает руды на поверхности травы
type OrePlacer struct {
	seed    uint32
	oreMult float64
}

// NewOrePlacer создаёт размещатель руд
func NewOrePlacer(seed uint32, oreMult float64) *OrePlacer {
	return &OrePlacer{seed: seed, oreMult: oreMult}
}

// Place выполняет естественный проход и проход гарантии.
// Результаты записываются в stats.
func (op *OrePlacer) Place(c *Chunk, heights *heightMap, stats *GenerationStats) {
	// Естественный проход: одна руда максимум на клетку
	for z := 0; z < c.size; z++ {
		for x := 0; x < c.size; x++ {
			h := heights.at(x, z)
			if !isOpenGrass(c, x, h, z) {
				continue
			}

			worldX := c.chunkX*c.size + x
			worldZ := c.chunkZ*c.size + z
			ore := pickOre(util.Noise2D(worldX, worldZ, op.seed+seedOres), op.oreMult)
			if ore == block.Air {
				continue
			}

			c.SetBlock(x, h+1, z, ore)
			stats.Ores[ore]++
		}
	}

	rng := newChunkRNG(ChunkSeed(op.seed, c.chunkX, c.chunkZ), saltOres)

	// Проход гарантии
	for _, min := range OreMinimums {
		for stats.Ores[min.ore] < min.count {
			if !op.placeAtRandomLand(c, heights, rng, min.ore) {
				missing := min.count - stats.Ores[min.ore]
				stats.UnfilledOres[min.ore] += missing
				guaranteeUnfilled.WithLabelValues(min.ore.String()).Add(float64(missing))
				// Для чанков открытого океана недобор ожидаем
				if heights.hasLand() {
					logging.Warn("Chunk(%d,%d): guarantee for %s left %d unfilled", c.chunkX, c.chunkZ, min.ore, missing)
				} else {
					logging.Debug("Chunk(%d,%d): no land, guarantee for %s left %d unfilled", c.chunkX, c.chunkZ, min.ore, missing)
				}
				break
			}
			stats.Ores[min.ore]++
			stats.GuaranteedOres[min.ore]++
		}
	}

	if stats.Ores[block.Diamond] == 0 && rng.Float64() < diamondBonusChance {
		if op.placeAtRandomLand(c, heights, rng, block.Diamond) {
			stats.Ores[block.Diamond]++
			stats.GuaranteedOres[block.Diamond]++
		} else {
			logging.Debug("Chunk(%d,%d): bonus diamond not placed", c.chunkX, c.chunkZ)
		}
	}

	for ore, n := range stats.Ores {
		decorationsPlaced.WithLabelValues(ore.String()).Add(float64(n))
	}
}

// placeAtRandomLand пытается поставить руду на случайную клетку суши
func (op *OrePlacer) placeAtRandomLand(c *Chunk, heights *heightMap, rng *chunkRNG, ore block.ID) bool {
	for attempt := 0; attempt < maxOreAttempts; attempt++ {
		x := rng.Intn(c.size)
		z := rng.Intn(c.size)
		h := heights.at(x, z)
		if h < SeaLevel || !isOpenGrass(c, x, h, z) {
			continue
		}
		c.SetBlock(x, h+1, z, ore)
		return true
	}
	return false
}

// isOpenGrass проверяет, что на высоте h лежит трава, а над ней воздух внутри чанка
func isOpenGrass(c *Chunk, x, h, z int) bool {
	if h+1 >= c.height {
		return false
	}
	return c.GetBlock(x, h, z) == block.Grass && c.GetBlock(x, h+1, z) == block.Air
}
