package world

import (
	"math"

	"github.com/annel0/oreforged/internal/logging"
	"github.com/annel0/oreforged/internal/util"
	"github.com/annel0/oreforged/internal/world/block"
)

const (
	baseTreeChance     = 0.05
	maxTreeChance      = 0.25
	maxTreeAttempts    = 50 // Попыток на каждое недостающее дерево
	trunkBoostInterval = 10 // После стольких неудач ствол становится выше
	maxTrunkBoost      = 3
	maxTreeTarget      = 24
)

// TreeTarget возвращает целевое количество деревьев домашнего чанка
// для множителя деревьев (кусочно-линейная функция).
func TreeTarget(treeMult float64) int {
	t := math.Max(0, treeMult)
	var target float64
	switch {
	case t <= 1:
		target = 4 * t
	case t <= 3:
		target = 4 + 3*(t-1)
	default:
		target = 10 + 2*(t-3)
	}
	if target > maxTreeTarget {
		target = maxTreeTarget
	}
	return int(math.Floor(target))
}

// trunkHeightFor выбирает высоту ствола 2/3/4 по значению шума
func trunkHeightFor(sample float64) int {
	switch {
	case sample < 1.0/3.0:
		return 2
	case sample < 2.0/3.0:
		return 3
	default:
		return 4
	}
}

// trunkBoost удлиняет ствол на 1 после каждых trunkBoostInterval неудачных попыток
func trunkBoost(attempt int) int {
	return min(attempt/trunkBoostInterval, maxTrunkBoost)
}

// TreePlacer размещает деревья на траве
type TreePlacer struct {
	seed     uint32
	treeMult float64
}

// NewTreePlacer создаёт размещатель деревьев
func NewTreePlacer(seed uint32, treeMult float64) *TreePlacer {
	return &TreePlacer{seed: seed, treeMult: treeMult}
}

// Place выполняет естественный проход, а для чанка (0,0) ещё и проход гарантии
func (tp *TreePlacer) Place(c *Chunk, heights *heightMap, stats *GenerationStats) {
	chance := math.Min(maxTreeChance, baseTreeChance*tp.treeMult)

	for z := 0; z < c.size; z++ {
		for x := 0; x < c.size; x++ {
			h := heights.at(x, z)
			if h < SeaLevel || !isOpenGrass(c, x, h, z) {
				continue
			}

			worldX := c.chunkX*c.size + x
			worldZ := c.chunkZ*c.size + z
			if util.Noise2D(worldX, worldZ, tp.seed+seedTrees) >= chance {
				continue
			}

			trunk := trunkHeightFor(util.Noise2D(worldX, worldZ, tp.seed+seedTrunks))
			if placeTree(c, x, h, z, trunk) {
				stats.Trees++
			}
		}
	}

	if c.chunkX == 0 && c.chunkZ == 0 {
		tp.guarantee(c, heights, stats)
	}

	decorationsPlaced.WithLabelValues("tree").Add(float64(stats.Trees))
}

// guarantee добирает недостающие деревья до целевого количества
func (tp *TreePlacer) guarantee(c *Chunk, heights *heightMap, stats *GenerationStats) {
	stats.TreeTarget = TreeTarget(tp.treeMult)
	rng := newChunkRNG(ChunkSeed(tp.seed, c.chunkX, c.chunkZ), saltTrees)

	for stats.Trees < stats.TreeTarget {
		placed := false

		for attempt := 0; attempt < maxTreeAttempts; attempt++ {
			x := rng.Intn(c.size)
			z := rng.Intn(c.size)
			trunk := 2 + rng.Intn(3) + trunkBoost(attempt)

			h := heights.at(x, z)
			if h < SeaLevel || !isOpenGrass(c, x, h, z) {
				continue
			}
			if placeTree(c, x, h, z, trunk) {
				placed = true
				break
			}
		}

		if !placed {
			stats.UnfilledTrees = stats.TreeTarget - stats.Trees
			guaranteeUnfilled.WithLabelValues("tree").Add(float64(stats.UnfilledTrees))
			logging.Warn("Chunk(%d,%d): tree guarantee left %d of %d unfilled",
				c.chunkX, c.chunkZ, stats.UnfilledTrees, stats.TreeTarget)
			return
		}
		stats.Trees++
		stats.GuaranteedTrees++
	}
}

// placeTree ставит дерево на поверхность высоты h.
// Ствол требует воздуха по всей высоте, листва заменяет только воздух.
func placeTree(c *Chunk, x, h, z, trunk int) bool {
	base := h + 1
	top := h + trunk
	if top+2 >= c.height {
		return false
	}
	for y := base; y <= top; y++ {
		if c.GetBlock(x, y, z) != block.Air {
			return false
		}
	}

	for y := base; y <= top; y++ {
		c.SetBlock(x, y, z, block.Wood)
	}

	// Кольцо листвы вокруг верхушки ствола
	for dx := -1; dx <= 1; dx++ {
		for dz := -1; dz <= 1; dz++ {
			if dx == 0 && dz == 0 {
				continue
			}
			setLeaf(c, x+dx, top, z+dz)
		}
	}

	// Полный слой 3x3 над стволом
	for dx := -1; dx <= 1; dx++ {
		for dz := -1; dz <= 1; dz++ {
			setLeaf(c, x+dx, top+1, z+dz)
		}
	}

	// Верхушка
	setLeaf(c, x, top+2, z)
	return true
}

func setLeaf(c *Chunk, x, y, z int) {
	if !c.InBounds(x, y, z) || c.GetBlock(x, y, z) != block.Air {
		return
	}
	c.SetBlock(x, y, z, block.Leaves)
}
