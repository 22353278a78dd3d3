package world

import "github.com/annel0/oreforged/internal/world/block"

// GenerationStats итоги генерации одного чанка
type GenerationStats struct {
	Ores            map[block.ID]int `json:"ores"`
	GuaranteedOres  map[block.ID]int `json:"guaranteedOres"`
	UnfilledOres    map[block.ID]int `json:"unfilledOres"`
	Trees           int              `json:"trees"`
	GuaranteedTrees int              `json:"guaranteedTrees"`
	TreeTarget      int              `json:"treeTarget"`
	UnfilledTrees   int              `json:"unfilledTrees"`
	LooseStones     int              `json:"looseStones"`
	SandColumns     int              `json:"sandColumns"`
}

func newGenerationStats() GenerationStats {
	return GenerationStats{
		Ores:           make(map[block.ID]int),
		GuaranteedOres: make(map[block.ID]int),
		UnfilledOres:   make(map[block.ID]int),
	}
}

// TotalOres возвращает общее количество руды в чанке
func (s GenerationStats) TotalOres() int {
	total := 0
	for _, n := range s.Ores {
		total += n
	}
	return total
}

// Add суммирует статистику другого чанка
func (s *GenerationStats) Add(other GenerationStats) {
	if s.Ores == nil {
		*s = newGenerationStats()
	}
	for ore, n := range other.Ores {
		s.Ores[ore] += n
	}
	for ore, n := range other.GuaranteedOres {
		s.GuaranteedOres[ore] += n
	}
	for ore, n := range other.UnfilledOres {
		s.UnfilledOres[ore] += n
	}
	s.Trees += other.Trees
	s.GuaranteedTrees += other.GuaranteedTrees
	s.TreeTarget += other.TreeTarget
	s.UnfilledTrees += other.UnfilledTrees
	s.LooseStones += other.LooseStones
	s.SandColumns += other.SandColumns
}

// heightMap высоты столбцов чанка с рамкой в один столбец для проверки соседей
type heightMap struct {
	size    int
	heights []int
}

func newHeightMap(size int) *heightMap {
	stride := size + 2
	return &heightMap{size: size, heights: make([]int, stride*stride)}
}

func (hm *heightMap) index(x, z int) int {
	return (z+1)*(hm.size+2) + (x + 1)
}

// at принимает координаты от -1 до size включительно
func (hm *heightMap) at(x, z int) int {
	return hm.heights[hm.index(x, z)]
}

func (hm *heightMap) set(x, z, h int) {
	hm.heights[hm.index(x, z)] = h
}

// hasLand сообщает, есть ли в чанке столбцы выше уровня моря (рамка не учитывается)
func (hm *heightMap) hasLand() bool {
	for z := 0; z < hm.size; z++ {
		for x := 0; x < hm.size; x++ {
			if hm.at(x, z) > SeaLevel {
				return true
			}
		}
	}
	return false
}
