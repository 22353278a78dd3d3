package world

import "math"

// Значения конфигурации по умолчанию
const (
	DefaultSeed         uint32  = 12345
	DefaultChunkSize            = 32
	DefaultChunkHeight          = 32
	DefaultOreMult      float64 = 1.0
	DefaultTreeMult     float64 = 1.0
	DefaultIslandFactor float64 = 1.0
)

// WorldConfig параметры генерации всего мира для текущего поколения.
// Передаётся по значению и заменяется целиком при регенерации.
type WorldConfig struct {
	Size         int     `json:"size" yaml:"size"`                  // Размер чанка по X и Z
	Height       int     `json:"height" yaml:"height"`              // Высота чанка по Y
	OreMult      float64 `json:"oreMult" yaml:"ore_mult"`           // Множитель частоты руд
	TreeMult     float64 `json:"treeMult" yaml:"tree_mult"`         // Множитель частоты деревьев
	IslandFactor float64 `json:"islandFactor" yaml:"island_factor"` // Масштаб острова
}

// DefaultConfig возвращает конфигурацию мира по умолчанию
func DefaultConfig() WorldConfig {
	return WorldConfig{
		Size:         DefaultChunkSize,
		Height:       DefaultChunkHeight,
		OreMult:      DefaultOreMult,
		TreeMult:     DefaultTreeMult,
		IslandFactor: DefaultIslandFactor,
	}
}

// ConfigForProgression рассчитывает конфигурацию мира из уровней прогрессии игрока.
// energy управляет размером острова и высотой мира, oreLevel и treeLevel - плотностью ресурсов.
func ConfigForProgression(energy, oreLevel, treeLevel int) WorldConfig {
	cfg := WorldConfig{
		Size:     16,
		Height:   32 + energy*2,
		OreMult:  1.0 + float64(oreLevel)*0.5,
		TreeMult: 1.0 + float64(treeLevel)*0.5,
	}
	if energy >= 7 {
		cfg.Size = 16 + (energy - 6)
	}

	// До седьмого уровня остров растёт квадратично
	cfg.IslandFactor = 1.0
	if energy <= 6 {
		const minF, maxF = 0.08, 0.55
		t := math.Max(0, float64(energy)) / 6.0
		cfg.IslandFactor = minF + (t*t)*(maxF-minF)
	}
	return cfg
}

// ChunkPos координаты чанка на сетке чанков (знаковые, неограниченные)
type ChunkPos struct {
	X, Z int
}
