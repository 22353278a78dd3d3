package world

import (
	"sort"

	"github.com/annel0/oreforged/internal/logging"
	"github.com/annel0/oreforged/internal/vec"
	"github.com/annel0/oreforged/internal/world/block"
)

// World хранит сгенерированные чанки текущего поколения мира.
// Внутренней синхронизации нет: все мутации выполняет один владелец.
type World struct {
	seed            uint32
	config          WorldConfig
	chunks          map[ChunkPos]*Chunk
	heights         *HeightField
	negativePadding int
	stats           GenerationStats
}

// NewWorld создаёт мир с указанным сидом и конфигурацией по умолчанию
func NewWorld(seed uint32) *World {
	return NewWorldWithConfig(seed, DefaultConfig())
}

// NewWorldWithConfig создаёт мир с указанным сидом и конфигурацией
func NewWorldWithConfig(seed uint32, cfg WorldConfig) *World {
	w := &World{}
	w.reset(seed, cfg)
	return w
}

func (w *World) reset(seed uint32, cfg WorldConfig) {
	w.seed = seed
	w.config = cfg
	w.chunks = make(map[ChunkPos]*Chunk)
	w.heights = NewHeightField(seed, cfg)
	w.stats = newGenerationStats()
}

// SetNegativePadding задаёт дополнительные кольца чанков с отрицательной стороны
// при загрузке окрестности. Остров строится вокруг начала координат, и без сдвига
// клиент видит его смещённым.
func (w *World) SetNegativePadding(padding int) {
	if padding < 0 {
		padding = 0
	}
	w.negativePadding = padding
}

// NegativePadding возвращает текущий отрицательный отступ
func (w *World) NegativePadding() int {
	return w.negativePadding
}

// Seed возвращает сид текущего поколения
func (w *World) Seed() uint32 {
	return w.seed
}

// Config возвращает конфигурацию текущего поколения
func (w *World) Config() WorldConfig {
	return w.config
}

// ChunkCount возвращает количество загруженных чанков
func (w *World) ChunkCount() int {
	return len(w.chunks)
}

// Stats возвращает суммарную статистику генерации текущего поколения
func (w *World) Stats() GenerationStats {
	return w.stats
}

// WorldToLocal переводит мировые координаты в координаты чанка и локальные координаты
func (w *World) WorldToLocal(worldX, y, worldZ int) (ChunkPos, int, int, int) {
	p := vec.Vec2{X: worldX, Y: worldZ}
	cp := p.ToChunkCoords(w.config.Size)
	local := p.LocalInChunk(w.config.Size)
	return ChunkPos{X: cp.X, Z: cp.Y}, local.X, y, local.Y
}

// GetChunk возвращает загруженный чанк или nil
func (w *World) GetChunk(chunkX, chunkZ int) *Chunk {
	return w.chunks[ChunkPos{X: chunkX, Z: chunkZ}]
}

// GenerateChunk создаёт и генерирует чанк, если он ещё не загружен
func (w *World) GenerateChunk(chunkX, chunkZ int) *Chunk {
	pos := ChunkPos{X: chunkX, Z: chunkZ}
	if c, ok := w.chunks[pos]; ok {
		return c
	}

	c := NewChunk(chunkX, chunkZ, w.config.Size, w.config.Height)
	stats := c.generate(w.seed, w.config, w.heights)
	w.stats.Add(stats)

	// В карту попадает только полностью сгенерированный чанк
	w.chunks[pos] = c
	return c
}

// GetBlock возвращает блок по мировым координатам; незагруженные чанки дают Air
func (w *World) GetBlock(worldX, y, worldZ int) block.ID {
	pos, lx, ly, lz := w.WorldToLocal(worldX, y, worldZ)
	c, ok := w.chunks[pos]
	if !ok {
		return block.Air
	}
	return c.GetBlock(lx, ly, lz)
}

// SetBlock устанавливает блок по мировым координатам, генерируя чанк при необходимости
func (w *World) SetBlock(worldX, y, worldZ int, id block.ID) {
	pos, lx, ly, lz := w.WorldToLocal(worldX, y, worldZ)
	w.GenerateChunk(pos.X, pos.Z).SetBlock(lx, ly, lz, id)
}

// LoadChunksAroundPosition генерирует все чанки в квадратной окрестности центра.
// С отрицательной стороны окрестность расширяется на NegativePadding.
func (w *World) LoadChunksAroundPosition(centerChunkX, centerChunkZ, radius int) int {
	if radius < 0 {
		radius = 0
	}

	created := 0
	for cz := centerChunkZ - radius - w.negativePadding; cz <= centerChunkZ+radius; cz++ {
		for cx := centerChunkX - radius - w.negativePadding; cx <= centerChunkX+radius; cx++ {
			if w.GetChunk(cx, cz) != nil {
				continue
			}
			w.GenerateChunk(cx, cz)
			created++
		}
	}

	logging.Debug("Loaded %d new chunks around (%d,%d) r=%d, total %d",
		created, centerChunkX, centerChunkZ, radius, len(w.chunks))
	return created
}

// Regenerate заменяет сид и конфигурацию и выбрасывает все чанки
func (w *World) Regenerate(seed uint32, cfg WorldConfig) {
	logging.Info("Regenerating world: seed=%d size=%d height=%d ore=%.2f tree=%.2f island=%.2f",
		seed, cfg.Size, cfg.Height, cfg.OreMult, cfg.TreeMult, cfg.IslandFactor)
	w.reset(seed, cfg)
}

// GetLoadedChunks возвращает снимок загруженных чанков, упорядоченный по (X, Z)
func (w *World) GetLoadedChunks() []*Chunk {
	chunks := make([]*Chunk, 0, len(w.chunks))
	for _, c := range w.chunks {
		chunks = append(chunks, c)
	}
	sort.Slice(chunks, func(i, j int) bool {
		a, b := chunks[i].Position(), chunks[j].Position()
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Z < b.Z
	})
	return chunks
}
