package world

// ChunkSeed выводит сид конкретного чанка из сида мира и координат.
// Отличается от сида мира, чтобы повторные размещения не выстраивались по сетке.
func ChunkSeed(seed uint32, chunkX, chunkZ int) uint32 {
	h := seed*0x9E3779B1 + uint32(int32(chunkX))*0x85EBCA6B + uint32(int32(chunkZ))*0xC2B2AE35
	h ^= h >> 15
	h *= 0x2C1B3C6D
	h ^= h >> 12
	h *= 0x297A2D39
	h ^= h >> 15
	return h
}

// Соли для независимых потоков случайных чисел одного чанка
const (
	saltOres  uint64 = 500
	saltTrees uint64 = 600
)

// chunkRNG простой детерминированный LCG для проходов гарантии
type chunkRNG struct {
	state uint64
}

func newChunkRNG(chunkSeed uint32, salt uint64) *chunkRNG {
	return &chunkRNG{state: uint64(chunkSeed)<<32 ^ salt*0x9E3779B97F4A7C15}
}

func (r *chunkRNG) next() uint64 {
	r.state = r.state*6364136223846793005 + 1442695040888963407
	return r.state
}

// Intn возвращает число в [0, n)
func (r *chunkRNG) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int((r.next() >> 33) % uint64(n))
}

// Float64 возвращает число в [0, 1)
func (r *chunkRNG) Float64() float64 {
	return float64(r.next()>>11) / (1 << 53)
}
