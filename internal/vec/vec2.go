package vec

// Vec2 представляет 2D координаты на сетке блоков или чанков.
// Y хранит мировую ось Z (вертикаль в этом пакете не участвует).
type Vec2 struct {
	X, Y int
}

// FloorDiv делит с округлением вниз (а не к нулю).
// Для отрицательных координат это единственно верное отображение в чанки.
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// FloorMod возвращает остаток, всегда лежащий в [0, b) для b > 0
func FloorMod(a, b int) int {
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}

// ToChunkCoords преобразует глобальные координаты в координаты чанка заданного размера
func (v Vec2) ToChunkCoords(size int) Vec2 {
	return Vec2{X: FloorDiv(v.X, size), Y: FloorDiv(v.Y, size)}
}

// LocalInChunk возвращает локальные координаты внутри чанка заданного размера
func (v Vec2) LocalInChunk(size int) Vec2 {
	return Vec2{X: FloorMod(v.X, size), Y: FloorMod(v.Y, size)}
}

// ChunkOrigin возвращает мировые координаты угла чанка (v - координаты чанка)
func (v Vec2) ChunkOrigin(size int) Vec2 {
	return Vec2{X: v.X * size, Y: v.Y * size}
}
