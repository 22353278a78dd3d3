package vec

import "math"

// Vec2Float представляет 2D координаты с плавающей точкой
type Vec2Float struct {
	X, Y float64
}

// Add складывает два вектора
func (v Vec2Float) Add(other Vec2Float) Vec2Float {
	return Vec2Float{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub вычитает вектор
func (v Vec2Float) Sub(other Vec2Float) Vec2Float {
	return Vec2Float{X: v.X - other.X, Y: v.Y - other.Y}
}

// Rotate поворачивает вектор на угол (в радианах) против часовой стрелки
func (v Vec2Float) Rotate(angle float64) Vec2Float {
	sin, cos := math.Sincos(angle)
	return Vec2Float{X: v.X*cos - v.Y*sin, Y: v.X*sin + v.Y*cos}
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2Float) DistanceTo(other Vec2Float) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}
