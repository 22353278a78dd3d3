package util

import (
	"math"

	"github.com/aquilax/go-perlin"
)

// Константы хэш-функции шума. Вся арифметика ведётся в uint32 с переполнением,
// поэтому результат одинаков на любой платформе.
const (
	noisePrimeX    uint32 = 374761393
	noisePrimeZ    uint32 = 668265263
	noiseMix       uint32 = 1274126177
	noiseNormalize        = 2147483648.0

	// OctaveSeedStep смещение сида для каждой следующей октавы
	OctaveSeedStep uint32 = 1000
)

// Noise2D возвращает детерминированное значение шума в диапазоне [0,1)
// для целочисленных координат и сида.
func Noise2D(ix, iz int, seed uint32) float64 {
	n := seed + uint32(int32(ix))*noisePrimeX + uint32(int32(iz))*noisePrimeZ
	n = (n ^ (n >> 13)) * noiseMix
	return float64((n^(n>>16))&0x7fffffff) / noiseNormalize
}

// SmoothNoise выполняет билинейную интерполяцию Noise2D между четырьмя
// узлами решётки, окружающими дробную точку (x, z).
func SmoothNoise(x, z float64, seed uint32) float64 {
	fx := math.Floor(x)
	fz := math.Floor(z)
	ix := int(fx)
	iz := int(fz)
	tx := x - fx
	tz := z - fz

	v1 := Noise2D(ix, iz, seed)
	v2 := Noise2D(ix+1, iz, seed)
	v3 := Noise2D(ix, iz+1, seed)
	v4 := Noise2D(ix+1, iz+1, seed)

	i1 := v1*(1-tx) + v2*tx
	i2 := v3*(1-tx) + v4*tx
	return i1*(1-tz) + i2*tz
}

// MultiOctaveNoise складывает октавы SmoothNoise с удвоением частоты и
// уменьшением амплитуды вдвое. Результат нормирован суммой амплитуд.
func MultiOctaveNoise(x, z float64, seed uint32, octaves int) float64 {
	if octaves <= 0 {
		return 0
	}

	total := 0.0
	frequency := 1.0
	amplitude := 1.0
	maxValue := 0.0

	for i := 0; i < octaves; i++ {
		total += SmoothNoise(x*frequency, z*frequency, seed+uint32(i)*OctaveSeedStep) * amplitude
		maxValue += amplitude
		amplitude *= 0.5
		frequency *= 2.0
	}

	return total / maxValue
}

// CoastlineField даёт плавный шум Перлина для искажения береговой линии.
// Экземпляр создаётся один раз на сид и дальше только читается.
type CoastlineField struct {
	noise *perlin.Perlin
	scale float64
}

// NewCoastlineField создаёт поле береговой линии для указанного сида
func NewCoastlineField(seed uint32) *CoastlineField {
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав
	return &CoastlineField{
		noise: perlin.NewPerlin(alpha, beta, n, int64(seed)),
		scale: 1.0 / 15.0,
	}
}

// Sample возвращает значение шума (от 0 до 1) для мировых координат
func (cf *CoastlineField) Sample(worldX, worldZ int) float64 {
	v := cf.noise.Noise2D(float64(worldX)*cf.scale, float64(worldZ)*cf.scale)
	v = (v + 1.0) / 2.0
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
