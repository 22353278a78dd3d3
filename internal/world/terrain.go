package world

import (
	"math"

	"github.com/annel0/oreforged/internal/util"
	"github.com/annel0/oreforged/internal/vec"
)

// Константы высот для генерации
const (
	SeaLevel         = 8  // Уровень моря: пустые клетки ниже заполняются водой
	MinHeight        = 2  // Минимальная высота поверхности
	MaxTerrainHeight = 30 // Потолок рельефа, над ним остаётся место для деревьев

	deepOceanFalloff = 0.05 // Ниже - глубокий океан без дальнейших расчётов
	largeWorldSize   = 32   // С этого размера чанка используется простой радиальный спад
)

// Смещения сида для независимых слоёв шума
const (
	seedMedium    uint32 = 1000
	seedDetail    uint32 = 2000
	seedBeach     uint32 = 3000
	seedPlateau   uint32 = 5000
	seedTowers    uint32 = 6000
	seedPeaks     uint32 = 7000
	seedRock      uint32 = 8000
	seedLooseRock uint32 = 9000
	seedOres      uint32 = 11000
	seedTrees     uint32 = 12000
	seedTrunks    uint32 = 13000
)

// peak эллиптическое возвышение в центре острова
type peak struct {
	center vec.Vec2Float
	angle  float64 // поворот эллипса
	axisA  float64 // большая полуось
	axisB  float64 // малая полуось
	height float64
}

// HeightField рассчитывает высоту рельефа для столбцов мира.
// Все параметры острова вычисляются один раз из сида и конфигурации.
type HeightField struct {
	seed     uint32
	cfg      WorldConfig
	ceiling  int
	large    bool
	radius   float64
	fade     float64
	center   vec.Vec2Float
	variance float64
	peaks    []peak
	dome     float64
	coast    *util.CoastlineField
}

// NewHeightField создаёт калькулятор высот для сида и конфигурации
func NewHeightField(seed uint32, cfg WorldConfig) *HeightField {
	hf := &HeightField{
		seed:     seed,
		cfg:      cfg,
		ceiling:  MaxTerrainHeight,
		large:    cfg.Size >= largeWorldSize,
		variance: VarianceBoost(cfg.IslandFactor, cfg.OreMult),
	}
	if cfg.Height-1 < hf.ceiling {
		hf.ceiling = cfg.Height - 1
	}

	if hf.large {
		hf.radius = math.Max(4, 1.5*float64(cfg.Size)*cfg.IslandFactor)
		hf.fade = 0.25 * hf.radius
		half := float64(cfg.Size / 2)
		hf.center = vec.Vec2Float{X: half, Y: half}
	} else {
		hf.radius = math.Max(4, 3.0*float64(cfg.Size)*cfg.IslandFactor)
		hf.fade = 0.3 * hf.radius
		hf.coast = util.NewCoastlineField(seed)
	}

	hf.setupCenterBoost()
	return hf
}

// VarianceBoost растёт сверхлинейно с размером острова и богатством руд,
// поэтому большие и богатые миры выглядят более рельефными.
func VarianceBoost(islandFactor, oreMult float64) float64 {
	boost := 1.0 + 0.6*math.Pow(math.Max(0, islandFactor), 1.5)
	if oreMult > 1 {
		boost += 0.25 * math.Pow(oreMult-1, 1.3)
	}
	return boost
}

// Radius возвращает радиус острова в блоках
func (hf *HeightField) Radius() float64 {
	return hf.radius
}

// setupCenterBoost выбирает форму центрального возвышения по размеру острова
func (hf *HeightField) setupCenterBoost() {
	r := hf.radius
	switch {
	case r >= 40:
		hf.dome = 3 + 3*hf.cfg.IslandFactor
	case r >= 12:
		s := hf.seed + seedPeaks
		offset := vec.Vec2Float{
			X: (util.Noise2D(1, 0, s) - 0.5) * 0.3 * r,
			Y: (util.Noise2D(0, 1, s) - 0.5) * 0.3 * r,
		}
		main := peak{
			center: hf.center.Add(offset),
			angle:  util.Noise2D(2, 2, s) * math.Pi,
			axisA:  0.45 * r,
			axisB:  0.30 * r,
			height: 4 + 4*hf.cfg.IslandFactor,
		}
		hf.peaks = append(hf.peaks, main)

		if r >= 20 && r < 36 && util.Noise2D(3, 3, s) < 0.4 {
			side := vec.Vec2Float{X: 0.4 * r, Y: 0}.Rotate(main.angle + math.Pi/2)
			hf.peaks = append(hf.peaks, peak{
				center: main.center.Add(side),
				angle:  main.angle,
				axisA:  0.25 * r,
				axisB:  0.20 * r,
				height: main.height * 0.6,
			})
		}
	}
}

// Falloff возвращает множитель в [0,1], гасящий рельеф к краям острова
func (hf *HeightField) Falloff(worldX, worldZ int) float64 {
	p := vec.Vec2Float{X: float64(worldX), Y: float64(worldZ)}
	distance := p.DistanceTo(hf.center)

	if hf.large {
		if distance <= hf.radius {
			return 1
		}
		return math.Max(0, 1-(distance-hf.radius)/hf.fade)
	}

	// Береговая линия искажается не более чем на 20% радиуса
	if distance > hf.radius*1.2+hf.fade {
		return 0
	}
	effective := hf.radius + (hf.coast.Sample(worldX, worldZ)-0.5)*0.4*hf.radius
	if distance <= effective {
		return 1
	}
	t := 1 - (distance-effective)/hf.fade
	if t <= 0 {
		return 0
	}
	return t * t
}

// Height возвращает высоту рельефа столбца без ограничения сверху
func (hf *HeightField) Height(worldX, worldZ int) int {
	falloff := hf.Falloff(worldX, worldZ)
	if falloff < deepOceanFalloff {
		return SeaLevel - 1
	}

	x := float64(worldX)
	z := float64(worldZ)
	s := hf.seed

	combined := util.SmoothNoise(x/20, z/20, s)*1.0 +
		util.SmoothNoise(x/10, z/10, s+seedMedium)*0.5 +
		util.SmoothNoise(x/5, z/5, s+seedDetail)*0.25
	combined /= 1.75

	heightFactor := (combined - 0.5) * 2
	heightFactor *= falloff // амплитуда
	heightFactor *= falloff // дополнительное сужение у краёв
	heightFactor *= hf.variance

	elevation := float64(SeaLevel) + 3*falloff + heightFactor*8
	elevation += hf.centerBoost(x, z)
	height := int(math.Round(elevation))

	// Частичное выравнивание плато на крупных островах
	if hf.radius >= 30 {
		if util.SmoothNoise(x/24, z/24, s+seedPlateau) > 0.6 {
			target := SeaLevel + 5
			height += int(math.Round(float64(target-height) * 0.7))
		}
	}

	// Башни и уступы
	if hf.radius >= 16 && height > SeaLevel+1 {
		t := math.Min(1, math.Max(0, (hf.radius-16)/24))
		threshold := 0.90 - 0.12*t
		spike := util.Noise2D(vec.FloorDiv(worldX, 2), vec.FloorDiv(worldZ, 2), s+seedTowers)
		if spike > threshold {
			height += 2 + int((spike-threshold)/(1-threshold)*6)
		}
	}

	// Неровная кромка пляжей
	if height >= SeaLevel-1 && height <= SeaLevel+1 {
		if util.MultiOctaveNoise(x/6, z/6, s+seedBeach, 3) < 0.55 {
			height = SeaLevel
		}
	}

	if height < MinHeight {
		height = MinHeight
	}
	return height
}

// ClampedHeight возвращает высоту, ограниченную потолком генерации min(30, height-1)
func (hf *HeightField) ClampedHeight(worldX, worldZ int) int {
	h := hf.Height(worldX, worldZ)
	if h > hf.ceiling {
		h = hf.ceiling
	}
	return h
}

// centerBoost добавляет центральные пики или купол
func (hf *HeightField) centerBoost(x, z float64) float64 {
	p := vec.Vec2Float{X: x, Y: z}

	if hf.dome > 0 {
		d := p.DistanceTo(hf.center) / hf.radius
		if d >= 1 {
			return 0
		}
		return (1 - d*d) * hf.dome
	}

	boost := 0.0
	for _, pk := range hf.peaks {
		rel := p.Sub(pk.center).Rotate(-pk.angle)
		u := rel.X / pk.axisA
		v := rel.Y / pk.axisB
		e := u*u + v*v
		if e < 1 {
			boost += (1 - e) * pk.height
		}
	}
	return boost
}
