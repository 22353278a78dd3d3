package block

import "fmt"

// ID идентификатор типа блока. Численные значения являются частью
// сетевого контракта сериализованного чанка и не должны меняться.
type ID uint8

// Константы ID блоков
const (
	Air     ID = iota // 0
	Grass             // 1
	Dirt              // 2
	Stone             // 3
	Water             // 4
	Wood              // 5
	Leaves            // 6
	Bedrock           // 7
	Sand              // 8
	Coal              // 9
	Iron              // 10
	Gold              // 11
	Diamond           // 12
	Bronze            // 13

	Count // всегда последний: количество типов блоков
)

// MaxID наибольшее допустимое значение на проводе
const MaxID = Count - 1

// String возвращает имя блока
func (id ID) String() string {
	if def, ok := Get(id); ok {
		return def.Name
	}
	return fmt.Sprintf("Unknown(%d)", uint8(id))
}

// IsAir возвращает true для пустого блока
func (id ID) IsAir() bool {
	return id == Air
}

// IsSolid возвращает true для блоков, которые не являются воздухом или водой
func (id ID) IsSolid() bool {
	def, ok := Get(id)
	return ok && def.Solid
}

// IsTransparent возвращает true для воздуха, воды и листвы
func (id ID) IsTransparent() bool {
	def, ok := Get(id)
	return !ok || def.Transparent
}

// IsOre возвращает true для ресурсных блоков
func (id ID) IsOre() bool {
	def, ok := Get(id)
	return ok && def.Ore
}
