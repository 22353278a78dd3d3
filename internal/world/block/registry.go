package block

import "sort"

var registry = make(map[ID]Definition)

// Definition описывает статические свойства типа блока
type Definition struct {
	ID          ID
	Name        string
	Solid       bool // блок непроходим
	Transparent bool // сквозь блок видно соседние грани
	Ore         bool // ресурсный блок (руда)
}

// Register добавляет описание блока в регистр
func Register(def Definition) {
	registry[def.ID] = def
}

// Get возвращает описание для указанного ID
func Get(id ID) (Definition, bool) {
	def, exists := registry[id]
	return def, exists
}

// IsValid проверяет, является ли ID допустимым идентификатором блока
func IsValid(id ID) bool {
	_, exists := registry[id]
	return exists
}

// All возвращает все зарегистрированные описания в порядке возрастания ID
func All() []Definition {
	defs := make([]Definition, 0, len(registry))
	for _, def := range registry {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs
}
