package block

// Регистрируем все типы блоков при импорте пакета
func init() {
	// Базовые блоки
	Register(Definition{ID: Air, Name: "Air", Transparent: true})
	Register(Definition{ID: Grass, Name: "Grass", Solid: true})
	Register(Definition{ID: Dirt, Name: "Dirt", Solid: true})
	Register(Definition{ID: Stone, Name: "Stone", Solid: true})
	Register(Definition{ID: Water, Name: "Water", Transparent: true})
	Register(Definition{ID: Bedrock, Name: "Bedrock", Solid: true})
	Register(Definition{ID: Sand, Name: "Sand", Solid: true})

	// Растительность
	Register(Definition{ID: Wood, Name: "Wood", Solid: true})
	Register(Definition{ID: Leaves, Name: "Leaves", Solid: true, Transparent: true})

	// Руды
	Register(Definition{ID: Coal, Name: "Coal", Solid: true, Ore: true})
	Register(Definition{ID: Iron, Name: "Iron", Solid: true, Ore: true})
	Register(Definition{ID: Gold, Name: "Gold", Solid: true, Ore: true})
	Register(Definition{ID: Diamond, Name: "Diamond", Solid: true, Ore: true})
	Register(Definition{ID: Bronze, Name: "Bronze", Solid: true, Ore: true})
}
