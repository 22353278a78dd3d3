package block

import "testing"

func TestWireValuesAreStable(t *testing.T) {
	expected := map[ID]uint8{
		Air: 0, Grass: 1, Dirt: 2, Stone: 3, Water: 4, Wood: 5, Leaves: 6,
		Bedrock: 7, Sand: 8, Coal: 9, Iron: 10, Gold: 11, Diamond: 12, Bronze: 13,
	}

	for id, value := range expected {
		if uint8(id) != value {
			t.Errorf("Блок %s: ожидалось значение %d, получено %d", id, value, uint8(id))
		}
	}

	if MaxID != 13 {
		t.Errorf("Ожидался MaxID = 13, получено %d", MaxID)
	}
}

func TestAllBlocksRegistered(t *testing.T) {
	defs := All()
	if len(defs) != int(Count) {
		t.Fatalf("Ожидалось %d зарегистрированных блоков, получено %d", Count, len(defs))
	}

	for i, def := range defs {
		if def.ID != ID(i) {
			t.Errorf("Позиция %d: ожидался ID %d, получен %d", i, i, def.ID)
		}
		if def.Name == "" {
			t.Errorf("У блока %d нет имени", def.ID)
		}
	}
}

func TestBlockProperties(t *testing.T) {
	tests := []struct {
		id          ID
		solid       bool
		transparent bool
		ore         bool
	}{
		{Air, false, true, false},
		{Water, false, true, false},
		{Stone, true, false, false},
		{Leaves, true, true, false},
		{Coal, true, false, true},
		{Diamond, true, false, true},
		{Bronze, true, false, true},
	}

	for _, tt := range tests {
		if got := tt.id.IsSolid(); got != tt.solid {
			t.Errorf("%s.IsSolid() = %v, ожидалось %v", tt.id, got, tt.solid)
		}
		if got := tt.id.IsTransparent(); got != tt.transparent {
			t.Errorf("%s.IsTransparent() = %v, ожидалось %v", tt.id, got, tt.transparent)
		}
		if got := tt.id.IsOre(); got != tt.ore {
			t.Errorf("%s.IsOre() = %v, ожидалось %v", tt.id, got, tt.ore)
		}
	}
}

func TestUnknownBlock(t *testing.T) {
	unknown := ID(200)
	if IsValid(unknown) {
		t.Error("ID 200 не должен быть допустимым")
	}
	if unknown.String() != "Unknown(200)" {
		t.Errorf("Неожиданное имя для неизвестного блока: %s", unknown.String())
	}
	if !unknown.IsTransparent() {
		t.Error("Неизвестный блок считается прозрачным")
	}
}
