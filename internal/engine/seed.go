package engine

import (
	"math/rand"
	"strconv"
	"strings"
	"unicode"

	"github.com/annel0/oreforged/internal/world"
)

// Диапазон случайного сида при автогенерации
const (
	minRandomSeed = 10000
	maxRandomSeed = 99999
)

// ParseSeed разбирает сид из пользовательского ввода.
// При autoRandomize сид выбирается случайно из [10000, 99999].
// Берутся ведущие цифры после пробелов и необязательного '+' ("123abc" даёт 123);
// ввод без цифр, отрицательный или больше uint32 даёт сид по умолчанию.
func ParseSeed(input string, autoRandomize bool, rnd *rand.Rand) uint32 {
	if autoRandomize {
		if rnd == nil {
			return uint32(minRandomSeed + rand.Intn(maxRandomSeed-minRandomSeed+1))
		}
		return uint32(minRandomSeed + rnd.Intn(maxRandomSeed-minRandomSeed+1))
	}

	digits := strings.TrimPrefix(strings.TrimLeftFunc(input, unicode.IsSpace), "+")
	if end := strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' }); end >= 0 {
		digits = digits[:end]
	}

	v, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return world.DefaultSeed
	}
	return uint32(v)
}
