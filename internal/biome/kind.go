package biome

import (
	"fmt"
	"strings"
)

// Kind — закрытое перечисление климатических режимов мира
type Kind int

const (
	Temperate Kind = iota
	Desert
	Ocean
	Highland
	Tundra
)

var kindNames = map[Kind]string{
	Temperate: "temperate",
	Desert:    "desert",
	Ocean:     "ocean",
	Highland:  "highland",
	Tundra:    "tundra",
}

// String возвращает имя биома
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Kinds возвращает все известные биомы в порядке объявления
func Kinds() []Kind {
	return []Kind{Temperate, Desert, Ocean, Highland, Tundra}
}

// ParseKind разбирает имя биома из конфигурации
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Temperate, nil
	}
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("неизвестный биом: %q", name)
}
