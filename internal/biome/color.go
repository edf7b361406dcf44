package biome

import "fmt"

// Color — цвет в линейном RGB, компоненты в [0, 1]
type Color struct {
	R, G, B float64
}

// Hex создаёт цвет из 0xRRGGBB
func Hex(v uint32) Color {
	return Color{
		R: float64((v>>16)&0xff) / 255,
		G: float64((v>>8)&0xff) / 255,
		B: float64(v&0xff) / 255,
	}
}

// Lerp линейно интерполирует между двумя цветами
func (c Color) Lerp(o Color, t float64) Color {
	t = clamp01(t)
	return Color{
		R: c.R + (o.R-c.R)*t,
		G: c.G + (o.G-c.G)*t,
		B: c.B + (o.B-c.B)*t,
	}
}

// String возвращает цвет в формате #rrggbb
func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", channel(c.R), channel(c.G), channel(c.B))
}

func channel(v float64) int {
	return int(clamp01(v)*255 + 0.5)
}
