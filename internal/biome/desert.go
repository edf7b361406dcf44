package biome

import "math"

// desert — пустыня с дюнами, оазисами и столовыми горами
type desert struct {
	base
	duneFreq float64
	duneAmp  float64
}

func newDesert() *desert {
	dunes := sub("dunes", 0.25, 0.70, 0, 0.40, 0xe2c27a, 0.12,
		spawn("cactus", 2), spawn("dry_shrub", 3))

	return &desert{
		base: base{
			kind: Desert,
			elevation: Profile{
				Octaves: []Octave{
					{Freq: 0.003, Amp: 1},
					{Freq: 0.008, Amp: 0.4},
					{Freq: 0.02, Amp: 0.2},
				},
				Power:  0.9,
				Offset: 0.02,
			},
			moisture: Profile{
				Octaves: []Octave{
					{Freq: 0.005, Amp: 1},
					{Freq: 0.015, Amp: 0.35},
					{Freq: 0.04, Amp: 0.15},
				},
				Power: 1.8,
			},
			water: Water{
				Enabled:        true,
				DistortionAmp:  0.05,
				DistortionFreq: 0.12,
				ColorFreq:      0.02,
				Shallow:        Hex(0x5ec4b6),
				Deep:           Hex(0x2a7f86),
			},
			seaLevel:    0.15,
			heightCurve: 1.2,
			table: NewTable(dunes,
				sub("oasis_pool", 0, 0.15, 0, top, 0x4f8f7a, 0.3,
					spawn("lily_pad", 2), spawn("kelp", 1)),
				sub("salt_flat", 0.15, 0.25, 0, 0.50, 0xeae3d2, 0.05,
					spawn("dry_shrub", 1), spawn("rock", 1)),
				sub("oasis_shore", 0.15, 0.25, 0.50, top, 0x9fae5a, 0.35,
					spawn("palm", 4), spawn("reed", 2), spawn("bush", 1)),
				dunes,
				sub("scrub", 0.25, 0.70, 0.40, top, 0xc8b46a, 0.2,
					spawn("cactus", 3), spawn("dry_shrub", 2), spawn("bush", 1), spawn("flower", 1)),
				sub("mesa", 0.70, top, 0, top, 0xb5654a, 0.15,
					spawn("rock", 3), spawn("boulder", 3), spawn("cactus", 1)),
			),
		},
		duneFreq: 0.06,
		duneAmp:  0.04,
	}
}

// Elevation добавляет к базовому рельефу гребни дюн
func (d *desert) Elevation(src Sources, x, z float64) float64 {
	e := d.base.Elevation(src, x, z)
	ridge := 1 - math.Abs(src.Elevation.Sample2D(x, z*0.5, d.duneFreq))
	return e + d.duneAmp*(ridge-0.5)
}
