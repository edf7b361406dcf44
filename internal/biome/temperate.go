package biome

// temperate — умеренный пояс с озёрами, лесами и лугами
type temperate struct {
	base
}

func newTemperate() *temperate {
	lakebed := sub("lakebed", 0, 0.30, 0, top, 0x3d6b5e, 0.25,
		spawn("kelp", 3), spawn("lily_pad", 2))
	meadow := sub("meadow", 0.36, 0.60, 0, 0.35, 0x8fbf4d, 0.35,
		spawn("grass_tuft", 5), spawn("flower", 3), spawn("bush", 1))

	return &temperate{base{
		kind: Temperate,
		elevation: Profile{
			Octaves: []Octave{
				{Freq: 0.004, Amp: 1},
				{Freq: 0.011, Amp: 0.5},
				{Freq: 0.023, Amp: 0.25},
				{Freq: 0.047, Amp: 0.125},
			},
			Power: 1.1,
		},
		moisture: Profile{
			Octaves: []Octave{
				{Freq: 0.003, Amp: 1},
				{Freq: 0.009, Amp: 0.5},
				{Freq: 0.02, Amp: 0.25},
			},
			Power: 1,
		},
		water: Water{
			Enabled:        true,
			DistortionAmp:  0.15,
			DistortionFreq: 0.08,
			ColorFreq:      0.01,
			Shallow:        Hex(0x4fa3c7),
			Deep:           Hex(0x1b4f72),
		},
		seaLevel:    0.30,
		heightCurve: 1.4,
		table: NewTable(meadow,
			lakebed,
			sub("beach", 0.30, 0.36, 0, top, 0xd8c99b, 0.15,
				spawn("reed", 2), spawn("rock", 1), spawn("grass_tuft", 1)),
			meadow,
			sub("woodland", 0.36, 0.60, 0.35, 0.70, 0x5f8f3a, 0.45,
				spawn("oak", 3), spawn("birch", 2), spawn("bush", 2), spawn("grass_tuft", 2)),
			sub("marsh", 0.36, 0.60, 0.70, top, 0x5c7a4a, 0.4,
				spawn("reed", 4), spawn("bush", 1), spawn("birch", 1)),
			sub("hills", 0.60, 0.80, 0, 0.50, 0x7d8c4f, 0.3,
				spawn("pine", 3), spawn("rock", 2), spawn("grass_tuft", 2)),
			sub("forest", 0.60, 0.80, 0.50, top, 0x3e6b2f, 0.5,
				spawn("pine", 4), spawn("oak", 1), spawn("bush", 1)),
			sub("peaks", 0.80, top, 0, top, 0x9a9a94, 0.2,
				spawn("rock", 3), spawn("boulder", 2), spawn("lichen", 2)),
		),
	}}
}
