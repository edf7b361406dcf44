package biome

// ocean — архипелаг: открытая вода с редкими островами
type ocean struct {
	base
}

func newOcean() *ocean {
	shore := sub("shore", 0.55, 0.62, 0, top, 0xd9cc9a, 0.15,
		spawn("driftwood", 2), spawn("rock", 1), spawn("reed", 1), spawn("palm", 1))

	return &ocean{base{
		kind: Ocean,
		elevation: Profile{
			Octaves: []Octave{
				{Freq: 0.0025, Amp: 1},
				{Freq: 0.007, Amp: 0.5},
				{Freq: 0.018, Amp: 0.25},
				{Freq: 0.04, Amp: 0.1},
			},
			Power:  1.3,
			Offset: -0.05,
		},
		moisture: Profile{
			Octaves: []Octave{
				{Freq: 0.004, Amp: 1},
				{Freq: 0.012, Amp: 0.4},
			},
			Power: 0.8,
		},
		water: Water{
			Enabled:        true,
			DistortionAmp:  0.35,
			DistortionFreq: 0.05,
			ColorFreq:      0.006,
			Shallow:        Hex(0x3fb6d9),
			Deep:           Hex(0x0c2f5a),
		},
		seaLevel:    0.55,
		heightCurve: 1.0,
		table: NewTable(shore,
			sub("abyss", 0, 0.35, 0, top, 0x1d3b5c, 0.08,
				spawn("kelp", 2), spawn("coral", 1), spawn("driftwood", 1)),
			sub("reef", 0.35, 0.55, 0, 0.50, 0x3f8c8c, 0.35,
				spawn("coral", 4), spawn("kelp", 2), spawn("driftwood", 1)),
			sub("kelp_forest", 0.35, 0.55, 0.50, top, 0x2f6b5a, 0.4,
				spawn("kelp", 5), spawn("coral", 1)),
			shore,
			sub("island_scrub", 0.62, top, 0, 0.50, 0x9bb061, 0.3,
				spawn("bush", 2), spawn("grass_tuft", 2), spawn("palm", 1)),
			sub("island_jungle", 0.62, top, 0.50, top, 0x3f8a3a, 0.5,
				spawn("palm", 4), spawn("bush", 2), spawn("flower", 1)),
		),
	}}
}
