package biome

// highland — горы с острыми хребтами и каровыми озёрами
type highland struct {
	base
}

func newHighland() *highland {
	foothills := sub("foothills", 0.20, 0.45, 0, 0.50, 0x8a9a5b, 0.3,
		spawn("grass_tuft", 3), spawn("bush", 2), spawn("rock", 1))

	return &highland{base{
		kind: Highland,
		elevation: Profile{
			Octaves: []Octave{
				{Freq: 0.004, Amp: 1},
				{Freq: 0.009, Amp: 0.6, Ridged: true},
				{Freq: 0.02, Amp: 0.3, Ridged: true},
				{Freq: 0.05, Amp: 0.12},
				{Freq: 0.1, Amp: 0.05},
			},
			Power: 1.2,
		},
		moisture: Profile{
			Octaves: []Octave{
				{Freq: 0.004, Amp: 1},
				{Freq: 0.01, Amp: 0.5},
				{Freq: 0.025, Amp: 0.2},
			},
			Power: 1.1,
		},
		water: Water{
			Enabled:        true,
			DistortionAmp:  0.08,
			DistortionFreq: 0.1,
			ColorFreq:      0.015,
			Shallow:        Hex(0x6fa8b8),
			Deep:           Hex(0x24485a),
		},
		seaLevel:    0.20,
		heightCurve: 1.8,
		table: NewTable(foothills,
			sub("tarn", 0, 0.20, 0, top, 0x35596a, 0.15,
				spawn("lily_pad", 1), spawn("kelp", 1)),
			foothills,
			sub("valley_forest", 0.20, 0.45, 0.50, top, 0x48703a, 0.45,
				spawn("pine", 3), spawn("birch", 2), spawn("bush", 1)),
			sub("crags", 0.45, 0.75, 0, 0.50, 0x7a7468, 0.25,
				spawn("rock", 3), spawn("boulder", 2), spawn("dry_shrub", 1)),
			sub("alpine_forest", 0.45, 0.75, 0.50, top, 0x3d5f3a, 0.4,
				spawn("snow_pine", 2), spawn("pine", 3), spawn("lichen", 1)),
			sub("summit", 0.75, top, 0, top, 0xe8ecef, 0.12,
				spawn("boulder", 2), spawn("lichen", 3), spawn("rock", 1)),
		),
	}}
}
