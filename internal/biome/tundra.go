package biome

// tundra — мёрзлая равнина без открытой воды
type tundra struct {
	base
}

func newTundra() *tundra {
	permafrost := sub("permafrost", 0, 0.30, 0, 0.50, 0xbfc8c4, 0.15,
		spawn("lichen", 3), spawn("rock", 1))

	return &tundra{base{
		kind: Tundra,
		elevation: Profile{
			Octaves: []Octave{
				{Freq: 0.003, Amp: 1},
				{Freq: 0.008, Amp: 0.4},
				{Freq: 0.03, Amp: 0.15, Ridged: true},
			},
			Power: 1.0,
		},
		moisture: Profile{
			Octaves: []Octave{
				{Freq: 0.006, Amp: 1},
				{Freq: 0.018, Amp: 0.3},
			},
			Power: 1.0,
		},
		water:       Water{Enabled: false},
		seaLevel:    0,
		heightCurve: 1.1,
		table: NewTable(permafrost,
			permafrost,
			sub("bog", 0, 0.30, 0.50, top, 0x8a9480, 0.25,
				spawn("lichen", 2), spawn("reed", 1), spawn("grass_tuft", 1)),
			sub("taiga_edge", 0.30, 0.70, 0, top, 0x6b7d62, 0.3,
				spawn("snow_pine", 3), spawn("lichen", 2), spawn("bush", 1)),
			sub("ice_ridge", 0.70, top, 0, top, 0xdfe9f0, 0.1,
				spawn("boulder", 2), spawn("rock", 2)),
		),
	}}
}
