package world

import "sort"

// ChunkGrid — контейнер загруженных чанков с ключом по целочисленным координатам.
// Изменяется только шагом стриминга Terrain.
type ChunkGrid struct {
	dims   Dimensions
	chunks map[ChunkCoord]*Chunk
}

// NewChunkGrid создаёт пустую сетку
func NewChunkGrid(dims Dimensions) *ChunkGrid {
	return &ChunkGrid{dims: dims, chunks: make(map[ChunkCoord]*Chunk)}
}

// Get возвращает чанк; для координат вне сетки или незагруженного чанка ok == false
func (g *ChunkGrid) Get(c ChunkCoord) (*Chunk, bool) {
	if !g.dims.InBounds(c) {
		return nil, false
	}
	chunk, ok := g.chunks[c]
	return chunk, ok
}

// GetOrCreate возвращает чанк, создавая его через factory
func (g *ChunkGrid) GetOrCreate(c ChunkCoord, factory func(ChunkCoord) *Chunk) (*Chunk, bool) {
	if !g.dims.InBounds(c) {
		return nil, false
	}
	if chunk, ok := g.chunks[c]; ok {
		return chunk, true
	}
	chunk := factory(c)
	g.chunks[c] = chunk
	return chunk, true
}

// Delete удаляет чанк из сетки
func (g *ChunkGrid) Delete(c ChunkCoord) {
	delete(g.chunks, c)
}

// Len возвращает число загруженных чанков
func (g *ChunkGrid) Len() int {
	return len(g.chunks)
}

// Coords возвращает координаты загруженных чанков в порядке строк
func (g *ChunkGrid) Coords() []ChunkCoord {
	out := make([]ChunkCoord, 0, len(g.chunks))
	for c := range g.chunks {
		out = append(out, c)
	}
	sortCoords(out)
	return out
}

// Window возвращает координаты квадратного окна радиуса r вокруг center, обрезанного сеткой
func (g *ChunkGrid) Window(center ChunkCoord, r int) []ChunkCoord {
	if r < 0 {
		r = 0
	}
	minRow, maxRow := clampRange(center.Row-r, center.Row+r, g.dims.ChunksZ)
	minCol, maxCol := clampRange(center.Col-r, center.Col+r, g.dims.ChunksX)

	out := make([]ChunkCoord, 0, (maxRow-minRow+1)*(maxCol-minCol+1))
	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			out = append(out, ChunkCoord{Row: row, Col: col})
		}
	}
	return out
}

func clampRange(lo, hi, n int) (int, int) {
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	return lo, hi
}

func sortCoords(cs []ChunkCoord) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Row != cs[j].Row {
			return cs[i].Row < cs[j].Row
		}
		return cs[i].Col < cs[j].Col
	})
}
