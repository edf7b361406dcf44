package world

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

type populateJob struct {
	chunk  *Chunk
	pinned []Placement
}

// populateAll заполняет грязные чанки на ограниченном пуле воркеров.
// Переход состояния через CAS не даёт заполнить чанк дважды.
func (t *Terrain) populateAll(ctx context.Context, chunks []*Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	ctx, span := t.tracer.Start(ctx, "terrain.populate")
	defer span.End()

	jobs := make([]populateJob, 0, len(chunks))
	for _, c := range chunks {
		if !c.IsDirty() {
			continue
		}
		jobs = append(jobs, populateJob{chunk: c, pinned: t.pinnedLocked(ctx, c.Coord())})
	}

	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.tuning.PopulateWorkers)
	for _, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			if job.chunk.Populate(job.pinned) {
				done.Add(1)
				t.metrics.ChunkPopulated(job.chunk.Coord(), job.chunk.ObjectCount(), time.Since(start))
			}
			return nil
		})
	}
	err := g.Wait()
	span.SetAttributes(attribute.Int("chunks", int(done.Load())))
	return int(done.Load()), err
}
