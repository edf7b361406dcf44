package world

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/annel0/biome-terrain/internal/biome"
	"github.com/annel0/biome-terrain/internal/logging"
	"github.com/annel0/biome-terrain/internal/physics"
)

// Ошибки проверки внешнего размещения
var (
	ErrUnknownOrganism    = errors.New("неизвестный организм")
	ErrOutsideWorld       = errors.New("точка вне мира")
	ErrDuplicatePlacement = errors.New("такой объект уже размещён")
	ErrPlacementRejected  = errors.New("размещение нарушает правила чанка")
)

// ApplyRemotePlacement применяет событие object-placed от другого участника тем же
// путём, что и локальное размещение. Повтор того же размещения (по ID или по
// типу и позиции), собственное эхо и записи, нарушающие правила размещения,
// игнорируются. Если целевой чанк не загружен, проверяются правило воды и дистанция
// до закреплённых размещений, а запись восстановится при заполнении чанка.
func (t *Terrain) ApplyRemotePlacement(ctx context.Context, p Placement, animate bool) bool {
	ctx, span := t.tracer.Start(ctx, "terrain.remote_placement")
	defer span.End()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.nodeID != "" && p.Origin == t.nodeID {
		return false
	}
	p = t.normalizeRemote(p)

	chunk, populated, err := t.checkRemoteLocked(ctx, p)
	if err != nil {
		if errors.Is(err, ErrDuplicatePlacement) {
			logging.Trace("Повтор размещения %s", p.ID)
		} else {
			logging.Warn("⚠️ Удалённое размещение %s (%s) отклонено: %v", p.ID, p.Organism, err)
		}
		return false
	}
	if populated && !chunk.PlaceObject(p, PlaceOptions{Animate: animate, Save: true}) {
		return false
	}

	t.rememberLocked(p)
	if err := t.archive.Save(ctx, p); err != nil {
		logging.Warn("⚠️ Не удалось сохранить удалённое размещение %s: %v", p.ID, err)
	}

	t.progress.Increment(CounterRemotePlacements)
	t.metrics.PlacementApplied(SourceRemote)
	t.notifyLocked(p)
	return true
}

// CheckPlacement проверяет внешнее размещение без применения. Возвращает
// ErrUnknownOrganism, ErrOutsideWorld, ErrDuplicatePlacement или ErrPlacementRejected.
func (t *Terrain) CheckPlacement(ctx context.Context, p Placement) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _, err := t.checkRemoteLocked(ctx, t.normalizeRemote(p))
	return err
}

func (t *Terrain) normalizeRemote(p Placement) Placement {
	if p.ID == "" {
		p.ID = fmt.Sprintf("remote:%016x", p.IdentityKey())
	}
	if coord, inside := t.dims.ChunkCoordAt(p.Position.X(), p.Position.Z()); inside {
		p.Chunk = coord
	}
	p.Persistent = true
	if p.Source == "" || p.Source == SourceAmbient || p.Source == SourceUser {
		p.Source = SourceRemote
	}
	return p
}

// checkRemoteLocked проверяет запись по каталогу организмов и правилам размещения.
// В заполненном чанке действуют все правила, иначе только правило воды.
func (t *Terrain) checkRemoteLocked(ctx context.Context, p Placement) (*Chunk, bool, error) {
	o, known := biome.LookupOrganism(p.Organism)
	if !known {
		return nil, false, fmt.Errorf("%w %q", ErrUnknownOrganism, p.Organism)
	}
	x, z := p.Position.X(), p.Position.Z()
	coord, inside := t.dims.ChunkCoordAt(x, z)
	if !inside {
		return nil, false, ErrOutsideWorld
	}

	// Архив подгружаем до проверки, иначе повтор после рестарта не распознать
	t.pinnedLocked(ctx, coord)
	if t.knownLocked(p) {
		return nil, false, ErrDuplicatePlacement
	}

	chunk, loaded := t.grid.Get(coord)
	if loaded && chunk.State() == StatePopulated {
		if !chunk.CanPlaceObject(p) {
			return nil, false, ErrPlacementRejected
		}
		return chunk, true, nil
	}
	if !surfaceAllows(o, p.Float, t.gen.IsUnderwater(x, z)) {
		return nil, false, fmt.Errorf("%w: правило воды", ErrPlacementRejected)
	}
	// Чанк не заполнен: дистанцию проверяем только по закреплённым размещениям
	for _, other := range t.pinned[coord] {
		oo, ok := biome.LookupOrganism(other.Organism)
		if !ok {
			continue
		}
		if physics.TooClose(p.XZ(), other.XZ(), math.Max(o.MinSeparation, oo.MinSeparation)) {
			return nil, false, fmt.Errorf("%w: рядом %s", ErrPlacementRejected, other.ID)
		}
	}
	return nil, false, nil
}
