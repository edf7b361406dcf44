package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/annel0/biome-terrain/internal/config"
	"github.com/annel0/biome-terrain/internal/logging"
	"github.com/annel0/biome-terrain/internal/world"
)

// ErrNotFound возвращается, когда размещение отсутствует в хранилище
var ErrNotFound = errors.New("размещение не найдено")

// PlacementRepository хранит постоянные размещения объектов.
// Ключ записи — ID размещения; выборка идёт по чанку.
// Реализует world.PlacementArchive.
type PlacementRepository interface {
	// Save сохраняет или перезаписывает размещение
	Save(ctx context.Context, p world.Placement) error
	// LoadChunk возвращает размещения чанка, упорядоченные по ID
	LoadChunk(ctx context.Context, c world.ChunkCoord) ([]world.Placement, error)
	// Get возвращает размещение по ID или ErrNotFound
	Get(ctx context.Context, id string) (world.Placement, error)
	// Delete удаляет размещение; отсутствие записи не считается ошибкой
	Delete(ctx context.Context, id string) error
	// Close освобождает соединения
	Close() error
}

// Open создаёт репозиторий по настройкам хранилища
func Open(cfg config.StorageConfig) (PlacementRepository, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return NewMemoryPlacementRepo(), nil
	case config.BackendBadger:
		return NewBadgerPlacementRepo(cfg.Badger.Path)
	case config.BackendRedis:
		return NewRedisPlacementRepo(RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
	case config.BackendMaria:
		return NewMariaPlacementRepo(cfg.Maria.DSN)
	case config.BackendMongo:
		return NewMongoPlacementRepo(MongoOptions{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
		})
	default:
		return nil, fmt.Errorf("неизвестное хранилище %q", cfg.Backend)
	}
}

// OpenWithFallback открывает настроенное хранилище, а при ошибке подключения
// откатывается на память, как это делает сервер при недоступной БД.
func OpenWithFallback(cfg config.StorageConfig) PlacementRepository {
	repo, err := Open(cfg)
	if err != nil {
		logging.Warn("⚠️ Хранилище %s недоступно (%v), используем память", cfg.Backend, err)
		return NewMemoryPlacementRepo()
	}
	logging.Info("💾 Хранилище размещений: %s", cfg.Backend)
	return repo
}

func chunkKey(c world.ChunkCoord) string {
	return fmt.Sprintf("%d:%d", c.Row, c.Col)
}

func validate(p world.Placement) error {
	if p.ID == "" {
		return fmt.Errorf("пустой ID размещения")
	}
	if p.Organism == "" {
		return fmt.Errorf("размещение %s без типа организма", p.ID)
	}
	return nil
}

func encodePlacement(p world.Placement) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("сериализация размещения %s: %w", p.ID, err)
	}
	return data, nil
}

func decodePlacement(data []byte) (world.Placement, error) {
	var p world.Placement
	if err := json.Unmarshal(data, &p); err != nil {
		return world.Placement{}, fmt.Errorf("десериализация размещения: %w", err)
	}
	return p, nil
}

func sortByID(ps []world.Placement) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].ID < ps[j].ID })
}

// upsert заменяет размещение с тем же ID или добавляет новое
func upsert(ps []world.Placement, p world.Placement) []world.Placement {
	for i := range ps {
		if ps[i].ID == p.ID {
			ps[i] = p
			return ps
		}
	}
	return append(ps, p)
}

func without(ps []world.Placement, id string) []world.Placement {
	out := ps[:0]
	for _, p := range ps {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}
