package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/annel0/biome-terrain/internal/logging"
	"github.com/annel0/biome-terrain/internal/world"
)

// RedisOptions содержит настройки подключения к Redis
type RedisOptions struct {
	Addr     string // Адрес Redis сервера
	Password string // Пароль (пустой если не требуется)
	DB       int    // Номер базы данных
	Prefix   string // Префикс для ключей
}

// RedisPlacementRepo хранит размещения в Redis: хеш на чанк (поле — ID)
// и общий хеш ID -> чанк.
type RedisPlacementRepo struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisPlacementRepo подключается к Redis и проверяет соединение
func NewRedisPlacementRepo(opts RedisOptions) (*RedisPlacementRepo, error) {
	if opts.Addr == "" {
		opts.Addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logging.Info("🔴 Connected to Redis at %s", opts.Addr)
	return NewRedisPlacementRepoWithClient(client, opts.Prefix), nil
}

// NewRedisPlacementRepoWithClient оборачивает готовый клиент
func NewRedisPlacementRepoWithClient(client redis.UniversalClient, prefix string) *RedisPlacementRepo {
	if prefix == "" {
		prefix = "terrain"
	}
	return &RedisPlacementRepo{client: client, prefix: prefix}
}

func (r *RedisPlacementRepo) chunkHash(c world.ChunkCoord) string {
	return r.prefix + ":placements:" + chunkKey(c)
}

func (r *RedisPlacementRepo) indexHash() string {
	return r.prefix + ":placement_index"
}

// Save сохраняет размещение
func (r *RedisPlacementRepo) Save(ctx context.Context, p world.Placement) error {
	if err := validate(p); err != nil {
		return err
	}
	data, err := encodePlacement(p)
	if err != nil {
		return err
	}

	old, err := r.client.HGet(ctx, r.indexHash(), p.ID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to read placement index: %w", err)
	}

	pipe := r.client.TxPipeline()
	if old != "" && old != chunkKey(p.Chunk) {
		pipe.HDel(ctx, r.prefix+":placements:"+old, p.ID)
	}
	pipe.HSet(ctx, r.chunkHash(p.Chunk), p.ID, data)
	pipe.HSet(ctx, r.indexHash(), p.ID, chunkKey(p.Chunk))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save placement %s: %w", p.ID, err)
	}
	return nil
}

// LoadChunk возвращает размещения чанка
func (r *RedisPlacementRepo) LoadChunk(ctx context.Context, c world.ChunkCoord) ([]world.Placement, error) {
	fields, err := r.client.HGetAll(ctx, r.chunkHash(c)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load chunk %s: %w", c, err)
	}
	out := make([]world.Placement, 0, len(fields))
	for id, data := range fields {
		p, err := decodePlacement([]byte(data))
		if err != nil {
			logging.Warn("⚠️ Пропускаем повреждённое размещение %s: %v", id, err)
			continue
		}
		out = append(out, p)
	}
	sortByID(out)
	return out, nil
}

// Get возвращает размещение по ID
func (r *RedisPlacementRepo) Get(ctx context.Context, id string) (world.Placement, error) {
	key, err := r.client.HGet(ctx, r.indexHash(), id).Result()
	if errors.Is(err, redis.Nil) {
		return world.Placement{}, ErrNotFound
	} else if err != nil {
		return world.Placement{}, fmt.Errorf("failed to read placement index: %w", err)
	}
	data, err := r.client.HGet(ctx, r.prefix+":placements:"+key, id).Result()
	if errors.Is(err, redis.Nil) {
		return world.Placement{}, ErrNotFound
	} else if err != nil {
		return world.Placement{}, fmt.Errorf("failed to get placement %s: %w", id, err)
	}
	return decodePlacement([]byte(data))
}

// Delete удаляет размещение
func (r *RedisPlacementRepo) Delete(ctx context.Context, id string) error {
	key, err := r.client.HGet(ctx, r.indexHash(), id).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to read placement index: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.HDel(ctx, r.prefix+":placements:"+key, id)
	pipe.HDel(ctx, r.indexHash(), id)
	_, err = pipe.Exec(ctx)
	return err
}

// Close закрывает соединение
func (r *RedisPlacementRepo) Close() error {
	return r.client.Close()
}
