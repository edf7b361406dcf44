package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"

	"github.com/annel0/biome-terrain/internal/logging"
	"github.com/annel0/biome-terrain/internal/world"
)

// BadgerPlacementRepo хранит размещения в BadgerDB: один сжатый zstd блок на чанк
// и обратный индекс ID -> чанк.
type BadgerPlacementRepo struct {
	db      *badger.DB
	enc     *zstd.Encoder
	dec     *zstd.Decoder
	mutex   sync.RWMutex
	isReady bool
}

// NewBadgerPlacementRepo открывает базу по указанному пути
func NewBadgerPlacementRepo(path string) (*BadgerPlacementRepo, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Отключаем логирование BadgerDB
	return openBadger(opts)
}

// NewInMemoryBadgerRepo открывает BadgerDB без диска (для тестов и утилит)
func NewInMemoryBadgerRepo() (*BadgerPlacementRepo, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return openBadger(opts)
}

func openBadger(opts badger.Options) (*BadgerPlacementRepo, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &BadgerPlacementRepo{db: db, enc: enc, dec: dec, isReady: true}, nil
}

func badgerChunkKey(c world.ChunkCoord) []byte {
	return []byte("placement:chunk:" + chunkKey(c))
}

func badgerIDKey(id string) []byte {
	return []byte("placement:id:" + id)
}

// Close закрывает хранилище
func (r *BadgerPlacementRepo) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.isReady {
		return nil
	}
	r.isReady = false
	r.dec.Close()
	_ = r.enc.Close()
	return r.db.Close()
}

func (r *BadgerPlacementRepo) ready() error {
	if !r.isReady {
		return fmt.Errorf("хранилище не готово")
	}
	return nil
}

// readChunk читает и распаковывает блок чанка внутри транзакции
func (r *BadgerPlacementRepo) readChunk(txn *badger.Txn, c world.ChunkCoord) ([]world.Placement, error) {
	item, err := txn.Get(badgerChunkKey(c))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []world.Placement
	err = item.Value(func(val []byte) error {
		raw, err := r.dec.DecodeAll(val, nil)
		if err != nil {
			return fmt.Errorf("распаковка чанка %s: %w", c, err)
		}
		return json.Unmarshal(raw, &out)
	})
	return out, err
}

func (r *BadgerPlacementRepo) writeChunk(txn *badger.Txn, c world.ChunkCoord, ps []world.Placement) error {
	if len(ps) == 0 {
		return txn.Delete(badgerChunkKey(c))
	}
	sortByID(ps)
	raw, err := json.Marshal(ps)
	if err != nil {
		return fmt.Errorf("сериализация чанка %s: %w", c, err)
	}
	return txn.Set(badgerChunkKey(c), r.enc.EncodeAll(raw, nil))
}

// chunkOf возвращает чанк, в котором лежит размещение с указанным ID
func chunkOf(txn *badger.Txn, id string) (world.ChunkCoord, bool, error) {
	item, err := txn.Get(badgerIDKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return world.ChunkCoord{}, false, nil
	}
	if err != nil {
		return world.ChunkCoord{}, false, err
	}
	var c world.ChunkCoord
	err = item.Value(func(val []byte) error {
		_, err := fmt.Sscanf(string(val), "%d:%d", &c.Row, &c.Col)
		return err
	})
	return c, err == nil, err
}

// Save сохраняет размещение
func (r *BadgerPlacementRepo) Save(_ context.Context, p world.Placement) error {
	if err := validate(p); err != nil {
		return err
	}
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if err := r.ready(); err != nil {
		return err
	}

	err := r.db.Update(func(txn *badger.Txn) error {
		old, found, err := chunkOf(txn, p.ID)
		if err != nil {
			return err
		}
		if found && old != p.Chunk {
			ps, err := r.readChunk(txn, old)
			if err != nil {
				return err
			}
			if err := r.writeChunk(txn, old, without(ps, p.ID)); err != nil {
				return err
			}
		}

		ps, err := r.readChunk(txn, p.Chunk)
		if err != nil {
			return err
		}
		if err := r.writeChunk(txn, p.Chunk, upsert(ps, p)); err != nil {
			return err
		}
		return txn.Set(badgerIDKey(p.ID), []byte(chunkKey(p.Chunk)))
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения размещения %s: %w", p.ID, err)
	}
	logging.Trace("Размещение %s сохранено в чанк %s", p.ID, p.Chunk)
	return nil
}

// LoadChunk возвращает размещения чанка
func (r *BadgerPlacementRepo) LoadChunk(_ context.Context, c world.ChunkCoord) ([]world.Placement, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if err := r.ready(); err != nil {
		return nil, err
	}

	var out []world.Placement
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		out, err = r.readChunk(txn, c)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки чанка %s: %w", c, err)
	}
	return out, nil
}

// Get возвращает размещение по ID
func (r *BadgerPlacementRepo) Get(_ context.Context, id string) (world.Placement, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if err := r.ready(); err != nil {
		return world.Placement{}, err
	}

	var found *world.Placement
	err := r.db.View(func(txn *badger.Txn) error {
		c, ok, err := chunkOf(txn, id)
		if err != nil || !ok {
			return err
		}
		ps, err := r.readChunk(txn, c)
		if err != nil {
			return err
		}
		for i := range ps {
			if ps[i].ID == id {
				found = &ps[i]
				break
			}
		}
		return nil
	})
	if err != nil {
		return world.Placement{}, fmt.Errorf("ошибка чтения размещения %s: %w", id, err)
	}
	if found == nil {
		return world.Placement{}, ErrNotFound
	}
	return *found, nil
}

// Delete удаляет размещение
func (r *BadgerPlacementRepo) Delete(_ context.Context, id string) error {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if err := r.ready(); err != nil {
		return err
	}

	return r.db.Update(func(txn *badger.Txn) error {
		c, ok, err := chunkOf(txn, id)
		if err != nil || !ok {
			return err
		}
		ps, err := r.readChunk(txn, c)
		if err != nil {
			return err
		}
		if err := r.writeChunk(txn, c, without(ps, id)); err != nil {
			return err
		}
		return txn.Delete(badgerIDKey(id))
	})
}
