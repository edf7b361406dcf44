package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	_ "github.com/go-sql-driver/mysql"

	"github.com/annel0/biome-terrain/internal/world"
)

// MariaPlacementRepo реализует PlacementRepository для MariaDB/MySQL.
// Использует таблицу placements с индексом по координатам чанка.
type MariaPlacementRepo struct {
	db *sql.DB
}

// NewMariaPlacementRepo создаёт репозиторий для MariaDB.
// Автоматически создаёт таблицу, если она не существует.
//
// Параметры:
//
//	dsn - строка подключения к базе данных (user:pass@tcp(host:port)/dbname)
func NewMariaPlacementRepo(dsn string) (*MariaPlacementRepo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	repo := &MariaPlacementRepo{db: db}
	if err := repo.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать таблицу: %w", err)
	}
	return repo, nil
}

func (r *MariaPlacementRepo) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS placements (
			id         VARCHAR(128) PRIMARY KEY,
			organism   VARCHAR(64)  NOT NULL,
			x          DOUBLE       NOT NULL,
			y          DOUBLE       NOT NULL,
			z          DOUBLE       NOT NULL,
			scale      DOUBLE       NOT NULL,
			rotation   DOUBLE       NOT NULL,
			floating   BOOLEAN      NOT NULL DEFAULT FALSE,
			source     VARCHAR(16)  NOT NULL,
			origin     VARCHAR(128) NOT NULL DEFAULT '',
			chunk_row  INT          NOT NULL,
			chunk_col  INT          NOT NULL,
			updated_at TIMESTAMP    DEFAULT CURRENT_TIMESTAMP
			           ON UPDATE    CURRENT_TIMESTAMP,
			INDEX idx_chunk (chunk_row, chunk_col)
		) ENGINE=InnoDB
	`
	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("ошибка создания таблицы placements: %w", err)
	}
	return nil
}

// Save сохраняет размещение через INSERT ... ON DUPLICATE KEY UPDATE
func (r *MariaPlacementRepo) Save(ctx context.Context, p world.Placement) error {
	if err := validate(p); err != nil {
		return err
	}
	query := `
		INSERT INTO placements (id, organism, x, y, z, scale, rotation, floating, source, origin, chunk_row, chunk_col)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			organism = VALUES(organism),
			x = VALUES(x), y = VALUES(y), z = VALUES(z),
			scale = VALUES(scale),
			rotation = VALUES(rotation),
			floating = VALUES(floating),
			source = VALUES(source),
			origin = VALUES(origin),
			chunk_row = VALUES(chunk_row),
			chunk_col = VALUES(chunk_col),
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Organism, p.Position.X(), p.Position.Y(), p.Position.Z(),
		p.Scale, p.Rotation, p.Float, string(p.Source), p.Origin, p.Chunk.Row, p.Chunk.Col)
	if err != nil {
		return fmt.Errorf("ошибка сохранения размещения %s: %w", p.ID, err)
	}
	return nil
}

const mariaColumns = `id, organism, x, y, z, scale, rotation, floating, source, origin, chunk_row, chunk_col`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlacement(row rowScanner) (world.Placement, error) {
	var (
		p       world.Placement
		x, y, z float64
		source  string
	)
	err := row.Scan(&p.ID, &p.Organism, &x, &y, &z, &p.Scale, &p.Rotation, &p.Float, &source, &p.Origin, &p.Chunk.Row, &p.Chunk.Col)
	if err != nil {
		return world.Placement{}, err
	}
	p.Position = mgl64.Vec3{x, y, z}
	p.Source = world.Source(source)
	p.Persistent = true
	return p, nil
}

// LoadChunk возвращает размещения чанка
func (r *MariaPlacementRepo) LoadChunk(ctx context.Context, c world.ChunkCoord) ([]world.Placement, error) {
	query := `SELECT ` + mariaColumns + ` FROM placements WHERE chunk_row = ? AND chunk_col = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, c.Row, c.Col)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки чанка %s: %w", c, err)
	}
	defer rows.Close()

	var out []world.Placement
	for rows.Next() {
		p, err := scanPlacement(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения строки чанка %s: %w", c, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Get возвращает размещение по ID
func (r *MariaPlacementRepo) Get(ctx context.Context, id string) (world.Placement, error) {
	query := `SELECT ` + mariaColumns + ` FROM placements WHERE id = ?`
	p, err := scanPlacement(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return world.Placement{}, ErrNotFound
	}
	if err != nil {
		return world.Placement{}, fmt.Errorf("ошибка чтения размещения %s: %w", id, err)
	}
	return p, nil
}

// Delete удаляет размещение
func (r *MariaPlacementRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM placements WHERE id = ?`, id); err != nil {
		return fmt.Errorf("ошибка удаления размещения %s: %w", id, err)
	}
	return nil
}

// Close закрывает соединение с базой данных
func (r *MariaPlacementRepo) Close() error {
	return r.db.Close()
}
