package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"

	"github.com/annel0/biome-terrain/internal/biome"
	"github.com/annel0/biome-terrain/internal/noise"
	"github.com/annel0/biome-terrain/internal/world"
)

// Config корневая структура конфигурации приложения
type Config struct {
	World     WorldConfig         `yaml:"world" toml:"world"`
	Streaming StreamingConfig     `yaml:"streaming" toml:"streaming"`
	Placement PlacementConfig     `yaml:"placement" toml:"placement"`
	Runtime   RuntimeConfig       `yaml:"runtime" toml:"runtime"`
	Special   []world.SpecialSpec `yaml:"special" toml:"special"`
	Storage   StorageConfig       `yaml:"storage" toml:"storage"`
	NATS      NATSConfig          `yaml:"nats" toml:"nats"`
	Server    ServerConfig        `yaml:"server" toml:"server"`
	Telemetry TelemetryConfig     `yaml:"telemetry" toml:"telemetry"`
	Logging   LoggingConfig       `yaml:"logging" toml:"logging"`
}

type WorldConfig struct {
	Seed      int64   `yaml:"seed" toml:"seed"`
	Biome     string  `yaml:"biome" toml:"biome"`
	ChunksX   int     `yaml:"chunks_x" toml:"chunks_x"`
	ChunksZ   int     `yaml:"chunks_z" toml:"chunks_z"`
	Cols      int     `yaml:"cols" toml:"cols"`
	Rows      int     `yaml:"rows" toml:"rows"`
	CellSize  float64 `yaml:"cell_size" toml:"cell_size"`
	MinHeight float64 `yaml:"min_height" toml:"min_height"`
	MaxHeight float64 `yaml:"max_height" toml:"max_height"`
	Noise     string  `yaml:"noise" toml:"noise"`
	// Strict — паника при дыре в таблице суб-биомов (для отладки таблиц)
	Strict bool `yaml:"strict" toml:"strict"`
}

// StreamingConfig — радиусы стриминга. nil означает «по умолчанию», 0 допустим.
type StreamingConfig struct {
	VisibleChunks   *int `yaml:"visible_chunks" toml:"visible_chunks"`
	RetentionMargin *int `yaml:"retention_margin" toml:"retention_margin"`
	PopulateWorkers int  `yaml:"populate_workers" toml:"populate_workers"`
}

type PlacementConfig struct {
	ThrottleRadius      float64 `yaml:"throttle_radius" toml:"throttle_radius"`
	ScatterStride       int     `yaml:"scatter_stride" toml:"scatter_stride"`
	ScatterAttempts     int     `yaml:"scatter_attempts" toml:"scatter_attempts"`
	SpecialIterationCap int     `yaml:"special_iteration_cap" toml:"special_iteration_cap"`
	PreviewRateHz       float64 `yaml:"preview_rate_hz" toml:"preview_rate_hz"`
	FeedbackDelayMs     int     `yaml:"feedback_delay_ms" toml:"feedback_delay_ms"`
	AnimationMs         int     `yaml:"animation_ms" toml:"animation_ms"`
	AnimationSteps      int     `yaml:"animation_steps" toml:"animation_steps"`
}

// RuntimeConfig — начальные значения переключателей. nil означает «по умолчанию».
type RuntimeConfig struct {
	WaterEffects   *bool `yaml:"water_effects" toml:"water_effects"`
	WeatherEffects *bool `yaml:"weather_effects" toml:"weather_effects"`
	DebugOverlay   bool  `yaml:"debug_overlay" toml:"debug_overlay"`
}

type StorageConfig struct {
	Backend string       `yaml:"backend" toml:"backend"`
	Badger  BadgerConfig `yaml:"badger" toml:"badger"`
	Redis   RedisConfig  `yaml:"redis" toml:"redis"`
	Maria   MariaConfig  `yaml:"maria" toml:"maria"`
	Mongo   MongoConfig  `yaml:"mongo" toml:"mongo"`
}

type BadgerConfig struct {
	Path string `yaml:"path" toml:"path"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" toml:"addr"`
	Password string `yaml:"password" toml:"password"`
	DB       int    `yaml:"db" toml:"db"`
	Prefix   string `yaml:"prefix" toml:"prefix"`
}

type MariaConfig struct {
	DSN string `yaml:"dsn" toml:"dsn"`
}

type MongoConfig struct {
	URI        string `yaml:"uri" toml:"uri"`
	Database   string `yaml:"database" toml:"database"`
	Collection string `yaml:"collection" toml:"collection"`
}

type NATSConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	URL     string `yaml:"url" toml:"url"`
	Stream  string `yaml:"stream" toml:"stream"`
	// NodeID помечает исходящие события; пустое значение — случайный ID при старте
	NodeID string `yaml:"node_id" toml:"node_id"`
}

type ServerConfig struct {
	HTTPPort int `yaml:"http_port" toml:"http_port"`
	TickHz   int `yaml:"tick_hz" toml:"tick_hz"`
}

type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled" toml:"enabled"`
	Endpoint    string  `yaml:"endpoint" toml:"endpoint"`
	ServiceName string  `yaml:"service_name" toml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio" toml:"sample_ratio"`
}

type LoggingConfig struct {
	Level string `yaml:"level" toml:"level"`
	Dir   string `yaml:"dir" toml:"dir"`
}

// Storage backends
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendRedis  = "redis"
	BackendMaria  = "maria"
	BackendMongo  = "mongo"
)

const defaultNATSURL = "nats://127.0.0.1:4222"

// MaxTickHz верхняя граница частоты цикла обновления
const MaxTickHz = 1000

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults заполняет незаданные поля значениями по умолчанию
func (c *Config) applyDefaults() {
	dims := world.DefaultDimensions()
	w := &c.World
	if w.Seed == 0 {
		w.Seed = 1337
	}
	if w.Biome == "" {
		w.Biome = biome.Temperate.String()
	}
	if w.ChunksX == 0 {
		w.ChunksX = dims.ChunksX
	}
	if w.ChunksZ == 0 {
		w.ChunksZ = dims.ChunksZ
	}
	if w.Cols == 0 {
		w.Cols = dims.Cols
	}
	if w.Rows == 0 {
		w.Rows = dims.Rows
	}
	if w.CellSize == 0 {
		w.CellSize = dims.CellSize
	}
	if w.MinHeight == 0 && w.MaxHeight == 0 {
		w.MinHeight, w.MaxHeight = dims.MinHeight, dims.MaxHeight
	}
	if w.Noise == "" {
		w.Noise = string(noise.BackendPerlin)
	}

	tuning := world.DefaultTuning()
	if c.Streaming.VisibleChunks == nil {
		c.Streaming.VisibleChunks = intPtr(world.DefaultRuntimeOptions().VisibleChunks)
	}
	if c.Streaming.RetentionMargin == nil {
		c.Streaming.RetentionMargin = intPtr(tuning.RetentionMargin)
	}
	if c.Streaming.PopulateWorkers == 0 {
		c.Streaming.PopulateWorkers = tuning.PopulateWorkers
	}

	p := &c.Placement
	if p.ThrottleRadius == 0 {
		p.ThrottleRadius = tuning.ThrottleRadius
	}
	if p.ScatterStride == 0 {
		p.ScatterStride = tuning.ScatterStride
	}
	if p.ScatterAttempts == 0 {
		p.ScatterAttempts = tuning.ScatterAttempts
	}
	if p.SpecialIterationCap == 0 {
		p.SpecialIterationCap = tuning.SpecialIterationCap
	}
	if p.PreviewRateHz == 0 {
		p.PreviewRateHz = tuning.PreviewRateHz
	}
	if p.FeedbackDelayMs == 0 {
		p.FeedbackDelayMs = int(tuning.FeedbackDelay / time.Millisecond)
	}
	if p.AnimationMs == 0 {
		p.AnimationMs = int(tuning.AnimationDuration / time.Millisecond)
	}
	if p.AnimationSteps == 0 {
		p.AnimationSteps = tuning.AnimationSteps
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendMemory
	}
	if c.Storage.Badger.Path == "" {
		c.Storage.Badger.Path = "data/placements"
	}
	if c.Storage.Redis.Prefix == "" {
		c.Storage.Redis.Prefix = "terrain"
	}
	if c.Storage.Mongo.Database == "" {
		c.Storage.Mongo.Database = "terrain"
	}
	if c.Storage.Mongo.Collection == "" {
		c.Storage.Mongo.Collection = "placements"
	}
	if c.NATS.Stream == "" {
		c.NATS.Stream = "TERRAIN_EVENTS"
	}
	if c.Server.TickHz == 0 {
		c.Server.TickHz = 60
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "biome-terrain"
	}
	if c.Telemetry.SampleRatio == 0 {
		c.Telemetry.SampleRatio = 1
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func intPtr(v int) *int { return &v }

// GetHTTPPort возвращает порт REST API с поддержкой fallback значений
func (s *ServerConfig) GetHTTPPort() int {
	return getPortWithEnvFallback(s.HTTPPort, "TERRAIN_HTTP_PORT", 8088)
}

// GetURL возвращает адрес NATS: config -> env -> default
func (n *NATSConfig) GetURL() string {
	if n.URL != "" {
		return n.URL
	}
	if env := os.Getenv("TERRAIN_NATS_URL"); env != "" {
		return env
	}
	return defaultNATSURL
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Dimensions возвращает размеры мира
func (c *Config) Dimensions() world.Dimensions {
	return world.Dimensions{
		ChunksX:   c.World.ChunksX,
		ChunksZ:   c.World.ChunksZ,
		Cols:      c.World.Cols,
		Rows:      c.World.Rows,
		CellSize:  c.World.CellSize,
		MinHeight: c.World.MinHeight,
		MaxHeight: c.World.MaxHeight,
	}
}

// Tuning возвращает параметры стриминга и размещения
func (c *Config) Tuning() world.Tuning {
	return world.Tuning{
		RetentionMargin:     derefInt(c.Streaming.RetentionMargin),
		PopulateWorkers:     c.Streaming.PopulateWorkers,
		ThrottleRadius:      c.Placement.ThrottleRadius,
		ScatterStride:       c.Placement.ScatterStride,
		ScatterAttempts:     c.Placement.ScatterAttempts,
		SpecialIterationCap: c.Placement.SpecialIterationCap,
		PreviewRateHz:       c.Placement.PreviewRateHz,
		FeedbackDelay:       time.Duration(c.Placement.FeedbackDelayMs) * time.Millisecond,
		AnimationDuration:   time.Duration(c.Placement.AnimationMs) * time.Millisecond,
		AnimationSteps:      c.Placement.AnimationSteps,
	}
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// RuntimeOptions возвращает начальные значения изменяемых настроек
func (c *Config) RuntimeOptions() world.RuntimeOptions {
	opts := world.DefaultRuntimeOptions()
	opts.VisibleChunks = derefInt(c.Streaming.VisibleChunks)
	if c.Runtime.WaterEffects != nil {
		opts.WaterEffects = *c.Runtime.WaterEffects
	}
	if c.Runtime.WeatherEffects != nil {
		opts.WeatherEffects = *c.Runtime.WeatherEffects
	}
	opts.DebugOverlay = c.Runtime.DebugOverlay
	return opts
}

// GeneratorConfig возвращает параметры генератора рельефа
func (c *Config) GeneratorConfig() biome.GeneratorConfig {
	return biome.GeneratorConfig{
		Seed:      c.World.Seed,
		Backend:   noise.Backend(c.World.Noise),
		MinHeight: c.World.MinHeight,
		MaxHeight: c.World.MaxHeight,
		Strict:    c.World.Strict,
	}
}

// Validate проверяет согласованность конфигурации
func (c *Config) Validate() error {
	if _, err := biome.ParseKind(c.World.Biome); err != nil {
		return fmt.Errorf("world.biome: %w", err)
	}
	switch noise.Backend(c.World.Noise) {
	case noise.BackendPerlin, noise.BackendSimplex:
	default:
		return fmt.Errorf("world.noise: неизвестный генератор шума %q", c.World.Noise)
	}
	if err := c.Dimensions().Validate(); err != nil {
		return fmt.Errorf("world: %w", err)
	}
	if derefInt(c.Streaming.VisibleChunks) < 0 {
		return fmt.Errorf("streaming.visible_chunks не может быть отрицательным")
	}
	if derefInt(c.Streaming.RetentionMargin) < 0 {
		return fmt.Errorf("streaming.retention_margin не может быть отрицательным")
	}
	if c.Server.TickHz <= 0 || c.Server.TickHz > MaxTickHz {
		return fmt.Errorf("server.tick_hz должен быть в диапазоне 1..%d, получено %d", MaxTickHz, c.Server.TickHz)
	}
	switch c.Storage.Backend {
	case BackendMemory, BackendBadger, BackendRedis, BackendMaria, BackendMongo:
	default:
		return fmt.Errorf("storage.backend: неизвестное хранилище %q", c.Storage.Backend)
	}
	if c.Storage.Backend == BackendMaria && c.Storage.Maria.DSN == "" {
		return fmt.Errorf("storage.maria.dsn обязателен для хранилища maria")
	}
	if c.Storage.Backend == BackendMongo && c.Storage.Mongo.URI == "" {
		return fmt.Errorf("storage.mongo.uri обязателен для хранилища mongo")
	}
	for i, s := range c.Special {
		if _, ok := biome.LookupOrganism(s.Organism); !ok {
			return fmt.Errorf("special[%d]: неизвестный организм %q", i, s.Organism)
		}
	}
	return nil
}

// Load читает файл конфигурации (YAML или TOML по расширению).
// Если path == "", берёт путь из ENV TERRAIN_CONFIG; если и он пуст — возвращает Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("TERRAIN_CONFIG")
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
