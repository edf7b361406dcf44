package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/annel0/biome-terrain/internal/api"
	"github.com/annel0/biome-terrain/internal/biome"
	"github.com/annel0/biome-terrain/internal/config"
	"github.com/annel0/biome-terrain/internal/eventbus"
	"github.com/annel0/biome-terrain/internal/logging"
	"github.com/annel0/biome-terrain/internal/metrics"
	"github.com/annel0/biome-terrain/internal/observability"
	"github.com/annel0/biome-terrain/internal/relay"
	"github.com/annel0/biome-terrain/internal/storage"
	"github.com/annel0/biome-terrain/internal/world"
)

func main() {
	var (
		configPath = flag.String("config", "", "Путь к конфигурации (YAML или TOML)")
		nodeID     = flag.String("node", "", "Идентификатор узла (перекрывает nats.node_id)")
		autoPlace  = flag.Duration("autoplace", 5*time.Second, "Период сценарного размещения объектов, 0 — выключено")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	if *nodeID != "" {
		cfg.NATS.NodeID = *nodeID
	}
	if cfg.NATS.NodeID == "" {
		cfg.NATS.NodeID = uuid.NewString()
	}

	// Инициализируем систему логирования
	if cfg.Logging.Dir != "" {
		logging.LogDir = cfg.Logging.Dir
	}
	if err := logging.InitDefaultLogger("terrain"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()
	logging.SetDefaultLevel(logging.ParseLevel(cfg.Logging.Level))

	logging.Info("🌍 Запуск biome-terrain: биом=%s сид=%d узел=%s", cfg.World.Biome, cfg.World.Seed, cfg.NATS.NodeID)

	if err := run(cfg, *autoPlace); err != nil {
		logging.Error("❌ %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
	logging.Info("👋 Сервер успешно остановлен")
}

func run(cfg *config.Config, autoPlace time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === ТЕЛЕМЕТРИЯ ===
	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		logging.Warn("⚠️ OpenTelemetry недоступен: %v", err)
		shutdownTelemetry = func(context.Context) error { return nil }
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logging.Warn("⚠️ Ошибка остановки телеметрии: %v", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	terrainMetrics := metrics.New("terrain", reg)

	// === ХРАНИЛИЩЕ ===
	repo := storage.OpenWithFallback(cfg.Storage)
	defer func() {
		if err := repo.Close(); err != nil {
			logging.Warn("⚠️ Ошибка закрытия хранилища: %v", err)
		}
	}()

	// === ШИНА СОБЫТИЙ ===
	bus := openBus(cfg)
	defer bus.Close()
	if _, err := eventbus.StartLoggingListener(bus); err != nil {
		return fmt.Errorf("логирование событий: %w", err)
	}
	exporter := eventbus.NewMetricsExporter(bus, reg)
	exporter.Start(5 * time.Second)
	defer exporter.Stop()

	rl := relay.New(bus, cfg.NATS.NodeID, true)
	if err := logging.GetLoggerManager().SetLogLevel("relay", logging.ParseLevel(cfg.Logging.Level), logging.TRACE); err != nil {
		logging.Warn("⚠️ %v", err)
	}

	// === РЕЛЬЕФ ===
	kind, err := biome.ParseKind(cfg.World.Biome)
	if err != nil {
		return err
	}
	b, err := biome.New(kind)
	if err != nil {
		return err
	}
	gen, err := biome.NewGenerator(b, cfg.GeneratorConfig())
	if err != nil {
		return fmt.Errorf("генератор рельефа: %w", err)
	}

	options := config.NewStore(cfg.RuntimeOptions())
	options.Subscribe(func(prev, next world.RuntimeOptions) {
		ev, err := eventbus.NewEnvelope(cfg.NATS.NodeID, eventbus.EventOptionsChanged, 3, next)
		if err != nil {
			return
		}
		if err := bus.Publish(context.Background(), ev); err != nil {
			logging.Warn("⚠️ Не удалось опубликовать смену настроек: %v", err)
		}
	})

	dims := cfg.Dimensions()
	terrain, err := world.NewTerrain(world.TerrainConfig{
		Generator:   gen,
		Dims:        dims,
		Tuning:      cfg.Tuning(),
		Options:     options,
		Scene:       world.NewMemoryScene(),
		Archive:     repo,
		Progress:    terrainMetrics,
		Broadcaster: rl,
		Feedback:    logFeedback{},
		Metrics:     terrainMetrics,
		NodeID:      cfg.NATS.NodeID,
		Special:     cfg.Special,
	})
	if err != nil {
		return fmt.Errorf("создание рельефа: %w", err)
	}

	start := time.Now()
	observer := newOrbitObserver(gen, dims, start)
	if err := terrain.Load(ctx, observer.position(start)); err != nil {
		return fmt.Errorf("загрузка мира: %w", err)
	}

	if err := rl.Start(ctx, terrain); err != nil {
		return fmt.Errorf("запуск relay: %w", err)
	}
	defer rl.Stop()

	// === REST API ===
	port := cfg.Server.GetHTTPPort()
	server, err := api.NewRestServer(api.Config{
		Port:     fmt.Sprintf(":%d", port),
		Terrain:  terrain,
		Options:  options,
		Registry: reg,
		Extra: func() map[string]interface{} {
			return map[string]interface{}{
				"relay": rl.Stats(),
				"bus":   bus.Metrics(),
				"node":  cfg.NATS.NodeID,
			}
		},
	})
	if err != nil {
		return err
	}
	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Start() }()

	logging.Info("✅ Все сервисы запущены")
	logging.Info("   🌐 REST API: http://localhost:%d/api/stats", port)
	logging.Info("   📡 Лента размещений: ws://localhost:%d/ws/placements", port)
	logging.Info("   📈 Метрики: http://localhost:%d/metrics", port)

	// === ЦИКЛ СИМУЛЯЦИИ ===
	tick := time.NewTicker(time.Second / time.Duration(cfg.Server.TickHz))
	defer tick.Stop()
	var placeC <-chan time.Time
	if autoPlace > 0 {
		placeTicker := time.NewTicker(autoPlace)
		defer placeTicker.Stop()
		placeC = placeTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			logging.Info("📡 Получен сигнал завершения, останавливаемся...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)

		case err := <-serverErr:
			if err != nil {
				return fmt.Errorf("REST API: %w", err)
			}
			return nil

		case now := <-tick.C:
			res, err := terrain.Update(ctx, observer.Observer(now), now)
			if err != nil {
				logging.Warn("⚠️ Шаг стриминга: %v", err)
				continue
			}
			if res.Populated > 0 || res.Cleaned > 0 {
				logging.Debug("Шаг: центр %s, видно %d, заполнено %d, выгружено %d",
					res.Center, res.Visible, res.Populated, res.Cleaned)
			}

		case now := <-placeC:
			terrain.PointerMove(observer.Pointer(now), now)
			if p := terrain.Commit(ctx, now); p != nil {
				logging.Info("🌱 Сценарное размещение %s в чанке %s", p.Organism, p.Chunk)
			} else {
				terrain.Cancel()
			}
		}
	}
}

// openBus подключается к JetStream, а при ошибке откатывается на шину в памяти
func openBus(cfg *config.Config) eventbus.EventBus {
	if !cfg.NATS.Enabled {
		return eventbus.NewMemoryBus(1024)
	}
	bus, err := eventbus.NewJetStreamBus(cfg.NATS.GetURL(), cfg.NATS.Stream, 24*time.Hour)
	if err != nil {
		logging.Warn("⚠️ NATS недоступен (%v), события только локально", err)
		return eventbus.NewMemoryBus(1024)
	}
	return bus
}
