package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/biome-terrain/internal/biome"
	"github.com/annel0/biome-terrain/internal/config"
	"github.com/annel0/biome-terrain/internal/logging"
	"github.com/annel0/biome-terrain/internal/middleware"
	"github.com/annel0/biome-terrain/internal/physics"
	"github.com/annel0/biome-terrain/internal/world"
)

// RestServer представляет REST API инспекции рельефа
type RestServer struct {
	router  *gin.Engine
	http    *http.Server
	terrain *world.Terrain
	options *config.Store
	feed    *PlacementFeed
	metrics *ServerMetrics
	extra   func() map[string]interface{}
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port     string          // адрес для запуска сервера, например ":8088"
	Terrain  *world.Terrain  // обслуживаемый рельеф
	Options  *config.Store   // изменяемые настройки; nil — PUT /api/options недоступен
	Registry *prometheus.Registry
	// Extra добавляет секции в /api/stats (relay, шина событий)
	Extra func() map[string]interface{}
}

// NewRestServer создает новый REST API сервер и подписывает ленту на размещения
func NewRestServer(cfg Config) (*RestServer, error) {
	if cfg.Terrain == nil {
		return nil, errors.New("terrain не задан")
	}
	if cfg.Port == "" {
		cfg.Port = ":8088"
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware("terrain_api"))
	router.Use(middleware.NewRequestLogger().Handler())

	var reg prometheus.Registerer
	if cfg.Registry != nil {
		reg = cfg.Registry
	}
	promMw := middleware.NewPrometheusMiddleware("terrain_api", reg)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	rs := &RestServer{
		router:  router,
		terrain: cfg.Terrain,
		options: cfg.Options,
		feed:    NewPlacementFeed(),
		metrics: NewServerMetrics(),
		extra:   cfg.Extra,
	}
	rs.http = &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	cfg.Terrain.OnPlacement(rs.feed.Publish)

	rs.setupRoutes()
	return rs, nil
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	// Middleware для CORS
	rs.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	api := rs.router.Group("/api")
	{
		api.GET("/stats", rs.handleStats)
		api.GET("/terrain/sample", rs.handleSample)
		api.GET("/organisms", rs.handleOrganisms)
		api.GET("/chunks/:row/:col", rs.handleChunk)
		api.GET("/placements/:row/:col", rs.handlePlacements)
		api.POST("/placements", rs.handleCreatePlacement)
		api.GET("/options", rs.handleGetOptions)
		api.PUT("/options", rs.handleUpdateOptions)
	}

	rs.router.GET("/ws/placements", func(c *gin.Context) {
		rs.feed.HandleConnection(c.Writer, c.Request)
	})

	// Health check
	rs.router.GET("/health", rs.handleHealth)
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, GenericResponse{Success: false, Message: msg})
}

func ok(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: msg, Data: data})
}

// handleStats возвращает сводку рельефа и процесса
func (rs *RestServer) handleStats(c *gin.Context) {
	stats := map[string]interface{}{
		"terrain": rs.terrain.Stats(),
		"server":  rs.metrics.Snapshot(),
		"feed":    map[string]int{"clients": rs.feed.Clients()},
	}
	if rs.extra != nil {
		for k, v := range rs.extra() {
			stats[k] = v
		}
	}
	ok(c, "Статистика получена", stats)
}

// handleSample возвращает значения полей в точке ?x=&z=
func (rs *RestServer) handleSample(c *gin.Context) {
	x, errX := strconv.ParseFloat(c.Query("x"), 64)
	z, errZ := strconv.ParseFloat(c.Query("z"), 64)
	if errX != nil || errZ != nil {
		fail(c, http.StatusBadRequest, "Параметры x и z обязательны")
		return
	}
	ok(c, "Выборка рельефа", rs.terrain.Sample(x, z))
}

func (rs *RestServer) handleOrganisms(c *gin.Context) {
	ok(c, "Каталог организмов", biome.Organisms())
}

// ChunkInfo — состояние чанка для инспекции
type ChunkInfo struct {
	Coord       world.ChunkCoord  `json:"coord"`
	Loaded      bool              `json:"loaded"`
	State       string            `json:"state"`
	Generation  uint64            `json:"generation"`
	Visible     bool              `json:"visible"`
	BBox        physics.AABB      `json:"bbox"`
	Vertices    int               `json:"vertices"`
	Faces       int               `json:"faces"`
	ObjectCount int               `json:"object_count"`
	Objects     []world.Placement `json:"objects,omitempty"`
	Pinned      int               `json:"pinned"`
}

func (rs *RestServer) parseCoord(c *gin.Context) (world.ChunkCoord, bool) {
	row, errR := strconv.Atoi(c.Param("row"))
	col, errC := strconv.Atoi(c.Param("col"))
	if errR != nil || errC != nil {
		fail(c, http.StatusBadRequest, "Неверные координаты чанка")
		return world.ChunkCoord{}, false
	}
	coord := world.ChunkCoord{Row: row, Col: col}
	if !rs.terrain.Dimensions().InBounds(coord) {
		fail(c, http.StatusNotFound, "Чанк вне мира")
		return world.ChunkCoord{}, false
	}
	return coord, true
}

// handleChunk возвращает состояние чанка. ?objects=1 добавляет список объектов.
func (rs *RestServer) handleChunk(c *gin.Context) {
	coord, valid := rs.parseCoord(c)
	if !valid {
		return
	}

	info := ChunkInfo{
		Coord:  coord,
		State:  "unloaded",
		BBox:   rs.terrain.Dimensions().ChunkBBox(coord),
		Pinned: len(rs.terrain.PinnedPlacements(coord)),
	}
	if chunk, exists := rs.terrain.ChunkAt(coord); exists {
		info.Loaded = true
		info.State = chunk.State().String()
		info.Generation = chunk.Generation()
		info.Visible = chunk.IsVisible()
		info.BBox = chunk.BBox()
		info.ObjectCount = chunk.ObjectCount()
		if mesh := chunk.Mesh(); mesh != nil {
			info.Vertices = len(mesh.Vertices)
			info.Faces = len(mesh.Faces)
		}
		if c.Query("objects") != "" {
			info.Objects = chunk.Objects()
		}
	}
	ok(c, "Состояние чанка", info)
}

// handlePlacements возвращает постоянные размещения чанка
func (rs *RestServer) handlePlacements(c *gin.Context) {
	coord, valid := rs.parseCoord(c)
	if !valid {
		return
	}
	placements := rs.terrain.PinnedPlacements(coord)
	ok(c, "Размещения чанка", map[string]interface{}{
		"coord":      coord,
		"placements": placements,
		"total":      len(placements),
	})
}

// PlacementRequest — запрос на размещение объекта через API
type PlacementRequest struct {
	Organism string  `json:"organism" binding:"required"`
	X        float64 `json:"x"`
	Z        float64 `json:"z"`
	Scale    float64 `json:"scale"`
	Rotation float64 `json:"rotation"`
}

// handleCreatePlacement размещает объект от имени внешнего участника «api»
func (rs *RestServer) handleCreatePlacement(c *gin.Context) {
	var req PlacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	p, err := rs.resolvePlacement(req)
	if err != nil {
		fail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := rs.terrain.CheckPlacement(c.Request.Context(), p); err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, world.ErrDuplicatePlacement) {
			status = http.StatusConflict
		}
		fail(c, status, err.Error())
		return
	}
	if !rs.terrain.ApplyRemotePlacement(c.Request.Context(), p, true) {
		fail(c, http.StatusConflict, world.ErrDuplicatePlacement.Error())
		return
	}
	logging.Info("📍 API: размещён %s в (%.1f, %.1f)", p.Organism, p.Position.X(), p.Position.Z())
	c.JSON(http.StatusCreated, GenericResponse{Success: true, Message: "Объект размещён", Data: p})
}

func (rs *RestServer) resolvePlacement(req PlacementRequest) (world.Placement, error) {
	org, exists := biome.LookupOrganism(req.Organism)
	if !exists {
		return world.Placement{}, fmt.Errorf("неизвестный организм %q", req.Organism)
	}
	if _, inside := rs.terrain.ChunkCoordAt(req.X, req.Z); !inside {
		return world.Placement{}, errors.New("точка вне мира")
	}

	gen := rs.terrain.Generator()
	underwater := gen.IsUnderwater(req.X, req.Z)
	y := gen.ComputeHeightAt(req.X, req.Z)
	switch {
	case org.Floats:
		if !underwater {
			return world.Placement{}, errors.New("плавающий объект требует воды")
		}
		y = gen.ComputeWaterHeightAt(req.X, req.Z)
	case org.Underwater:
		if !underwater {
			return world.Placement{}, errors.New("подводный объект требует воды")
		}
	case underwater:
		return world.Placement{}, errors.New("объект нельзя ставить под воду")
	}

	scale := req.Scale
	if scale <= 0 {
		scale = org.ScaleMin
	}
	return world.Placement{
		ID:         world.NewPlacementID(),
		Organism:   org.ID,
		Position:   mgl64.Vec3{req.X, y, req.Z},
		Scale:      scale,
		Rotation:   req.Rotation,
		Float:      org.Floats,
		Persistent: true,
		Source:     world.SourceRemote,
		Origin:     "api",
	}, nil
}

func (rs *RestServer) handleGetOptions(c *gin.Context) {
	if rs.options == nil {
		fail(c, http.StatusNotImplemented, "Настройки не изменяемы")
		return
	}
	ok(c, "Настройки", rs.options.Options())
}

// OptionsPatch — частичное изменение настроек; nil-поля не меняются
type OptionsPatch struct {
	VisibleChunks  *int  `json:"visible_chunks"`
	WaterEffects   *bool `json:"water_effects"`
	WeatherEffects *bool `json:"weather_effects"`
	DebugOverlay   *bool `json:"debug_overlay"`
}

// handleUpdateOptions применяет изменения; вступают в силу на следующем шаге
func (rs *RestServer) handleUpdateOptions(c *gin.Context) {
	if rs.options == nil {
		fail(c, http.StatusNotImplemented, "Настройки не изменяемы")
		return
	}
	var patch OptionsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	if patch.VisibleChunks != nil && *patch.VisibleChunks < 0 {
		fail(c, http.StatusBadRequest, "visible_chunks не может быть отрицательным")
		return
	}

	next := rs.options.Update(func(o *world.RuntimeOptions) {
		if patch.VisibleChunks != nil {
			o.VisibleChunks = *patch.VisibleChunks
		}
		if patch.WaterEffects != nil {
			o.WaterEffects = *patch.WaterEffects
		}
		if patch.WeatherEffects != nil {
			o.WeatherEffects = *patch.WeatherEffects
		}
		if patch.DebugOverlay != nil {
			o.DebugOverlay = *patch.DebugOverlay
		}
	})
	ok(c, "Настройки обновлены", next)
}

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// Handler возвращает http.Handler сервера
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// Feed возвращает ленту размещений
func (rs *RestServer) Feed() *PlacementFeed {
	return rs.feed
}

// Start запускает REST сервер и блокируется до Shutdown
func (rs *RestServer) Start() error {
	logging.Info("🌐 REST API слушает %s", rs.http.Addr)
	if err := rs.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown останавливает сервер и отключает клиентов ленты
func (rs *RestServer) Shutdown(ctx context.Context) error {
	rs.feed.Close()
	return rs.http.Shutdown(ctx)
}
