// Package metrics экспортирует телеметрию стриминга и счётчики прогресса в Prometheus.
//
// Метрики:
// * terrain_progress_total{counter} — counter, именованные счётчики прогресса
// * terrain_chunks_populated_total — counter
// * terrain_chunks_cleaned_total — counter
// * terrain_visible_chunks — gauge
// * terrain_chunk_populate_seconds — histogram
// * terrain_chunk_objects — histogram, объектов в заполненном чанке
// * terrain_placements_total{source} — counter
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/annel0/biome-terrain/internal/world"
)

// TerrainMetrics реализует world.Progress и world.StreamMetrics
type TerrainMetrics struct {
	progress   *prometheus.CounterVec
	populated  prometheus.Counter
	cleaned    prometheus.Counter
	visible    prometheus.Gauge
	duration   prometheus.Histogram
	objects    prometheus.Histogram
	placements *prometheus.CounterVec
}

// New создаёт метрики и регистрирует их в reg. nil — дефолтный регистр.
func New(namespace string, reg prometheus.Registerer) *TerrainMetrics {
	if namespace == "" {
		namespace = "terrain"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &TerrainMetrics{
		progress: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "progress_total",
			Help:      "Именованные счётчики прогресса.",
		}, []string{"counter"}),
		populated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_populated_total",
			Help:      "Сколько раз чанки были заполнены.",
		}),
		cleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_cleaned_total",
			Help:      "Сколько раз чанки были выгружены.",
		}),
		visible: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "visible_chunks",
			Help:      "Чанков в окне видимости.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_populate_seconds",
			Help:      "Длительность заполнения чанка.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		objects: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_objects",
			Help:      "Объектов в заполненном чанке.",
			Buckets:   prometheus.LinearBuckets(0, 8, 10),
		}),
		placements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "placements_total",
			Help:      "Постоянные размещения по источнику.",
		}, []string{"source"}),
	}
	reg.MustRegister(m.progress, m.populated, m.cleaned, m.visible, m.duration, m.objects, m.placements)
	return m
}

// Increment реализует world.Progress
func (m *TerrainMetrics) Increment(counter string) {
	m.progress.WithLabelValues(counter).Inc()
}

// ChunkPopulated реализует world.StreamMetrics
func (m *TerrainMetrics) ChunkPopulated(_ world.ChunkCoord, objects int, took time.Duration) {
	m.populated.Inc()
	m.duration.Observe(took.Seconds())
	m.objects.Observe(float64(objects))
}

// ChunkCleaned реализует world.StreamMetrics
func (m *TerrainMetrics) ChunkCleaned(world.ChunkCoord) {
	m.cleaned.Inc()
}

// VisibleChunks реализует world.StreamMetrics
func (m *TerrainMetrics) VisibleChunks(n int) {
	m.visible.Set(float64(n))
}

// PlacementApplied реализует world.StreamMetrics
func (m *TerrainMetrics) PlacementApplied(source world.Source) {
	m.placements.WithLabelValues(string(source)).Inc()
}
