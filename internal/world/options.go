package world

import "time"

// RuntimeOptions — настройки, которые могут меняться во время работы
type RuntimeOptions struct {
	VisibleChunks  int  `json:"visible_chunks"`
	WaterEffects   bool `json:"water_effects"`
	WeatherEffects bool `json:"weather_effects"`
	DebugOverlay   bool `json:"debug_overlay"`
}

// DefaultRuntimeOptions возвращает настройки по умолчанию
func DefaultRuntimeOptions() RuntimeOptions {
	return RuntimeOptions{
		VisibleChunks:  3,
		WaterEffects:   true,
		WeatherEffects: true,
	}
}

// OptionsProvider отдаёт актуальные настройки. Читается в начале каждой операции.
type OptionsProvider interface {
	Options() RuntimeOptions
}

// StaticOptions — неизменяемый провайдер настроек
type StaticOptions RuntimeOptions

// Options реализует OptionsProvider
func (s StaticOptions) Options() RuntimeOptions {
	return RuntimeOptions(s)
}

// Tuning — параметры алгоритмов стриминга и размещения
type Tuning struct {
	// RetentionMargin — на сколько чанков за окном видимости чанк ещё не выгружается
	RetentionMargin int
	// PopulateWorkers — размер пула заполнения чанков
	PopulateWorkers int
	// ThrottleRadius — радиус «рядом уже есть объект» для фонового рассеивания
	ThrottleRadius float64
	// ScatterStride — шаг решётки кандидатов рассеивания в ячейках
	ScatterStride int
	// ScatterAttempts — попыток с дрожанием на одного кандидата
	ScatterAttempts int
	// SpecialIterationCap — лимит выборки с отклонением для особых объектов
	SpecialIterationCap int
	// PreviewRateHz — частота пересчёта предпросмотра
	PreviewRateHz     float64
	FeedbackDelay     time.Duration
	AnimationDuration time.Duration
	AnimationSteps    int
}

// DefaultTuning возвращает параметры по умолчанию
func DefaultTuning() Tuning {
	return Tuning{
		RetentionMargin:     1,
		PopulateWorkers:     4,
		ThrottleRadius:      1.5,
		ScatterStride:       2,
		ScatterAttempts:     4,
		SpecialIterationCap: 1000,
		PreviewRateHz:       20,
		FeedbackDelay:       150 * time.Millisecond,
		AnimationDuration:   400 * time.Millisecond,
		AnimationSteps:      8,
	}
}

// normalized подставляет значения по умолчанию вместо нулевых
func (t Tuning) normalized() Tuning {
	def := DefaultTuning()
	if t.RetentionMargin < 0 {
		t.RetentionMargin = 0
	}
	if t.PopulateWorkers <= 0 {
		t.PopulateWorkers = def.PopulateWorkers
	}
	if t.ScatterStride <= 0 {
		t.ScatterStride = def.ScatterStride
	}
	if t.ScatterAttempts <= 0 {
		t.ScatterAttempts = def.ScatterAttempts
	}
	if t.SpecialIterationCap <= 0 {
		t.SpecialIterationCap = def.SpecialIterationCap
	}
	if t.PreviewRateHz <= 0 {
		t.PreviewRateHz = def.PreviewRateHz
	}
	if t.AnimationSteps <= 0 {
		t.AnimationSteps = def.AnimationSteps
	}
	return t
}
