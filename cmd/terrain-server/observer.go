package main

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/biome-terrain/internal/biome"
	"github.com/annel0/biome-terrain/internal/logging"
	"github.com/annel0/biome-terrain/internal/physics"
	"github.com/annel0/biome-terrain/internal/world"
)

// orbitObserver — сценарный наблюдатель: облетает центр мира по кругу на
// постоянной высоте над рельефом и смотрит по касательной.
type orbitObserver struct {
	gen    *biome.Generator
	center mgl64.Vec3
	radius float64
	// рад/с
	speed  float64
	height float64
	start  time.Time
}

func newOrbitObserver(gen *biome.Generator, dims world.Dimensions, start time.Time) *orbitObserver {
	return &orbitObserver{
		gen:    gen,
		center: mgl64.Vec3{dims.Width() / 2, 0, dims.Depth() / 2},
		radius: math.Min(dims.Width(), dims.Depth()) / 3,
		speed:  0.05,
		height: 12,
		start:  start,
	}
}

func (o *orbitObserver) angle(now time.Time) float64 {
	return now.Sub(o.start).Seconds() * o.speed
}

// position возвращает положение глаза на момент now
func (o *orbitObserver) position(now time.Time) mgl64.Vec3 {
	a := o.angle(now)
	x := o.center.X() + o.radius*math.Cos(a)
	z := o.center.Z() + o.radius*math.Sin(a)
	return mgl64.Vec3{x, o.gen.ComputeHeightAt(x, z) + o.height, z}
}

// target — точка на земле впереди по ходу движения
func (o *orbitObserver) target(now time.Time) mgl64.Vec3 {
	eye := o.position(now)
	a := o.angle(now)
	dir := mgl64.Vec3{-math.Sin(a), 0, math.Cos(a)}
	ahead := eye.Add(dir.Mul(o.height * 2))
	return mgl64.Vec3{ahead.X(), o.gen.ComputeHeightAt(ahead.X(), ahead.Z()), ahead.Z()}
}

// Observer собирает шаг стриминга с пирамидой видимости
func (o *orbitObserver) Observer(now time.Time) world.Observer {
	eye := o.position(now)
	frustum := physics.NewPerspectiveFrustum(eye, o.target(now), mgl64.DegToRad(75), 16.0/9.0, 0.1, 1000)
	return world.Observer{Position: eye, Frustum: frustum}
}

// Pointer возвращает луч «курсора» из глаза в точку впереди
func (o *orbitObserver) Pointer(now time.Time) physics.Ray {
	eye := o.position(now)
	return physics.NewRay(eye, o.target(now).Sub(eye))
}

// logFeedback пишет косметические эффекты в лог
type logFeedback struct{}

func (logFeedback) PlaySound(name string, at mgl64.Vec3) {
	logging.Trace("🔊 %s в (%.1f, %.1f, %.1f)", name, at.X(), at.Y(), at.Z())
}
