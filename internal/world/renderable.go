package world

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// Template — шаблон визуального представления организма
type Template struct {
	Organism string
	// Parts — число подузлов модели; шаблон общий, экземпляры копируют его
	Parts int
}

// TemplatePool кэширует шаблоны по типу организма
type TemplatePool struct {
	mu        sync.Mutex
	templates map[string]*Template
}

// NewTemplatePool создаёт пустой пул
func NewTemplatePool() *TemplatePool {
	return &TemplatePool{templates: make(map[string]*Template)}
}

// Get возвращает шаблон организма, создавая его при первом обращении
func (p *TemplatePool) Get(organism string) *Template {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.templates[organism]; ok {
		return t
	}
	t := &Template{Organism: organism, Parts: 1 + len(organism)%3}
	p.templates[organism] = t
	return t
}

// Len возвращает число шаблонов в пуле
func (p *TemplatePool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.templates)
}

// Renderable — экземпляр объекта в сцене
type Renderable struct {
	nodeID    string
	Template  *Template
	Placement Placement
	Transform mgl64.Mat4
	scale     float64
}

// NodeID реализует SceneNode
func (r *Renderable) NodeID() string {
	return r.nodeID
}

// CurrentScale возвращает текущий масштаб с учётом анимации
func (r *Renderable) CurrentScale() float64 {
	return r.scale
}

func (r *Renderable) setScale(s float64) {
	r.scale = s
	r.Transform = objectTransform(r.Placement.Position, r.Placement.Rotation, s)
}

func objectTransform(pos mgl64.Vec3, rotation, scale float64) mgl64.Mat4 {
	return mgl64.Translate3D(pos.X(), pos.Y(), pos.Z()).
		Mul4(mgl64.HomogRotate3DY(rotation)).
		Mul4(mgl64.Scale3D(scale, scale, scale))
}

func newRenderable(nodeID string, tpl *Template, p Placement) *Renderable {
	clone := *tpl
	r := &Renderable{nodeID: nodeID, Template: &clone, Placement: p}
	r.setScale(p.Scale)
	return r
}
