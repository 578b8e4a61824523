package flight

import (
	"fmt"
	"sync"

	"github.com/lao-tseu-is-alive/go-drone-formation/pkg/geometry"
)

// Physics is the rigid-body integrator the control core hands its forces to.
// It owns velocity and position integration; the core only overwrites its output
// through the hard clamp.
type Physics interface {
	AddBody(id int, position geometry.Vector3D) error
	RemoveBody(id int)
	ApplyForce(id int, force geometry.Vector3D)
	Position(id int) geometry.Vector3D
	SetPosition(id int, position geometry.Vector3D)
	Velocity(id int) geometry.Vector3D
	SetVelocity(id int, velocity geometry.Vector3D)
	Step(dt float64)
}

type body struct {
	pos, vel, force geometry.Vector3D
}

// PointMassPhysics integrates identical point masses with semi-implicit Euler
// and linear air damping. Forces accumulate until the next Step.
type PointMassPhysics struct {
	Mass          float64
	LinearDamping float64
	MaxSpeed      float64 // 0 means uncapped

	mu     sync.Mutex
	bodies map[int]*body
}

var _ Physics = (*PointMassPhysics)(nil)

func NewPointMassPhysics() *PointMassPhysics {
	return &PointMassPhysics{
		Mass:          1,
		LinearDamping: 2.0,
		bodies:        make(map[int]*body),
	}
}

func (p *PointMassPhysics) AddBody(id int, position geometry.Vector3D) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.bodies[id]; ok {
		return fmt.Errorf("body %d already exists", id)
	}
	p.bodies[id] = &body{pos: position}
	return nil
}

func (p *PointMassPhysics) RemoveBody(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.bodies, id)
}

func (p *PointMassPhysics) ApplyForce(id int, force geometry.Vector3D) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.bodies[id]; ok {
		b.force = b.force.Add(force)
	}
}

// Position returns the origin for unknown bodies.
func (p *PointMassPhysics) Position(id int) geometry.Vector3D {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.bodies[id]; ok {
		return b.pos
	}
	return geometry.Zero
}

func (p *PointMassPhysics) SetPosition(id int, position geometry.Vector3D) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.bodies[id]; ok {
		b.pos = position
	}
}

func (p *PointMassPhysics) Velocity(id int) geometry.Vector3D {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.bodies[id]; ok {
		return b.vel
	}
	return geometry.Zero
}

func (p *PointMassPhysics) SetVelocity(id int, velocity geometry.Vector3D) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.bodies[id]; ok {
		b.vel = velocity
	}
}

// Step advances every body by dt and clears the accumulated forces.
func (p *PointMassPhysics) Step(dt float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	mass := p.Mass
	if mass <= 0 {
		mass = 1
	}
	damping := geometry.Clamp(1-p.LinearDamping*dt, 0, 1)
	for _, b := range p.bodies {
		b.vel = b.vel.Add(b.force.Mul(dt / mass)).Mul(damping)
		if p.MaxSpeed > 0 {
			b.vel = b.vel.ClampLen(p.MaxSpeed)
		}
		b.pos = b.pos.Add(b.vel.Mul(dt))
		b.force = geometry.Zero
	}
}
