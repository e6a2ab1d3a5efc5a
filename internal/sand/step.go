package sand

import "math"

const (
	// contacts closer than this are treated as coincident and skipped
	minContactDistSq = 1e-4
	minTangentLen    = 1e-3

	cohesionRadiusScale = 4.0
	minCohesionDistSq   = 0.01
)

// Update advances the simulation by dt, split into Settings.SubSteps equal
// sub-steps. A non-positive dt means one configured time step.
func (e *Engine) Update(dt float64) {
	if dt <= 0 {
		dt = e.settings.TimeStep
	}
	n := e.settings.SubSteps
	if n < 1 {
		n = 1
	}
	sub := dt / float64(n)
	for i := 0; i < n; i++ {
		e.step(sub)
	}
}

// step is one sub-step. The per-particle order matters: each particle sees
// neighbors already moved earlier in the same pass.
func (e *Engine) step(dt float64) {
	e.grid.Clear()
	for i := range e.particles {
		if e.particles[i].Active {
			e.grid.Insert(i, e.particles[i].Position)
		}
	}

	g := e.world.Gravity.Mul(e.settings.GravityScale * dt)
	for i := range e.particles {
		p := &e.particles[i]
		if !p.Active {
			continue
		}
		props := &e.materials[p.props]

		p.Velocity = p.Velocity.Add(g.Mul(props.GravityScale))

		if props.Viscosity > 0 {
			p.Velocity = p.Velocity.Mul(viscousDamping(props.Viscosity, dt))
		}

		if e.settings.Collisions {
			e.collide(i)
		}

		if e.settings.Cohesion && props.Cohesion > 0 {
			e.cohere(i, dt)
		}

		p.Position = p.Position.Add(p.Velocity.Mul(dt))
		e.bounce(p, props)
		p.Age += dt
	}

	e.contain()
}

// viscousDamping is the per-step velocity factor 1 - viscosity*dt, kept in
// [0, 1] so a large step stops the particle instead of reversing it.
func viscousDamping(viscosity, dt float64) float64 {
	return math.Max(0, math.Min(1, 1-viscosity*dt))
}

// collide resolves contacts between particle i and its grid neighbors.
// Both particles of a pair are moved and have their velocities changed,
// and the pair is visited again from the other side later in the pass.
func (e *Engine) collide(i int) {
	p := &e.particles[i]
	pp := &e.materials[p.props]

	e.scratch = e.grid.AppendNeighbors(e.scratch[:0], p.Position)
	for _, k := range e.scratch {
		if k == i {
			continue
		}
		o := &e.particles[k]
		if !o.Active {
			continue
		}
		op := &e.materials[o.props]

		diff := p.Position.Sub(o.Position)
		distSq := diff.Dot(diff)
		minDist := pp.Size + op.Size
		if distSq >= minDist*minDist || distSq <= minContactDistSq {
			continue
		}

		dist := math.Sqrt(distSq)
		normal := diff.Mul(1 / dist)
		overlap := minDist - dist

		// the heavier particle moves less
		total := pp.Mass + op.Mass
		p.Position = p.Position.Add(normal.Mul(overlap * (op.Mass / total) * 0.5))
		o.Position = o.Position.Sub(normal.Mul(overlap * (pp.Mass / total) * 0.5))

		relVel := p.Velocity.Sub(o.Velocity)
		velAlongNormal := relVel.Dot(normal)
		if velAlongNormal > 0 {
			continue
		}

		restitution := (pp.Restitution + op.Restitution) * 0.5
		j := -(1 + restitution) * velAlongNormal / (1/pp.Mass + 1/op.Mass)
		impulse := normal.Mul(j)
		p.Velocity = p.Velocity.Add(impulse.Mul(1 / pp.Mass))
		o.Velocity = o.Velocity.Sub(impulse.Mul(1 / op.Mass))

		// Friction scales with the normal impulse directly; there is no
		// Coulomb cone clamp.
		tangent := relVel.Sub(normal.Mul(velAlongNormal))
		tl := tangent.Len()
		if tl <= minTangentLen {
			continue
		}
		tangent = tangent.Mul(1 / tl)
		mu := (pp.Friction + op.Friction) * 0.5 * e.settings.FrictionScale
		fi := tangent.Mul(mu * j)
		p.Velocity = p.Velocity.Sub(fi.Mul(0.5 / pp.Mass))
		o.Velocity = o.Velocity.Add(fi.Mul(0.5 / op.Mass))
	}
}

// cohere pulls particle i toward active neighbors of the same category
// inside 4x its size, with linear falloff to zero at the radius.
func (e *Engine) cohere(i int, dt float64) {
	p := &e.particles[i]
	pp := &e.materials[p.props]
	radius := pp.Size * cohesionRadiusScale
	radiusSq := radius * radius

	e.scratch = e.grid.AppendNeighbors(e.scratch[:0], p.Position)
	for _, k := range e.scratch {
		if k == i {
			continue
		}
		o := &e.particles[k]
		if !o.Active || o.Category != p.Category {
			continue
		}

		diff := o.Position.Sub(p.Position)
		distSq := diff.Dot(diff)
		if distSq >= radiusSq || distSq <= minCohesionDistSq {
			continue
		}
		dist := math.Sqrt(distSq)
		strength := pp.Cohesion * (1 - dist/radius)
		p.Velocity = p.Velocity.Add(diff.Mul(strength * dt / dist))
	}
}

// bounce keeps p inside the world box. On contact the normal velocity is
// reflected and scaled by restitution, and the two tangential components
// lose (friction * FrictionScale) of their value.
func (e *Engine) bounce(p *Particle, props *Properties) {
	r := props.Size
	slide := 1 - props.Friction*e.settings.FrictionScale
	for axis := 0; axis < 3; axis++ {
		lo := e.world.Min[axis] + r
		hi := e.world.Max[axis] - r
		switch {
		case p.Position[axis] < lo:
			p.Position[axis] = lo
		case p.Position[axis] > hi:
			p.Position[axis] = hi
		default:
			continue
		}
		p.Velocity[axis] *= -props.Restitution
		for other := 0; other < 3; other++ {
			if other != axis {
				p.Velocity[other] *= slide
			}
		}
	}
}

// contain clamps positions only. A particle already past its own bounce
// can be pushed through a wall by a later neighbor's positional
// correction in the same pass.
func (e *Engine) contain() {
	for i := range e.particles {
		p := &e.particles[i]
		if !p.Active {
			continue
		}
		r := e.materials[p.props].Size
		for axis := 0; axis < 3; axis++ {
			lo := e.world.Min[axis] + r
			hi := e.world.Max[axis] - r
			if p.Position[axis] < lo {
				p.Position[axis] = lo
			} else if p.Position[axis] > hi {
				p.Position[axis] = hi
			}
		}
	}
}
