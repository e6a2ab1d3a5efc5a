// Package sand implements the granular particle engine.
//
// An [Engine] owns every particle, the material table, the world box and
// the broad-phase grid. A driver calls [Engine.Update] once per frame; the
// engine splits the frame into sub-steps and, for each, rebuilds the grid
// and walks the particles in insertion order applying gravity, viscosity,
// pairwise collisions, cohesion, integration and wall response.
//
// # Materials
//
// Particles do not own their physical parameters. They hold a handle into
// the engine's material table, whose first slots are the six built-in
// [Category] defaults. Changing a category with [Engine.SetMaterial]
// therefore retunes every particle of that category on the next step.
//
// # Thread Safety
//
// Engine is NOT safe for concurrent use. Update, AddParticle and the
// setters mutate shared state; readers such as ParticleData and Stats may
// only run concurrently with each other. See internal/stream for a host
// that funnels all mutation through one goroutine.
package sand
