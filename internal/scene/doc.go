// Package scene fills an engine with prebuilt particle arrangements and
// drives the continuous emitter.
//
// Builders lay particles out on a lattice with Spacing between centers.
// Presets are named compositions of builders; Apply clears the engine
// before building one.
package scene
