// Package viz renders a running sand engine in the terminal.
//
// The live view is a Bubble Tea program: particles are projected through
// an orbit [Camera] onto a braille [Canvas], one color per character cell,
// next to a stats panel with a mean height chart and the tunable engine
// parameters.
//
// # Key Bindings
//
//	Space  - Pause/Resume
//	R      - Reset settings and reload the preset
//	P      - Next preset
//	E      - Toggle the emitter, M cycles its material
//	B / W  - Burst at the emitter / rain over the floor
//	1-6    - Quick add a material
//	C / H  - Toggle collisions / cohesion
//	Tab    - Select parameter, Up/Down to tune it
//	X Y    - Orbit the camera, +/- to zoom
//	?      - Help overlay
package viz
