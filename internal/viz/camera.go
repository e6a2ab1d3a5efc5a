package viz

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/sandsim/internal/sand"
)

const (
	minZoom = 0.25
	maxZoom = 8
)

// Camera is an orthographic orbit camera around the middle of the world
// box. Zero yaw and pitch is the front view: x to the right, y up.
type Camera struct {
	Yaw, Pitch float64
	Zoom       float64
	Center     mgl64.Vec3
	Extent     float64
}

func NewCamera(w sand.World) *Camera {
	span := w.Max.Sub(w.Min)
	return &Camera{
		Zoom:   1,
		Center: w.Min.Add(span.Mul(0.5)),
		Extent: math.Max(span[0], math.Max(span[1], span[2])),
	}
}

func (c *Camera) Orbit(dyaw, dpitch float64) {
	c.Yaw += dyaw
	c.Pitch = mgl64.Clamp(c.Pitch+dpitch, -math.Pi/2, math.Pi/2)
}

func (c *Camera) ZoomIn()  { c.Zoom = math.Min(c.Zoom*1.1, maxZoom) }
func (c *Camera) ZoomOut() { c.Zoom = math.Max(c.Zoom/1.1, minZoom) }

func (c *Camera) Reset() {
	c.Yaw, c.Pitch, c.Zoom = 0, 0, 1
}

// Project maps p onto a pw x ph pixel plane. depth grows toward the
// viewer.
func (c *Camera) Project(p mgl64.Vec3, pw, ph int) (x, y int, depth float64) {
	rot := mgl64.Rotate3DX(c.Pitch).Mul3(mgl64.Rotate3DY(c.Yaw))
	r := rot.Mul3x1(p.Sub(c.Center))
	scale := c.Zoom * float64(min(pw, ph)) / c.Extent
	x = int(math.Round(float64(pw)/2 + r[0]*scale))
	y = int(math.Round(float64(ph)/2 - r[1]*scale))
	return x, y, r[2]
}

// boxEdges lists the twelve edges of the world box as corner pairs.
func boxEdges(w sand.World) [12][2]mgl64.Vec3 {
	var corners [8]mgl64.Vec3
	for i := range corners {
		for axis := 0; axis < 3; axis++ {
			if i&(1<<axis) != 0 {
				corners[i][axis] = w.Max[axis]
			} else {
				corners[i][axis] = w.Min[axis]
			}
		}
	}
	var edges [12][2]mgl64.Vec3
	n := 0
	for i := range corners {
		for axis := 0; axis < 3; axis++ {
			if j := i | 1<<axis; j != i {
				edges[n] = [2]mgl64.Vec3{corners[i], corners[j]}
				n++
			}
		}
	}
	return edges
}
