package viz

import (
	"sort"

	"github.com/san-kum/sandsim/internal/sand"
)

type drawn struct {
	x, y  int
	depth float64
	color int
}

// Draw projects the world box and every active particle onto c, farthest
// first so the nearest particle colors a shared cell. Colors are palette
// indices: the particle's category, or boxColor for the outline.
func Draw(c *Canvas, cam *Camera, e *sand.Engine) {
	c.Clear()
	pw, ph := c.PixelSize()

	for _, edge := range boxEdges(e.World()) {
		x0, y0, _ := cam.Project(edge[0], pw, ph)
		x1, y1, _ := cam.Project(edge[1], pw, ph)
		c.DrawLine(x0, y0, x1, y1, boxColor)
	}

	order := make([]drawn, 0, e.Len())
	e.Each(func(_ sand.Handle, p sand.Particle, _ sand.Properties) bool {
		x, y, d := cam.Project(p.Position, pw, ph)
		order = append(order, drawn{x, y, d, int(p.Category)})
		return true
	})
	sort.Slice(order, func(i, j int) bool { return order[i].depth < order[j].depth })
	for _, d := range order {
		c.Set(d.x, d.y, d.color)
	}
}
