package preview

import "github.com/phanxgames/scenelink"

// Camera maps the scene's XY plane onto the preview window with an
// orthographic projection looking down -Z. World Y points up; screen Y
// points down.
type Camera struct {
	// X and Y are the world-space point the camera centers on.
	X, Y float64
	// PixelsPerUnit is the zoom: screen pixels per world unit.
	PixelsPerUnit float64
	// Viewport is the screen-space rectangle the camera renders into.
	Viewport scenelink.Rect

	viewMatrix    [6]float64
	invViewMatrix [6]float64
	dirty         bool
}

// NewCamera creates a camera centered on the origin.
func NewCamera(viewport scenelink.Rect, pixelsPerUnit float64) *Camera {
	if pixelsPerUnit <= 0 {
		pixelsPerUnit = 50
	}
	return &Camera{PixelsPerUnit: pixelsPerUnit, Viewport: viewport, dirty: true}
}

// MarkDirty forces a recomputation of the view matrix.
func (c *Camera) MarkDirty() {
	c.dirty = true
}

// computeViewMatrix recomputes the cached view matrix if dirty.
//
// viewMatrix = Translate(cx, cy) * Scale(z, -z) * Translate(-X, -Y)
// where cx, cy = viewport center.
func (c *Camera) computeViewMatrix() {
	if !c.dirty {
		return
	}
	c.dirty = false

	cx := c.Viewport.X + c.Viewport.Width/2
	cy := c.Viewport.Y + c.Viewport.Height/2
	z := c.PixelsPerUnit

	// [a b tx]   [z   0  cx - z*X]
	// [c d ty] = [0  -z  cy + z*Y]
	c.viewMatrix = [6]float64{z, 0, 0, -z, cx - z*c.X, cy + z*c.Y}
	c.invViewMatrix = [6]float64{1 / z, 0, 0, -1 / z, c.X - cx/z, c.Y + cy/z}
}

func transformPoint(m [6]float64, x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// WorldToScreen converts world coordinates to screen coordinates.
func (c *Camera) WorldToScreen(wx, wy float64) (sx, sy float64) {
	c.computeViewMatrix()
	return transformPoint(c.viewMatrix, wx, wy)
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (c *Camera) ScreenToWorld(sx, sy float64) (wx, wy float64) {
	c.computeViewMatrix()
	return transformPoint(c.invViewMatrix, sx, sy)
}

// ScreenRect projects a world-space rectangle to screen space.
func (c *Camera) ScreenRect(r scenelink.Rect) scenelink.Rect {
	x0, y0 := c.WorldToScreen(r.X, r.Y+r.Height)
	x1, y1 := c.WorldToScreen(r.X+r.Width, r.Y)
	return scenelink.Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}
