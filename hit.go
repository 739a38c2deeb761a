package scenelink

import "math"

// Rect is an axis-aligned rectangle on the XY plane.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// WorldBounds returns the XY projection of the node's world-space box, as
// seen by an orthographic camera looking down -Z. Zero-size nodes return
// an empty Rect.
func (n *Node) WorldBounds() Rect {
	if n.Size.IsZero() {
		return Rect{}
	}
	m := n.WorldMatrix()
	h := Vec3{n.Size.X / 2, n.Size.Y / 2, n.Size.Z / 2}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := 0; i < 8; i++ {
		c := Vec3{h.X, h.Y, h.Z}
		if i&1 != 0 {
			c.X = -c.X
		}
		if i&2 != 0 {
			c.Y = -c.Y
		}
		if i&4 != 0 {
			c.Z = -c.Z
		}
		p := transformPoint(m, c)
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// collectPickable walks the tree in painter order (depth-first), appending
// visible meshes to buf. Hidden subtrees are skipped.
func collectPickable(n *Node, buf []*Node) []*Node {
	if !n.Visible {
		return buf
	}
	if n.Type == NodeTypeMesh && !n.Size.IsZero() {
		buf = append(buf, n)
	}
	for _, child := range n.children {
		buf = collectPickable(child, buf)
	}
	return buf
}

// HitTest finds the topmost visible mesh at world point (wx, wy).
// Returns nil if nothing is hit.
func (s *Scene) HitTest(wx, wy float64) *Node {
	s.hitBuf = collectPickable(s.root, s.hitBuf[:0])

	// Iterate backward (reverse painter order): topmost visual node first.
	for i := len(s.hitBuf) - 1; i >= 0; i-- {
		n := s.hitBuf[i]
		if n.WorldBounds().Contains(wx, wy) {
			return n
		}
	}
	return nil
}

// PickAt hit-tests the world point and selects the owning element. Misses
// and picks outside the open file are silent no-ops.
func (s *Scene) PickAt(wx, wy float64) bool {
	n := s.HitTest(wx, wy)
	if n == nil {
		return false
	}
	return s.Pick(n)
}
