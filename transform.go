package scenelink

import "math"

// identityMatrix is the 4x4 identity, row-major.
var identityMatrix = [16]float64{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

// computeLocalTransform computes the local affine matrix from the node's
// transform properties. Row-major, column vectors.
//
// Composition order:
//
//	Scale -> Rotate(X, then Y, then Z applied as Rx*Ry*Rz) -> Translate(Position)
func computeLocalTransform(n *Node) [16]float64 {
	sx, cx := math.Sincos(n.Rotation.X)
	sy, cy := math.Sincos(n.Rotation.Y)
	sz, cz := math.Sincos(n.Rotation.Z)

	// R = Rx * Ry * Rz
	r00 := cy * cz
	r01 := -cy * sz
	r02 := sy
	r10 := cx*sz + sx*sy*cz
	r11 := cx*cz - sx*sy*sz
	r12 := -sx * cy
	r20 := sx*sz - cx*sy*cz
	r21 := sx*cz + cx*sy*sz
	r22 := cx * cy

	s := n.Scale
	p := n.Position
	return [16]float64{
		r00 * s.X, r01 * s.Y, r02 * s.Z, p.X,
		r10 * s.X, r11 * s.Y, r12 * s.Z, p.Y,
		r20 * s.X, r21 * s.Y, r22 * s.Z, p.Z,
		0, 0, 0, 1,
	}
}

// multiplyMatrix multiplies two affine matrices: result = p * c.
func multiplyMatrix(p, c [16]float64) [16]float64 {
	var out [16]float64
	for r := 0; r < 3; r++ {
		for col := 0; col < 4; col++ {
			v := p[r*4]*c[col] + p[r*4+1]*c[4+col] + p[r*4+2]*c[8+col]
			if col == 3 {
				v += p[r*4+3]
			}
			out[r*4+col] = v
		}
	}
	out[15] = 1
	return out
}

// invertMatrix computes the inverse of an affine matrix.
// Returns the identity matrix if the linear part is singular (determinant ≈ 0).
func invertMatrix(m [16]float64) [16]float64 {
	a, b, c := m[0], m[1], m[2]
	d, e, f := m[4], m[5], m[6]
	g, h, i := m[8], m[9], m[10]

	co00 := e*i - f*h
	co01 := -(d*i - f*g)
	co02 := d*h - e*g
	det := a*co00 + b*co01 + c*co02
	if det > -1e-12 && det < 1e-12 {
		return identityMatrix
	}
	inv := 1.0 / det

	// Inverse of the 3x3 linear part (adjugate / det).
	i00 := co00 * inv
	i01 := (c*h - b*i) * inv
	i02 := (b*f - c*e) * inv
	i10 := co01 * inv
	i11 := (a*i - c*g) * inv
	i12 := (c*d - a*f) * inv
	i20 := co02 * inv
	i21 := (b*g - a*h) * inv
	i22 := (a*e - b*d) * inv

	tx, ty, tz := m[3], m[7], m[11]
	return [16]float64{
		i00, i01, i02, -(i00*tx + i01*ty + i02*tz),
		i10, i11, i12, -(i10*tx + i11*ty + i12*tz),
		i20, i21, i22, -(i20*tx + i21*ty + i22*tz),
		0, 0, 0, 1,
	}
}

// transformPoint applies an affine matrix to a point.
func transformPoint(m [16]float64, v Vec3) Vec3 {
	return Vec3{
		m[0]*v.X + m[1]*v.Y + m[2]*v.Z + m[3],
		m[4]*v.X + m[5]*v.Y + m[6]*v.Z + m[7],
		m[8]*v.X + m[9]*v.Y + m[10]*v.Z + m[11],
	}
}

// updateWorldTransform recomputes a node's worldTransform and worldAlpha.
// parentRecomputed indicates whether the parent was recomputed this frame,
// which forces recomputation of this node even if it's not dirty.
func updateWorldTransform(n *Node, parentTransform [16]float64, parentAlpha float64, parentRecomputed bool) {
	recompute := n.transformDirty || parentRecomputed
	if recompute {
		local := computeLocalTransform(n)
		n.worldTransform = multiplyMatrix(parentTransform, local)
		n.worldAlpha = parentAlpha * n.Alpha
		n.transformDirty = false
	}

	for _, child := range n.children {
		updateWorldTransform(child, n.worldTransform, n.worldAlpha, recompute)
	}
}

// --- Transform property setters ---

// SetPosition sets the node's local position and marks it dirty.
func (n *Node) SetPosition(p Vec3) {
	n.Position = p
	markSubtreeDirty(n)
}

// SetRotation sets the node's Euler rotation (radians) and marks it dirty.
func (n *Node) SetRotation(r Vec3) {
	n.Rotation = r
	markSubtreeDirty(n)
}

// SetScale sets the node's scale and marks it dirty.
func (n *Node) SetScale(s Vec3) {
	n.Scale = s
	markSubtreeDirty(n)
}

// SetAlpha sets the node's alpha and marks it dirty.
func (n *Node) SetAlpha(a float64) {
	n.Alpha = a
	n.transformDirty = true
}

// MarkDirty marks the node's transform as dirty, forcing recomputation
// on the next frame. Useful after bulk-setting fields directly.
func (n *Node) MarkDirty() {
	n.transformDirty = true
}

// WorldAlpha returns the alpha computed by the last Update, the product of
// the node's and its ancestors' Alpha.
func (n *Node) WorldAlpha() float64 {
	return n.worldAlpha
}

// HasIdentityTransform reports whether the node's local transform leaves
// points unchanged in position and scale.
func (n *Node) HasIdentityTransform() bool {
	return n.Position.IsZero() && n.Scale == Vec3One
}

// --- Coordinate conversion ---

// WorldMatrix computes the node's world matrix from its ancestors' current
// local transforms. Unlike the cached world transform it never lags behind
// field writes made during the current frame.
func (n *Node) WorldMatrix() [16]float64 {
	m := computeLocalTransform(n)
	for p := n.Parent; p != nil; p = p.Parent {
		m = multiplyMatrix(computeLocalTransform(p), m)
	}
	return m
}

// parentWorldMatrix is the world matrix of n's parent, or identity for roots.
func (n *Node) parentWorldMatrix() [16]float64 {
	if n.Parent == nil {
		return identityMatrix
	}
	return n.Parent.WorldMatrix()
}

// WorldPosition returns the node's origin in world space.
func (n *Node) WorldPosition() Vec3 {
	m := n.WorldMatrix()
	return Vec3{m[3], m[7], m[11]}
}

// SetWorldPosition moves the node so its origin lands on p in world space.
func (n *Node) SetWorldPosition(p Vec3) {
	n.SetPosition(transformPoint(invertMatrix(n.parentWorldMatrix()), p))
}

// WorldToLocal converts a world-space point to this node's local coordinate space.
func (n *Node) WorldToLocal(w Vec3) Vec3 {
	return transformPoint(invertMatrix(n.WorldMatrix()), w)
}

// LocalToWorld converts a local-space point to world-space.
func (n *Node) LocalToWorld(l Vec3) Vec3 {
	return transformPoint(n.WorldMatrix(), l)
}
