package scenelink

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func assertNear(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > epsilon {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func assertVec(t *testing.T, name string, got, want Vec3) {
	t.Helper()
	assertNear(t, name+".X", got.X, want.X)
	assertNear(t, name+".Y", got.Y, want.Y)
	assertNear(t, name+".Z", got.Z, want.Z)
}

func assertMatrix(t *testing.T, name string, got, want [16]float64) {
	t.Helper()
	for i := range got {
		if math.Abs(got[i]-want[i]) > epsilon {
			t.Errorf("%s[%d] = %v, want %v (full: %v vs %v)", name, i, got[i], want[i], got, want)
		}
	}
}

// --- computeLocalTransform ---

func TestLocalTransformIdentity(t *testing.T) {
	n := NewGroup("test")
	assertMatrix(t, "identity", computeLocalTransform(n), identityMatrix)
}

func TestLocalTransformTranslation(t *testing.T) {
	n := NewGroup("test")
	n.Position = Vec3{10, 20, 30}
	got := computeLocalTransform(n)
	assertMatrix(t, "translation", got, [16]float64{
		1, 0, 0, 10,
		0, 1, 0, 20,
		0, 0, 1, 30,
		0, 0, 0, 1,
	})
}

func TestLocalTransformScale(t *testing.T) {
	n := NewGroup("test")
	n.Scale = Vec3{2, 3, 4}
	got := computeLocalTransform(n)
	assertMatrix(t, "scale", got, [16]float64{
		2, 0, 0, 0,
		0, 3, 0, 0,
		0, 0, 4, 0,
		0, 0, 0, 1,
	})
}

func TestLocalTransformRotationZ90(t *testing.T) {
	n := NewGroup("test")
	n.Rotation = Vec3{Z: math.Pi / 2}
	// +X maps to +Y.
	assertVec(t, "rotZ(x)", transformPoint(computeLocalTransform(n), Vec3{X: 1}), Vec3{Y: 1})
}

func TestLocalTransformRotationX90(t *testing.T) {
	n := NewGroup("test")
	n.Rotation = Vec3{X: math.Pi / 2}
	// +Y maps to +Z.
	assertVec(t, "rotX(y)", transformPoint(computeLocalTransform(n), Vec3{Y: 1}), Vec3{Z: 1})
}

func TestLocalTransformCombined(t *testing.T) {
	n := NewGroup("test")
	n.Position = Vec3{5, 0, 0}
	n.Rotation = Vec3{Z: math.Pi / 2}
	n.Scale = Vec3{2, 2, 2}
	// Scale, then rotate, then translate.
	assertVec(t, "combined", transformPoint(computeLocalTransform(n), Vec3{X: 1}), Vec3{5, 2, 0})
}

// --- multiplyMatrix / invertMatrix ---

func TestMultiplyMatrixIdentity(t *testing.T) {
	n := NewGroup("test")
	n.Position = Vec3{1, 2, 3}
	n.Rotation = Vec3{0.3, 0.2, 0.1}
	m := computeLocalTransform(n)
	assertMatrix(t, "I*m", multiplyMatrix(identityMatrix, m), m)
	assertMatrix(t, "m*I", multiplyMatrix(m, identityMatrix), m)
}

func TestMultiplyMatrixTranslations(t *testing.T) {
	a := NewGroup("a")
	a.Position = Vec3{10, 0, 0}
	b := NewGroup("b")
	b.Position = Vec3{0, 5, 1}
	got := multiplyMatrix(computeLocalTransform(a), computeLocalTransform(b))
	assertVec(t, "origin", transformPoint(got, Vec3{}), Vec3{10, 5, 1})
}

func TestInvertMatrix(t *testing.T) {
	n := NewGroup("test")
	n.Position = Vec3{3, -4, 7}
	n.Rotation = Vec3{0.4, -0.7, 1.1}
	n.Scale = Vec3{2, 0.5, 3}
	m := computeLocalTransform(n)
	assertMatrix(t, "m*inv(m)", multiplyMatrix(m, invertMatrix(m)), identityMatrix)
}

func TestInvertMatrixSingularReturnsIdentity(t *testing.T) {
	n := NewGroup("test")
	n.Scale = Vec3{0, 1, 1}
	assertMatrix(t, "singular", invertMatrix(computeLocalTransform(n)), identityMatrix)
}

// --- updateWorldTransform ---

func TestWorldTransformParentChild(t *testing.T) {
	parent := NewGroup("parent")
	child := NewGroup("child")
	parent.AddChild(child)

	parent.Position = Vec3{X: 100}
	child.Position = Vec3{X: 10}

	updateWorldTransform(parent, identityMatrix, 1.0, false)

	assertNear(t, "parent.tx", parent.worldTransform[3], 100)
	assertNear(t, "child.tx", child.worldTransform[3], 110)
}

func TestAlphaPropagation(t *testing.T) {
	parent := NewGroup("parent")
	child := NewGroup("child")
	parent.AddChild(child)

	parent.Alpha = 0.5
	child.Alpha = 0.5

	updateWorldTransform(parent, identityMatrix, 1.0, false)

	assertNear(t, "parent.worldAlpha", parent.WorldAlpha(), 0.5)
	assertNear(t, "child.worldAlpha", child.WorldAlpha(), 0.25)
}

func TestDirtyFlagSkipsClean(t *testing.T) {
	parent := NewGroup("parent")
	child := NewGroup("child")
	parent.AddChild(child)

	parent.Position = Vec3{X: 100}
	child.Position = Vec3{X: 10}
	updateWorldTransform(parent, identityMatrix, 1.0, false)

	child.Position = Vec3{X: 999} // dirty flag NOT set

	updateWorldTransform(parent, identityMatrix, 1.0, false)

	assertNear(t, "child.tx (stale)", child.worldTransform[3], 110)
}

func TestDirtyFlagRecomputes(t *testing.T) {
	parent := NewGroup("parent")
	child := NewGroup("child")
	parent.AddChild(child)

	parent.Position = Vec3{X: 100}
	child.Position = Vec3{X: 10}
	updateWorldTransform(parent, identityMatrix, 1.0, false)

	child.SetPosition(Vec3{X: 20})
	updateWorldTransform(parent, identityMatrix, 1.0, false)

	assertNear(t, "child.tx (updated)", child.worldTransform[3], 120)
}

func TestParentRecomputedPropagates(t *testing.T) {
	parent := NewGroup("parent")
	child := NewGroup("child")
	parent.AddChild(child)

	parent.Position = Vec3{X: 100}
	child.Position = Vec3{X: 10}
	updateWorldTransform(parent, identityMatrix, 1.0, false)

	// Move parent; child is not directly dirty but must update
	parent.SetPosition(Vec3{X: 200})
	updateWorldTransform(parent, identityMatrix, 1.0, false)

	assertNear(t, "child.tx (from parent)", child.worldTransform[3], 210)
}

// --- Coordinate conversion ---

func TestWorldToLocalRoundtrip(t *testing.T) {
	parent := NewGroup("parent")
	child := NewGroup("child")
	parent.AddChild(child)

	parent.Position = Vec3{100, 50, 0}
	child.Position = Vec3{10, 20, 5}
	child.Scale = Vec3{2, 3, 1}
	child.Rotation = Vec3{Z: math.Pi / 6}

	w := Vec3{150, 80, -3}
	assertVec(t, "roundtrip", child.LocalToWorld(child.WorldToLocal(w)), w)
}

func TestWorldMatrixSeesUncommittedWrites(t *testing.T) {
	parent := NewGroup("parent")
	child := NewGroup("child")
	parent.AddChild(child)
	updateWorldTransform(parent, identityMatrix, 1.0, false)

	parent.Position = Vec3{Y: 4}
	assertVec(t, "world", child.WorldPosition(), Vec3{Y: 4})
}

func TestSetWorldPosition(t *testing.T) {
	parent := NewGroup("parent")
	child := NewGroup("child")
	parent.AddChild(child)
	parent.Position = Vec3{X: 10}
	parent.Scale = Vec3{2, 2, 2}

	child.SetWorldPosition(Vec3{X: 14, Y: 2})
	assertVec(t, "local", child.Position, Vec3{X: 2, Y: 1})
	assertVec(t, "world", child.WorldPosition(), Vec3{X: 14, Y: 2})
	if !child.transformDirty {
		t.Error("SetWorldPosition should mark the node dirty")
	}
}

// --- Deep hierarchy ---

func TestDeepHierarchy(t *testing.T) {
	nodes := make([]*Node, 10)
	for i := range nodes {
		nodes[i] = NewGroup("")
		nodes[i].Position = Vec3{X: 10}
		if i > 0 {
			nodes[i-1].AddChild(nodes[i])
		}
	}
	updateWorldTransform(nodes[0], identityMatrix, 1.0, false)
	assertNear(t, "leaf.tx", nodes[9].worldTransform[3], 100)
}

func TestSettersDirty(t *testing.T) {
	n := NewGroup("n")
	child := NewGroup("c")
	n.AddChild(child)

	setters := []struct {
		name string
		fn   func()
	}{
		{"SetPosition", func() { n.SetPosition(Vec3{X: 1}) }},
		{"SetRotation", func() { n.SetRotation(Vec3{Z: 1}) }},
		{"SetScale", func() { n.SetScale(Vec3{2, 2, 2}) }},
	}
	for _, s := range setters {
		n.transformDirty = false
		child.transformDirty = false
		s.fn()
		if !n.transformDirty || !child.transformDirty {
			t.Errorf("%s should mark the subtree dirty", s.name)
		}
	}

	n.transformDirty = false
	n.SetAlpha(0.5)
	if !n.transformDirty {
		t.Error("SetAlpha should mark dirty")
	}
}

func TestHasIdentityTransform(t *testing.T) {
	n := NewGroup("n")
	if !n.HasIdentityTransform() {
		t.Error("new node should have an identity transform")
	}
	n.Position = Vec3{X: 1}
	if n.HasIdentityTransform() {
		t.Error("translated node should not have an identity transform")
	}
}

// --- CleanFloat ---

func TestCleanFloat(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.1 + 0.2, 0.3},
		{1.0000000000000002, 1},
		{2.5, 2.5},
		{-0.30000000000000004, -0.3},
	}
	for _, tt := range tests {
		if got := CleanFloat(tt.in); got != tt.want {
			t.Errorf("CleanFloat(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if !math.IsNaN(CleanFloat(math.NaN())) {
		t.Error("NaN should pass through")
	}
}

func TestVec3FromValue(t *testing.T) {
	tests := []struct {
		in   any
		want Vec3
		ok   bool
	}{
		{[]float64{1, 2, 3}, Vec3{1, 2, 3}, true},
		{[]any{1.0, 2, 3.5}, Vec3{1, 2, 3.5}, true},
		{2.0, Vec3{2, 2, 2}, true},
		{Vec3{4, 5, 6}, Vec3{4, 5, 6}, true},
		{[]any{1.0, "x", 3.0}, Vec3{}, false},
		{[]float64{1, 2}, Vec3{}, false},
		{"red", Vec3{}, false},
	}
	for _, tt := range tests {
		got, ok := Vec3FromValue(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Vec3FromValue(%v) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
