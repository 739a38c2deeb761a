package preview

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phanxgames/scenelink"
)

const epsilon = 1e-9

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestCameraRoundTrip(t *testing.T) {
	cam := NewCamera(scenelink.Rect{Width: 800, Height: 600}, 40)
	cam.X, cam.Y = 3, -2
	cam.MarkDirty()

	sx, sy := cam.WorldToScreen(3, -2)
	if !approxEqual(sx, 400) || !approxEqual(sy, 300) {
		t.Errorf("WorldToScreen(center) = (%v, %v), want (400, 300)", sx, sy)
	}

	wx, wy := cam.ScreenToWorld(cam.WorldToScreen(5.5, 1.25))
	if !approxEqual(wx, 5.5) || !approxEqual(wy, 1.25) {
		t.Errorf("round trip = (%v, %v), want (5.5, 1.25)", wx, wy)
	}
}

func TestCameraYUp(t *testing.T) {
	cam := NewCamera(scenelink.Rect{Width: 100, Height: 100}, 10)
	_, low := cam.WorldToScreen(0, 0)
	_, high := cam.WorldToScreen(0, 1)
	if high >= low {
		t.Errorf("world +Y should move up the screen: y(0)=%v y(1)=%v", low, high)
	}

	r := cam.ScreenRect(scenelink.Rect{X: -1, Y: -1, Width: 2, Height: 2})
	assert.InDelta(t, 40, r.X, epsilon)
	assert.InDelta(t, 40, r.Y, epsilon)
	assert.InDelta(t, 20, r.Width, epsilon)
	assert.InDelta(t, 20, r.Height, epsilon)
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want Color
	}{
		{"red", Color{1, 0, 0, 1}},
		{"RED", Color{1, 0, 0, 1}},
		{"#f00", Color{1, 0, 0, 1}},
		{"#00ff00", Color{0, 1, 0, 1}},
		{"#0000ff00", Color{0, 0, 1, 0}},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "notacolor", "#12345"} {
		_, err := ParseColor(bad)
		assert.Error(t, err, bad)
	}
}

func TestMeshColorFromAttachedMaterial(t *testing.T) {
	mesh := scenelink.NewMesh("mesh", scenelink.Vec3One)
	material := scenelink.NewCarrier(scenelink.CarrierMeta{Name: "meshStandardMaterial", Attached: true})
	obj := scenelink.NewGroup("meshStandardMaterial")
	obj.Props = scenelink.Props{"color": "blue"}
	material.AddChild(obj)
	mesh.AddChild(material)

	assert.Equal(t, Color{0, 0, 1, 1}, meshColor(mesh))

	mesh.Props = scenelink.Props{"color": "#ffffff"}
	assert.Equal(t, Color{1, 1, 1, 1}, meshColor(mesh))

	assert.Equal(t, defaultMeshColor, meshColor(scenelink.NewMesh("plain", scenelink.Vec3One)))
}

func TestClickSelectsThroughInjectedInput(t *testing.T) {
	s := scenelink.NewScene()
	carrier := scenelink.NewCarrier(scenelink.CarrierMeta{
		Identity: scenelink.Identity{Path: "scene.tsx", Line: 1, Column: 1},
		Name:     "mesh",
		Caps:     scenelink.Capabilities{Translate: true},
	})
	carrier.AddChild(scenelink.NewMesh("mesh", scenelink.Vec3One))
	s.Root().AddChild(carrier)

	g := New(s, Config{Width: 200, Height: 200, PixelsPerUnit: 20})
	g.handlePointer(100, 100, true)
	s.Update()
	g.handlePointer(100, 100, false)
	s.Update()

	require.NotNil(t, s.Selection())
	assert.Equal(t, carrier.Carrier.Identity, s.Selection().Identity)
}

func TestDragMovesSelectedTarget(t *testing.T) {
	s := scenelink.NewScene()
	carrier := scenelink.NewCarrier(scenelink.CarrierMeta{
		Identity: scenelink.Identity{Path: "scene.tsx", Line: 1, Column: 1},
		Name:     "mesh",
		Caps:     scenelink.Capabilities{Translate: true},
	})
	mesh := scenelink.NewMesh("mesh", scenelink.Vec3One)
	carrier.AddChild(mesh)
	s.Root().AddChild(carrier)
	s.Update()
	require.True(t, s.SelectIdentity(carrier.Carrier.Identity))

	g := New(s, Config{Width: 200, Height: 200, PixelsPerUnit: 20})
	g.handlePointer(100, 100, true)
	s.Update()
	g.handlePointer(140, 100, true) // 2 world units right
	s.Update()
	g.handlePointer(140, 100, false)
	s.Update()
	s.Update()

	assert.False(t, s.Dragging())
	assert.InDelta(t, 2, mesh.Position.X, epsilon)
	v, ok := s.Store().Value(carrier.Carrier.Key(), "position")
	require.True(t, ok)
	assert.Equal(t, []float64{2, 0, 0}, v)
}

func TestStatusText(t *testing.T) {
	s := scenelink.NewScene()
	assert.Equal(t, "FPS: 60.0\nTPS: 60.0\nselection: none\nmode: translate", statusText(60, 60, s))

	id := scenelink.Identity{Path: "scene.tsx", Line: 2, Column: 3}
	carrier := scenelink.NewCarrier(scenelink.CarrierMeta{Identity: id, Name: "mesh"})
	carrier.AddChild(scenelink.NewMesh("mesh", scenelink.Vec3One))
	s.Root().AddChild(carrier)
	require.True(t, s.SelectIdentity(id))

	got := statusText(59.94, 60, s)
	assert.Contains(t, got, "FPS: 59.9\n")
	assert.Contains(t, got, "selection: mesh scene.tsx:2:3\n")
	assert.Contains(t, got, "mode: translate (disabled)")
}

func TestSanitizeLabel(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", "unlabeled"},
		{"  ", "unlabeled"},
		{"mesh_scene.tsx:2:3", "mesh_scene.tsx_2_3"},
		{"a/b c", "a_b_c"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeLabel(tt.in), tt.in)
	}
}

func TestUnpremultiply(t *testing.T) {
	img := unpremultiply([]byte{
		100, 50, 0, 200, // half-ish transparent
		10, 20, 30, 255, // opaque untouched
		0, 0, 0, 0, // fully transparent untouched
	}, 3, 1)
	assert.Equal(t, []byte{127, 63, 0, 200}, img.Pix[0:4])
	assert.Equal(t, []byte{10, 20, 30, 255}, img.Pix[4:8])
	assert.Equal(t, []byte{0, 0, 0, 0}, img.Pix[8:12])
}

func TestScreenshotQueuesLabels(t *testing.T) {
	g := New(scenelink.NewScene(), Config{})
	assert.Equal(t, "screenshots", g.cfg.ScreenshotDir)
	assert.Equal(t, "scene", g.shotLabel())
	g.Screenshot("first")
	g.Screenshot("second")
	assert.Equal(t, []string{"first", "second"}, g.shots)
}
