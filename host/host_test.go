package host

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phanxgames/scenelink"
	"github.com/phanxgames/scenelink/instrument"
)

const sceneSource = `import { Box } from "./box";

export function Scene() {
  return (
    <mesh><Box position={[1, 0, 0]} /><meshStandardMaterial color="red" /></mesh>
  );
}
`

const boxSource = `export function Box() {
  return (
    <group>
      <group>
        <mesh position={[0, 1, 0]}>
          <boxGeometry args={[2, 3, 4]} />
        </mesh>
      </group>
    </group>
  );
}
`

func mustInstrument(t *testing.T, path, src string) *instrument.Result {
	t.Helper()
	res, err := instrument.Instrument(path, []byte(src))
	require.NoError(t, err)
	return res
}

func TestBuildWrapsEveryElement(t *testing.T) {
	h := New(scenelink.NewScene())
	root := h.Build(mustInstrument(t, "scene.tsx", sceneSource))

	require.Equal(t, 1, root.NumChildren())
	meshCarrier := root.ChildAt(0)
	require.Equal(t, scenelink.NodeTypeCarrier, meshCarrier.Type)
	assert.Equal(t, scenelink.Identity{Path: "scene.tsx", Line: 5, Column: 5}, meshCarrier.Carrier.Identity)

	mesh := meshCarrier.Object()
	require.Equal(t, scenelink.NodeTypeMesh, mesh.Type)
	require.Equal(t, 2, mesh.NumChildren())

	box := mesh.ChildAt(0)
	assert.Equal(t, scenelink.Identity{Path: "scene.tsx", Line: 5, Column: 11}, box.Carrier.Identity)
	assert.Equal(t, scenelink.CustomElement{Component: "Box"}, box.Carrier.Kind)
	assert.True(t, box.Carrier.Caps.Translate)
	assert.Equal(t, scenelink.NodeTypeGroup, box.Object().Type)

	material := mesh.ChildAt(1)
	assert.True(t, material.Carrier.Attached)
	assert.Equal(t, scenelink.Props{"color": "red"}, material.Carrier.Values)
}

func TestBuildExpandsLibraryComponents(t *testing.T) {
	s := scenelink.NewScene()
	h := New(s)
	h.add(mustInstrument(t, "box.tsx", boxSource))
	h.Mount(mustInstrument(t, "scene.tsx", sceneSource))

	var inner *scenelink.Node
	s.Root().Walk(func(n *scenelink.Node) bool {
		if n.Type == scenelink.NodeTypeCarrier && n.Carrier.Identity.Path == "box.tsx" && n.Carrier.Name == "mesh" {
			inner = n
		}
		return true
	})
	require.NotNil(t, inner, "library mesh carrier")
	assert.Equal(t, scenelink.Vec3{X: 2, Y: 3, Z: 4}, inner.Object().Size)
	assert.Equal(t, scenelink.Props{"position": []any{0.0, 1.0, 0.0}}, inner.Carrier.Values)
	assert.Equal(t, "scene.tsx", s.OpenFile())
}

func TestPickInsideLibraryComponent(t *testing.T) {
	s := scenelink.NewScene()
	h := New(s)
	h.add(mustInstrument(t, "box.tsx", boxSource))
	h.Mount(mustInstrument(t, "scene.tsx", sceneSource))
	s.Update()

	var innerMesh *scenelink.Node
	s.Root().Walk(func(n *scenelink.Node) bool {
		if n.Type == scenelink.NodeTypeMesh && n.Size == (scenelink.Vec3{X: 2, Y: 3, Z: 4}) {
			innerMesh = n
		}
		return true
	})
	require.NotNil(t, innerMesh)

	require.True(t, s.SetTransformMode(scenelink.ModeRotate))
	require.True(t, s.Pick(innerMesh))

	sel := s.Selection()
	assert.Equal(t, scenelink.Identity{Path: "scene.tsx", Line: 5, Column: 11}, sel.Identity)
	assert.Same(t, innerMesh, sel.Target, "rotate falls back to the translatable descendant")
	assert.Equal(t, "box.tsx", sel.TargetMeta().Identity.Path)
}

// startLink connects a host-side bridge to a runtime bridge serving s and
// runs both until the test ends.
func startLink(t *testing.T, s *scenelink.Scene) *scenelink.Bridge {
	t.Helper()
	hostCh, runtimeCh := scenelink.NewPipe()
	runtime := scenelink.NewBridge(runtimeCh, scenelink.WithTestMode(true))
	hostBridge := scenelink.NewBridge(hostCh)
	s.SetBridge(runtime)
	unsubscribe := scenelink.RegisterRuntimeHandlers(runtime, s)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{}, 2)
	go func() { _ = runtime.Run(ctx); done <- struct{}{} }()
	go func() { _ = hostBridge.Run(ctx); done <- struct{}{} }()
	t.Cleanup(func() {
		unsubscribe()
		cancel()
		<-done
		<-done
		_ = hostBridge.Close()
		_ = runtime.Close()
	})
	return hostBridge
}

func TestScenarioPersistPosition(t *testing.T) {
	s := scenelink.NewScene()
	h := New(s)
	h.Mount(mustInstrument(t, "scene.tsx", sceneSource))
	s.Update()
	hostBridge := startLink(t, s)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ref := scenelink.ElementRef{Path: "scene.tsx", Line: 5, Column: 11}
	_, err := hostBridge.Request(ctx, scenelink.EventRequestFocusElement, ref)
	require.NoError(t, err)
	s.Update()
	require.NotNil(t, s.Selection())
	assert.Equal(t, ref.Identity(), s.Selection().Identity)

	_, err = hostBridge.Request(ctx, scenelink.EventRequestPersistProp, scenelink.PropPayload{
		ElementRef: ref,
		PropName:   "position",
		PropValue:  []float64{2, 0, 0},
	})
	require.NoError(t, err)

	got, err := scenelink.Call[scenelink.ValuePayload](ctx, hostBridge, scenelink.EventRequestElementValue,
		scenelink.PropPayload{ElementRef: ref, PropName: "position"})
	require.NoError(t, err)
	assert.True(t, got.Found)
	assert.Equal(t, []any{2.0, 0.0, 0.0}, got.Value)

	s.Update()
	assert.Equal(t, scenelink.Vec3{X: 2}, s.Selection().Target.Position)
}

func TestScenarioResetColor(t *testing.T) {
	s := scenelink.NewScene()
	h := New(s)
	h.Mount(mustInstrument(t, "scene.tsx", sceneSource))
	s.Update()

	material := s.FindCarrier(scenelink.Identity{Path: "scene.tsx", Line: 5, Column: 39})
	require.NotNil(t, material)
	k := material.Carrier.Key()
	store := s.Store()

	store.SetProp(k, "color", "green")
	v, _ := store.Value(k, "color")
	assert.Equal(t, "green", v)

	store.ResetProp(k, "color")
	v, ok := store.Value(k, "color")
	assert.True(t, ok)
	assert.Equal(t, "red", v)
}

func TestReloadPrunesVanishedElements(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.tsx")
	require.NoError(t, os.WriteFile(path, []byte(`const Scene = () => (
  <group>
    <mesh position={[0, 0, 0]} />
    <mesh position={[1, 0, 0]} />
  </group>
);
`), 0o644))

	s := scenelink.NewScene()
	h := New(s, WithRootDir(dir))
	require.NoError(t, h.Open(path))
	s.Update()
	require.Equal(t, "scene.tsx", s.OpenFile())

	first := scenelink.Identity{Path: "scene.tsx", Line: 3, Column: 5}.Key("")
	second := scenelink.Identity{Path: "scene.tsx", Line: 4, Column: 5}.Key("")
	store := s.Store()
	store.SetProp(first, "color", "blue")
	store.PersistProp(first, "visible", true)
	store.PersistProp(second, "visible", false)
	s.Update()

	require.NoError(t, os.WriteFile(path, []byte(`const Scene = () => (
  <group>
    <mesh position={[0, 0, 0]} />
  </group>
);
`), 0o644))
	h.Reload(path)
	s.Update()

	_, ok := store.Value(first, "color")
	assert.False(t, ok, "intermediate cleared by reload")
	v, ok := store.Value(first, "visible")
	assert.True(t, ok)
	assert.Equal(t, true, v, "persisted survives reload")
	assert.False(t, store.HasOverrides(second), "vanished identity pruned")
	assert.Nil(t, s.FindCarrier(scenelink.Identity{Path: "scene.tsx", Line: 4, Column: 5}))
}

func TestReloadKeepsTreeOnSyntaxError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.tsx")
	require.NoError(t, os.WriteFile(path, []byte(`const Scene = () => <mesh />;`), 0o644))

	s := scenelink.NewScene()
	h := New(s, WithRootDir(dir))
	require.NoError(t, h.Open(path))
	s.Update()
	mounted := h.mounted

	require.NoError(t, os.WriteFile(path, []byte(`const Scene = () => <mesh`), 0o644))
	h.Reload(path)
	s.Update()
	assert.Same(t, mounted, h.mounted)
	assert.False(t, mounted.IsDisposed())
}

func TestIdentityPath(t *testing.T) {
	dir := t.TempDir()
	h := New(scenelink.NewScene(), WithRootDir(dir))
	assert.Equal(t, "src/scene.tsx", h.IdentityPath(filepath.Join(dir, "src", "scene.tsx")))
	assert.Equal(t, "other.tsx", New(scenelink.NewScene()).IdentityPath("./other.tsx"))
}

func TestRemountReplacesRootChildren(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.tsx")
	require.NoError(t, os.WriteFile(path, []byte(`const Scene = () => <mesh />;`), 0o644))

	s := scenelink.NewScene()
	h := New(s, WithRootDir(dir))
	require.NoError(t, h.Open(path))
	s.Update()
	first := h.mounted
	stray := scenelink.NewGroup("stray")
	s.Root().AddChild(stray)

	h.Reload(path)
	s.Update()
	require.Equal(t, 1, s.Root().NumChildren())
	assert.Same(t, h.mounted, s.Root().ChildAt(0))
	assert.True(t, first.IsDisposed())
	assert.Nil(t, stray.Parent)
	assert.False(t, stray.IsDisposed())
}
