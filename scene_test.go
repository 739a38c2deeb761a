package scenelink

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
)

func TestNewScene(t *testing.T) {
	s := NewScene()
	if s.Root() == nil {
		t.Fatal("root should not be nil")
	}
	if s.Root().Name != "root" {
		t.Errorf("root.Name = %q, want %q", s.Root().Name, "root")
	}
	if s.Root().Type != NodeTypeGroup {
		t.Errorf("root.Type = %v, want group", s.Root().Type)
	}
	if s.Store() == nil {
		t.Error("scene should own a store")
	}
	s.Update() // empty scene, no bridge
}

func TestScenePostRunsInOrderOnUpdate(t *testing.T) {
	s := NewScene()
	var got []int
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Post(func() { got = append(got, 1) })
		s.Post(func() { got = append(got, 2) })
	}()
	wg.Wait()

	if len(got) != 0 {
		t.Fatal("posted tasks ran before Update")
	}
	s.Update()
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("tasks ran as %v, want [1 2]", got)
	}
	s.Update()
	if len(got) != 2 {
		t.Error("tasks should run once")
	}
}

func TestSceneTaskPostedDuringUpdateRunsNextFrame(t *testing.T) {
	s := NewScene()
	ran := 0
	s.Post(func() {
		s.Post(func() { ran++ })
	})
	s.Update()
	if ran != 0 {
		t.Fatal("nested task ran in the same frame")
	}
	s.Update()
	if ran != 1 {
		t.Errorf("ran = %d, want 1", ran)
	}
}

func TestSceneReloadInvalidatesAndNotifies(t *testing.T) {
	f := newFixture(t)
	k := idSphere.Key("")
	f.scene.Store().SetProp(k, "color", "red")
	f.scene.Store().PersistProp(k, "visible", true)

	f.scene.Reload("scene.tsx")
	if _, ok := f.scene.Store().Value(k, "color"); !ok {
		t.Fatal("reload should wait for the next frame")
	}
	f.scene.Update()

	if _, ok := f.scene.Store().Value(k, "color"); ok {
		t.Error("intermediate value should be cleared by reload")
	}
	if _, ok := f.scene.Store().Value(k, "visible"); !ok {
		t.Error("persisted value should survive reload")
	}

	envs := f.rec.take(EventFileReloaded)
	if len(envs) != 1 {
		t.Fatalf("file-reloaded notifications = %d, want 1", len(envs))
	}
	var p ReloadPayload
	if err := json.Unmarshal(envs[0].Data, &p); err != nil {
		t.Fatal(err)
	}
	if p.Path != "scene.tsx" {
		t.Errorf("path = %q, want scene.tsx", p.Path)
	}
}

func TestSceneReloadPrunesVanishedIdentities(t *testing.T) {
	f := newFixture(t)
	k := idSphere.Key("")
	f.scene.Store().PersistProp(k, "color", "green")

	// The recompiled file no longer renders the sphere.
	f.sphere.Parent.Dispose()
	f.scene.Reload("scene.tsx")
	f.scene.Update()

	if f.scene.Store().HasOverrides(k) {
		t.Error("overrides of a vanished identity should be pruned")
	}
	if f.scene.FindCarrier(idBox) == nil {
		t.Error("surviving carriers should stay mounted")
	}
}

func TestSceneSetStoreReappliesProps(t *testing.T) {
	f := newFixture(t)
	store := NewOverrideStore()
	store.PersistProp(idSphere.Key(""), "position", []float64{0, 5, 0})

	f.scene.SetStore(store)
	if f.scene.Store() != store {
		t.Fatal("Store() should return the new store")
	}
	f.scene.Update()
	assertVec(t, "sphere", f.sphere.Position, Vec3{Y: 5})
}

func TestSceneWithoutBridgeDropsNotifications(t *testing.T) {
	s := NewScene()
	c := wrap(idSphere, "mesh", Capabilities{Translate: true}, NewMesh("mesh", Vec3One))
	s.Root().AddChild(c)
	if !s.SelectIdentity(idSphere) {
		t.Fatal("select")
	}
	if err := s.BeginDrag(); err != nil {
		t.Fatal(err)
	}
	s.DragTranslate(Vec3{X: 1})
	if err := s.EndDrag(context.Background()); err != nil {
		t.Fatalf("EndDrag without bridge: %v", err)
	}
	if v, ok := s.Store().Value(idSphere.Key(""), "position"); !ok {
		t.Error("drag result should still reach the store")
	} else if got, _ := Vec3FromValue(v); got != (Vec3{X: 1}) {
		t.Errorf("position = %v, want (1, 0, 0)", got)
	}
}

func TestFindCarrier(t *testing.T) {
	f := newFixture(t)
	if got := f.scene.FindCarrier(idBoxMesh); got == nil || got.Object() != f.boxMesh {
		t.Errorf("FindCarrier(box mesh) = %v", got)
	}
	if f.scene.FindCarrier(Identity{Path: "nowhere.tsx", Line: 1, Column: 1}) != nil {
		t.Error("unknown identity should not resolve")
	}
}

func TestSceneResetVisibleShowsNode(t *testing.T) {
	f := newFixture(t)
	k := idSphere.Key("")

	f.scene.Store().SetProp(k, "visible", false)
	f.scene.Update()
	if f.sphere.Visible {
		t.Fatal("visible=false should hide the sphere")
	}

	f.scene.Store().ResetProp(k, "visible")
	f.scene.Update()
	if !f.sphere.Visible {
		t.Error("resetting visible should show the sphere again")
	}
}
