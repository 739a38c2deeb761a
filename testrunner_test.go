package scenelink

import (
	"strings"
	"testing"
)

func TestLoadTestScript(t *testing.T) {
	data := []byte(`{
		"steps": [
			{"action": "select", "path": "scene.tsx", "line": 6, "column": 7},
			{"action": "click", "x": 3, "y": 0},
			{"action": "wait", "frames": 3},
			{"action": "key", "key": "e"}
		]
	}`)

	runner, err := LoadTestScript(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runner.steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(runner.steps))
	}
	if st := runner.steps[0]; st.Path != "scene.tsx" || st.Line != 6 || st.Column != 7 {
		t.Errorf("step 0 = %+v", st)
	}
	if st := runner.steps[1]; st.Action != "click" || st.X != 3 {
		t.Errorf("step 1 = %+v", st)
	}
	if st := runner.steps[2]; st.Frames != 3 {
		t.Errorf("step 2 = %+v", st)
	}
	if runner.Done() {
		t.Error("fresh runner should not be done")
	}
}

func TestLoadTestScript_Invalid(t *testing.T) {
	if _, err := LoadTestScript([]byte(`not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestLoadTestScript_Empty(t *testing.T) {
	if _, err := LoadTestScript([]byte(`{"steps": []}`)); err == nil {
		t.Error("expected error for empty steps")
	}
}

func TestLoadTestScript_UnknownAction(t *testing.T) {
	_, err := LoadTestScript([]byte(`{"steps": [{"action": "click"}, {"action": "screenshot"}]}`))
	if err == nil {
		t.Fatal("expected error for unknown action")
	}
	if !strings.Contains(err.Error(), "step 1") {
		t.Errorf("error %q should name the step", err)
	}
}

func TestRunnerClickSelects(t *testing.T) {
	f := newFixture(t)
	runner, err := LoadTestScript([]byte(`{"steps": [{"action": "click", "x": 3, "y": 0}]}`))
	if err != nil {
		t.Fatal(err)
	}
	f.scene.SetTestRunner(runner)

	f.scene.Update() // queue click, process press
	f.scene.Update() // runner waits for the queue, release picks
	if sel := f.scene.Selection(); sel == nil || sel.Identity != idSphere {
		t.Fatalf("selection = %+v, want sphere", sel)
	}
	if runner.Done() {
		t.Error("runner finishes on the frame after the queue drains")
	}
	f.scene.Update()
	if !runner.Done() {
		t.Error("expected runner done")
	}
}

func TestRunnerSelectKeyAndReset(t *testing.T) {
	f := newFixture(t)
	f.scene.Store().SetProp(idSphere.Key(""), "color", "red")

	runner, err := LoadTestScript([]byte(`{"steps": [
		{"action": "select", "path": "scene.tsx", "line": 5, "column": 7},
		{"action": "key", "key": "e"},
		{"action": "reset"}
	]}`))
	if err != nil {
		t.Fatal(err)
	}
	f.scene.SetTestRunner(runner)

	f.scene.Update()
	if sel := f.scene.Selection(); sel == nil || sel.Identity != idBox {
		t.Fatalf("selection = %+v, want Box", sel)
	}

	f.scene.Update()
	if f.scene.TransformMode() != ModeRotate {
		t.Errorf("mode = %v, want rotate", f.scene.TransformMode())
	}

	f.scene.Update()
	if _, ok := f.scene.Store().Value(idSphere.Key(""), "color"); ok {
		t.Error("reset should clear intermediate overrides")
	}
	if !runner.Done() {
		t.Error("expected runner done after the last step")
	}
}

func TestRunnerWaitFrames(t *testing.T) {
	f := newFixture(t)
	f.scene.Store().SetProp(idSphere.Key(""), "color", "red")

	runner, err := LoadTestScript([]byte(`{"steps": [{"action": "wait", "frames": 3}, {"action": "reset"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	f.scene.SetTestRunner(runner)

	for i := 0; i < 3; i++ {
		f.scene.Update()
		if _, ok := f.scene.Store().Value(idSphere.Key(""), "color"); !ok {
			t.Fatalf("reset ran during wait frame %d", i+1)
		}
	}
	f.scene.Update()
	if _, ok := f.scene.Store().Value(idSphere.Key(""), "color"); ok {
		t.Error("reset should run after the wait")
	}
}

func TestRunnerSelectUnknownIdentityIsNoop(t *testing.T) {
	f := newFixture(t)
	runner, err := LoadTestScript([]byte(`{"steps": [{"action": "select", "path": "scene.tsx", "line": 99, "column": 1}]}`))
	if err != nil {
		t.Fatal(err)
	}
	f.scene.SetTestRunner(runner)
	f.scene.Update()
	if f.scene.Selection() != nil {
		t.Error("unknown identity should not select")
	}
	if !runner.Done() {
		t.Error("expected runner done")
	}
}
