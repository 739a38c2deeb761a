package scenelink

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

const defaultFrameTime = 1.0 / 60

// Scene is the runtime side of the editor link. It owns the node tree, the
// override store binding, the current selection and the input queues.
//
// Scene methods are not safe for concurrent use; call them from the frame
// goroutine. Other goroutines (bridge handlers, the file watcher) hand work
// to the frame goroutine with Post.
type Scene struct {
	root   *Node
	store  *OverrideStore
	bridge *Bridge
	log    *zap.Logger
	debug  bool

	frameTime float64

	taskMu sync.Mutex
	tasks  []func()

	// Selection (selector.go)
	openPath  string
	positions map[Identity]struct{}
	selection *Selection
	mode      TransformMode

	// Transform confirmation (confirm.go)
	dragging bool
	drag     dragState

	// Scripted input (inject.go, testrunner.go)
	injectQueue []syntheticEvent
	pointer     pointerState
	testRunner  *TestRunner
	hitBuf      []*Node

	// Soft-delete fades (animation.go)
	fades map[*Node]*fade
}

// NewScene creates a new scene with a pre-created root group and its own
// override store.
func NewScene() *Scene {
	return &Scene{
		root:      NewGroup("root"),
		store:     NewOverrideStore(),
		log:       zap.NewNop(),
		frameTime: defaultFrameTime,
		fades:     make(map[*Node]*fade),
	}
}

// Root returns the scene's root node. The render host mounts the
// instrumented tree under it.
func (s *Scene) Root() *Node {
	return s.root
}

// Store returns the override store the scene applies.
func (s *Scene) Store() *OverrideStore {
	return s.store
}

// SetStore replaces the override store. Every carrier re-applies its props
// on the next Update.
func (s *Scene) SetStore(store *OverrideStore) {
	s.store = store
	s.root.Walk(func(n *Node) bool {
		if n.Type == NodeTypeCarrier {
			n.Object().Props = nil
		}
		return true
	})
}

// SetBridge sets the bridge used for focus, blur and persist notifications.
// A nil bridge drops them.
func (s *Scene) SetBridge(b *Bridge) {
	s.bridge = b
}

// SetLogger sets the scene logger.
func (s *Scene) SetLogger(l *zap.Logger) {
	s.log = l
	if s.debug {
		debugLogger = l
	}
}

// SetFrameTime sets the seconds advanced per Update for tweens.
func (s *Scene) SetFrameTime(seconds float64) {
	s.frameTime = seconds
}

// SetDebugMode enables or disables debug mode. When enabled, disposed-node
// access panics and tree depth and child count warnings are logged.
func (s *Scene) SetDebugMode(enabled bool) {
	s.debug = enabled
	globalDebug = enabled
	if enabled {
		debugLogger = s.log
	}
}

// Post queues fn to run on the frame goroutine at the start of the next
// Update. Safe for concurrent use.
func (s *Scene) Post(fn func()) {
	s.taskMu.Lock()
	s.tasks = append(s.tasks, fn)
	s.taskMu.Unlock()
}

func (s *Scene) runTasks() {
	s.taskMu.Lock()
	tasks := s.tasks
	s.tasks = nil
	s.taskMu.Unlock()
	for _, fn := range tasks {
		fn()
	}
}

// Update runs one frame: posted tasks, the selection liveness check,
// scripted input, override application, world transforms and tweens.
func (s *Scene) Update() {
	s.runTasks()
	// Tasks may have unmounted the selected target.
	s.checkSelection()
	if s.testRunner != nil {
		s.testRunner.step(s)
	}
	s.processInjectedInput()
	s.syncOverrides()
	updateWorldTransform(s.root, identityMatrix, 1.0, false)
	s.updateFades(float32(s.frameTime))
}

// Reload applies the hot-reload policy for path on the next frame and tells
// the host. The render host must mount the recompiled tree before that frame
// so identities that survived are still live when the store prunes.
func (s *Scene) Reload(path string) {
	s.Post(func() {
		s.store.InvalidateFile(path)
		s.notify(EventFileReloaded, ReloadPayload{Path: path})
	})
}

// syncOverrides registers every carrier's source props with the store and
// re-applies effective props to the elements whose layers changed. It runs
// before transforms are computed, never in the middle of a walk that reads them.
func (s *Scene) syncOverrides() {
	dirty := make(map[Key]struct{})
	for _, k := range s.store.TakeDirty() {
		dirty[k] = struct{}{}
	}
	live := make(map[Key]struct{})
	s.root.Walk(func(n *Node) bool {
		if n.Type != NodeTypeCarrier || n.Carrier == nil {
			return true
		}
		k := n.Carrier.Key()
		live[k] = struct{}{}
		changed := s.store.Register(k, n.Carrier.Identity.Path, n.Carrier.Values)
		_, isDirty := dirty[k]
		if changed || isDirty || n.Object().Props == nil {
			s.applyEffective(n, k)
		}
		return true
	})
	if gone := s.store.Prune(live); len(gone) > 0 {
		s.log.Debug("pruned overrides of vanished identities", zap.Int("count", len(gone)))
	}
}

// applyEffective writes the effective props of k onto the carrier's object.
func (s *Scene) applyEffective(carrier *Node, k Key) {
	obj := carrier.Object()
	eff := s.store.Effective(k)
	// The manipulator owns the target's transform until the drag ends.
	held := s.dragging && s.selection != nil && s.selection.Target == obj
	obj.applyProps(eff, held)
	s.applyDeleted(carrier, obj, s.store.IsDeleted(k))
}

// applyProps writes transform props onto the node's fields and records eff
// as the applied props. A transform prop that disappears reverts to its
// default and a vanished visible prop shows the node again. With
// holdTransform set only non-transform props are applied.
func (n *Node) applyProps(eff Props, holdTransform bool) {
	prev := n.Props
	apply := func(name string, def Vec3, set func(Vec3)) {
		if holdTransform {
			if v, had := prev[name]; had {
				eff[name] = v
			} else {
				delete(eff, name)
			}
			return
		}
		if v, ok := Vec3FromValue(eff[name]); ok {
			set(v)
			return
		}
		if _, had := prev[name]; had {
			set(def)
		}
	}
	apply("position", Vec3{}, n.SetPosition)
	apply("rotation", Vec3{}, n.SetRotation)
	apply("scale", Vec3One, n.SetScale)
	if v, ok := eff["visible"].(bool); ok {
		n.Visible = v
	} else if _, had := prev["visible"]; had {
		n.Visible = true
	}
	n.Props = eff
}

// notify sends a one-way notification to the host, if a bridge is set.
func (s *Scene) notify(event string, payload any) {
	if s.bridge == nil {
		return
	}
	if err := s.bridge.Send(context.Background(), event, payload); err != nil {
		s.log.Debug("notify failed", zap.String("event", event), zap.Error(err))
	}
}

// FindCarrier returns the first carrier, depth-first, whose identity matches id.
func (s *Scene) FindCarrier(id Identity) *Node {
	var found *Node
	s.root.Walk(func(n *Node) bool {
		if found != nil {
			return false
		}
		if n.Type == NodeTypeCarrier && n.Carrier != nil && n.Carrier.Identity == id {
			found = n
			return false
		}
		return true
	})
	return found
}
