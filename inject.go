package scenelink

import (
	"context"

	"go.uber.org/zap"
)

type syntheticKind uint8

const (
	syntheticPointer syntheticKind = iota
	syntheticKey
)

// syntheticEvent represents a single injected input event. Pointer
// coordinates are world units on the XY plane.
type syntheticEvent struct {
	kind    syntheticKind
	x, y    float64
	pressed bool
	key     string
}

// pointerState tracks the injected pointer between press and release.
type pointerState struct {
	down     bool
	lastX    float64
	lastY    float64
	hitNode  *Node
	dragging bool
}

// InjectPress queues a pointer press at the given world coordinates. The
// event is consumed on the next frame's Update.
func (s *Scene) InjectPress(x, y float64) {
	s.injectQueue = append(s.injectQueue, syntheticEvent{kind: syntheticPointer, x: x, y: y, pressed: true})
}

// InjectMove queues a pointer move with the button held down. Use this
// between InjectPress and InjectRelease to simulate a drag.
func (s *Scene) InjectMove(x, y float64) {
	s.injectQueue = append(s.injectQueue, syntheticEvent{kind: syntheticPointer, x: x, y: y, pressed: true})
}

// InjectRelease queues a pointer release at the given world coordinates.
func (s *Scene) InjectRelease(x, y float64) {
	s.injectQueue = append(s.injectQueue, syntheticEvent{kind: syntheticPointer, x: x, y: y})
}

// InjectClick queues a press followed by a release at the same point.
// Consumes two frames.
func (s *Scene) InjectClick(x, y float64) {
	s.InjectPress(x, y)
	s.InjectRelease(x, y)
}

// InjectDrag queues a full drag sequence: press at (fromX, fromY), linearly
// interpolated moves over frames-2 intermediate frames, and release at
// (toX, toY). Minimum frames is 2 (press + release).
func (s *Scene) InjectDrag(fromX, fromY, toX, toY float64, frames int) {
	if frames < 2 {
		frames = 2
	}
	s.InjectPress(fromX, fromY)
	steps := frames - 2
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps+1)
		s.InjectMove(fromX+(toX-fromX)*t, fromY+(toY-fromY)*t)
	}
	s.InjectRelease(toX, toY)
}

// InjectKey queues a shortcut key for HandleKey.
func (s *Scene) InjectKey(key string) {
	s.injectQueue = append(s.injectQueue, syntheticEvent{kind: syntheticKey, key: key})
}

// processInjectedInput pops one event from the inject queue and feeds it
// through the pointer or key path. Returns true if an event was consumed.
func (s *Scene) processInjectedInput() bool {
	if len(s.injectQueue) == 0 {
		return false
	}
	evt := s.injectQueue[0]
	copy(s.injectQueue, s.injectQueue[1:])
	s.injectQueue = s.injectQueue[:len(s.injectQueue)-1]

	if evt.kind == syntheticKey {
		s.HandleKey(evt.key)
		return true
	}
	s.processPointer(evt.x, evt.y, evt.pressed)
	return true
}

// processPointer implements click-to-select and drag-to-transform. A press
// on the current target's element starts a drag; a release without drag
// movement picks what is under the pointer.
func (s *Scene) processPointer(x, y float64, pressed bool) {
	p := &s.pointer
	switch {
	case pressed && !p.down:
		p.down = true
		p.lastX, p.lastY = x, y
		p.hitNode = s.HitTest(x, y)
		p.dragging = false

	case pressed && p.down:
		if !p.dragging && p.hitNode != nil && s.onSelection(p.hitNode) {
			p.dragging = s.BeginDrag() == nil
		}
		if p.dragging {
			s.applyDragDelta(x-p.lastX, y-p.lastY)
		}
		p.lastX, p.lastY = x, y

	case !pressed && p.down:
		p.down = false
		if p.dragging {
			s.applyDragDelta(x-p.lastX, y-p.lastY)
			if err := s.EndDrag(context.Background()); err != nil {
				s.log.Warn("confirm drag", zap.Error(err))
			}
			p.dragging = false
		} else if p.hitNode != nil {
			s.Pick(p.hitNode)
		}
		p.hitNode = nil
	}
}

// onSelection reports whether n lies inside the selected element.
func (s *Scene) onSelection(n *Node) bool {
	if s.selection == nil {
		return false
	}
	return isAncestor(s.selection.Owner, n)
}

// applyDragDelta maps pointer motion on the XY plane onto the active mode.
func (s *Scene) applyDragDelta(dx, dy float64) {
	switch s.mode {
	case ModeRotate:
		s.DragRotate(Vec3{Z: dx})
	case ModeScale:
		f := 1 + dx
		if f <= 0 {
			return
		}
		s.DragScale(Vec3{f, f, f})
	default:
		s.DragTranslate(Vec3{X: dx, Y: dy})
	}
}
