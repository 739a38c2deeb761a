package scenelink

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoSelection is returned when a drag starts with nothing selected.
	ErrNoSelection = errors.New("scenelink: nothing selected")
	// ErrModeDisabled is returned when the target's capabilities forbid the
	// active transform mode.
	ErrModeDisabled = errors.New("scenelink: transform mode disabled for target")
)

// dragState remembers the target's transform at drag start for CancelDrag.
type dragState struct {
	position Vec3
	rotation Vec3
	scale    Vec3
}

// Dragging reports whether a manipulator drag is in progress.
func (s *Scene) Dragging() bool {
	return s.dragging
}

// BeginDrag starts a manipulator drag on the selection's target. While the
// drag is active, shortcuts and selection changes are suppressed and no
// bridge traffic is generated.
func (s *Scene) BeginDrag() error {
	if s.selection == nil {
		return ErrNoSelection
	}
	if !s.ModeEnabled() {
		return ErrModeDisabled
	}
	t := s.selection.Target
	s.drag = dragState{position: t.Position, rotation: t.Rotation, scale: t.Scale}
	s.dragging = true
	return nil
}

// DragTranslate moves the target by delta in world space.
func (s *Scene) DragTranslate(delta Vec3) {
	if !s.dragging {
		return
	}
	t := s.selection.Target
	t.SetWorldPosition(t.WorldPosition().Add(delta))
}

// DragRotate adds delta (radians) to the target's rotation.
func (s *Scene) DragRotate(delta Vec3) {
	if !s.dragging {
		return
	}
	t := s.selection.Target
	t.SetRotation(t.Rotation.Add(delta))
}

// DragScale multiplies the target's scale component-wise by factor.
func (s *Scene) DragScale(factor Vec3) {
	if !s.dragging {
		return
	}
	t := s.selection.Target
	t.SetScale(t.Scale.Mul(factor))
}

// CancelDrag restores the pre-drag transform without confirming anything.
func (s *Scene) CancelDrag() {
	if !s.dragging {
		return
	}
	t := s.selection.Target
	t.SetPosition(s.drag.position)
	t.SetRotation(s.drag.rotation)
	t.SetScale(s.drag.scale)
	s.dragging = false
}

// finalValue reads the confirmed value for the active mode. Positions are
// read through a world query in world space and as local values otherwise.
func (s *Scene) finalValue() Vec3 {
	t := s.selection.Target
	switch s.mode {
	case ModeRotate:
		return t.Rotation
	case ModeScale:
		return t.Scale
	default:
		if s.selection.Space == SpaceWorld {
			return t.WorldPosition()
		}
		return t.Position
	}
}

// EndDrag confirms the drag. The final value is cleaned of accumulated
// floating-point error, kept as an intermediate override so the preview
// holds until the source edit hot-reloads, and sent to the host as exactly
// one element-set-prop request for the source writer.
func (s *Scene) EndDrag(ctx context.Context) error {
	if !s.dragging {
		return nil
	}
	s.dragging = false

	meta := s.selection.TargetMeta()
	prop := s.mode.PropName()
	value := s.finalValue().Clean().Slice()

	s.store.SetProp(meta.Key(), prop, value)

	if s.bridge == nil {
		return nil
	}
	payload := PropPayload{
		ElementRef: RefOf(meta.Identity, meta.Owner),
		PropName:   prop,
		PropValue:  value,
	}
	if err := s.bridge.Send(ctx, EventElementSetProp, payload); err != nil {
		return fmt.Errorf("confirm %s of %s: %w", prop, meta.Identity, err)
	}
	return nil
}
