package scenelink

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// fadeDuration is the soft-delete fade length in seconds.
const fadeDuration = 0.25

// TweenGroup animates a float64 field on a Node. TweenAlpha builds one for
// the node's alpha; call Update(dt) each frame. The group writes the value
// and marks the node dirty. If the target node is disposed, the group stops
// immediately.
type TweenGroup struct {
	tween  *gween.Tween
	field  *float64
	target *Node
	Done   bool
}

// Update advances the tween by dt seconds, writes the value to the target
// field, and marks the node dirty. If the target node has been disposed, Done
// is set to true and no writes occur.
func (g *TweenGroup) Update(dt float32) {
	if g.Done {
		return
	}
	if g.target.IsDisposed() {
		g.Done = true
		return
	}
	val, finished := g.tween.Update(dt)
	*g.field = float64(val)
	g.Done = finished
	g.target.MarkDirty()
}

// TweenAlpha creates a TweenGroup that animates node.Alpha to the target value
// over the specified duration using the easing function.
func TweenAlpha(node *Node, to float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	return &TweenGroup{
		tween:  gween.New(float32(node.Alpha), float32(to), duration, fn),
		field:  &node.Alpha,
		target: node,
	}
}

// fade tracks the soft-delete state of one rendered object. A deleted fade
// stays in the map after its tween finishes so the object stays hidden.
type fade struct {
	group   *TweenGroup
	deleted bool
}

// applyDeleted reconciles obj with its element's soft-delete flag. Deleting
// fades the object out and then hides it; restoring fades it back in and
// shows it unless its props hide it. Deleting the selected element blurs the selection.
func (s *Scene) applyDeleted(carrier, obj *Node, deleted bool) {
	f := s.fades[obj]
	current := f != nil && f.deleted
	if deleted == current {
		if deleted && f.group == nil {
			obj.Visible = false
		}
		return
	}
	if deleted {
		if sel := s.selection; sel != nil && (isAncestor(carrier, sel.Owner) || isAncestor(carrier, sel.Target)) {
			if s.dragging {
				s.CancelDrag()
			}
			s.clearSelection()
		}
		s.fades[obj] = &fade{group: TweenAlpha(obj, 0, fadeDuration, ease.OutQuad), deleted: true}
		return
	}
	obj.Visible = propVisible(obj.Props)
	s.fades[obj] = &fade{group: TweenAlpha(obj, 1, fadeDuration, ease.InQuad)}
}

// propVisible reports the visibility the applied props ask for.
func propVisible(p Props) bool {
	v, ok := p["visible"].(bool)
	return v || !ok
}

// updateFades advances every running fade by dt seconds.
func (s *Scene) updateFades(dt float32) {
	for n, f := range s.fades {
		if n.IsDisposed() {
			delete(s.fades, n)
			continue
		}
		if f.group == nil {
			continue
		}
		f.group.Update(dt)
		if !f.group.Done {
			continue
		}
		f.group = nil
		if f.deleted {
			n.Visible = false
		} else {
			delete(s.fades, n)
		}
	}
}
