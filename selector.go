package scenelink

import (
	"go.uber.org/zap"
)

// Selection is the current editor selection.
type Selection struct {
	// Identity is the owning element, the one the user sees as selected.
	Identity Identity
	// Owner is the owning element's carrier node.
	Owner *Node
	// Target is the object the transform manipulator binds to.
	Target *Node
	// TargetCarrier carries the identity whose props the manipulator writes.
	// It is Owner unless a custom component's descendant was chosen.
	TargetCarrier *Node
	// Space is the frame transform values are read and written in.
	Space Space
}

// TargetMeta returns the metadata of the element the manipulator writes to.
func (sel *Selection) TargetMeta() *CarrierMeta {
	return sel.TargetCarrier.Carrier
}

// nodeView is an immutable copy of the fields the selection walks read.
// Walks run over views so nothing they observe changes mid-walk.
type nodeView struct {
	node     *Node
	meta     *CarrierMeta
	identity bool
}

func viewOf(n *Node) nodeView {
	v := nodeView{node: n, identity: n.HasIdentityTransform()}
	if n.Type == NodeTypeCarrier {
		v.meta = n.Carrier
	}
	return v
}

// snapshotAncestors returns views of n and its ancestors, n first.
func snapshotAncestors(n *Node) []nodeView {
	var chain []nodeView
	for p := n; p != nil; p = p.Parent {
		chain = append(chain, viewOf(p))
	}
	return chain
}

// snapshotSubtree returns views of n's descendants in depth-first pre-order.
func snapshotSubtree(n *Node) []nodeView {
	var out []nodeView
	for _, c := range n.children {
		c.Walk(func(d *Node) bool {
			out = append(out, viewOf(d))
			return true
		})
	}
	return out
}

// SetOpenFile sets the file open in the editor and its position table.
// Picks resolve only to elements whose identity is in the table; with a nil
// table every carrier from path qualifies. An empty path accepts any carrier.
func (s *Scene) SetOpenFile(path string, positions []Identity) {
	s.openPath = path
	s.positions = nil
	if positions != nil {
		s.positions = make(map[Identity]struct{}, len(positions))
		for _, id := range positions {
			s.positions[id] = struct{}{}
		}
	}
}

// OpenFile returns the path set by SetOpenFile.
func (s *Scene) OpenFile() string {
	return s.openPath
}

func (s *Scene) inOpenFile(id Identity) bool {
	if s.positions != nil {
		_, ok := s.positions[id]
		return ok
	}
	return s.openPath == "" || id.Path == s.openPath
}

// selectable reports whether a view is a carrier the selector may stop at.
func (s *Scene) selectable(v nodeView) bool {
	return v.meta != nil && !v.meta.Attached && s.inOpenFile(v.meta.Identity)
}

// resolveOwner finds the index of the owning carrier in an ancestor chain,
// or -1 when no ancestor belongs to the open file.
func (s *Scene) resolveOwner(chain []nodeView) int {
	for i, v := range chain {
		if s.selectable(v) {
			return i
		}
	}
	return -1
}

// resolveSpace inspects the ancestors above the owner: any non-zero position
// or non-unit scale means values must be converted through them.
func resolveSpace(chain []nodeView, owner int) Space {
	for _, v := range chain[owner+1:] {
		if !v.identity {
			return SpaceLocal
		}
	}
	return SpaceWorld
}

// resolveTarget picks the carrier and object the manipulator binds to.
// A host element targets its own object. A custom component targets the
// first descendant element allowing mode, else the first translatable one,
// else itself; it may render its transformable primitive at any depth.
func resolveTarget(owner *Node, mode TransformMode) (carrier, target *Node) {
	if _, host := owner.Carrier.Kind.(HostElement); host {
		return owner, owner.Object()
	}
	sub := snapshotSubtree(owner)
	pick := func(match func(Capabilities) bool) *Node {
		for _, v := range sub {
			if v.meta == nil || v.meta.Attached {
				continue
			}
			if match(v.meta.Caps) {
				return v.node
			}
		}
		return nil
	}
	if c := pick(func(c Capabilities) bool { return c.Allows(mode) }); c != nil {
		return c, c.Object()
	}
	if c := pick(func(c Capabilities) bool { return c.Translate }); c != nil {
		return c, c.Object()
	}
	return owner, owner.Object()
}

// resolve builds a Selection for the owner at chain[owner].
func (s *Scene) resolve(chain []nodeView, owner int) *Selection {
	ownerNode := chain[owner].node
	carrier, target := resolveTarget(ownerNode, s.mode)
	return &Selection{
		Identity:      chain[owner].meta.Identity,
		Owner:         ownerNode,
		Target:        target,
		TargetCarrier: carrier,
		Space:         resolveSpace(chain, owner),
	}
}

// Pick selects the element owning picked, typically a primitive under the
// pointer. Picks that resolve to nothing in the open file are silent no-ops.
// It reports whether the selection changed.
func (s *Scene) Pick(picked *Node) bool {
	if s.dragging || picked == nil {
		return false
	}
	chain := snapshotAncestors(picked)
	owner := s.resolveOwner(chain)
	if owner < 0 {
		s.log.Debug("pick resolved to no element in the open file", zap.String("node", picked.Name))
		return false
	}
	return s.setSelection(s.resolve(chain, owner))
}

// SelectIdentity selects the first carrier matching id, as for jump-to or a
// remote focus request. It reports whether the selection changed.
func (s *Scene) SelectIdentity(id Identity) bool {
	if s.dragging {
		return false
	}
	carrier := s.FindCarrier(id)
	if carrier == nil || carrier.Carrier.Attached {
		s.log.Debug("no selectable carrier for identity", identityField(id))
		return false
	}
	chain := snapshotAncestors(carrier)
	return s.setSelection(s.resolve(chain, 0))
}

// setSelection installs sel and notifies the host. Runs after the walk.
func (s *Scene) setSelection(sel *Selection) bool {
	if cur := s.selection; cur != nil && cur.Owner == sel.Owner && cur.Target == sel.Target && cur.Space == sel.Space {
		return false
	}
	s.selection = sel
	s.notifyFocus()
	return true
}

func (s *Scene) notifyFocus() {
	sel := s.selection
	meta := sel.Owner.Carrier
	tm := sel.TargetMeta()
	s.notify(EventElementFocus, FocusPayload{
		ElementRef: RefOf(sel.Identity, meta.Owner),
		Name:       meta.Name,
		Space:      sel.Space,
		Mode:       s.mode.String(),
		Caps:       tm.Caps,
		Target:     RefOf(tm.Identity, tm.Owner),
	})
}

// Selection returns the current selection, or nil. The returned value must
// not be modified.
func (s *Scene) Selection() *Selection {
	return s.selection
}

// Blur clears the selection and notifies the host. No-op while dragging or
// when nothing is selected.
func (s *Scene) Blur() {
	if s.dragging {
		return
	}
	s.clearSelection()
}

func (s *Scene) clearSelection() {
	sel := s.selection
	if sel == nil {
		return
	}
	s.selection = nil
	s.notify(EventElementBlur, RefOf(sel.Identity, ""))
}

// TransformMode returns the active transform mode.
func (s *Scene) TransformMode() TransformMode {
	return s.mode
}

// ModeEnabled reports whether the current target permits the active mode.
func (s *Scene) ModeEnabled() bool {
	if s.selection == nil {
		return false
	}
	return s.selection.TargetMeta().Caps.Allows(s.mode)
}

// SetTransformMode switches the manipulator mode. With a selection, the
// target is re-resolved for the new mode and the switch is refused (false)
// when the resulting target's capabilities forbid it.
func (s *Scene) SetTransformMode(mode TransformMode) bool {
	if s.dragging {
		return false
	}
	if s.selection == nil {
		s.mode = mode
		return true
	}
	carrier, target := resolveTarget(s.selection.Owner, mode)
	if !carrier.Carrier.Caps.Allows(mode) {
		return false
	}
	s.mode = mode
	s.selection.TargetCarrier = carrier
	s.selection.Target = target
	s.notifyFocus()
	return true
}

// HandleKey applies an editor shortcut: Escape blurs; w, e and r switch to
// translate, rotate and scale. Shortcuts are suppressed while dragging. It
// reports whether the key had an effect.
func (s *Scene) HandleKey(key string) bool {
	if s.dragging {
		return false
	}
	switch key {
	case "Escape":
		had := s.selection != nil
		s.Blur()
		return had
	case "w":
		return s.SetTransformMode(ModeTranslate)
	case "e":
		return s.SetTransformMode(ModeRotate)
	case "r":
		return s.SetTransformMode(ModeScale)
	}
	return false
}

// checkSelection clears a selection whose target left the tree.
func (s *Scene) checkSelection() {
	sel := s.selection
	if sel == nil || sel.Target == s.root {
		return
	}
	if !sel.Target.IsDisposed() && isAncestor(s.root, sel.Target) {
		return
	}
	s.log.Debug("selection target detached; clearing", identityField(sel.Identity))
	if s.dragging {
		s.dragging = false
	}
	s.clearSelection()
}
