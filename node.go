package scenelink

// nodeIDCounter is a plain counter (no atomic; the scene graph is single-goroutine).
var nodeIDCounter uint32

func nextNodeID() uint32 {
	nodeIDCounter++
	return nodeIDCounter
}

// Node is the fundamental scene graph element. A single flat struct is used
// for every node type, carriers included.
type Node struct {
	// Identity
	ID   uint32
	Name string
	Type NodeType

	// Hierarchy
	Parent   *Node
	children []*Node

	// Transform (local)
	Position Vec3
	Rotation Vec3 // Euler XYZ, radians
	Scale    Vec3

	// Computed, updated by updateWorldTransform.
	worldTransform [16]float64
	worldAlpha     float64
	transformDirty bool

	// Visibility
	Alpha   float64
	Visible bool

	// Size is the box extents of a mesh, centered on the local origin. Used
	// for hit testing and by the preview.
	Size Vec3

	// Props are the effective props last applied to this object.
	Props Props

	// Carrier is set on NodeTypeCarrier nodes only.
	Carrier *CarrierMeta

	// Metadata
	UserData any

	disposed bool
}

// nodeDefaults sets the common default field values shared by all constructors.
func nodeDefaults(n *Node) {
	n.ID = nextNodeID()
	n.Scale = Vec3One
	n.Alpha = 1
	n.Visible = true
	n.transformDirty = true
	n.worldTransform = identityMatrix
	n.worldAlpha = 1
}

// NewGroup creates a group node with no visual representation.
func NewGroup(name string) *Node {
	n := &Node{Name: name, Type: NodeTypeGroup}
	nodeDefaults(n)
	return n
}

// NewMesh creates a mesh node rendering a box of the given extents.
func NewMesh(name string, size Vec3) *Node {
	n := &Node{Name: name, Type: NodeTypeMesh, Size: size}
	nodeDefaults(n)
	return n
}

// NewLight creates a light node.
func NewLight(name string) *Node {
	n := &Node{Name: name, Type: NodeTypeLight}
	nodeDefaults(n)
	return n
}

// NewCamera creates a camera node.
func NewCamera(name string) *Node {
	n := &Node{Name: name, Type: NodeTypeCamera}
	nodeDefaults(n)
	return n
}

// NewCarrier creates a carrier node holding meta. The render host adds the
// element's rendered object as the carrier's child.
func NewCarrier(meta CarrierMeta) *Node {
	if meta.Kind == nil {
		meta.Kind = KindOf(meta.Name)
	}
	n := &Node{Name: meta.Name, Type: NodeTypeCarrier, Carrier: &meta}
	nodeDefaults(n)
	return n
}

// Object returns the rendered object a carrier wraps: its first non-carrier
// child. For non-carrier nodes, and for carriers with no such child, it
// returns n itself.
func (n *Node) Object() *Node {
	if n.Type != NodeTypeCarrier {
		return n
	}
	for _, c := range n.children {
		if c.Type != NodeTypeCarrier {
			return c
		}
	}
	return n
}

// --- Tree manipulation ---

// AddChild appends child to this node's children.
// If child already has a parent, it is removed from that parent first.
// Panics if child is nil or child is an ancestor of this node (cycle).
func (n *Node) AddChild(child *Node) {
	if child == nil {
		panic("scenelink: cannot add nil child")
	}
	if globalDebug {
		debugCheckDisposed(n, "AddChild (parent)")
		debugCheckDisposed(child, "AddChild (child)")
	}
	if isAncestor(child, n) {
		panic("scenelink: adding child would create a cycle")
	}
	if child.Parent != nil {
		child.Parent.removeChildByPtr(child)
	}
	child.Parent = n
	n.children = append(n.children, child)
	markSubtreeDirty(child)
	if globalDebug {
		debugCheckTreeDepth(child)
		debugCheckChildCount(n)
	}
}

// RemoveChild detaches child from this node.
// Panics if child.Parent != n.
func (n *Node) RemoveChild(child *Node) {
	if globalDebug {
		debugCheckDisposed(n, "RemoveChild (parent)")
		debugCheckDisposed(child, "RemoveChild (child)")
	}
	if child.Parent != n {
		panic("scenelink: child's parent is not this node")
	}
	n.removeChildByPtr(child)
	child.Parent = nil
	markSubtreeDirty(child)
}

// RemoveFromParent detaches this node from its parent.
// No-op if this node has no parent.
func (n *Node) RemoveFromParent() {
	if n.Parent == nil {
		return
	}
	n.Parent.RemoveChild(n)
}

// RemoveChildren detaches all children from this node.
// Children are NOT disposed.
func (n *Node) RemoveChildren() {
	for _, child := range n.children {
		child.Parent = nil
		markSubtreeDirty(child)
	}
	n.children = n.children[:0]
}

// Children returns the child list. The returned slice MUST NOT be mutated by the caller.
func (n *Node) Children() []*Node {
	return n.children
}

// NumChildren returns the number of children.
func (n *Node) NumChildren() int {
	return len(n.children)
}

// ChildAt returns the child at the given index.
func (n *Node) ChildAt(index int) *Node {
	return n.children[index]
}

// Walk visits n and its descendants depth-first in child order. Returning
// false from fn skips the node's subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		c.Walk(fn)
	}
}

// --- Disposal ---

// Dispose removes this node from its parent, marks it as disposed,
// and recursively disposes all descendants.
func (n *Node) Dispose() {
	if n.disposed {
		return
	}
	n.RemoveFromParent()
	n.dispose()
}

func (n *Node) dispose() {
	n.disposed = true
	n.ID = 0
	for _, child := range n.children {
		child.Parent = nil
		child.dispose()
	}
	n.children = nil
	n.Parent = nil
	n.Carrier = nil
	n.Props = nil
	n.UserData = nil
}

// IsDisposed returns true if this node has been disposed.
func (n *Node) IsDisposed() bool {
	return n.disposed
}

// --- Helpers ---

// isAncestor reports whether candidate is an ancestor of node.
func isAncestor(candidate, node *Node) bool {
	for p := node; p != nil; p = p.Parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// removeChildByPtr removes child from n.children without clearing child.Parent.
// Uses copy+nil to avoid retaining a dangling pointer in the backing array.
func (n *Node) removeChildByPtr(child *Node) {
	for i, c := range n.children {
		if c == child {
			copy(n.children[i:], n.children[i+1:])
			n.children[len(n.children)-1] = nil
			n.children = n.children[:len(n.children)-1]
			return
		}
	}
}

// markSubtreeDirty sets transformDirty on node and all its descendants.
func markSubtreeDirty(node *Node) {
	node.transformDirty = true
	for _, child := range node.children {
		markSubtreeDirty(child)
	}
}
