package scenelink

import (
	"fmt"

	"go.uber.org/zap"
)

// globalDebug mirrors the most recently set Scene debug flag so that node
// operations (which lack a Scene pointer) can check it cheaply. Only valid
// with a single Scene; multiple Scenes with differing debug modes will
// reflect whichever called SetDebugMode last.
var globalDebug bool

// debugLogger receives tree warnings while globalDebug is set.
var debugLogger = zap.NewNop()

// debugCheckDisposed panics with a descriptive message when a disposed node is
// used in a tree operation. Only called in debug mode.
func debugCheckDisposed(n *Node, op string) {
	if n.disposed {
		panic(fmt.Sprintf("scenelink debug: %s on disposed node %q (ID was %d)", op, n.Name, n.ID))
	}
}

// debugCheckTreeDepth warns if tree depth exceeds the threshold.
// Deeply nested component boundaries slow every selection walk.
const debugMaxTreeDepth = 64

func debugCheckTreeDepth(n *Node) {
	depth := 0
	for p := n; p != nil; p = p.Parent {
		depth++
	}
	if depth > debugMaxTreeDepth {
		debugLogger.Warn("tree depth exceeds threshold",
			zap.Int("depth", depth), zap.Int("threshold", debugMaxTreeDepth), zap.String("node", n.Name))
	}
}

// debugCheckChildCount warns if a node has more than 1000 children.
const debugMaxChildCount = 1000

func debugCheckChildCount(n *Node) {
	if len(n.children) > debugMaxChildCount {
		debugLogger.Warn("child count exceeds threshold",
			zap.String("node", n.Name), zap.Int("children", len(n.children)), zap.Int("threshold", debugMaxChildCount))
	}
}

// identityField is the zap field set used for element identities.
func identityField(id Identity) zap.Field {
	return zap.String("identity", id.String())
}
