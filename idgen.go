package scenelink

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator produces unique request identifiers.
type Generator func() string

// UUIDv7 returns a Generator producing RFC 9562 UUID v7 strings. They are
// time-sortable and unique across both sides of the bridge.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Sequence returns a Generator producing prefix1, prefix2, ... Deterministic,
// for tests and single-peer setups.
func Sequence(prefix string) Generator {
	var n atomic.Uint64
	return func() string {
		return prefix + strconv.FormatUint(n.Add(1), 10)
	}
}
