package scenelink

import (
	"fmt"
	"math"
	"strconv"
)

// Vec3 is a 3D vector used for positions, rotations (Euler XYZ, radians),
// scales and directions throughout the API.
type Vec3 struct {
	X, Y, Z float64
}

// Vec3One is the identity scale.
var Vec3One = Vec3{1, 1, 1}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Mul returns the component-wise product of v and o.
func (v Vec3) Mul(o Vec3) Vec3 { return Vec3{v.X * o.X, v.Y * o.Y, v.Z * o.Z} }

// IsZero reports whether every component is exactly zero.
func (v Vec3) IsZero() bool { return v.X == 0 && v.Y == 0 && v.Z == 0 }

// Slice returns the vector as a three-element slice, the shape props use on the wire.
func (v Vec3) Slice() []float64 { return []float64{v.X, v.Y, v.Z} }

// Vec3FromValue converts a prop value into a Vec3. Accepted shapes are
// []float64, []any of numbers (as decoded from JSON), Vec3 and a single
// number, which is splatted to all three components the way scale props are.
func Vec3FromValue(v any) (Vec3, bool) {
	switch t := v.(type) {
	case Vec3:
		return t, true
	case []float64:
		if len(t) != 3 {
			return Vec3{}, false
		}
		return Vec3{t[0], t[1], t[2]}, true
	case []any:
		if len(t) != 3 {
			return Vec3{}, false
		}
		var out [3]float64
		for i, e := range t {
			f, ok := toFloat(e)
			if !ok {
				return Vec3{}, false
			}
			out[i] = f
		}
		return Vec3{out[0], out[1], out[2]}, true
	default:
		if f, ok := toFloat(v); ok {
			return Vec3{f, f, f}, true
		}
	}
	return Vec3{}, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// CleanFloat removes accumulated floating-point noise by round-tripping v
// through 15 significant digits. 0.30000000000000004 becomes 0.3.
func CleanFloat(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, err := strconv.ParseFloat(strconv.FormatFloat(v, 'g', 15, 64), 64)
	if err != nil {
		return v
	}
	return f
}

// Clean applies CleanFloat to every component.
func (v Vec3) Clean() Vec3 {
	return Vec3{CleanFloat(v.X), CleanFloat(v.Y), CleanFloat(v.Z)}
}

// Props is a bag of element props. Values are JSON-compatible.
type Props map[string]any

// Clone returns a shallow copy of p. A nil map clones to an empty one.
func (p Props) Clone() Props {
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// NodeType distinguishes the role of a Node in the scene graph.
type NodeType uint8

const (
	NodeTypeGroup   NodeType = iota // grouping object with no visual output
	NodeTypeMesh                    // renders a box of Size extents
	NodeTypeLight                   // light source
	NodeTypeCamera                  // camera object
	NodeTypeCarrier                 // synthetic wrapper carrying CarrierMeta
)

func (t NodeType) String() string {
	switch t {
	case NodeTypeGroup:
		return "group"
	case NodeTypeMesh:
		return "mesh"
	case NodeTypeLight:
		return "light"
	case NodeTypeCamera:
		return "camera"
	case NodeTypeCarrier:
		return "carrier"
	default:
		return "unknown"
	}
}

// Space is the coordinate frame in which a selected target's transform is
// read and written.
type Space uint8

const (
	SpaceWorld Space = iota // ancestors carry no transform; values are used as authored
	SpaceLocal              // values must go through the ancestor transform
)

func (s Space) String() string {
	if s == SpaceLocal {
		return "local"
	}
	return "world"
}

// MarshalText implements encoding.TextMarshaler.
func (s Space) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Space) UnmarshalText(b []byte) error {
	switch string(b) {
	case "world":
		*s = SpaceWorld
	case "local":
		*s = SpaceLocal
	default:
		return fmt.Errorf("scenelink: unknown space %q", b)
	}
	return nil
}

// TransformMode selects which transform prop the manipulator edits.
type TransformMode uint8

const (
	ModeTranslate TransformMode = iota
	ModeRotate
	ModeScale
)

func (m TransformMode) String() string {
	switch m {
	case ModeRotate:
		return "rotate"
	case ModeScale:
		return "scale"
	default:
		return "translate"
	}
}

// PropName returns the element prop edited in this mode.
func (m TransformMode) PropName() string {
	switch m {
	case ModeRotate:
		return "rotation"
	case ModeScale:
		return "scale"
	default:
		return "position"
	}
}

// ParseTransformMode parses "translate", "rotate" or "scale".
func ParseTransformMode(s string) (TransformMode, error) {
	switch s {
	case "translate":
		return ModeTranslate, nil
	case "rotate":
		return ModeRotate, nil
	case "scale":
		return ModeScale, nil
	}
	return ModeTranslate, fmt.Errorf("scenelink: unknown transform mode %q", s)
}
