package scenelink

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Identity addresses one source-declared visual element. Line and Column are
// 1-based. Identities are assigned at instrumentation time and shift when
// code above the element is edited.
type Identity struct {
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

func (id Identity) String() string {
	return fmt.Sprintf("%s:%d:%d", id.Path, id.Line, id.Column)
}

// IsZero reports whether id is the zero Identity.
func (id Identity) IsZero() bool {
	return id.Path == "" && id.Line == 0 && id.Column == 0
}

// Key is the override store key for an element: "path:line:column" with an
// optional ":owner" suffix for manually mounted roots such as providers.
type Key string

// Key returns the store key for id, salted by owner when owner is non-empty.
func (id Identity) Key(owner string) Key {
	k := id.String()
	if owner != "" {
		k += ":" + owner
	}
	return Key(k)
}

// ParseKey splits a Key back into its Identity and owner salt. Paths may
// contain colons (Windows drives), so the numeric fields are located from
// the right.
func ParseKey(k Key) (Identity, string, error) {
	parts := strings.Split(string(k), ":")
	// path:line:col:owner is tried before path:line:col; path may contain ':'.
	for tail := 1; tail >= 0; tail-- {
		n := len(parts) - tail
		if n < 3 {
			continue
		}
		line, errL := strconv.Atoi(parts[n-2])
		col, errC := strconv.Atoi(parts[n-1])
		if errL != nil || errC != nil {
			continue
		}
		owner := ""
		if tail == 1 {
			owner = parts[len(parts)-1]
		}
		return Identity{Path: strings.Join(parts[:n-2], ":"), Line: line, Column: col}, owner, nil
	}
	return Identity{}, "", fmt.Errorf("scenelink: malformed key %q", string(k))
}

// Capabilities records which transform props the element's literal source
// sets statically. Only those can be written back in place.
type Capabilities struct {
	Translate bool `json:"translate"`
	Rotate    bool `json:"rotate"`
	Scale     bool `json:"scale"`
}

// Allows reports whether mode may be used on an element with these flags.
func (c Capabilities) Allows(mode TransformMode) bool {
	switch mode {
	case ModeRotate:
		return c.Rotate
	case ModeScale:
		return c.Scale
	default:
		return c.Translate
	}
}

// ElementKind is either a HostElement (an intrinsic like "mesh") or a
// CustomElement (a component reference like "Box"). It is resolved once,
// when the element is instrumented.
type ElementKind interface {
	elementKind()
	String() string
}

// HostElement is an intrinsic element rendered directly by the host.
type HostElement struct {
	Tag string
}

func (HostElement) elementKind()     {}
func (h HostElement) String() string { return "host:" + h.Tag }

// CustomElement is a user component that renders its own subtree.
type CustomElement struct {
	Component string
}

func (CustomElement) elementKind()     {}
func (c CustomElement) String() string { return "custom:" + c.Component }

// KindOf classifies a JSX tag name. Lower-case names are host intrinsics;
// capitalised and member-expression names ("drei.Box") are components.
func KindOf(name string) ElementKind {
	r, _ := utf8.DecodeRuneInString(name)
	if r != utf8.RuneError && unicode.IsLower(r) && !strings.Contains(name, ".") {
		return HostElement{Tag: name}
	}
	return CustomElement{Component: name}
}

// IsAttachedName reports whether a tag name denotes an attached element
// (materials, geometries, buffer attributes) that is never independently
// selectable.
func IsAttachedName(name string) bool {
	return strings.Contains(name, "Material") ||
		strings.Contains(name, "Geometry") ||
		strings.Contains(name, "Attribute")
}

// CarrierMeta is the metadata a carrier node attaches to the element it wraps.
type CarrierMeta struct {
	Identity Identity
	Name     string
	Kind     ElementKind
	Caps     Capabilities
	// Attached elements participate in the tree but are transparent to selection.
	Attached bool
	// Declared is the shallow snapshot of literal prop expressions, unevaluated.
	Declared map[string]string
	// Values are the evaluated source props as rendered by the host. They form
	// the bottom layer of the effective props.
	Values Props
	// Owner salts the store key for manually mounted roots.
	Owner string
}

// Key returns the override store key for this carrier.
func (m *CarrierMeta) Key() Key {
	return m.Identity.Key(m.Owner)
}
