package preview

import (
	"fmt"
	"image/color"
	"strings"

	"golang.org/x/image/colornames"

	"github.com/phanxgames/scenelink"
)

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
type Color struct {
	R, G, B, A float64
}

var (
	defaultMeshColor = Color{0.55, 0.6, 0.68, 1}
	selectionColor   = Color{1, 0.8, 0.1, 1}
	backgroundColor  = Color{0.118, 0.118, 0.157, 1}
)

func (c Color) toRGBA() color.RGBA {
	clamp := func(v float64) uint8 {
		if v <= 0 {
			return 0
		}
		if v >= 1 {
			return 255
		}
		return uint8(v*255 + 0.5)
	}
	return color.RGBA{
		R: clamp(c.R * c.A),
		G: clamp(c.G * c.A),
		B: clamp(c.B * c.A),
		A: clamp(c.A),
	}
}

// ParseColor parses a CSS-style color prop: a named color ("hotpink") or a
// hex string ("#f80", "#ff8800", "#ff8800cc").
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Color{}, fmt.Errorf("preview: empty color")
	}
	if s[0] == '#' {
		return parseHex(s[1:])
	}
	nc, ok := colornames.Map[strings.ToLower(s)]
	if !ok {
		return Color{}, fmt.Errorf("preview: unknown color %q", s)
	}
	return Color{float64(nc.R) / 255, float64(nc.G) / 255, float64(nc.B) / 255, float64(nc.A) / 255}, nil
}

func parseHex(x string) (Color, error) {
	var r, g, b, a uint8 = 0, 0, 0, 255
	var err error
	switch len(x) {
	case 3:
		_, err = fmt.Sscanf(x, "%1x%1x%1x", &r, &g, &b)
		r, g, b = r|r<<4, g|g<<4, b|b<<4
	case 6:
		_, err = fmt.Sscanf(x, "%02x%02x%02x", &r, &g, &b)
	case 8:
		_, err = fmt.Sscanf(x, "%02x%02x%02x%02x", &r, &g, &b, &a)
	default:
		err = fmt.Errorf("bad length %d", len(x))
	}
	if err != nil {
		return Color{}, fmt.Errorf("preview: parse hex color %q: %w", x, err)
	}
	return Color{float64(r) / 255, float64(g) / 255, float64(b) / 255, float64(a) / 255}, nil
}

// meshColor resolves the color a mesh is drawn with: its own color prop, or
// the color prop of an attached material below it.
func meshColor(mesh *scenelink.Node) Color {
	if c, ok := colorProp(mesh.Props); ok {
		return c
	}
	for _, child := range mesh.Children() {
		if child.Type != scenelink.NodeTypeCarrier || child.Carrier == nil || !child.Carrier.Attached {
			continue
		}
		if c, ok := colorProp(child.Object().Props); ok {
			return c
		}
	}
	return defaultMeshColor
}

func colorProp(p scenelink.Props) (Color, bool) {
	s, ok := p["color"].(string)
	if !ok {
		return Color{}, false
	}
	c, err := ParseColor(s)
	return c, err == nil
}
