package preview

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"github.com/phanxgames/scenelink"
)

// overlayRefresh is how often, in seconds, the status text is redrawn.
const overlayRefresh = 0.5

// overlay draws FPS, TPS and the current selection in the window corner.
type overlay struct {
	img   *ebiten.Image
	since float64
	text  string
}

func newOverlay() *overlay {
	// 240x64 fits four DebugPrint lines.
	return &overlay{img: ebiten.NewImage(240, 64), since: overlayRefresh}
}

// update refreshes the text every overlayRefresh seconds.
func (o *overlay) update(dt float64, s *scenelink.Scene) {
	o.since += dt
	if o.since < overlayRefresh {
		return
	}
	o.since = 0
	o.text = statusText(ebiten.ActualFPS(), ebiten.ActualTPS(), s)

	o.img.Clear()
	o.img.Fill(color.RGBA{0, 0, 0, 128})
	ebitenutil.DebugPrint(o.img, o.text)
}

func (o *overlay) draw(screen *ebiten.Image) {
	screen.DrawImage(o.img, nil)
}

// statusText formats the overlay lines.
func statusText(fps, tps float64, s *scenelink.Scene) string {
	var b strings.Builder
	fmt.Fprintf(&b, "FPS: %.1f\nTPS: %.1f\n", fps, tps)
	sel := s.Selection()
	if sel == nil {
		b.WriteString("selection: none\n")
	} else {
		fmt.Fprintf(&b, "selection: %s %s\n", sel.Owner.Carrier.Name, sel.Identity)
	}
	mode := s.TransformMode().String()
	if sel != nil && !s.ModeEnabled() {
		mode += " (disabled)"
	}
	fmt.Fprintf(&b, "mode: %s", mode)
	return b.String()
}
