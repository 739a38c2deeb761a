// Package preview is a debug window for a scenelink scene. It draws mesh
// boxes projected onto the XY plane and routes mouse and keyboard input into
// the scene's selector and transform pipeline.
package preview

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"go.uber.org/zap"

	"github.com/phanxgames/scenelink"
)

// Config holds window and projection settings.
type Config struct {
	Title         string
	Width         int
	Height        int
	PixelsPerUnit float64
	Logger        *zap.Logger
	// ScreenshotDir receives F12 captures. Defaults to "screenshots".
	ScreenshotDir string
	// HideStats turns off the FPS and selection overlay.
	HideStats bool
}

// shortcutKeys are the editor shortcuts forwarded to Scene.HandleKey.
var shortcutKeys = []struct {
	key  ebiten.Key
	name string
}{
	{ebiten.KeyEscape, "Escape"},
	{ebiten.KeyW, "w"},
	{ebiten.KeyE, "e"},
	{ebiten.KeyR, "r"},
}

// Game implements ebiten.Game over a scene.
type Game struct {
	scene  *scenelink.Scene
	camera *Camera
	cfg    Config
	log    *zap.Logger

	pressed      bool
	lastX, lastY float64
	buf          []*scenelink.Node

	stats *overlay
	shots []string
}

// New creates a preview for scene.
func New(scene *scenelink.Scene, cfg Config) *Game {
	if cfg.Width <= 0 {
		cfg.Width = 960
	}
	if cfg.Height <= 0 {
		cfg.Height = 640
	}
	if cfg.Title == "" {
		cfg.Title = "scenelink preview"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ScreenshotDir == "" {
		cfg.ScreenshotDir = "screenshots"
	}
	viewport := scenelink.Rect{Width: float64(cfg.Width), Height: float64(cfg.Height)}
	return &Game{
		scene:  scene,
		camera: NewCamera(viewport, cfg.PixelsPerUnit),
		cfg:    cfg,
		log:    cfg.Logger,
	}
}

// Camera returns the preview camera.
func (g *Game) Camera() *Camera {
	return g.camera
}

// Run opens the window and blocks until it is closed.
func Run(scene *scenelink.Scene, cfg Config) error {
	g := New(scene, cfg)
	ebiten.SetWindowSize(g.cfg.Width, g.cfg.Height)
	ebiten.SetWindowTitle(g.cfg.Title)
	scene.SetFrameTime(1 / float64(ebiten.TPS()))
	g.log.Info("preview window opened", zap.Int("width", g.cfg.Width), zap.Int("height", g.cfg.Height))
	return ebiten.RunGame(g)
}

// Update polls input and advances the scene one frame.
func (g *Game) Update() error {
	mx, my := ebiten.CursorPosition()
	g.handlePointer(float64(mx), float64(my), ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft))
	for _, k := range shortcutKeys {
		if inpututil.IsKeyJustPressed(k.key) {
			g.scene.InjectKey(k.name)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		g.Screenshot(g.shotLabel())
	}
	g.scene.Update()
	if !g.cfg.HideStats {
		if g.stats == nil {
			g.stats = newOverlay()
		}
		g.stats.update(1/float64(ebiten.TPS()), g.scene)
	}
	return nil
}

// shotLabel names a capture after the selected element, if any.
func (g *Game) shotLabel() string {
	if sel := g.scene.Selection(); sel != nil {
		return sel.Owner.Carrier.Name + "_" + sel.Identity.String()
	}
	return "scene"
}

// handlePointer turns the polled button state into injected press, move and
// release events, at most one per frame so the scene consumes them in step.
func (g *Game) handlePointer(sx, sy float64, down bool) {
	wx, wy := g.camera.ScreenToWorld(sx, sy)
	switch {
	case down && !g.pressed:
		g.scene.InjectPress(wx, wy)
	case down && g.pressed:
		if wx == g.lastX && wy == g.lastY {
			return
		}
		g.scene.InjectMove(wx, wy)
	case !down && g.pressed:
		g.scene.InjectRelease(wx, wy)
	default:
		return
	}
	g.pressed = down
	g.lastX, g.lastY = wx, wy
}

// Draw renders visible meshes in painter order and outlines the selection.
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor.toRGBA())

	g.buf = g.buf[:0]
	g.scene.Root().Walk(func(n *scenelink.Node) bool {
		if !n.Visible {
			return false
		}
		if n.Type == scenelink.NodeTypeMesh && !n.Size.IsZero() {
			g.buf = append(g.buf, n)
		}
		return true
	})

	for _, n := range g.buf {
		r := g.camera.ScreenRect(n.WorldBounds())
		c := meshColor(n)
		c.A *= n.WorldAlpha()
		vector.DrawFilledRect(screen, float32(r.X), float32(r.Y), float32(r.Width), float32(r.Height), c.toRGBA(), false)
	}

	if sel := g.scene.Selection(); sel != nil && sel.Target.Type == scenelink.NodeTypeMesh {
		r := g.camera.ScreenRect(sel.Target.WorldBounds())
		clr := selectionColor
		if !g.scene.ModeEnabled() {
			clr.A = 0.4
		}
		vector.StrokeRect(screen, float32(r.X), float32(r.Y), float32(r.Width), float32(r.Height), 2, clr.toRGBA(), false)
	}

	// Captured before the overlay so screenshots show only the scene.
	g.flushScreenshots(screen)
	if g.stats != nil {
		g.stats.draw(screen)
	}
}

// Layout returns the configured logical screen size.
func (g *Game) Layout(_, _ int) (int, int) {
	return g.cfg.Width, g.cfg.Height
}
