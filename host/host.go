// Package host is a reference render host: it turns instrumented source into
// a scenelink node tree, one carrier per authored element, and keeps it
// mounted under a scene as files change.
package host

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/phanxgames/scenelink"
	"github.com/phanxgames/scenelink/instrument"
)

// maxExpandDepth bounds component expansion so self-referencing components
// terminate.
const maxExpandDepth = 8

// hostOnlyProps are element props that configure the host rather than the
// rendered object; they never reach the source layer.
var hostOnlyProps = map[string]bool{
	"args":     true,
	"attach":   true,
	"children": true,
	"key":      true,
	"ref":      true,
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the host logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Host) { h.log = l }
}

// WithRootDir makes identity paths relative to dir.
func WithRootDir(dir string) Option {
	return func(h *Host) { h.rootDir = dir }
}

// WithRootComponent names the declaration rendered as the scene root. The
// default is the last declaration in the open file.
func WithRootComponent(name string) Option {
	return func(h *Host) { h.rootComponent = name }
}

// WithInstrumentOptions passes options to every instrumentation run.
func WithInstrumentOptions(opts ...instrument.Option) Option {
	return func(h *Host) { h.instrumentOpts = append(h.instrumentOpts, opts...) }
}

// Host builds and mounts scene trees. The mounted tree replaces every child
// of the scene root. Load and Reload may be called from any goroutine; the tree itself is only touched on the scene's frame goroutine
// through Scene.Post.
type Host struct {
	scene          *scenelink.Scene
	log            *zap.Logger
	rootDir        string
	rootComponent  string
	instrumentOpts []instrument.Option

	// Guarded by the frame goroutine.
	openPath string
	results  map[string]*instrument.Result
	order    []string
	mounted  *scenelink.Node
}

// New creates a host for scene.
func New(scene *scenelink.Scene, opts ...Option) *Host {
	h := &Host{
		scene:   scene,
		log:     zap.NewNop(),
		results: make(map[string]*instrument.Result),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// IdentityPath maps a file path to the path used in identities: slash
// separated and relative to the root directory when one is set.
func (h *Host) IdentityPath(path string) string {
	if h.rootDir != "" {
		abs, err := filepath.Abs(path)
		if err == nil {
			root, rerr := filepath.Abs(h.rootDir)
			if rerr == nil {
				if rel, err := filepath.Rel(root, abs); err == nil && !strings.HasPrefix(rel, "..") {
					path = rel
				}
			}
		}
	}
	return filepath.ToSlash(filepath.Clean(path))
}

// Compile reads and instruments the file at path.
func (h *Host) Compile(path string) (*instrument.Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	res, err := instrument.Instrument(h.IdentityPath(path), src, h.instrumentOpts...)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Open compiles the file at path, marks it as the file open in the editor
// and mounts it on the next frame.
func (h *Host) Open(path string) error {
	res, err := h.Compile(path)
	if err != nil {
		return err
	}
	h.scene.Post(func() {
		h.openPath = res.Path
		h.add(res)
		h.remount()
	})
	return nil
}

// AddLibrary compiles a file whose declarations may be used as components
// by the open file.
func (h *Host) AddLibrary(path string) error {
	res, err := h.Compile(path)
	if err != nil {
		return err
	}
	h.scene.Post(func() {
		h.add(res)
		if h.openPath != "" {
			h.remount()
		}
	})
	return nil
}

// Reload recompiles path after a change. The rebuilt tree is mounted and
// the store's hot-reload policy applied in the same frame. A file that fails
// to compile keeps its previous tree and overrides.
func (h *Host) Reload(path string) {
	res, err := h.Compile(path)
	if err != nil {
		h.log.Warn("reload failed; keeping previous tree", zap.String("path", path), zap.Error(err))
		return
	}
	h.scene.Post(func() {
		h.add(res)
		h.remount()
	})
	h.scene.Reload(res.Path)
}

// Mount builds res and mounts it as the open file. It must run on the frame
// goroutine.
func (h *Host) Mount(res *instrument.Result) {
	h.openPath = res.Path
	h.add(res)
	h.remount()
}

func (h *Host) add(res *instrument.Result) {
	if _, ok := h.results[res.Path]; !ok {
		h.order = append(h.order, res.Path)
	}
	h.results[res.Path] = res
}

func (h *Host) remount() {
	open := h.results[h.openPath]
	if open == nil {
		return
	}
	root := h.scene.Root()
	root.RemoveChildren()
	if h.mounted != nil {
		h.mounted.Dispose()
	}
	h.mounted = h.Build(open)
	root.AddChild(h.mounted)
	h.scene.SetOpenFile(open.Path, open.Positions())
	h.log.Debug("mounted", zap.String("path", open.Path), zap.Int("elements", len(open.Elements)))
}

// Build renders res into a detached tree rooted at a group named after the
// file.
func (h *Host) Build(res *instrument.Result) *scenelink.Node {
	root := scenelink.NewGroup(res.Path)
	decl := h.rootDeclaration(res)
	for _, idx := range roots(res, decl) {
		root.AddChild(h.build(res, idx, 0))
	}
	return root
}

func (h *Host) rootDeclaration(res *instrument.Result) int {
	if len(res.Declarations) == 0 {
		return -1
	}
	if h.rootComponent != "" {
		for i, d := range res.Declarations {
			if d.Name == h.rootComponent {
				return i
			}
		}
	}
	return len(res.Declarations) - 1
}

// roots returns the outermost elements of declaration decl, or of the whole
// file when decl is -1.
func roots(res *instrument.Result, decl int) []int {
	var out []int
	for i, e := range res.Elements {
		if decl >= 0 && e.Declaration != decl {
			continue
		}
		if e.Parent < 0 || (decl >= 0 && res.Elements[e.Parent].Declaration != decl) {
			out = append(out, i)
		}
	}
	return out
}

// lookup finds the declaration implementing component name, searching the
// open file first.
func (h *Host) lookup(name string) (*instrument.Result, int) {
	search := func(res *instrument.Result) int {
		for i, d := range res.Declarations {
			if d.Name == name {
				return i
			}
		}
		return -1
	}
	if res := h.results[h.openPath]; res != nil {
		if d := search(res); d >= 0 {
			return res, d
		}
	}
	for _, p := range h.order {
		if p == h.openPath {
			continue
		}
		if d := search(h.results[p]); d >= 0 {
			return h.results[p], d
		}
	}
	return nil, -1
}

// build creates the carrier for element idx, its rendered object and,
// recursively, everything beneath it.
func (h *Host) build(res *instrument.Result, idx, depth int) *scenelink.Node {
	e := res.Elements[idx]
	carrier := scenelink.NewCarrier(scenelink.CarrierMeta{
		Identity: e.Identity,
		Name:     e.Name,
		Kind:     e.Kind,
		Caps:     e.Caps,
		Attached: e.Attached,
		Declared: e.Props,
		Values:   sourceValues(e.Values),
	})
	obj := objectFor(e)
	carrier.AddChild(obj)

	if _, custom := e.Kind.(scenelink.CustomElement); custom {
		if depth < maxExpandDepth {
			if body, d := h.lookup(e.Name); body != nil {
				for _, top := range roots(body, d) {
					obj.AddChild(h.build(body, top, depth+1))
				}
			}
		} else {
			h.log.Warn("component expansion too deep", zap.String("component", e.Name))
		}
	}

	for i, c := range res.Elements {
		if c.Parent != idx {
			continue
		}
		obj.AddChild(h.build(res, i, depth))
		applyGeometry(obj, c)
	}
	return carrier
}

func sourceValues(v scenelink.Props) scenelink.Props {
	out := make(scenelink.Props, len(v))
	for k, val := range v {
		if !hostOnlyProps[k] {
			out[k] = val
		}
	}
	return out
}

// objectFor creates the rendered object of an element.
func objectFor(e instrument.Element) *scenelink.Node {
	if _, custom := e.Kind.(scenelink.CustomElement); custom || e.Attached {
		return scenelink.NewGroup(e.Name)
	}
	switch {
	case e.Name == "mesh" || e.Name == "sprite" || strings.HasSuffix(e.Name, "Mesh"):
		return scenelink.NewMesh(e.Name, scenelink.Vec3One)
	case strings.HasSuffix(e.Name, "Light"):
		return scenelink.NewLight(e.Name)
	case strings.HasSuffix(e.Name, "Camera"):
		return scenelink.NewCamera(e.Name)
	}
	return scenelink.NewGroup(e.Name)
}

// applyGeometry sizes a mesh from an attached geometry child's args.
func applyGeometry(mesh *scenelink.Node, geom instrument.Element) {
	if mesh.Type != scenelink.NodeTypeMesh {
		return
	}
	args, _ := geom.Values["args"].([]any)
	arg := func(i int) (float64, bool) {
		if i >= len(args) {
			return 0, false
		}
		f, ok := args[i].(float64)
		return f, ok
	}
	switch geom.Name {
	case "boxGeometry":
		if v, ok := scenelink.Vec3FromValue(args); ok {
			mesh.Size = v
		}
	case "planeGeometry":
		w, okw := arg(0)
		hgt, okh := arg(1)
		if okw && okh {
			mesh.Size = scenelink.Vec3{X: w, Y: hgt}
		}
	case "sphereGeometry":
		if r, ok := arg(0); ok {
			mesh.Size = scenelink.Vec3{X: 2 * r, Y: 2 * r, Z: 2 * r}
		}
	case "cylinderGeometry":
		top, okt := arg(0)
		bottom, okb := arg(1)
		height, okh := arg(2)
		if okt && okb && okh {
			d := 2 * math.Max(top, bottom)
			mesh.Size = scenelink.Vec3{X: d, Y: height, Z: d}
		}
	}
}
