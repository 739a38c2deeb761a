// Package instrument rewrites TSX/JSX source so every authored element
// carries its source identity at runtime.
//
// Each element is wrapped in a carrier element:
//
//	<SceneObject __meta={{"path":"scene.tsx","name":"Box","line":5,"column":11,...}}>
//	  <Box position={[1, 0, 0]} />
//	</SceneObject>
//
// Children pass through unmodified. Running Instrument over its own output
// changes nothing.
package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/phanxgames/scenelink"
)

// DefaultCarrierTag is the carrier element name.
const DefaultCarrierTag = "SceneObject"

// MetaProp is the carrier prop holding the element metadata.
const MetaProp = "__meta"

// ErrSyntax is returned when the source does not parse cleanly.
var ErrSyntax = errors.New("instrument: syntax error")

// Lighting classifies a declaration by the elements it authors.
type Lighting string

const (
	LightingDefault Lighting = "default"
	LightingCustom  Lighting = "custom"
)

// Element is one instrumented element, in source order.
type Element struct {
	Identity scenelink.Identity
	Name     string
	Kind     scenelink.ElementKind
	Caps     scenelink.Capabilities
	Attached bool
	// Props holds the source text of every literal prop.
	Props map[string]string
	// Values holds the evaluated literal props.
	Values scenelink.Props
	// Parent is the index of the nearest enclosing element, or -1.
	Parent int
	// Declaration is the index of the enclosing declaration, or -1.
	Declaration int
}

// Declaration is a capitalised function or variable that authors elements.
type Declaration struct {
	Name     string
	Line     int
	Lighting Lighting
}

// Result is the output of Instrument.
type Result struct {
	Path         string
	Code         []byte
	Elements     []Element
	Declarations []Declaration
}

// Positions returns the identity of every element, the open file's position
// table.
func (r *Result) Positions() []scenelink.Identity {
	out := make([]scenelink.Identity, len(r.Elements))
	for i, e := range r.Elements {
		out[i] = e.Identity
	}
	return out
}

// Children returns the indexes of the elements whose parent is i. Use -1 for
// the top-level elements.
func (r *Result) Children(i int) []int {
	var out []int
	for j, e := range r.Elements {
		if e.Parent == i {
			out = append(out, j)
		}
	}
	return out
}

type config struct {
	carrierTag string
}

// Option configures Instrument.
type Option func(*config)

// WithCarrierTag sets the carrier element name.
func WithCarrierTag(tag string) Option {
	return func(c *config) { c.carrierTag = tag }
}

// languageFor picks the grammar for path's extension. Unknown extensions
// parse as TSX.
func languageFor(path string) *sitter.Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".mts", ".cts":
		return typescript.GetLanguage()
	case ".js", ".jsx", ".mjs", ".cjs":
		return javascript.GetLanguage()
	default:
		return tsx.GetLanguage()
	}
}

// Instrument parses src and returns the instrumented code together with the
// element and declaration tables. path becomes the identity path of every
// element.
func Instrument(path string, src []byte, opts ...Option) (*Result, error) {
	return InstrumentContext(context.Background(), path, src, opts...)
}

// InstrumentContext is Instrument with a context for the parse.
func InstrumentContext(ctx context.Context, path string, src []byte, opts ...Option) (*Result, error) {
	cfg := config{carrierTag: DefaultCarrierTag}
	for _, o := range opts {
		o(&cfg)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(languageFor(path))

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("instrument %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		if n := firstError(root); n != nil {
			p := n.StartPoint()
			return nil, fmt.Errorf("%w in %s at %d:%d", ErrSyntax, path, p.Row+1, p.Column+1)
		}
		return nil, fmt.Errorf("%w in %s", ErrSyntax, path)
	}

	w := &walker{
		cfg:     cfg,
		path:    path,
		src:     src,
		visited: make(map[span]bool),
		res:     &Result{Path: path},
	}
	w.walk(root, -1, nil)
	w.emitLighting()
	w.res.Code = applyEdits(src, w.edits)
	return w.res, nil
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c != nil && c.HasError() {
			if e := firstError(c); e != nil {
				return e
			}
		}
	}
	return nil
}

// edit inserts text at offset. Closing inserts sort before opening inserts
// at the same offset so adjacent siblings stay balanced.
type edit struct {
	offset  uint32
	closing bool
	seq     int
	text    string
}

func applyEdits(src []byte, edits []edit) []byte {
	sort.SliceStable(edits, func(i, j int) bool {
		a, b := edits[i], edits[j]
		if a.offset != b.offset {
			return a.offset < b.offset
		}
		if a.closing != b.closing {
			return a.closing
		}
		if a.closing {
			// Inner elements close first.
			return a.seq > b.seq
		}
		return a.seq < b.seq
	})
	var buf bytes.Buffer
	buf.Grow(len(src) + len(edits)*64)
	var last uint32
	for _, e := range edits {
		buf.Write(src[last:e.offset])
		buf.WriteString(e.text)
		last = e.offset
	}
	buf.Write(src[last:])
	return buf.Bytes()
}

// carrierMeta is the wire form of the __meta prop. Field order is fixed so
// output is stable.
type carrierMeta struct {
	Path      string            `json:"path"`
	Name      string            `json:"name"`
	Line      int               `json:"line"`
	Column    int               `json:"column"`
	Kind      string            `json:"kind"`
	Attached  bool              `json:"attached"`
	Translate bool              `json:"translate"`
	Rotate    bool              `json:"rotate"`
	Scale     bool              `json:"scale"`
	Props     map[string]string `json:"props"`
}

func kindName(k scenelink.ElementKind) string {
	if _, ok := k.(scenelink.HostElement); ok {
		return "host"
	}
	return "custom"
}

func (w *walker) metaLiteral(e Element) string {
	m := carrierMeta{
		Path:      e.Identity.Path,
		Name:      e.Name,
		Line:      e.Identity.Line,
		Column:    e.Identity.Column,
		Kind:      kindName(e.Kind),
		Attached:  e.Attached,
		Translate: e.Caps.Translate,
		Rotate:    e.Caps.Rotate,
		Scale:     e.Caps.Scale,
		Props:     e.Props,
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(m)
	return strings.TrimSuffix(buf.String(), "\n")
}

// DecodeMeta parses a carrier's __meta object text back into an Element.
// Parent and Declaration are left at -1.
func DecodeMeta(text string) (Element, error) {
	var m carrierMeta
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		return Element{}, fmt.Errorf("decode carrier meta: %w", err)
	}
	e := Element{
		Identity:    scenelink.Identity{Path: m.Path, Line: m.Line, Column: m.Column},
		Name:        m.Name,
		Kind:        scenelink.KindOf(m.Name),
		Caps:        scenelink.Capabilities{Translate: m.Translate, Rotate: m.Rotate, Scale: m.Scale},
		Attached:    m.Attached,
		Props:       m.Props,
		Parent:      -1,
		Declaration: -1,
	}
	return e, nil
}
