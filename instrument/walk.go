package instrument

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phanxgames/scenelink"
)

// span identifies a syntax node within one parse.
type span struct {
	start, end uint32
}

func spanOf(n *sitter.Node) span {
	return span{n.StartByte(), n.EndByte()}
}

// declScope is a candidate declaration. It becomes a Declaration once an
// element is found inside it.
type declScope struct {
	name   string
	line   int
	stmt   *sitter.Node
	index  int
	fresh  bool
	custom bool
}

type walker struct {
	cfg     config
	path    string
	src     []byte
	visited map[span]bool
	res     *Result
	edits   []edit
	seq     int
	scopes  []*declScope
}

func (w *walker) text(n *sitter.Node) string {
	return n.Content(w.src)
}

func isComponentName(name string) bool {
	for _, r := range name {
		return unicode.IsUpper(r)
	}
	return false
}

// declFor returns a declScope when n declares a capitalised identifier.
func (w *walker) declFor(n *sitter.Node) *declScope {
	var nameNode, stmt *sitter.Node
	switch n.Type() {
	case "function_declaration", "generator_function_declaration", "class_declaration":
		nameNode, stmt = n.ChildByFieldName("name"), n
	case "variable_declarator":
		if n.ChildByFieldName("value") == nil {
			return nil
		}
		nameNode, stmt = n.ChildByFieldName("name"), n.Parent()
	default:
		return nil
	}
	if nameNode == nil || nameNode.Type() != "identifier" && nameNode.Type() != "type_identifier" {
		return nil
	}
	name := w.text(nameNode)
	if !isComponentName(name) || stmt == nil {
		return nil
	}
	if p := stmt.Parent(); p != nil && p.Type() == "export_statement" {
		stmt = p
	}
	return &declScope{name: name, line: int(n.StartPoint().Row) + 1, stmt: stmt, index: -1}
}

// walk visits n in source order. parent is the index of the nearest
// enclosing element.
func (w *walker) walk(n *sitter.Node, parent int, scope *declScope) {
	if d := w.declFor(n); d != nil {
		w.scopes = append(w.scopes, d)
		scope = d
	}
	switch n.Type() {
	case "jsx_element", "jsx_self_closing_element":
		parent = w.element(n, parent, scope)
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c != nil {
			w.walk(c, parent, scope)
		}
	}
}

// tagOf returns the node holding an element's name and attributes.
func tagOf(n *sitter.Node) *sitter.Node {
	if n.Type() == "jsx_element" {
		return n.ChildByFieldName("open_tag")
	}
	return n
}

func (w *walker) elementName(n *sitter.Node) string {
	tag := tagOf(n)
	if tag == nil {
		return ""
	}
	name := tag.ChildByFieldName("name")
	if name == nil {
		return ""
	}
	return w.text(name)
}

// wrappedChild returns the element a carrier wraps.
func wrappedChild(carrier *sitter.Node) *sitter.Node {
	if carrier.Type() != "jsx_element" {
		return nil
	}
	for _, c := range namedChildren(carrier) {
		switch c.Type() {
		case "jsx_element", "jsx_self_closing_element":
			return c
		}
	}
	return nil
}

// element records and wraps one element, returning the parent index its
// children should use.
func (w *walker) element(n *sitter.Node, parent int, scope *declScope) int {
	name := w.elementName(n)
	if name == "" {
		return parent // fragment
	}
	if name == w.cfg.carrierTag {
		w.visited[spanOf(n)] = true
		if c := wrappedChild(n); c != nil {
			w.visited[spanOf(c)] = true
		}
		return parent
	}
	if w.visited[spanOf(n)] {
		return parent
	}
	w.visited[spanOf(n)] = true

	open, p := w.openingBracket(n)
	e := Element{
		Identity: scenelink.Identity{
			Path:   w.path,
			Line:   int(p.Row) + 1,
			Column: int(p.Column) + 1,
		},
		Name:        name,
		Kind:        scenelink.KindOf(name),
		Attached:    scenelink.IsAttachedName(name),
		Props:       make(map[string]string),
		Values:      scenelink.Props{},
		Parent:      parent,
		Declaration: -1,
	}
	w.readAttributes(tagOf(n), &e)
	e.Caps = scenelink.Capabilities{
		Translate: hasKey(e.Props, "position"),
		Rotate:    hasKey(e.Props, "rotation"),
		Scale:     hasKey(e.Props, "scale"),
	}

	if scope != nil {
		if scope.index < 0 {
			scope.index = len(w.res.Declarations)
			w.res.Declarations = append(w.res.Declarations, Declaration{
				Name:     scope.name,
				Line:     scope.line,
				Lighting: LightingDefault,
			})
		}
		scope.fresh = true
		if strings.HasSuffix(name, "Light") {
			scope.custom = true
			w.res.Declarations[scope.index].Lighting = LightingCustom
		}
		e.Declaration = scope.index
	}

	idx := len(w.res.Elements)
	w.res.Elements = append(w.res.Elements, e)

	w.seq++
	tag := w.cfg.carrierTag
	w.edits = append(w.edits,
		edit{offset: open, seq: w.seq, text: "<" + tag + " " + MetaProp + "={" + w.metaLiteral(e) + "}>"},
		edit{offset: n.EndByte(), seq: w.seq, closing: true, text: "</" + tag + ">"},
	)
	return idx
}

// openingBracket returns the byte offset and point of the element's '<'.
// Nested elements start at the whitespace before their tag.
func (w *walker) openingBracket(n *sitter.Node) (uint32, sitter.Point) {
	off, p := n.StartByte(), n.StartPoint()
	for end := n.EndByte(); off < end && w.src[off] != '<'; off++ {
		if w.src[off] == '\n' {
			p.Row++
			p.Column = 0
		} else {
			p.Column++
		}
	}
	return off, p
}

func hasKey(m map[string]string, k string) bool {
	_, ok := m[k]
	return ok
}

// readAttributes snapshots the literal props of an element.
func (w *walker) readAttributes(tag *sitter.Node, e *Element) {
	if tag == nil {
		return
	}
	for _, attr := range namedChildren(tag) {
		if attr.Type() != "jsx_attribute" {
			continue
		}
		kids := namedChildren(attr)
		if len(kids) == 0 {
			continue
		}
		prop := w.text(kids[0])
		if prop == "attach" {
			e.Attached = true
		}
		if len(kids) == 1 {
			// <mesh castShadow />
			e.Props[prop] = "true"
			e.Values[prop] = true
			continue
		}
		expr := kids[1]
		if expr.Type() == "jsx_expression" {
			inner := namedChildren(expr)
			if len(inner) != 1 {
				continue
			}
			expr = inner[0]
		}
		if !isLiteral(expr) {
			continue
		}
		e.Props[prop] = w.text(expr)
		e.Values[prop] = evalLiteral(expr, w.src)
	}
}

// hasSceneMeta reports whether src already assigns name.sceneMeta. The name
// must stand alone: MyBox.sceneMeta does not count for Box.
func hasSceneMeta(src []byte, name string) bool {
	re := regexp.MustCompile(`(^|[^\w$.])` + regexp.QuoteMeta(name) + `\.sceneMeta\b`)
	return re.Match(src)
}

// emitLighting appends each declaration's lighting classifier once, after
// the declaring statement. Declarations whose elements were all instrumented
// by an earlier pass, or that already carry the field, are left alone.
func (w *walker) emitLighting() {
	done := make(map[string]bool)
	for _, d := range w.scopes {
		if d.index < 0 || !d.fresh || done[d.name] {
			continue
		}
		done[d.name] = true
		if hasSceneMeta(w.src, d.name) {
			continue
		}
		lighting := w.res.Declarations[d.index].Lighting
		w.seq++
		w.edits = append(w.edits, edit{
			offset: d.stmt.EndByte(),
			seq:    w.seq,
			text:   fmt.Sprintf("\n%s.sceneMeta = { lighting: %q };", d.name, lighting),
		})
	}
}
