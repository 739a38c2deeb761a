package instrument

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// namedChildren returns n's named children, comments excluded.
func namedChildren(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c == nil || c.Type() == "comment" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// isLiteral reports whether n is a static literal expression: one the editor
// can rewrite in place without evaluating code.
func isLiteral(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "number", "string", "true", "false", "null", "undefined":
		return true
	case "template_string":
		for _, c := range namedChildren(n) {
			if c.Type() == "template_substitution" {
				return false
			}
		}
		return true
	case "unary_expression":
		return isLiteral(n.ChildByFieldName("argument"))
	case "parenthesized_expression":
		kids := namedChildren(n)
		return len(kids) == 1 && isLiteral(kids[0])
	case "array":
		for _, c := range namedChildren(n) {
			if !isLiteral(c) {
				return false
			}
		}
		return true
	case "object":
		for _, c := range namedChildren(n) {
			if c.Type() != "pair" || !isLiteral(c.ChildByFieldName("value")) {
				return false
			}
		}
		return true
	}
	return false
}

// evalLiteral converts a literal expression to its Go value: float64,
// string, bool, nil, []any or map[string]any. Callers check isLiteral first.
func evalLiteral(n *sitter.Node, src []byte) any {
	text := n.Content(src)
	switch n.Type() {
	case "number":
		return parseNumber(text)
	case "string":
		return unescape(unquote(text))
	case "template_string":
		return unquote(text)
	case "true":
		return true
	case "false":
		return false
	case "null", "undefined":
		return nil
	case "parenthesized_expression":
		return evalLiteral(namedChildren(n)[0], src)
	case "unary_expression":
		arg := evalLiteral(n.ChildByFieldName("argument"), src)
		op := n.ChildByFieldName("operator")
		if op == nil {
			return arg
		}
		switch op.Content(src) {
		case "-":
			if f, ok := arg.(float64); ok {
				return -f
			}
		case "+":
			return arg
		case "!":
			return !truthy(arg)
		}
		return text
	case "array":
		kids := namedChildren(n)
		out := make([]any, len(kids))
		for i, c := range kids {
			out[i] = evalLiteral(c, src)
		}
		return out
	case "object":
		out := make(map[string]any)
		for _, c := range namedChildren(n) {
			key := c.ChildByFieldName("key")
			if key == nil {
				continue
			}
			k := key.Content(src)
			if key.Type() == "string" {
				k = unescape(unquote(k))
			}
			out[k] = evalLiteral(c.ChildByFieldName("value"), src)
		}
		return out
	}
	return text
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	}
	return true
}

func parseNumber(text string) any {
	s := strings.ReplaceAll(text, "_", "")
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "0x") || strings.HasPrefix(lower, "0o") || strings.HasPrefix(lower, "0b") {
		if i, err := strconv.ParseInt(lower, 0, 64); err == nil {
			return float64(i)
		}
		return text
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return text
}

func unquote(s string) string {
	if len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return s
}

// unescape resolves the common JS string escapes.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '0':
			b.WriteByte(0)
		case 'u':
			if i+4 < len(s) {
				if r, err := strconv.ParseUint(s[i+1:i+5], 16, 32); err == nil {
					b.WriteRune(rune(r))
					i += 4
					continue
				}
			}
			b.WriteByte('u')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
