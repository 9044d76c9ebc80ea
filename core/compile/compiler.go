// Package compile implements the template language shared by preview and
// every export target: {{name}} substitution (HTML-escaped; {{{name}}} is
// raw), dotted paths, {{#each}} iteration with @index, @number, @letter,
// @first and @last loop data, and {{#if}}/{{else}}/{{#unless}} conditionals.
//
// Compilation is pure and never fails at render time: missing names render
// empty, non-sequence loop fields render nothing. Malformed markup is
// rejected earlier by Check when the template is registered.
package compile

import (
	"fmt"
	"html"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/medtosdigital/aulagia/core"
)

// Compiler implements core.Compiler.
type Compiler struct{}

var _ core.Compiler = (*Compiler)(nil)

// New creates a Compiler.
func New() *Compiler {
	return &Compiler{}
}

// Compile renders the template markup against data.
func (c *Compiler) Compile(tpl core.Template, data map[string]any) string {
	return Render(tpl.Markup, data)
}

// Render renders markup against data.
func Render(markup string, data map[string]any) string {
	return renderBody(markup, &scope{data: data})
}

// scope is one level of name resolution. The root scope holds the data
// object; each loop iteration pushes the current element and its loop data.
type scope struct {
	data   any
	meta   map[string]any
	parent *scope
}

type loop struct {
	field string
	body  string
}

// renderBody resolves one level of markup. Loop blocks are lifted out
// first so the conditionals and placeholders of this level never touch
// loop bodies; loops are expanded last, each iteration recursing into
// renderBody with the element pushed as the innermost scope.
func renderBody(markup string, sc *scope) string {
	text, loops := extractLoops(markup)
	text = resolveConditionals(text, sc)
	text = substitute(text, sc)
	return expandLoops(text, loops, sc)
}

func loopToken(i int) string {
	return "\x00" + strconv.Itoa(i) + "\x00"
}

// extractLoops replaces each outermost {{#each}}...{{/each}} block with a
// token and records its field and body. Nested each blocks stay inside the
// recorded body.
func extractLoops(markup string) (string, []loop) {
	var (
		b     strings.Builder
		loops []loop
		pos   int
		last  int
	)
	for {
		t, ok, _ := nextTag(markup, pos)
		if !ok {
			break
		}
		pos = t.end
		if t.kind != tagOpen || t.block != "each" {
			continue
		}
		bodyStart := t.end
		closeTag, found := matchingClose(markup, bodyStart, "each")
		if !found {
			break
		}
		b.WriteString(markup[last:t.start])
		b.WriteString(loopToken(len(loops)))
		loops = append(loops, loop{field: t.name, body: markup[bodyStart:closeTag.start]})
		pos = closeTag.end
		last = closeTag.end
	}
	b.WriteString(markup[last:])
	return b.String(), loops
}

// matchingClose finds the {{/block}} that closes a block whose body starts
// at from, skipping nested blocks of the same kind.
func matchingClose(markup string, from int, block string) (tag, bool) {
	depth := 0
	pos := from
	for {
		t, ok, _ := nextTag(markup, pos)
		if !ok {
			return tag{}, false
		}
		pos = t.end
		switch {
		case t.kind == tagOpen && t.block == block:
			depth++
		case t.kind == tagClose && t.block == block:
			if depth == 0 {
				return t, true
			}
			depth--
		}
	}
}

// resolveConditionals evaluates every {{#if}} and {{#unless}} block against
// sc, keeping the chosen branch and dropping the tags.
func resolveConditionals(text string, sc *scope) string {
	pos := 0
	for {
		t, ok, _ := nextTag(text, pos)
		if !ok {
			return text
		}
		if t.kind != tagOpen || (t.block != "if" && t.block != "unless") {
			pos = t.end
			continue
		}

		elseTag, closeTag, found := conditionalBounds(text, t.end)
		if !found {
			// Unbalanced; drop the opening tag so nothing leaks into output.
			text = text[:t.start] + text[t.end:]
			pos = t.start
			continue
		}

		thenPart := text[t.end:closeTag.start]
		elsePart := ""
		if elseTag != nil {
			thenPart = text[t.end:elseTag.start]
			elsePart = text[elseTag.end:closeTag.start]
		}
		cond := truthy(lookup(sc, t.name))
		if t.block == "unless" {
			cond = !cond
		}
		chosen := elsePart
		if cond {
			chosen = thenPart
		}
		// Rescan from the block start: the chosen branch may hold nested
		// conditionals.
		text = text[:t.start] + chosen + text[closeTag.end:]
		pos = t.start
	}
}

// conditionalBounds locates the {{else}} (if any) and the closing tag of a
// conditional whose body starts at from.
func conditionalBounds(text string, from int) (*tag, tag, bool) {
	var elseTag *tag
	depth := 0
	pos := from
	for {
		t, ok, _ := nextTag(text, pos)
		if !ok {
			return nil, tag{}, false
		}
		pos = t.end
		switch t.kind {
		case tagOpen:
			depth++
		case tagClose:
			if depth == 0 {
				return elseTag, t, true
			}
			depth--
		case tagElse:
			if depth == 0 && elseTag == nil {
				e := t
				elseTag = &e
			}
		}
	}
}

// substitute replaces placeholders with values from sc. Stray block tags
// left by malformed markup are dropped.
func substitute(text string, sc *scope) string {
	var b strings.Builder
	pos, last := 0, 0
	for {
		t, ok, _ := nextTag(text, pos)
		if !ok {
			break
		}
		b.WriteString(text[last:t.start])
		if t.kind == tagVar {
			v := stringify(lookup(sc, t.name))
			v = strings.ReplaceAll(v, "\x00", "")
			if !t.raw {
				v = html.EscapeString(v)
			}
			b.WriteString(v)
		}
		pos, last = t.end, t.end
	}
	b.WriteString(text[last:])
	return b.String()
}

func expandLoops(text string, loops []loop, sc *scope) string {
	for i, l := range loops {
		text = strings.Replace(text, loopToken(i), renderLoop(l, sc), 1)
	}
	return text
}

func renderLoop(l loop, sc *scope) string {
	items := toSlice(lookup(sc, l.field))
	var b strings.Builder
	prev := ""
	for i, item := range items {
		child := &scope{
			data: item,
			meta: map[string]any{
				"index":  i,
				"number": i + 1,
				"letter": Letter(i),
				"first":  i == 0,
				"last":   i == len(items)-1,
			},
			parent: sc,
		}
		out := renderBody(l.body, child)
		if i > 0 && needsSeparator(prev, out) {
			b.WriteByte(' ')
		}
		b.WriteString(out)
		prev = out
	}
	return b.String()
}

// needsSeparator reports whether two consecutive iterations would glue
// words together: the first ends and the next starts with plain text.
func needsSeparator(prev, next string) bool {
	if prev == "" || next == "" {
		return false
	}
	last := []rune(prev)[len([]rune(prev))-1]
	first := []rune(next)[0]
	return isWordRune(last) && isWordRune(first)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsPunct(r)
}

// Letter returns the bijective base-26 label of a 0-based index:
// A..Z, AA, AB, ...
func Letter(i int) string {
	if i < 0 {
		return ""
	}
	var out []byte
	for n := i + 1; n > 0; n = (n - 1) / 26 {
		out = append([]byte{byte('A' + (n-1)%26)}, out...)
	}
	return string(out)
}

// lookup resolves a placeholder name. Loop data (@name) comes from the
// nearest loop; this and this.path address the current element; any other
// path is resolved in the innermost scope that defines its first segment.
func lookup(sc *scope, name string) any {
	name = strings.TrimSpace(name)
	switch {
	case strings.HasPrefix(name, "@"):
		key := name[1:]
		for s := sc; s != nil; s = s.parent {
			if v, ok := s.meta[key]; ok {
				return v
			}
		}
		return nil
	case name == "this" || name == ".":
		return sc.data
	case strings.HasPrefix(name, "this."):
		return walk(sc.data, strings.Split(name[len("this."):], "."))
	}

	parts := strings.Split(name, ".")
	for s := sc; s != nil; s = s.parent {
		m, ok := s.data.(map[string]any)
		if !ok {
			continue
		}
		if v, ok := m[parts[0]]; ok {
			return walk(v, parts[1:])
		}
	}
	return nil
}

func walk(v any, path []string) any {
	for _, p := range path {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v = m[p]
	}
	return v
}

// toSlice returns v as a sequence, or nil when v is not one.
func toSlice(v any) []any {
	switch s := v.(type) {
	case nil:
		return nil
	case []any:
		return s
	case []string:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out
	case []map[string]any:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			parts = append(parts, stringify(e))
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(x, ", ")
	case map[string]any:
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	case reflect.Ptr, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}
