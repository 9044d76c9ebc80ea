package compile

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ErrMalformed reports template markup whose block tags do not balance.
var ErrMalformed = errors.New("malformed template")

type tagKind int

const (
	tagVar tagKind = iota
	tagOpen
	tagClose
	tagElse
)

// tag is one {{...}} or {{{...}}} occurrence in markup.
type tag struct {
	start, end int // byte offsets of the whole tag, end exclusive
	kind       tagKind
	block      string // each, if, unless for open/close tags
	name       string // variable or block argument
	raw        bool   // triple-stash, no escaping
}

// nextTag finds the first tag at or after from. ok is false when no
// complete tag remains; unterminated is true when "{{" has no closing
// braces.
func nextTag(s string, from int) (t tag, ok, unterminated bool) {
	i := strings.Index(s[from:], "{{")
	if i < 0 {
		return tag{}, false, false
	}
	start := from + i
	open, closer := "{{", "}}"
	if strings.HasPrefix(s[start:], "{{{") {
		open, closer = "{{{", "}}}"
	}
	j := strings.Index(s[start+len(open):], closer)
	if j < 0 {
		return tag{}, false, true
	}
	inner := strings.TrimSpace(s[start+len(open) : start+len(open)+j])
	t = tag{start: start, end: start + len(open) + j + len(closer), raw: open == "{{{"}

	switch {
	case strings.HasPrefix(inner, "#"):
		fields := strings.Fields(inner[1:])
		t.kind = tagOpen
		if len(fields) > 0 {
			t.block = fields[0]
		}
		if len(fields) > 1 {
			t.name = fields[1]
		}
	case strings.HasPrefix(inner, "/"):
		t.kind = tagClose
		t.block = strings.TrimSpace(inner[1:])
	case inner == "else":
		t.kind = tagElse
	default:
		t.kind = tagVar
		t.name = inner
	}
	return t, true, false
}

func isBlock(name string) bool {
	return name == "each" || name == "if" || name == "unless"
}

// Check verifies that every block tag is a known helper, carries an
// argument and is closed in the right order.
func Check(markup string) error {
	var stack []tag
	pos := 0
	for {
		t, ok, unterminated := nextTag(markup, pos)
		if unterminated {
			return fmt.Errorf("%w: unterminated tag at offset %d", ErrMalformed, pos)
		}
		if !ok {
			break
		}
		pos = t.end
		switch t.kind {
		case tagOpen:
			if !isBlock(t.block) {
				return fmt.Errorf("%w: unknown block helper %q at offset %d", ErrMalformed, t.block, t.start)
			}
			if t.name == "" {
				return fmt.Errorf("%w: {{#%s}} without argument at offset %d", ErrMalformed, t.block, t.start)
			}
			stack = append(stack, t)
		case tagClose:
			if len(stack) == 0 {
				return fmt.Errorf("%w: {{/%s}} without opening tag at offset %d", ErrMalformed, t.block, t.start)
			}
			top := stack[len(stack)-1]
			if top.block != t.block {
				return fmt.Errorf("%w: {{/%s}} closes {{#%s}} opened at offset %d", ErrMalformed, t.block, top.block, top.start)
			}
			stack = stack[:len(stack)-1]
		case tagElse:
			if len(stack) == 0 || stack[len(stack)-1].block == "each" {
				return fmt.Errorf("%w: {{else}} outside a conditional at offset %d", ErrMalformed, t.start)
			}
		case tagVar:
			if t.name == "" {
				return fmt.Errorf("%w: empty tag at offset %d", ErrMalformed, t.start)
			}
		}
	}
	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return fmt.Errorf("%w: {{#%s %s}} at offset %d is never closed", ErrMalformed, top.block, top.name, top.start)
	}
	return nil
}

// Variables returns the sorted top-level data names a template refers to:
// placeholders and block arguments outside every each block, plus the
// fields the outermost each blocks iterate. Loop data (@...) and this are
// excluded.
func Variables(markup string) []string {
	seen := map[string]bool{}
	add := func(name string) {
		if name == "" || strings.HasPrefix(name, "@") || name == "this" || strings.HasPrefix(name, "this.") {
			return
		}
		seen[strings.SplitN(name, ".", 2)[0]] = true
	}

	depth := 0 // each nesting
	pos := 0
	for {
		t, ok, _ := nextTag(markup, pos)
		if !ok {
			break
		}
		pos = t.end
		switch t.kind {
		case tagOpen:
			if depth == 0 {
				add(t.name)
			}
			if t.block == "each" {
				depth++
			}
		case tagClose:
			if t.block == "each" && depth > 0 {
				depth--
			}
		case tagVar:
			if depth == 0 {
				add(t.name)
			}
		}
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

var leftoverRe = regexp.MustCompile(`\{\{[^}]*\}\}|\x00\d+\x00`)

// Leftovers returns any template syntax or internal loop token remaining
// in compiled output. A non-empty result is a compiler defect.
func Leftovers(out string) []string {
	return leftoverRe.FindAllString(out, -1)
}
