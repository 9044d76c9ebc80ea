package normalize

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fold lowercases s, strips diacritics and turns spaces and underscores
// into hyphens, so "Múltipla_Escolha" and "multipla-escolha" compare equal.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(strings.TrimSpace(out))
	return strings.NewReplacer(" ", "-", "_", "-").Replace(out)
}

// field returns the first value stored under one of the aliases. Exact
// keys win; otherwise keys are compared folded.
func field(raw map[string]any, aliases ...string) (any, bool) {
	for _, a := range aliases {
		if v, ok := raw[a]; ok && v != nil {
			return v, true
		}
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, a := range aliases {
		fa := fold(a)
		for _, k := range keys {
			if raw[k] != nil && fold(k) == fa {
				return raw[k], true
			}
		}
	}
	return nil, false
}

// str returns the trimmed string form of a scalar field, "" if absent.
func str(raw map[string]any, aliases ...string) string {
	v, ok := field(raw, aliases...)
	if !ok {
		return ""
	}
	return scalar(v)
}

func scalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case map[string]any:
		for _, k := range []string{"text", "texto", "content", "conteudo", "value", "label"} {
			if s, ok := x[k]; ok {
				return scalar(s)
			}
		}
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// list converts a sequence, a newline separated string or a letter-keyed
// map ({"a": ..., "b": ...}) into trimmed strings. ok is false when the
// field is absent.
func list(raw map[string]any, aliases ...string) ([]string, bool) {
	v, ok := field(raw, aliases...)
	if !ok {
		return nil, false
	}
	return toStrings(v), true
}

func toStrings(v any) []string {
	switch x := v.(type) {
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			out = append(out, scalar(e))
		}
		return out
	case []string:
		out := make([]string, 0, len(x))
		for _, e := range x {
			out = append(out, strings.TrimSpace(e))
		}
		return out
	case string:
		var out []string
		for _, line := range strings.Split(x, "\n") {
			line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-•*"))
			if line != "" {
				out = append(out, line)
			}
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]string, 0, len(keys))
		for _, k := range keys {
			out = append(out, scalar(x[k]))
		}
		return out
	}
	if s := scalar(v); s != "" {
		return []string{s}
	}
	return nil
}

// maps returns the elements of a sequence field that are objects, and the
// count of elements that were not.
func maps(raw map[string]any, aliases ...string) ([]map[string]any, int) {
	v, ok := field(raw, aliases...)
	if !ok {
		return nil, 0
	}
	seq, ok := v.([]any)
	if !ok {
		if ms, ok := v.([]map[string]any); ok {
			return ms, 0
		}
		return nil, 1
	}
	out := make([]map[string]any, 0, len(seq))
	skipped := 0
	for _, e := range seq {
		if m, ok := e.(map[string]any); ok {
			out = append(out, m)
		} else {
			skipped++
		}
	}
	return out, skipped
}

func integer(raw map[string]any, aliases ...string) (int, bool) {
	v, ok := field(raw, aliases...)
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case float64:
		return int(x), true
	case int:
		return x, true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		return n, err == nil
	}
	return 0, false
}

// dedupe drops empty and repeated entries, keeping first occurrences.
func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
