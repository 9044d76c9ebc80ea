// Package templates holds the template registry. Templates are registered
// once at process start, validated up front so that malformed markup is a
// configuration error and never a render-time failure, and handed out by
// value afterwards.
package templates

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/aymerick/raymond"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/medtosdigital/aulagia/core"
	"github.com/medtosdigital/aulagia/core/compile"
)

//go:embed defaults/*.yaml
var defaultFS embed.FS

// ErrNotFound is returned when no template matches a lookup.
var ErrNotFound = errors.New("template not found")

// Registry is a concurrency-safe set of validated templates.
type Registry struct {
	mu       sync.RWMutex
	validate *validator.Validate
	byID     map[string]core.Template
	order    []string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		validate: validator.New(),
		byID:     map[string]core.Template{},
	}
}

// NewDefault creates a Registry holding the built-in template of every
// material type.
func NewDefault() (*Registry, error) {
	r := New()
	if err := r.loadFS(defaultFS, "defaults"); err != nil {
		return nil, err
	}
	return r, nil
}

// Register validates t and adds it, replacing any template with the same ID.
func (r *Registry) Register(t core.Template) error {
	if err := r.validate.Struct(t); err != nil {
		return fmt.Errorf("template %q: %w", t.ID, err)
	}
	if err := compile.Check(t.Markup); err != nil {
		return fmt.Errorf("template %q: %w", t.ID, err)
	}
	if _, err := raymond.Parse(t.Markup); err != nil {
		return fmt.Errorf("template %q: %w: %v", t.ID, compile.ErrMalformed, err)
	}
	var undeclared []string
	for _, name := range compile.Variables(t.Markup) {
		if !t.Declares(name) {
			undeclared = append(undeclared, name)
		}
	}
	if len(undeclared) > 0 {
		return fmt.Errorf("template %q references undeclared variables: %s", t.ID, strings.Join(undeclared, ", "))
	}

	t.DeclaredVariables = append([]string(nil), t.DeclaredVariables...)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[t.ID]; !exists {
		r.order = append(r.order, t.ID)
	}
	r.byID[t.ID] = t
	return nil
}

// LoadDir registers every *.yaml and *.yml template definition in dir.
func (r *Registry) LoadDir(dir string) error {
	return r.loadFS(os.DirFS(dir), ".")
}

func (r *Registry) loadFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("reading templates dir: %w", err)
	}
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		raw, err := fs.ReadFile(fsys, filepath.ToSlash(filepath.Join(dir, e.Name())))
		if err != nil {
			return fmt.Errorf("reading template %s: %w", e.Name(), err)
		}
		var t core.Template
		if err := yaml.Unmarshal(raw, &t); err != nil {
			return fmt.Errorf("decoding template %s: %w", e.Name(), err)
		}
		if err := r.Register(t); err != nil {
			return fmt.Errorf("registering %s: %w", e.Name(), err)
		}
	}
	return nil
}

// Get returns the template with the given ID.
func (r *Registry) Get(id string) (core.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	if !ok {
		return core.Template{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return copyTemplate(t), nil
}

// ForType returns the first registered template for material type mt.
func (r *Registry) ForType(mt core.MaterialType) (core.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if t := r.byID[id]; t.MaterialType == mt {
			return copyTemplate(t), nil
		}
	}
	return core.Template{}, fmt.Errorf("%w: no template for %s", ErrNotFound, mt)
}

// All returns every registered template sorted by ID.
func (r *Registry) All() []core.Template {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.Template, 0, len(r.byID))
	for _, t := range r.byID {
		out = append(out, copyTemplate(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func copyTemplate(t core.Template) core.Template {
	t.DeclaredVariables = append([]string(nil), t.DeclaredVariables...)
	return t
}
