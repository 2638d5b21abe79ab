// Package markup turns stored article bodies into HTML. Each markup type tag
// maps to a Renderer; the wiki-link pass runs on the renderer's output.
package markup

import (
	"errors"
	"fmt"
	"sort"
)

const (
	TypePlain    = "plain"
	TypeMarkdown = "markdown"
	TypeHTML     = "html"
)

var ErrUnknownMarkupType = errors.New("unknown markup type")

type Renderer interface {
	Render(raw string) string
}

// RendererFunc adapts an ordinary function to Renderer.
type RendererFunc func(raw string) string

func (f RendererFunc) Render(raw string) string { return f(raw) }

type Registry struct {
	renderers map[string]Renderer
}

func NewRegistry() *Registry {
	return &Registry{renderers: make(map[string]Renderer)}
}

// Register stores r under tag, replacing any previous renderer for it.
func (r *Registry) Register(tag string, renderer Renderer) {
	r.renderers[tag] = renderer
}

func (r *Registry) Enabled(tag string) bool {
	_, ok := r.renderers[tag]
	return ok
}

func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.renderers))
	for tag := range r.renderers {
		types = append(types, tag)
	}
	sort.Strings(types)
	return types
}

func (r *Registry) Renderer(tag string) (Renderer, error) {
	renderer, ok := r.renderers[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMarkupType, tag)
	}
	return renderer, nil
}

func (r *Registry) Render(tag, raw string) (string, error) {
	renderer, err := r.Renderer(tag)
	if err != nil {
		return "", err
	}
	return renderer.Render(raw), nil
}

// NewDefaultRegistry enables the requested built-in types, each wrapped by
// the wiki-link pass of linker.
func NewDefaultRegistry(types []string, linker *Linker) (*Registry, error) {
	builtins := map[string]Renderer{
		TypePlain:    Plain(),
		TypeMarkdown: Markdown(),
		TypeHTML:     HTML(),
	}
	registry := NewRegistry()
	for _, tag := range types {
		renderer, ok := builtins[tag]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMarkupType, tag)
		}
		registry.Register(tag, Wikify(renderer, linker))
	}
	return registry, nil
}
