package template

import (
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// REGISTRY - Immutable business-type -> template catalog
// =============================================================================

// Registry maps business-type ids to templates. It is built once, passed
// explicitly to the engine, and never mutated afterwards, so concurrent
// readers need no locking.
type Registry struct {
	templates map[string]*ModelTemplate
	aliases   map[string]string
	order     []string
	defaultID string
}

// NewRegistry builds a registry. defaultID must name one of the templates.
// Aliases come from each template's ApplicableTypes; the first template to
// claim an alias keeps it.
func NewRegistry(defaultID string, templates ...*ModelTemplate) (*Registry, error) {
	r := &Registry{
		templates: make(map[string]*ModelTemplate, len(templates)),
		aliases:   make(map[string]string),
		defaultID: defaultID,
	}

	for _, t := range templates {
		if t == nil || t.ID == "" {
			return nil, fmt.Errorf("template without id")
		}
		if _, dup := r.templates[t.ID]; dup {
			return nil, fmt.Errorf("duplicate template id %q", t.ID)
		}
		r.templates[t.ID] = t
		r.order = append(r.order, t.ID)
	}

	for _, id := range r.order {
		for _, alias := range r.templates[id].ApplicableTypes {
			key := normalizeKey(alias)
			if _, taken := r.templates[key]; taken {
				continue
			}
			if _, taken := r.aliases[key]; !taken {
				r.aliases[key] = id
			}
		}
	}

	if _, ok := r.templates[defaultID]; !ok {
		return nil, fmt.Errorf("default template %q not registered", defaultID)
	}
	return r, nil
}

// Get resolves a business type to a template. Unknown ids resolve to the
// default template; Get never fails.
func (r *Registry) Get(businessTypeID string) *ModelTemplate {
	t, _ := r.Resolve(businessTypeID)
	return t
}

// Resolve is Get plus a flag telling whether the default was used as a fallback.
func (r *Registry) Resolve(businessTypeID string) (*ModelTemplate, bool) {
	if t, ok := r.Lookup(businessTypeID); ok {
		return t, false
	}
	return r.templates[r.defaultID], true
}

// Lookup matches the template id first, then aliases. No fallback.
func (r *Registry) Lookup(businessTypeID string) (*ModelTemplate, bool) {
	key := normalizeKey(businessTypeID)
	if t, ok := r.templates[key]; ok {
		return t, true
	}
	if id, ok := r.aliases[key]; ok {
		return r.templates[id], true
	}
	return nil, false
}

// Default returns the fallback template.
func (r *Registry) Default() *ModelTemplate {
	return r.templates[r.defaultID]
}

// DefaultID returns the fallback template id.
func (r *Registry) DefaultID() string { return r.defaultID }

// List returns templates in registration order.
func (r *Registry) List() []*ModelTemplate {
	out := make([]*ModelTemplate, len(r.order))
	for i, id := range r.order {
		out[i] = r.templates[id]
	}
	return out
}

// Aliases returns the alias -> template id table, sorted by alias.
func (r *Registry) Aliases() [][2]string {
	keys := make([]string, 0, len(r.aliases))
	for k := range r.aliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][2]string, len(keys))
	for i, k := range keys {
		out[i] = [2]string{k, r.aliases[k]}
	}
	return out
}

func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "_", " ", "_").Replace(s)
}
