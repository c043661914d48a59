package pipeline

import (
	"fmt"
	"sort"

	"bindgraph/internal/bindgraph"
)

// Template is one registered, named pipeline: a tagged bundle of bindings
// ready to hand to bindgraph.BuildGraph.
type Template struct {
	ID       string
	Name     string
	Tags     []string
	Bindings []bindgraph.Binding
}

// Taxonomy tags, mirroring the coarse categories pipelines are filtered by
// in a catalog UI.
const (
	TagAlignment  = "alignment"
	TagConsensus  = "consensus"
	TagQC         = "qc"
	TagDiagnostic = "internal"
)

// Registry is a name -> Template lookup, populated by an explicit call to
// RegisterBuiltins and extendable by callers that define their own
// templates.
type Registry struct {
	byID map[string]Template
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Template)}
}

// Register adds t, overwriting any existing template with the same ID.
func (r *Registry) Register(t Template) {
	r.byID[t.ID] = t
}

// Lookup returns the template registered under id.
func (r *Registry) Lookup(id string) (Template, bool) {
	t, ok := r.byID[id]
	return t, ok
}

// All returns every registered template, sorted by ID for stable output.
func (r *Registry) All() []Template {
	out := make([]Template, 0, len(r.byID))
	for _, t := range r.byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ByTag filters All() to templates carrying tag.
func (r *Registry) ByTag(tag string) []Template {
	var out []Template
	for _, t := range r.All() {
		for _, got := range t.Tags {
			if got == tag {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

func mustBind(out, in string) bindgraph.Binding {
	if out == "" || in == "" {
		panic(fmt.Sprintf("pipeline: empty binding endpoint (%q -> %q)", out, in))
	}
	return bindgraph.Binding{Out: out, In: in}
}
