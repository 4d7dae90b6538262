// Package handlers maps scene node kinds to extraction routines that
// produce the raw path templates a node references. The registry is a
// capability table: one independent extractor function per node kind,
// registered at construction time, no inheritance involved.
package handlers

import (
	"fmt"
	"iter"
	"sort"

	"github.com/zync/zync-maya/internal/scene"
)

// Kind classifies an extracted path template. Only KindArchive drives
// recursive content scanning; the rest matter only for reporting.
type Kind string

const (
	KindTexture  Kind = "texture"
	KindCache    Kind = "cache"
	KindGeometry Kind = "geometry"
	KindArchive  Kind = "archive"
	KindOther    Kind = "other"
)

// Template is one raw (pre-substitution) path template extracted from a
// node, tagged with its coarse kind.
type Template struct {
	Path string
	Kind Kind
}

// Extractor yields the path templates referenced by one node. Extractors
// are pure reads: they never mutate the scene, and a missing or optional
// attribute yields an empty sequence rather than an error. The only
// error an extractor surfaces is a template rejected as too broad.
type Extractor func(env *Env, node scene.NodeRef) iter.Seq2[Template, error]

// Registry maps node kind identifiers to extractors.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]Extractor)}
}

// Register adds an extractor for a node kind. Registering the same kind
// twice is a programming error and panics.
func (r *Registry) Register(kind string, fn Extractor) {
	if _, exists := r.extractors[kind]; exists {
		panic(fmt.Sprintf("extractor for node kind %q already registered", kind))
	}
	r.extractors[kind] = fn
}

// Dispatch runs the extractor registered for the node's kind. Unknown
// kinds yield nothing: the scene may contain node types this version
// does not know how to inspect.
func (r *Registry) Dispatch(env *Env, node scene.NodeRef) iter.Seq2[Template, error] {
	fn, ok := r.extractors[node.Kind]
	if !ok {
		return func(yield func(Template, error) bool) {}
	}
	return fn(env, node)
}

// Kinds returns the registered node kinds, sorted.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.extractors))
	for k := range r.extractors {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
