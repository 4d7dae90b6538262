// Package scene defines the read-only accessor the dependency collector
// uses to inspect an authoring scene, plus a JSON-backed implementation
// over the exporter's scene document.
package scene

import (
	"path"
	"sort"
	"strings"
)

// NodeRef identifies one scene node as a (kind, name) pair. It is
// immutable for the duration of a collection pass.
type NodeRef struct {
	Kind string
	Name string
}

// Scene is the accessor interface over the authoring document. The core
// never mutates the scene; every method is a pure read.
type Scene interface {
	// ListNodes returns all nodes of the given kind, in document order.
	ListNodes(kind string) []NodeRef
	// Attr returns the value of a node attribute, with ok=false when the
	// node does not carry it. Absent attributes are normal: node schemas
	// vary across host versions.
	Attr(node NodeRef, name string) (any, bool)
	// ListAttrs returns the sorted attribute names present on a node.
	ListAttrs(node NodeRef) []string
	// ResolveString substitutes host-native placeholders not covered by
	// the token expander. Unknown placeholders are left untouched.
	ResolveString(s string) string

	// BaseName is the scene file name without directory or extension.
	BaseName() string
	// ProjectDir is the project root directory.
	ProjectDir() string
	// Camera is the renderable camera selected for the job.
	Camera() string
	// RenderLayers lists the layers selected for the job.
	RenderLayers() []string
	// FrameRangeExpr is the scene frame range expression, e.g. "1001-1350".
	FrameRangeExpr() string
	// Renderer is the active renderer name.
	Renderer() string
	// WorkspaceRule returns the directory configured for a file rule
	// entry such as "diskCache", or "" when unset.
	WorkspaceRule(name string) string
	// Global returns a resolved render-global value by name.
	Global(name string) (any, bool)
	// LayerOverride returns the exporter-resolved override of an
	// attribute on a specific render layer.
	LayerOverride(layer, attr string) (any, bool)
}

// BaseNameOf strips directory and extension from a scene file path.
func BaseNameOf(scenePath string) string {
	base := path.Base(strings.ReplaceAll(scenePath, "\\", "/"))
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}

// AttrString fetches a string attribute. Empty strings report absent,
// matching how the host returns unset path attributes.
func AttrString(sc Scene, node NodeRef, name string) (string, bool) {
	v, ok := sc.Attr(node, name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// AttrBool fetches a boolean attribute. Exports may carry numeric
// booleans, so non-zero numbers count as true.
func AttrBool(sc Scene, node NodeRef, name string) (bool, bool) {
	v, ok := sc.Attr(node, name)
	if !ok {
		return false, false
	}
	switch t := v.(type) {
	case bool:
		return t, true
	case float64:
		return t != 0, true
	case int64:
		return t != 0, true
	case int:
		return t != 0, true
	}
	return false, false
}

// AttrInt fetches an integer attribute.
func AttrInt(sc Scene, node NodeRef, name string) (int, bool) {
	v, ok := sc.Attr(node, name)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return int(t), true
	case int64:
		return int(t), true
	case int:
		return t, true
	}
	return 0, false
}

// AttrStrings fetches a multi-value string attribute. A scalar string
// value is returned as a one-element slice.
func AttrStrings(sc Scene, node NodeRef, name string) ([]string, bool) {
	v, ok := sc.Attr(node, name)
	if !ok {
		return nil, false
	}
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil, false
		}
		return []string{t}, true
	case []any:
		var out []string
		for _, e := range t {
			if s, ok := e.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out, len(out) > 0
	case []string:
		return t, len(t) > 0
	}
	return nil, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
