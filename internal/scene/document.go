package scene

import (
	"fmt"
	"regexp"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/zync/zync-maya/api"
)

// Document is the JSON-backed Scene implementation over an exported
// api.SceneDocument. It keeps the generic parse tree alongside the typed
// document so JSONPath queries can run against the raw export.
type Document struct {
	doc   api.SceneDocument
	data  any
	kinds map[string][]NodeRef
	attrs map[NodeRef]map[string]any
}

// LoadDocument reads and parses a scene export from the filesystem.
func LoadDocument(fs billy.Filesystem, path string) (*Document, error) {
	b, err := util.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read scene document %s: %w", path, err)
	}
	d, err := ParseDocument(b)
	if err != nil {
		return nil, fmt.Errorf("parse scene document %s: %w", path, err)
	}
	return d, nil
}

// ParseDocument parses a scene export from raw JSON.
func ParseDocument(b []byte) (*Document, error) {
	var doc api.SceneDocument
	if err := oj.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	data, err := oj.Parse(b)
	if err != nil {
		return nil, err
	}
	d := &Document{
		doc:   doc,
		data:  data,
		kinds: make(map[string][]NodeRef),
		attrs: make(map[NodeRef]map[string]any),
	}
	for _, n := range doc.Nodes {
		ref := NodeRef{Kind: n.Type, Name: n.Name}
		d.kinds[n.Type] = append(d.kinds[n.Type], ref)
		d.attrs[ref] = n.Attrs
	}
	return d, nil
}

// Query runs a JSONPath selector against the raw export, e.g.
// $.nodes[?(@.type == 'file')].name. Used by inspection tooling, not by
// the collection pass itself.
func (d *Document) Query(selector string) ([]any, error) {
	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath %q: %w", selector, err)
	}
	return x.Get(d.data), nil
}

func (d *Document) ListNodes(kind string) []NodeRef {
	return d.kinds[kind]
}

func (d *Document) Attr(node NodeRef, name string) (any, bool) {
	attrs, ok := d.attrs[node]
	if !ok {
		return nil, false
	}
	v, ok := attrs[name]
	return v, ok
}

func (d *Document) ListAttrs(node NodeRef) []string {
	attrs, ok := d.attrs[node]
	if !ok {
		return nil
	}
	return sortedKeys(attrs)
}

var hostTokenRE = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ResolveString substitutes ${NAME} placeholders from the export's token
// table. Placeholders without a table entry stay as-is; this layer is a
// best-effort fallback behind the token expander.
func (d *Document) ResolveString(s string) string {
	if len(d.doc.Tokens) == 0 {
		return s
	}
	return hostTokenRE.ReplaceAllStringFunc(s, func(m string) string {
		name := hostTokenRE.FindStringSubmatch(m)[1]
		if v, ok := d.doc.Tokens[name]; ok {
			return v
		}
		return m
	})
}

func (d *Document) BaseName() string       { return BaseNameOf(d.doc.Scene) }
func (d *Document) ScenePath() string      { return d.doc.Scene }
func (d *Document) ProjectDir() string     { return d.doc.Project }
func (d *Document) Camera() string         { return d.doc.Camera }
func (d *Document) RenderLayers() []string { return d.doc.Layers }
func (d *Document) FrameRangeExpr() string { return d.doc.FrameRange }
func (d *Document) Renderer() string       { return d.doc.Renderer }

func (d *Document) WorkspaceRule(name string) string {
	return d.doc.Workspace[name]
}

func (d *Document) Global(name string) (any, bool) {
	v, ok := d.doc.Globals[name]
	return v, ok
}

func (d *Document) LayerOverride(layer, attr string) (any, bool) {
	overrides, ok := d.doc.LayerOverrides[layer]
	if !ok {
		return nil, false
	}
	v, ok := overrides[attr]
	return v, ok
}
