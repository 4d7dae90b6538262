// Package collect orchestrates a dependency collection pass: every scene
// node is dispatched to its handler, extracted templates are token-
// expanded, and archive candidates are scanned recursively for embedded
// references. One Collect call owns its entire working state; nothing
// survives between calls.
package collect

import (
	"sort"

	billy "github.com/go-git/go-billy/v5"
	"github.com/charmbracelet/log"

	"github.com/zync/zync-maya/internal/archive"
	"github.com/zync/zync-maya/internal/frames"
	"github.com/zync/zync-maya/internal/handlers"
	"github.com/zync/zync-maya/internal/scene"
	"github.com/zync/zync-maya/internal/tokens"
)

// Options configures one collection pass.
type Options struct {
	Scene scene.Scene
	FS    billy.Filesystem
	// Registry defaults to the built-in handler table.
	Registry *handlers.Registry
	// Layers defaults to the scene's selected render layers.
	Layers []string
	// FrameRange bounds the job; only its distinct count matters here.
	FrameRange frames.Range
	// ExtraPaths are caller-supplied dependencies unioned into the
	// result verbatim (after separator normalization).
	ExtraPaths []string
	// Cancel is polled between archive scan items.
	Cancel func() bool
	// Progress receives (done, estimated total) during archive scanning.
	Progress func(done, total int)
	Logger   *log.Logger
}

// Result of a collection pass. Files mixes glob patterns and concrete
// paths: a pattern stands for a family of files on the remote side and
// is deliberately not merged with concrete members also present.
type Result struct {
	// Files is the deduplicated, sorted dependency list.
	Files []string
	// Edges are the references discovered inside archives.
	Edges []archive.Edge
	// Cancelled reports that the archive scan stopped early. The
	// collected files are a valid subset of the full result.
	Cancelled bool
	// FrameCount is the number of distinct frames in the range.
	FrameCount int
}

// Collect gathers every external file the scene depends on.
func Collect(opts Options) (*Result, error) {
	env := &handlers.Env{Scene: opts.Scene, FS: opts.FS, Logger: opts.Logger}
	registry := opts.Registry
	if registry == nil {
		registry = handlers.Default()
	}
	layers := opts.Layers
	if layers == nil {
		layers = opts.Scene.RenderLayers()
	}
	ctx := tokens.Context{
		SceneName: opts.Scene.BaseName(),
		Camera:    opts.Scene.Camera(),
	}

	files := make(map[string]struct{})
	var seeds []archive.Item

	for _, kind := range registry.Kinds() {
		for _, node := range opts.Scene.ListNodes(kind) {
			for tmpl, err := range registry.Dispatch(env, node) {
				if err != nil {
					return nil, err
				}
				expanded, err := tokens.ExpandPerLayer(tmpl.Path, ctx, layers)
				if err != nil {
					return nil, err
				}
				for _, p := range expanded {
					resolved := archive.Normalize(opts.Scene.ResolveString(p))
					if resolved == "" {
						continue
					}
					if opts.Logger != nil {
						opts.Logger.Debug("found file dependency", "kind", kind, "node", node.Name, "path", resolved)
					}
					files[resolved] = struct{}{}
					if tmpl.Kind == handlers.KindArchive {
						seeds = append(seeds, archive.Item{Path: resolved, Origin: node.Name, Kind: handlers.KindArchive})
					}
				}
			}
		}
	}

	for _, p := range opts.ExtraPaths {
		if n := archive.Normalize(p); n != "" {
			files[n] = struct{}{}
		}
	}

	scanner := archive.NewScanner(opts.FS, opts.Logger)
	scanner.Cancel = opts.Cancel
	scanner.Progress = opts.Progress
	edges, status := scanner.Scan(seeds)
	for _, e := range edges {
		files[e.Target] = struct{}{}
	}

	out := make([]string, 0, len(files))
	for p := range files {
		out = append(out, p)
	}
	sort.Strings(out)

	return &Result{
		Files:      out,
		Edges:      edges,
		Cancelled:  status == archive.Cancelled,
		FrameCount: opts.FrameRange.Distinct(),
	}, nil
}
