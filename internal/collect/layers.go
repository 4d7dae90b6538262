package collect

import (
	"github.com/zync/zync-maya/internal/scene"
)

// LayerInfo is the per-layer render output configuration gathered for a
// submission. It is computed fresh on every call and returned by value;
// callers needing it across a pass hold their own copy.
type LayerInfo struct {
	Name string
	// Prefix is the image file prefix in effect on this layer, layer
	// override winning over the scene-wide setting.
	Prefix string
	// RenderPasses lists the enabled render passes on this layer.
	RenderPasses []string
}

// prefixAttr returns the renderer's image prefix attribute name. V-Ray
// keeps it on its settings node under a different name than Maya's
// render globals.
func prefixAttr(renderer string) string {
	if renderer == "vray" {
		return "fileNamePrefix"
	}
	return "imageFilePrefix"
}

// LayerSettings gathers the output configuration of each layer.
func LayerSettings(sc scene.Scene, layers []string) []LayerInfo {
	attr := prefixAttr(sc.Renderer())
	scenePrefix := ""
	if v, ok := sc.Global(attr); ok {
		if s, ok := v.(string); ok {
			scenePrefix = s
		}
	}

	out := make([]LayerInfo, 0, len(layers))
	for _, layer := range layers {
		info := LayerInfo{Name: layer, Prefix: scenePrefix}
		if v, ok := sc.LayerOverride(layer, attr); ok {
			if s, ok := v.(string); ok && s != "" {
				info.Prefix = s
			}
		}
		if v, ok := sc.LayerOverride(layer, "render_passes"); ok {
			if passes, ok := v.([]any); ok {
				for _, p := range passes {
					if s, ok := p.(string); ok {
						info.RenderPasses = append(info.RenderPasses, s)
					}
				}
			}
		}
		out = append(out, info)
	}
	return out
}
