package handlers

import (
	"iter"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/zync/zync-maya/internal/scene"
	"github.com/zync/zync-maya/internal/tokens"
)

// Default returns a registry with every built-in Maya node handler
// registered. The table is the open extension point: renderer plugins
// register additional kinds on top of it.
func Default() *Registry {
	r := NewRegistry()
	r.Register("file", fileHandler)
	r.Register("cacheFile", cacheFileHandler)
	r.Register("diskCache", diskCacheHandler)
	r.Register("VRayMesh", attrHandler("fileName", KindGeometry))
	r.Register("mentalrayTexture", attrHandler("fileTextureName", KindTexture))
	r.Register("gpuCache", attrHandler("cacheFileName", KindCache))
	r.Register("mentalrayOptions", finalGatherHandler)
	r.Register("mentalrayIblShape", attrHandler("texture", KindTexture))
	r.Register("AlembicNode", attrHandler("abc_File", KindGeometry))
	r.Register("VRaySettingsNode", vraySettingsHandler)
	r.Register("particle", particleHandler)
	r.Register("VRayLightIESShape", attrHandler("iesFile", KindOther))
	r.Register("FurDescription", furHandler)
	r.Register("mib_ptex_lookup", attrHandler("S00", KindTexture))
	r.Register("substance", attrHandler("p", KindTexture))
	r.Register("imagePlane", imagePlaneHandler)
	r.Register("mesh", multiAttrHandler(KindGeometry, "miProxyFile", "rman__param___draFile"))
	r.Register("dynGlobals", dynGlobalsHandler)
	r.Register("aiStandIn", sequenceAttrHandler("dso", KindGeometry))
	r.Register("aiImage", attrHandler("filename", KindTexture))
	r.Register("aiPhotometricLight", attrHandler("aiFilename", KindOther))
	r.Register("ExocortexAlembicFile", attrHandler("fileName", KindGeometry))
	r.Register("VRayPtex", attrHandler("ptexFile", KindTexture))
	r.Register("VRayVolumeGrid", sequenceAttrHandler("if", KindCache))
	r.Register("OpenVDBRead", attrHandler("file", KindCache))
	r.Register("aiVolume", sequenceAttrHandler("filename", KindCache))
	r.Register("VRayScene", attrHandler("fPath", KindArchive))
	r.Register("RenderManArchive", ribArchiveHandler)
	r.Register("PxrStdEnvMapLight", attrHandler("rman__EnvMap", KindTexture))
	r.Register("RMSEnvLight", attrHandler("rman__EnvMap", KindTexture))
	r.Register("PxrTexture", pxrTextureHandler)
	r.Register("PxrBump", pxrTextureHandler)
	r.Register("PxrMultiTexture", pxrMultiTextureHandler)
	r.Register("PxrDomeLight", attrHandler("lightColorMap", KindTexture))
	r.Register("PxrPtexture", attrHandler("filename", KindTexture))
	r.Register("PxrNormalMap", attrHandler("filename", KindTexture))
	r.Register("MASH_Waiter", mashWaiterHandler)
	r.Register("MASH_Audio", attrHandler("filename", KindOther))
	return r
}

// attrHandler covers the common case: one path attribute, one template.
func attrHandler(attr string, kind Kind) Extractor {
	return func(env *Env, node scene.NodeRef) iter.Seq2[Template, error] {
		return func(yield func(Template, error) bool) {
			if p, ok := scene.AttrString(env.Scene, node, attr); ok {
				yield(Template{Path: p, Kind: kind}, nil)
			}
		}
	}
}

// multiAttrHandler yields one template per present attribute.
func multiAttrHandler(kind Kind, attrs ...string) Extractor {
	return func(env *Env, node scene.NodeRef) iter.Seq2[Template, error] {
		return func(yield func(Template, error) bool) {
			for _, attr := range attrs {
				if p, ok := scene.AttrString(env.Scene, node, attr); ok {
					if !yield(Template{Path: p, Kind: kind}, nil) {
						return
					}
				}
			}
		}
	}
}

// sequenceAttrHandler is attrHandler for attributes that may hold an
// image or cache sequence path; the sequence heuristic runs on the value.
func sequenceAttrHandler(attr string, kind Kind) Extractor {
	return func(env *Env, node scene.NodeRef) iter.Seq2[Template, error] {
		return func(yield func(Template, error) bool) {
			p, ok := scene.AttrString(env.Scene, node, attr)
			if !ok {
				return
			}
			g, err := tokens.SeqToGlob(p)
			if err != nil {
				yield(Template{}, err)
				return
			}
			yield(Template{Path: g, Kind: kind}, nil)
		}
	}
}

var udimTileRE = regexp.MustCompile(`(?i)<udim>|<tile>|<uvtile>`)

// fileNodePath picks the template attribute for a file node. When the
// computed pattern preserves a tile token, it wins over fileTextureName,
// which has the token already baked into a concrete tile.
func fileNodePath(env *Env, node scene.NodeRef) string {
	if pattern, ok := scene.AttrString(env.Scene, node, "computedFileTextureNamePattern"); ok {
		lower := strings.ToLower(pattern)
		if strings.Contains(lower, "<udim>") || strings.Contains(lower, "<tile>") ||
			strings.Contains(lower, "<uvtile>") || strings.Contains(lower, "u<u>_v<v>") {
			return pattern
		}
	}
	p, _ := scene.AttrString(env.Scene, node, "fileTextureName")
	return p
}

// usesImageSequence reports whether a file node references a sequence
// rather than a single image. Not always obvious from the path alone:
// useFrameExtension marks explicit sequences, tile and attr tokens imply
// them.
func usesImageSequence(env *Env, node scene.NodeRef, nodePath string) bool {
	if seq, ok := scene.AttrBool(env.Scene, node, "useFrameExtension"); ok && seq {
		return true
	}
	lower := strings.ToLower(nodePath)
	return strings.Contains(lower, "<udim>") || strings.Contains(lower, "<tile>") ||
		strings.Contains(lower, "<uvtile>") || strings.Contains(lower, "u<u>_v<v>") ||
		strings.Contains(lower, "<frame0") || strings.Contains(lower, "<attr:")
}

// fileHandler extracts the texture referenced by a Maya file node, the
// pre-baked .tx sibling when Arnold is set to use one and it exists, and
// any texture swapped in by a render layer override.
func fileHandler(env *Env, node scene.NodeRef) iter.Seq2[Template, error] {
	return func(yield func(Template, error) bool) {
		texPath := fileNodePath(env, node)
		if texPath == "" {
			return
		}
		out := texPath
		if usesImageSequence(env, node, texPath) {
			g, err := tokens.SeqToGlob(texPath)
			if err != nil {
				yield(Template{}, err)
				return
			}
			out = g
		}
		out = udimTileRE.ReplaceAllLiteralString(out, "*")
		if !yield(Template{Path: out, Kind: KindTexture}, nil) {
			return
		}
		if env.ArnoldTiledTextures() {
			ext := path.Ext(out)
			tx := strings.TrimSuffix(out, ext) + ".tx"
			if env.Exists(tx) {
				if !yield(Template{Path: tx, Kind: KindTexture}, nil) {
					return
				}
			}
		}
		// A texture swapped on a render layer is a dependency too. The
		// exporter records overrides under the plug name, node.attr.
		plug := node.Name + ".fileTextureName"
		for _, layer := range env.Scene.RenderLayers() {
			v, ok := env.Scene.LayerOverride(layer, plug)
			if !ok {
				continue
			}
			if s, ok := v.(string); ok && s != "" {
				if !yield(Template{Path: s, Kind: KindTexture}, nil) {
					return
				}
			}
		}
	}
}

// cacheFileHandler yields the three files a geometry cache is stored as.
func cacheFileHandler(env *Env, node scene.NodeRef) iter.Seq2[Template, error] {
	return func(yield func(Template, error) bool) {
		dir, ok := scene.AttrString(env.Scene, node, "cachePath")
		if !ok {
			return
		}
		name, ok := scene.AttrString(env.Scene, node, "cacheName")
		if !ok {
			return
		}
		base := strings.TrimSuffix(dir, "/") + "/" + name
		for _, ext := range []string{".mc", ".mcx", ".xml"} {
			if !yield(Template{Path: base + ext, Kind: KindCache}, nil) {
				return
			}
		}
	}
}

// diskCacheHandler resolves a disk cache name against the workspace's
// diskCache file rule, falling back to data/ under the project root.
func diskCacheHandler(env *Env, node scene.NodeRef) iter.Seq2[Template, error] {
	return func(yield func(Template, error) bool) {
		name, ok := scene.AttrString(env.Scene, node, "cacheName")
		if !ok {
			return
		}
		if strings.HasPrefix(name, "/") {
			yield(Template{Path: name, Kind: KindCache}, nil)
			return
		}
		dir := env.Scene.WorkspaceRule("diskCache")
		if dir == "" {
			env.warnf("disk cache path not found for %s, assuming data/", node.Name)
			dir = "data"
		}
		if !strings.HasPrefix(dir, "/") {
			dir = env.ProjectDir() + "/" + dir
		}
		yield(Template{Path: dir + "/" + name, Kind: KindCache}, nil)
	}
}

// finalGatherHandler yields the Final Gather map family for a
// mentalrayOptions node.
func finalGatherHandler(env *Env, node scene.NodeRef) iter.Seq2[Template, error] {
	return func(yield func(Template, error) bool) {
		name, ok := scene.AttrString(env.Scene, node, "finalGatherFilename")
		if !ok {
			return
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		p := env.ProjectDir() + "/renderData/mentalray/finalgMap/" + name + "*"
		yield(Template{Path: p, Kind: KindOther}, nil)
	}
}

// vraySettingsHandler yields the irradiance map (globbed when the mode
// renders one map per frame) and the light cache file.
func vraySettingsHandler(env *Env, node scene.NodeRef) iter.Seq2[Template, error] {
	return func(yield func(Template, error) bool) {
		if irmap, ok := scene.AttrString(env.Scene, node, "ifile"); ok {
			if mode, _ := scene.AttrInt(env.Scene, node, "imode"); mode == 7 {
				if dot := strings.LastIndex(irmap, "."); dot == -1 {
					irmap += "*"
				} else {
					irmap = irmap[:dot] + "*" + irmap[dot:]
				}
			}
			if !yield(Template{Path: irmap, Kind: KindOther}, nil) {
				return
			}
		}
		if lightCache, ok := scene.AttrString(env.Scene, node, "fnm"); ok {
			yield(Template{Path: lightCache, Kind: KindOther}, nil)
		}
	}
}

// particleHandler derives the particle cache directory pattern for a
// particle shape, preferring its startup cache when one is set.
func particleHandler(env *Env, node scene.NodeRef) iter.Seq2[Template, error] {
	return func(yield func(Template, error) bool) {
		nodeBase := node.Name
		if i := strings.LastIndex(nodeBase, "|"); i >= 0 {
			nodeBase = nodeBase[i+1:]
		}
		cacheDir := env.Scene.BaseName()
		if startup, ok := scene.AttrString(env.Scene, node, "scp"); ok {
			if s := strings.TrimSpace(startup); s != "" {
				cacheDir = s
			}
		}
		p := env.ProjectDir() + "/particles/" + cacheDir + "/" + nodeBase + "*"
		yield(Template{Path: p, Kind: KindCache}, nil)
	}
}

// furHandler walks every "...Map" attribute of a fur description and
// yields the stored file paths.
func furHandler(env *Env, node scene.NodeRef) iter.Seq2[Template, error] {
	return func(yield func(Template, error) bool) {
		for _, attr := range env.Scene.ListAttrs(node) {
			if !strings.Contains(attr, "Map") {
				continue
			}
			paths, ok := scene.AttrStrings(env.Scene, node, attr)
			if !ok {
				continue
			}
			for _, p := range paths {
				if !yield(Template{Path: p, Kind: KindTexture}, nil) {
					return
				}
			}
		}
	}
}

// imagePlaneHandler yields the image plane source unless the plane's
// display mode is None.
func imagePlaneHandler(env *Env, node scene.NodeRef) iter.Seq2[Template, error] {
	return func(yield func(Template, error) bool) {
		if mode, ok := scene.AttrInt(env.Scene, node, "displayMode"); ok && mode == 0 {
			return
		}
		p, ok := scene.AttrString(env.Scene, node, "imageName")
		if !ok {
			return
		}
		if seq, ok := scene.AttrBool(env.Scene, node, "useFrameExtension"); ok && seq {
			g, err := tokens.SeqToGlob(p)
			if err != nil {
				yield(Template{}, err)
				return
			}
			p = g
		}
		yield(Template{Path: p, Kind: KindTexture}, nil)
	}
}

// dynGlobalsHandler yields the dynamics cache directory contents pattern.
func dynGlobalsHandler(env *Env, node scene.NodeRef) iter.Seq2[Template, error] {
	return func(yield func(Template, error) bool) {
		cacheDir, ok := scene.AttrString(env.Scene, node, "cd")
		if !ok {
			return
		}
		p := env.ProjectDir() + "/particles/" + strings.TrimSpace(cacheDir) + "/*"
		yield(Template{Path: p, Kind: KindCache}, nil)
	}
}

// pxrTextureHandler yields a PxrTexture (or PxrBump) source, the atlas
// map-id placeholder globbed when atlas style is on.
func pxrTextureHandler(env *Env, node scene.NodeRef) iter.Seq2[Template, error] {
	return func(yield func(Template, error) bool) {
		p, ok := scene.AttrString(env.Scene, node, "filename")
		if !ok {
			return
		}
		if style, _ := scene.AttrInt(env.Scene, node, "atlasStyle"); style != 0 {
			p = strings.ReplaceAll(p, "_MAPID_", "*")
		}
		yield(Template{Path: p, Kind: KindTexture}, nil)
	}
}

// pxrMultiTextureHandler yields the ten texture slots of a
// PxrMultiTexture node.
func pxrMultiTextureHandler(env *Env, node scene.NodeRef) iter.Seq2[Template, error] {
	return func(yield func(Template, error) bool) {
		for i := 0; i < 10; i++ {
			p, ok := scene.AttrString(env.Scene, node, "filename"+strconv.Itoa(i))
			if !ok {
				continue
			}
			if !yield(Template{Path: p, Kind: KindTexture}, nil) {
				return
			}
		}
	}
}

// mashWaiterHandler yields the RIB archives a MASH waiter references,
// stored as one comma-separated attribute.
func mashWaiterHandler(env *Env, node scene.NodeRef) iter.Seq2[Template, error] {
	return func(yield func(Template, error) bool) {
		list, ok := scene.AttrString(env.Scene, node, "ribArchives")
		if !ok {
			return
		}
		for _, p := range strings.Split(list, ",") {
			if p == "" {
				continue
			}
			if !yield(Template{Path: p, Kind: KindArchive}, nil) {
				return
			}
		}
	}
}

// ribArchiveHandler yields a RIB archive and flattens its material
// directory when one can be located. The archive itself is tagged for
// recursive content scanning.
func ribArchiveHandler(env *Env, node scene.NodeRef) iter.Seq2[Template, error] {
	return func(yield func(Template, error) bool) {
		archivePath, ok := scene.AttrString(env.Scene, node, "filename")
		if !ok {
			return
		}
		if !yield(Template{Path: archivePath, Kind: KindArchive}, nil) {
			return
		}
		dir := ribArchiveDir(env, node, archivePath)
		if dir == "" {
			return
		}
		stopped := false
		env.WalkFiles(dir, func(p string) {
			if stopped {
				return
			}
			if !yield(Template{Path: p, Kind: KindOther}, nil) {
				stopped = true
			}
		})
	}
}

// ribArchiveDir locates the directory of materials associated with a RIB
// archive. The directory name matches the leading part of the archive
// basename:
//
//	archive1.zip:        archive name = "archive1"
//	archive1.${F4}.rib:  archive name also = "archive1"
//
// When host token expansion changes the path, the basename carries a
// frame chunk that must also be dropped to arrive at the archive name.
func ribArchiveDir(env *Env, node scene.NodeRef, archivePath string) string {
	drop := 1
	if env.Scene.ResolveString(archivePath) != archivePath {
		drop = 2
	}
	parts := strings.Split(path.Base(archivePath), ".")
	if len(parts) <= drop {
		return ""
	}
	name := strings.Join(parts[:len(parts)-drop], ".")
	parent := path.Dir(archivePath)

	// The archive may live inside its directory, or be a sibling of it.
	if path.Base(parent) == name {
		return parent
	}
	if sibling := path.Join(parent, name); env.Exists(sibling) {
		return sibling
	}
	env.warnf("could not locate RIB archive directory for node %s", node.Name)
	return ""
}
