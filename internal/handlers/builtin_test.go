package handlers

import (
	"fmt"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zync/zync-maya/internal/scene"
	"github.com/zync/zync-maya/internal/tokens"
)

// sceneWith builds a one-node scene export around the given node JSON.
func sceneWith(t *testing.T, nodeJSON string, globals string) *scene.Document {
	t.Helper()
	if globals == "" {
		globals = "{}"
	}
	doc := fmt.Sprintf(`{
	  "scene": "/proj/scenes/shot010.ma",
	  "project": "/proj/",
	  "camera": "renderCam",
	  "workspace": {"diskCache": "data"},
	  "globals": %s,
	  "nodes": [%s]
	}`, globals, nodeJSON)
	d, err := scene.ParseDocument([]byte(doc))
	require.NoError(t, err)
	return d
}

func extract(t *testing.T, env *Env, node scene.NodeRef) []Template {
	t.Helper()
	var out []Template
	for tmpl, err := range Default().Dispatch(env, node) {
		require.NoError(t, err)
		out = append(out, tmpl)
	}
	return out
}

func TestRegistryRejectsDuplicateKinds(t *testing.T) {
	r := NewRegistry()
	r.Register("file", fileHandler)
	assert.Panics(t, func() { r.Register("file", fileHandler) })
}

func TestRegistryUnknownKindYieldsNothing(t *testing.T) {
	env := &Env{Scene: sceneWith(t, `{"type": "unknownKind", "name": "x", "attrs": {}}`, ""), FS: memfs.New()}
	got := extract(t, env, scene.NodeRef{Kind: "unknownKind", Name: "x"})
	assert.Empty(t, got)
}

func TestRegistryKindsSorted(t *testing.T) {
	kinds := Default().Kinds()
	assert.Contains(t, kinds, "file")
	assert.Contains(t, kinds, "RenderManArchive")
	assert.IsIncreasing(t, kinds)
}

func TestFileHandlerSingleImage(t *testing.T) {
	sc := sceneWith(t, `{"type": "file", "name": "file1",
	  "attrs": {"fileTextureName": "/proj/tex/flat.tif", "useFrameExtension": false}}`, "")
	got := extract(t, &Env{Scene: sc, FS: memfs.New()}, scene.NodeRef{Kind: "file", Name: "file1"})
	assert.Equal(t, []Template{{Path: "/proj/tex/flat.tif", Kind: KindTexture}}, got)
}

func TestFileHandlerImageSequence(t *testing.T) {
	sc := sceneWith(t, `{"type": "file", "name": "file1",
	  "attrs": {"fileTextureName": "/proj/tex/anim.1001.exr", "useFrameExtension": true}}`, "")
	got := extract(t, &Env{Scene: sc, FS: memfs.New()}, scene.NodeRef{Kind: "file", Name: "file1"})
	assert.Equal(t, []Template{{Path: "/proj/tex/anim.*.exr", Kind: KindTexture}}, got)
}

func TestFileHandlerPrefersComputedPatternForTiles(t *testing.T) {
	sc := sceneWith(t, `{"type": "file", "name": "file1",
	  "attrs": {
	    "fileTextureName": "/proj/tex/diffuse.1001.tif",
	    "computedFileTextureNamePattern": "/proj/tex/diffuse.<UDIM>.tif"}}`, "")
	got := extract(t, &Env{Scene: sc, FS: memfs.New()}, scene.NodeRef{Kind: "file", Name: "file1"})
	assert.Equal(t, []Template{{Path: "/proj/tex/diffuse.*.tif", Kind: KindTexture}}, got)
}

func TestFileHandlerArnoldTxSibling(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "/proj/tex/flat.tx", []byte("tx"), 0o644))
	sc := sceneWith(t, `{"type": "file", "name": "file1",
	  "attrs": {"fileTextureName": "/proj/tex/flat.tif"}}`,
		`{"use_existing_tiled_textures": true}`)
	got := extract(t, &Env{Scene: sc, FS: fs}, scene.NodeRef{Kind: "file", Name: "file1"})
	assert.Equal(t, []Template{
		{Path: "/proj/tex/flat.tif", Kind: KindTexture},
		{Path: "/proj/tex/flat.tx", Kind: KindTexture},
	}, got)
}

func TestFileHandlerTxSiblingRequiresExistence(t *testing.T) {
	sc := sceneWith(t, `{"type": "file", "name": "file1",
	  "attrs": {"fileTextureName": "/proj/tex/flat.tif"}}`,
		`{"use_existing_tiled_textures": true}`)
	got := extract(t, &Env{Scene: sc, FS: memfs.New()}, scene.NodeRef{Kind: "file", Name: "file1"})
	assert.Equal(t, []Template{{Path: "/proj/tex/flat.tif", Kind: KindTexture}}, got)
}

func TestFileHandlerTooBroadAttrTemplate(t *testing.T) {
	sc := sceneWith(t, `{"type": "file", "name": "file1",
	  "attrs": {"fileTextureName": "<attr:dir>/<attr:file>"}}`, "")
	var seen []Template
	var gotErr error
	for tmpl, err := range Default().Dispatch(&Env{Scene: sc, FS: memfs.New()}, scene.NodeRef{Kind: "file", Name: "file1"}) {
		if err != nil {
			gotErr = err
			break
		}
		seen = append(seen, tmpl)
	}
	require.Error(t, gotErr)
	var broad *tokens.TooBroadError
	assert.ErrorAs(t, gotErr, &broad)
	assert.Empty(t, seen)
}

func TestFileHandlerMissingAttrsYieldNothing(t *testing.T) {
	sc := sceneWith(t, `{"type": "file", "name": "file1", "attrs": {}}`, "")
	got := extract(t, &Env{Scene: sc, FS: memfs.New()}, scene.NodeRef{Kind: "file", Name: "file1"})
	assert.Empty(t, got)
}

func TestCacheFileHandler(t *testing.T) {
	sc := sceneWith(t, `{"type": "cacheFile", "name": "cache1",
	  "attrs": {"cachePath": "/proj/cache/", "cacheName": "sim"}}`, "")
	got := extract(t, &Env{Scene: sc, FS: memfs.New()}, scene.NodeRef{Kind: "cacheFile", Name: "cache1"})
	assert.Equal(t, []Template{
		{Path: "/proj/cache/sim.mc", Kind: KindCache},
		{Path: "/proj/cache/sim.mcx", Kind: KindCache},
		{Path: "/proj/cache/sim.xml", Kind: KindCache},
	}, got)
}

func TestDiskCacheHandler(t *testing.T) {
	abs := sceneWith(t, `{"type": "diskCache", "name": "dc1",
	  "attrs": {"cacheName": "/abs/cache.mcfp"}}`, "")
	got := extract(t, &Env{Scene: abs, FS: memfs.New()}, scene.NodeRef{Kind: "diskCache", Name: "dc1"})
	assert.Equal(t, []Template{{Path: "/abs/cache.mcfp", Kind: KindCache}}, got)

	rel := sceneWith(t, `{"type": "diskCache", "name": "dc1",
	  "attrs": {"cacheName": "cache.mcfp"}}`, "")
	got = extract(t, &Env{Scene: rel, FS: memfs.New()}, scene.NodeRef{Kind: "diskCache", Name: "dc1"})
	assert.Equal(t, []Template{{Path: "/proj/data/cache.mcfp", Kind: KindCache}}, got)
}

func TestVRaySettingsHandlerIrradianceModes(t *testing.T) {
	animated := sceneWith(t, `{"type": "VRaySettingsNode", "name": "vs",
	  "attrs": {"ifile": "/proj/maps/irmap.vrmap", "imode": 7, "fnm": "/proj/maps/light.vrlmap"}}`, "")
	got := extract(t, &Env{Scene: animated, FS: memfs.New()}, scene.NodeRef{Kind: "VRaySettingsNode", Name: "vs"})
	assert.Equal(t, []Template{
		{Path: "/proj/maps/irmap*.vrmap", Kind: KindOther},
		{Path: "/proj/maps/light.vrlmap", Kind: KindOther},
	}, got)

	static := sceneWith(t, `{"type": "VRaySettingsNode", "name": "vs",
	  "attrs": {"ifile": "/proj/maps/irmap.vrmap", "imode": 2}}`, "")
	got = extract(t, &Env{Scene: static, FS: memfs.New()}, scene.NodeRef{Kind: "VRaySettingsNode", Name: "vs"})
	assert.Equal(t, []Template{{Path: "/proj/maps/irmap.vrmap", Kind: KindOther}}, got)
}

func TestParticleHandler(t *testing.T) {
	sc := sceneWith(t, `{"type": "particle", "name": "grp|particles1", "attrs": {}}`, "")
	got := extract(t, &Env{Scene: sc, FS: memfs.New()}, scene.NodeRef{Kind: "particle", Name: "grp|particles1"})
	assert.Equal(t, []Template{{Path: "/proj/particles/shot010/particles1*", Kind: KindCache}}, got)

	startup := sceneWith(t, `{"type": "particle", "name": "particles1", "attrs": {"scp": "bakedCache"}}`, "")
	got = extract(t, &Env{Scene: startup, FS: memfs.New()}, scene.NodeRef{Kind: "particle", Name: "particles1"})
	assert.Equal(t, []Template{{Path: "/proj/particles/bakedCache/particles1*", Kind: KindCache}}, got)
}

func TestFurHandler(t *testing.T) {
	sc := sceneWith(t, `{"type": "FurDescription", "name": "fur1",
	  "attrs": {
	    "BaseColorMap": ["/proj/fur/base0.tif", "/proj/fur/base1.tif"],
	    "LengthMap": "/proj/fur/length.tif",
	    "Density": 1.5}}`, "")
	got := extract(t, &Env{Scene: sc, FS: memfs.New()}, scene.NodeRef{Kind: "FurDescription", Name: "fur1"})
	assert.Equal(t, []Template{
		{Path: "/proj/fur/base0.tif", Kind: KindTexture},
		{Path: "/proj/fur/base1.tif", Kind: KindTexture},
		{Path: "/proj/fur/length.tif", Kind: KindTexture},
	}, got)
}

func TestImagePlaneHandlerRespectsDisplayMode(t *testing.T) {
	hidden := sceneWith(t, `{"type": "imagePlane", "name": "ip1",
	  "attrs": {"displayMode": 0, "imageName": "/proj/plates/bg.jpg"}}`, "")
	got := extract(t, &Env{Scene: hidden, FS: memfs.New()}, scene.NodeRef{Kind: "imagePlane", Name: "ip1"})
	assert.Empty(t, got)

	visible := sceneWith(t, `{"type": "imagePlane", "name": "ip1",
	  "attrs": {"displayMode": 3, "imageName": "/proj/plates/bg.0042.jpg", "useFrameExtension": true}}`, "")
	got = extract(t, &Env{Scene: visible, FS: memfs.New()}, scene.NodeRef{Kind: "imagePlane", Name: "ip1"})
	assert.Equal(t, []Template{{Path: "/proj/plates/bg.*.jpg", Kind: KindTexture}}, got)
}

func TestStandInHandlerGlobsSequences(t *testing.T) {
	hashed := sceneWith(t, `{"type": "aiStandIn", "name": "standin1",
	  "attrs": {"dso": "/proj/ass/tree.####.ass"}}`, "")
	got := extract(t, &Env{Scene: hashed, FS: memfs.New()}, scene.NodeRef{Kind: "aiStandIn", Name: "standin1"})
	assert.Equal(t, []Template{{Path: "/proj/ass/tree.*.ass", Kind: KindGeometry}}, got)

	numbered := sceneWith(t, `{"type": "aiStandIn", "name": "standin1",
	  "attrs": {"dso": "/proj/ass/tree.1001.ass"}}`, "")
	got = extract(t, &Env{Scene: numbered, FS: memfs.New()}, scene.NodeRef{Kind: "aiStandIn", Name: "standin1"})
	assert.Equal(t, []Template{{Path: "/proj/ass/tree.*.ass", Kind: KindGeometry}}, got)
}

func TestFileHandlerYieldsLayerOverrideTextures(t *testing.T) {
	doc := `{
	  "scene": "/proj/scenes/shot010.ma",
	  "project": "/proj",
	  "camera": "renderCam",
	  "layers": ["beauty", "shadow"],
	  "nodes": [
	    {"type": "file", "name": "file1", "attrs": {"fileTextureName": "/proj/tex/day.tif"}}
	  ],
	  "layer_overrides": {
	    "shadow": {"file1.fileTextureName": "/proj/tex/night.tif"}
	  }
	}`
	sc, err := scene.ParseDocument([]byte(doc))
	require.NoError(t, err)
	got := extract(t, &Env{Scene: sc, FS: memfs.New()}, scene.NodeRef{Kind: "file", Name: "file1"})
	assert.Equal(t, []Template{
		{Path: "/proj/tex/day.tif", Kind: KindTexture},
		{Path: "/proj/tex/night.tif", Kind: KindTexture},
	}, got)
}

func TestMeshHandlerReadsProxyAttributes(t *testing.T) {
	sc := sceneWith(t, `{"type": "mesh", "name": "mesh1",
	  "attrs": {"miProxyFile": "/proj/geo/proxy.mi", "rman__param___draFile": "/proj/geo/proxy.dra"}}`, "")
	got := extract(t, &Env{Scene: sc, FS: memfs.New()}, scene.NodeRef{Kind: "mesh", Name: "mesh1"})
	assert.Equal(t, []Template{
		{Path: "/proj/geo/proxy.mi", Kind: KindGeometry},
		{Path: "/proj/geo/proxy.dra", Kind: KindGeometry},
	}, got)
}

func TestOpenVDBReadHandler(t *testing.T) {
	sc := sceneWith(t, `{"type": "OpenVDBRead", "name": "vdb1",
	  "attrs": {"file": "/proj/vdb/cloud.vdb"}}`, "")
	got := extract(t, &Env{Scene: sc, FS: memfs.New()}, scene.NodeRef{Kind: "OpenVDBRead", Name: "vdb1"})
	assert.Equal(t, []Template{{Path: "/proj/vdb/cloud.vdb", Kind: KindCache}}, got)
}

func TestPxrTextureHandlerAtlasStyle(t *testing.T) {
	flat := sceneWith(t, `{"type": "PxrTexture", "name": "tex1",
	  "attrs": {"filename": "/proj/tex/wood_MAPID_.tex", "atlasStyle": 0}}`, "")
	got := extract(t, &Env{Scene: flat, FS: memfs.New()}, scene.NodeRef{Kind: "PxrTexture", Name: "tex1"})
	assert.Equal(t, []Template{{Path: "/proj/tex/wood_MAPID_.tex", Kind: KindTexture}}, got)

	atlas := sceneWith(t, `{"type": "PxrBump", "name": "bump1",
	  "attrs": {"filename": "/proj/tex/wood_MAPID_.tex", "atlasStyle": 1}}`, "")
	got = extract(t, &Env{Scene: atlas, FS: memfs.New()}, scene.NodeRef{Kind: "PxrBump", Name: "bump1"})
	assert.Equal(t, []Template{{Path: "/proj/tex/wood*.tex", Kind: KindTexture}}, got)
}

func TestPxrMultiTextureHandler(t *testing.T) {
	sc := sceneWith(t, `{"type": "PxrMultiTexture", "name": "multi1",
	  "attrs": {"filename0": "/proj/tex/a.tex", "filename3": "/proj/tex/b.tex", "filename9": "/proj/tex/c.tex"}}`, "")
	got := extract(t, &Env{Scene: sc, FS: memfs.New()}, scene.NodeRef{Kind: "PxrMultiTexture", Name: "multi1"})
	assert.Equal(t, []Template{
		{Path: "/proj/tex/a.tex", Kind: KindTexture},
		{Path: "/proj/tex/b.tex", Kind: KindTexture},
		{Path: "/proj/tex/c.tex", Kind: KindTexture},
	}, got)
}

func TestRenderManLightHandlers(t *testing.T) {
	cases := []struct {
		kind, attr string
	}{
		{"PxrStdEnvMapLight", "rman__EnvMap"},
		{"RMSEnvLight", "rman__EnvMap"},
		{"PxrDomeLight", "lightColorMap"},
		{"PxrPtexture", "filename"},
		{"PxrNormalMap", "filename"},
	}
	for _, c := range cases {
		sc := sceneWith(t, fmt.Sprintf(`{"type": "%s", "name": "n1",
		  "attrs": {"%s": "/proj/tex/env.tex"}}`, c.kind, c.attr), "")
		got := extract(t, &Env{Scene: sc, FS: memfs.New()}, scene.NodeRef{Kind: c.kind, Name: "n1"})
		assert.Equal(t, []Template{{Path: "/proj/tex/env.tex", Kind: KindTexture}}, got, "kind %s", c.kind)
	}
}

func TestMashWaiterHandlerSplitsArchiveList(t *testing.T) {
	sc := sceneWith(t, `{"type": "MASH_Waiter", "name": "waiter1",
	  "attrs": {"ribArchives": "/proj/rib/a.rib,/proj/rib/b.rib"}}`, "")
	got := extract(t, &Env{Scene: sc, FS: memfs.New()}, scene.NodeRef{Kind: "MASH_Waiter", Name: "waiter1"})
	assert.Equal(t, []Template{
		{Path: "/proj/rib/a.rib", Kind: KindArchive},
		{Path: "/proj/rib/b.rib", Kind: KindArchive},
	}, got)
}

func TestMashAudioHandler(t *testing.T) {
	sc := sceneWith(t, `{"type": "MASH_Audio", "name": "audio1",
	  "attrs": {"filename": "/proj/audio/track.wav"}}`, "")
	got := extract(t, &Env{Scene: sc, FS: memfs.New()}, scene.NodeRef{Kind: "MASH_Audio", Name: "audio1"})
	assert.Equal(t, []Template{{Path: "/proj/audio/track.wav", Kind: KindOther}}, got)
}

func TestVRaySceneHandlerTagsArchive(t *testing.T) {
	sc := sceneWith(t, `{"type": "VRayScene", "name": "vrs1",
	  "attrs": {"fPath": "/proj/vrscene/shot.vrscene"}}`, "")
	got := extract(t, &Env{Scene: sc, FS: memfs.New()}, scene.NodeRef{Kind: "VRayScene", Name: "vrs1"})
	assert.Equal(t, []Template{{Path: "/proj/vrscene/shot.vrscene", Kind: KindArchive}}, got)
}

func TestRibArchiveHandlerFlattensSiblingDir(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "/proj/rib/archive1/materials/wood.tex", []byte("t"), 0o644))
	require.NoError(t, util.WriteFile(fs, "/proj/rib/archive1/shader.slo", []byte("s"), 0o644))
	sc := sceneWith(t, `{"type": "RenderManArchive", "name": "rma1",
	  "attrs": {"filename": "/proj/rib/archive1.rib"}}`, "")
	got := extract(t, &Env{Scene: sc, FS: fs}, scene.NodeRef{Kind: "RenderManArchive", Name: "rma1"})
	require.NotEmpty(t, got)
	assert.Equal(t, Template{Path: "/proj/rib/archive1.rib", Kind: KindArchive}, got[0])
	paths := make([]string, 0, len(got)-1)
	for _, tmpl := range got[1:] {
		assert.Equal(t, KindOther, tmpl.Kind)
		paths = append(paths, tmpl.Path)
	}
	assert.ElementsMatch(t, []string{
		"/proj/rib/archive1/materials/wood.tex",
		"/proj/rib/archive1/shader.slo",
	}, paths)
}

func TestRibArchiveHandlerWithoutDirYieldsArchiveOnly(t *testing.T) {
	sc := sceneWith(t, `{"type": "RenderManArchive", "name": "rma1",
	  "attrs": {"filename": "/proj/rib/lonely.rib"}}`, "")
	got := extract(t, &Env{Scene: sc, FS: memfs.New()}, scene.NodeRef{Kind: "RenderManArchive", Name: "rma1"})
	assert.Equal(t, []Template{{Path: "/proj/rib/lonely.rib", Kind: KindArchive}}, got)
}
