package api

// SceneDocument is the JSON export of an authoring scene, produced by the
// Maya-side exporter and consumed by the dependency collector. It is a
// point-in-time snapshot: node attribute values are already resolved, so
// nothing here requires a live Maya session to interpret.
type SceneDocument struct {
	// Version of the export schema.
	Version string `json:"version"`
	// Scene is the full path of the scene file, e.g. /proj/scenes/shot010.ma.
	Scene string `json:"scene"`
	// Project is the Maya project root directory.
	Project string `json:"project"`
	// Camera is the renderable camera selected for the job.
	Camera string `json:"camera"`
	// Layers lists the render layers selected for the job.
	Layers []string `json:"layers,omitempty"`
	// FrameRange is the scene frame range expression, e.g. "1001-1350".
	FrameRange string `json:"frame_range,omitempty"`
	// Renderer is the active renderer name, e.g. "arnold", "vray".
	Renderer string `json:"renderer,omitempty"`
	// Workspace maps Maya file rule entries (diskCache, particles, ...)
	// to their configured directories.
	Workspace map[string]string `json:"workspace,omitempty"`
	// Globals holds resolved values of render-global attributes the
	// collector consults, e.g. "use_existing_tiled_textures".
	Globals map[string]any `json:"globals,omitempty"`
	// Tokens maps host-native placeholder names (RMSPROJ, STAGE, ...)
	// to their values at export time. Placeholders spelled ${NAME} that
	// survive token expansion are resolved against this table.
	Tokens map[string]string `json:"tokens,omitempty"`
	// Nodes are the scene nodes, one entry per node.
	Nodes []SceneNode `json:"nodes,omitempty"`
	// LayerOverrides carries per-layer override values already resolved
	// by the exporter (the connection-plug walk stays host-side). Keyed
	// by layer name, then by render-global name ("imageFilePrefix") or
	// plug name ("file1.fileTextureName") for node attribute overrides.
	LayerOverrides map[string]map[string]any `json:"layer_overrides,omitempty"`
}

// SceneNode is one node in the exported scene.
type SceneNode struct {
	// Type is the Maya node type, e.g. "file", "cacheFile", "RenderManArchive".
	Type string `json:"type"`
	// Name is the node name, unique within the export.
	Name string `json:"name"`
	// Attrs maps attribute names to resolved values. Attributes absent
	// from the node (schema varies across Maya versions) are simply
	// omitted; consumers must treat missing keys as absent, not as errors.
	Attrs map[string]any `json:"attrs,omitempty"`
}
