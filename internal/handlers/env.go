package handlers

import (
	"os"
	"path"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/charmbracelet/log"

	"github.com/zync/zync-maya/internal/scene"
)

// Env is the per-pass context handed to every extractor: the scene
// accessor, the filesystem probe and the logger. One Env is built per
// collection pass and discarded with it; nothing here outlives a pass.
type Env struct {
	Scene  scene.Scene
	FS     billy.Filesystem
	Logger *log.Logger
}

// Exists reports whether a path is present on storage.
func (e *Env) Exists(p string) bool {
	if p == "" {
		return false
	}
	_, err := e.FS.Stat(p)
	return err == nil
}

// ProjectDir returns the project root without a trailing slash.
func (e *Env) ProjectDir() string {
	return strings.TrimSuffix(e.Scene.ProjectDir(), "/")
}

// ArnoldTiledTextures reports whether the renderer is configured to pick
// up pre-baked .tx siblings next to source textures.
func (e *Env) ArnoldTiledTextures() bool {
	v, ok := e.Scene.Global("use_existing_tiled_textures")
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case int64:
		return t != 0
	}
	return false
}

// WalkFiles yields every regular file under dir, depth-first. Unreadable
// directories are skipped; the archive-directory flattening this serves
// is best-effort.
func (e *Env) WalkFiles(dir string, visit func(p string)) {
	entries, err := e.FS.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		child := path.Join(dir, entry.Name())
		if entry.IsDir() {
			e.WalkFiles(child, visit)
			continue
		}
		if entry.Mode()&os.ModeType == 0 {
			visit(child)
		}
	}
}

func (e *Env) debugf(format string, args ...any) {
	if e.Logger != nil {
		e.Logger.Debugf(format, args...)
	}
}

func (e *Env) warnf(format string, args ...any) {
	if e.Logger != nil {
		e.Logger.Warnf(format, args...)
	}
}
