// Package globs materializes wildcard path patterns against a
// filesystem. Used when duplicate detection needs the concrete files a
// pattern stands for; the dependency manifest itself keeps patterns
// as-is.
package globs

import (
	"os"
	"path"
	"strings"

	billy "github.com/go-git/go-billy/v5"
)

// Resolve expands a glob pattern to the files currently on storage. The
// pattern's directory part is taken literally and walked recursively;
// the basename is matched against every file underneath, so a sequence
// pattern picks up files sorted into per-frame subdirectories too.
// A missing directory resolves to nothing.
func Resolve(fs billy.Filesystem, pattern string) []string {
	pattern = strings.ReplaceAll(pattern, "\\", "/")
	dir, base := path.Split(pattern)
	if dir == "" {
		dir = "."
	} else {
		dir = strings.TrimSuffix(dir, "/")
	}
	var out []string
	walk(fs, dir, func(p string) {
		if ok, err := path.Match(base, path.Base(p)); err == nil && ok {
			out = append(out, p)
		}
	})
	return out
}

func walk(fs billy.Filesystem, dir string, visit func(p string)) {
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		child := path.Join(dir, entry.Name())
		if entry.IsDir() {
			walk(fs, child, visit)
			continue
		}
		if entry.Mode()&os.ModeType == 0 {
			visit(child)
		}
	}
}
