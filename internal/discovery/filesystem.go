package discovery

import (
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/uvmigrate/uvmigrate/internal/sources"
)

var skippedDirectoryNames = map[string]struct{}{
	".git":          {},
	".hg":           {},
	".svn":          {},
	".venv":         {},
	"venv":          {},
	".tox":          {},
	".nox":          {},
	".eggs":         {},
	"__pycache__":   {},
	".mypy_cache":   {},
	".pytest_cache": {},
	"node_modules":  {},
	"site-packages": {},
	"dist":          {},
	"build":         {},
}

// FilesystemProjectDiscoverer locates migratable projects on disk.
type FilesystemProjectDiscoverer struct{}

// NewFilesystemProjectDiscoverer constructs a project discoverer backed by filepath.WalkDir.
func NewFilesystemProjectDiscoverer() *FilesystemProjectDiscoverer {
	return &FilesystemProjectDiscoverer{}
}

// DiscoverProjects walks the provided roots and returns every directory
// containing a recognized project definition file. Directories holding tool
// output or vendored environments are skipped unless named as a root.
func (discoverer *FilesystemProjectDiscoverer) DiscoverProjects(roots []string) ([]string, error) {
	seen := make(map[string]struct{})
	var projects []string

	for _, root := range roots {
		walkError := filepath.WalkDir(root, func(path string, directoryEntry fs.DirEntry, walkError error) error {
			if walkError != nil {
				return nil
			}

			if directoryEntry.IsDir() {
				if _, skipped := skippedDirectoryNames[directoryEntry.Name()]; skipped && path != root {
					return fs.SkipDir
				}
				return nil
			}

			if !sources.IsProjectDefinitionFileName(directoryEntry.Name()) {
				return nil
			}

			projectPath := filepath.Dir(path)
			if _, alreadySeen := seen[projectPath]; alreadySeen {
				return nil
			}

			seen[projectPath] = struct{}{}
			projects = append(projects, projectPath)
			return nil
		})
		if walkError != nil {
			return nil, walkError
		}
	}

	sort.Strings(projects)
	return projects, nil
}
