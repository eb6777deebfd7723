package catalog

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const descriptorFileName = "template.yaml"

// matchGlob is a thin wrapper over doublestar.Match, used by
// Descriptor.IsTemplated.
func matchGlob(pattern, path string) (bool, error) {
	return doublestar.Match(pattern, filepath.ToSlash(path))
}

// discoverDescriptorFiles walks root looking for every template.yaml,
// using a single fixed glob pattern rather than configurable
// include/exclude globs, since the catalog's directory convention is
// fixed.
func discoverDescriptorFiles(root string) ([]string, error) {
	pattern := filepath.Join(root, "**", descriptorFileName)
	matches, err := doublestar.FilepathGlob(filepath.ToSlash(pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid descriptor glob: %w", err)
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		rel, relErr := filepath.Rel(root, m)
		if relErr != nil || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
