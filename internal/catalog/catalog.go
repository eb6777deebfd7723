// Package catalog indexes the template library on local disk and exposes
// read-only lookups to the composition engine and the control plane API.
// The catalog is loaded once at startup and never mutated afterward; a
// restart is required to pick up library edits.
package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/goccy/go-yaml"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/forge/composer/engine/core"
	"github.com/forge/composer/pkg/logger"
)

// LoadWarning records one descriptor file the catalog skipped, paired
// with why — surfaced to operators instead of failing startup.
type LoadWarning struct {
	Path   string
	Reason string
}

// Catalog is the immutable, read-only snapshot of every valid template
// descriptor found under a library root.
type Catalog struct {
	root          string
	byAddress     map[string]*Descriptor
	byCategory    map[Category][]*Descriptor
	categoryCount map[Category]int
	warnings      []LoadWarning
	snapshot      string
	resolveCache  *lru.Cache[string, *Descriptor]
}

const defaultResolveCacheSize = 256

// Load scans root for template.yaml descriptor files, validates each, and
// returns a Catalog containing every descriptor that parsed and validated
// successfully. Invalid descriptors are logged as warnings and omitted,
// never causing Load to fail — the catalog degrades gracefully rather
// than blocking the whole process on one bad template directory. A
// directory with no template.yaml is not discovered at all and produces
// no warning.
func Load(ctx context.Context, root string) (*Catalog, error) {
	log := logger.FromContext(ctx)
	files, err := discoverDescriptorFiles(root)
	if err != nil {
		return nil, fmt.Errorf("discover template descriptors: %w", err)
	}
	cache, err := lru.New[string, *Descriptor](defaultResolveCacheSize)
	if err != nil {
		return nil, fmt.Errorf("construct resolve cache: %w", err)
	}
	cat := &Catalog{
		root:          root,
		byAddress:     map[string]*Descriptor{},
		byCategory:    map[Category][]*Descriptor{},
		categoryCount: map[Category]int{},
		resolveCache:  cache,
	}
	for _, path := range files {
		desc, err := loadOne(path)
		if err != nil {
			log.Warn("skipping invalid template descriptor", "path", path, "error", err)
			cat.warnings = append(cat.warnings, LoadWarning{Path: path, Reason: err.Error()})
			continue
		}
		addr := desc.Address()
		if _, exists := cat.byAddress[addr]; exists {
			log.Warn("skipping duplicate template descriptor", "path", path, "address", addr)
			cat.warnings = append(cat.warnings, LoadWarning{Path: path, Reason: "duplicate address " + addr})
			continue
		}
		cat.byAddress[addr] = desc
		cat.byCategory[desc.Category] = append(cat.byCategory[desc.Category], desc)
		cat.categoryCount[desc.Category]++
	}
	for cat2 := range cat.byCategory {
		sort.Slice(cat.byCategory[cat2], func(i, j int) bool {
			return cat.byCategory[cat2][i].Slug < cat.byCategory[cat2][j].Slug
		})
	}
	cat.snapshot = computeSnapshot(cat.byAddress)
	log.Info("catalog loaded", "root", root, "templates", len(cat.byAddress), "warnings", len(cat.warnings))
	return cat, nil
}

func loadOne(path string) (*Descriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor: %w", err)
	}
	var df descriptorFile
	if err := yaml.Unmarshal(raw, &df); err != nil {
		return nil, fmt.Errorf("parse descriptor yaml: %w", err)
	}
	if df.Slug == "" {
		return nil, fmt.Errorf("descriptor missing slug")
	}
	category, ok := ParseCategory(df.Category)
	if !ok {
		return nil, fmt.Errorf("descriptor has unknown category %q", df.Category)
	}
	return &Descriptor{
		Category:       category,
		Slug:           df.Slug,
		SourceDir:      filepath.Dir(path),
		TemplatedFiles: df.TemplatedFiles,
		Variables:      df.Variables,
		Outputs:        df.Outputs,
		Dependencies:   df.Dependencies,
	}, nil
}

// computeSnapshot fingerprints the aggregate descriptor set so
// system-metadata.json can record which catalog version produced a
// composition, using the same canonical-JSON sha256 helper the engine
// uses everywhere else a content hash is needed.
func computeSnapshot(byAddress map[string]*Descriptor) string {
	addrs := make([]string, 0, len(byAddress))
	for a := range byAddress {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)
	rows := make([]any, 0, len(addrs))
	for _, a := range addrs {
		d := byAddress[a]
		rows = append(rows, map[string]any{
			"address":         a,
			"templated_files": d.TemplatedFiles,
			"outputs":         d.Outputs,
		})
	}
	return core.ETagFromAny(rows)
}

// Categories enumerates every category present in the catalog along with
// its template count, cached at load time.
func (c *Catalog) Categories() map[Category]int {
	out := make(map[Category]int, len(c.categoryCount))
	for k, v := range c.categoryCount {
		out[k] = v
	}
	return out
}

// TemplatesIn returns every descriptor in the given category, sorted by
// slug for deterministic output.
func (c *Catalog) TemplatesIn(category Category) []*Descriptor {
	return append([]*Descriptor(nil), c.byCategory[category]...)
}

// Resolve looks up a descriptor by (category, slug), consulting the
// bounded LRU cache first since Resolve sits on the hot path of every
// composition job and the catalog never changes within a process
// lifetime.
func (c *Catalog) Resolve(category Category, slug string) (*Descriptor, bool) {
	addr := string(category) + ":" + slug
	if d, ok := c.resolveCache.Get(addr); ok {
		return d, true
	}
	d, ok := c.byAddress[addr]
	if !ok {
		return nil, false
	}
	c.resolveCache.Add(addr, d)
	return d, true
}

// Snapshot returns the content hash of the aggregate descriptor set.
func (c *Catalog) Snapshot() string {
	return c.snapshot
}

// Warnings returns every descriptor file the catalog skipped at load
// time.
func (c *Catalog) Warnings() []LoadWarning {
	return append([]LoadWarning(nil), c.warnings...)
}

// Root returns the library root this catalog was loaded from.
func (c *Catalog) Root() string {
	return c.root
}
