package catalog

// Category is a closed tagged variant over the template kinds the
// composer understands. Parsed once at catalog load time; nothing
// downstream dispatches on a free-form string.
type Category string

const (
	CategoryBackend       Category = "backend"
	CategoryFrontend      Category = "frontend"
	CategoryAIAgent       Category = "ai_agent"
	CategoryBusiness      Category = "business"
	CategoryInfrastructure Category = "infrastructure"
	CategoryGovernance    Category = "governance"
	CategoryConnector     Category = "connector"
	CategoryIndustry      Category = "industry"
)

var knownCategories = map[Category]bool{
	CategoryBackend:        true,
	CategoryFrontend:       true,
	CategoryAIAgent:        true,
	CategoryBusiness:       true,
	CategoryInfrastructure: true,
	CategoryGovernance:     true,
	CategoryConnector:      true,
	CategoryIndustry:       true,
}

// ParseCategory converts a free-form descriptor field into a Category,
// rejecting anything outside the closed set.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	return c, knownCategories[c]
}

// AllCategories returns every category in the closed set, in declaration
// order, for callers that need to probe each one (e.g. resolving a
// template id without knowing its category in advance).
func AllCategories() []Category {
	return []Category{
		CategoryBackend,
		CategoryFrontend,
		CategoryAIAgent,
		CategoryBusiness,
		CategoryInfrastructure,
		CategoryGovernance,
		CategoryConnector,
		CategoryIndustry,
	}
}

// Variable is a declared input a template's files may interpolate.
type Variable struct {
	Name     string `yaml:"name"     json:"name"`
	Default  any    `yaml:"default,omitempty" json:"default,omitempty"`
	Required bool   `yaml:"required,omitempty" json:"required,omitempty"`
}

// Dependency names a prerequisite descriptor by its address.
type Dependency struct {
	Category Category `yaml:"category" json:"category"`
	Slug     string   `yaml:"slug"     json:"slug"`
}

// descriptorFile is the on-disk shape of a template's descriptor, read
// from <template-dir>/template.yaml.
type descriptorFile struct {
	Slug           string       `yaml:"slug"`
	Category       string       `yaml:"category"`
	TemplatedFiles []string     `yaml:"templated_files"`
	Variables      []Variable   `yaml:"variables"`
	Outputs        []string     `yaml:"outputs"`
	Dependencies   []Dependency `yaml:"dependencies"`
}

// Descriptor is the validated, in-memory form of one template's metadata,
// addressed by (Category, Slug). Immutable once the catalog has loaded.
type Descriptor struct {
	Category       Category
	Slug           string
	SourceDir      string
	TemplatedFiles []string
	Variables      []Variable
	Outputs        []string
	Dependencies   []Dependency
}

// Address returns the descriptor's (category, slug) key as a single
// string, used for map keys, cache keys, and error messages.
func (d *Descriptor) Address() string {
	return string(d.Category) + ":" + d.Slug
}

// IsTemplated reports whether relPath (slash-separated, relative to the
// template's source directory) matches one of the descriptor's templated
// file globs.
func (d *Descriptor) IsTemplated(relPath string) bool {
	for _, pattern := range d.TemplatedFiles {
		if matched, _ := matchGlob(pattern, relPath); matched {
			return true
		}
	}
	return false
}
