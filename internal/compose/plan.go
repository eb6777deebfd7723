package compose

import (
	"fmt"
	"sort"

	"github.com/forge/composer/internal/catalog"
	"github.com/forge/composer/internal/manifest"
)

// PlanNode is one resolved, ordered unit of work: a (descriptor,
// instance_name, variable bindings, target subpath) entry of the
// composition plan.
type PlanNode struct {
	Descriptor    *catalog.Descriptor
	InstanceName  string
	Variables     map[string]any
	TargetSubpath string
}

// Plan is the ordered, collision-free set of nodes a manifest resolves to.
type Plan struct {
	Nodes    []PlanNode
	Warnings []string
}

// resolveNodes resolves every explicit component reference against the
// catalog, failing with every missing reference named (no
// short-circuit). The free-form infrastructure/governance toggles are
// typed-but-lenient: an unselected toggle is simply absent, and a toggle
// naming a template the catalog doesn't have becomes a plan warning
// rather than a hard UnknownTemplate failure, since those sub-objects are
// documented as tolerating unknown keys.
func resolveNodes(m *manifest.Manifest, cat *catalog.Catalog) ([]PlanNode, []string, error) {
	var nodes []PlanNode
	var missing []string
	var warnings []string

	if m.Components.Backend != nil {
		addNode(cat, &nodes, &missing, catalog.CategoryBackend, m.Components.Backend.Template, m.Components.Backend.Template, baseVariables(m))
	}
	if m.Components.Frontend != nil {
		vars := baseVariables(m)
		vars["pwa"] = m.Components.Frontend.PWA
		addNode(cat, &nodes, &missing, catalog.CategoryFrontend, m.Components.Frontend.Template, m.Components.Frontend.Template, vars)
	}
	if m.Components.Business != nil {
		addNode(cat, &nodes, &missing, catalog.CategoryBusiness, m.Components.Business.Template, m.Components.Business.Template, baseVariables(m))
	}
	for _, agent := range m.Components.AIAgents {
		instance := agent.EffectiveInstanceName()
		vars := baseVariables(m)
		vars["instance_name"] = instance
		addNode(cat, &nodes, &missing, catalog.CategoryAIAgent, agent.Template, instance, vars)
	}
	for _, key := range sortedTrueKeys(m.Components.Infrastructure) {
		resolveToggle(cat, &nodes, &warnings, catalog.CategoryInfrastructure, key, baseVariables(m))
	}
	for _, key := range sortedTrueKeys(m.Components.Governance) {
		resolveToggle(cat, &nodes, &warnings, catalog.CategoryGovernance, key, baseVariables(m))
	}

	if len(missing) > 0 {
		return nil, warnings, &Error{
			Kind:    KindUnknownTemplate,
			Message: fmt.Sprintf("manifest references templates not present in the catalog: %v", missing),
		}
	}
	return nodes, warnings, nil
}

func addNode(
	cat *catalog.Catalog,
	nodes *[]PlanNode,
	missing *[]string,
	category catalog.Category,
	slug, instanceName string,
	vars map[string]any,
) {
	desc, ok := cat.Resolve(category, slug)
	if !ok {
		*missing = append(*missing, string(category)+":"+slug)
		return
	}
	*nodes = append(*nodes, PlanNode{Descriptor: desc, InstanceName: instanceName, Variables: vars})
}

func resolveToggle(
	cat *catalog.Catalog,
	nodes *[]PlanNode,
	warnings *[]string,
	category catalog.Category,
	slug string,
	vars map[string]any,
) {
	desc, ok := cat.Resolve(category, slug)
	if !ok {
		*warnings = append(*warnings, fmt.Sprintf("unknown %s key %q ignored", category, slug))
		return
	}
	*nodes = append(*nodes, PlanNode{Descriptor: desc, InstanceName: slug, Variables: vars})
}

func sortedTrueKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if v {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func baseVariables(m *manifest.Manifest) map[string]any {
	return map[string]any{
		"system_name": m.SystemName,
		"org":         m.Org,
	}
}

// orderNodes topologically sorts by each descriptor's declared
// dependencies, breaking ties lexicographically by (category, slug,
// instance_name) for determinism.
func orderNodes(nodes []PlanNode) ([]PlanNode, error) {
	sort.Slice(nodes, func(i, j int) bool { return nodeKey(nodes[i]) < nodeKey(nodes[j]) })

	indegree := make([]int, len(nodes))
	// dependents[i] lists indices of nodes that depend on node i.
	dependents := make([][]int, len(nodes))
	for i, n := range nodes {
		for _, dep := range n.Descriptor.Dependencies {
			for j, candidate := range nodes {
				if candidate.Descriptor.Category == dep.Category && candidate.Descriptor.Slug == dep.Slug {
					indegree[i]++
					dependents[j] = append(dependents[j], i)
				}
			}
		}
	}

	var ready []int
	for i := range nodes {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}
	sort.Slice(ready, func(a, b int) bool { return nodeKey(nodes[ready[a]]) < nodeKey(nodes[ready[b]]) })

	ordered := make([]PlanNode, 0, len(nodes))
	visited := make([]bool, len(nodes))
	for len(ready) > 0 {
		idx := ready[0]
		ready = ready[1:]
		if visited[idx] {
			continue
		}
		visited[idx] = true
		ordered = append(ordered, nodes[idx])
		var unlocked []int
		for _, dIdx := range dependents[idx] {
			indegree[dIdx]--
			if indegree[dIdx] == 0 {
				unlocked = append(unlocked, dIdx)
			}
		}
		ready = append(ready, unlocked...)
		sort.Slice(ready, func(a, b int) bool { return nodeKey(nodes[ready[a]]) < nodeKey(nodes[ready[b]]) })
	}

	if len(ordered) != len(nodes) {
		var cycle []string
		for i, v := range visited {
			if !v {
				cycle = append(cycle, nodeKey(nodes[i]))
			}
		}
		return nil, &Error{Kind: KindDependencyCycle, Message: fmt.Sprintf("dependency cycle among: %v", cycle)}
	}
	return ordered, nil
}

func nodeKey(n PlanNode) string {
	return string(n.Descriptor.Category) + ":" + n.Descriptor.Slug + ":" + n.InstanceName
}

// assignTargets maps each node to its target subpath and rejects path
// collisions.
func assignTargets(nodes []PlanNode) error {
	seen := make(map[string]string, len(nodes))
	var collisions []string
	for i := range nodes {
		nodes[i].TargetSubpath = targetSubpath(nodes[i])
		if existing, ok := seen[nodes[i].TargetSubpath]; ok {
			collisions = append(collisions, fmt.Sprintf("%s (claimed by both %s and %s)", nodes[i].TargetSubpath, existing, nodeKey(nodes[i])))
			continue
		}
		seen[nodes[i].TargetSubpath] = nodeKey(nodes[i])
	}
	if len(collisions) > 0 {
		return &Error{Kind: KindNameCollision, Message: fmt.Sprintf("target path collisions: %v", collisions)}
	}
	return nil
}

func targetSubpath(n PlanNode) string {
	switch n.Descriptor.Category {
	case catalog.CategoryBackend:
		return "backend"
	case catalog.CategoryFrontend:
		return "frontend"
	case catalog.CategoryAIAgent:
		return "agents/" + n.InstanceName
	case catalog.CategoryBusiness:
		return "business"
	case catalog.CategoryGovernance:
		return "governance/" + n.Descriptor.Slug
	case catalog.CategoryIndustry:
		return "industry/" + n.Descriptor.Slug
	case catalog.CategoryInfrastructure:
		return "infrastructure/" + n.Descriptor.Slug
	default:
		return string(n.Descriptor.Category) + "/" + n.Descriptor.Slug
	}
}

// BuildPlan runs Resolve → Order → Plan and returns the ordered,
// collision-checked Plan.
func BuildPlan(m *manifest.Manifest, cat *catalog.Catalog) (*Plan, error) {
	nodes, warnings, err := resolveNodes(m, cat)
	if err != nil {
		return nil, err
	}
	ordered, err := orderNodes(nodes)
	if err != nil {
		return nil, err
	}
	if err := assignTargets(ordered); err != nil {
		return nil, err
	}
	return &Plan{Nodes: ordered, Warnings: warnings}, nil
}
