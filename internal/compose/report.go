package compose

import "time"

// Report summarizes one composition run, whether promoted to disk or a
// dry-run preview.
type Report struct {
	SystemName       string         `json:"system_name"`
	DryRun           bool           `json:"dry_run"`
	FilesWritten     int            `json:"files_written"`
	CountsByCategory map[string]int `json:"counts_by_category"`
	ResolvedSlugs    []string       `json:"resolved_templates"`
	PlanOrder        []string       `json:"plan_order"`
	Warnings         []string       `json:"warnings,omitempty"`
	Duration         time.Duration  `json:"duration"`
	OutputPath       string         `json:"output_path,omitempty"`
}

func buildReport(systemName string, plan *Plan, filesWritten int, dryRun bool, start time.Time, outputPath string) *Report {
	counts := map[string]int{}
	slugs := make([]string, 0, len(plan.Nodes))
	order := make([]string, 0, len(plan.Nodes))
	for _, n := range plan.Nodes {
		counts[string(n.Descriptor.Category)]++
		slugs = append(slugs, n.Descriptor.Address())
		order = append(order, nodeKey(n))
	}
	return &Report{
		SystemName:       systemName,
		DryRun:           dryRun,
		FilesWritten:     filesWritten,
		CountsByCategory: counts,
		ResolvedSlugs:    slugs,
		PlanOrder:        order,
		Warnings:         plan.Warnings,
		Duration:         time.Since(start),
		OutputPath:       outputPath,
	}
}
