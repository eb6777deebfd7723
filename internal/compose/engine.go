package compose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/forge/composer/internal/catalog"
	"github.com/forge/composer/internal/manifest"
	"github.com/forge/composer/pkg/logger"
)

// ToolVersion is stamped into every system-metadata.json as a fingerprint
// of the composer build that produced the tree.
const ToolVersion = "composer/1.0"

// Engine runs the full Validate→Resolve→Order→Plan→Stage→Emit→
// PostVerify→Promote→Report pipeline against a single immutable catalog
// snapshot.
type Engine struct {
	catalog *catalog.Catalog
}

// NewEngine constructs an Engine bound to the given catalog snapshot.
func NewEngine(cat *catalog.Catalog) *Engine {
	return &Engine{catalog: cat}
}

// systemMetadata is the derived provenance file written alongside
// manifest.json at the root of every composed tree.
type systemMetadata struct {
	ResolvedTemplates []string  `json:"resolved_templates"`
	PlanOrder         []string  `json:"plan_order"`
	ToolVersion       string    `json:"tool_version"`
	CatalogSnapshot   string    `json:"catalog_snapshot"`
	ComposedAt        time.Time `json:"composed_at"`
}

// Compose runs the job to completion. On success for a non-dry-run job,
// output is rooted at <job.OutputRoot>/<system_name>/. On any failure
// before the promote step, no partial output tree exists.
func (e *Engine) Compose(ctx context.Context, job *Job) (*Report, error) {
	log := logger.FromContext(ctx).With("job_id", job.ID.String(), "system_name", job.Manifest.SystemName)
	start := time.Now()

	job.Manifest.ApplyDefaults()
	if err := validateManifest(job.Manifest); err != nil {
		return nil, err
	}

	plan, err := BuildPlan(job.Manifest, e.catalog)
	if err != nil {
		return nil, err
	}
	for _, w := range plan.Warnings {
		log.Warn("composition plan warning", "warning", w)
	}

	if job.DryRun {
		return buildReport(job.Manifest.SystemName, plan, 0, true, start, ""), nil
	}

	finalDir := filepath.Join(job.OutputRoot, job.Manifest.SystemName)
	stagingDir := filepath.Join(job.OutputRoot, ".staging-"+job.ID.String())
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return nil, &Error{Kind: KindFilesystemFault, Message: err.Error(), Cause: err}
	}
	defer os.RemoveAll(stagingDir)

	filesWritten, err := e.stageAll(ctx, plan, stagingDir)
	if err != nil {
		return nil, err
	}

	if err := emitManifestCopies(job.Manifest, plan, stagingDir, e.catalog.Snapshot()); err != nil {
		return nil, err
	}

	if err := postVerify(plan, stagingDir); err != nil {
		return nil, err
	}

	if err := promote(stagingDir, finalDir, job.Overwrite); err != nil {
		return nil, err
	}

	log.Info("composition promoted", "output_path", finalDir, "files_written", filesWritten)
	return buildReport(job.Manifest.SystemName, plan, filesWritten, false, start, finalDir), nil
}

func (e *Engine) stageAll(ctx context.Context, plan *Plan, stagingDir string) (int, error) {
	total := 0
	for _, node := range plan.Nodes {
		select {
		case <-ctx.Done():
			return total, &Error{Kind: KindTimeout, Message: "composition canceled", Cause: ctx.Err()}
		default:
		}
		n, err := stageNode(node, stagingDir)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// validateManifest wraps internal/manifest.Validate into the engine's own
// fault taxonomy so callers only ever switch on compose.Kind.
func validateManifest(m *manifest.Manifest) error {
	if err := manifest.Validate(m); err != nil {
		var verr *manifest.ValidationError
		if errors.As(err, &verr) && len(verr.Errors) > 0 {
			return &Error{Kind: KindManifestInvalid, Message: err.Error(), FieldPath: verr.Errors[0].Field, Cause: err}
		}
		return &Error{Kind: KindManifestInvalid, Message: err.Error(), Cause: err}
	}
	return nil
}

// emitManifestCopies writes the original manifest plus a derived
// system-metadata.json at the staging root.
func emitManifestCopies(m *manifest.Manifest, plan *Plan, stagingDir, catalogSnapshot string) error {
	manifestBytes, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return &Error{Kind: KindFilesystemFault, Message: fmt.Sprintf("encode manifest.json: %v", err), Cause: err}
	}
	if err := os.WriteFile(filepath.Join(stagingDir, "manifest.json"), manifestBytes, 0o644); err != nil {
		return &Error{Kind: KindFilesystemFault, Message: err.Error(), Cause: err}
	}

	slugs := make([]string, 0, len(plan.Nodes))
	order := make([]string, 0, len(plan.Nodes))
	for _, n := range plan.Nodes {
		slugs = append(slugs, n.Descriptor.Address())
		order = append(order, nodeKey(n))
	}
	meta := systemMetadata{
		ResolvedTemplates: slugs,
		PlanOrder:         order,
		ToolVersion:       ToolVersion,
		CatalogSnapshot:   catalogSnapshot,
		ComposedAt:        time.Now().UTC(),
	}
	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return &Error{Kind: KindFilesystemFault, Message: fmt.Sprintf("encode system-metadata.json: %v", err), Cause: err}
	}
	if err := os.WriteFile(filepath.Join(stagingDir, "system-metadata.json"), metaBytes, 0o644); err != nil {
		return &Error{Kind: KindFilesystemFault, Message: err.Error(), Cause: err}
	}
	return nil
}

// postVerify checks that every descriptor-declared output path exists
// under its node's staged subpath.
func postVerify(plan *Plan, stagingDir string) error {
	var missing []string
	for _, n := range plan.Nodes {
		for _, out := range n.Descriptor.Outputs {
			p := filepath.Join(stagingDir, filepath.FromSlash(n.TargetSubpath), filepath.FromSlash(out))
			if _, err := os.Stat(p); err != nil {
				missing = append(missing, n.TargetSubpath+"/"+out)
			}
		}
	}
	if len(missing) > 0 {
		return &Error{Kind: KindPostVerifyFault, Message: fmt.Sprintf("missing declared outputs: %v", missing)}
	}
	return nil
}

// promote atomically renames staging to the final output directory.
// Staging must live on the same filesystem as outputRoot — a cross-device
// rename surfaces as a FilesystemFault rather than silently falling back
// to a copy.
func promote(stagingDir, finalDir string, overwrite bool) error {
	if _, err := os.Stat(finalDir); err == nil {
		if !overwrite {
			return &Error{Kind: KindFilesystemFault, Message: fmt.Sprintf("output already exists: %s", finalDir)}
		}
		backup := finalDir + ".bak-promote"
		if err := os.Rename(finalDir, backup); err != nil {
			return &Error{Kind: KindFilesystemFault, Message: fmt.Sprintf("back up existing output: %v", err), Cause: err}
		}
		if err := os.Rename(stagingDir, finalDir); err != nil {
			_ = os.Rename(backup, finalDir)
			return &Error{Kind: KindFilesystemFault, Message: fmt.Sprintf("promote staging: %v", err), Cause: err}
		}
		return os.RemoveAll(backup)
	}
	if err := os.Rename(stagingDir, finalDir); err != nil {
		return &Error{Kind: KindFilesystemFault, Message: fmt.Sprintf("promote staging: %v", err), Cause: err}
	}
	return nil
}
