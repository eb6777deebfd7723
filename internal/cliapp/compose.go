package cliapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/forge/composer/internal/catalog"
	"github.com/forge/composer/internal/compose"
	"github.com/forge/composer/internal/manifest"
	"github.com/forge/composer/internal/metrics"
	"github.com/forge/composer/pkg/config"
	"github.com/forge/composer/pkg/logger"
)

const defaultMaxComposeSeconds = 120 * time.Second

// configPath mirrors cmd/server's own env-var fallback: an explicit
// COMPOSER_CONFIG_FILE wins, otherwise composer.yaml in the working
// directory (missing entirely is fine, per config.NewYAMLProvider).
func configPath() string {
	if p := os.Getenv("COMPOSER_CONFIG_FILE"); p != "" {
		return p
	}
	return "composer.yaml"
}

// ExitCodeError lets main map a command failure to a precise exit code
// without cobra's own error path collapsing every failure to 1.
type ExitCodeError struct {
	Code int
	Err  error
}

func (e *ExitCodeError) Error() string { return e.Err.Error() }
func (e *ExitCodeError) Unwrap() error { return e.Err }

// composeOptions holds the compose subcommand's flags.
type composeOptions struct {
	ManifestPath string `validate:"required"`
	Output       string `validate:"required"`
	DryRun       bool
	TemplateRoot string `validate:"required"`
	Overwrite    bool
}

// NewComposeCommand builds the `compose` subcommand, the CLI's sole
// surface.
func NewComposeCommand() *cobra.Command {
	opts := &composeOptions{TemplateRoot: "./library"}
	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Materialize an output repository from a manifest",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCompose(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.ManifestPath, "manifest", "", "path to the manifest JSON file")
	cmd.Flags().StringVar(&opts.Output, "output", "", "output root directory")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "plan without writing any files")
	cmd.Flags().StringVar(&opts.TemplateRoot, "template-root", opts.TemplateRoot, "template library root")
	cmd.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "overwrite an existing output directory")
	_ = cmd.MarkFlagRequired("manifest")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func runCompose(ctx context.Context, opts *composeOptions) error {
	if err := validator.New().Struct(opts); err != nil {
		return &ExitCodeError{Code: 1, Err: fmt.Errorf("invalid options: %w", err)}
	}

	m, err := loadManifest(opts.ManifestPath)
	if err != nil {
		return &ExitCodeError{Code: 1, Err: err}
	}

	cat, err := catalog.Load(ctx, opts.TemplateRoot)
	if err != nil {
		return &ExitCodeError{Code: 2, Err: fmt.Errorf("load catalog: %w", err)}
	}

	job, err := compose.NewJob(m, opts.Output, opts.DryRun, opts.Overwrite)
	if err != nil {
		return &ExitCodeError{Code: 3, Err: fmt.Errorf("create job: %w", err)}
	}

	mgr := config.NewManager(nil)
	if err := config.Initialize(
		ctx, mgr,
		config.NewDefaultProvider(),
		config.NewYAMLProvider(configPath()),
		config.NewEnvProvider(),
	); err != nil {
		return &ExitCodeError{Code: 3, Err: fmt.Errorf("load configuration: %w", err)}
	}
	cfg := config.Get()

	metricsSvc, err := metrics.NewService(cfg.Monitoring.Enabled)
	if err != nil {
		return &ExitCodeError{Code: 3, Err: fmt.Errorf("init metrics: %w", err)}
	}

	maxCompose := cfg.Compose.MaxComposeSeconds
	if maxCompose <= 0 {
		maxCompose = defaultMaxComposeSeconds
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, maxCompose)
	defer cancel()

	engine := compose.NewEngine(cat)
	start := time.Now()
	report, composeErr := engine.Compose(timeoutCtx, job)
	outcome := "success"
	if composeErr != nil {
		outcome = composeOutcomeKind(composeErr)
	}
	metricsSvc.RecordCompose(ctx, time.Since(start), outcome)
	if pushErr := metricsSvc.Push(ctx, cfg.Monitoring.PushGatewayURL, "composer_compose"); pushErr != nil {
		logger.FromContext(ctx).Warn("push metrics failed", "error", pushErr)
	}

	if composeErr != nil {
		return &ExitCodeError{Code: exitCodeForComposeErr(composeErr), Err: composeErr}
	}

	log := logger.FromContext(ctx)
	log.Info("composition complete",
		"system_name", report.SystemName, "files_written", report.FilesWritten, "dry_run", report.DryRun)
	return nil
}

// composeOutcomeKind extracts the compose.Error fault kind as a metric
// label, falling back to a generic label for errors the engine didn't
// classify (e.g. context deadline exceeded bypassing compose.Error).
func composeOutcomeKind(err error) string {
	var cerr *compose.Error
	if errors.As(err, &cerr) {
		return string(cerr.Kind)
	}
	return "unclassified"
}

func loadManifest(path string) (*manifest.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m manifest.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	m.ApplyDefaults()
	if err := manifest.Validate(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// exitCodeForComposeErr maps the engine's abstract fault kinds onto the
// CLI's exit codes. UnknownTemplate, DependencyCycle, and NameCollision
// all surface as 2 ("catalog lookup failed") since all three originate
// in resolving the manifest against the catalog (see DESIGN.md).
func exitCodeForComposeErr(err error) int {
	var cerr *compose.Error
	if !errors.As(err, &cerr) {
		return 3
	}
	switch cerr.Kind {
	case compose.KindManifestInvalid:
		return 1
	case compose.KindUnknownTemplate, compose.KindDependencyCycle, compose.KindNameCollision:
		return 2
	case compose.KindTimeout:
		return 4
	case compose.KindPostVerifyFault:
		return 5
	case compose.KindFilesystemFault:
		return 3
	default:
		return 3
	}
}
