package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opengateware/pocket-release/internal/config"
	"github.com/opengateware/pocket-release/internal/logger"
	"github.com/opengateware/pocket-release/internal/service/archive"
	"github.com/opengateware/pocket-release/internal/service/bitstream"
	"github.com/opengateware/pocket-release/internal/service/metadata"
	"github.com/opengateware/pocket-release/internal/service/stage"
	"github.com/opengateware/pocket-release/internal/service/template"
)

// Options contains inputs for the packaging entry points.
type Options struct {
	// ManifestPath optionally overrides the manifest location
	// (defaults to gateware.json in the workspace root).
	ManifestPath string
	// Manifest optionally supplies an already loaded manifest,
	// skipping the filesystem lookup.
	Manifest *config.Manifest
	// Run is the resolved environment for this run.
	Run *config.RunContext
	// SkipBitstream disables the bitstream reversal step for targets
	// whose loader consumes the compiled RBF as-is.
	SkipBitstream bool
}

// Result reports the archives produced by a packaging run.
// An empty field means no template was configured for that package,
// which is a normal skip rather than a failure.
type Result struct {
	// ReleaseArchive is the release zip filename inside ReleaseDir.
	ReleaseArchive string
	// MetadataArchive is the metadata zip filename inside ReleaseDir.
	MetadataArchive string
	// ReleaseDir is the absolute folder containing the produced archives.
	ReleaseDir string
}

// Files returns the produced archive filenames, skipping absent packages.
func (r *Result) Files() []string {
	files := make([]string, 0, 2)

	if r.ReleaseArchive != "" {
		files = append(files, r.ReleaseArchive)
	}

	if r.MetadataArchive != "" {
		files = append(files, r.MetadataArchive)
	}

	return files
}

// errRunContextRequired is returned when no run context was provided.
var errRunContextRequired = errors.New("run context is not set")

// pipeline holds the resolved inputs for a single run. Steps execute
// strictly in sequence; any failure aborts the run, and re-running is safe
// because folder preparation is idempotent.
type pipeline struct {
	// manifest is the validated project manifest.
	manifest *config.Manifest
	// run is the resolved environment for this run.
	run *config.RunContext
	// skipBitstream disables the reversal step.
	skipBitstream bool
	// now supplies the render date; split out so tests can pin it.
	now func() time.Time
}

// Run executes the full packaging pipeline: folder preparation, staging,
// cleanup, metadata update, bitstream reversal and archive creation.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	ctx = logger.WithName(ctx, "pocket-release")

	p, err := newPipeline(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("initialize pipeline: %w", err)
	}

	if err = p.stage(ctx); err != nil {
		return nil, fmt.Errorf("staging failed: %w", err)
	}

	result, err := p.pack(ctx)
	if err != nil {
		return nil, fmt.Errorf("packaging failed: %w", err)
	}

	logger.Info(ctx, "Packaging pipeline completed successfully")

	return result, nil
}

// RunStage executes only the staging half of the pipeline: folder
// preparation, staging, cleanup and metadata update.
func RunStage(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "pocket-stage")

	p, err := newPipeline(ctx, opts)
	if err != nil {
		return fmt.Errorf("initialize pipeline: %w", err)
	}

	if err = p.stage(ctx); err != nil {
		return fmt.Errorf("staging failed: %w", err)
	}

	logger.Info(ctx, "Staging completed successfully")

	return nil
}

// RunPackage executes only the packaging half against an existing staged
// tree: bitstream reversal and archive creation.
func RunPackage(ctx context.Context, opts *Options) (*Result, error) {
	ctx = logger.WithName(ctx, "pocket-publish")

	p, err := newPipeline(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("initialize pipeline: %w", err)
	}

	result, err := p.pack(ctx)
	if err != nil {
		return nil, fmt.Errorf("packaging failed: %w", err)
	}

	return result, nil
}

// newPipeline validates the run context, loads the manifest and checks
// that the target is configured before any filesystem mutation.
func newPipeline(ctx context.Context, opts *Options) (*pipeline, error) {
	if opts.Run == nil {
		return nil, errRunContextRequired
	}

	if err := opts.Run.ValidateStaging(); err != nil {
		return nil, err
	}

	var (
		manifest = opts.Manifest
		err      error
	)

	switch {
	case manifest != nil:
		err = config.ValidateManifest(manifest)
	case opts.ManifestPath != "":
		manifest, err = config.LoadManifest(opts.ManifestPath)
	default:
		manifest, err = config.LoadManifestFromWorkspace(opts.Run.Workspace)
	}

	if err != nil {
		return nil, err
	}

	// Fail before staging when the target has no manifest entry at all.
	if _, err = manifest.TargetFiles(opts.Run.Target); err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Loaded project manifest",
		"core", manifest.CoreFolder(), "target", opts.Run.Target, "version", opts.Run.Version)

	return &pipeline{
		manifest:      manifest,
		run:           opts.Run,
		skipBitstream: opts.SkipBitstream,
		now:           time.Now,
	}, nil
}

// path resolves a manifest folder entry against the workspace root.
func (p *pipeline) path(folder string) string {
	if filepath.IsAbs(folder) {
		return folder
	}

	return filepath.Join(p.run.Workspace, folder)
}

// stage runs folder preparation, staging, cleanup and metadata update.
func (p *pipeline) stage(ctx context.Context) error {
	var (
		stageDir   = p.path(p.manifest.Release.Folders.Stage)
		releaseDir = p.path(p.manifest.Release.Folders.Release)
		packageDir = filepath.Join(p.path(p.manifest.Release.Folders.Package), p.run.Target)
	)

	logger.InfoKV(ctx, "Clearing stage and release folders",
		"stage_folder", stageDir, "release_folder", releaseDir)

	if err := stage.Prepare(stageDir, releaseDir); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Copying package files", "source", packageDir, "destination", stageDir)

	if err := stage.Merge(packageDir, stageDir); err != nil {
		return err
	}

	patterns := p.manifest.CleanupPatterns()

	logger.InfoKV(ctx, "Cleaning up unwanted files", "patterns", strings.Join(patterns, ", "))

	removed, err := stage.Cleanup(stageDir, patterns)
	if err != nil {
		return err
	}

	for _, path := range removed {
		logger.Infof(ctx, "Removed %s", path)
	}

	corePath := metadata.CorePath(stageDir, p.manifest.CoreFolder())

	logger.InfoKV(ctx, "Updating core metadata", "path", corePath, "version", p.run.Version)

	return metadata.UpdateCore(corePath, p.run.Version, p.now())
}

// pack runs bitstream reversal and archive creation,
// returning the produced filenames.
func (p *pipeline) pack(ctx context.Context) (*Result, error) {
	if p.skipBitstream {
		logger.Info(ctx, "Skipping bitstream reversal")
	} else if err := p.reverseBitstream(ctx); err != nil {
		return nil, err
	}

	return p.buildPackages(ctx)
}

// reverseBitstream mirrors the compiled RBF into the staged core folder.
func (p *pipeline) reverseBitstream(ctx context.Context) error {
	var (
		stageDir = p.path(p.manifest.Release.Folders.Stage)
		source   = filepath.Join(
			p.path(p.manifest.Release.Folders.Output),
			fmt.Sprintf("%s_%s.rbf", p.manifest.Name, p.run.Target),
		)
		destination = filepath.Join(stageDir, "Cores", p.manifest.CoreFolder(), "bitstream.rbf_r")
	)

	logger.InfoKV(ctx, "Reversing bitstream", "source", source)

	written, err := bitstream.ReverseFile(source, destination)
	if err != nil {
		return err
	}

	logger.Infof(ctx, "Reversed %d bytes and saved to %s", written, destination)

	return nil
}

// buildPackages renders the configured filenames and creates the archives.
func (p *pipeline) buildPackages(ctx context.Context) (*Result, error) {
	var (
		stageDir   = p.path(p.manifest.Release.Folders.Stage)
		metaDir    = p.path(p.manifest.Release.Folders.Meta)
		releaseDir = p.path(p.manifest.Release.Folders.Release)
	)

	p.warnIfStageEmpty(ctx, stageDir)

	files, err := p.manifest.TargetFiles(p.run.Target)
	if err != nil {
		return nil, err
	}

	vars := template.NewVariables(p.manifest, p.run, p.now())
	result := &Result{ReleaseDir: releaseDir}

	if files.ReleaseFile == "" {
		logger.Info(ctx, "No release file configured for target, skipping release package")
	} else {
		result.ReleaseArchive, err = p.buildReleasePackage(ctx, files.ReleaseFile, vars, stageDir, releaseDir)
		if err != nil {
			return nil, err
		}
	}

	if files.MetadataFile == "" {
		logger.Info(ctx, "No metadata file configured for target, skipping metadata package")
	} else {
		result.MetadataArchive, err = p.buildMetadataPackage(ctx, files.MetadataFile, vars, metaDir, releaseDir)
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

// buildReleasePackage creates the release zip from the staged tree.
func (p *pipeline) buildReleasePackage(
	ctx context.Context,
	tmpl string,
	vars template.Variables,
	stageDir, releaseDir string,
) (string, error) {
	name, err := renderFilename(tmpl, vars)
	if err != nil {
		return "", err
	}

	archiveName := name + ".zip"

	logger.InfoKV(ctx, "Creating release package", "archive", archiveName)

	if err = archive.BuildZip(stageDir, filepath.Join(releaseDir, archiveName)); err != nil {
		return "", err
	}

	return archiveName, nil
}

// buildMetadataPackage creates the metadata zip and tar.gz from the meta tree.
func (p *pipeline) buildMetadataPackage(
	ctx context.Context,
	tmpl string,
	vars template.Variables,
	metaDir, releaseDir string,
) (string, error) {
	name, err := renderFilename(tmpl, vars)
	if err != nil {
		return "", err
	}

	archiveName := name + ".zip"

	logger.InfoKV(ctx, "Creating metadata package", "archive", archiveName)

	if err = archive.BuildZip(metaDir, filepath.Join(releaseDir, archiveName)); err != nil {
		return "", err
	}

	if err = archive.BuildTarGz(metaDir, filepath.Join(releaseDir, name+".tar.gz")); err != nil {
		return "", err
	}

	return archiveName, nil
}

// warnIfStageEmpty flags a suspiciously empty stage folder before packaging.
// An empty folder still produces a valid archive, so this is not fatal.
func (p *pipeline) warnIfStageEmpty(ctx context.Context, stageDir string) {
	entries, err := os.ReadDir(stageDir)
	if err != nil || len(entries) == 0 {
		logger.WarnKV(ctx, "Stage folder is empty or unreadable, packages may be empty",
			"stage_folder", stageDir)
	}
}

// renderFilename renders a template and applies the pipeline-wide
// lower-case filename convention.
func renderFilename(tmpl string, vars template.Variables) (string, error) {
	name, err := template.Render(tmpl, vars)
	if err != nil {
		return "", err
	}

	return strings.ToLower(name), nil
}
