package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest holds the project description loaded from gateware.json.
// It is read once per run and treated as immutable by the pipeline.
type Manifest struct {
	// Author is the core author's account name, used in folder and file names.
	Author string `json:"author" yaml:"author"`
	// Name is the core's short name, used in folder and file names.
	Name string `json:"name" yaml:"name"`
	// DisplayName is the human-readable core title used in announcements.
	DisplayName string `json:"displayName" yaml:"displayName"`
	// Description is a short blurb about the core used in announcements.
	Description string `json:"description" yaml:"description"`
	// Hardware describes the emulated hardware.
	Hardware Hardware `json:"hardware" yaml:"hardware"`
	// Release describes folder layout, cleanup rules and per-target filenames.
	Release Release `json:"release" yaml:"release"`
}

// Hardware describes the hardware the core implements.
type Hardware struct {
	// Category is the hardware category (Computer, Console, Arcade, ...).
	Category string `json:"category" yaml:"category"`
}

// Release groups release-related settings of the manifest.
type Release struct {
	// Image is the repository-relative path to the announcement image.
	Image string `json:"image" yaml:"image"`
	// Folders names the directories the pipeline works with.
	Folders Folders `json:"folders" yaml:"folders"`
	// Cleanup optionally overrides the default unwanted-file glob patterns.
	Cleanup []string `json:"cleanup,omitempty" yaml:"cleanup,omitempty"`
	// Target maps a platform identifier to its output filename templates.
	Target map[string]TargetFiles `json:"target" yaml:"target"`
}

// Folders names the directories used while staging and packaging.
type Folders struct {
	// Stage is rebuilt from scratch on every run.
	Stage string `json:"stage_folder" yaml:"stage_folder"`
	// Release receives the produced archives.
	Release string `json:"release_folder" yaml:"release_folder"`
	// Package holds per-target packaging sources.
	Package string `json:"pkg_folder" yaml:"pkg_folder"`
	// Meta holds platform metadata to be archived separately.
	Meta string `json:"meta_folder" yaml:"meta_folder"`
	// Output is where the toolchain leaves the compiled bitstream.
	Output string `json:"output_folder" yaml:"output_folder"`
}

// TargetFiles holds the filename templates configured for one target.
// An empty template means that package is skipped for the target.
type TargetFiles struct {
	// ReleaseFile is the template for the release archive name.
	ReleaseFile string `json:"release_file,omitempty" yaml:"release_file,omitempty"`
	// MetadataFile is the template for the metadata archive name.
	MetadataFile string `json:"metadata_file,omitempty" yaml:"metadata_file,omitempty"`
}

const (
	// DefaultManifestFilename is the manifest filename looked up in the workspace.
	DefaultManifestFilename = "gateware.json"

	// DefaultDirMode is used when creating pipeline folders.
	DefaultDirMode os.FileMode = 0o755

	// DefaultFileMode is used when writing produced artifacts.
	DefaultFileMode os.FileMode = 0o644
)

// defaultCleanupPatterns are file globs that must never ship in a package.
//
//nolint:gochecknoglobals // Immutable fallback shared by every run.
var defaultCleanupPatterns = []string{"*.png", "*.rom", "*.gitkeep"}

var (
	// errManifestNotSet is returned when a nil manifest is provided.
	errManifestNotSet = errors.New("manifest is not set")
	// errAuthorRequired is returned when the author field is missing.
	errAuthorRequired = errors.New("author must be provided")
	// errNameRequired is returned when the core name is missing.
	errNameRequired = errors.New("name must be provided")
	// errFolderRequired is returned when a release folder entry is missing.
	errFolderRequired = errors.New("release folder path must be provided")
	// errNoTargets is returned when the manifest configures no targets.
	errNoTargets = errors.New("at least one release target must be configured")
	// errUnknownTarget is returned when a target has no manifest entry.
	errUnknownTarget = errors.New("target is not configured in the manifest")
	// errBadCleanupPattern is returned for malformed cleanup globs.
	errBadCleanupPattern = errors.New("invalid cleanup pattern")
)

// LoadManifest reads a manifest from the provided path and validates it.
// Files ending in .yaml or .yml are decoded as YAML, everything else as JSON.
func LoadManifest(path string) (*Manifest, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err = yaml.Unmarshal(contents, &m); err != nil {
			return nil, fmt.Errorf("unmarshal manifest: %w", err)
		}
	default:
		if err = json.Unmarshal(contents, &m); err != nil {
			return nil, fmt.Errorf("unmarshal manifest: %w", err)
		}
	}

	if err = ValidateManifest(&m); err != nil {
		return nil, err
	}

	return &m, nil
}

// LoadManifestFromWorkspace looks for gateware.json (or a YAML sibling)
// in the workspace root and loads it.
func LoadManifestFromWorkspace(workspace string) (*Manifest, error) {
	candidates := []string{
		filepath.Join(workspace, DefaultManifestFilename),
		filepath.Join(workspace, "gateware.yaml"),
		filepath.Join(workspace, "gateware.yml"),
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return LoadManifest(candidate)
		}
	}

	return nil, fmt.Errorf("manifest not found in %s: %w", workspace, os.ErrNotExist)
}

// ValidateManifest checks the manifest for required fields and formatting.
// It surfaces configuration problems before the pipeline mutates anything.
func ValidateManifest(m *Manifest) error {
	if m == nil {
		return errManifestNotSet
	}

	if m.Author == "" {
		return errAuthorRequired
	}

	if m.Name == "" {
		return errNameRequired
	}

	folders := map[string]string{
		"stage_folder":   m.Release.Folders.Stage,
		"release_folder": m.Release.Folders.Release,
		"pkg_folder":     m.Release.Folders.Package,
		"meta_folder":    m.Release.Folders.Meta,
		"output_folder":  m.Release.Folders.Output,
	}
	for key, value := range folders {
		if value == "" {
			return fmt.Errorf("%s: %w", key, errFolderRequired)
		}
	}

	if len(m.Release.Target) == 0 {
		return errNoTargets
	}

	for _, pattern := range m.Release.Cleanup {
		if _, err := filepath.Match(pattern, "probe"); err != nil {
			return fmt.Errorf("%q: %w", pattern, errBadCleanupPattern)
		}
	}

	return nil
}

// CoreFolder returns the "<author>.<name>" directory name used inside
// the staged Cores tree.
func (m *Manifest) CoreFolder() string {
	return m.Author + "." + m.Name
}

// TargetFiles returns the filename templates configured for the target.
func (m *Manifest) TargetFiles(target string) (TargetFiles, error) {
	files, ok := m.Release.Target[target]
	if !ok {
		return TargetFiles{}, fmt.Errorf("%s: %w", target, errUnknownTarget)
	}

	return files, nil
}

// CleanupPatterns returns the configured cleanup globs,
// falling back to the built-in defaults.
func (m *Manifest) CleanupPatterns() []string {
	if len(m.Release.Cleanup) > 0 {
		return m.Release.Cleanup
	}

	return defaultCleanupPatterns
}
