package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// RunContext carries the environment-provided inputs for one pipeline run.
// Resolving it once up front keeps ambient process state out of the core
// and makes every service testable without env mutation.
type RunContext struct {
	// Target selects the hardware platform variant being packaged.
	Target string
	// Workspace is the repository checkout root.
	Workspace string
	// Version is the release tag (last element of the git ref).
	Version string
	// Repository is the "owner/repo" identifier on the hosting service.
	Repository string
	// APIBaseURL is the hosting service API root, e.g. https://api.github.com.
	APIBaseURL string
	// Token authenticates release API calls.
	Token string
	// Webhooks maps a lower-cased server name to its announcement webhook URL.
	Webhooks map[string]string
}

// webhookEnvPrefix marks environment variables carrying announcement webhooks.
const webhookEnvPrefix = "WEBHOOK_"

var (
	// errTargetRequired is returned when no target platform is selected.
	errTargetRequired = errors.New("target platform must be provided")
	// errWorkspaceRequired is returned when the workspace root is missing.
	errWorkspaceRequired = errors.New("workspace root must be provided")
	// errVersionRequired is returned when no release tag is available.
	errVersionRequired = errors.New("release version must be provided")
	// errRepositoryRequired is returned when the repository identifier is missing.
	errRepositoryRequired = errors.New("repository must be provided")
	// errAPIBaseURLRequired is returned when the API base URL is missing.
	errAPIBaseURLRequired = errors.New("API base URL must be provided")
	// errTokenRequired is returned when the access token is missing.
	errTokenRequired = errors.New("access token must be provided")
)

// ResolveRunContext reads the workflow environment into an explicit RunContext.
// Missing values stay empty; validation happens per consumer.
func ResolveRunContext() *RunContext {
	v := viper.New()
	v.AutomaticEnv()

	for _, key := range []string{
		"TARGET",
		"GITHUB_WORKSPACE",
		"GITHUB_REF",
		"GITHUB_REF_NAME",
		"GITHUB_REPOSITORY",
		"GITHUB_API_URL",
		"GH_TOKEN",
	} {
		//nolint:errcheck // BindEnv only fails on an empty key.
		v.BindEnv(key)
	}

	run := &RunContext{
		Target:     v.GetString("TARGET"),
		Workspace:  v.GetString("GITHUB_WORKSPACE"),
		Version:    v.GetString("GITHUB_REF_NAME"),
		Repository: v.GetString("GITHUB_REPOSITORY"),
		APIBaseURL: v.GetString("GITHUB_API_URL"),
		Token:      v.GetString("GH_TOKEN"),
		Webhooks:   webhooksFromEnviron(os.Environ()),
	}

	// Older workflows export only GITHUB_REF (refs/tags/<tag>).
	if run.Version == "" {
		run.Version = tagFromRef(v.GetString("GITHUB_REF"))
	}

	return run
}

// ValidateStaging checks the fields consumed by staging and packaging.
func (r *RunContext) ValidateStaging() error {
	if r.Target == "" {
		return errTargetRequired
	}

	if r.Workspace == "" {
		return errWorkspaceRequired
	}

	if r.Version == "" {
		return errVersionRequired
	}

	return nil
}

// ValidatePublishing checks the additional fields the release publisher needs.
func (r *RunContext) ValidatePublishing() error {
	if err := r.ValidateStaging(); err != nil {
		return err
	}

	if r.Repository == "" {
		return errRepositoryRequired
	}

	if r.APIBaseURL == "" {
		return errAPIBaseURLRequired
	}

	if r.Token == "" {
		return errTokenRequired
	}

	return nil
}

// tagFromRef extracts the tag name from a fully qualified git ref.
func tagFromRef(ref string) string {
	if ref == "" {
		return ""
	}

	parts := strings.Split(ref, "/")

	return parts[len(parts)-1]
}

// webhooksFromEnviron collects WEBHOOK_* variables into a name-to-URL map.
func webhooksFromEnviron(environ []string) map[string]string {
	webhooks := make(map[string]string)

	for _, entry := range environ {
		key, value, found := strings.Cut(entry, "=")
		if !found || value == "" {
			continue
		}

		if !strings.HasPrefix(key, webhookEnvPrefix) {
			continue
		}

		name := strings.ToLower(strings.TrimPrefix(key, webhookEnvPrefix))
		if name == "" {
			continue
		}

		webhooks[name] = value
	}

	return webhooks
}

// String renders a redacted summary for logs.
func (r *RunContext) String() string {
	token := ""
	if r.Token != "" {
		token = "[redacted]"
	}

	return fmt.Sprintf("target=%s workspace=%s version=%s repository=%s api=%s token=%s webhooks=%d",
		r.Target, r.Workspace, r.Version, r.Repository, r.APIBaseURL, token, len(r.Webhooks))
}
