package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/dupeforge/dupeforge/internal/config"
)

// Resolver looks up the clone URL and auth token for a single repository on
// a hosted Git platform, so it can be registered into the Repository
// Configuration Registry by owner/name instead of by local path.
type Resolver interface {
	// Name identifies the provider (e.g. "github", "gitlab", "azure").
	Name() string

	// Resolve returns the HTTPS clone URL and bearer credential for
	// owner/name.
	Resolve(ctx context.Context, owner, name string) (cloneURL, token string, err error)
}

// DetectProvider infers the hosting platform from a repository URL.
func DetectProvider(repoURL string) (string, error) {
	lower := strings.ToLower(repoURL)
	switch {
	case strings.Contains(lower, "github.com"):
		return "github", nil
	case strings.Contains(lower, "gitlab.com") || strings.Contains(lower, "gitlab."):
		return "gitlab", nil
	case strings.Contains(lower, "dev.azure.com") || strings.Contains(lower, "visualstudio.com"):
		return "azure", nil
	default:
		if strings.Contains(lower, "github.") {
			return "github", nil
		}
		return "", fmt.Errorf("cannot detect provider from URL %q; pass --provider explicitly", repoURL)
	}
}

// New returns the Resolver configured for the given platform.
func New(provider string, cfg *config.Config) (Resolver, error) {
	switch provider {
	case "github":
		if len(cfg.Git.GitHub) == 0 || cfg.Git.GitHub[0].Token == "" {
			return nil, fmt.Errorf("no GitHub token configured under git.github")
		}
		return NewGitHub(cfg.Git.GitHub[0])
	case "gitlab":
		if len(cfg.Git.GitLab) == 0 || cfg.Git.GitLab[0].Token == "" {
			return nil, fmt.Errorf("no GitLab token configured under git.gitlab")
		}
		return NewGitLab(cfg.Git.GitLab[0])
	case "azure":
		if len(cfg.Git.Azure) == 0 || cfg.Git.Azure[0].Token == "" {
			return nil, fmt.Errorf("no Azure DevOps token configured under git.azure")
		}
		return NewAzureDevOps(cfg.Git.Azure[0])
	default:
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
}
