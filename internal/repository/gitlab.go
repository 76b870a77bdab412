package repository

import (
	"context"
	"fmt"

	"github.com/dupeforge/dupeforge/internal/config"
	gitlab "gitlab.com/gitlab-org/api/client-go"
)

// GitLabProvider resolves clone URLs against GitLab (cloud or self-hosted).
type GitLabProvider struct {
	client *gitlab.Client
	token  string
	host   string
}

// NewGitLab creates a GitLabProvider from the given configuration.
func NewGitLab(cfg config.GitLabConfig) (*GitLabProvider, error) {
	opts := []gitlab.ClientOptionFunc{}
	if cfg.Host != "" && cfg.Host != "gitlab.com" {
		base := fmt.Sprintf("https://%s/api/v4/", cfg.Host)
		opts = append(opts, gitlab.WithBaseURL(base))
	}

	client, err := gitlab.NewClient(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating GitLab client: %w", err)
	}

	return &GitLabProvider{client: client, token: cfg.Token, host: cfg.Host}, nil
}

func (g *GitLabProvider) Name() string { return "gitlab" }

func (g *GitLabProvider) Resolve(ctx context.Context, owner, name string) (string, string, error) {
	nameWithNS := owner + "/" + name
	proj, _, err := g.client.Projects.GetProject(nameWithNS, nil)
	if err != nil {
		return "", "", fmt.Errorf("getting GitLab project %s: %w", nameWithNS, err)
	}
	return proj.HTTPURLToRepo, g.token, nil
}
