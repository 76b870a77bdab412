package repository

import (
	"context"
	"fmt"

	"github.com/dupeforge/dupeforge/internal/config"
	gogithub "github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

// GitHubProvider resolves clone URLs against GitHub or GitHub Enterprise.
type GitHubProvider struct {
	client *gogithub.Client
	token  string
	host   string
}

// NewGitHub creates a GitHubProvider from the given configuration.
func NewGitHub(cfg config.GitHubConfig) (*GitHubProvider, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	tc := oauth2.NewClient(context.Background(), ts)
	client := gogithub.NewClient(tc)

	if cfg.Host != "" && cfg.Host != "github.com" {
		base := fmt.Sprintf("https://%s/api/v3/", cfg.Host)
		upload := fmt.Sprintf("https://%s/api/uploads/", cfg.Host)
		var err error
		client, err = client.WithEnterpriseURLs(base, upload)
		if err != nil {
			return nil, fmt.Errorf("configuring GitHub enterprise URLs: %w", err)
		}
	}

	return &GitHubProvider{client: client, token: cfg.Token, host: cfg.Host}, nil
}

func (g *GitHubProvider) Name() string { return "github" }

func (g *GitHubProvider) Resolve(ctx context.Context, owner, name string) (string, string, error) {
	r, _, err := g.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return "", "", fmt.Errorf("getting GitHub repo %s/%s: %w", owner, name, err)
	}
	cloneURL := r.GetCloneURL()
	if cloneURL == "" {
		cloneURL = r.GetSSHURL()
	}
	return cloneURL, g.token, nil
}
