package repository

import (
	"testing"

	"github.com/dupeforge/dupeforge/internal/config"
)

func TestDetectProvider(t *testing.T) {
	cases := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://github.com/acme/widget.git", "github", false},
		{"git@github.com:acme/widget.git", "github", false},
		{"https://gitlab.com/acme/widget.git", "gitlab", false},
		{"https://gitlab.internal.acme.com/acme/widget.git", "gitlab", false},
		{"https://dev.azure.com/acme/widget/_git/widget", "azure", false},
		{"https://acme.visualstudio.com/widget/_git/widget", "azure", false},
		{"https://github.acme.internal/acme/widget.git", "github", false},
		{"https://example.com/acme/widget.git", "", true},
	}
	for _, c := range cases {
		got, err := DetectProvider(c.url)
		if c.wantErr {
			if err == nil {
				t.Errorf("DetectProvider(%q): expected an error", c.url)
			}
			continue
		}
		if err != nil {
			t.Errorf("DetectProvider(%q): unexpected error %v", c.url, err)
			continue
		}
		if got != c.want {
			t.Errorf("DetectProvider(%q) = %q, want %q", c.url, got, c.want)
		}
	}
}

func TestNewRejectsUnsupportedProvider(t *testing.T) {
	if _, err := New("bitbucket", &config.Config{}); err == nil {
		t.Fatal("expected an error for an unsupported provider")
	}
}

func TestNewRejectsMissingCredentials(t *testing.T) {
	cfg := &config.Config{}
	for _, provider := range []string{"github", "gitlab", "azure"} {
		if _, err := New(provider, cfg); err == nil {
			t.Errorf("New(%q, ...): expected an error when no token is configured", provider)
		}
	}
}

func TestNewBuildsGitHubResolver(t *testing.T) {
	cfg := &config.Config{Git: config.GitConfig{
		GitHub: []config.GitHubConfig{{Token: "ghp-test"}},
	}}
	r, err := New("github", cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r.Name() != "github" {
		t.Errorf("Name() = %q", r.Name())
	}
}
