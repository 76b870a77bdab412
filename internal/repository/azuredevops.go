package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dupeforge/dupeforge/internal/config"
)

// AzureDevOpsProvider resolves clone URLs against Azure DevOps via the REST
// API v7.1.
type AzureDevOpsProvider struct {
	token  string
	org    string
	host   string
	client *http.Client
}

// NewAzureDevOps creates an AzureDevOpsProvider.
func NewAzureDevOps(cfg config.AzureConfig) (*AzureDevOpsProvider, error) {
	if cfg.Org == "" {
		return nil, fmt.Errorf("azure DevOps organisation name is required")
	}
	host := cfg.Host
	if host == "" {
		host = "dev.azure.com"
	}
	return &AzureDevOpsProvider{
		token:  cfg.Token,
		org:    cfg.Org,
		host:   host,
		client: &http.Client{},
	}, nil
}

func (a *AzureDevOpsProvider) Name() string { return "azure" }

func (a *AzureDevOpsProvider) baseURL() string {
	return fmt.Sprintf("https://%s/%s", a.host, a.org)
}

func (a *AzureDevOpsProvider) do(ctx context.Context, method, urlStr string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth("", a.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req) // #nosec G704 -- URL is built from admin-supplied config, not user input
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("azure DevOps API error %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}

// Resolve expects owner in "project" or "parent/project" form; Azure DevOps
// nests repositories under a project within the configured organisation.
func (a *AzureDevOpsProvider) Resolve(ctx context.Context, owner, name string) (string, string, error) {
	parts := strings.SplitN(owner, "/", 2)
	project := parts[len(parts)-1]
	urlStr := fmt.Sprintf("%s/%s/_apis/git/repositories/%s?api-version=7.1", a.baseURL(), project, name)
	data, err := a.do(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", "", fmt.Errorf("getting Azure DevOps repo: %w", err)
	}
	var r struct {
		RemoteURL string `json:"remoteUrl"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return "", "", err
	}
	return r.RemoteURL, a.token, nil
}
