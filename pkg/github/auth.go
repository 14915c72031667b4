package github

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"

	"orgdrift/pkg/config"
)

// TokenInfo describes the authenticated token: who it belongs to and
// which OAuth scopes it carries.
type TokenInfo struct {
	User   string
	Scopes []string
}

// AuthManager resolves a GitHub token, builds an authenticated client
// from it, and checks that the token can actually read organization
// state.
type AuthManager struct {
	client *github.Client
	token  string
}

func NewAuthManager() *AuthManager {
	return &AuthManager{}
}

// GetToken resolves the token to use: the GITHUB_TOKEN environment
// variable wins over the config file.
func (m *AuthManager) GetToken(cfg *config.Config) (string, error) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return strings.TrimSpace(token), nil
	}
	if cfg != nil && cfg.GitHub.Token != "" {
		return strings.TrimSpace(cfg.GitHub.Token), nil
	}
	return "", fmt.Errorf("no GitHub token found: set GITHUB_TOKEN environment variable or configure token in ~/.orgdrift/config.yaml")
}

// Authenticate builds the API client around the token.
func (m *AuthManager) Authenticate(token string) error {
	if token == "" {
		return fmt.Errorf("GitHub token cannot be empty")
	}

	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	m.client = github.NewClient(oauth2.NewClient(context.Background(), source))
	m.token = token

	return nil
}

// ValidateToken confirms the token works and carries the scopes the
// fetch needs. The /user call both proves the token and returns its
// scopes in a response header, so one round trip covers both. On a
// scope failure the TokenInfo is still returned alongside the error.
func (m *AuthManager) ValidateToken(ctx context.Context) (*TokenInfo, error) {
	if m.client == nil {
		return nil, fmt.Errorf("not authenticated: call Authenticate() first")
	}

	user, resp, err := m.client.Users.Get(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to validate GitHub token: %w", err)
	}

	info := &TokenInfo{
		User:   user.GetLogin(),
		Scopes: parseScopeHeader(resp.Header.Get("X-OAuth-Scopes")),
	}

	if err := m.validatePermissions(info.Scopes); err != nil {
		return info, err
	}
	return info, nil
}

func parseScopeHeader(header string) []string {
	if header == "" {
		return []string{}
	}
	return strings.Split(strings.ReplaceAll(header, " ", ""), ",")
}

// validatePermissions requires the repo scope plus any scope from the
// org hierarchy, since write:org and admin:org both imply read access.
func (m *AuthManager) validatePermissions(scopes []string) error {
	held := make(map[string]bool, len(scopes))
	for _, scope := range scopes {
		held[scope] = true
	}

	var missing []string
	if !held["repo"] {
		missing = append(missing, "repo")
	}
	if !held["read:org"] && !held["write:org"] && !held["admin:org"] {
		missing = append(missing, "read:org")
	}

	if len(missing) > 0 {
		return fmt.Errorf("GitHub token missing required permissions: %s. Please ensure your token has the following scopes: repo, read:org",
			strings.Join(missing, ", "))
	}
	return nil
}

// GetClient returns the authenticated API client.
func (m *AuthManager) GetClient() *github.Client {
	return m.client
}

// AuthenticateFromConfig runs the whole flow: resolve the token, build
// the client, point it at the right host, and validate.
func (m *AuthManager) AuthenticateFromConfig(ctx context.Context, cfg *config.Config) (*TokenInfo, error) {
	token, err := m.GetToken(cfg)
	if err != nil {
		return nil, err
	}
	if err := m.Authenticate(token); err != nil {
		return nil, err
	}

	// Validation must hit the same host the fetch will, or a GitHub
	// Enterprise setup would validate against github.com
	if cfg != nil && cfg.GitHub.APIBaseURL != "" {
		client, err := m.client.WithEnterpriseURLs(cfg.GitHub.APIBaseURL, cfg.GitHub.APIBaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid API base URL '%s': %w", cfg.GitHub.APIBaseURL, err)
		}
		m.client = client
	}

	return m.ValidateToken(ctx)
}

// GetAuthInstructions explains how to provide a token, for display when
// authentication fails.
func GetAuthInstructions() string {
	return `A GitHub token is required. Provide one through either:

1. The GITHUB_TOKEN environment variable (recommended for CI):
   export GITHUB_TOKEN="your_personal_access_token"

2. The configuration file ~/.orgdrift/config.yaml:

   github:
     token: "your_personal_access_token"

To create a token, open GitHub Settings > Developer settings >
Personal access tokens, generate a classic token, and select:
   - repo      read access to private repositories and collaborators
   - read:org  read access to organization membership and teams

orgdrift only reads organization state and never modifies anything;
these classic scopes are the narrowest that cover private repositories
and team membership.`
}
