package gh

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"repo-index/logging"
	"repo-index/model"

	"github.com/google/go-github/github"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.github.com/"
	DefaultPerPage = 100
)

// Error constants
var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrNotFound          = errors.New("not found")
	ErrFetchError        = errors.New("could not obtain repository data from the GitHub API")
)

// Client issues unauthenticated, sequential requests against the GitHub REST API.
type Client struct {
	api     *github.Client
	PerPage int
}

// NewClient returns a Client that sends requests through httpClient to baseURL.
// A nil httpClient uses http.DefaultClient; an empty baseURL uses DefaultBaseURL.
func NewClient(httpClient *http.Client, baseURL string) (*Client, error) {
	api := github.NewClient(httpClient)

	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid API URL %q: %w", baseURL, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid API URL %q: missing scheme or host", baseURL)
		}
		api.BaseURL = u
	}

	return &Client{api: api, PerPage: DefaultPerPage}, nil
}

func (c *Client) perPage() int {
	if c.PerPage <= 0 || c.PerPage > 100 {
		return DefaultPerPage
	}
	return c.PerPage
}

// ListRepos fetches every repository owned by user, most recently updated first.
// Pages are requested until one comes back empty. If a page fails, the
// repositories collected so far are returned together with the error.
func (c *Client) ListRepos(ctx context.Context, user string) ([]model.Repository, error) {
	repos := []model.Repository{}
	opt := &github.RepositoryListOptions{
		Sort:        "updated",
		ListOptions: github.ListOptions{Page: 1, PerPage: c.perPage()},
	}

	for {
		page, resp, err := c.api.Repositories.List(ctx, user, opt)
		if err != nil {
			err = checkResponse(resp, err)
			logging.L().Error("error fetching repositories",
				zap.String("user", user),
				zap.Int("page", opt.Page),
				zap.Int("status", statusOf(resp)),
				zap.Error(err),
			)
			return repos, fmt.Errorf("listing repositories for %s: %w", user, err)
		}

		if len(page) == 0 {
			break
		}

		for _, r := range page {
			repos = append(repos, toRepository(r))
		}
		opt.Page++
	}

	return repos, nil
}

func toRepository(r *github.Repository) model.Repository {
	return model.Repository{
		Name:        r.GetName(),
		FullName:    r.GetFullName(),
		HTMLURL:     r.GetHTMLURL(),
		UpdatedAt:   r.GetUpdatedAt().Time.UTC(),
		Private:     r.GetPrivate(),
		Fork:        r.GetFork(),
	}
}

// checkResponse maps a failed go-github call onto the package's error constants.
func checkResponse(resp *github.Response, err error) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%w: resets at %s", ErrRateLimitExceeded, rateErr.Rate.Reset.Time.UTC().Format("15:04:05"))
	}

	if resp == nil || resp.Response == nil {
		return fmt.Errorf("%w: %v", ErrFetchError, err)
	}

	switch code := resp.StatusCode; {
	case code >= 200 && code < 300:
		return fmt.Errorf("decoding response: %w", err)
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		return ErrRateLimitExceeded
	default:
		return fmt.Errorf("%w: HTTP %d", ErrFetchError, code)
	}
}

func statusOf(resp *github.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}
