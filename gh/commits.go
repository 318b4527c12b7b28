package gh

import (
	"context"
	"time"

	"repo-index/logging"

	"github.com/google/go-github/github"
	"go.uber.org/zap"
)

// LastCommitTime returns the committer date of the most recent commit touching
// path. ok is false when the repository has no commit for path or the request failed.
func (c *Client) LastCommitTime(ctx context.Context, user, repo, path string) (updated time.Time, ok bool, err error) {
	opt := &github.CommitsListOptions{
		Path:        path,
		ListOptions: github.ListOptions{Page: 1, PerPage: 1},
	}

	commits, resp, err := c.api.Repositories.ListCommits(ctx, user, repo, opt)
	if err != nil {
		err = checkResponse(resp, err)
		logging.L().Warn("error fetching commit",
			zap.String("repo", repo),
			zap.String("path", path),
			zap.Int("status", statusOf(resp)),
			zap.Error(err),
		)
		return time.Time{}, false, err
	}

	if len(commits) == 0 {
		return time.Time{}, false, nil
	}

	date := commits[0].GetCommit().GetCommitter().GetDate()
	if date.IsZero() {
		return time.Time{}, false, nil
	}

	return date.UTC(), true, nil
}
