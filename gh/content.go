package gh

import (
	"context"
	"errors"
	"fmt"

	"repo-index/logging"
	"repo-index/model"

	"go.uber.org/zap"
)

// ListFiles retrieves every file below dir in a repository using the Contents API.
// Directories are walked depth-first. A directory that cannot be listed is
// logged and skipped; its siblings are still walked. The returned error joins
// every such failure and is nil when the whole tree was listed.
func (c *Client) ListFiles(ctx context.Context, user, repo, dir string) ([]model.FileInfo, error) {
	files := []model.FileInfo{}
	var errs []error
	c.walk(ctx, user, repo, dir, &files, &errs)
	return files, errors.Join(errs...)
}

func (c *Client) walk(ctx context.Context, user, repo, dir string, files *[]model.FileInfo, errs *[]error) {
	_, items, resp, err := c.api.Repositories.GetContents(ctx, user, repo, dir, nil)
	if err != nil {
		err = checkResponse(resp, err)
		logging.L().Warn("error fetching files",
			zap.String("repo", repo),
			zap.String("path", dir),
			zap.Int("status", statusOf(resp)),
			zap.Error(err),
		)
		*errs = append(*errs, fmt.Errorf("%s/%s: %w", repo, dir, err))
		return
	}

	for _, item := range items {
		switch item.GetType() {
		case "file":
			*files = append(*files, model.FileInfo{
				Name:    item.GetName(),
				Path:    item.GetPath(),
				HTMLURL: item.GetHTMLURL(),
				Size:    int64(item.GetSize()),
			})
		case "dir":
			c.walk(ctx, user, repo, item.GetPath(), files, errs)
		default:
			logging.L().Debug("ignoring item",
				zap.String("repo", repo),
				zap.String("path", item.GetPath()),
				zap.String("type", item.GetType()),
			)
		}
	}
}
