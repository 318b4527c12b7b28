// Package indexer walks every repository of an account and collects one
// FileRecord per file, newest first.
package indexer

import (
	"context"
	"time"

	"repo-index/logging"
	"repo-index/model"

	"go.uber.org/zap"
)

// Source is the remote API the indexer reads from. *gh.Client implements it.
type Source interface {
	ListRepos(ctx context.Context, user string) ([]model.Repository, error)
	ListFiles(ctx context.Context, user, repo, dir string) ([]model.FileInfo, error)
	LastCommitTime(ctx context.Context, user, repo, path string) (time.Time, bool, error)
}

// Progress receives one tick per commit lookup.
type Progress interface {
	AddTotal(n int)
	Increment()
}

// Result is the snapshot produced by a single Run.
type Result struct {
	User        string
	Repos       []model.Repository
	Files       []model.FileRecord
	GeneratedAt time.Time
	// Errors counts failed API calls; each one was logged and skipped.
	Errors int
}

type Indexer struct {
	Source   Source
	Fallback model.FallbackPolicy
	Progress Progress
	Now      func() time.Time
}

func New(source Source, fallback model.FallbackPolicy) *Indexer {
	return &Indexer{
		Source:   source,
		Fallback: fallback,
		Now:      time.Now,
	}
}

// Run fetches repositories, files and commit times one request at a time.
// It never fails: every API error is logged, counted in Result.Errors and
// treated as an empty answer.
func (ix *Indexer) Run(ctx context.Context, user string) Result {
	log := logging.L().With(zap.String("user", user))
	res := Result{User: user}

	log.Info("fetching repositories")
	repos, err := ix.Source.ListRepos(ctx, user)
	if err != nil {
		res.Errors++
		log.Warn("repository listing incomplete", zap.Int("found", len(repos)), zap.Error(err))
	}
	res.Repos = repos
	log.Info("found repositories", zap.Int("count", len(repos)))

	for _, repo := range repos {
		log.Info("scanning repository",
			zap.String("repo", repo.Name),
			zap.String("full_name", repo.FullName),
			zap.Bool("fork", repo.Fork),
			zap.Bool("private", repo.Private),
			zap.Time("updated_at", repo.UpdatedAt),
		)

		files, err := ix.Source.ListFiles(ctx, user, repo.Name, "")
		if err != nil {
			res.Errors += countErrors(err)
		}
		ix.progress().AddTotal(len(files))

		for _, file := range files {
			updated, ok, err := ix.Source.LastCommitTime(ctx, user, repo.Name, file.Path)
			if err != nil {
				res.Errors++
			}
			ix.progress().Increment()

			if rec, keep := ix.record(repo, file, updated, ok); keep {
				res.Files = append(res.Files, rec)
			}
		}
	}

	model.SortByRecency(res.Files)
	res.GeneratedAt = ix.now().UTC()

	log.Info("total files found", zap.Int("files", len(res.Files)), zap.Int("errors", res.Errors))
	return res
}

// record applies the fallback policy to a file without a known commit time.
func (ix *Indexer) record(repo model.Repository, file model.FileInfo, updated time.Time, ok bool) (model.FileRecord, bool) {
	if ok {
		return model.NewFileRecord(repo, file, updated, true), true
	}

	switch ix.Fallback {
	case model.FallbackSkip:
		logging.L().Debug("skipping file without commit", zap.String("repo", repo.Name), zap.String("path", file.Path))
		return model.FileRecord{}, false
	case model.FallbackEpoch:
		return model.NewFileRecord(repo, file, time.Unix(0, 0), false), true
	default:
		return model.NewFileRecord(repo, file, ix.now(), false), true
	}
}

func (ix *Indexer) now() time.Time {
	if ix.Now == nil {
		return time.Now()
	}
	return ix.Now()
}

func (ix *Indexer) progress() Progress {
	if ix.Progress == nil {
		return noProgress{}
	}
	return ix.Progress
}

type noProgress struct{}

func (noProgress) AddTotal(int) {}
func (noProgress) Increment()   {}

// countErrors counts the failures inside an errors.Join result.
func countErrors(err error) int {
	if err == nil {
		return 0
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return len(joined.Unwrap())
	}
	return 1
}
