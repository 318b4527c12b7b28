package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// FileRecord is one row of the rendered index.
type FileRecord struct {
	Repo      string
	RepoURL   string
	Name      string
	Path      string
	URL       string
	Size      int64
	UpdatedAt time.Time
	// Known is false when UpdatedAt was filled in by a FallbackPolicy.
	Known bool
}

// NewFileRecord builds a record for file in repo. Negative sizes are clamped to 0.
func NewFileRecord(repo Repository, file FileInfo, updatedAt time.Time, known bool) FileRecord {
	size := file.Size
	if size < 0 {
		size = 0
	}
	return FileRecord{
		Repo:      repo.Name,
		RepoURL:   repo.HTMLURL,
		Name:      file.Name,
		Path:      file.Path,
		URL:       file.HTMLURL,
		Size:      size,
		UpdatedAt: updatedAt.UTC(),
		Known:     known,
	}
}

// SortByRecency orders records newest first. Records with equal timestamps
// keep their relative order.
func SortByRecency(records []FileRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].UpdatedAt.After(records[j].UpdatedAt)
	})
}

// FallbackPolicy decides what happens to a file whose last commit could not be found.
type FallbackPolicy string

const (
	// FallbackNow stamps the file with the time of the lookup.
	FallbackNow FallbackPolicy = "now"
	// FallbackEpoch stamps the file with the Unix epoch so it sorts last.
	FallbackEpoch FallbackPolicy = "epoch"
	// FallbackSkip leaves the file out of the index.
	FallbackSkip FallbackPolicy = "skip"
)

// ParseFallback parses a policy name. The empty string selects FallbackNow.
func ParseFallback(s string) (FallbackPolicy, error) {
	switch p := FallbackPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return FallbackNow, nil
	case FallbackNow, FallbackEpoch, FallbackSkip:
		return p, nil
	default:
		return "", fmt.Errorf("unknown fallback policy %q (want now, epoch or skip)", s)
	}
}
