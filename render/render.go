// Package render turns an index snapshot into a single self-contained HTML page.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"path/filepath"
	"strings"
	"time"

	"repo-index/helpers"
	"repo-index/model"

	"github.com/cespare/xxhash/v2"
)

//go:embed templates/index.html.tmpl
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html.tmpl"))

// Page is everything the index template needs.
type Page struct {
	User        string
	ProfileURL  string
	RepoCount   int
	Files       []model.FileRecord
	GeneratedAt time.Time
	// Fallback is the policy that filled in unknown commit times. Under any
	// policy other than now those records show "Unknown".
	Fallback model.FallbackPolicy
}

type entry struct {
	ID        string
	Repo      string
	RepoURL   string
	Name      string
	Path      string
	URL       string
	Ext       string
	LowerName string
	LowerPath string
	Updated   int64
	Size      int64
	TimeAgo   string
	SizeLabel string
}

type view struct {
	User        string
	ProfileURL  string
	RepoCount   int
	FileCount   int
	GeneratedAt string
	Entries     []entry
}

// RelativeTime describes how long ago something happened, in the coarsest
// whole unit: seconds under a minute read "Just now", then minutes, hours, days.
func RelativeTime(d time.Duration) string {
	seconds := int64(d / time.Second)

	switch {
	case seconds < 60:
		return "Just now"
	case seconds < 3600:
		return plural(seconds/60, "minute")
	case seconds < 86400:
		return plural(seconds/3600, "hour")
	default:
		return plural(seconds/86400, "day")
	}
}

func plural(n int64, unit string) string {
	if n > 1 {
		return fmt.Sprintf("%d %ss ago", n, unit)
	}
	return fmt.Sprintf("%d %s ago", n, unit)
}

// FormatSize renders a byte count in kilobytes with one decimal.
func FormatSize(size int64) string {
	if size <= 0 {
		return "0 KB"
	}
	return fmt.Sprintf("%.1f KB", float64(size)/1024)
}

// Extension returns the lower-cased extension of name including the dot, or "".
// Leading dots mark a hidden file, not an extension, so ".gitignore" has none.
func Extension(name string) string {
	trimmed := strings.TrimLeft(name, ".")
	if !strings.Contains(trimmed, ".") {
		return ""
	}
	return strings.ToLower(filepath.Ext(trimmed))
}

// EntryID returns a stable element id for a file so links into the page
// survive regeneration.
func EntryID(repo, path string) string {
	return fmt.Sprintf("f-%016x", xxhash.Sum64String(repo+"/"+path))
}

// Render writes the index page for p to w. Records are emitted in the order given.
func Render(w io.Writer, p Page) error {
	v := view{
		User:        p.User,
		ProfileURL:  p.ProfileURL,
		RepoCount:   p.RepoCount,
		FileCount:   len(p.Files),
		GeneratedAt: p.GeneratedAt.UTC().Format("2006-01-02 15:04 UTC"),
		Entries:     make([]entry, 0, len(p.Files)),
	}

	for _, f := range p.Files {
		timeAgo := RelativeTime(p.GeneratedAt.Sub(f.UpdatedAt))
		if !f.Known && p.Fallback != "" && p.Fallback != model.FallbackNow {
			timeAgo = "Unknown"
		}

		v.Entries = append(v.Entries, entry{
			ID:        EntryID(f.Repo, f.Path),
			Repo:      f.Repo,
			RepoURL:   f.RepoURL,
			Name:      f.Name,
			Path:      f.Path,
			URL:       f.URL,
			Ext:       Extension(f.Name),
			LowerName: strings.ToLower(f.Name),
			LowerPath: strings.ToLower(f.Path),
			Updated:   f.UpdatedAt.Unix(),
			Size:      f.Size,
			TimeAgo:   timeAgo,
			SizeLabel: FormatSize(f.Size),
		})
	}

	return indexTemplate.Execute(w, v)
}

// WriteFile renders p and replaces the file at path with the result.
func WriteFile(path string, p Page) (int, error) {
	var buf bytes.Buffer
	if err := Render(&buf, p); err != nil {
		return 0, fmt.Errorf("rendering index: %w", err)
	}

	if err := helpers.SaveFile(path, buf.Bytes()); err != nil {
		return 0, err
	}

	return buf.Len(), nil
}
