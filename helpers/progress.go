package helpers

import (
	"fmt"
	"io"
	"time"

	"github.com/cheggaaa/pb/v3"
)

const DefaultBarStyle = "█"

// Progress counts commit lookups on a pb progress bar. The total grows as
// repositories are listed. A nil or disabled Progress ignores every call.
type Progress struct {
	bar *pb.ProgressBar
}

// NewProgress starts a bar on w. When enabled is false the returned Progress is a no-op.
func NewProgress(enabled bool, w io.Writer, style string) *Progress {
	if !enabled {
		return &Progress{}
	}
	if style == "" {
		style = DefaultBarStyle
	}

	tmpl := fmt.Sprintf(
		`{{string . "prefix"}}{{counters . }} {{bar . "|" %q %q " " "|"}} {{percent . }} {{etime . }}`,
		style, style,
	)
	bar := pb.ProgressBarTemplate(tmpl).New(0)
	bar.Set("prefix", "[-] Commits ")
	bar.SetWriter(w)
	bar.SetRefreshRate(200 * time.Millisecond)
	bar.Start()

	return &Progress{bar: bar}
}

// AddTotal raises the expected number of lookups by n.
func (p *Progress) AddTotal(n int) {
	if p == nil || p.bar == nil {
		return
	}
	p.bar.SetTotal(p.bar.Total() + int64(n))
}

// Increment marks one lookup as done.
func (p *Progress) Increment() {
	if p == nil || p.bar == nil {
		return
	}
	p.bar.Increment()
}

// Current returns the number of lookups done so far.
func (p *Progress) Current() int64 {
	if p == nil || p.bar == nil {
		return 0
	}
	return p.bar.Current()
}

// Finish stops the bar and prints its final state.
func (p *Progress) Finish() {
	if p == nil || p.bar == nil {
		return
	}
	p.bar.Finish()
}
