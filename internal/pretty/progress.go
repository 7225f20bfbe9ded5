package pretty

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

const redrawInterval = 100 * time.Millisecond

// Clears the current terminal line. Progress is only ever drawn on a terminal,
// so this is written even when styling is off.
const EraseLine = "\x1b[2K"

// Shows how many files have been blamed on a single, redrawn line. Safe for
// use from multiple goroutines.
//
// A disabled Progress does nothing.
type Progress struct {
	w       io.Writer
	enabled bool

	mu       sync.Mutex
	total    int
	done     int
	lastDraw time.Time
}

// Whether f is a terminal we can redraw lines on.
func AllowDynamic(f *os.File) bool {
	if os.Getenv("TERM") == "dumb" {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}

func NewProgress(w io.Writer, enabled bool) *Progress {
	return &Progress{w: w, enabled: enabled}
}

func (p *Progress) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.done = 0
	if total > 0 {
		p.draw()
	}
}

func (p *Progress) Tick(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done += 1
	if p.done == p.total || time.Since(p.lastDraw) >= redrawInterval {
		p.draw()
	}
}

// Clears the progress line.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.enabled && p.total > 0 {
		fmt.Fprintf(p.w, "\r%s", EraseLine)
	}
}

func (p *Progress) draw() {
	if !p.enabled {
		return
	}

	percent := 0
	if p.total > 0 {
		percent = p.done * 100 / p.total
	}

	fmt.Fprintf(
		p.w,
		"\r%s%s",
		EraseLine,
		Dim(fmt.Sprintf("Blaming files... %d/%d (%d%%)", p.done, p.total, percent)),
	)
	p.lastDraw = time.Now()
}
