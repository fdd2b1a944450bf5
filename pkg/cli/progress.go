package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	progressWidth    = 24
	progressInterval = 100 * time.Millisecond
)

// Progress draws a single-line counter for bulk operations such as record
// imports. Redraws are throttled so tight loops do not flood a terminal;
// the first and last states are always drawn.
type Progress struct {
	w     io.Writer
	label string
	unit  string
	now   func() time.Time

	mu       sync.Mutex
	total    int64
	done     int64
	started  time.Time
	lastDraw time.Time
	closed   bool
}

// NewProgress returns a Progress writing to w (os.Stderr when nil). Label
// prefixes the line and unit names the counted things.
func NewProgress(w io.Writer, label, unit string) *Progress {
	if w == nil {
		w = os.Stderr
	}
	if unit == "" {
		unit = "items"
	}
	return &Progress{w: w, label: label, unit: unit, now: time.Now}
}

// Start resets the counter for total items and draws the empty bar.
func (p *Progress) Start(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = max(total, 0)
	p.done = 0
	p.closed = false
	p.started = p.now()
	p.draw(true)
}

// Add records n more completed items. The count never exceeds the total.
func (p *Progress) Add(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || n <= 0 {
		return
	}
	p.done = min(p.done+n, p.total)
	p.draw(p.done == p.total)
}

// Done draws the final state and ends the line.
func (p *Progress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	if p.total == 0 {
		return
	}
	p.draw(true)
	fmt.Fprintln(p.w)
}

// Fail ends the line with err. Later updates are ignored.
func (p *Progress) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	fmt.Fprintf(p.w, "\n✗ %s stopped at %d/%d %s: %v\n", p.label, p.done, p.total, p.unit, err)
}

func (p *Progress) draw(force bool) {
	if p.total == 0 {
		return
	}
	now := p.now()
	if !force && now.Sub(p.lastDraw) < progressInterval {
		return
	}
	p.lastDraw = now

	filled := int(p.done * progressWidth / p.total)
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", progressWidth-filled)

	var rate float64
	if secs := now.Sub(p.started).Seconds(); secs > 0 {
		rate = float64(p.done) / secs
	}
	fmt.Fprintf(p.w, "\r%s [%s] %3d%% %d/%d %s (%.0f/s)",
		p.label, bar, p.done*100/p.total, p.done, p.total, p.unit, rate)
}
