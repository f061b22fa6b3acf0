package output

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

const maxStatusURLLen = 70

// StatusBar keeps a one-line progress footer pinned to the bottom of a
// terminal. A nil *StatusBar is valid and draws nothing.
type StatusBar struct {
	w      io.Writer
	height int
}

// NewStatusBar returns a status bar drawing on f, or nil when disabled or
// when f is not a terminal.
func NewStatusBar(f *os.File, enabled bool) *StatusBar {
	if !enabled || f == nil || !term.IsTerminal(int(f.Fd())) {
		return nil
	}
	_, height, err := term.GetSize(int(f.Fd()))
	if err != nil || height <= 1 {
		return nil
	}

	bar := &StatusBar{w: f, height: height}
	// Reserve the bottom line by shrinking the scroll region
	fmt.Fprintf(bar.w, "\033[1;%dr", height-1)
	fmt.Fprintf(bar.w, "\033[1;1H")
	bar.draw("[0 done] Starting...")
	return bar
}

// Update redraws the footer with the latest counts and URL
func (b *StatusBar) Update(completed, failed int, url string) {
	if b == nil {
		return
	}
	if len(url) > maxStatusURLLen {
		url = url[:maxStatusURLLen-3] + "..."
	}
	b.draw(fmt.Sprintf("[%d done, %d failed] %s", completed, failed, url))
}

// Close restores the full scroll region and clears the footer
func (b *StatusBar) Close() {
	if b == nil {
		return
	}
	fmt.Fprintf(b.w, "\033[r")
	fmt.Fprintf(b.w, "\033[%d;1H\033[K", b.height)
	fmt.Fprintf(b.w, "\033[%d;1H", b.height-1)
}

// draw saves the cursor, writes status on the last line and restores the cursor
func (b *StatusBar) draw(status string) {
	fmt.Fprintf(b.w, "\033[s\033[%d;1H\033[K%s\033[u", b.height, status)
}
