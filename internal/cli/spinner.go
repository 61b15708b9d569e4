package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinner shows which tune of a book is being laid out. It redraws one
// status line on w until stopped or until its context ends.
type spinner struct {
	w      io.Writer
	label  string
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	status   string
	width    int // widest line drawn, for clearing
	running  bool
	stopOnce sync.Once
	stopped  chan struct{}
}

func newSpinner(parent context.Context, w io.Writer, label string) *spinner {
	ctx, cancel := context.WithCancel(parent)
	return &spinner{
		w:       w,
		label:   label,
		parent:  parent,
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
}

// Step records that done of total tunes are finished, the last one
// being title. It matches pipeline.Options.Progress.
func (s *spinner) Step(done, total int, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = fmt.Sprintf("%d/%d", done, total)
	if title != "" {
		s.status += " " + title
	}
}

// Start begins redrawing in the background.
func (s *spinner) Start() {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			s.draw(spinnerFrames[i%len(spinnerFrames)])
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func (s *spinner) draw(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line := s.label
	if s.status != "" {
		line += "  " + s.status
	}
	s.width = max(s.width, len(line)+2)
	fmt.Fprintf(s.w, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(line))
}

// Stop ends the animation and clears the status line. Calling it more
// than once is fine.
func (s *spinner) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.mu.Lock()
		running := s.running
		s.mu.Unlock()
		if running {
			<-s.stopped
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width))
	})
}

// Cancelled reports whether the parent context ended, as on Ctrl-C.
func (s *spinner) Cancelled() bool {
	return s.parent.Err() != nil
}
