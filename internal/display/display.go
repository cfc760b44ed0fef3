// Package display handles terminal output: plain and markdown-rendered
// content, error reporting, and the progress spinner shown while a query
// is in flight.
package display

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/glamour"
)

// renderer is the shared markdown renderer, nil until InitRenderer succeeds.
var renderer *glamour.TermRenderer

// InitRenderer sets up the markdown renderer. Call once when --render is on.
func InitRenderer() error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize markdown renderer: %w", err)
	}
	renderer = r
	return nil
}

// ShowContent prints content as-is with a trailing newline.
func ShowContent(content string) {
	fmt.Println(content)
}

// ShowContentRendered prints content through the markdown renderer, falling
// back to plain output when rendering is unavailable or fails.
func ShowContentRendered(content string) {
	if renderer == nil {
		ShowContent(content)
		return
	}
	out, err := renderer.Render(content)
	if err != nil {
		ShowContent(content)
		return
	}
	fmt.Print(out)
}

// ShowError prints an error message to stderr.
func ShowError(msg string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
}

// Spinner wraps the progress indicator shown during executor calls.
type Spinner struct {
	sp *spinner.Spinner
}

// NewSpinner creates a spinner with the given message.
func NewSpinner(message string) *Spinner {
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	sp.Suffix = " " + message
	return &Spinner{sp: sp}
}

// Start begins the spinner animation.
func (s *Spinner) Start() {
	s.sp.Start()
}

// Stop halts the spinner and clears its line.
func (s *Spinner) Stop() {
	s.sp.Stop()
}

// UpdateMessage changes the message next to the spinner.
func (s *Spinner) UpdateMessage(message string) {
	s.sp.Suffix = " " + message
}
