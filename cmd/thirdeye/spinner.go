package main

import (
	"io"
	"time"

	"github.com/briandowns/spinner"
)

// spinnerIndicator renders the busy indicator as a terminal spinner. The spinner library
// stays silent when w is not a terminal.
type spinnerIndicator struct {
	s *spinner.Spinner
}

func newSpinnerIndicator(w io.Writer) *spinnerIndicator {
	return &spinnerIndicator{
		s: spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w)),
	}
}

func (i *spinnerIndicator) Show(label string) {
	i.s.Suffix = " " + label
	i.s.Start()
}

func (i *spinnerIndicator) Hide() {
	i.s.Stop()
}
