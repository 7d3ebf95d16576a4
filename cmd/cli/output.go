package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
)

// Color definitions
var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	dimColor     = color.New(color.FgHiBlack)
)

// stepTimer prints progress to stderr; stdout is reserved for the review itself.
type stepTimer struct {
	stepNum    int
	totalSteps int
	start      time.Time
	verbose    bool
}

func newStepTimer(totalSteps int, verbose bool) *stepTimer {
	return &stepTimer{totalSteps: totalSteps, verbose: verbose}
}

func (t *stepTimer) step(name string) {
	t.stepNum++
	t.start = time.Now()
	if t.verbose {
		titleColor.Fprintf(os.Stderr, "\nStep %d/%d: %s...\n", t.stepNum, t.totalSteps, name)
	} else {
		fmt.Fprintf(os.Stderr, "%s...\n", name)
	}
}

func (t *stepTimer) done(details ...string) {
	if !t.verbose {
		return
	}
	successColor.Fprintf(os.Stderr, "   done (%s)\n", time.Since(t.start).Round(time.Millisecond))
	for _, d := range details {
		dimColor.Fprintf(os.Stderr, "   - %s\n", d)
	}
}
