package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/sevigo/schema-warden/internal/core"
	"github.com/sevigo/schema-warden/internal/wire"
)

var renderOutput bool

var reviewCmd = &cobra.Command{
	Use:   "review [pr-url]",
	Short: "Review the schema change in a GitHub Pull Request",
	Long: `Review the schema change in a GitHub Pull Request.

The review command finds the first changed schema file in the pull request,
sends its patch to the configured model and prints the review as it streams.
With --render the review is collected first and rendered for the terminal.

Examples:
  warden-cli review https://github.com/owner/repo/pull/123
  warden-cli review --render https://github.com/owner/repo/pull/123`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	reviewCmd.Flags().BoolVarP(&renderOutput, "render", "r", false, "Render the finished review as styled markdown")
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	prURL := args[0]

	timer := newStepTimer(3, verbose)
	titleColor.Fprintln(os.Stderr, "Schema Warden - PR Review")
	dimColor.Fprintf(os.Stderr, "   Target: %s\n", prURL)

	timer.step("Initializing reviewer")
	service, cleanup, err := wire.InitializeReviewer(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize reviewer: %w\n\nTip: Check AI_LLM_PROVIDER and AI_GENERATOR_MODEL", err)
	}
	defer cleanup()
	timer.done()

	timer.step("Fetching schema diff")
	stream, err := service.Review(ctx, core.ReviewRequest{PRURL: prURL})
	switch {
	case errors.Is(err, core.ErrUpstreamNotFound):
		warnColor.Fprintln(os.Stderr, "No schema changes found in this pull request.")
		return nil
	case err != nil:
		return fmt.Errorf("failed to start review: %w", err)
	}
	timer.done("File: "+stream.Diff.Filename, "Review ID: "+stream.ID)

	timer.step("Generating review")
	if renderOutput {
		err = renderReview(ctx, stream.Pipe)
	} else {
		err = stream.Pipe(ctx, func(chunk string) error {
			_, werr := fmt.Fprint(os.Stdout, chunk)
			return werr
		})
		fmt.Fprintln(os.Stdout)
	}
	if err != nil {
		return fmt.Errorf("failed to generate review: %w\n\nTip: Check that the LLM service is running", err)
	}
	timer.done()
	return nil
}

// renderReview buffers the whole stream because glamour needs the complete
// document to lay out tables and lists.
func renderReview(ctx context.Context, pipe func(context.Context, func(string) error) error) error {
	var buf strings.Builder
	if err := pipe(ctx, func(chunk string) error {
		buf.WriteString(chunk)
		return nil
	}); err != nil {
		return err
	}

	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := r.Render(buf.String())
	if err != nil {
		// Fall back to the raw markdown rather than losing the review.
		fmt.Fprintln(os.Stdout, buf.String())
		return nil
	}
	fmt.Fprint(os.Stdout, out)
	return nil
}
