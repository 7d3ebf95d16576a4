package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sevigo/schema-warden/internal/core"
	"github.com/sevigo/schema-warden/internal/webhook"
	"github.com/sevigo/schema-warden/internal/wire"
)

var (
	commentPR   int
	commentPath string
	commentLine int
	commentBody string
)

var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Post an inline review comment as the GitHub App",
	Long: `Post an inline review comment on a pull request in the configured repository.

The comment goes through the same path as a change-feed INSERT, so it uses the
GitHub App installation credentials and the head commit of the pull request.

Example:
  warden-cli comment --pr 42 --path db/Schemafile --line 8 --body "Add an index on orders.user_id"`,
	Args: cobra.NoArgs,
	RunE: runComment,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	commentCmd.Flags().IntVar(&commentPR, "pr", 0, "Pull request number")
	commentCmd.Flags().StringVar(&commentPath, "path", "", "File path relative to the repository root")
	commentCmd.Flags().IntVar(&commentLine, "line", 0, "Line number in the new version of the file")
	commentCmd.Flags().StringVar(&commentBody, "body", "", "Comment text")
	for _, name := range []string{"pr", "path", "line", "body"} {
		_ = commentCmd.MarkFlagRequired(name)
	}
	rootCmd.AddCommand(commentCmd)
}

func runComment(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	receiver, cleanup, err := wire.InitializeReceiver()
	if err != nil {
		return fmt.Errorf("failed to initialize receiver: %w\n\nTip: Check GITHUB_APP_ID, GITHUB_INSTALLATION_ID and GITHUB_PRIVATE_KEY", err)
	}
	defer cleanup()

	event := &core.ChangeEvent{
		Type:  core.OperationInsert,
		Table: "cli",
		Record: core.ChangeRecord{
			PRNumber:   commentPR,
			FilePath:   commentPath,
			LineNumber: commentLine,
			Comment:    commentBody,
		},
	}
	res, err := receiver.Handle(ctx, event)
	if err != nil {
		return err
	}

	switch res.Action {
	case webhook.ActionCommented:
		successColor.Fprintf(os.Stdout, "Comment %d posted on PR #%d\n", res.CommentID, commentPR)
	default:
		warnColor.Fprintf(os.Stdout, "No comment posted (%s)\n", res.Action)
	}
	return nil
}
