package core

import (
	"fmt"
	"strings"
	"time"
)

// ReviewRequest asks for a schema review of one pull request.
type ReviewRequest struct {
	PRURL string
}

// Validate reports ErrValidationFailed when the URL is blank.
func (r ReviewRequest) Validate() error {
	if strings.TrimSpace(r.PRURL) == "" {
		return fmt.Errorf("%w: pull request URL is empty", ErrValidationFailed)
	}
	return nil
}

// SchemaDiff is the unified-diff patch of the schema-definition file selected from
// a pull request.
type SchemaDiff struct {
	Filename string
	Patch    string
}

// Review is a completed schema review stored for later retrieval.
type Review struct {
	ID        string    `db:"id"`
	PRURL     string    `db:"pr_url"`
	Filename  string    `db:"filename"`
	Model     string    `db:"model"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

// CommentDelivery records that a change event produced a pull request comment.
type CommentDelivery struct {
	EventID    string    `db:"event_id"`
	PRNumber   int       `db:"pr_number"`
	FilePath   string    `db:"file_path"`
	LineNumber int       `db:"line_number"`
	CommentID  int64     `db:"comment_id"`
	CreatedAt  time.Time `db:"created_at"`
}
