// Package core holds the domain types shared by the webhook receiver, the review
// pipeline and the store, along with the error kinds they report.
package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Operation is the kind of row change reported by the data-store change feed.
type Operation string

const (
	OperationInsert Operation = "INSERT"
	OperationUpdate Operation = "UPDATE"
	OperationDelete Operation = "DELETE"
)

// RecordID identifies a change-feed row. Feeds send it either as a JSON string
// (uuid primary keys) or as a JSON number (serial primary keys).
type RecordID string

// UnmarshalJSON accepts both string and numeric identifiers.
func (id *RecordID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid record id: %w", err)
		}
		*id = RecordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid record id: %w", err)
	}
	*id = RecordID(n.String())
	return nil
}

// ChangeRecord is the inserted row carrying a pull request comment.
// Columns other than the ones below are ignored.
type ChangeRecord struct {
	ID         RecordID `json:"id"`
	PRNumber   int      `json:"pr_number"`
	FilePath   string   `json:"file_path"`
	LineNumber int      `json:"line_number"`
	Comment    string   `json:"comment"`
}

// ChangeEvent is a single notification from the data-store change feed.
// It is consumed once and discarded.
type ChangeEvent struct {
	Type   Operation    `json:"type"`
	Table  string       `json:"table"`
	Record ChangeRecord `json:"record"`
}

// CommentRequest describes one inline review comment to be created on a pull request.
type CommentRequest struct {
	EventID    RecordID
	Owner      string
	Repo       string
	PRNumber   int
	FilePath   string
	LineNumber int
	Body       string
}

// CommentRequestFromEvent transforms a ChangeEvent into a CommentRequest for the
// given repository. It acts as an anti-corruption layer between the change feed and
// the GitHub client: only INSERT events qualify, every other operation returns
// ErrNoAction, and an insert missing any comment field returns ErrValidationFailed.
func CommentRequestFromEvent(event *ChangeEvent, owner, repo string) (*CommentRequest, error) {
	if event == nil {
		return nil, fmt.Errorf("%w: event cannot be nil", ErrValidationFailed)
	}
	if event.Type != OperationInsert {
		return nil, fmt.Errorf("%w: operation %q", ErrNoAction, event.Type)
	}

	rec := event.Record
	if rec.PRNumber <= 0 {
		return nil, fmt.Errorf("%w: invalid pull request number: %d", ErrValidationFailed, rec.PRNumber)
	}
	if strings.TrimSpace(rec.FilePath) == "" {
		return nil, fmt.Errorf("%w: file path is missing from the record", ErrValidationFailed)
	}
	if rec.LineNumber <= 0 {
		return nil, fmt.Errorf("%w: invalid line number: %d", ErrValidationFailed, rec.LineNumber)
	}
	if rec.Comment == "" {
		return nil, fmt.Errorf("%w: comment is missing from the record", ErrValidationFailed)
	}

	return &CommentRequest{
		EventID:    rec.ID,
		Owner:      owner,
		Repo:       repo,
		PRNumber:   rec.PRNumber,
		FilePath:   rec.FilePath,
		LineNumber: rec.LineNumber,
		Body:       rec.Comment,
	}, nil
}
