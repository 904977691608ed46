package ports

import (
	"context"
	"time"
)

// RollingCommentMapping is the last known forge comment id carrying the
// status marker for an issue. At most one row per (repo, issue_number).
type RollingCommentMapping struct {
	Repo        string
	IssueNumber int
	CommentID   int64
	UpdatedAt   time.Time
}

// RollingCommentRepository persists the rolling-comment mapping table.
type RollingCommentRepository interface {
	// Find returns the mapping row for (repo, issue), or nil if absent.
	Find(ctx context.Context, repo string, issueNumber int) (*RollingCommentMapping, error)

	// Upsert creates or replaces the mapping row for (repo, issue).
	Upsert(ctx context.Context, repo string, issueNumber int, commentID int64) error
}
