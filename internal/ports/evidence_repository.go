package ports

import (
	"context"
	"time"
)

// EvidenceRecord is one row of the evidence index.
type EvidenceRecord struct {
	ID          string
	Repo        string
	IssueNumber int
	EventID     string
	Filename    string
	ContentType string
	SizeBytes   int64
	ObjectKey   string
	CreatedAt   time.Time
}

// EvidenceRepository persists the evidence index. Rows are created once by
// upload and never mutated.
type EvidenceRepository interface {
	Insert(ctx context.Context, rec EvidenceRecord) error
	FindByID(ctx context.Context, id string) (*EvidenceRecord, error)
}
