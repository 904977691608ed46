package ports

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateEventID is returned by EventRepository.Insert when the
// storage layer's unique index on event_id rejects a concurrent insert
// that raced past a caller's own FindByEventID check.
var ErrDuplicateEventID = errors.New("event_id already exists")

// EventRecord is the persisted, immutable form of an ingested event.
type EventRecord struct {
	EventID        string
	Repo           string
	IssueNumber    int
	EventType      string
	Role           string
	Agent          string
	Environment    string
	OverallVerdict string
	ReportedVerdict string
	PayloadHash    string
	PayloadJSON    string
	CreatedAt      time.Time
}

// EventRepository is the append-only Event Store. Inserts enforce
// uniqueness on EventID at the storage layer; callers detect duplicates by
// comparing the returned existing record's PayloadHash before inserting.
type EventRepository interface {
	// FindByEventID returns the existing record for id, or nil if none
	// exists yet.
	FindByEventID(ctx context.Context, eventID string) (*EventRecord, error)

	// Insert stores a new event row. Callers must have already confirmed
	// via FindByEventID that no row exists for rec.EventID.
	Insert(ctx context.Context, rec EventRecord) error

	// LatestByType returns the most recent event for (repo, issue,
	// eventType), or nil if none exists.
	LatestByType(ctx context.Context, repo string, issueNumber int, eventType string) (*EventRecord, error)

	// RecentActivity returns up to limit most recent events for
	// (repo, issue) across all event types, newest first.
	RecentActivity(ctx context.Context, repo string, issueNumber int, limit int) ([]EventRecord, error)
}
