// Package relay implements the core event-ingestion, rolling-comment, and
// evidence pipelines against the forge and the event store.
package relay

import (
	"context"
	"io"

	"forgerelay/internal/domain/relay"
	"forgerelay/internal/ports"
)

// ForgeClientFactory mints a request-scoped forge client. Exactly one
// instance is created per call into Service and reused across every forge
// call that request's pipeline makes.
type ForgeClientFactory func(ctx context.Context) (ports.ForgeClient, error)

// BuildInput is the optional provenance claim on an inbound event.
type BuildInput struct {
	CommitSHA string
	PR        int
}

// IngestEventInput is the request body for POST /v2/events, before
// validation normalizes it.
type IngestEventInput struct {
	EventID        string
	Repo           string
	IssueNumber    int
	EventType      string
	Role           string
	Agent          string
	Environment    string
	OverallVerdict string
	Build          *BuildInput
	ScopeResults   []relay.ScopeResult
	Severity       string
	ReproSteps     string
	Expected       string
	Actual         string
	Summary        string
	EvidenceURLs   []string
	Artifacts      []string
	Details        map[string]any
}

// IngestEventResult is the JSON response body for POST /v2/events.
type IngestEventResult struct {
	OK                 bool
	EventID            string
	Stored             bool
	Idempotent         bool
	RollingCommentID   int64
	Verdict            string
	ProvenanceVerified *bool

	// Conflict is non-nil only on a 409; callers check this before OK.
	Conflict *ConflictInfo
}

// ConflictInfo carries both hashes for a 409 response.
type ConflictInfo struct {
	ExistingHash string
	NewHash      string
}

// UploadEvidenceInput is the parsed multipart form for POST /v2/evidence.
type UploadEvidenceInput struct {
	Repo        string
	IssueNumber int
	EventID     string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadEvidenceResult is the JSON response body for POST /v2/evidence.
type UploadEvidenceResult struct {
	ID          string
	Repo        string
	IssueNumber int
	EventID     string
	Filename    string
	ContentType string
	SizeBytes   int64
	URL         string
}
