package relay

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"forgerelay/internal/errs"
	"forgerelay/internal/ports"
)

// UploadEvidence streams the multipart file body to the object store
// under a deterministic key, then records it in the evidence index.
func (s *Service) UploadEvidence(ctx context.Context, in UploadEvidenceInput) (UploadEvidenceResult, error) {
	if ctx == nil {
		return UploadEvidenceResult{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return UploadEvidenceResult{}, errs.Wrap(err, "check context")
	}
	if !repoPattern.MatchString(strings.TrimSpace(in.Repo)) {
		return UploadEvidenceResult{}, &ValidationError{Err: errors.New("repo must match <owner>/<name>")}
	}
	if in.IssueNumber <= 0 {
		return UploadEvidenceResult{}, &ValidationError{Err: errors.New("issue_number must be a positive integer")}
	}
	if in.Body == nil {
		return UploadEvidenceResult{}, &ValidationError{Err: errors.New("file is required")}
	}

	id := uuid.New().String()
	filename := sanitizeFilename(in.Filename)
	objectKey := fmt.Sprintf("evidence/%s/issue-%d/%s/%s", in.Repo, in.IssueNumber, id, filename)

	createdAt := time.Now().UTC()
	metadata := map[string]string{
		"repo":         in.Repo,
		"issue_number": fmt.Sprintf("%d", in.IssueNumber),
		"event_id":     in.EventID,
		"uploaded_at":  createdAt.Format(time.RFC3339Nano),
	}

	if err := s.objectStore.Put(ctx, objectKey, in.Body, in.Size, in.ContentType, metadata); err != nil {
		return UploadEvidenceResult{}, errs.Wrap(err, "write evidence object")
	}

	rec := ports.EvidenceRecord{
		ID:          id,
		Repo:        in.Repo,
		IssueNumber: in.IssueNumber,
		EventID:     in.EventID,
		Filename:    filename,
		ContentType: in.ContentType,
		SizeBytes:   in.Size,
		ObjectKey:   objectKey,
		CreatedAt:   createdAt,
	}
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		return s.evidence.Insert(txCtx, rec)
	}); err != nil {
		return UploadEvidenceResult{}, errs.Wrap(err, "insert evidence record")
	}

	return UploadEvidenceResult{
		ID:          id,
		Repo:        in.Repo,
		IssueNumber: in.IssueNumber,
		EventID:     in.EventID,
		Filename:    filename,
		ContentType: in.ContentType,
		SizeBytes:   in.Size,
		URL:         "/v2/evidence/" + id,
	}, nil
}

// sanitizeFilename strips any directory component a client-controlled
// filename carries, so it cannot steer the evidence object key outside the
// issue's own key prefix via "../" segments.
func sanitizeFilename(name string) string {
	base := filepath.Base(filepath.Clean(name))
	if base == "" || base == "." || base == ".." || base == string(filepath.Separator) {
		return "upload.bin"
	}
	return base
}
