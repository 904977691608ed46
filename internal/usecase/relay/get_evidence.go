package relay

import (
	"context"
	"errors"
	"io"
	"os"

	"forgerelay/internal/errs"
	"forgerelay/internal/ports"
)

// ErrEvidenceNotFound is returned when the evidence id or its backing
// object cannot be found, mapping to a 404 at the HTTP layer.
var ErrEvidenceNotFound = errors.New("evidence not found")

// GetEvidence returns the evidence index row and an open reader over its
// bytes. Callers must close the reader.
func (s *Service) GetEvidence(ctx context.Context, id string) (*ports.EvidenceRecord, io.ReadCloser, error) {
	if ctx == nil {
		return nil, nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, errs.Wrap(err, "check context")
	}

	rec, err := s.evidence.FindByID(ctx, id)
	if err != nil {
		return nil, nil, errs.Wrap(err, "find evidence record")
	}
	if rec == nil {
		return nil, nil, ErrEvidenceNotFound
	}

	body, err := s.objectStore.Get(ctx, rec.ObjectKey)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrEvidenceNotFound
		}
		return nil, nil, errs.Wrap(err, "open evidence object")
	}

	return rec, body, nil
}
