package relay

import (
	"context"
	"strings"

	"forgerelay/internal/domain/relay"
	"forgerelay/internal/ports"
)

type upsertState int

const (
	stateHasMapping upsertState = iota
	stateNeedsScan
	stateNeedsCreate
)

const maxMarkerScanPages = 3

// upsertRollingComment runs the three-tier fallback: mapping hit → marker
// scan → create. A failed update on the mapped comment (for example a
// stale mapping) transitions to the marker scan rather than aborting; an
// error from the scan, from updating the scanned comment, or from create
// is returned to the caller.
func (s *Service) upsertRollingComment(ctx context.Context, client ports.ForgeClient, repo string, issueNumber int, body string) (int64, error) {
	state := stateNeedsScan
	mapping, err := s.rollingComments.Find(ctx, repo, issueNumber)
	if err != nil {
		return 0, err
	}
	if mapping != nil {
		state = stateHasMapping
	}

	if state == stateHasMapping {
		if err := client.UpdateComment(ctx, repo, mapping.CommentID, body); err == nil {
			if err := s.rollingComments.Upsert(ctx, repo, issueNumber, mapping.CommentID); err != nil {
				return 0, err
			}
			return mapping.CommentID, nil
		}
		state = stateNeedsScan
	}

	if state == stateNeedsScan {
		commentID, found, err := s.scanForMarker(ctx, client, repo, issueNumber)
		if err != nil {
			return 0, err
		}
		if found {
			if err := client.UpdateComment(ctx, repo, commentID, body); err != nil {
				return 0, err
			}
			if err := s.rollingComments.Upsert(ctx, repo, issueNumber, commentID); err != nil {
				return 0, err
			}
			return commentID, nil
		}
		state = stateNeedsCreate
	}

	created, err := client.CreateComment(ctx, repo, issueNumber, body)
	if err != nil {
		return 0, err
	}
	if err := s.rollingComments.Upsert(ctx, repo, issueNumber, created.ID); err != nil {
		return 0, err
	}
	return created.ID, nil
}

func (s *Service) scanForMarker(ctx context.Context, client ports.ForgeClient, repo string, issueNumber int) (int64, bool, error) {
	for page := 1; page <= maxMarkerScanPages; page++ {
		comments, err := client.ListComments(ctx, repo, issueNumber, page)
		if err != nil {
			return 0, false, err
		}
		for _, c := range comments {
			if strings.HasPrefix(c.Body, relay.Marker) {
				return c.ID, true, nil
			}
		}
		if len(comments) < 100 {
			break
		}
	}
	return 0, false, nil
}
