package relay

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"forgerelay/internal/bootstrap/logging"
	"forgerelay/internal/domain/relay"
	"forgerelay/internal/errs"
	"forgerelay/internal/ports"
)

const recentActivityLimit = 5

// IngestEvent implements the central v2 event pipeline: validate, hash,
// deduplicate, verify provenance, insert, render, upsert the rolling
// comment, and apply label transitions. The event insert is the commit
// point — any failure after it still leaves the event as the durable
// source of truth, and a byte-identical resubmission of the same event_id
// replays idempotently from the duplicate check below.
func (s *Service) IngestEvent(ctx context.Context, in IngestEventInput) (IngestEventResult, error) {
	if ctx == nil {
		return IngestEventResult{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return IngestEventResult{}, errs.Wrap(err, "check context")
	}

	norm, err := ValidateAndNormalize(in)
	if err != nil {
		return IngestEventResult{}, &ValidationError{Err: err}
	}

	canonicalJSON, err := relay.CanonicalJSON(norm)
	if err != nil {
		return IngestEventResult{}, errs.Wrap(err, "canonicalize event")
	}
	hash := relay.PayloadHash(canonicalJSON)

	existing, err := s.events.FindByEventID(ctx, norm.EventID)
	if err != nil {
		return IngestEventResult{}, errs.Wrap(err, "lookup existing event")
	}
	if existing != nil {
		if existing.PayloadHash == hash {
			return IngestEventResult{OK: true, EventID: norm.EventID, Idempotent: true}, nil
		}
		return IngestEventResult{
			Conflict: &ConflictInfo{ExistingHash: existing.PayloadHash, NewHash: hash},
		}, nil
	}

	client, err := s.forgeFactory(ctx)
	if err != nil {
		return IngestEventResult{}, errs.Wrap(err, "mint forge client")
	}

	var verified *bool
	var prHeadSHA string
	if norm.Build != nil && norm.Build.PR > 0 && norm.Build.CommitSHA != "" {
		prHeadSHA, err = client.PRHeadSHA(ctx, norm.Repo, norm.Build.PR)
		if err != nil {
			return IngestEventResult{}, err
		}
		verified = relay.VerifyProvenance(norm.Build.CommitSHA, prHeadSHA)
	}

	reportedVerdict := relay.Verdict(norm.OverallVerdict)
	effectiveVerdict := relay.EffectiveVerdict(reportedVerdict, verified)

	rec := ports.EventRecord{
		EventID:         norm.EventID,
		Repo:            norm.Repo,
		IssueNumber:     norm.IssueNumber,
		EventType:       norm.EventType,
		Role:            norm.Role,
		Agent:           norm.Agent,
		Environment:     norm.Environment,
		OverallVerdict:  string(effectiveVerdict),
		ReportedVerdict: string(reportedVerdict),
		PayloadHash:     hash,
		PayloadJSON:     canonicalJSON,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		return s.events.Insert(txCtx, rec)
	}); err != nil {
		if errors.Is(err, ports.ErrDuplicateEventID) {
			return s.resolveRacedInsert(ctx, norm.EventID, hash)
		}
		return IngestEventResult{}, errs.Wrap(err, "insert event")
	}

	result := IngestEventResult{
		OK:                 true,
		EventID:            norm.EventID,
		Stored:             true,
		Verdict:            string(effectiveVerdict),
		ProvenanceVerified: verified,
	}

	issue, err := client.GetIssue(ctx, norm.Repo, norm.IssueNumber)
	if err != nil {
		logging.Warn(ctx, "fetch issue failed after event insert", slog.String("event_id", norm.EventID), slog.Any("err", errs.Loggable(err)))
		return result, err
	}

	latestDev, err := s.events.LatestByType(ctx, norm.Repo, norm.IssueNumber, eventTypeDevUpdate)
	if err != nil {
		return result, errs.Wrap(err, "load latest dev event")
	}
	latestQA, err := s.events.LatestByType(ctx, norm.Repo, norm.IssueNumber, eventTypeQAResult)
	if err != nil {
		return result, errs.Wrap(err, "load latest qa event")
	}
	recentActivity, err := s.events.RecentActivity(ctx, norm.Repo, norm.IssueNumber, recentActivityLimit)
	if err != nil {
		return result, errs.Wrap(err, "load recent activity")
	}

	body, err := relay.Render(buildRenderInput(issue, norm, verified, prHeadSHA, latestDev, latestQA, recentActivity))
	if err != nil {
		return result, errs.Wrap(err, "render rolling status")
	}

	commentID, err := s.upsertRollingComment(ctx, client, norm.Repo, norm.IssueNumber, body)
	if err != nil {
		logging.Warn(ctx, "rolling comment upsert failed", slog.String("event_id", norm.EventID), slog.Any("err", errs.Loggable(err)))
		return result, err
	}
	result.RollingCommentID = commentID

	if err := s.applyLabelTransition(ctx, client, norm.Repo, norm.IssueNumber, issue.Labels, norm.EventType, effectiveVerdict); err != nil {
		logging.Warn(ctx, "label transition failed", slog.String("event_id", norm.EventID), slog.Any("err", errs.Loggable(err)))
		return result, err
	}

	return result, nil
}

// resolveRacedInsert re-reads the row that won a concurrent Insert race on
// event_id and folds it into the same idempotent-replay or conflict
// outcome a non-racing duplicate would have produced, instead of letting
// the storage layer's unique-index error surface as an opaque failure.
func (s *Service) resolveRacedInsert(ctx context.Context, eventID, hash string) (IngestEventResult, error) {
	existing, err := s.events.FindByEventID(ctx, eventID)
	if err != nil {
		return IngestEventResult{}, errs.Wrap(err, "lookup event after insert race")
	}
	if existing == nil {
		return IngestEventResult{}, errors.New("insert race reported a duplicate but no row was found")
	}
	if existing.PayloadHash == hash {
		return IngestEventResult{OK: true, EventID: eventID, Idempotent: true}, nil
	}
	return IngestEventResult{
		Conflict: &ConflictInfo{ExistingHash: existing.PayloadHash, NewHash: hash},
	}, nil
}
