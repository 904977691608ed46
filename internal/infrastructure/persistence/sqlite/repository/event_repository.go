package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"forgerelay/internal/errs"
	"forgerelay/internal/infrastructure/persistence/sqlite/model"
	"forgerelay/internal/ports"
)

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func (r *EventRepository) FindByEventID(ctx context.Context, eventID string) (*ports.EventRecord, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var row model.Event
	if err := db.Where("event_id = ?", eventID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errs.Wrap(err, "find event by event_id")
	}
	rec := toEventRecord(row)
	return &rec, nil
}

// Insert stores a new event row. The unique index on event_id is the
// actual race-free guarantee; callers are expected to have already
// confirmed via FindByEventID that no row exists, but a conflicting
// concurrent insert still surfaces as ports.ErrDuplicateEventID here so
// the usecase layer can resolve it into the same idempotent-replay or
// conflict branches it uses for a non-racing duplicate.
func (r *EventRepository) Insert(ctx context.Context, rec ports.EventRecord) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := model.Event{
		EventID:         rec.EventID,
		Repo:            rec.Repo,
		IssueNumber:     rec.IssueNumber,
		EventType:       rec.EventType,
		Role:            rec.Role,
		Agent:           rec.Agent,
		Environment:     rec.Environment,
		OverallVerdict:  rec.OverallVerdict,
		ReportedVerdict: rec.ReportedVerdict,
		PayloadHash:     rec.PayloadHash,
		PayloadJSON:     rec.PayloadJSON,
		CreatedAt:       rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if err := db.Create(&row).Error; err != nil {
		if isDuplicateEventIDError(err) {
			return ports.ErrDuplicateEventID
		}
		return errs.Wrap(err, "insert event")
	}
	return nil
}

// isDuplicateEventIDError recognizes a unique-index violation on event_id
// from the underlying sqlite driver. gorm's own ErrDuplicatedKey only
// fires when the dialector implements error translation; the sqlite
// driver's raw error text ("UNIQUE constraint failed: relay_events.event_id")
// is checked directly as a fallback so the race is caught either way.
func isDuplicateEventIDError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed") && strings.Contains(err.Error(), "event_id")
}

func (r *EventRepository) LatestByType(ctx context.Context, repo string, issueNumber int, eventType string) (*ports.EventRecord, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var row model.Event
	err = db.Where("repo = ? AND issue_number = ? AND event_type = ?", repo, issueNumber, eventType).
		Order("created_at DESC").
		Limit(1).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errs.Wrap(err, "latest event by type")
	}
	rec := toEventRecord(row)
	return &rec, nil
}

func (r *EventRepository) RecentActivity(ctx context.Context, repo string, issueNumber int, limit int) ([]ports.EventRecord, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Event
	if err := db.Where("repo = ? AND issue_number = ?", repo, issueNumber).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "recent activity")
	}

	out := make([]ports.EventRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, toEventRecord(row))
	}
	return out, nil
}

func toEventRecord(row model.Event) ports.EventRecord {
	createdAt, _ := time.Parse(time.RFC3339Nano, row.CreatedAt)
	return ports.EventRecord{
		EventID:         row.EventID,
		Repo:            row.Repo,
		IssueNumber:     row.IssueNumber,
		EventType:       row.EventType,
		Role:            row.Role,
		Agent:           row.Agent,
		Environment:     row.Environment,
		OverallVerdict:  row.OverallVerdict,
		ReportedVerdict: row.ReportedVerdict,
		PayloadHash:     row.PayloadHash,
		PayloadJSON:     row.PayloadJSON,
		CreatedAt:       createdAt,
	}
}
