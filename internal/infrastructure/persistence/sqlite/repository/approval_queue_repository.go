package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"forgerelay/internal/errs"
	"forgerelay/internal/infrastructure/persistence/sqlite/model"
	"forgerelay/internal/ports"
)

// ApprovalQueueRepository implements ports.ApprovalQueueRepository. It is
// wired into the DI graph so the table participates in schema migration,
// but nothing in the ingestion pipeline calls Insert.
type ApprovalQueueRepository struct {
	db *gorm.DB
}

func NewApprovalQueueRepository(db *gorm.DB) *ApprovalQueueRepository {
	return &ApprovalQueueRepository{db: db}
}

func (r *ApprovalQueueRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
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

func (r *ApprovalQueueRepository) Insert(ctx context.Context, entry ports.ApprovalQueueEntry) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := model.ApprovalQueue{
		Repo:        entry.Repo,
		IssueNumber: entry.IssueNumber,
		EventID:     entry.EventID,
		CreatedAt:   entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert approval queue entry")
	}
	return nil
}
