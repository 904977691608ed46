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

type EvidenceRepository struct {
	db *gorm.DB
}

func NewEvidenceRepository(db *gorm.DB) *EvidenceRepository {
	return &EvidenceRepository{db: db}
}

func (r *EvidenceRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
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

func (r *EvidenceRepository) Insert(ctx context.Context, rec ports.EvidenceRecord) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := model.Evidence{
		ID:          rec.ID,
		Repo:        rec.Repo,
		IssueNumber: rec.IssueNumber,
		EventID:     rec.EventID,
		Filename:    rec.Filename,
		ContentType: rec.ContentType,
		SizeBytes:   rec.SizeBytes,
		ObjectKey:   rec.ObjectKey,
		CreatedAt:   rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert evidence")
	}
	return nil
}

func (r *EvidenceRepository) FindByID(ctx context.Context, id string) (*ports.EvidenceRecord, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var row model.Evidence
	if err := db.Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errs.Wrap(err, "find evidence by id")
	}

	createdAt, _ := time.Parse(time.RFC3339Nano, row.CreatedAt)
	return &ports.EvidenceRecord{
		ID:          row.ID,
		Repo:        row.Repo,
		IssueNumber: row.IssueNumber,
		EventID:     row.EventID,
		Filename:    row.Filename,
		ContentType: row.ContentType,
		SizeBytes:   row.SizeBytes,
		ObjectKey:   row.ObjectKey,
		CreatedAt:   createdAt,
	}, nil
}
