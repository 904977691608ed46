package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"forgerelay/internal/errs"
	"forgerelay/internal/infrastructure/persistence/sqlite/model"
	"forgerelay/internal/ports"
)

type RollingCommentRepository struct {
	db *gorm.DB
}

func NewRollingCommentRepository(db *gorm.DB) *RollingCommentRepository {
	return &RollingCommentRepository{db: db}
}

func (r *RollingCommentRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
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

func (r *RollingCommentRepository) Find(ctx context.Context, repo string, issueNumber int) (*ports.RollingCommentMapping, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var row model.RollingComment
	err = db.Where("repo = ? AND issue_number = ?", repo, issueNumber).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errs.Wrap(err, "find rolling comment mapping")
	}

	updatedAt, _ := time.Parse(time.RFC3339Nano, row.UpdatedAt)
	return &ports.RollingCommentMapping{
		Repo:        row.Repo,
		IssueNumber: row.IssueNumber,
		CommentID:   row.CommentID,
		UpdatedAt:   updatedAt,
	}, nil
}

// Upsert relies on the unique (repo, issue_number) index: a conflicting
// insert updates comment_id and updated_at in place rather than erroring.
func (r *RollingCommentRepository) Upsert(ctx context.Context, repo string, issueNumber int, commentID int64) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := model.RollingComment{
		Repo:        repo,
		IssueNumber: issueNumber,
		CommentID:   commentID,
		UpdatedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "repo"}, {Name: "issue_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"comment_id", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return errs.Wrap(err, "upsert rolling comment mapping")
	}
	return nil
}
