package uow

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"forgerelay/internal/infrastructure/persistence/sqlite/model"
	"forgerelay/internal/ports"
)

func setupUnitOfWork(t *testing.T) (*UnitOfWork, *gorm.DB) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "relay.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(&model.Event{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return NewUnitOfWork(db), db
}

func TestUnitOfWorkCommitsOnSuccess(t *testing.T) {
	u, db := setupUnitOfWork(t)

	err := u.WithTx(context.Background(), func(txCtx context.Context) error {
		tx, ok := ports.TxFromContext(txCtx).(*gorm.DB)
		if !ok {
			t.Fatal("TxFromContext() did not yield *gorm.DB")
		}
		return tx.Create(&model.Event{
			EventID:     "evt-00000001",
			Repo:        "acme/web",
			IssueNumber: 42,
			EventType:   "qa.result_submitted",
			Role:        "QA",
			Agent:       "qa-bot",
			PayloadHash: "deadbeef",
			PayloadJSON: "{}",
			CreatedAt:   "2026-01-01T00:00:00Z",
		}).Error
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}

	var count int64
	if err := db.Model(&model.Event{}).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("row count = %d, want 1", count)
	}
}

func TestUnitOfWorkRollsBackOnError(t *testing.T) {
	u, db := setupUnitOfWork(t)
	wantErr := errors.New("boom")

	err := u.WithTx(context.Background(), func(txCtx context.Context) error {
		tx := ports.TxFromContext(txCtx).(*gorm.DB)
		if err := tx.Create(&model.Event{
			EventID:     "evt-00000001",
			Repo:        "acme/web",
			IssueNumber: 42,
			EventType:   "qa.result_submitted",
			Role:        "QA",
			Agent:       "qa-bot",
			PayloadHash: "deadbeef",
			PayloadJSON: "{}",
			CreatedAt:   "2026-01-01T00:00:00Z",
		}).Error; err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("WithTx() error = %v, want %v", err, wantErr)
	}

	var count int64
	if err := db.Model(&model.Event{}).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 0 {
		t.Fatalf("row count = %d, want 0 after rollback", count)
	}
}
