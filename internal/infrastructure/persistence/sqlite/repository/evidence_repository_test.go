package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"forgerelay/internal/infrastructure/persistence/sqlite/model"
	"forgerelay/internal/ports"
)

func setupEvidenceRepository(t *testing.T) *EvidenceRepository {
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
	if err := db.AutoMigrate(&model.Evidence{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return NewEvidenceRepository(db)
}

func TestEvidenceRepositoryFindByIDMissingReturnsNil(t *testing.T) {
	repo := setupEvidenceRepository(t)

	rec, err := repo.FindByID(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if rec != nil {
		t.Fatalf("FindByID() = %+v, want nil", rec)
	}
}

func TestEvidenceRepositoryInsertAndFind(t *testing.T) {
	repo := setupEvidenceRepository(t)
	ctx := context.Background()
	want := ports.EvidenceRecord{
		ID:          "evidence-1",
		Repo:        "acme/web",
		IssueNumber: 42,
		EventID:     "evt-00000001",
		Filename:    "screenshot.png",
		ContentType: "image/png",
		SizeBytes:   1024,
		ObjectKey:   "evidence/acme/web/issue-42/evidence-1/screenshot.png",
		CreatedAt:   time.Now().UTC(),
	}

	if err := repo.Insert(ctx, want); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := repo.FindByID(ctx, "evidence-1")
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got == nil {
		t.Fatal("FindByID() = nil, want record")
	}
	if got.ObjectKey != want.ObjectKey || got.Filename != want.Filename || got.SizeBytes != want.SizeBytes {
		t.Fatalf("FindByID() = %+v, want %+v", got, want)
	}
}
