package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"forgerelay/internal/infrastructure/persistence/sqlite/model"
	"forgerelay/internal/ports"
)

func setupEventRepository(t *testing.T) *EventRepository {
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
	return NewEventRepository(db)
}

func sampleEventRecord(eventID string, createdAt time.Time) ports.EventRecord {
	return ports.EventRecord{
		EventID:         eventID,
		Repo:            "acme/web",
		IssueNumber:     42,
		EventType:       "qa.result_submitted",
		Role:            "QA",
		Agent:           "qa-bot",
		Environment:     "preview",
		OverallVerdict:  "PASS",
		ReportedVerdict: "PASS",
		PayloadHash:     "deadbeef",
		PayloadJSON:     `{"event_id":"` + eventID + `"}`,
		CreatedAt:       createdAt,
	}
}

func TestEventRepositoryFindByEventIDMissingReturnsNil(t *testing.T) {
	repo := setupEventRepository(t)

	rec, err := repo.FindByEventID(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("FindByEventID() error = %v", err)
	}
	if rec != nil {
		t.Fatalf("FindByEventID() = %+v, want nil", rec)
	}
}

func TestEventRepositoryInsertAndFind(t *testing.T) {
	repo := setupEventRepository(t)
	ctx := context.Background()
	want := sampleEventRecord("evt-00000001", time.Now().UTC())

	if err := repo.Insert(ctx, want); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := repo.FindByEventID(ctx, "evt-00000001")
	if err != nil {
		t.Fatalf("FindByEventID() error = %v", err)
	}
	if got == nil {
		t.Fatal("FindByEventID() = nil, want record")
	}
	if got.PayloadHash != want.PayloadHash || got.Repo != want.Repo || got.OverallVerdict != want.OverallVerdict {
		t.Fatalf("FindByEventID() = %+v, want %+v", got, want)
	}
}

func TestEventRepositoryInsertRejectsDuplicateEventID(t *testing.T) {
	repo := setupEventRepository(t)
	ctx := context.Background()
	rec := sampleEventRecord("evt-00000001", time.Now().UTC())

	if err := repo.Insert(ctx, rec); err != nil {
		t.Fatalf("first Insert() error = %v", err)
	}
	if err := repo.Insert(ctx, rec); !errors.Is(err, ports.ErrDuplicateEventID) {
		t.Fatalf("second Insert() error = %v, want ports.ErrDuplicateEventID", err)
	}
}

func TestEventRepositoryLatestByType(t *testing.T) {
	repo := setupEventRepository(t)
	ctx := context.Background()
	base := time.Now().UTC()

	older := sampleEventRecord("evt-00000001", base)
	newer := sampleEventRecord("evt-00000002", base.Add(time.Minute))

	if err := repo.Insert(ctx, older); err != nil {
		t.Fatalf("insert older: %v", err)
	}
	if err := repo.Insert(ctx, newer); err != nil {
		t.Fatalf("insert newer: %v", err)
	}

	latest, err := repo.LatestByType(ctx, "acme/web", 42, "qa.result_submitted")
	if err != nil {
		t.Fatalf("LatestByType() error = %v", err)
	}
	if latest == nil || latest.EventID != "evt-00000002" {
		t.Fatalf("LatestByType() = %+v, want evt-00000002", latest)
	}
}

func TestEventRepositoryRecentActivityOrdersNewestFirstAndRespectsLimit(t *testing.T) {
	repo := setupEventRepository(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i, suffix := range []string{"00000001", "00000002", "00000003"} {
		rec := sampleEventRecord("evt-"+suffix, base.Add(time.Duration(i)*time.Minute))
		if err := repo.Insert(ctx, rec); err != nil {
			t.Fatalf("insert %s: %v", suffix, err)
		}
	}

	recent, err := repo.RecentActivity(ctx, "acme/web", 42, 2)
	if err != nil {
		t.Fatalf("RecentActivity() error = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("RecentActivity() len = %d, want 2", len(recent))
	}
	if recent[0].EventID != "evt-00000003" || recent[1].EventID != "evt-00000002" {
		t.Fatalf("RecentActivity() order = [%s, %s], want [evt-00000003, evt-00000002]", recent[0].EventID, recent[1].EventID)
	}
}
