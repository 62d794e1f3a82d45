package postgres_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"

	"incentive-monitor/internal/domain/entity"
	"incentive-monitor/internal/infra/adapter/persistence/postgres"
)

/* ──────────────────────────────── helpers ──────────────────────────────── */

func sourceRow(src *entity.Source) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "jurisdiction_id", "jurisdiction_name", "source_type", "url",
		"check_interval_seconds", "active", "last_checked_at", "last_hash",
	}).AddRow(
		src.ID, src.JurisdictionID, src.JurisdictionName, src.SourceType, src.URL,
		src.CheckIntervalSeconds, src.Active, src.LastCheckedAt, src.LastHash,
	)
}

func sampleSource() *entity.Source {
	checkedAt := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	hash := "abc123"
	return &entity.Source{
		ID:                   1,
		JurisdictionID:       "CA",
		JurisdictionName:     "California",
		SourceType:           entity.SourceTypeRSS,
		URL:                  "https://film.ca.gov/feed",
		CheckIntervalSeconds: 3600,
		Active:               true,
		LastCheckedAt:        &checkedAt,
		LastHash:             &hash,
	}
}

/* ──────────────────────────────── Get ──────────────────────────────── */

func TestSourceRepo_Get(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	want := sampleSource()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id`)).
		WithArgs(int64(1)).
		WillReturnRows(sourceRow(want))

	repo := postgres.NewSourceRepo(db)
	got, err := repo.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get err=%v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSourceRepo_Get_NotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id`)).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := postgres.NewSourceRepo(db)
	got, err := repo.Get(context.Background(), 99)
	if !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("Get err=%v, want ErrNotFound", err)
	}
	if got != nil {
		t.Fatalf("missing row returned %+v, want nil", got)
	}
}

func TestSourceRepo_GetByURL_NotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id`)).
		WithArgs("https://unknown.example.gov").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := postgres.NewSourceRepo(db)
	got, err := repo.GetByURL(context.Background(), "https://unknown.example.gov")
	if !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("GetByURL err=%v, want ErrNotFound", err)
	}
	if got != nil {
		t.Fatalf("missing row returned %+v, want nil", got)
	}
}

/* ──────────────────────────────── ListDue ──────────────────────────────── */

func TestSourceRepo_ListDue(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	want := sampleSource()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`last_checked_at IS NULL`)).
		WithArgs(now).
		WillReturnRows(sourceRow(want))

	repo := postgres.NewSourceRepo(db)
	got, err := repo.ListDue(context.Background(), now)
	if err != nil {
		t.Fatalf("ListDue err=%v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d", len(got))
	}
	if diff := cmp.Diff(want, got[0]); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSourceRepo_ListDue_QueryError(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`last_checked_at IS NULL`)).
		WillReturnError(errors.New("connection reset"))

	repo := postgres.NewSourceRepo(db)
	if _, err := repo.ListDue(context.Background(), time.Now()); err == nil {
		t.Fatal("expected error")
	}
}

/* ──────────────────────────────── Create ──────────────────────────────── */

func TestSourceRepo_Create(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	src := &entity.Source{
		JurisdictionID:       "NY",
		JurisdictionName:     "New York",
		SourceType:           entity.SourceTypeWebpage,
		URL:                  "https://esd.ny.gov/incentives",
		CheckIntervalSeconds: 7200,
		Active:               true,
	}

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO monitoring_sources`)).
		WithArgs(src.JurisdictionID, src.JurisdictionName, src.SourceType, src.URL,
			src.CheckIntervalSeconds, src.Active, src.LastCheckedAt, src.LastHash).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))

	repo := postgres.NewSourceRepo(db)
	if err := repo.Create(context.Background(), src); err != nil {
		t.Fatalf("Create err=%v", err)
	}
	if src.ID != 5 {
		t.Fatalf("assigned id = %d, want 5", src.ID)
	}
}

/* ──────────────────────────── UpdateCheckState ──────────────────────────── */

func TestSourceRepo_UpdateCheckState(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	checkedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE monitoring_sources SET`)).
		WithArgs(checkedAt, "newhash", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := postgres.NewSourceRepo(db)
	if err := repo.UpdateCheckState(context.Background(), 1, "newhash", checkedAt); err != nil {
		t.Fatalf("UpdateCheckState err=%v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSourceRepo_UpdateCheckState_NoRows(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE monitoring_sources SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := postgres.NewSourceRepo(db)
	if err := repo.UpdateCheckState(context.Background(), 42, "h", time.Now()); err == nil {
		t.Fatal("expected error for missing source row")
	}
}
