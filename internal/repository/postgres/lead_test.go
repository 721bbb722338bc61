package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ignite/lead-console/internal/domain"
	"github.com/ignite/lead-console/internal/service/lead"
)

func setupLeadRepoTest(t *testing.T) (*LeadRepo, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	return NewLeadRepo(db), mock, func() { db.Close() }
}

func leadRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "account_id", "name", "email", "phone",
		"secondary_phone", "whatsapp", "source",
		"channel", "owner", "labels",
		"form_name", "stage", "created_at", "imported_at", "updated_at",
	})
}

func TestLeadRepoGet(t *testing.T) {
	repo, mock, cleanup := setupLeadRepoTest(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM marketing_leads").
		WithArgs("lead-1", "acct-1").
		WillReturnRows(leadRows().AddRow(
			"lead-1", "acct-1", "Maria", "maria@example.com", "11999990000",
			"", "", "Meta Ads", "Instagram", "", "", "Importação Geral", "Em análise",
			now, now, now,
		))

	l, err := repo.Get(context.Background(), "acct-1", "lead-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if l.Name != "Maria" || l.Stage != "Em análise" {
		t.Errorf("lead = %+v", l)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestLeadRepoGetNotFound(t *testing.T) {
	repo, mock, cleanup := setupLeadRepoTest(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM marketing_leads").
		WithArgs("missing", "acct-1").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.Get(context.Background(), "acct-1", "missing"); err != lead.ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLeadRepoList(t *testing.T) {
	repo, mock, cleanup := setupLeadRepoTest(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM marketing_leads").
		WithArgs("acct-1", "Ganho").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM marketing_leads").
		WithArgs("acct-1", "Ganho", 50, 0).
		WillReturnRows(leadRows().AddRow(
			"lead-1", "acct-1", "Maria", "", "", "", "", "", "", "", "", "", "Ganho",
			nil, now, now,
		))

	out, total, err := repo.List(context.Background(), "acct-1", lead.ListFilter{Stage: "Ganho"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(out) != 1 {
		t.Errorf("total=%d len=%d, want 1/1", total, len(out))
	}
	if out[0].CreatedAt != nil {
		t.Errorf("CreatedAt = %v, want nil for a null column", out[0].CreatedAt)
	}
}

func TestLeadRepoUpdateNotFound(t *testing.T) {
	repo, mock, cleanup := setupLeadRepoTest(t)
	defer cleanup()

	name := "Novo Nome"
	mock.ExpectExec("UPDATE marketing_leads SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Update(context.Background(), "acct-1", "missing", lead.UpdateFields{Name: &name}); err != lead.ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLeadRepoInsertLeadsCommitsChunk(t *testing.T) {
	repo, mock, cleanup := setupLeadRepoTest(t)
	defer cleanup()

	now := time.Now().UTC()
	leads := []domain.Lead{
		{AccountID: "acct-1", Name: "Ana", ImportedAt: now},
		{AccountID: "acct-1", Name: "Bruno", ImportedAt: now},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO marketing_leads").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO marketing_leads").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	inserted, err := repo.InsertLeads(context.Background(), leads)
	if err != nil {
		t.Fatalf("InsertLeads: %v", err)
	}
	if len(inserted) != 2 {
		t.Errorf("inserted = %d, want 2", len(inserted))
	}
	for _, l := range inserted {
		if l.ID == "" {
			t.Error("inserted lead has no assigned ID")
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestLeadRepoInsertLeadsFailureRollsBack(t *testing.T) {
	repo, mock, cleanup := setupLeadRepoTest(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO marketing_leads").
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	inserted, err := repo.InsertLeads(context.Background(), []domain.Lead{
		{AccountID: "acct-1", Name: "Ana"},
	})
	if err == nil {
		t.Fatal("InsertLeads should fail when any row fails")
	}
	if inserted != nil {
		t.Errorf("inserted = %v, want nil on chunk failure", inserted)
	}
}

func TestLeadRepoInsertLeadsEmptyChunk(t *testing.T) {
	repo, _, cleanup := setupLeadRepoTest(t)
	defer cleanup()

	inserted, err := repo.InsertLeads(context.Background(), nil)
	if err != nil || inserted != nil {
		t.Errorf("empty chunk: inserted=%v err=%v", inserted, err)
	}
}
