package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/ignite/lead-console/internal/domain"
	"github.com/ignite/lead-console/internal/service/lead"
)

// LeadRepo implements lead.Repository and the importer's bulk-insert
// collaborator against PostgreSQL.
type LeadRepo struct{ db *sql.DB }

// NewLeadRepo creates a Postgres-backed lead repository.
func NewLeadRepo(db *sql.DB) *LeadRepo { return &LeadRepo{db: db} }

const leadColumns = `id, account_id, name, COALESCE(email,''), COALESCE(phone,''),
	       COALESCE(secondary_phone,''), COALESCE(whatsapp,''), COALESCE(source,''),
	       COALESCE(channel,''), COALESCE(owner,''), COALESCE(labels,''),
	       COALESCE(form_name,''), COALESCE(stage,''), created_at, imported_at, updated_at`

func scanLead(row interface{ Scan(...interface{}) error }, l *domain.Lead) error {
	return row.Scan(
		&l.ID, &l.AccountID, &l.Name, &l.Email, &l.Phone,
		&l.SecondaryPhone, &l.WhatsApp, &l.Source,
		&l.Channel, &l.Owner, &l.Labels,
		&l.FormName, &l.Stage, &l.CreatedAt, &l.ImportedAt, &l.UpdatedAt,
	)
}

func (r *LeadRepo) Get(ctx context.Context, accountID, id string) (*domain.Lead, error) {
	l := &domain.Lead{}
	err := scanLead(r.db.QueryRowContext(ctx, `
		SELECT `+leadColumns+`
		FROM marketing_leads
		WHERE id = $1 AND account_id = $2
	`, id, accountID), l)
	if err == sql.ErrNoRows {
		return nil, lead.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return l, nil
}

func (r *LeadRepo) List(ctx context.Context, accountID string, f lead.ListFilter) ([]domain.Lead, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	where := []string{"account_id = $1"}
	args := []interface{}{accountID}
	idx := 2

	if f.Stage != "" {
		where = append(where, fmt.Sprintf("stage = $%d", idx))
		args = append(args, f.Stage)
		idx++
	}
	if f.FormName != "" {
		where = append(where, fmt.Sprintf("form_name = $%d", idx))
		args = append(args, f.FormName)
		idx++
	}
	if f.Search != "" {
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", idx, idx))
		args = append(args, "%"+f.Search+"%")
		idx++
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM marketing_leads WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	q := fmt.Sprintf(`
		SELECT `+leadColumns+`
		FROM marketing_leads
		WHERE %s
		ORDER BY imported_at DESC, name ASC
		LIMIT $%d OFFSET $%d`, cond, idx, idx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var out []domain.Lead
	for rows.Next() {
		var l domain.Lead
		if err := scanLead(rows, &l); err != nil {
			return nil, 0, fmt.Errorf("scan lead: %w", err)
		}
		out = append(out, l)
	}
	return out, total, nil
}

func (r *LeadRepo) Create(ctx context.Context, l *domain.Lead) (string, error) {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO marketing_leads
			(id, account_id, name, email, phone, secondary_phone, whatsapp,
			 source, channel, owner, labels, form_name, stage,
			 created_at, imported_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
	`, l.ID, l.AccountID, l.Name, l.Email, l.Phone, l.SecondaryPhone, l.WhatsApp,
		l.Source, l.Channel, l.Owner, l.Labels, l.FormName, l.Stage,
		l.CreatedAt, l.ImportedAt)
	if err != nil {
		return "", fmt.Errorf("create lead: %w", err)
	}
	return l.ID, nil
}

func (r *LeadRepo) Update(ctx context.Context, accountID, id string, u lead.UpdateFields) error {
	sets := []string{}
	args := []interface{}{}
	idx := 1
	add := func(col string, val interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, val)
		idx++
	}

	if u.Name != nil {
		add("name", *u.Name)
	}
	if u.Email != nil {
		add("email", *u.Email)
	}
	if u.Phone != nil {
		add("phone", *u.Phone)
	}
	if u.WhatsApp != nil {
		add("whatsapp", *u.WhatsApp)
	}
	if u.Stage != nil {
		add("stage", *u.Stage)
	}
	if u.Owner != nil {
		add("owner", *u.Owner)
	}
	if u.Labels != nil {
		add("labels", *u.Labels)
	}
	if u.Channel != nil {
		add("channel", *u.Channel)
	}
	if u.Source != nil {
		add("source", *u.Source)
	}

	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = NOW()")
	q := fmt.Sprintf("UPDATE marketing_leads SET %s WHERE id = $%d AND account_id = $%d",
		strings.Join(sets, ", "), idx, idx+1)
	args = append(args, id, accountID)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return lead.ErrNotFound
	}
	return nil
}

func (r *LeadRepo) Delete(ctx context.Context, accountID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM marketing_leads WHERE id = $1 AND account_id = $2
	`, id, accountID)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return lead.ErrNotFound
	}
	return nil
}

// InsertLeads persists one importer chunk inside a single transaction. An
// error means the whole chunk counts as not persisted; the importer never
// assumes partial success. The returned slice carries the assigned IDs.
func (r *LeadRepo) InsertLeads(ctx context.Context, leads []domain.Lead) ([]domain.Lead, error) {
	if len(leads) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin bulk insert: %w", err)
	}
	defer tx.Rollback()

	inserted := make([]domain.Lead, 0, len(leads))
	for i := range leads {
		l := leads[i]
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO marketing_leads
				(id, account_id, name, email, phone, secondary_phone, whatsapp,
				 source, channel, owner, labels, form_name, stage,
				 created_at, imported_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
		`, l.ID, l.AccountID, l.Name, l.Email, l.Phone, l.SecondaryPhone, l.WhatsApp,
			l.Source, l.Channel, l.Owner, l.Labels, l.FormName, l.Stage,
			l.CreatedAt, l.ImportedAt)
		if err != nil {
			return nil, fmt.Errorf("bulk insert lead: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted = append(inserted, l)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit bulk insert: %w", err)
	}
	return inserted, nil
}
