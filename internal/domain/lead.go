package domain

import "time"

// DefaultManualStage is applied by the manual single-lead creation path when
// no stage is given. The bulk importer leaves the stage blank on purpose.
const DefaultManualStage = "Em análise"

// DefaultFormName is used when an imported file carries no form-name column.
const DefaultFormName = "Importação Geral"

// Lead represents a prospective customer captured from a form or ad platform.
// CreatedAt is the timestamp parsed from the source spreadsheet and may be
// nil when the source value was absent or unparseable. ImportedAt is stamped
// once per import run and is identical for every lead of that run.
type Lead struct {
	ID             string     `json:"id" db:"id"`
	AccountID      string     `json:"account_id" db:"account_id"`
	Name           string     `json:"name" db:"name"`
	Email          string     `json:"email" db:"email"`
	Phone          string     `json:"phone" db:"phone"`
	SecondaryPhone string     `json:"secondary_phone" db:"secondary_phone"`
	WhatsApp       string     `json:"whatsapp" db:"whatsapp"`
	Source         string     `json:"source" db:"source"`
	Channel        string     `json:"channel" db:"channel"`
	Owner          string     `json:"owner" db:"owner"`
	Labels         string     `json:"labels" db:"labels"`
	FormName       string     `json:"form_name" db:"form_name"`
	Stage          string     `json:"stage" db:"stage"`
	CreatedAt      *time.Time `json:"created_at" db:"created_at"`
	ImportedAt     time.Time  `json:"imported_at" db:"imported_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// ImportJob records one bulk import run for auditing.
type ImportJob struct {
	ID            string     `json:"id" db:"id"`
	AccountID     string     `json:"account_id" db:"account_id"`
	FileCount     int        `json:"file_count" db:"file_count"`
	ImportedCount int        `json:"imported_count" db:"imported_count"`
	ErrorCount    int        `json:"error_count" db:"error_count"`
	Status        string     `json:"status" db:"status"`
	StartedAt     time.Time  `json:"started_at" db:"started_at"`
	CompletedAt   *time.Time `json:"completed_at" db:"completed_at"`
}
